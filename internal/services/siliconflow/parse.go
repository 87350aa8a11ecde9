package siliconflow

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var datePattern = regexp.MustCompile(`(20\d{2})[^\d]?(\d{1,2})[^\d]?(\d{1,2})`)

// messageText flattens a chat message content value: either a plain JSON
// string or an array of {type, text} parts.
func messageText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}
	var parts []struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &parts); err == nil {
		collected := make([]string, 0, len(parts))
		for _, part := range parts {
			if part.Text != "" {
				collected = append(collected, part.Text)
			}
		}
		return strings.Join(collected, "\n")
	}
	return string(raw)
}

// parseJSONObject decodes a JSON object from model output, tolerating
// Markdown fences or surrounding prose by falling back to the outermost
// brace-delimited span. Anything unusable yields an empty map.
func parseJSONObject(raw string) map[string]any {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err == nil {
		return data
	}
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(raw[start:end+1]), &data); err == nil {
			return data
		}
	}
	return map[string]any{}
}

func stringValue(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// normalizeDate extracts a plausible YYYY-MM-DD date from free-form text.
func normalizeDate(raw any) string {
	text := stringValue(raw)
	if text == "" {
		return ""
	}
	matched := datePattern.FindStringSubmatch(text)
	if matched == nil {
		return ""
	}
	year, _ := strconv.Atoi(matched[1])
	month, _ := strconv.Atoi(matched[2])
	day, _ := strconv.Atoi(matched[3])
	parsed := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if parsed.Year() != year || int(parsed.Month()) != month || parsed.Day() != day {
		return ""
	}
	return parsed.Format("2006-01-02")
}

// normalizeAmount strips currency marks and thousand separators and renders
// the value with two fractional digits. Unusable input yields empty.
func normalizeAmount(raw any) string {
	text := stringValue(raw)
	text = strings.NewReplacer("￥", "", "¥", "", ",", "").Replace(text)
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return ""
	}
	return strconv.FormatFloat(value, 'f', 2, 64)
}

// normalizeItemName keeps the first non-empty line of the extracted name.
func normalizeItemName(raw any) string {
	text := stringValue(raw)
	if text == "" {
		return ""
	}
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

// normalizeConfidence clamps the model confidence to [0,1], defaulting to 0.9
// when the model omits it.
func normalizeConfidence(raw any) float64 {
	const fallback = 0.9
	var value float64
	switch v := raw.(type) {
	case nil:
		return fallback
	case float64:
		value = v
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fallback
		}
		value = parsed
	default:
		return fallback
	}
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
