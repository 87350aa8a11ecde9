package naming

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"fapiao/internal/invoice"
)

// DefaultTemplate is the filename template applied when none is configured.
const DefaultTemplate = "{date}-{category}-{amount}"

// FallbackCategory groups items whose category could not be inferred.
const FallbackCategory = "其他"

// fallbackDate renders an absent invoice date.
const fallbackDate = "19700101"

var extSuffixPattern = regexp.MustCompile(`\.[A-Za-z0-9]{1,12}$`)

type tokens struct {
	date     string
	category string
	amount   string
	ext      string
}

// renderTemplate substitutes the four known placeholders literally.
// Unrecognized placeholders pass through unchanged.
func renderTemplate(template string, tk tokens) string {
	result := template
	result = strings.ReplaceAll(result, "{date}", tk.date)
	result = strings.ReplaceAll(result, "{category}", tk.category)
	result = strings.ReplaceAll(result, "{amount}", tk.amount)
	result = strings.ReplaceAll(result, "{ext}", tk.ext)
	return result
}

func formatDate(invoiceDate string) string {
	if invoiceDate == "" {
		return fallbackDate
	}
	return strings.ReplaceAll(invoiceDate, "-", "")
}

func formatAmountToken(amount string) string {
	if amount == "" {
		return zeroAmount
	}
	return FormatAmount(amount)
}

// NormalizeBaseName sanitizes a rendered name and strips a doubled extension:
// either the item's own extension (case-insensitive) or any short alphanumeric
// suffix that looks like one.
func NormalizeBaseName(value, ext string) string {
	base := SanitizeComponent(value, FallbackComponent)
	extSuffix := "." + strings.ToLower(ext)
	if strings.HasSuffix(strings.ToLower(base), extSuffix) {
		base = base[:len(base)-len(extSuffix)]
	} else if extSuffixPattern.MatchString(base) {
		base = extSuffixPattern.ReplaceAllString(base, "")
	}
	return SanitizeComponent(base, FallbackComponent)
}

// BuildFinalName joins a normalized base with the lowercase extension.
func BuildFinalName(base, ext string) string {
	return base + "." + strings.ToLower(ext)
}

// ApplyNamePreview computes suggested names for every eligible item in the
// batch and returns the same slice for chaining.
//
// Group-suffix assignment walks the batch ordered by (invoice date, lowercase
// old name); items sharing a (date, category, amount) group key receive a
// 1-based positional index, and indexes beyond the first are appended to the
// category token. Suffixes are positional within the current group
// membership, so re-running after membership changes may reassign them.
// Items still pending or failed get no suggested name and are forced to
// manual editing.
func ApplyNamePreview(items []*invoice.Item, template string) []*invoice.Item {
	if strings.TrimSpace(template) == "" {
		template = DefaultTemplate
	}

	ordered := make([]*invoice.Item, len(items))
	copy(ordered, items)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].InvoiceDate != ordered[j].InvoiceDate {
			return ordered[i].InvoiceDate < ordered[j].InvoiceDate
		}
		return strings.ToLower(ordered[i].OldName) < strings.ToLower(ordered[j].OldName)
	})

	type groupKey struct {
		date     string
		category string
		amount   string
	}
	counters := make(map[groupKey]int)

	for _, item := range ordered {
		item.Action = invoice.ActionSkip
		item.ConflictType = invoice.ConflictNone
		if !item.Status.Eligible() {
			item.SuggestedName = ""
			item.Action = invoice.ActionManualEditRequired
			continue
		}

		key := groupKey{
			date:     item.InvoiceDate,
			category: orFallback(item.Category, FallbackCategory),
			amount:   orFallback(item.Amount, "0.00"),
		}
		counters[key]++
		index := counters[key]

		category := orFallback(item.Category, FallbackCategory)
		if index > 1 {
			category += strconv.Itoa(index)
		}

		ext := item.Ext()
		tk := tokens{
			date:     formatDate(item.InvoiceDate),
			category: SanitizeComponent(category, FallbackCategory),
			amount:   SanitizeComponent(formatAmountToken(item.Amount), zeroAmount),
			ext:      ext,
		}
		rendered := renderTemplate(template, tk)
		base := NormalizeBaseName(rendered, ext)
		item.SuggestedName = BuildFinalName(base, ext)
		item.Action = invoice.ActionRename
	}

	return items
}

func orFallback(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
