package siliconflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultBaseURL     = "https://api.siliconflow.cn/v1"
	defaultModel       = "Qwen/Qwen3-VL-32B-Instruct"
	defaultHTTPTimeout = 45 * time.Second
)

// structuredPrompt instructs the vision model to return exactly one JSON
// object with the fields the naming engine needs.
const structuredPrompt = "请从发票中提取以下字段，并且只输出一个JSON对象，不要输出任何其他文字或markdown。" +
	"字段和定位要求：" +
	"invoice_date(开票日期，发票右上角，格式YYYY-MM-DD或null), " +
	"item_name(项目名称，中间表格“项目名称”列，若有多行取第一条有效项目名，字符串或null), " +
	"amount(价税合计小写金额，即“(小写)”右侧金额，纯数字字符串如26.80或null)。"

// Client wraps the SiliconFlow vision chat-completions API.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// Option customizes the SiliconFlow client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the default API base (useful for tests/mocks).
func WithBaseURL(base string) Option {
	return func(c *Client) {
		base = strings.TrimSpace(base)
		if base != "" {
			c.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithModel overrides the default vision model.
func WithModel(model string) Option {
	return func(c *Client) {
		model = strings.TrimSpace(model)
		if model != "" {
			c.model = model
		}
	}
}

// WithTimeout bounds each extraction request.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// NewClient constructs a SiliconFlow API client.
func NewClient(apiKey string, opts ...Option) *Client {
	client := &Client{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    defaultBaseURL,
		model:      defaultModel,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

// IsConfigured reports whether the client holds an API key.
func (c *Client) IsConfigured() bool {
	return strings.TrimSpace(c.apiKey) != ""
}

// Extraction captures the normalized fields pulled from one invoice file.
// A zero Extraction means the model produced no usable output.
type Extraction struct {
	InvoiceDate string
	ItemName    string
	Amount      string
	Confidence  float64
	Raw         string
}

// Empty reports whether no usable field was extracted.
func (e Extraction) Empty() bool {
	return e.InvoiceDate == "" && e.ItemName == "" && e.Amount == ""
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// ExtractFields sends the invoice file to the vision model and returns the
// normalized structured fields. An empty Extraction with nil error means the
// model produced no usable output for this file.
func (c *Client) ExtractFields(ctx context.Context, filePath string) (Extraction, error) {
	var empty Extraction
	if !c.IsConfigured() {
		return empty, errors.New("siliconflow extract: api key required")
	}

	dataURL, err := fileDataURL(filePath)
	if err != nil {
		return empty, fmt.Errorf("siliconflow extract: encode file: %w", err)
	}
	if dataURL == "" {
		return empty, nil
	}

	payload := map[string]any{
		"model": c.model,
		"messages": []map[string]any{{
			"role": "user",
			"content": []map[string]any{
				{"type": "image_url", "image_url": map[string]any{"url": dataURL, "detail": "high"}},
				{"type": "text", "text": structuredPrompt},
			},
		}},
		"temperature":     0,
		"max_tokens":      300,
		"response_format": map[string]any{"type": "json_object"},
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return empty, fmt.Errorf("siliconflow extract: encode request: %w", err)
	}
	endpoint, err := url.JoinPath(c.baseURL, "/chat/completions")
	if err != nil {
		return empty, fmt.Errorf("siliconflow extract: build url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return empty, fmt.Errorf("siliconflow extract: request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return empty, fmt.Errorf("siliconflow extract: request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return empty, fmt.Errorf("siliconflow extract: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return empty, fmt.Errorf("siliconflow extract: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return empty, fmt.Errorf("siliconflow extract: decode response: %w", err)
	}
	if completion.Error != nil {
		return empty, fmt.Errorf("siliconflow extract: api error: %s", strings.TrimSpace(completion.Error.Message))
	}
	if len(completion.Choices) == 0 {
		return empty, nil
	}

	content := messageText(completion.Choices[0].Message.Content)
	parsed := parseJSONObject(content)
	if len(parsed) == 0 {
		return empty, nil
	}

	extraction := Extraction{
		InvoiceDate: normalizeDate(parsed["invoice_date"]),
		ItemName:    normalizeItemName(parsed["item_name"]),
		Amount:      normalizeAmount(parsed["amount"]),
		Confidence:  normalizeConfidence(parsed["confidence"]),
		Raw:         content,
	}
	return extraction, nil
}
