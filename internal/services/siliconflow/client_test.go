package siliconflow

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeInvoiceFixture(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("fixture"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func completionResponse(content string) string {
	payload := map[string]any{
		"choices": []map[string]any{{
			"message": map[string]any{"content": content},
		}},
	}
	encoded, _ := json.Marshal(payload)
	return string(encoded)
}

func TestExtractFieldsParsesAndNormalizes(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionResponse(`{"invoice_date":"2025年12月05日","item_name":"餐饮服务\n第二行","amount":"￥26.8","confidence":0.92}`)))
	}))
	defer server.Close()

	client := NewClient("key", WithBaseURL(server.URL), WithModel("test-model"))
	extraction, err := client.ExtractFields(context.Background(), writeInvoiceFixture(t, "a.png"))
	if err != nil {
		t.Fatalf("ExtractFields: %v", err)
	}
	if extraction.InvoiceDate != "2025-12-05" {
		t.Fatalf("date = %q", extraction.InvoiceDate)
	}
	if extraction.ItemName != "餐饮服务" {
		t.Fatalf("item name = %q", extraction.ItemName)
	}
	if extraction.Amount != "26.80" {
		t.Fatalf("amount = %q", extraction.Amount)
	}
	if extraction.Confidence != 0.92 {
		t.Fatalf("confidence = %v", extraction.Confidence)
	}
	if gotAuth != "Bearer key" {
		t.Fatalf("auth header = %q", gotAuth)
	}
	if gotBody["model"] != "test-model" {
		t.Fatalf("model = %v", gotBody["model"])
	}
}

func TestExtractFieldsToleratesFencedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		content := "```json\n{\"invoice_date\":\"2025-01-02\",\"item_name\":\"办公用品\",\"amount\":\"12\"}\n```"
		_, _ = w.Write([]byte(completionResponse(content)))
	}))
	defer server.Close()

	client := NewClient("key", WithBaseURL(server.URL))
	extraction, err := client.ExtractFields(context.Background(), writeInvoiceFixture(t, "a.jpg"))
	if err != nil {
		t.Fatalf("ExtractFields: %v", err)
	}
	if extraction.InvoiceDate != "2025-01-02" || extraction.Amount != "12.00" {
		t.Fatalf("extraction = %+v", extraction)
	}
	// Confidence omitted by the model defaults high.
	if extraction.Confidence != 0.9 {
		t.Fatalf("confidence = %v", extraction.Confidence)
	}
}

func TestExtractFieldsEmptyOutput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(completionResponse("无法识别")))
	}))
	defer server.Close()

	client := NewClient("key", WithBaseURL(server.URL))
	extraction, err := client.ExtractFields(context.Background(), writeInvoiceFixture(t, "a.png"))
	if err != nil {
		t.Fatalf("ExtractFields: %v", err)
	}
	if !extraction.Empty() {
		t.Fatalf("expected empty extraction, got %+v", extraction)
	}
}

func TestExtractFieldsHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient("key", WithBaseURL(server.URL))
	if _, err := client.ExtractFields(context.Background(), writeInvoiceFixture(t, "a.png")); err == nil {
		t.Fatal("expected error")
	} else if !strings.Contains(err.Error(), "429") {
		t.Fatalf("error = %v", err)
	}
}

func TestExtractFieldsRequiresAPIKey(t *testing.T) {
	client := NewClient("   ")
	if client.IsConfigured() {
		t.Fatal("blank key should not be configured")
	}
	if _, err := client.ExtractFields(context.Background(), "whatever.png"); err == nil {
		t.Fatal("expected error")
	}
}

func TestExtractFieldsUnsupportedExtension(t *testing.T) {
	client := NewClient("key", WithBaseURL("http://127.0.0.1:0"))
	extraction, err := client.ExtractFields(context.Background(), writeInvoiceFixture(t, "notes.txt"))
	if err != nil {
		t.Fatalf("ExtractFields: %v", err)
	}
	if !extraction.Empty() {
		t.Fatalf("expected empty extraction, got %+v", extraction)
	}
}

func TestParseJSONObjectTolerant(t *testing.T) {
	tests := []struct {
		name  string
		input string
		empty bool
	}{
		{"plain object", `{"a":1}`, false},
		{"fenced", "```json\n{\"a\":1}\n```", false},
		{"prose wrapped", "结果如下：{\"a\":1}。", false},
		{"array", `[1,2]`, true},
		{"garbage", "not json", true},
		{"blank", "  ", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := parseJSONObject(tc.input)
			if tc.empty && len(result) != 0 {
				t.Fatalf("expected empty, got %v", result)
			}
			if !tc.empty && len(result) == 0 {
				t.Fatalf("expected parsed object")
			}
		})
	}
}

func TestNormalizeDateRejectsImpossible(t *testing.T) {
	if got := normalizeDate("2025-13-40"); got != "" {
		t.Fatalf("normalizeDate = %q", got)
	}
	if got := normalizeDate("开票日期 2025年2月7日"); got != "2025-02-07" {
		t.Fatalf("normalizeDate = %q", got)
	}
}
