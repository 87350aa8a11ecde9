package api

import (
	"path/filepath"
	"time"

	"fapiao/internal/invoice"
)

// ItemView describes an invoice item in a transport-friendly format.
type ItemView struct {
	ID         string `json:"id"`
	SourcePath string `json:"source_path"`
	OldName    string `json:"old_name"`
	FileExt    string `json:"file_ext"`

	InvoiceDate string `json:"invoice_date,omitempty"`
	ItemName    string `json:"item_name,omitempty"`
	Amount      string `json:"amount,omitempty"`
	Category    string `json:"category,omitempty"`
	VendorName  string `json:"vendor_name,omitempty"`

	FieldsConfidence  map[string]float64 `json:"fields_confidence,omitempty"`
	OverallConfidence float64            `json:"overall_confidence"`

	ExtractedText string `json:"extracted_text,omitempty"`

	Status        string `json:"status"`
	FailureReason string `json:"failure_reason,omitempty"`

	SuggestedName string `json:"suggested_name,omitempty"`
	ManualName    string `json:"manual_name,omitempty"`

	Selected     bool   `json:"selected"`
	Action       string `json:"action,omitempty"`
	ConflictType string `json:"conflict_type"`

	Result        string `json:"result"`
	ResultMessage string `json:"result_message,omitempty"`

	UpdatedAt string `json:"updated_at"`
}

// SummaryView mirrors invoice.Summary for API payloads.
type SummaryView struct {
	Total       int `json:"total"`
	Pending     int `json:"pending"`
	OK          int `json:"ok"`
	NeedsReview int `json:"needs_review"`
	Failed      int `json:"failed"`
	Conflict    int `json:"conflict"`
	RenameReady int `json:"rename_ready"`
	Renamed     int `json:"renamed"`
	Skipped     int `json:"skipped"`
}

// TaskView describes a task batch including its items and summary.
type TaskView struct {
	ID        string      `json:"id"`
	CreatedAt string      `json:"created_at"`
	UpdatedAt string      `json:"updated_at"`
	Template  string      `json:"template"`
	Summary   SummaryView `json:"summary"`
	Items     []ItemView  `json:"items"`
}

// PlanItemView is one row of a computed rename plan.
type PlanItemView struct {
	ItemID       string `json:"item_id"`
	SourcePath   string `json:"source_path"`
	TargetPath   string `json:"target_path"`
	OldName      string `json:"old_name"`
	TargetName   string `json:"target_name"`
	Action       string `json:"action"`
	ConflictType string `json:"conflict_type"`
	Reason       string `json:"reason,omitempty"`
}

// PlanResponse wraps a rename plan for one task.
type PlanResponse struct {
	TaskID string         `json:"task_id"`
	DryRun bool           `json:"dry_run"`
	Plan   []PlanItemView `json:"plan"`
}

// CommitResultView is the outcome of executing one plan row.
type CommitResultView struct {
	ItemID     string `json:"item_id"`
	SourcePath string `json:"source_path"`
	TargetPath string `json:"target_path"`
	Result     string `json:"result"`
	Message    string `json:"message,omitempty"`
}

// CommitResponse wraps commit results for one task.
type CommitResponse struct {
	TaskID  string             `json:"task_id"`
	Results []CommitResultView `json:"results"`
}

// ItemSyncPatch carries one item's externally edited fields for bulk sync.
// Unlike ItemPatch the values are applied verbatim, empty included.
type ItemSyncPatch struct {
	ItemID      string `json:"item_id"`
	InvoiceDate string `json:"invoice_date"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
}

// ItemPatch carries partial item updates. Nil fields are left untouched.
type ItemPatch struct {
	InvoiceDate *string `json:"invoice_date,omitempty"`
	ItemName    *string `json:"item_name,omitempty"`
	Amount      *string `json:"amount,omitempty"`
	Category    *string `json:"category,omitempty"`
	VendorName  *string `json:"vendor_name,omitempty"`
	ManualName  *string `json:"manual_name,omitempty"`
	Selected    *bool   `json:"selected,omitempty"`
}

// SettingsView is the runtime settings payload. The API key itself is never
// echoed back, only whether one is configured.
type SettingsView struct {
	SiliconFlowBaseURL string              `json:"siliconflow_base_url"`
	SiliconFlowModel   string              `json:"siliconflow_model"`
	SiliconFlowModels  []string            `json:"siliconflow_models"`
	APIKeyConfigured   bool                `json:"api_key_configured"`
	FilenameTemplate   string              `json:"filename_template"`
	CategoryMapping    map[string][]string `json:"category_mapping"`
}

// SettingsPatch carries partial runtime settings updates.
type SettingsPatch struct {
	SiliconFlowBaseURL *string             `json:"siliconflow_base_url,omitempty"`
	SiliconFlowModel   *string             `json:"siliconflow_model,omitempty"`
	SiliconFlowModels  []string            `json:"siliconflow_models,omitempty"`
	SiliconFlowAPIKey  *string             `json:"siliconflow_api_key,omitempty"`
	FilenameTemplate   *string             `json:"filename_template,omitempty"`
	CategoryMapping    map[string][]string `json:"category_mapping,omitempty"`
}

// HealthView reports daemon readiness for API consumers.
type HealthView struct {
	Status          string `json:"status"`
	Time            string `json:"time"`
	CloudConfigured bool   `json:"cloud_configured"`
	Model           string `json:"model"`
	BaseURL         string `json:"base_url"`
}

func formatTime(value time.Time) string {
	return value.UTC().Format(time.RFC3339)
}

// FromItem converts a domain item to its API view.
func FromItem(item *invoice.Item) ItemView {
	if item == nil {
		return ItemView{}
	}
	return ItemView{
		ID:                item.ID,
		SourcePath:        item.SourcePath,
		OldName:           item.OldName,
		FileExt:           item.FileExt,
		InvoiceDate:       item.InvoiceDate,
		ItemName:          item.ItemName,
		Amount:            item.Amount,
		Category:          item.Category,
		VendorName:        item.VendorName,
		FieldsConfidence:  item.FieldsConfidence,
		OverallConfidence: item.OverallConfidence,
		ExtractedText:     item.ExtractedText,
		Status:            string(item.Status),
		FailureReason:     item.FailureReason,
		SuggestedName:     item.SuggestedName,
		ManualName:        item.ManualName,
		Selected:          item.Selected,
		Action:            string(item.Action),
		ConflictType:      string(item.ConflictType),
		Result:            string(item.Result),
		ResultMessage:     item.ResultMessage,
		UpdatedAt:         formatTime(item.UpdatedAt),
	}
}

// FromTask converts a domain task to its API view.
func FromTask(task *invoice.Task) TaskView {
	if task == nil {
		return TaskView{}
	}
	items := make([]ItemView, 0, len(task.Items))
	for _, item := range task.Items {
		items = append(items, FromItem(item))
	}
	return TaskView{
		ID:        task.ID,
		CreatedAt: formatTime(task.CreatedAt),
		UpdatedAt: formatTime(task.UpdatedAt),
		Template:  task.Template,
		Summary:   FromSummary(task.Summary),
		Items:     items,
	}
}

// FromSummary converts domain summary counts to their API view.
func FromSummary(summary invoice.Summary) SummaryView {
	return SummaryView{
		Total:       summary.Total,
		Pending:     summary.Pending,
		OK:          summary.OK,
		NeedsReview: summary.NeedsReview,
		Failed:      summary.Failed,
		Conflict:    summary.Conflict,
		RenameReady: summary.RenameReady,
		Renamed:     summary.Renamed,
		Skipped:     summary.Skipped,
	}
}

// FromPlan converts rename plan rows to their API views.
func FromPlan(plan []invoice.RenamePlanItem) []PlanItemView {
	views := make([]PlanItemView, 0, len(plan))
	for _, row := range plan {
		views = append(views, PlanItemView{
			ItemID:       row.ItemID,
			SourcePath:   row.SourcePath,
			TargetPath:   row.TargetPath,
			OldName:      row.OldName,
			TargetName:   row.TargetName,
			Action:       string(row.Action),
			ConflictType: string(row.ConflictType),
			Reason:       row.Reason,
		})
	}
	return views
}

// FromResults converts commit results to their API views.
func FromResults(results []invoice.CommitResult) []CommitResultView {
	views := make([]CommitResultView, 0, len(results))
	for _, result := range results {
		views = append(views, CommitResultView{
			ItemID:     result.ItemID,
			SourcePath: result.SourcePath,
			TargetPath: result.TargetPath,
			Result:     string(result.Result),
			Message:    result.Message,
		})
	}
	return views
}

// ToResult converts an externally produced result view back into the domain
// type so it can be applied to stored items.
func ToResult(view CommitResultView) invoice.CommitResult {
	return invoice.CommitResult{
		ItemID:     view.ItemID,
		SourcePath: view.SourcePath,
		TargetPath: view.TargetPath,
		Result:     invoice.ResultStatus(view.Result),
		Message:    view.Message,
	}
}

// targetBase returns the final path component of a rename target.
func targetBase(path string) string {
	return filepath.Base(path)
}
