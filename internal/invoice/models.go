package invoice

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status represents the recognition lifecycle of an invoice item.
type Status string

const (
	StatusPending     Status = "pending"
	StatusOK          Status = "ok"
	StatusNeedsReview Status = "needs_review"
	StatusFailed      Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusOK,
	StatusNeedsReview,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// Valid reports whether the status is a known lifecycle state.
func (s Status) Valid() bool {
	_, ok := statusSet[s]
	return ok
}

// Eligible reports whether items in this status may carry a suggested name.
func (s Status) Eligible() bool {
	return s == StatusOK || s == StatusNeedsReview
}

// Action is the per-item decision produced by planning.
type Action string

const (
	ActionNone               Action = ""
	ActionRename             Action = "rename"
	ActionSkip               Action = "skip"
	ActionManualEditRequired Action = "manual_edit_required"
)

// ConflictType classifies why a computed rename target cannot proceed.
type ConflictType string

const (
	ConflictNone        ConflictType = "none"
	ConflictSameName    ConflictType = "same_name"
	ConflictExistsOther ConflictType = "exists_other"
)

// ResultStatus is the per-item outcome of executing a rename plan.
type ResultStatus string

const (
	ResultPending ResultStatus = "pending"
	ResultRenamed ResultStatus = "renamed"
	ResultSkipped ResultStatus = "skipped"
	ResultFailed  ResultStatus = "failed"
)

// Recognition failure reasons recorded on items. Planning and execution
// reasons live with their producers (renamer package).
const (
	ReasonAPIKeyNotConfigured   = "api_key_not_configured"
	ReasonFileNotFound          = "file_not_found"
	ReasonCloudRequestFailed    = "cloud_request_failed"
	ReasonMissingRequiredFields = "missing_required_fields"
	ReasonLowConfidence         = "low_confidence"
)

// Item is one invoice file under processing.
type Item struct {
	ID         string
	SourcePath string
	OldName    string
	FileExt    string // lowercase, includes the leading dot

	InvoiceDate string // ISO YYYY-MM-DD, empty when absent
	ItemName    string
	Amount      string // decimal string, empty when absent
	Category    string
	VendorName  string

	FieldsConfidence  map[string]float64
	OverallConfidence float64

	ExtractedText string

	Status        Status
	FailureReason string

	SuggestedName string
	ManualName    string

	Selected     bool
	Action       Action
	ConflictType ConflictType

	Result        ResultStatus
	ResultMessage string

	UpdatedAt time.Time
}

// NewItem constructs a pending item for the given source file.
func NewItem(sourcePath, oldName, fileExt string) *Item {
	return &Item{
		ID:           uuid.NewString(),
		SourcePath:   sourcePath,
		OldName:      oldName,
		FileExt:      strings.ToLower(fileExt),
		Status:       StatusPending,
		ConflictType: ConflictNone,
		Result:       ResultPending,
		Selected:     true,
		UpdatedAt:    time.Now().UTC(),
	}
}

// Ext returns the item's extension without the leading dot, lowercased.
func (i *Item) Ext() string {
	return strings.ToLower(strings.TrimPrefix(i.FileExt, "."))
}

// Touch refreshes the item's modification timestamp.
func (i *Item) Touch() {
	i.UpdatedAt = time.Now().UTC()
}

// Clone returns a deep copy of the item.
func (i *Item) Clone() *Item {
	if i == nil {
		return nil
	}
	cp := *i
	if i.FieldsConfidence != nil {
		cp.FieldsConfidence = make(map[string]float64, len(i.FieldsConfidence))
		for key, value := range i.FieldsConfidence {
			cp.FieldsConfidence[key] = value
		}
	}
	return &cp
}

// Task is a named batch of invoice items sharing one naming template.
type Task struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
	Template  string
	Summary   Summary
	Items     []*Item
}

// NewTask constructs an empty task using the provided filename template.
func NewTask(template string) *Task {
	now := time.Now().UTC()
	return &Task{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
		Template:  template,
	}
}

// Clone returns a deep copy of the task and all of its items.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	cp := *t
	cp.Items = make([]*Item, len(t.Items))
	for idx, item := range t.Items {
		cp.Items[idx] = item.Clone()
	}
	return &cp
}

// Item returns the item with the given id, or nil.
func (t *Task) Item(id string) *Item {
	for _, item := range t.Items {
		if item.ID == id {
			return item
		}
	}
	return nil
}

// SelectedIDs returns the ids of all items whose selected flag is set.
func (t *Task) SelectedIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(t.Items))
	for _, item := range t.Items {
		if item.Selected {
			ids[item.ID] = struct{}{}
		}
	}
	return ids
}

// RenamePlanItem is one row of a computed rename plan. Plans are ephemeral
// and never persisted.
type RenamePlanItem struct {
	ItemID       string
	SourcePath   string
	TargetPath   string
	OldName      string
	TargetName   string
	Action       Action
	ConflictType ConflictType
	Reason       string
}

// CommitResult is the outcome of executing one rename plan row.
type CommitResult struct {
	ItemID     string
	SourcePath string
	TargetPath string
	Result     ResultStatus
	Message    string
}
