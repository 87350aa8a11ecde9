package invoice

// Summary aggregates per-item counts for a task. It is always recomputed from
// the items via BuildSummary, never maintained incrementally.
type Summary struct {
	Total       int
	Pending     int
	OK          int
	NeedsReview int
	Failed      int
	Conflict    int
	RenameReady int
	Renamed     int
	Skipped     int
}

// BuildSummary derives the aggregate counts from the given items.
func BuildSummary(items []*Item) Summary {
	summary := Summary{Total: len(items)}
	for _, item := range items {
		switch item.Status {
		case StatusPending:
			summary.Pending++
		case StatusOK:
			summary.OK++
		case StatusNeedsReview:
			summary.NeedsReview++
		case StatusFailed:
			summary.Failed++
		}
		if item.ConflictType != ConflictNone {
			summary.Conflict++
		}
		if item.Action == ActionRename {
			summary.RenameReady++
		}
		switch item.Result {
		case ResultRenamed:
			summary.Renamed++
		case ResultSkipped:
			summary.Skipped++
		}
	}
	return summary
}

// RefreshSummary recomputes the task summary from its items.
func (t *Task) RefreshSummary() {
	t.Summary = BuildSummary(t.Items)
}
