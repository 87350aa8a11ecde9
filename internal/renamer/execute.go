package renamer

import (
	"os"

	"fapiao/internal/invoice"
)

// Execution failure messages.
const (
	MessageSourceNotFound = "source_not_found"
	messageSkipped        = "skipped"
)

// ExecuteRenamePlan performs the filesystem rename for every plan row with
// action rename, one result per row. Rows are independent: a failure never
// aborts the rest of the plan, and there is no rollback. The executor is
// stateless; updating item state from the results is the caller's job.
func ExecuteRenamePlan(plan []invoice.RenamePlanItem) []invoice.CommitResult {
	results := make([]invoice.CommitResult, 0, len(plan))
	for _, row := range plan {
		result := invoice.CommitResult{
			ItemID:     row.ItemID,
			SourcePath: row.SourcePath,
			TargetPath: row.TargetPath,
		}

		if row.Action != invoice.ActionRename {
			result.Result = invoice.ResultSkipped
			result.Message = row.Reason
			if result.Message == "" {
				result.Message = messageSkipped
			}
			results = append(results, result)
			continue
		}

		if _, err := os.Lstat(row.SourcePath); err != nil {
			result.Result = invoice.ResultFailed
			result.Message = MessageSourceNotFound
			results = append(results, result)
			continue
		}

		if err := os.Rename(row.SourcePath, row.TargetPath); err != nil {
			result.Result = invoice.ResultFailed
			result.Message = err.Error()
		} else {
			result.Result = invoice.ResultRenamed
		}
		results = append(results, result)
	}
	return results
}
