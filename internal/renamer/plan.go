package renamer

import (
	"os"
	"path/filepath"

	"golang.org/x/text/cases"

	"fapiao/internal/invoice"
	"fapiao/internal/naming"
)

// Skip reasons assigned during planning.
const (
	ReasonNotSelected          = "not_selected"
	ReasonRecognitionFailed    = "recognition_failed"
	ReasonMissingSuggestedName = "missing_suggested_name"
	ReasonSameName             = "same_name"
	ReasonDuplicateInBatch     = "duplicate_in_batch"
	ReasonTargetExists         = "target_exists"
)

var foldCaser = cases.Fold()

// targetKey normalizes a path for case-insensitive duplicate detection.
func targetKey(path string) string {
	return foldCaser.String(path)
}

// BuildRenamePlan classifies every item into a rename decision, one plan row
// per item in stored order. selectedIDs limits which items are considered;
// nil means "items whose selected flag is set".
//
// Within one call at most one item may claim a given target path
// (case-insensitive); later items colliding with an earlier claim are skipped
// with conflict exists_other. Items forced to manual editing upstream still
// produce a row so callers can render the full batch.
func BuildRenamePlan(items []*invoice.Item, selectedIDs map[string]struct{}) []invoice.RenamePlanItem {
	if selectedIDs == nil {
		selectedIDs = make(map[string]struct{}, len(items))
		for _, item := range items {
			if item.Selected {
				selectedIDs[item.ID] = struct{}{}
			}
		}
	}

	usedTargets := make(map[string]struct{}, len(items))
	plan := make([]invoice.RenamePlanItem, 0, len(items))

	for _, item := range items {
		ext := item.Ext()
		chosenRaw := item.ManualName
		if chosenRaw == "" {
			chosenRaw = item.SuggestedName
		}
		chosenName := ""
		if chosenRaw != "" {
			base := naming.NormalizeBaseName(chosenRaw, ext)
			chosenName = naming.BuildFinalName(base, ext)
		}

		targetName := chosenName
		if targetName == "" {
			targetName = item.OldName
		}
		targetPath := filepath.Join(filepath.Dir(item.SourcePath), targetName)

		action := invoice.ActionRename
		reason := ""
		conflict := invoice.ConflictNone

		if _, selected := selectedIDs[item.ID]; !selected {
			action = invoice.ActionSkip
			reason = ReasonNotSelected
		} else if item.Status == invoice.StatusFailed {
			action = invoice.ActionSkip
			reason = ReasonRecognitionFailed
		} else if chosenName == "" {
			action = invoice.ActionSkip
			reason = ReasonMissingSuggestedName
		} else if targetName == item.OldName {
			action = invoice.ActionSkip
			reason = ReasonSameName
			conflict = invoice.ConflictSameName
		} else if _, claimed := usedTargets[targetKey(targetPath)]; claimed {
			action = invoice.ActionSkip
			reason = ReasonDuplicateInBatch
			conflict = invoice.ConflictExistsOther
		} else if targetOccupied(targetPath, item.SourcePath) {
			action = invoice.ActionSkip
			reason = ReasonTargetExists
			conflict = invoice.ConflictExistsOther
		}

		if action == invoice.ActionRename {
			usedTargets[targetKey(targetPath)] = struct{}{}
		}

		plan = append(plan, invoice.RenamePlanItem{
			ItemID:       item.ID,
			SourcePath:   item.SourcePath,
			TargetPath:   targetPath,
			OldName:      item.OldName,
			TargetName:   targetName,
			Action:       action,
			ConflictType: conflict,
			Reason:       reason,
		})
	}

	return plan
}

// targetOccupied reports whether the target path exists and is not the same
// file as the source.
func targetOccupied(targetPath, sourcePath string) bool {
	targetInfo, err := os.Stat(targetPath)
	if err != nil {
		return false
	}
	sourceInfo, err := os.Stat(sourcePath)
	if err != nil {
		return true
	}
	return !os.SameFile(targetInfo, sourceInfo)
}
