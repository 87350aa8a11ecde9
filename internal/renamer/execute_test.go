package renamer_test

import (
	"os"
	"path/filepath"
	"testing"

	"fapiao/internal/invoice"
	"fapiao/internal/renamer"
)

func TestExecuteRenamesFile(t *testing.T) {
	dir := t.TempDir()
	source := writeFixture(t, dir, "a.pdf")
	target := filepath.Join(dir, "20251205-餐饮-23.31元.pdf")

	plan := []invoice.RenamePlanItem{{
		ItemID:     "item-1",
		SourcePath: source,
		TargetPath: target,
		OldName:    "a.pdf",
		TargetName: filepath.Base(target),
		Action:     invoice.ActionRename,
	}}
	results := renamer.ExecuteRenamePlan(plan)
	if len(results) != 1 {
		t.Fatalf("got %d results", len(results))
	}
	if results[0].Result != invoice.ResultRenamed || results[0].Message != "" {
		t.Fatalf("result = %+v", results[0])
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("target missing: %v", err)
	}
	if _, err := os.Stat(source); !os.IsNotExist(err) {
		t.Fatalf("source still present: %v", err)
	}
}

func TestExecuteSkipRowNeverTouchesFilesystem(t *testing.T) {
	dir := t.TempDir()
	source := writeFixture(t, dir, "a.pdf")

	plan := []invoice.RenamePlanItem{{
		ItemID:     "item-1",
		SourcePath: source,
		TargetPath: filepath.Join(dir, "b.pdf"),
		Action:     invoice.ActionSkip,
		Reason:     renamer.ReasonNotSelected,
	}}
	results := renamer.ExecuteRenamePlan(plan)
	if results[0].Result != invoice.ResultSkipped || results[0].Message != renamer.ReasonNotSelected {
		t.Fatalf("result = %+v", results[0])
	}
	if _, err := os.Stat(source); err != nil {
		t.Fatalf("source moved on skip: %v", err)
	}
}

func TestExecuteManualEditRowSkipsWithDefaultMessage(t *testing.T) {
	results := renamer.ExecuteRenamePlan([]invoice.RenamePlanItem{{
		ItemID: "item-1",
		Action: invoice.ActionManualEditRequired,
	}})
	if results[0].Result != invoice.ResultSkipped || results[0].Message != "skipped" {
		t.Fatalf("result = %+v", results[0])
	}
}

func TestExecuteMissingSource(t *testing.T) {
	dir := t.TempDir()
	plan := []invoice.RenamePlanItem{{
		ItemID:     "item-1",
		SourcePath: filepath.Join(dir, "gone.pdf"),
		TargetPath: filepath.Join(dir, "new.pdf"),
		Action:     invoice.ActionRename,
	}}
	results := renamer.ExecuteRenamePlan(plan)
	if results[0].Result != invoice.ResultFailed || results[0].Message != renamer.MessageSourceNotFound {
		t.Fatalf("result = %+v", results[0])
	}
}

func TestExecuteIndependentPerItem(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.pdf")
	source := writeFixture(t, dir, "ok.pdf")

	plan := []invoice.RenamePlanItem{
		{ItemID: "bad", SourcePath: missing, TargetPath: filepath.Join(dir, "x.pdf"), Action: invoice.ActionRename},
		{ItemID: "good", SourcePath: source, TargetPath: filepath.Join(dir, "y.pdf"), Action: invoice.ActionRename},
	}
	results := renamer.ExecuteRenamePlan(plan)
	if results[0].Result != invoice.ResultFailed {
		t.Fatalf("first result = %+v", results[0])
	}
	if results[1].Result != invoice.ResultRenamed {
		t.Fatalf("second result = %+v", results[1])
	}
}
