package importer_test

import (
	"path/filepath"
	"testing"

	"fapiao/internal/importer"
	"fapiao/internal/testsupport"
)

func TestScanDirectoryFiltersAndSorts(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteInvoiceFiles(t, dir, "b.pdf", "A.png", "notes.txt", "c.JPG")
	testsupport.WriteFile(t, filepath.Join(dir, "nested", "d.jpeg"), nil)

	files, err := importer.Scan([]string{dir})
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	if len(files) != 4 {
		t.Fatalf("expected 4 files, got %d: %v", len(files), files)
	}
	wantOrder := []string{"A.png", "b.pdf", "c.JPG", "d.jpeg"}
	for i, want := range wantOrder {
		if got := filepath.Base(files[i]); got != want {
			t.Fatalf("position %d: got %q want %q (all: %v)", i, got, want, files)
		}
	}
}

func TestScanGlobPattern(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteInvoiceFiles(t, dir, "one.pdf", "two.pdf", "skip.png")
	testsupport.WriteFile(t, filepath.Join(dir, "sub", "three.pdf"), nil)

	files, err := importer.Scan([]string{filepath.Join(dir, "**", "*.pdf")})
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("expected 3 pdf files, got %d: %v", len(files), files)
	}
	for _, file := range files {
		if filepath.Ext(file) != ".pdf" {
			t.Fatalf("unexpected non-pdf match: %q", file)
		}
	}
}

func TestScanDeduplicatesAcrossPatterns(t *testing.T) {
	dir := t.TempDir()
	paths := testsupport.WriteInvoiceFiles(t, dir, "dup.pdf")

	files, err := importer.Scan([]string{paths[0], dir, filepath.Join(dir, "*.pdf")})
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected single deduplicated entry, got %v", files)
	}
}

func TestScanMissingPathFails(t *testing.T) {
	if _, err := importer.Scan([]string{filepath.Join(t.TempDir(), "absent.pdf")}); err == nil {
		t.Fatal("expected error for missing path")
	}
}

func TestScanSkipsUnsupportedExplicitFile(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteInvoiceFiles(t, dir, "readme.txt")

	files, err := importer.Scan([]string{filepath.Join(dir, "readme.txt")})
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	if len(files) != 0 {
		t.Fatalf("expected unsupported file to be skipped, got %v", files)
	}
}

func TestNewItems(t *testing.T) {
	dir := t.TempDir()
	paths := testsupport.WriteInvoiceFiles(t, dir, "发票.PDF")

	items := importer.NewItems(paths)
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].OldName != "发票.PDF" {
		t.Fatalf("unexpected old name: %q", items[0].OldName)
	}
	if items[0].FileExt != ".pdf" {
		t.Fatalf("expected lowercase extension, got %q", items[0].FileExt)
	}
	if items[0].SourcePath != paths[0] {
		t.Fatalf("unexpected source path: %q", items[0].SourcePath)
	}
}
