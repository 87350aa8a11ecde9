package testsupport

import (
	"path/filepath"
	"strings"
	"testing"

	"fapiao/internal/invoice"
	"fapiao/internal/naming"
	"fapiao/internal/taskstore"
)

// NewStore returns an empty in-memory task store.
func NewStore(t testing.TB) *taskstore.Store {
	t.Helper()
	return taskstore.New()
}

// SeedTask builds a task from the provided source paths and saves it.
func SeedTask(t testing.TB, store *taskstore.Store, paths ...string) *invoice.Task {
	t.Helper()

	task := invoice.NewTask(naming.DefaultTemplate)
	for _, path := range paths {
		base := filepath.Base(path)
		ext := strings.ToLower(filepath.Ext(base))
		task.Items = append(task.Items, invoice.NewItem(path, base, ext))
	}
	task.RefreshSummary()
	if err := store.Save(task); err != nil {
		t.Fatalf("seed task: %v", err)
	}
	return task
}
