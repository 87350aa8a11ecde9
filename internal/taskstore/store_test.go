package taskstore_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"fapiao/internal/invoice"
	"fapiao/internal/taskstore"
)

func TestSaveAndGetReturnCopies(t *testing.T) {
	store := taskstore.New()
	task := invoice.NewTask("{date}-{category}-{amount}")
	item := invoice.NewItem("/tmp/a.pdf", "a.pdf", ".pdf")
	task.Items = append(task.Items, item)

	if err := store.Save(task); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Mutating the caller's task must not affect stored state.
	task.Items[0].OldName = "mutated.pdf"
	task.Template = "mutated"

	got, err := store.Get(task.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Items[0].OldName != "a.pdf" {
		t.Fatalf("stored item aliased caller state: %q", got.Items[0].OldName)
	}
	if got.Template != "{date}-{category}-{amount}" {
		t.Fatalf("stored template aliased caller state: %q", got.Template)
	}

	// Mutating a returned copy must not affect a later read.
	got.Items[0].Status = invoice.StatusFailed
	again, err := store.Get(task.ID)
	if err != nil {
		t.Fatalf("Get again: %v", err)
	}
	if again.Items[0].Status != invoice.StatusPending {
		t.Fatalf("returned copy aliased stored state: %s", again.Items[0].Status)
	}
}

func TestGetUnknownTask(t *testing.T) {
	store := taskstore.New()
	if _, err := store.Get("nope"); !errors.Is(err, taskstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	store := taskstore.New()
	task := invoice.NewTask("")
	if err := store.Save(task); err != nil {
		t.Fatalf("Save: %v", err)
	}
	store.Delete(task.ID)
	if _, err := store.Get(task.ID); !errors.Is(err, taskstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	store.Delete("missing") // no-op
}

func TestConcurrentSaves(t *testing.T) {
	store := taskstore.New()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			task := invoice.NewTask(fmt.Sprintf("template-%d", n))
			if err := store.Save(task); err != nil {
				t.Errorf("Save: %v", err)
				return
			}
			if _, err := store.Get(task.ID); err != nil {
				t.Errorf("Get: %v", err)
			}
		}(i)
	}
	wg.Wait()
	if store.Len() != 16 {
		t.Fatalf("Len = %d, want 16", store.Len())
	}
}
