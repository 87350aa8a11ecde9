package taskstore

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"fapiao/internal/invoice"
)

// ErrNotFound is returned when a task id has no stored task.
var ErrNotFound = errors.New("task not found")

// Store holds all tasks for the lifetime of the process. Every read and write
// exchanges deep copies so no caller ever holds a reference into the stored
// graph; the mutex only covers the copy-in/copy-out window.
type Store struct {
	mu    sync.Mutex
	tasks map[string]*invoice.Task
}

// New constructs an empty store.
func New() *Store {
	return &Store{tasks: make(map[string]*invoice.Task)}
}

// Save stores a deep copy of the task, replacing any previous version.
// Concurrent saves of the same task are last-writer-wins.
func (s *Store) Save(task *invoice.Task) error {
	if task == nil || task.ID == "" {
		return errors.New("task id required")
	}
	cp := task.Clone()
	s.mu.Lock()
	s.tasks[task.ID] = cp
	s.mu.Unlock()
	return nil
}

// Get returns a deep copy of the stored task.
func (s *Store) Get(id string) (*invoice.Task, error) {
	s.mu.Lock()
	task, ok := s.tasks[id]
	var cp *invoice.Task
	if ok {
		cp = task.Clone()
	}
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return cp, nil
}

// Delete removes a task. Deleting an unknown id is a no-op.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.tasks, id)
	s.mu.Unlock()
}

// List returns deep copies of all tasks ordered by creation time, newest first.
func (s *Store) List() []*invoice.Task {
	s.mu.Lock()
	tasks := make([]*invoice.Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		tasks = append(tasks, task.Clone())
	}
	s.mu.Unlock()
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].ID < tasks[j].ID
		}
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
	return tasks
}

// Len returns the number of stored tasks.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}
