// Package renamer builds and executes rename plans: per-item action and
// conflict classification with intra-batch target deduplication, followed by
// independent atomic per-item renames.
package renamer
