// Package naming renders filename templates for invoice batches: token
// sanitization, financial amount formatting, and deterministic group
// suffixing for items that would otherwise collide on the same base name.
package naming
