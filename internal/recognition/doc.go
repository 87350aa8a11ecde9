// Package recognition turns pending invoice items into recognized ones: it
// calls the cloud extraction collaborator, applies the status state machine
// (ok / needs_review / failed with a reason), and infers a spending category
// from keyword rules.
package recognition
