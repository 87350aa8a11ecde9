// Package services defines shared utilities consumed by the processing
// stages and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp task/item IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent per-item failure reasons.
package services
