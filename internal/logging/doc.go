// Package logging builds the slog loggers used across fapiao.
//
// It provides console and JSON handlers, attribute helpers with
// standardized field names, and context plumbing so task and item
// identifiers attach to every record emitted while handling a request.
package logging
