// Package api provides the transport-neutral service facade and DTO types
// shared by the HTTP daemon and the CLI.
//
// TaskService owns every task operation: import, recognition, name preview,
// plan building, commit, result sync, item edits, and runtime settings.
// All state flows through the task store; views returned to callers are
// detached copies, so transports can serialize them without locking.
package api
