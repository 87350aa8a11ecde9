// Package daemon coordinates the long-running fapiao process.
//
// It wires configuration, the in-memory task store, and the service facade
// into a single lifecycle with flock-based locking to prevent multiple
// instances, and serves the local HTTP API the desktop shell talks to.
//
// Keep orchestration logic here: task operations live in internal/api while
// the daemon focuses on startup, shutdown, and transport concerns.
package daemon
