// Package main hosts the fapiao CLI entrypoint and command graph.
//
// The Cobra-based command tree drives one-shot invoice runs (import,
// recognize, preview, rename), file scanning, the foreground API daemon, and
// configuration scaffolding. It centralizes configuration resolution and
// service construction so subcommands can focus on user experience instead of
// wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
