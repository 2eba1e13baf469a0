// Package daemon coordinates the long-running mediarelay process.
//
// It wires configuration, the artifact cache scheduler, and an update
// receiver (webhook HTTP server or long-poll loop) into a single lifecycle
// with flock-based locking to prevent multiple instances. On start it sweeps
// leftover files from the workspace of a previous process; on stop it drains
// in-flight handlers before the scheduler evicts the remaining artifacts.
//
// Keep orchestration logic here: the pipeline itself lives in internal/relay
// while the daemon focuses on startup, shutdown, and update fan-out.
package daemon
