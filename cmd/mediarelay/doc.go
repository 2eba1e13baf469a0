// Package main hosts the mediarelay CLI entrypoint and command graph.
//
// The Cobra-based command tree runs the bot process, reports environment
// readiness, inspects the run journal, and scaffolds configuration. It
// centralizes configuration resolution and logger setup so subcommands can
// focus on output instead of wiring.
//
// Keep this package lean: pipeline behavior belongs in the internal packages
// and is only assembled here.
package main
