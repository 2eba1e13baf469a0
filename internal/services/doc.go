// Package services defines shared utilities consumed by the relay pipeline,
// extraction backends, and media tooling.
//
// Key responsibilities:
//   - Context helpers that stamp owner IDs, content IDs, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper so failures from external
//     tools and HTTP services classify consistently.
//
// Use these helpers when wiring new backends so operational behaviour (error
// handling, observability) stays uniform across the pipeline.
package services
