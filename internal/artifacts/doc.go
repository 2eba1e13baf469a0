// Package artifacts tracks delivered media that is kept on disk for a short
// follow-up window, and serializes processing per requester.
//
// Cache entries own their files: any removal (TTL expiry, explicit eviction,
// supersession by a new run, shutdown) deletes the file, and deletion is
// idempotent. Consume hands the file to the caller exactly once through a
// Lease. Expirations are driven by a single scheduler goroutine started with
// Run.
//
// Guard is a per-owner busy flag so one requester cannot start a second run
// while the first is still in flight.
package artifacts
