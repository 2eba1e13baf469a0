// Package relay turns inbound chat events into pipeline runs.
//
// A text event carrying a supported link acquires the owner's processing slot,
// supersedes the owner's earlier artifacts, fetches media through the
// extraction coordinator, fits every item under the delivery ceiling and sends
// it back. Videos stay in the artifact cache for a bounded time so a follow-up
// callback can extract their audio track exactly once or discard them.
//
// The package talks to the chat platform only through the Gateway interface;
// internal/telegram provides the production implementation.
package relay
