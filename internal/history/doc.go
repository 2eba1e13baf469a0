// Package history journals relay runs in a local SQLite database so
// operators can review what was requested, which backend served it, and how
// the run ended.
//
// The journal is diagnostic only: the relay never reads it back. Schema
// changes bump schemaVersion in schema.go; operators delete the database to
// adopt the new schema. A nil *Store is valid and discards every record, which
// is how a disabled journal is represented.
package history
