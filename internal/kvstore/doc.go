// Package kvstore provides the persistent key-value store used to snapshot
// the sprite cache across sessions.
//
// Two implementations are provided:
//   - SQLite: a single-table store with WAL mode, for production use
//   - Memory: a map-backed store for tests and degraded operation
package kvstore
