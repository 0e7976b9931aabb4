// Package proxycache stores generation results in a bounded in-memory map
// with a persisted snapshot.
//
// Capacity pressure is resolved by batch eviction under a two-factor score
// (minutes since last access plus estimated size); snapshots are rewritten
// on every mutation and validated on load, dropping expired entries and
// entries whose sheet files have gone missing.
package proxycache
