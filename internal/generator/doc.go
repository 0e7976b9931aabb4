// Package generator orchestrates sprite strip generation for timeline clips:
// probe metadata, plan sheets, consult the cache, dispatch extraction
// through the coordinator, assemble the public result, and insert it into
// the bounded cache.
//
// One Generator is constructed per process with its collaborators injected,
// so tests can substitute the prober, backend and persistent store.
package generator
