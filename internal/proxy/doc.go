// Package proxy defines the public data model of the media proxy subsystem:
// generation requests and results, sprite sheets and thumbnails, cache
// entries, and the normalization step that makes cache keys deterministic.
package proxy
