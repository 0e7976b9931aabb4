// Package handlers implements the HTTP surface of the media proxy service:
// sprite generation, cache lookup, invalidation, diagnostics and health
// endpoints.
package handlers
