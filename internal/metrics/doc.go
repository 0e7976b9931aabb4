// Package metrics defines the Prometheus collectors exposed by the media
// proxy service: HTTP request metrics, generation pipeline metrics, cache
// hit/miss/eviction counters, and extraction backend job metrics.
//
// All collectors are registered with the default registry via promauto and
// served by the /metrics endpoint.
package metrics
