// Package coordinator dispatches extraction jobs to the backend and
// arbitrates concurrent requests.
//
// Identical concurrent requests (same cache key) share a single backend job
// via singleflight. Completion is observed by racing the backend's event
// channel against periodic progress polling, under an adaptive timeout
// proportional to sheet count and clip duration.
package coordinator
