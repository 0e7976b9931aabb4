package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"media-proxy/internal/extraction"
	"media-proxy/internal/logging"
	"media-proxy/internal/proxy"
)

// DefaultPollInterval is how often job progress is polled as a fallback to
// the completion event.
const DefaultPollInterval = time.Second

// TimeoutConfig computes the adaptive generation timeout: long and complex
// assets get proportionally more time, bounded by Max.
type TimeoutConfig struct {
	Base     time.Duration // floor for any job
	PerSheet time.Duration // added per sheet, scaled by the duration factor
	Max      time.Duration // hard cap
}

// DefaultTimeouts returns the default adaptive timeout configuration.
func DefaultTimeouts() TimeoutConfig {
	return TimeoutConfig{
		Base:     30 * time.Second,
		PerSheet: 20 * time.Second,
		Max:      10 * time.Minute,
	}
}

// For computes the timeout for a job of sheetCount sheets over a clip of the
// given duration in seconds.
func (t TimeoutConfig) For(sheetCount int, duration float64) time.Duration {
	factor := duration / 120
	if factor < 1 {
		factor = 1
	}
	timeout := t.Base + time.Duration(float64(t.PerSheet)*float64(sheetCount)*factor)
	if timeout > t.Max {
		timeout = t.Max
	}
	return timeout
}

// Coordinator dispatches extraction jobs and deduplicates concurrent
// requests for the same cache key: at most one generation runs per key, and
// every concurrent caller observes its single result.
type Coordinator struct {
	backend      extraction.Backend
	timeouts     TimeoutConfig
	pollInterval time.Duration

	sf singleflight.Group

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// New creates a Coordinator over the given backend.
func New(backend extraction.Backend, timeouts TimeoutConfig, pollInterval time.Duration) *Coordinator {
	if timeouts == (TimeoutConfig{}) {
		timeouts = DefaultTimeouts()
	}
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Coordinator{
		backend:      backend,
		timeouts:     timeouts,
		pollInterval: pollInterval,
		inFlight:     make(map[string]struct{}),
	}
}

// Generate submits the command batch for key and blocks until the job
// completes, fails, or times out. Concurrent calls with the same key share
// one submission. Cancelling ctx stops waiting locally; it does not abort
// the backend job, which other callers may still be waiting on.
func (c *Coordinator) Generate(ctx context.Context, key string, commands []extraction.Command, duration float64) error {
	ch := c.sf.DoChan(key, func() (interface{}, error) {
		c.mu.Lock()
		c.inFlight[key] = struct{}{}
		c.mu.Unlock()

		defer func() {
			c.mu.Lock()
			delete(c.inFlight, key)
			c.mu.Unlock()
		}()

		return nil, c.execute(key, commands, duration)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// execute runs one job to completion under the adaptive timeout. The
// timeout lives here, inside the deduplicated call, so it governs the job
// itself rather than any individual waiter.
func (c *Coordinator) execute(key string, commands []extraction.Command, duration float64) error {
	timeout := c.timeouts.For(len(commands), duration)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	jobID, err := c.backend.SubmitJob(ctx, commands)
	if err != nil {
		return fmt.Errorf("%w: %v", proxy.ErrBackendUnavailable, err)
	}

	logging.Debug("Dispatched job %s for %s (%d sheets, timeout %v)", jobID, key, len(commands), timeout)

	// Completion is observed through two independent signals racing: the
	// backend's event channel and periodic progress polling. The poll path
	// keeps an unreliable event channel from wedging a generation.
	done := c.backend.Done(jobID)
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-done:
			if !ok {
				// Channel closed without an event: job already gone
				return nil
			}
			if event.Err != nil {
				return fmt.Errorf("extraction job %s: %w", jobID, event.Err)
			}
			return nil

		case <-ticker.C:
			progress, err := c.backend.Progress(jobID)
			if errors.Is(err, extraction.ErrJobNotFound) {
				// Already cleaned up means already completed
				return nil
			}
			if err != nil {
				logging.Warn("Progress poll failed for job %s: %v", jobID, err)
				continue
			}
			if progress.Total > 0 && progress.Current >= progress.Total {
				if progress.Stage == "failed" {
					return fmt.Errorf("extraction job %s reported failure", jobID)
				}
				return nil
			}

		case <-ctx.Done():
			logging.Warn("Job %s for %s timed out after %v", jobID, key, timeout)
			return fmt.Errorf("%w after %v", proxy.ErrGenerationTimeout, timeout)
		}
	}
}

// IsInFlight reports whether a generation for key is currently running.
func (c *Coordinator) IsInFlight(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inFlight[key]
	return ok
}

// Active returns the number of generations currently running.
func (c *Coordinator) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inFlight)
}
