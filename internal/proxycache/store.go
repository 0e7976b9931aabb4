package proxycache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"media-proxy/internal/kvstore"
	"media-proxy/internal/logging"
	"media-proxy/internal/metrics"
	"media-proxy/internal/proxy"
)

const (
	// DefaultMaxEntries bounds the cache. Sprite sheets are large, so the
	// default is deliberately small.
	DefaultMaxEntries = 15

	// DefaultTTL is how long a persisted entry survives between sessions.
	DefaultTTL = 7 * 24 * time.Hour

	// evictionMargin is how far below the limit a batch eviction drives the
	// store, so consecutive inserts don't each trigger a scan.
	evictionMargin = 2

	// snapshotKey is the key-value slot holding the serialized cache. The
	// version suffix discards snapshots from incompatible layouts.
	snapshotKey = "media_proxy_sprite_cache_v2"
)

// Weights control the eviction score. Age and size are incompatible units;
// the defaults are tuned so age dominates for old small entries and size
// dominates for huge recent ones. Treat them as configuration, not physics.
type Weights struct {
	AgePerMinute float64
	SizePerByte  float64
}

// DefaultWeights returns the default eviction weights: one point per minute
// since last access, one point per MiB.
func DefaultWeights() Weights {
	return Weights{
		AgePerMinute: 1.0,
		SizePerByte:  1.0 / (1024 * 1024),
	}
}

// Validator reports whether a sheet locator is still reachable. The default
// treats locators as filesystem paths.
type Validator func(url string) bool

// Options configures a Store.
type Options struct {
	MaxEntries int
	TTL        time.Duration
	Weights    Weights
	Validate   Validator
	Clock      func() time.Time
}

// Store is the bounded in-memory cache of generation results plus its
// persisted snapshot. It exclusively owns CacheEntry lifetime.
type Store struct {
	mu      sync.Mutex
	entries map[string]*proxy.CacheEntry

	kv         kvstore.Store
	maxEntries int
	ttl        time.Duration
	weights    Weights
	validate   Validator
	clock      func() time.Time
}

// New creates a Store persisting snapshots to kv.
func New(kv kvstore.Store, opts Options) *Store {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Weights == (Weights{}) {
		opts.Weights = DefaultWeights()
	}
	if opts.Validate == nil {
		opts.Validate = func(url string) bool {
			_, err := os.Stat(url)
			return err == nil
		}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	return &Store{
		entries:    make(map[string]*proxy.CacheEntry),
		kv:         kv,
		maxEntries: opts.MaxEntries,
		ttl:        opts.TTL,
		weights:    opts.Weights,
		validate:   opts.Validate,
		clock:      opts.Clock,
	}
}

// Load restores the persisted snapshot, dropping entries past their TTL and
// entries whose sheet locators are no longer reachable. Stale pointers after
// a restart or cache relocation are expected, not an error.
func (s *Store) Load(ctx context.Context) (kept, dropped int, err error) {
	data, err := s.kv.Get(ctx, snapshotKey)
	if errors.Is(err, kvstore.ErrNotFound) {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, fmt.Errorf("cache load: %w", err)
	}

	var snapshot map[string]*proxy.CacheEntry
	if err := json.Unmarshal(data, &snapshot); err != nil {
		// A corrupt snapshot is discarded rather than trusted
		logging.Warn("Discarding unreadable cache snapshot: %v", err)
		return 0, 0, s.kv.Delete(ctx, snapshotKey)
	}

	now := s.clock()

	s.mu.Lock()
	for key, entry := range snapshot {
		if entry == nil || !entry.Result.Success {
			dropped++
			continue
		}
		if now.Sub(entry.CreatedAt) > s.ttl {
			logging.Debug("Cache entry expired: %s", key)
			dropped++
			continue
		}
		if !s.entryReachable(entry) {
			logging.Debug("Cache entry unreachable, dropping: %s", key)
			dropped++
			continue
		}
		s.entries[key] = entry
		kept++
	}
	s.updateGaugesLocked()
	s.mu.Unlock()

	if dropped > 0 {
		if err := s.persist(ctx); err != nil {
			logging.Warn("Failed to rewrite cache snapshot after load: %v", err)
		}
	}

	logging.Info("Sprite cache loaded: %d entries kept, %d dropped", kept, dropped)
	return kept, dropped, nil
}

func (s *Store) entryReachable(entry *proxy.CacheEntry) bool {
	for _, sheet := range entry.Result.SpriteSheets {
		if !s.validate(sheet.URL) {
			return false
		}
	}
	return true
}

// Get returns the cached result for key, updating its access time. The
// entry's sheets are re-validated so a deleted cache file is treated as a
// miss instead of handed to the renderer.
func (s *Store) Get(ctx context.Context, key string) (proxy.GenerationResult, bool) {
	s.mu.Lock()
	entry, ok := s.entries[key]
	if ok && !s.entryReachable(entry) {
		delete(s.entries, key)
		s.updateGaugesLocked()
		ok = false
		logging.Debug("Cache entry failed validation, dropped: %s", key)
	}
	if !ok {
		s.mu.Unlock()
		metrics.CacheMissesTotal.Inc()
		return proxy.GenerationResult{}, false
	}
	entry.LastAccessedAt = s.clock()
	result := entry.Result
	s.mu.Unlock()

	metrics.CacheHitsTotal.Inc()
	if err := s.persist(ctx); err != nil {
		logging.Warn("Failed to persist cache snapshot after access: %v", err)
	}
	return result, true
}

// Contains reports whether key is cached, without touching access time.
func (s *Store) Contains(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[key]
	return ok
}

// Put inserts a successful result and evicts down to the bound if needed.
// Insert and eviction happen under one lock acquisition so concurrent
// inserts cannot overshoot the limit.
func (s *Store) Put(ctx context.Context, key string, entry proxy.CacheEntry) {
	s.mu.Lock()
	s.entries[key] = &entry
	evicted := s.evictLocked()
	s.updateGaugesLocked()
	s.mu.Unlock()

	for _, victim := range evicted {
		logging.Debug("Evicted cache entry: %s", victim)
	}
	if err := s.persist(ctx); err != nil {
		logging.Warn("Failed to persist cache snapshot after insert: %v", err)
	}
}

// evictLocked removes the highest-scoring entries until the store is under
// maxEntries minus the margin. Batch eviction avoids re-scoring on every
// subsequent insert. Caller holds s.mu.
func (s *Store) evictLocked() []string {
	if len(s.entries) <= s.maxEntries {
		return nil
	}

	target := s.maxEntries - evictionMargin
	if target < 1 {
		target = 1
	}

	type scored struct {
		key   string
		score float64
	}
	now := s.clock()
	ranked := make([]scored, 0, len(s.entries))
	for key, entry := range s.entries {
		ranked = append(ranked, scored{key: key, score: s.score(entry, now)})
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	var evicted []string
	for _, candidate := range ranked {
		if len(s.entries) <= target {
			break
		}
		delete(s.entries, candidate.key)
		evicted = append(evicted, candidate.key)
		metrics.CacheEvictionsTotal.Inc()
	}
	return evicted
}

// score ranks an entry for eviction: older and larger scores higher.
func (s *Store) score(entry *proxy.CacheEntry, now time.Time) float64 {
	age := now.Sub(entry.LastAccessedAt).Minutes()
	if age < 0 {
		age = 0
	}
	return age*s.weights.AgePerMinute + float64(entry.EstimatedSizeBytes)*s.weights.SizePerByte
}

// Invalidate removes every entry whose key contains the source's basename.
// Used when a source file is removed from the project.
func (s *Store) Invalidate(ctx context.Context, basename string) int {
	if basename == "" {
		return 0
	}

	s.mu.Lock()
	var removed []string
	for key := range s.entries {
		if strings.Contains(key, basename) {
			delete(s.entries, key)
			removed = append(removed, key)
		}
	}
	s.updateGaugesLocked()
	s.mu.Unlock()

	if len(removed) > 0 {
		logging.Info("Invalidated %d cache entries for %s", len(removed), basename)
		if err := s.persist(ctx); err != nil {
			logging.Warn("Failed to persist cache snapshot after invalidation: %v", err)
		}
	}
	return len(removed)
}

// Clear empties the cache and its persisted snapshot.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.entries = make(map[string]*proxy.CacheEntry)
	s.updateGaugesLocked()
	s.mu.Unlock()

	if err := s.kv.Delete(ctx, snapshotKey); err != nil {
		return fmt.Errorf("cache clear: %w", err)
	}
	logging.Info("Sprite cache cleared")
	return nil
}

// Size returns the current entry count.
func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// MaxSize returns the configured bound.
func (s *Store) MaxSize() int {
	return s.maxEntries
}

// Keys returns the cached keys in no particular order.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	return keys
}

// persist writes the snapshot. Called outside s.mu so a slow store never
// blocks readers; the brief copy under lock keeps the snapshot consistent.
func (s *Store) persist(ctx context.Context) error {
	s.mu.Lock()
	snapshot := make(map[string]*proxy.CacheEntry, len(s.entries))
	for key, entry := range s.entries {
		copied := *entry
		snapshot[key] = &copied
	}
	s.mu.Unlock()

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("cache snapshot marshal: %w", err)
	}
	if err := s.kv.Set(ctx, snapshotKey, data); err != nil {
		return fmt.Errorf("cache snapshot write: %w", err)
	}
	return nil
}

func (s *Store) updateGaugesLocked() {
	metrics.CacheEntries.Set(float64(len(s.entries)))
	var total int64
	for _, entry := range s.entries {
		total += entry.EstimatedSizeBytes
	}
	metrics.CacheSizeBytes.Set(float64(total))
}
