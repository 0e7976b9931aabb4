package generator

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"media-proxy/internal/coordinator"
	"media-proxy/internal/extraction"
	"media-proxy/internal/logging"
	"media-proxy/internal/metrics"
	"media-proxy/internal/proxy"
	"media-proxy/internal/proxycache"
	"media-proxy/internal/sprite"
)

// fallbackFPS is assumed when neither the caller nor the prober supplies a
// frame rate.
const fallbackFPS = 30.0

// unsupportedSchemes are source references that cannot be handed to an
// out-of-process backend. They fail immediately, before any work starts.
var unsupportedSchemes = []string{"blob:", "data:", "mem:"}

// Generator is the media proxy service: it plans sprite sheets, dispatches
// extraction, assembles results and maintains the cache. Construct one per
// process and share it; all methods are safe for concurrent use.
type Generator struct {
	prober    extraction.Prober
	coord     *coordinator.Coordinator
	cache     *proxycache.Store
	outputDir string
	clock     func() time.Time
}

// Stats is the diagnostics snapshot for the service.
type Stats struct {
	Size              int      `json:"size"`
	MaxSize           int      `json:"maxSize"`
	ActiveGenerations int      `json:"activeGenerations"`
	Keys              []string `json:"keys"`
}

// New creates a Generator writing sheet images under outputDir.
func New(prober extraction.Prober, coord *coordinator.Coordinator, cache *proxycache.Store, outputDir string) *Generator {
	return &Generator{
		prober:    prober,
		coord:     coord,
		cache:     cache,
		outputDir: outputDir,
		clock:     time.Now,
	}
}

// Generate produces the sprite sheets for one timeline clip. It is
// idempotent under identical rounded parameters: the second call is a cache
// hit. Failures come back as a structured result, never an error, so the
// caller can fall back to a placeholder strip.
//
// Cancelling ctx stops waiting locally; a dispatched backend job keeps
// running for any other caller deduplicated onto it.
func (g *Generator) Generate(ctx context.Context, req proxy.GenerationRequest) proxy.GenerationResult {
	norm := proxy.Normalize(req)

	if err := validate(norm); err != nil {
		metrics.GenerationsTotal.WithLabelValues("rejected").Inc()
		return failure("", err)
	}

	plan, err := g.buildPlan(norm)
	if err != nil {
		metrics.GenerationsTotal.WithLabelValues("rejected").Inc()
		return failure("", fmt.Errorf("%w: %v", proxy.ErrMalformedPlan, err))
	}
	key := norm.Key(plan.Interval)

	if result, ok := g.cache.Get(ctx, key); ok {
		logging.Debug("Sprite cache hit: %s", key)
		return result
	}

	start := g.clock()
	metrics.GenerationsInFlight.Inc()
	defer metrics.GenerationsInFlight.Dec()

	// Probed metadata improves frame accuracy and bounds the strip to the
	// asset's true duration; on failure the caller's values stand.
	fps := norm.FPS
	trueEnd := norm.End()
	if info, probeErr := g.prober.Probe(ctx, norm.SourcePath); probeErr == nil {
		if info.FPS > 0 {
			fps = info.FPS
		}
		if info.Duration > 0 && info.Duration < trueEnd {
			trueEnd = info.Duration
		}
	} else {
		logging.Warn("Metadata probe failed for %s, using caller values: %v", norm.SourcePath, probeErr)
	}
	if fps <= 0 {
		fps = fallbackFPS
	}

	// Recompute frame numbers against the probed fps
	plan, err = g.buildPlanWithFPS(norm, fps)
	if err != nil {
		metrics.GenerationsTotal.WithLabelValues("rejected").Inc()
		return failure(key, fmt.Errorf("%w: %v", proxy.ErrMalformedPlan, err))
	}

	commands := g.buildCommands(norm, plan, key)

	if err := g.coord.Generate(ctx, key, commands, norm.Duration); err != nil {
		metrics.GenerationsTotal.WithLabelValues("failed").Inc()
		logging.Error("Generation failed for %s: %v", key, err)
		return failure(key, err)
	}

	result := assemble(norm, plan, commands, trueEnd, key)
	if !result.Success {
		metrics.GenerationsTotal.WithLabelValues("failed").Inc()
		return result
	}

	now := g.clock()
	g.cache.Put(ctx, key, proxy.CacheEntry{
		Result:             result,
		CreatedAt:          now,
		LastAccessedAt:     now,
		EstimatedSizeBytes: estimateSize(result.SpriteSheets),
		SourcePath:         norm.SourcePath,
	})

	metrics.GenerationsTotal.WithLabelValues("completed").Inc()
	metrics.GenerationDuration.Observe(now.Sub(start).Seconds())
	metrics.SheetsPerGeneration.Observe(float64(len(result.SpriteSheets)))

	logging.Info("Generated %d sheets for %s in %v", len(result.SpriteSheets), key, now.Sub(start))
	return result
}

// GetCached returns the cached result for a request without generating.
// The entry is validated before it is returned; a stale entry reads as a
// miss.
func (g *Generator) GetCached(ctx context.Context, req proxy.GenerationRequest) (proxy.GenerationResult, bool) {
	norm := proxy.Normalize(req)
	if err := validate(norm); err != nil {
		return proxy.GenerationResult{}, false
	}
	plan, err := g.buildPlan(norm)
	if err != nil {
		return proxy.GenerationResult{}, false
	}
	return g.cache.Get(ctx, norm.Key(plan.Interval))
}

// MediaInfo probes a source asset for its authoritative duration, frame rate
// and frame count. Unlike Generate it does not fall back to caller estimates;
// a probe failure is the caller's to handle.
func (g *Generator) MediaInfo(ctx context.Context, sourcePath string) (proxy.MediaInfo, error) {
	for _, scheme := range unsupportedSchemes {
		if strings.HasPrefix(sourcePath, scheme) {
			return proxy.MediaInfo{}, fmt.Errorf("%w: %s", proxy.ErrUnsupportedSource, scheme)
		}
	}
	info, err := g.prober.Probe(ctx, sourcePath)
	if err != nil {
		return proxy.MediaInfo{}, err
	}
	return proxy.MediaInfo{
		Duration:   info.Duration,
		FPS:        info.FPS,
		FrameCount: info.FrameCount,
	}, nil
}

// Invalidate removes every cached result for the given source file.
func (g *Generator) Invalidate(ctx context.Context, sourcePath string) int {
	return g.cache.Invalidate(ctx, filepath.Base(sourcePath))
}

// ClearAll empties the cache, memory and snapshot both.
func (g *Generator) ClearAll(ctx context.Context) error {
	return g.cache.Clear(ctx)
}

// Stats returns the diagnostics snapshot.
func (g *Generator) Stats() Stats {
	return Stats{
		Size:              g.cache.Size(),
		MaxSize:           g.cache.MaxSize(),
		ActiveGenerations: g.coord.Active(),
		Keys:              g.cache.Keys(),
	}
}

func validate(norm proxy.Normalized) error {
	if norm.SourcePath == "" {
		return fmt.Errorf("source path is empty")
	}
	for _, scheme := range unsupportedSchemes {
		if strings.HasPrefix(norm.SourcePath, scheme) {
			return fmt.Errorf("%w: %s", proxy.ErrUnsupportedSource, scheme)
		}
	}
	if norm.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %v", norm.Duration)
	}
	if norm.ThumbWidth <= 0 || norm.ThumbHeight <= 0 {
		return fmt.Errorf("thumbnail dimensions must be positive, got %dx%d", norm.ThumbWidth, norm.ThumbHeight)
	}
	return nil
}

// buildPlan plans with the caller-supplied fps (or the fallback). Used for
// key derivation, where fps does not participate, and by GetCached, which
// must not block on a probe.
func (g *Generator) buildPlan(norm proxy.Normalized) (sprite.Plan, error) {
	fps := norm.FPS
	if fps <= 0 {
		fps = fallbackFPS
	}
	return g.buildPlanWithFPS(norm, fps)
}

func (g *Generator) buildPlanWithFPS(norm proxy.Normalized, fps float64) (sprite.Plan, error) {
	return sprite.BuildPlan(sprite.Params{
		Duration:        norm.Duration,
		FPS:             fps,
		SourceStartTime: norm.SourceStartTime,
		Interval:        norm.Interval,
		ThumbWidth:      norm.ThumbWidth,
		ThumbHeight:     norm.ThumbHeight,
		MaxPerSheet:     norm.MaxPerSheet,
	})
}

func (g *Generator) buildCommands(norm proxy.Normalized, plan sprite.Plan, key string) []extraction.Command {
	commands := make([]extraction.Command, 0, len(plan.Sheets))
	for _, sheet := range plan.Sheets {
		name := fmt.Sprintf("%s_sheet_%d.jpg", sanitizeFilename(key), sheet.Index)
		commands = append(commands, extraction.Command{
			SourcePath:   norm.SourcePath,
			FrameNumbers: sheet.FrameNumbers,
			TileCols:     sheet.Cols,
			TileRows:     sheet.Rows,
			ThumbWidth:   norm.ThumbWidth,
			ThumbHeight:  norm.ThumbHeight,
			OutputPath:   filepath.Join(g.outputDir, name),
		})
	}
	return commands
}

func failure(key string, err error) proxy.GenerationResult {
	return proxy.GenerationResult{
		Success:  false,
		Error:    err.Error(),
		CacheKey: key,
	}
}

// estimateSize approximates the decoded footprint of the sheets. It feeds
// the eviction score, so consistency matters more than accuracy.
func estimateSize(sheets []proxy.SpriteSheet) int64 {
	var total int64
	for _, sheet := range sheets {
		total += int64(sheet.Width) * int64(sheet.Height) * 3
	}
	return total
}

// sanitizeFilename keeps cache keys usable as file names.
func sanitizeFilename(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, key)
}
