package proxy

import (
	"fmt"
	"math"
	"path/filepath"
)

// keyScheme is the cache key version prefix. Bumping it invalidates every
// previously persisted entry when the key format or sheet layout changes.
const keyScheme = "sprite2"

// Normalized is a GenerationRequest after rounding. Cache keys and duration
// checks both read from here, so the determinism guarantee holds by
// construction rather than by scattered rounding calls.
type Normalized struct {
	SourcePath      string
	Basename        string
	Duration        float64 // rounded to 0.1s
	FPS             float64
	SourceStartTime float64 // rounded to 0.1s
	Interval        float64 // rounded to 0.01s; 0 when auto-selected later
	ThumbWidth      int
	ThumbHeight     int
	MaxPerSheet     int
}

// Normalize rounds the request parameters that feed the cache key. Two
// requests equal after rounding normalize identically and therefore share a
// key.
func Normalize(req GenerationRequest) Normalized {
	return Normalized{
		SourcePath:      req.SourcePath,
		Basename:        filepath.Base(req.SourcePath),
		Duration:        roundTo(req.Duration, 1),
		FPS:             req.FPS,
		SourceStartTime: roundTo(req.SourceStartTime, 1),
		Interval:        roundTo(req.IntervalSeconds, 2),
		ThumbWidth:      req.ThumbWidth,
		ThumbHeight:     req.ThumbHeight,
		MaxPerSheet:     req.MaxThumbnailsPerSheet,
	}
}

// Key derives the cache key. The basename is used instead of the full path so
// the same file imported from different locations (or a session temp copy)
// shares one entry. The interval passed in is the one actually used for
// planning, after auto-selection.
func (n Normalized) Key(interval float64) string {
	return fmt.Sprintf("%s_%s_%.1f_%.1f_%.2f_%dx%d",
		keyScheme,
		n.Basename,
		n.SourceStartTime,
		n.Duration,
		roundTo(interval, 2),
		n.ThumbWidth,
		n.ThumbHeight,
	)
}

// End returns the rounded end time of the clip.
func (n Normalized) End() float64 {
	return n.SourceStartTime + n.Duration
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow10(places)
	return math.Round(v*scale) / scale
}
