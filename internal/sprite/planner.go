package sprite

import (
	"fmt"
	"math"
)

// DefaultMaxThumbnails is the hard ceiling on thumbnails per asset. It bounds
// memory regardless of clip duration; the interval is stretched when a clip
// would otherwise exceed it.
const DefaultMaxThumbnails = 5000

// DefaultMaxPerSheet is the default maximum thumbnail count for one sheet.
const DefaultMaxPerSheet = 100

// Params describes one planning request.
type Params struct {
	Duration        float64 // seconds, > 0
	FPS             float64 // frames per second, > 0
	SourceStartTime float64 // seconds into the source where the clip begins
	Interval        float64 // seconds between thumbnails; 0 selects automatically
	ThumbWidth      int
	ThumbHeight     int
	MaxPerSheet     int // 0 uses DefaultMaxPerSheet
	MaxThumbnails   int // 0 uses DefaultMaxThumbnails
}

// SheetPlan describes a single sprite sheet to be extracted.
type SheetPlan struct {
	Index          int
	StartThumbnail int     // global index of the first thumbnail on this sheet
	FrameNumbers   []int64 // exact source frame numbers, in raster order
	Cols           int
	Rows           int
	Width          int
	Height         int
}

// Plan is the full extraction layout for one asset.
type Plan struct {
	Interval        float64
	TotalThumbnails int
	Sheets          []SheetPlan
}

// IntervalFor picks the sampling interval for a clip of the given duration.
// Short clips sample densely, long ones sparsely; the brackets are monotonic
// so a longer clip never samples more often than a shorter one.
func IntervalFor(duration float64) float64 {
	switch {
	case duration <= 2:
		return 0.1
	case duration <= 10:
		return 0.25
	case duration <= 120:
		return 0.5
	case duration <= 600:
		return 1
	case duration <= 1800:
		return 2
	case duration <= 3600:
		return 5
	default:
		return 10
	}
}

// BuildPlan computes the thumbnail timestamps, exact frame numbers and sheet
// layouts for one asset.
//
// Thumbnail i (0-based, global across sheets) sits at
// sourceStartTime + i*interval, and its frame number is
// floor(timestamp * fps). Extraction later requests these exact frame
// numbers rather than re-sampling at a synthetic frame rate, which avoids
// drift and duplicated or missing frames at sheet boundaries.
//
// The thumbnail count is ceil(duration/interval), so every timestamp lies
// strictly inside the clip: a 10s clip at 1s interval yields thumbnails at
// t=0..9, not an eleventh at t=10.
//
// Trailing sheets are dropped when they start at or beyond the clip end, or
// when they cover less than half an interval of content; a plan where every
// sheet is dropped is an error.
func BuildPlan(p Params) (Plan, error) {
	if p.Duration <= 0 {
		return Plan{}, fmt.Errorf("plan: duration must be positive, got %v", p.Duration)
	}
	if p.FPS <= 0 {
		return Plan{}, fmt.Errorf("plan: fps must be positive, got %v", p.FPS)
	}
	if p.ThumbWidth <= 0 || p.ThumbHeight <= 0 {
		return Plan{}, fmt.Errorf("plan: thumbnail dimensions must be positive, got %dx%d", p.ThumbWidth, p.ThumbHeight)
	}

	maxPerSheet := p.MaxPerSheet
	if maxPerSheet <= 0 {
		maxPerSheet = DefaultMaxPerSheet
	}
	maxTotal := p.MaxThumbnails
	if maxTotal <= 0 {
		maxTotal = DefaultMaxThumbnails
	}

	interval := p.Interval
	if interval <= 0 {
		interval = IntervalFor(p.Duration)
	}

	total := int(math.Ceil(p.Duration / interval))
	if total < 1 {
		total = 1
	}
	if total > maxTotal {
		// Stretch the interval so the ceiling holds for any duration.
		interval = p.Duration / float64(maxTotal)
		total = maxTotal
	}

	end := p.SourceStartTime + p.Duration

	var sheets []SheetPlan
	for start := 0; start < total; start += maxPerSheet {
		count := total - start
		if count > maxPerSheet {
			count = maxPerSheet
		}

		sheetStart := p.SourceStartTime + float64(start)*interval
		if sheetStart >= end {
			// No content left for this sheet
			continue
		}
		span := float64(count-1) * interval
		if start > 0 && span < interval/2 {
			// A trailing sheet covering almost nothing is not worth a
			// full extraction pass.
			continue
		}

		frames := make([]int64, 0, count)
		for i := 0; i < count; i++ {
			ts := p.SourceStartTime + float64(start+i)*interval
			frames = append(frames, int64(math.Floor(ts*p.FPS)))
		}

		cols, rows := PackGrid(len(frames))
		sheets = append(sheets, SheetPlan{
			Index:          len(sheets),
			StartThumbnail: start,
			FrameNumbers:   frames,
			Cols:           cols,
			Rows:           rows,
			Width:          cols * p.ThumbWidth,
			Height:         rows * p.ThumbHeight,
		})
	}

	if len(sheets) == 0 {
		return Plan{}, fmt.Errorf("plan: no valid sheets for duration %vs at interval %vs", p.Duration, interval)
	}

	return Plan{
		Interval:        interval,
		TotalThumbnails: total,
		Sheets:          sheets,
	}, nil
}
