package proxy

import "time"

// GenerationRequest describes one sprite strip generation for a timeline clip.
type GenerationRequest struct {
	SourcePath            string  `json:"sourcePath"`
	Duration              float64 `json:"duration"`        // seconds, > 0
	FPS                   float64 `json:"fps"`             // frames per second
	SourceStartTime       float64 `json:"sourceStartTime"` // seconds into the source
	ThumbWidth            int     `json:"thumbWidth"`
	ThumbHeight           int     `json:"thumbHeight"`
	MaxThumbnailsPerSheet int     `json:"maxThumbnailsPerSheet,omitempty"`
	IntervalSeconds       float64 `json:"intervalSeconds,omitempty"` // 0 selects automatically
}

// Thumbnail locates one sampled frame inside a sprite sheet.
type Thumbnail struct {
	ID          string  `json:"id"`
	Timestamp   float64 `json:"timestamp"` // seconds, within [start, start+duration]
	FrameNumber int64   `json:"frameNumber"`
	SheetIndex  int     `json:"sheetIndex"`
	X           int     `json:"x"`
	Y           int     `json:"y"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
}

// SpriteSheet is one generated tile image plus its addressing metadata. URL
// is an opaque locator resolved by the host environment (a file path for the
// ffmpeg backend).
type SpriteSheet struct {
	ID                  string      `json:"id"`
	URL                 string      `json:"url"`
	Width               int         `json:"width"`
	Height              int         `json:"height"`
	ThumbnailsPerRow    int         `json:"thumbnailsPerRow"`
	ThumbnailsPerColumn int         `json:"thumbnailsPerColumn"`
	ThumbnailWidth      int         `json:"thumbnailWidth"`
	ThumbnailHeight     int         `json:"thumbnailHeight"`
	Thumbnails          []Thumbnail `json:"thumbnails"`
}

// GenerationResult is the outcome of a generation request. Failures carry an
// error message instead of raising, so callers can degrade to a placeholder.
// Results are immutable once stored.
type GenerationResult struct {
	Success      bool          `json:"success"`
	SpriteSheets []SpriteSheet `json:"spriteSheets,omitempty"`
	Error        string        `json:"error,omitempty"`
	CacheKey     string        `json:"cacheKey"`
}

// CacheEntry is the persisted wrapper around a successful result.
type CacheEntry struct {
	Result             GenerationResult `json:"result"`
	CreatedAt          time.Time        `json:"createdAt"`
	LastAccessedAt     time.Time        `json:"lastAccessedAt"`
	EstimatedSizeBytes int64            `json:"estimatedSizeBytes"`
	SourcePath         string           `json:"sourcePath"`
}

// MediaInfo is the probed ground truth for a source asset.
type MediaInfo struct {
	Duration   float64 `json:"duration"`
	FPS        float64 `json:"fps"`
	FrameCount int64   `json:"frameCount"`
}
