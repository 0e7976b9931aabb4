package proxy

import (
	"strings"
	"testing"
)

func TestNormalizeRounding(t *testing.T) {
	req := GenerationRequest{
		SourcePath:      "/media/imports/clip.mp4",
		Duration:        10.04,
		FPS:             29.97,
		SourceStartTime: 1.26,
		ThumbWidth:      160,
		ThumbHeight:     90,
		IntervalSeconds: 0.333,
	}

	norm := Normalize(req)

	if norm.Duration != 10.0 {
		t.Errorf("Duration = %v, want 10.0", norm.Duration)
	}
	if norm.SourceStartTime != 1.3 {
		t.Errorf("SourceStartTime = %v, want 1.3", norm.SourceStartTime)
	}
	if norm.Interval != 0.33 {
		t.Errorf("Interval = %v, want 0.33", norm.Interval)
	}
	if norm.Basename != "clip.mp4" {
		t.Errorf("Basename = %q, want %q", norm.Basename, "clip.mp4")
	}
}

func TestKeyDeterminism(t *testing.T) {
	// Requests equal after rounding must share a key.
	a := GenerationRequest{
		SourcePath:      "/media/clip.mp4",
		Duration:        10.02,
		FPS:             30,
		SourceStartTime: 0.01,
		ThumbWidth:      160,
		ThumbHeight:     90,
	}
	b := a
	b.Duration = 9.98
	b.SourceStartTime = 0.04

	keyA := Normalize(a).Key(0.5)
	keyB := Normalize(b).Key(0.5)
	if keyA != keyB {
		t.Errorf("keys differ after equal rounding: %q vs %q", keyA, keyB)
	}
}

func TestKeySharedAcrossDirectories(t *testing.T) {
	// The same file imported from a different location (or a session temp
	// path) shares a cache entry.
	a := Normalize(GenerationRequest{SourcePath: "/media/clip.mp4", Duration: 10, ThumbWidth: 160, ThumbHeight: 90})
	b := Normalize(GenerationRequest{SourcePath: "/tmp/session-42/clip.mp4", Duration: 10, ThumbWidth: 160, ThumbHeight: 90})

	if a.Key(0.5) != b.Key(0.5) {
		t.Errorf("keys differ across directories: %q vs %q", a.Key(0.5), b.Key(0.5))
	}
}

func TestKeyDistinguishesParameters(t *testing.T) {
	base := GenerationRequest{
		SourcePath:  "/media/clip.mp4",
		Duration:    10,
		ThumbWidth:  160,
		ThumbHeight: 90,
	}

	tests := []struct {
		name   string
		mutate func(*GenerationRequest)
	}{
		{"different file", func(r *GenerationRequest) { r.SourcePath = "/media/other.mp4" }},
		{"different duration", func(r *GenerationRequest) { r.Duration = 20 }},
		{"different start", func(r *GenerationRequest) { r.SourceStartTime = 5 }},
		{"different width", func(r *GenerationRequest) { r.ThumbWidth = 320 }},
		{"different height", func(r *GenerationRequest) { r.ThumbHeight = 180 }},
	}

	baseKey := Normalize(base).Key(0.5)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base
			tt.mutate(&req)
			if key := Normalize(req).Key(0.5); key == baseKey {
				t.Errorf("key did not change: %q", key)
			}
		})
	}
}

func TestKeyCarriesVersionPrefix(t *testing.T) {
	key := Normalize(GenerationRequest{SourcePath: "clip.mp4", Duration: 1, ThumbWidth: 10, ThumbHeight: 10}).Key(0.1)
	if !strings.HasPrefix(key, keyScheme+"_") {
		t.Errorf("key %q missing version prefix %q", key, keyScheme)
	}
}

func TestKeyReflectsInterval(t *testing.T) {
	norm := Normalize(GenerationRequest{SourcePath: "clip.mp4", Duration: 10, ThumbWidth: 160, ThumbHeight: 90})
	if norm.Key(0.5) == norm.Key(1.0) {
		t.Error("keys with different intervals collide")
	}
	// Interval rounding applies inside Key as well
	if norm.Key(0.501) != norm.Key(0.5) {
		t.Error("interval rounding not applied in Key")
	}
}

func TestEnd(t *testing.T) {
	norm := Normalize(GenerationRequest{SourcePath: "clip.mp4", Duration: 10.04, SourceStartTime: 2.0, ThumbWidth: 1, ThumbHeight: 1})
	if norm.End() != 12.0 {
		t.Errorf("End() = %v, want 12.0", norm.End())
	}
}
