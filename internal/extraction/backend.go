package extraction

import (
	"context"
	"errors"
)

// ErrJobNotFound is returned by Progress for unknown or already cleaned-up
// job ids. Callers polling a job they submitted treat it as completion.
var ErrJobNotFound = errors.New("extraction: job not found")

// Command describes one sprite sheet extraction: select the exact frame
// numbers from the source, scale each to thumbnail size, and tile them into
// a cols x rows grid written to OutputPath.
type Command struct {
	SourcePath   string
	FrameNumbers []int64
	TileCols     int
	TileRows     int
	ThumbWidth   int
	ThumbHeight  int
	OutputPath   string
}

// Progress reports how far a job has advanced. Current counts completed
// commands; Total is the number submitted.
type Progress struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Stage   string `json:"stage"`
}

// JobEvent signals job completion. A nil Err means every command succeeded.
type JobEvent struct {
	JobID string
	Err   error
}

// Backend is the external extraction worker contract. Implementations run
// out of process; no shared mutable state crosses the boundary.
type Backend interface {
	// SubmitJob queues the full batch of commands as one background job and
	// returns its id without waiting for completion.
	SubmitJob(ctx context.Context, commands []Command) (string, error)

	// Progress reports the job's progress, or ErrJobNotFound once the job
	// has been cleaned up.
	Progress(jobID string) (Progress, error)

	// Done returns a channel that delivers the job's completion event. The
	// channel is buffered; the backend never blocks on it. Unknown job ids
	// yield an already-closed channel.
	Done(jobID string) <-chan JobEvent
}

// Prober obtains authoritative duration and frame rate for a source asset.
type Prober interface {
	Probe(ctx context.Context, path string) (Info, error)
}

// Info is probed source metadata.
type Info struct {
	Duration   float64
	FPS        float64
	FrameCount int64
}
