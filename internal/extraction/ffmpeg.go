package extraction

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"media-proxy/internal/logging"
	"media-proxy/internal/metrics"
)

// jobRetention is how long a finished job stays queryable before Progress
// starts returning ErrJobNotFound. Pollers that miss the completion event
// still see the terminal progress within this window.
const jobRetention = 30 * time.Second

type job struct {
	id      string
	total   int
	current int
	stage   string
	done    chan JobEvent
	err     error
}

// FFmpegBackend runs extraction commands with the ffmpeg binary. Commands of
// one job run through a worker pool bounded at construction time; each
// command produces one sheet image.
type FFmpegBackend struct {
	binary  string
	workers int

	mu    sync.Mutex
	jobs  map[string]*job
	procs map[string]*exec.Cmd

	clock func() time.Time
}

// NewFFmpegBackend creates a backend using the given binary (default
// "ffmpeg" on PATH) and at most workers concurrent processes.
func NewFFmpegBackend(binary string, workers int) *FFmpegBackend {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	if workers < 1 {
		workers = 1
	}
	return &FFmpegBackend{
		binary:  binary,
		workers: workers,
		jobs:    make(map[string]*job),
		procs:   make(map[string]*exec.Cmd),
		clock:   time.Now,
	}
}

// SubmitJob queues the command batch and returns immediately.
func (b *FFmpegBackend) SubmitJob(ctx context.Context, commands []Command) (string, error) {
	if len(commands) == 0 {
		return "", fmt.Errorf("ffmpeg backend: empty command batch")
	}
	if _, err := exec.LookPath(b.binary); err != nil {
		return "", fmt.Errorf("ffmpeg backend: %w", err)
	}

	j := &job{
		id:    uuid.NewString(),
		total: len(commands),
		stage: "queued",
		done:  make(chan JobEvent, 1),
	}

	b.mu.Lock()
	b.jobs[j.id] = j
	b.mu.Unlock()

	logging.Debug("FFmpeg job %s: %d commands queued", j.id, len(commands))
	go b.run(ctx, j, commands)

	return j.id, nil
}

// Progress reports job progress, or ErrJobNotFound after cleanup.
func (b *FFmpegBackend) Progress(jobID string) (Progress, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	j, ok := b.jobs[jobID]
	if !ok {
		return Progress{}, ErrJobNotFound
	}
	return Progress{Current: j.current, Total: j.total, Stage: j.stage}, nil
}

// Done returns the job's completion channel.
func (b *FFmpegBackend) Done(jobID string) <-chan JobEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	if j, ok := b.jobs[jobID]; ok {
		return j.done
	}
	closed := make(chan JobEvent)
	close(closed)
	return closed
}

func (b *FFmpegBackend) run(ctx context.Context, j *job, commands []Command) {
	b.setStage(j, "extracting")

	sem := make(chan struct{}, b.workers)
	var wg sync.WaitGroup
	var firstErr error
	var errMu sync.Mutex

	for i := range commands {
		wg.Add(1)
		sem <- struct{}{}
		go func(cmd Command) {
			defer wg.Done()
			defer func() { <-sem }()

			start := b.clock()
			err := b.runCommand(ctx, j.id, cmd)
			metrics.BackendCommandDuration.Observe(time.Since(start).Seconds())

			errMu.Lock()
			if err != nil && firstErr == nil {
				firstErr = err
			}
			errMu.Unlock()

			b.mu.Lock()
			j.current++
			b.mu.Unlock()
		}(commands[i])
	}
	wg.Wait()

	b.mu.Lock()
	j.err = firstErr
	if firstErr != nil {
		j.stage = "failed"
	} else {
		j.stage = "completed"
	}
	b.mu.Unlock()

	if firstErr != nil {
		metrics.BackendJobsTotal.WithLabelValues("failed").Inc()
		logging.Error("FFmpeg job %s failed: %v", j.id, firstErr)
	} else {
		metrics.BackendJobsTotal.WithLabelValues("completed").Inc()
		logging.Debug("FFmpeg job %s completed", j.id)
	}

	j.done <- JobEvent{JobID: j.id, Err: firstErr}

	// Keep the job visible to pollers briefly, then let "not found" mean
	// "already cleaned up".
	time.AfterFunc(jobRetention, func() {
		b.mu.Lock()
		delete(b.jobs, j.id)
		b.mu.Unlock()
	})
}

func (b *FFmpegBackend) runCommand(ctx context.Context, jobID string, c Command) error {
	if len(c.FrameNumbers) == 0 {
		return fmt.Errorf("ffmpeg backend: command has no frames")
	}
	if err := os.MkdirAll(filepath.Dir(c.OutputPath), 0o755); err != nil {
		return fmt.Errorf("ffmpeg backend: output dir: %w", err)
	}

	args := BuildArgs(c)
	cmd := exec.CommandContext(ctx, b.binary, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	procKey := jobID + ":" + c.OutputPath
	b.mu.Lock()
	b.procs[procKey] = cmd
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.procs, procKey)
		b.mu.Unlock()
	}()

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg failed for %s: %w, stderr: %s", c.OutputPath, err, stderr.String())
	}

	if _, err := os.Stat(c.OutputPath); err != nil {
		return fmt.Errorf("ffmpeg produced no output at %s: %w", c.OutputPath, err)
	}
	return nil
}

// BuildArgs renders the ffmpeg arguments for one sheet: select the exact
// frame numbers, scale each to thumbnail size, tile into the planned grid.
func BuildArgs(c Command) []string {
	var sel strings.Builder
	for i, frame := range c.FrameNumbers {
		if i > 0 {
			sel.WriteByte('+')
		}
		fmt.Fprintf(&sel, `eq(n\,%d)`, frame)
	}

	filter := fmt.Sprintf("select='%s',scale=%d:%d,tile=%dx%d",
		sel.String(), c.ThumbWidth, c.ThumbHeight, c.TileCols, c.TileRows)

	return []string{
		"-y",
		"-i", c.SourcePath,
		"-vf", filter,
		"-fps_mode", "vfr",
		"-frames:v", "1",
		"-q:v", "3",
		c.OutputPath,
	}
}

// Cleanup kills all live extraction processes. Called on shutdown.
func (b *FFmpegBackend) Cleanup() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for key, cmd := range b.procs {
		if cmd.Process != nil {
			logging.Info("Killing extraction process: %s", key)
			if err := cmd.Process.Kill(); err != nil {
				logging.Warn("failed to kill extraction process %s: %v", key, err)
			}
		}
	}
}

func (b *FFmpegBackend) setStage(j *job, stage string) {
	b.mu.Lock()
	j.stage = stage
	b.mu.Unlock()
}
