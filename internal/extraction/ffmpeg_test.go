package extraction

import (
	"errors"
	"strings"
	"testing"
)

func TestBuildArgs(t *testing.T) {
	args := BuildArgs(Command{
		SourcePath:   "/media/clip.mp4",
		FrameNumbers: []int64{0, 30, 60},
		TileCols:     3,
		TileRows:     1,
		ThumbWidth:   160,
		ThumbHeight:  90,
		OutputPath:   "/cache/sheets/sheet_0.jpg",
	})

	joined := strings.Join(args, " ")

	wantFilter := `select='eq(n\,0)+eq(n\,30)+eq(n\,60)',scale=160:90,tile=3x1`
	found := false
	for i, arg := range args {
		if arg == "-vf" && i+1 < len(args) {
			if args[i+1] != wantFilter {
				t.Errorf("filter = %q, want %q", args[i+1], wantFilter)
			}
			found = true
		}
	}
	if !found {
		t.Fatalf("no -vf flag in args: %q", joined)
	}

	for _, want := range []string{"-y", "-fps_mode vfr", "-frames:v 1", "-i /media/clip.mp4"} {
		if !strings.Contains(joined, want) {
			t.Errorf("args missing %q: %q", want, joined)
		}
	}
	if args[len(args)-1] != "/cache/sheets/sheet_0.jpg" {
		t.Errorf("last arg = %q, want the output path", args[len(args)-1])
	}
}

func TestBuildArgsSingleFrame(t *testing.T) {
	args := BuildArgs(Command{
		SourcePath:   "clip.mp4",
		FrameNumbers: []int64{1500},
		TileCols:     1,
		TileRows:     1,
		ThumbWidth:   160,
		ThumbHeight:  90,
		OutputPath:   "out.jpg",
	})

	joined := strings.Join(args, " ")
	if !strings.Contains(joined, `select='eq(n\,1500)'`) {
		t.Errorf("single-frame select malformed: %q", joined)
	}
	if strings.Contains(joined, "+") {
		t.Errorf("single-frame select contains a join: %q", joined)
	}
}

func TestProgressUnknownJob(t *testing.T) {
	backend := NewFFmpegBackend("ffmpeg", 2)
	if _, err := backend.Progress("no-such-job"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("Progress for unknown job = %v, want ErrJobNotFound", err)
	}
}

func TestDoneUnknownJobReturnsClosedChannel(t *testing.T) {
	backend := NewFFmpegBackend("ffmpeg", 2)
	select {
	case _, ok := <-backend.Done("no-such-job"):
		if ok {
			t.Error("Done channel for unknown job delivered an event")
		}
	default:
		t.Error("Done channel for unknown job is not closed")
	}
}

func TestNewFFmpegBackendDefaults(t *testing.T) {
	backend := NewFFmpegBackend("  ", 0)
	if backend.binary != "ffmpeg" {
		t.Errorf("binary = %q, want ffmpeg", backend.binary)
	}
	if backend.workers != 1 {
		t.Errorf("workers = %d, want 1", backend.workers)
	}
}
