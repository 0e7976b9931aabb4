package workers

import (
	"runtime"
	"testing"
)

func TestCount(t *testing.T) {
	t.Setenv("EXTRACTION_WORKERS", "")
	available := runtime.GOMAXPROCS(0)

	if got := Count(1.0, 0); got != available {
		t.Errorf("Count(1.0, 0) = %d, want %d", got, available)
	}
	if got := Count(2.0, 0); got != available*2 {
		t.Errorf("Count(2.0, 0) = %d, want %d", got, available*2)
	}
	if got := Count(1.0, 1); got != 1 {
		t.Errorf("Count(1.0, 1) = %d, want 1 (limit)", got)
	}
	// Multiplier rounding down never drops below one worker
	if got := Count(0.001, 0); got != 1 {
		t.Errorf("Count(0.001, 0) = %d, want 1", got)
	}
}

func TestCountEnvOverride(t *testing.T) {
	t.Setenv("EXTRACTION_WORKERS", "3")
	if got := Count(1.0, 0); got != 3 {
		t.Errorf("Count with override = %d, want 3", got)
	}
	if got := Count(1.0, 2); got != 2 {
		t.Errorf("Count with override above limit = %d, want 2", got)
	}

	t.Setenv("EXTRACTION_WORKERS", "not-a-number")
	if got := Count(1.0, 0); got != runtime.GOMAXPROCS(0) {
		t.Errorf("Count with bad override = %d, want %d", got, runtime.GOMAXPROCS(0))
	}
}
