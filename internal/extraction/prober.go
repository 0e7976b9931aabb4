package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"media-proxy/internal/logging"
)

// probeResult mirrors the ffprobe JSON output fields we read.
type probeResult struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

type probeStream struct {
	CodecType    string `json:"codec_type"`
	AvgFrameRate string `json:"avg_frame_rate"`
	RFrameRate   string `json:"r_frame_rate"`
	NBFrames     string `json:"nb_frames"`
	Duration     string `json:"duration"`
}

type probeFormat struct {
	Duration string `json:"duration"`
}

// FFprobeProber probes sources with the ffprobe binary.
type FFprobeProber struct {
	binary string
}

// NewFFprobeProber creates a prober using the given binary, defaulting to
// "ffprobe" on PATH.
func NewFFprobeProber(binary string) *FFprobeProber {
	if strings.TrimSpace(binary) == "" {
		binary = "ffprobe"
	}
	return &FFprobeProber{binary: binary}
}

// Probe runs ffprobe against path and extracts duration, frame rate and
// frame count from the first video stream. Any failure is returned to the
// caller, who falls back to its own estimates; probe accuracy is a quality
// concern, not a correctness gate.
func (p *FFprobeProber) Probe(ctx context.Context, path string) (Info, error) {
	cmd := exec.CommandContext(ctx, p.binary,
		"-v", "error",
		"-show_format",
		"-show_streams",
		"-of", "json",
		"--", path,
	)

	output, err := cmd.Output()
	if err != nil {
		return Info{}, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	var result probeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return Info{}, fmt.Errorf("ffprobe parse %s: %w", path, err)
	}

	var video *probeStream
	for i := range result.Streams {
		if strings.EqualFold(result.Streams[i].CodecType, "video") {
			video = &result.Streams[i]
			break
		}
	}
	if video == nil {
		return Info{}, fmt.Errorf("ffprobe %s: no video stream", path)
	}

	info := Info{}

	info.Duration = parseFloat(video.Duration)
	if info.Duration == 0 {
		info.Duration = parseFloat(result.Format.Duration)
	}

	info.FPS = parseRational(video.AvgFrameRate)
	if info.FPS == 0 {
		info.FPS = parseRational(video.RFrameRate)
	}

	if n, err := strconv.ParseInt(strings.TrimSpace(video.NBFrames), 10, 64); err == nil {
		info.FrameCount = n
	} else if info.Duration > 0 && info.FPS > 0 {
		info.FrameCount = int64(info.Duration * info.FPS)
	}

	if info.Duration <= 0 || info.FPS <= 0 {
		return Info{}, fmt.Errorf("ffprobe %s: incomplete metadata (duration=%v fps=%v)", path, info.Duration, info.FPS)
	}

	logging.Debug("Probed %s: duration=%.3fs fps=%.3f frames=%d", path, info.Duration, info.FPS, info.FrameCount)
	return info, nil
}

func parseFloat(value string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return f
}

// parseRational parses ffprobe frame rates like "30000/1001" or "25".
func parseRational(value string) float64 {
	value = strings.TrimSpace(value)
	if value == "" || value == "0/0" {
		return 0
	}
	if num, den, ok := strings.Cut(value, "/"); ok {
		n := parseFloat(num)
		d := parseFloat(den)
		if d == 0 {
			return 0
		}
		return n / d
	}
	return parseFloat(value)
}
