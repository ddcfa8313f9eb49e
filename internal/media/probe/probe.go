package probe

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// DefaultTimeout bounds a single ffprobe invocation.
const DefaultTimeout = 30 * time.Second

// Media is a local media file with its probed duration.
// DurationSeconds is 0 when the duration could not be determined.
type Media struct {
	Path            string
	DurationSeconds float64
}

// RunFunc executes ffprobe against path and returns its JSON output.
type RunFunc func(path string, timeout time.Duration) (string, error)

// Prober reads media durations. It never fails: anything it cannot read
// is reported as an unknown (zero) duration.
type Prober struct {
	log     *slog.Logger
	timeout time.Duration
	run     RunFunc
}

// New returns a Prober running ffprobe with the given per-file timeout.
// A nil run uses ffmpeg-go's ffprobe wrapper.
func New(log *slog.Logger, timeout time.Duration, run RunFunc) *Prober {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if run == nil {
		run = ffprobe
	}
	return &Prober{log: log, timeout: timeout, run: run}
}

// Probe returns path together with its duration.
func (p *Prober) Probe(ctx context.Context, path string) Media {
	return Media{Path: path, DurationSeconds: p.Duration(ctx, path)}
}

// Duration returns the playable duration of path in seconds, or 0.
func (p *Prober) Duration(ctx context.Context, path string) float64 {
	if err := ctx.Err(); err != nil {
		p.log.Warn("probe skipped", slog.String("path", path), slog.String("error", err.Error()))
		return 0
	}
	out, err := p.run(path, p.timeout)
	if err != nil {
		p.log.Warn("ffprobe failed, treating duration as unknown",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return 0
	}
	seconds, ok := parseDuration([]byte(out))
	if !ok {
		p.log.Warn("ffprobe returned no usable duration",
			slog.String("path", path))
		return 0
	}
	p.log.Debug("probed duration", slog.String("path", path), slog.Float64("seconds", seconds))
	return seconds
}

func ffprobe(path string, timeout time.Duration) (string, error) {
	return ffmpeg.ProbeWithTimeout(path, timeout, ffmpeg.KwArgs{"v": "error"})
}

type result struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Duration  string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// parseDuration prefers the container duration and falls back to the
// longest stream duration.
func parseDuration(raw []byte) (float64, bool) {
	var r result
	if err := json.Unmarshal(raw, &r); err != nil {
		return 0, false
	}
	if d := parseSeconds(r.Format.Duration); d > 0 {
		return d, true
	}
	longest := 0.0
	for _, s := range r.Streams {
		if d := parseSeconds(s.Duration); d > longest {
			longest = d
		}
	}
	return longest, longest > 0
}

func parseSeconds(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" || cleaned == "N/A" {
		return 0
	}
	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) || parsed < 0 {
		return 0
	}
	return parsed
}
