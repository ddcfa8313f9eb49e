package transcode

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"split-compositor/internal/layout"
	"split-compositor/internal/media/probe"
	"split-compositor/internal/plan"
)

// fakeFFmpeg writes an executable shell script standing in for ffmpeg.
// The script sees the same arguments ffmpeg would; the output path is last.
func fakeFFmpeg(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "ffmpeg")
	script := "#!/bin/sh\nfor last; do :; done\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake ffmpeg: %v", err)
	}
	return path
}

func newTestManager(binary string, timeout time.Duration) *Manager {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewManager(log, Options{Binary: binary, Timeout: timeout, ProgressInterval: time.Hour})
}

func testPlan(t *testing.T, primary, secondary float64) plan.Plan {
	t.Helper()
	cfg := layout.Config{}.WithDefaults()
	geom, err := layout.ComputeGeometry(cfg, 1080, 1920)
	if err != nil {
		t.Fatalf("ComputeGeometry: %v", err)
	}
	p, err := plan.Build(geom,
		probe.Media{Path: "primary.mp4", DurationSeconds: primary},
		probe.Media{Path: "secondary.mp4", DurationSeconds: secondary},
		cfg, plan.DefaultEncoding())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return p
}

type progressRecorder struct {
	mu   sync.Mutex
	seen []int
}

func (p *progressRecorder) record(pct int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen = append(p.seen, pct)
}

func TestExecute_completed(t *testing.T) {
	bin := fakeFFmpeg(t, `printf 'frame=  10 fps=0.0 time=00:00:15.00 bitrate=N/A speed=1x\r' >&2
printf 'composited' > "$last"`)
	m := newTestManager(bin, 10*time.Second)
	rec := &progressRecorder{}

	data, err := m.Execute(context.Background(), testPlan(t, 30, 30), t.TempDir(), rec.record)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if string(data) != "composited" {
		t.Errorf("data = %q", data)
	}
	if len(rec.seen) != 2 || rec.seen[0] != 50 || rec.seen[1] != 100 {
		t.Errorf("progress = %v, want [50 100]", rec.seen)
	}
}

func TestExecute_failed_carries_diagnostic(t *testing.T) {
	bin := fakeFFmpeg(t, `echo "[AVFilterGraph] No such filter: 'bogus'" >&2
exit 1`)
	m := newTestManager(bin, 10*time.Second)

	_, err := m.Execute(context.Background(), testPlan(t, 10, 20), t.TempDir(), nil)
	var perr *ProcessError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProcessError, got %v", err)
	}
	if perr.Kind != Failed || perr.ExitCode != 1 {
		t.Errorf("kind = %s exit = %d", perr.Kind, perr.ExitCode)
	}
	if perr.Diagnostic != "[AVFilterGraph] No such filter: 'bogus'" {
		t.Errorf("diagnostic = %q", perr.Diagnostic)
	}
}

func TestExecute_empty_output_fails(t *testing.T) {
	bin := fakeFFmpeg(t, `: > "$last"`)
	m := newTestManager(bin, 10*time.Second)

	_, err := m.Execute(context.Background(), testPlan(t, 10, 20), t.TempDir(), nil)
	var perr *ProcessError
	if !errors.As(err, &perr) || perr.Kind != Failed {
		t.Fatalf("expected failed ProcessError, got %v", err)
	}
	if !strings.Contains(perr.Error(), "empty output") {
		t.Errorf("error = %v", perr)
	}
}

func TestExecute_timeout_kills_process(t *testing.T) {
	bin := fakeFFmpeg(t, `exec sleep 30`)
	m := newTestManager(bin, 200*time.Millisecond)

	start := time.Now()
	_, err := m.Execute(context.Background(), testPlan(t, 10, 20), t.TempDir(), nil)
	var perr *ProcessError
	if !errors.As(err, &perr) || perr.Kind != TimedOut {
		t.Fatalf("expected timed out ProcessError, got %v", err)
	}
	if time.Since(start) > 10*time.Second {
		t.Errorf("timeout took %s", time.Since(start))
	}
}

func TestExecute_cancelled_is_killed(t *testing.T) {
	bin := fakeFFmpeg(t, `exec sleep 30`)
	m := newTestManager(bin, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)
	_, err := m.Execute(ctx, testPlan(t, 10, 20), t.TempDir(), nil)
	var perr *ProcessError
	if !errors.As(err, &perr) || perr.Kind != Killed {
		t.Fatalf("expected killed ProcessError, got %v", err)
	}
}

func TestExecute_rejects_degenerate_plan(t *testing.T) {
	bin := fakeFFmpeg(t, `printf 'x' > "$last"`)
	m := newTestManager(bin, time.Second)

	_, err := m.Execute(context.Background(), testPlan(t, 0, 0), t.TempDir(), nil)
	if !errors.Is(err, plan.ErrInvalidPlan) {
		t.Errorf("expected ErrInvalidPlan, got %v", err)
	}
}

func TestCheckAvailable(t *testing.T) {
	m := newTestManager(filepath.Join(t.TempDir(), "no-such-ffmpeg"), time.Second)
	if err := m.CheckAvailable(); !errors.Is(err, ErrToolUnavailable) {
		t.Errorf("expected ErrToolUnavailable, got %v", err)
	}

	ok := newTestManager(fakeFFmpeg(t, "exit 0"), time.Second)
	if err := ok.CheckAvailable(); err != nil {
		t.Errorf("CheckAvailable: %v", err)
	}
}
