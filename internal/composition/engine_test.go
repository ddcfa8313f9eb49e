package composition

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"split-compositor/internal/layout"
	"split-compositor/internal/media/probe"
	"split-compositor/internal/plan"
	"split-compositor/internal/storage"
	"split-compositor/internal/transcode"
)

type fakeFetcher struct {
	mu     sync.Mutex
	assets map[string][]byte
	errs   map[string]error
	calls  int
}

func (f *fakeFetcher) Fetch(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err, ok := f.errs[key]; ok {
		return nil, err
	}
	data, ok := f.assets[key]
	if !ok {
		return nil, &storage.FetchError{Kind: storage.NotFound, Key: key, Err: os.ErrNotExist}
	}
	return data, nil
}

// fakeProber returns durations keyed by the content of the probed file.
type fakeProber struct {
	durations map[string]float64
}

func (p *fakeProber) Probe(_ context.Context, path string) probe.Media {
	data, err := os.ReadFile(path)
	if err != nil {
		return probe.Media{Path: path}
	}
	return probe.Media{Path: path, DurationSeconds: p.durations[string(data)]}
}

type fakeTranscoder struct {
	unavailable error
	err         error
	output      []byte
	plan        plan.Plan
	workDir     string
	called      bool
}

func (f *fakeTranscoder) CheckAvailable() error { return f.unavailable }

func (f *fakeTranscoder) Execute(_ context.Context, p plan.Plan, workDir string, progress transcode.ProgressFunc) ([]byte, error) {
	f.called = true
	f.plan = p
	f.workDir = workDir
	if _, err := os.Stat(workDir); err != nil {
		return nil, fmt.Errorf("workspace missing during render: %w", err)
	}
	if f.err != nil {
		return nil, f.err
	}
	if progress != nil {
		progress(50)
		progress(100)
	}
	return f.output, nil
}

func newTestEngine(t *testing.T, f *fakeFetcher, tr *fakeTranscoder) (*Engine, string) {
	t.Helper()
	scratch := t.TempDir()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	prober := &fakeProber{durations: map[string]float64{"webcam": 30, "gameplay": 90}}
	return NewEngine(f, prober, tr, log, Options{ScratchDir: scratch}), scratch
}

func defaultFetcher() *fakeFetcher {
	return &fakeFetcher{assets: map[string][]byte{
		"uploads/webcam.mp4":   []byte("webcam"),
		"uploads/gameplay.mp4": []byte("gameplay"),
	}}
}

func exampleRequest() Request {
	return Request{
		RunID:        "run-42",
		PrimaryKey:   "uploads/webcam.mp4",
		SecondaryKey: "uploads/gameplay.mp4",
		Layout:       layout.Config{Orientation: layout.Vertical, TopRatio: 50, BottomRatio: 50, Gap: 4},
	}
}

func assertScratchEmpty(t *testing.T, scratch string) {
	t.Helper()
	entries, err := os.ReadDir(scratch)
	if err != nil {
		t.Fatalf("read scratch: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("scratch dir not cleaned, found %d entries", len(entries))
	}
}

func TestCompose_success(t *testing.T) {
	tr := &fakeTranscoder{output: []byte("composite")}
	e, scratch := newTestEngine(t, defaultFetcher(), tr)

	var stages []Stage
	var last int
	res, err := e.Compose(context.Background(), exampleRequest(), func(s Stage, pct int) {
		stages = append(stages, s)
		if pct < last {
			t.Errorf("progress went backwards: %d after %d", pct, last)
		}
		last = pct
	})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if string(res.Bytes) != "composite" || res.SizeInBytes != 9 {
		t.Errorf("result = %q (%d)", res.Bytes, res.SizeInBytes)
	}
	if res.ContentType != "video/mp4" {
		t.Errorf("content type = %q", res.ContentType)
	}

	p := tr.plan
	if p.OutputDurationSeconds != 90 || p.AudioSource != layout.Secondary {
		t.Errorf("plan duration = %v audio = %v", p.OutputDurationSeconds, p.AudioSource)
	}
	if p.Placements[0].Region.Height != 958 || p.Placements[1].Region.Height != 958 {
		t.Errorf("region heights = %d, %d", p.Placements[0].Region.Height, p.Placements[1].Region.Height)
	}
	if filepath.Dir(p.Inputs[0]) != tr.workDir {
		t.Errorf("inputs should live in the workspace: %s", p.Inputs[0])
	}
	if last != 90 || stages[0] != StageFetching {
		t.Errorf("stages = %v, last progress = %d", stages, last)
	}
	assertScratchEmpty(t, scratch)
}

func TestCompose_tool_unavailable_before_io(t *testing.T) {
	f := defaultFetcher()
	tr := &fakeTranscoder{unavailable: fmt.Errorf("%w: ffmpeg", transcode.ErrToolUnavailable)}
	e, scratch := newTestEngine(t, f, tr)

	_, err := e.Compose(context.Background(), exampleRequest(), nil)
	if Classify(err) != KindToolUnavailable {
		t.Errorf("kind = %s (%v)", Classify(err), err)
	}
	if f.calls != 0 {
		t.Errorf("fetcher called %d times before tool check", f.calls)
	}
	assertScratchEmpty(t, scratch)
}

func TestCompose_fetch_failure_cleans_up(t *testing.T) {
	f := defaultFetcher()
	f.errs = map[string]error{"uploads/gameplay.mp4": &storage.FetchError{
		Kind: storage.TransientIO, Key: "uploads/gameplay.mp4", Err: errors.New("connection reset"),
	}}
	tr := &fakeTranscoder{output: []byte("x")}
	e, scratch := newTestEngine(t, f, tr)

	_, err := e.Compose(context.Background(), exampleRequest(), nil)
	if Classify(err) != KindFetchTransient {
		t.Errorf("kind = %s (%v)", Classify(err), err)
	}
	var rerr *RunError
	if !errors.As(err, &rerr) || rerr.RunID != "run-42" || rerr.Stage != string(StageFetching) {
		t.Errorf("expected RunError for run-42 at fetching, got %v", err)
	}
	if tr.called {
		t.Error("transcoder should not run after a failed fetch")
	}
	assertScratchEmpty(t, scratch)
}

func TestCompose_missing_asset_is_not_found(t *testing.T) {
	req := exampleRequest()
	req.SecondaryKey = "uploads/nope.mp4"
	e, scratch := newTestEngine(t, defaultFetcher(), &fakeTranscoder{output: []byte("x")})

	_, err := e.Compose(context.Background(), req, nil)
	kind := Classify(err)
	if kind != KindFetchNotFound || !kind.ClientError() {
		t.Errorf("kind = %s (%v)", kind, err)
	}
	assertScratchEmpty(t, scratch)
}

func TestCompose_process_error_cleans_up(t *testing.T) {
	tr := &fakeTranscoder{err: &transcode.ProcessError{Kind: transcode.Failed, ExitCode: 1, Diagnostic: "Invalid argument"}}
	e, scratch := newTestEngine(t, defaultFetcher(), tr)

	_, err := e.Compose(context.Background(), exampleRequest(), nil)
	if Classify(err) != KindProcessFailed {
		t.Errorf("kind = %s (%v)", Classify(err), err)
	}
	var perr *transcode.ProcessError
	if !errors.As(err, &perr) || perr.Diagnostic != "Invalid argument" {
		t.Errorf("process error not preserved: %v", err)
	}
	assertScratchEmpty(t, scratch)
}

func TestCompose_timeout_kind(t *testing.T) {
	tr := &fakeTranscoder{err: &transcode.ProcessError{Kind: transcode.TimedOut}}
	e, scratch := newTestEngine(t, defaultFetcher(), tr)

	_, err := e.Compose(context.Background(), exampleRequest(), nil)
	if kind := Classify(err); kind != KindProcessTimedOut || kind.ClientError() {
		t.Errorf("kind = %s", kind)
	}
	assertScratchEmpty(t, scratch)
}

func TestCompose_invalid_layout(t *testing.T) {
	req := exampleRequest()
	req.Layout.TopRatio = 150
	f := defaultFetcher()
	e, _ := newTestEngine(t, f, &fakeTranscoder{})

	_, err := e.Compose(context.Background(), req, nil)
	if Classify(err) != KindInvalidPlan {
		t.Errorf("kind = %s (%v)", Classify(err), err)
	}
	if f.calls != 0 {
		t.Error("invalid layout should fail before fetching")
	}
}

func TestCompose_workspace_is_exclusive(t *testing.T) {
	e, scratch := newTestEngine(t, defaultFetcher(), &fakeTranscoder{output: []byte("x")})
	held := filepath.Join(scratch, "run-run-42")
	if err := os.Mkdir(held, 0o700); err != nil {
		t.Fatal(err)
	}

	_, err := e.Compose(context.Background(), exampleRequest(), nil)
	if err == nil {
		t.Fatal("expected error when workspace already exists")
	}
	if Classify(err) != KindInternal {
		t.Errorf("kind = %s", Classify(err))
	}
	if _, err := os.Stat(held); err != nil {
		t.Error("another run's workspace must not be removed")
	}
}

func TestCompose_generates_run_id(t *testing.T) {
	tr := &fakeTranscoder{output: []byte("x")}
	e, scratch := newTestEngine(t, defaultFetcher(), tr)
	req := exampleRequest()
	req.RunID = ""

	if _, err := e.Compose(context.Background(), req, nil); err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if filepath.Base(tr.workDir) == "run-" {
		t.Error("expected a generated run id in the workspace name")
	}
	assertScratchEmpty(t, scratch)
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want ErrorKind
	}{
		{fmt.Errorf("x: %w", plan.ErrInvalidPlan), KindInvalidPlan},
		{fmt.Errorf("x: %w", layout.ErrInvalidCanvas), KindInvalidPlan},
		{&transcode.ProcessError{Kind: transcode.Killed}, KindProcessKilled},
		{&RunError{RunID: "r", Stage: "s", Err: transcode.ErrToolUnavailable}, KindToolUnavailable},
		{errors.New("boom"), KindInternal},
	}
	for _, tc := range cases {
		if got := Classify(tc.err); got != tc.want {
			t.Errorf("Classify(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
	if Classify(nil) != "" {
		t.Error("Classify(nil) should be empty")
	}
	if !KindFetchTransient.Retryable() || KindProcessTimedOut.Retryable() {
		t.Error("only transient fetch failures are retryable")
	}
}
