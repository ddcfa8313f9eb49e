package transcode

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"split-compositor/internal/plan"
)

// Defaults for Options fields left at zero.
const (
	DefaultBinary           = "ffmpeg"
	DefaultTimeout          = 15 * time.Minute
	DefaultProgressInterval = 10 * time.Second
	DefaultDiagnosticLines  = 20
	waitDelay               = 5 * time.Second
)

// State is a step of a transcoding process's lifecycle.
type State string

const (
	StateIdle      State = "idle"
	StateSpawned   State = "spawned"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateTimedOut  State = "timed_out"
	StateKilled    State = "killed"
)

// Options configures a Manager.
type Options struct {
	Binary           string
	Timeout          time.Duration
	ProgressInterval time.Duration
	DiagnosticLines  int
}

// Manager runs ffmpeg for composition plans. It holds no per-run state and
// is safe for concurrent use.
type Manager struct {
	log  *slog.Logger
	opts Options
	now  func() time.Time
}

// NewManager returns a Manager with zero options replaced by defaults.
func NewManager(log *slog.Logger, opts Options) *Manager {
	if strings.TrimSpace(opts.Binary) == "" {
		opts.Binary = DefaultBinary
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = DefaultProgressInterval
	}
	if opts.DiagnosticLines <= 0 {
		opts.DiagnosticLines = DefaultDiagnosticLines
	}
	return &Manager{log: log, opts: opts, now: time.Now}
}

// CheckAvailable verifies the ffmpeg binary can be executed.
func (m *Manager) CheckAvailable() error {
	if _, err := exec.LookPath(m.opts.Binary); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrToolUnavailable, m.opts.Binary, err)
	}
	return nil
}

// Execute renders p inside workDir and returns the produced bytes.
// The run is bounded by the configured timeout; progress may be nil.
func (m *Manager) Execute(ctx context.Context, p plan.Plan, workDir string, progress ProgressFunc) ([]byte, error) {
	if p.Degenerate() {
		return nil, fmt.Errorf("%w: output duration is unknown", plan.ErrInvalidPlan)
	}

	r := &process{
		log:      m.log.With(slog.String("work_dir", workDir)),
		state:    StateIdle,
		tail:     newTail(m.opts.DiagnosticLines),
		throttle: newProgressThrottle(m.opts.ProgressInterval, m.now),
		total:    p.OutputDurationSeconds,
		progress: progress,
	}

	runCtx, cancel := context.WithTimeout(ctx, m.opts.Timeout)
	defer cancel()

	outputPath := filepath.Join(workDir, p.OutputFileName())
	cmd := exec.CommandContext(runCtx, m.opts.Binary, p.Args(outputPath)...)
	cmd.Dir = workDir
	cmd.WaitDelay = waitDelay

	pr, pw := io.Pipe()
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pw.Close()
		r.transition(StateFailed)
		return nil, &ProcessError{Kind: Failed, Err: err}
	}
	r.transition(StateSpawned)

	scanned := make(chan struct{})
	go func() {
		defer close(scanned)
		r.consume(pr)
	}()
	r.transition(StateRunning)

	waitErr := cmd.Wait()
	pw.Close()
	<-scanned

	switch {
	case errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		r.transition(StateTimedOut)
		return nil, &ProcessError{Kind: TimedOut, Diagnostic: r.tail.String(),
			Err: fmt.Errorf("exceeded %s", m.opts.Timeout)}
	case ctx.Err() != nil:
		r.transition(StateKilled)
		return nil, &ProcessError{Kind: Killed, Diagnostic: r.tail.String(), Err: ctx.Err()}
	case waitErr != nil:
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) && exitErr.ExitCode() == -1 {
			r.transition(StateKilled)
			return nil, &ProcessError{Kind: Killed, ExitCode: -1, Diagnostic: r.tail.String(), Err: waitErr}
		}
		code := 0
		if exitErr != nil {
			code = exitErr.ExitCode()
		}
		r.transition(StateFailed)
		return nil, &ProcessError{Kind: Failed, ExitCode: code, Diagnostic: r.tail.String(), Err: waitErr}
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		r.transition(StateFailed)
		return nil, &ProcessError{Kind: Failed, Diagnostic: r.tail.String(), Err: fmt.Errorf("read output: %w", err)}
	}
	if len(data) == 0 {
		r.transition(StateFailed)
		return nil, &ProcessError{Kind: Failed, Diagnostic: r.tail.String(), Err: errors.New("empty output")}
	}

	r.report(100)
	r.transition(StateCompleted)
	return data, nil
}

// process tracks a single ffmpeg invocation.
type process struct {
	log      *slog.Logger
	state    State
	tail     *tail
	throttle *progressThrottle
	total    float64
	progress ProgressFunc
}

func (r *process) transition(to State) {
	r.log.Debug("transcode state", slog.String("from", string(r.state)), slog.String("to", string(to)))
	r.state = to
}

// consume reads ffmpeg's stderr line by line. Stats lines become progress,
// everything else is kept for diagnostics.
func (r *process) consume(rd io.Reader) {
	scanner := bufio.NewScanner(rd)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	scanner.Split(scanLinesWithCR)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if elapsed, ok := parseElapsed(line); ok {
			r.report(percentOf(elapsed, r.total))
			continue
		}
		r.tail.Add(line)
	}
	// Drain so the writer side never blocks on an oversized line.
	_, _ = io.Copy(io.Discard, rd)
}

func (r *process) report(pct int) {
	if !r.throttle.shouldReport(pct) {
		return
	}
	r.log.Info("transcode progress", slog.Int("percent", pct))
	if r.progress != nil {
		r.progress(pct)
	}
}

// scanLinesWithCR splits on both \r and \n; ffmpeg rewrites its stats line with \r.
func scanLinesWithCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	for i := 0; i < len(data); i++ {
		if data[i] == '\r' || data[i] == '\n' {
			advance = i + 1
			for advance < len(data) && (data[advance] == '\r' || data[advance] == '\n') {
				advance++
			}
			return advance, data[0:i], nil
		}
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// tail keeps the last n diagnostic lines.
type tail struct {
	lines []string
	max   int
}

func newTail(max int) *tail {
	return &tail{max: max}
}

func (t *tail) Add(line string) {
	t.lines = append(t.lines, line)
	if len(t.lines) > t.max {
		t.lines = t.lines[len(t.lines)-t.max:]
	}
}

func (t *tail) String() string {
	return strings.Join(t.lines, "\n")
}
