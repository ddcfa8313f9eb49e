package transcode

import (
	"regexp"
	"strconv"
	"time"
)

// ProgressFunc receives render progress as a percentage in [0, 100].
type ProgressFunc func(percent int)

var timeMarker = regexp.MustCompile(`time=(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)

// parseElapsed extracts the last time= marker of an ffmpeg stats line.
func parseElapsed(line string) (float64, bool) {
	matches := timeMarker.FindAllStringSubmatch(line, -1)
	if len(matches) == 0 {
		return 0, false
	}
	m := matches[len(matches)-1]
	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	secs, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return 0, false
	}
	return float64(hours*3600+minutes*60) + secs, true
}

func percentOf(elapsed, total float64) int {
	if total <= 0 {
		return 0
	}
	pct := int(elapsed / total * 100)
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// progressThrottle suppresses progress reports that arrive within interval of
// the previous one or that do not move the percentage forward.
type progressThrottle struct {
	interval time.Duration
	now      func() time.Time
	last     time.Time
	lastPct  int
}

func newProgressThrottle(interval time.Duration, now func() time.Time) *progressThrottle {
	if now == nil {
		now = time.Now
	}
	return &progressThrottle{interval: interval, now: now, lastPct: -1}
}

// shouldReport reports whether pct should be emitted. 100 is always emitted once.
func (t *progressThrottle) shouldReport(pct int) bool {
	if pct <= t.lastPct {
		return false
	}
	current := t.now()
	if pct < 100 && t.lastPct >= 0 && current.Sub(t.last) < t.interval {
		return false
	}
	t.last = current
	t.lastPct = pct
	return true
}
