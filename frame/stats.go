package frame

import (
	"time"

	"github.com/loov/hrtime"
)

// Stats counts what the scheduler did since it was created.
type Stats struct {
	// Frames is the number of frames submitted and presented.
	Frames uint64
	// Rebuilds is the number of times the surface chain was rebuilt.
	Rebuilds uint64
	// Skipped is the number of iterations that ended after an out-of-date acquire.
	Skipped uint64
	// Busy is the total wall time spent inside presented frames, fence waits and
	// rebuilds included.
	Busy time.Duration
}

// AverageFrameTime returns Busy spread over Frames.
func (s Stats) AverageFrameTime() time.Duration {
	if s.Frames == 0 {
		return 0
	}
	return s.Busy / time.Duration(s.Frames)
}

// FPS returns the presented frame rate over the elapsed wall time.
func (s Stats) FPS(elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(s.Frames) / elapsed.Seconds()
}

// statsReporter decides when stats are due for logging.
type statsReporter struct {
	interval time.Duration
	last     time.Duration
	frames   uint64
}

func newStatsReporter(interval time.Duration) statsReporter {
	return statsReporter{interval: interval, last: hrtime.Now()}
}

// due reports whether interval elapsed since the last report and, if so, returns the
// frame rate over that window.
func (r *statsReporter) due(s Stats) (float64, bool) {
	if r.interval <= 0 {
		return 0, false
	}
	elapsed := hrtime.Since(r.last)
	if elapsed < r.interval {
		return 0, false
	}
	window := Stats{Frames: s.Frames - r.frames}
	r.last = hrtime.Now()
	r.frames = s.Frames
	return window.FPS(elapsed), true
}
