package main

import (
	"time"

	"github.com/loov/hrtime"
	"golang.org/x/exp/slog"
)

// frameStats accumulates frame times and reports them once per interval.
type frameStats struct {
	interval time.Duration
	now      func() time.Duration

	windowStart time.Duration
	last        time.Duration
	frames      int
	worst       time.Duration
}

func newFrameStats(interval time.Duration) *frameStats {
	return newFrameStatsWithClock(interval, hrtime.Now)
}

func newFrameStatsWithClock(interval time.Duration, now func() time.Duration) *frameStats {
	start := now()
	return &frameStats{
		interval:    interval,
		now:         now,
		windowStart: start,
		last:        start,
	}
}

// frame records that a frame was presented. It reports whether the window
// closed and was logged.
func (s *frameStats) frame(logger *slog.Logger, presented uint64) bool {
	if s.interval <= 0 {
		return false
	}

	current := s.now()
	frameTime := current - s.last
	s.last = current
	s.frames++
	if frameTime > s.worst {
		s.worst = frameTime
	}

	elapsed := current - s.windowStart
	if elapsed < s.interval {
		return false
	}

	average := elapsed / time.Duration(s.frames)
	logger.Info("frame stats",
		slog.Uint64("presented", presented),
		slog.Int("frames", s.frames),
		slog.Duration("average", average),
		slog.Duration("worst", s.worst),
		slog.Float64("fps", float64(s.frames)/elapsed.Seconds()))

	s.windowStart = current
	s.frames = 0
	s.worst = 0
	return true
}

// resume starts a fresh window so time spent paused is not counted as a
// frame.
func (s *frameStats) resume() {
	current := s.now()
	s.windowStart = current
	s.last = current
	s.frames = 0
	s.worst = 0
}
