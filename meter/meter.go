// Package meter turns raw byte counts into throughput reports: an
// instantaneous rate roughly once per second while a session runs, and
// a final average over the whole session when it ends.
package meter

import "time"

const megabyte = 1 << 20

// windowLength is the minimum span of one instantaneous-rate window.
const windowLength = time.Second

// Report is a byte count over an elapsed wall-clock interval. It is
// used both for per-window samples and for the whole-session summary.
type Report struct {
	Bytes   int64
	Elapsed time.Duration
}

// MBPerSec is the rate in binary megabytes per second.
func (r Report) MBPerSec() float64 {
	secs := r.Elapsed.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(r.Bytes) / secs / megabyte
}

// MbPerSec is the same rate in megabits per second.
func (r Report) MbPerSec() float64 {
	return 8 * r.MBPerSec()
}

// Meter accumulates observed byte counts against the wall clock. The
// caller supplies every timestamp, which keeps the arithmetic
// deterministic under test.
type Meter struct {
	start       time.Time
	windowStart time.Time
	windowBytes int64
	totalBytes  int64
}

// Start returns a Meter whose session and first window begin at now.
func Start(now time.Time) *Meter {
	return &Meter{start: now, windowStart: now}
}

// Record adds n bytes to the running totals. When the current window
// has spanned at least one second it returns that window's Report and
// true, and a new window begins at now.
func (m *Meter) Record(n int64, now time.Time) (Report, bool) {
	m.totalBytes += n
	m.windowBytes += n
	elapsed := now.Sub(m.windowStart)
	if elapsed < windowLength {
		return Report{}, false
	}
	r := Report{Bytes: m.windowBytes, Elapsed: elapsed}
	m.windowStart = now
	m.windowBytes = 0
	return r, true
}

// TotalBytes is the number of bytes recorded since Start.
func (m *Meter) TotalBytes() int64 {
	return m.totalBytes
}

// Summary reports the whole-session average. It is computed from the
// session totals, not by averaging the window samples, so the number
// of samples emitted along the way never affects it.
func (m *Meter) Summary(now time.Time) Report {
	return Report{Bytes: m.totalBytes, Elapsed: now.Sub(m.start)}
}
