package generation

import "time"

// RateLimitWindow counts dispatches in a fixed window. It is owned by a
// single Client and is not safe for concurrent use.
type RateLimitWindow struct {
	max    int
	length time.Duration
	count  int
	start  time.Time
}

// NewRateLimitWindow returns a window allowing max dispatches per length,
// starting at start.
func NewRateLimitWindow(max int, length time.Duration, start time.Time) *RateLimitWindow {
	return &RateLimitWindow{max: max, length: length, start: start}
}

// Delay reports how long a dispatch at now must wait. It is non-zero only
// when the window is full and has not yet elapsed.
func (w *RateLimitWindow) Delay(now time.Time) time.Duration {
	if w.max <= 0 || w.count < w.max {
		return 0
	}
	elapsed := now.Sub(w.start)
	if elapsed >= w.length {
		return 0
	}
	return w.length - elapsed
}

// Roll starts a new window at now if the current one has elapsed or is full.
// Call it after waiting out Delay.
func (w *RateLimitWindow) Roll(now time.Time) {
	if now.Sub(w.start) >= w.length || (w.max > 0 && w.count >= w.max) {
		w.count = 0
		w.start = now
	}
}

// Record counts one dispatch.
func (w *RateLimitWindow) Record() { w.count++ }

// Count returns dispatches counted in the current window.
func (w *RateLimitWindow) Count() int { return w.count }

// Start returns when the current window began.
func (w *RateLimitWindow) Start() time.Time { return w.start }
