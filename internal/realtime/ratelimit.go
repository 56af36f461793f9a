package realtime

import "time"

// slidingWindow is a per-connection message rate limiter. It counts
// messages within the trailing window from the current instant, so a burst
// straddling a window boundary stays bounded by the true trailing window
// (unlike fixed buckets).
type slidingWindow struct {
	max    int
	window time.Duration
	stamps []time.Time
}

func newSlidingWindow(max int, window time.Duration) *slidingWindow {
	return &slidingWindow{max: max, window: window}
}

// allow records the message at time now and returns true, or returns false
// without recording when the trailing window is already full.
func (w *slidingWindow) allow(now time.Time) bool {
	cutoff := now.Add(-w.window)
	kept := w.stamps[:0]
	for _, t := range w.stamps {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	w.stamps = kept

	if len(w.stamps) >= w.max {
		return false
	}
	w.stamps = append(w.stamps, now)
	return true
}

// reset drops all recorded timestamps.
func (w *slidingWindow) reset() {
	w.stamps = w.stamps[:0]
}
