package exposure

import "time"

// Clock supplies wall time. Durations are measured between two Now() calls,
// so tests swap in a manual clock.
type Clock interface {
	Now() time.Time
}

// SystemClock reads time.Now.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// wholeSeconds truncates d to whole seconds toward zero.
func wholeSeconds(d time.Duration) int64 {
	return int64(d / time.Second)
}
