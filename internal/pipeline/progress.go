package pipeline

import (
	"time"
)

// progressThrottle bounds write amplification from the transcoder's progress
// stream: a sample is written only when it moved far enough or long enough
// since the previous write. The terminal 100 bypasses the throttle.
type progressThrottle struct {
	minInterval time.Duration
	minDelta    int
	now         func() time.Time
	write       func(percent int)

	last   int
	lastAt time.Time
}

func newProgressThrottle(minInterval time.Duration, minDelta int, now func() time.Time, write func(percent int)) *progressThrottle {
	return &progressThrottle{
		minInterval: minInterval,
		minDelta:    minDelta,
		now:         now,
		write:       write,
		last:        -1,
	}
}

// Observe considers one progress sample.
func (t *progressThrottle) Observe(percent int) {
	if percent < 0 {
		return
	}
	if percent > 100 {
		percent = 100
	}
	if percent <= t.last && percent != 100 {
		return
	}
	at := t.now()
	if t.last >= 0 && percent != 100 {
		if percent-t.last < t.minDelta && at.Sub(t.lastAt) < t.minInterval {
			return
		}
	}
	t.last = percent
	t.lastAt = at
	t.write(percent)
}
