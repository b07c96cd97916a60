package tracking

import (
	"errors"
	"iter"
	"time"
)

// Window is a closed time interval sampled at a fixed step.
type Window struct {
	Start time.Time
	End   time.Time
	Step  time.Duration
}

var (
	// ErrNonPositiveStep is returned for a window whose step is zero or negative.
	ErrNonPositiveStep = errors.New("tracking: step must be positive")
	// ErrEndBeforeStart is returned for a window that ends before it starts.
	ErrEndBeforeStart = errors.New("tracking: end is before start")
)

// Validate checks that the window produces at least one instant.
func (w Window) Validate() error {
	if w.Step <= 0 {
		return ErrNonPositiveStep
	}
	if w.End.Before(w.Start) {
		return ErrEndBeforeStart
	}
	return nil
}

// Count returns the number of instants in the window.
func (w Window) Count() int {
	if w.Validate() != nil {
		return 0
	}
	return int(w.End.Sub(w.Start)/w.Step) + 1
}

// Instants returns the window's instants.
func (w Window) Instants() iter.Seq[time.Time] {
	return Instants(w.Start, w.End, w.Step)
}

// Instants yields start, start+step, ... up to and including end. Each instant
// is computed from its index, so the sequence never accumulates rounding and
// can be ranged over any number of times. It yields start once when
// start == end, and nothing when end is before start or step is not positive.
func Instants(start, end time.Time, step time.Duration) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		if step <= 0 || end.Before(start) {
			return
		}
		for i := time.Duration(0); ; i++ {
			t := start.Add(i * step)
			if t.After(end) || !yield(t) {
				return
			}
		}
	}
}
