package propagation

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidTLE is returned when orbital elements cannot initialize SGP4.
	ErrInvalidTLE = errors.New("invalid orbital elements")
	// ErrDiverged is returned when SGP4 produces a non-physical state.
	ErrDiverged = errors.New("sgp4 evaluation diverged")
)

// Error reports that the orbit of one object could not be evaluated. Time is
// zero when the failure happened while initializing the propagator.
type Error struct {
	NORADID int
	Time    time.Time
	Err     error
}

func (e *Error) Error() string {
	if e.Time.IsZero() {
		return fmt.Sprintf("propagation error: NORAD %d: %v", e.NORADID, e.Err)
	}
	return fmt.Sprintf("propagation error: NORAD %d at %s: %v",
		e.NORADID, e.Time.UTC().Format("2006-01-02T15:04:05.000Z"), e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
