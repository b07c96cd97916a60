package output

import "fmt"

// Error reports that a destination could not accept output.
type Error struct {
	Dest string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("output error: %s: %v", e.Dest, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
