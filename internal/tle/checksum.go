package tle

import (
	"fmt"
	"strings"
)

// LineLength is the fixed width of a TLE line.
const LineLength = 69

// Checksum computes the modulo-10 checksum of the first 68 columns of a TLE
// line: digits count their value, '-' counts 1, everything else 0.
func Checksum(line string) int {
	sum := 0
	for i := 0; i < len(line) && i < LineLength-1; i++ {
		c := line[i]
		switch {
		case c >= '0' && c <= '9':
			sum += int(c - '0')
		case c == '-':
			sum++
		}
	}
	return sum % 10
}

// LineError reports which of the two lines failed validation.
type LineError struct {
	Line int // 1 or 2
	Err  error
}

func (e *LineError) Error() string { return e.Err.Error() }

func (e *LineError) Unwrap() error { return e.Err }

// ValidateLine checks length, line number, checksum and numeric columns of
// one TLE line. Failures are *LineError.
func ValidateLine(line string, number byte) error {
	if err := validateLine(strings.TrimSpace(line), number); err != nil {
		return &LineError{Line: int(number - '0'), Err: err}
	}
	return nil
}

func validateLine(line string, number byte) error {
	if len(line) != LineLength {
		return fmt.Errorf("line%c length %d, expected %d", number, len(line), LineLength)
	}
	if line[0] != number || line[1] != ' ' {
		return fmt.Errorf("line%c must start with '%c ', got %q", number, number, line[:2])
	}
	last := line[LineLength-1]
	if last < '0' || last > '9' {
		return fmt.Errorf("line%c checksum column is %q, not a digit", number, last)
	}
	if want, got := int(last-'0'), Checksum(line); want != got {
		return fmt.Errorf("line%c checksum mismatch: computed %d, stated %d", number, got, want)
	}
	return validateFields(line, number)
}

// ValidateLines checks both lines and that they describe the same object.
func ValidateLines(line1, line2 string) error {
	if err := ValidateLine(line1, '1'); err != nil {
		return err
	}
	if err := ValidateLine(line2, '2'); err != nil {
		return err
	}
	id1 := strings.TrimSpace(strings.TrimSpace(line1)[2:7])
	id2 := strings.TrimSpace(strings.TrimSpace(line2)[2:7])
	if id1 != id2 {
		return fmt.Errorf("catalog number mismatch: line1 %q, line2 %q", id1, id2)
	}
	return nil
}
