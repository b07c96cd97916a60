package tle

import (
	"fmt"
	"strconv"
	"strings"
)

// field is one numeric column range of a TLE line, extracted exactly the way
// the SGP4 library reads it.
type field struct {
	name    string
	extract func(line string) string
	isInt   bool
}

// squeeze drops up to two blanks, matching the library's extraction of
// signed fields.
func squeeze(s string) string { return strings.Replace(s, " ", "", 2) }

// cols returns line[from:to] unchanged.
func cols(from, to int) func(string) string {
	return func(line string) string { return line[from:to] }
}

// squeezed returns line[from:to] with up to two blanks removed.
func squeezed(from, to int) func(string) string {
	return func(line string) string { return squeeze(line[from:to]) }
}

// exponent rebuilds an implied-decimal field such as " 14567-3" into
// ".14567e-3".
func exponent(sign, mantissa, exp int) func(string) string {
	return func(line string) string {
		return squeeze(line[sign:mantissa] + "." + line[mantissa:exp] + "e" + line[exp:exp+2])
	}
}

var line1Fields = []field{
	{"catalog number", func(l string) string { return strings.TrimSpace(l[2:7]) }, true},
	{"epoch year", cols(18, 20), true},
	{"epoch day", cols(20, 32), false},
	{"mean motion first derivative", squeezed(33, 43), false},
	{"mean motion second derivative", exponent(44, 45, 50), false},
	{"bstar", exponent(53, 54, 59), false},
}

var line2Fields = []field{
	{"inclination", squeezed(8, 16), false},
	{"right ascension", squeezed(17, 25), false},
	{"eccentricity", func(l string) string { return "." + l[26:33] }, false},
	{"argument of perigee", squeezed(34, 42), false},
	{"mean anomaly", squeezed(43, 51), false},
	{"mean motion", squeezed(52, 63), false},
}

// validateFields checks that every numeric column of a length-checked line
// parses. The SGP4 library exits the process on a column it cannot parse,
// and letters count zero in the checksum, so this is the last gate.
func validateFields(line string, number byte) error {
	fields := line1Fields
	if number == '2' {
		fields = line2Fields
	}
	for _, f := range fields {
		s := f.extract(line)
		var err error
		if f.isInt {
			_, err = strconv.ParseInt(s, 10, 0)
		} else {
			_, err = strconv.ParseFloat(s, 64)
		}
		if err != nil {
			return fmt.Errorf("line%c %s %q is not a number", number, f.name, s)
		}
	}
	if number == '2' {
		if rev := strings.TrimSpace(line[63:68]); rev != "" {
			if _, err := strconv.Atoi(rev); err != nil {
				return fmt.Errorf("line2 revolution number %q is not a number", rev)
			}
		}
	}
	return nil
}
