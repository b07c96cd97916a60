package tle

import (
	"errors"
	"strconv"
	"strings"
	"testing"
)

// restamp replaces the checksum column so only the edited field is wrong.
func restamp(line string) string {
	return line[:LineLength-1] + strconv.Itoa(Checksum(line))
}

// edit replaces the first occurrence of old in line and restamps it.
func edit(line, old, repl string) string {
	return restamp(strings.Replace(line, old, repl, 1))
}

func TestChecksum(t *testing.T) {
	tests := []struct {
		line string
		want int
	}{
		{targetLine1, 9},
		{targetLine2, 7},
		{issLine1, 4},
		{issLine2, 3},
		// '-' counts as one, letters and '+' count zero.
		{"1 -A+", 2},
	}
	for _, tt := range tests {
		if got := Checksum(tt.line); got != tt.want {
			t.Errorf("Checksum(%q) = %d, want %d", tt.line, got, tt.want)
		}
	}
}

func TestValidateLines(t *testing.T) {
	tests := []struct {
		name     string
		line1    string
		line2    string
		wantErr  string
		wantLine int
	}{
		{"valid", targetLine1, targetLine2, "", 0},
		{"valid with padding", "  " + issLine1 + " ", issLine2 + "\r", "", 0},
		{"short line1", targetLine1[:60], targetLine2, "length", 1},
		{"swapped lines", targetLine2, targetLine1, "must start with", 1},
		{"bad checksum", targetLine1[:68] + "0", targetLine2, "checksum mismatch", 1},
		{"non-digit checksum", targetLine1[:68] + "X", targetLine2, "not a digit", 1},
		{"different objects", targetLine1, issLine2, "catalog number mismatch", 0},
		{"letter in epoch day", edit(issLine1, "138.37048074", "138.3704807Z"), issLine2, "epoch day", 1},
		{"letter in ndot", edit(issLine1, ".00007749", ".0000774X"), issLine2, "first derivative", 1},
		{"letter in nddot", edit(issLine1, "00000+0", "0000O+0"), issLine2, "second derivative", 1},
		{"letter in bstar", edit(issLine1, "14567-3", "1456A-3"), issLine2, "bstar", 1},
		{"letter in inclination", issLine1, edit(issLine2, "51.6369", "5X.6369"), "inclination", 2},
		{"letter in raan", issLine1, edit(issLine2, "94.7823", "94.78Z3"), "right ascension", 2},
		{"blank in eccentricity", issLine1, edit(issLine2, "0002558", "000 558"), "eccentricity", 2},
		{"letter in perigee", issLine1, edit(issLine2, "120.7586", "120.7S86"), "argument of perigee", 2},
		{"letter in mean anomaly", issLine1, edit(issLine2, "15.7840 ", "15.78A0 "), "mean anomaly", 2},
		{"letter in mean motion", issLine1, edit(issLine2, "15.49587957", "15.4958795x"), "mean motion", 2},
		{"letter in revolution", issLine1, restamp(issLine2[:63] + "5105X0"), "revolution number", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLines(tt.line1, tt.line2)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
			}
			if tt.wantLine == 0 {
				return
			}
			var le *LineError
			if !errors.As(err, &le) || le.Line != tt.wantLine {
				t.Errorf("error = %#v, want *LineError for line %d", err, tt.wantLine)
			}
		})
	}
}
