package tle

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// ErrNotFound is returned by Select when no entry matches.
var ErrNotFound = errors.New("tle: no matching entry")

// Parse reads NORAD TLE data from r and returns parsed entries. Both the
// 3-line format (name line first) and bare 2-line pairs are accepted.
// Malformed entries are skipped with a warning log.
func Parse(r io.Reader, logger *slog.Logger) ([]TLEEntry, error) {
	scanner := bufio.NewScanner(r)
	var lines []string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading TLE data: %w", err)
	}

	var entries []TLEEntry
	for i := 0; i+1 < len(lines); {
		var name, line1, line2 string
		switch {
		case strings.HasPrefix(lines[i], "1 ") && strings.HasPrefix(lines[i+1], "2 "):
			line1, line2 = lines[i], lines[i+1]
			i += 2
		case i+2 < len(lines) && strings.HasPrefix(lines[i+1], "1 ") && strings.HasPrefix(lines[i+2], "2 "):
			name, line1, line2 = lines[i], lines[i+1], lines[i+2]
			i += 3
		default:
			logger.Warn("skipping malformed TLE entry", "line_index", i, "line", lines[i])
			i++
			continue
		}

		entry, err := ParseLines(name, line1, line2)
		if err != nil {
			logger.Warn("skipping TLE entry", "name", strings.TrimSpace(name), "error", err)
			continue
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// ParseLines validates a single element set and extracts its catalog number
// and epoch. An empty name defaults to the catalog number.
func ParseLines(name, line1, line2 string) (TLEEntry, error) {
	line1 = strings.TrimSpace(line1)
	line2 = strings.TrimSpace(line2)
	if err := ValidateLines(line1, line2); err != nil {
		return TLEEntry{}, err
	}

	// NORAD ID from line1 cols 3-7 (0-indexed: 2..7).
	noradStr := strings.TrimSpace(line1[2:7])
	noradID, err := strconv.Atoi(noradStr)
	if err != nil {
		return TLEEntry{}, fmt.Errorf("invalid NORAD ID %q: %w", noradStr, err)
	}

	// Epoch from line1 cols 19-32 (0-indexed: 18..32).
	epoch, err := parseEpoch(strings.TrimSpace(line1[18:32]))
	if err != nil {
		return TLEEntry{}, err
	}

	name = strings.TrimSpace(strings.TrimPrefix(name, "0 "))
	if name == "" {
		name = noradStr
	}

	return TLEEntry{
		NORADID: noradID,
		Name:    name,
		Epoch:   epoch,
		Line1:   line1,
		Line2:   line2,
	}, nil
}

// Select picks the entry whose name (case-insensitive) or NORAD ID matches key.
// An empty key selects the first entry.
func Select(entries []TLEEntry, key string) (TLEEntry, error) {
	if len(entries) == 0 {
		return TLEEntry{}, ErrNotFound
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return entries[0], nil
	}
	id, idErr := strconv.Atoi(key)
	for _, e := range entries {
		if strings.EqualFold(e.Name, key) || (idErr == nil && e.NORADID == id) {
			return e, nil
		}
	}
	return TLEEntry{}, fmt.Errorf("%w: %q", ErrNotFound, key)
}

// parseEpoch converts a TLE epoch string in YYDDD.DDDDDDDD format to time.Time.
// Year 00-56 → 2000s, 57-99 → 1900s.
func parseEpoch(s string) (time.Time, error) {
	if len(s) < 5 {
		return time.Time{}, fmt.Errorf("epoch string too short: %q", s)
	}

	year, err := strconv.Atoi(s[:2])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch year %q: %w", s[:2], err)
	}
	if year >= 57 {
		year += 1900
	} else {
		year += 2000
	}

	dayOfYear, err := strconv.ParseFloat(s[2:], 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch day %q: %w", s[2:], err)
	}

	// dayOfYear is 1-based: day 1 = Jan 1. Rounded to the millisecond.
	dur := time.Duration((dayOfYear - 1) * float64(24*time.Hour)).Round(time.Millisecond)
	return time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC).Add(dur), nil
}
