package tle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"
)

// Source describes where a run's orbital elements come from. Exactly one of
// inline lines, File or URL is used, in that order of preference.
type Source struct {
	Name     string // entry name or NORAD ID used to select from a file or download
	Line1    string
	Line2    string
	File     string
	URL      string
	CacheDir string // download cache; empty disables caching
	MaxFiles int
}

// ErrNoSource is returned when a Source names no elements at all.
var ErrNoSource = errors.New("tle: no element source configured")

// Resolve loads the element set described by src.
func Resolve(ctx context.Context, src Source, logger *slog.Logger) (TLEEntry, error) {
	switch {
	case src.Line1 != "" || src.Line2 != "":
		return ParseLines(src.Name, src.Line1, src.Line2)
	case src.File != "":
		data, err := os.ReadFile(src.File)
		if err != nil {
			return TLEEntry{}, fmt.Errorf("reading TLE file: %w", err)
		}
		return parseAndSelect(data, src.Name, logger)
	case src.URL != "":
		data, err := download(ctx, src, logger)
		if err != nil {
			return TLEEntry{}, err
		}
		return parseAndSelect(data, src.Name, logger)
	default:
		return TLEEntry{}, ErrNoSource
	}
}

func parseAndSelect(data []byte, key string, logger *slog.Logger) (TLEEntry, error) {
	entries, err := Parse(bytes.NewReader(data), logger)
	if err != nil {
		return TLEEntry{}, err
	}
	return Select(entries, key)
}

// download fetches src.URL, caching the result. When the fetch fails the
// newest cached copy is used instead.
func download(ctx context.Context, src Source, logger *slog.Logger) ([]byte, error) {
	var cache *Cache
	if src.CacheDir != "" {
		cache = NewCache(src.CacheDir, src.MaxFiles)
	}

	data, err := NewFetcher(src.URL, logger).Fetch(ctx)
	if err == nil {
		if cache != nil {
			if werr := cache.Write(data, time.Now()); werr != nil {
				logger.Warn("failed to cache TLE data", "component", "tle", "error", werr)
			}
		}
		return data, nil
	}
	if cache == nil {
		return nil, err
	}

	cached, ts, cerr := cache.LoadLatest()
	if cerr != nil {
		return nil, fmt.Errorf("%w (no cached copy: %v)", err, cerr)
	}
	logger.Warn("TLE fetch failed, using cached copy",
		"component", "tle",
		"error", err,
		"cached_at", ts.UTC().Format(time.RFC3339),
	)
	return cached, nil
}
