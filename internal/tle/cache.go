package tle

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// ErrCacheEmpty is returned by LoadLatest when nothing has been cached yet.
var ErrCacheEmpty = errors.New("tle: cache is empty")

const (
	cachePrefix = "elements_"
	cacheSuffix = ".tle"
)

// Cache keeps the most recent downloads on disk so a run can still start
// when the source is unreachable. Files are named by their download time in
// Unix milliseconds.
type Cache struct {
	dir      string
	maxFiles int
}

// NewCache creates a Cache that stores files in dir and keeps at most maxFiles.
func NewCache(dir string, maxFiles int) *Cache {
	if maxFiles <= 0 {
		maxFiles = 5
	}
	return &Cache{dir: dir, maxFiles: maxFiles}
}

// Write stores data under ts and prunes the oldest files beyond maxFiles.
func (c *Cache) Write(data []byte, ts time.Time) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}

	name := cachePrefix + strconv.FormatInt(ts.UnixMilli(), 10) + cacheSuffix
	if err := os.WriteFile(filepath.Join(c.dir, name), data, 0o644); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}

	stamps, err := c.stamps()
	if err != nil {
		return err
	}
	for len(stamps) > c.maxFiles {
		if err := os.Remove(c.path(stamps[0])); err != nil {
			return fmt.Errorf("pruning cache file: %w", err)
		}
		stamps = stamps[1:]
	}
	return nil
}

// LoadLatest returns the newest cached data and its download time.
func (c *Cache) LoadLatest() ([]byte, time.Time, error) {
	stamps, err := c.stamps()
	if err != nil {
		return nil, time.Time{}, err
	}
	if len(stamps) == 0 {
		return nil, time.Time{}, ErrCacheEmpty
	}

	latest := stamps[len(stamps)-1]
	data, err := os.ReadFile(c.path(latest))
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("reading cache file: %w", err)
	}
	return data, time.UnixMilli(latest).UTC(), nil
}

func (c *Cache) path(stamp int64) string {
	return filepath.Join(c.dir, cachePrefix+strconv.FormatInt(stamp, 10)+cacheSuffix)
}

// stamps lists cached download times, oldest first.
func (c *Cache) stamps() ([]int64, error) {
	entries, err := os.ReadDir(c.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing cache dir: %w", err)
	}

	var out []int64
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, cachePrefix) || !strings.HasSuffix(name, cacheSuffix) {
			continue
		}
		ms, err := strconv.ParseInt(strings.TrimSuffix(strings.TrimPrefix(name, cachePrefix), cacheSuffix), 10, 64)
		if err != nil {
			continue
		}
		out = append(out, ms)
	}
	slices.Sort(out)
	return out, nil
}
