package tle

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCacheEmpty(t *testing.T) {
	c := NewCache(filepath.Join(t.TempDir(), "missing"), 3)
	if _, _, err := c.LoadLatest(); !errors.Is(err, ErrCacheEmpty) {
		t.Errorf("LoadLatest on missing dir: err = %v, want ErrCacheEmpty", err)
	}
}

func TestCacheWriteLoadAndPrune(t *testing.T) {
	dir := t.TempDir()
	c := NewCache(dir, 3)

	base := time.Date(2025, 8, 25, 0, 0, 0, 0, time.UTC)
	for i := range 5 {
		ts := base.Add(time.Duration(i) * time.Hour)
		if err := c.Write([]byte{byte('a' + i)}, ts); err != nil {
			t.Fatalf("Write %d: %v", i, err)
		}
	}

	// Foreign files are ignored by both listing and pruning.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	stamps, err := c.stamps()
	if err != nil {
		t.Fatalf("stamps: %v", err)
	}
	if len(stamps) != 3 {
		t.Fatalf("kept %d files, want 3", len(stamps))
	}
	if want := base.Add(2 * time.Hour).UnixMilli(); stamps[0] != want {
		t.Errorf("oldest kept stamp = %d, want %d", stamps[0], want)
	}

	data, ts, err := c.LoadLatest()
	if err != nil {
		t.Fatalf("LoadLatest: %v", err)
	}
	if string(data) != "e" {
		t.Errorf("latest data = %q, want %q", data, "e")
	}
	if want := base.Add(4 * time.Hour); !ts.Equal(want) {
		t.Errorf("latest time = %v, want %v", ts, want)
	}
}

func TestNewCacheDefaultLimit(t *testing.T) {
	if c := NewCache(t.TempDir(), 0); c.maxFiles != 5 {
		t.Errorf("maxFiles = %d, want 5", c.maxFiles)
	}
}
