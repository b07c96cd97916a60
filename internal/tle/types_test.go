package tle

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestEntryAgeAndLabel(t *testing.T) {
	e := TLEEntry{NORADID: 25544, Epoch: time.Date(2025, 5, 18, 0, 0, 0, 0, time.UTC)}

	if got := e.AgeAt(e.Epoch.Add(36 * time.Hour)); got != 36*time.Hour {
		t.Errorf("AgeAt = %v, want 36h", got)
	}
	if got := e.AgeAt(e.Epoch.Add(-time.Hour)); got != -time.Hour {
		t.Errorf("AgeAt before epoch = %v, want -1h", got)
	}
	if got := e.Label(); got != "NORAD 25544" {
		t.Errorf("Label() = %q", got)
	}
	e.Name = "ISS (ZARYA)"
	if got := e.Label(); got != "ISS (ZARYA)" {
		t.Errorf("Label() = %q", got)
	}
}

func TestEntryLogValue(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	logger.Info("resolved", "target", TLEEntry{NORADID: 44078, Name: "TARGETSAT"})

	out := buf.String()
	for _, want := range []string{"target.norad_id=44078", "target.name=TARGETSAT"} {
		if !strings.Contains(out, want) {
			t.Errorf("log line %q missing %q", out, want)
		}
	}
	if strings.Contains(out, "Line1") {
		t.Errorf("log line leaks raw element lines: %q", out)
	}
}
