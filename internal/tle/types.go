package tle

import (
	"log/slog"
	"strconv"
	"time"
)

// TLEEntry is one satellite's two-line element set with the fields the
// tracker needs decoded up front.
type TLEEntry struct {
	NORADID int
	Name    string
	Epoch   time.Time
	Line1   string
	Line2   string
}

// AgeAt returns how old the elements are at t. Negative when t precedes the
// epoch.
func (e TLEEntry) AgeAt(t time.Time) time.Duration {
	return t.Sub(e.Epoch)
}

// Label names the entry for humans, falling back to the catalog number.
func (e TLEEntry) Label() string {
	if e.Name != "" {
		return e.Name
	}
	return "NORAD " + strconv.Itoa(e.NORADID)
}

// LogValue implements slog.LogValuer.
func (e TLEEntry) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("norad_id", e.NORADID),
		slog.String("name", e.Name),
		slog.Time("epoch", e.Epoch),
	)
}
