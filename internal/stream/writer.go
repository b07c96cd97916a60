// Package stream delivers a track as Server-Sent Events while it is being
// computed.
//
// Event sequence on one connection:
//
//	retry: 5123
//
//	event: metadata
//	data: {"name":"ISS (ZARYA)","norad_id":25544,"epoch":"...","planned":601,"step_ms":1000}
//
//	event: sample
//	data: {"i":0,"t":"2025-05-18T09:00:00.000Z","az":123.456,"el":-12.345,"rec":"09:00:00.000,123.456,-12.345"}
//
//	event: done
//	data: {"computed":601,"emitted":601,"duration_ms":12}
//
// A failed run ends with an "error" event instead of "done".
package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/star/trackgen/internal/metrics"
	"github.com/star/trackgen/internal/output"
	"github.com/star/trackgen/internal/tracking"
)

// DefaultFlushEvery is the number of sample events written between flushes.
const DefaultFlushEvery = 64

const writeDeadline = 30 * time.Second

// Writer writes SSE events to one client. It implements tracking.Sink; like
// every sink it is used from a single goroutine.
type Writer struct {
	w          io.Writer
	rc         *http.ResponseController
	format     output.Formatter
	flushEvery int
	pending    int
	logger     *slog.Logger

	messagesSent int64
	bytesSent    int64
}

// Open writes the SSE response headers and a jittered retry hint. The
// server's write timeout is replaced by a per-event deadline.
func Open(w http.ResponseWriter, format output.Formatter, logger *slog.Logger) (*Writer, error) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering.
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		logger.Debug("could not clear write deadline", "error", err)
	}

	c := &Writer{
		w:          w,
		rc:         rc,
		format:     format,
		flushEvery: DefaultFlushEvery,
		logger:     logger,
	}

	// Jittered retry interval (3-7s) so reconnecting clients spread out.
	if _, err := fmt.Fprintf(w, "retry: %d\n\n", 3000+rand.Intn(4000)); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}
	if err := c.Flush(); err != nil {
		return nil, err
	}
	return c, nil
}

// Send writes one named event with v as its JSON data and flushes.
func (c *Writer) Send(event string, v any) error {
	if err := c.write(event, v); err != nil {
		return err
	}
	return c.Flush()
}

type samplePayload struct {
	Index     int     `json:"i"`
	Time      string  `json:"t"`
	Azimuth   float64 `json:"az"`
	Elevation float64 `json:"el"`
	Record    string  `json:"rec"`
}

// Emit writes a "sample" event. Samples are flushed in groups.
func (c *Writer) Emit(s tracking.Sample) error {
	err := c.write("sample", samplePayload{
		Index:     s.Index,
		Time:      s.Time.UTC().Format("2006-01-02T15:04:05.000Z"),
		Azimuth:   s.AzimuthDeg,
		Elevation: s.ElevationDeg,
		Record:    c.format.Record(s),
	})
	if err != nil {
		return err
	}
	c.pending++
	if c.pending >= c.flushEvery {
		return c.Flush()
	}
	return nil
}

// Flush pushes buffered events to the client.
func (c *Writer) Flush() error {
	c.pending = 0
	if err := c.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

// Stats returns the number of events and bytes written so far.
func (c *Writer) Stats() (messages, bytes int64) {
	return c.messagesSent, c.bytesSent
}

// write formats "event: name\ndata: {json}\n\n".
func (c *Writer) write(event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}

	// Extend the write deadline before each event so a long run is not cut
	// off by the server's WriteTimeout.
	if err := c.rc.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil && !errors.Is(err, http.ErrNotSupported) {
		c.logger.Debug("could not set write deadline", "error", err)
	}

	n, err := fmt.Fprintf(c.w, "event: %s\ndata: %s\n\n", event, data)
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}

	c.messagesSent++
	c.bytesSent += int64(n)
	metrics.IncStreamEvents(event)
	return nil
}

var _ tracking.Sink = (*Writer)(nil)
