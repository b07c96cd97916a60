package output

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/star/trackgen/internal/tracking"
)

// Stdout is the destination name that selects standard output.
const Stdout = "-"

// WriterSink writes one CSV record per sample through a buffered writer.
// Write failures of the destination surface on the Emit that fills the
// buffer, or on Flush.
// It is not safe for concurrent use; the pipeline emits from one goroutine.
type WriterSink struct {
	dest   string
	format Formatter
	csv    *csv.Writer
	file   *os.File // temp file renamed over path on Close
	path   string
	rows   int
}

// NewWriterSink wraps w. dest names the destination in errors.
func NewWriterSink(w io.Writer, dest string, format Formatter, header bool) (*WriterSink, error) {
	// csv.NewWriter reuses bw since it is already a large enough bufio.Writer.
	bw := bufio.NewWriterSize(w, 64*1024)
	s := &WriterSink{
		dest:   dest,
		format: format,
		csv:    csv.NewWriter(bw),
	}
	if header {
		if err := s.csv.Write(Header); err != nil {
			return nil, &Error{Dest: dest, Err: fmt.Errorf("writing header: %w", err)}
		}
	}
	return s, nil
}

// OpenFile writes to a temporary file next to path that Close renames into
// place, so a failed run never leaves a partial track behind. "-" selects
// stdout.
func OpenFile(path string, format Formatter, header bool) (*WriterSink, error) {
	if path == Stdout || path == "" {
		return NewWriterSink(os.Stdout, "stdout", format, header)
	}

	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, &Error{Dest: path, Err: err}
	}
	s, err := NewWriterSink(f, path, format, header)
	if err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, err
	}
	s.file = f
	s.path = path
	return s, nil
}

// Emit writes the record for one sample.
func (s *WriterSink) Emit(sample tracking.Sample) error {
	if err := s.csv.Write(s.format.Fields(sample)); err != nil {
		return &Error{Dest: s.dest, Err: err}
	}
	s.rows++
	return nil
}

// Rows returns the number of records written.
func (s *WriterSink) Rows() int { return s.rows }

// Flush pushes buffered records to the destination.
func (s *WriterSink) Flush() error {
	s.csv.Flush()
	if err := s.csv.Error(); err != nil {
		return &Error{Dest: s.dest, Err: err}
	}
	return nil
}

// Close flushes and, for files, moves the finished output into place. If
// anything fails the temporary file is removed and path is left untouched.
func (s *WriterSink) Close() error {
	err := s.Flush()
	if s.file == nil {
		return err
	}
	f := s.file
	s.file = nil
	if err == nil {
		err = f.Chmod(0o644)
	}
	if cerr := f.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(f.Name(), s.path)
	}
	if err != nil {
		os.Remove(f.Name())
		var oerr *Error
		if !errors.As(err, &oerr) {
			err = &Error{Dest: s.dest, Err: err}
		}
	}
	return err
}

// Abort discards a file destination without touching path. It is a no-op
// for stdout and after Close.
func (s *WriterSink) Abort() {
	if s.file == nil {
		return
	}
	s.file.Close()
	os.Remove(s.file.Name())
	s.file = nil
}

var _ tracking.Sink = (*WriterSink)(nil)
