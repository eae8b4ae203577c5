package device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"
)

const DefaultPath = "/dev/ttyUSB0"

// Port is an opened device handle.
type Port interface {
	io.WriteCloser
	SetWriteDeadline(t time.Time) error
}

// OpenFunc opens the device at path for read and write.
type OpenFunc func(path string) (Port, error)

// Config configures a Writer.
type Config struct {
	Path         string
	WriteTimeout time.Duration
	Open         OpenFunc
}

// Stats is a snapshot of write totals since the Writer was created.
type Stats struct {
	Writes   uint64
	Failures uint64
	Bytes    uint64
}

// Writer serializes command writes to one device path.
type Writer struct {
	path    string
	timeout time.Duration
	open    OpenFunc

	// sem holds one token; owning it is owning the device.
	sem chan struct{}

	writes   atomic.Uint64
	failures atomic.Uint64
	bytes    atomic.Uint64
}

func NewWriter(cfg Config) (*Writer, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, ErrInvalidPath
	}
	open := cfg.Open
	if open == nil {
		open = OpenFile
	}
	w := &Writer{
		path:    path,
		timeout: cfg.WriteTimeout,
		open:    open,
		sem:     make(chan struct{}, 1),
	}
	w.sem <- struct{}{}
	return w, nil
}

// OpenFile opens path as a plain read/write file.
func OpenFile(path string) (Port, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (w *Writer) Path() string {
	return w.path
}

// Write sends command to the device in one open/write/close cycle. It waits
// for any in-flight cycle to finish first; ctx bounds only that wait.
func (w *Writer) Write(ctx context.Context, command string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-w.sem:
	}
	defer func() { w.sem <- struct{}{} }()

	err := w.writeOnce([]byte(command))
	if err != nil {
		w.failures.Add(1)
		return err
	}
	w.writes.Add(1)
	w.bytes.Add(uint64(len(command)))
	return nil
}

func (w *Writer) writeOnce(payload []byte) error {
	port, err := w.open(w.path)
	if err != nil {
		return &Error{Path: w.path, Kind: ErrOpen, Err: err}
	}
	defer port.Close()

	if w.timeout > 0 {
		if err := port.SetWriteDeadline(time.Now().Add(w.timeout)); err != nil && !errors.Is(err, os.ErrNoDeadline) {
			return &Error{Path: w.path, Kind: ErrWrite, Err: err}
		}
	}

	n, err := port.Write(payload)
	if err != nil {
		return &Error{Path: w.path, Kind: ErrWrite, Err: err}
	}
	if n != len(payload) {
		return &Error{
			Path: w.path,
			Kind: ErrShortWrite,
			Err:  fmt.Errorf("wrote %d of %d bytes", n, len(payload)),
		}
	}
	return nil
}

func (w *Writer) Stats() Stats {
	return Stats{
		Writes:   w.writes.Load(),
		Failures: w.failures.Load(),
		Bytes:    w.bytes.Load(),
	}
}
