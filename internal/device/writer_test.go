package device

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gardenzilla/cashregisterbridge/internal/testutil/testlog"
	"github.com/rs/zerolog/log"
)

type recordingPort struct {
	dev     *recordingDevice
	short   bool
	failErr error
}

type recordingDevice struct {
	mu       sync.Mutex
	writes   []string
	inflight atomic.Int32
	overlap  atomic.Bool
	closed   atomic.Int32
}

func (p *recordingPort) Write(b []byte) (int, error) {
	if p.dev.inflight.Add(1) > 1 {
		p.dev.overlap.Store(true)
	}
	defer p.dev.inflight.Add(-1)
	time.Sleep(time.Millisecond)

	if p.failErr != nil {
		return 0, p.failErr
	}
	if p.short {
		return len(b) / 2, nil
	}
	p.dev.mu.Lock()
	p.dev.writes = append(p.dev.writes, string(b))
	p.dev.mu.Unlock()
	return len(b), nil
}

func (p *recordingPort) Close() error {
	p.dev.closed.Add(1)
	return nil
}

func (p *recordingPort) SetWriteDeadline(time.Time) error { return os.ErrNoDeadline }

func TestWriterWritesFileAndReleasesHandle(t *testing.T) {
	testlog.Start(t)

	path := filepath.Join(t.TempDir(), "ttyUSB0")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatalf("create device file: %v", err)
	}
	w, err := NewWriter(Config{Path: path, WriteTimeout: time.Second})
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}

	cmd := `fiscat/AEE|SLD|||0|||""|1|Tételek|8|500|||P`
	if err := w.Write(context.Background(), cmd); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(got) != cmd {
		t.Fatalf("unexpected device content: %q", got)
	}
	stats := w.Stats()
	if stats.Writes != 1 || stats.Failures != 0 || stats.Bytes != uint64(len(cmd)) {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	log.Debug().Str("device", path).Msg("device/write: file sink received command")
}

func TestWriterOpenFailureIsReported(t *testing.T) {
	testlog.Start(t)

	path := filepath.Join(t.TempDir(), "missing", "ttyUSB0")
	w, err := NewWriter(Config{Path: path})
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	err = w.Write(context.Background(), "x")
	if !errors.Is(err, ErrOpen) {
		t.Fatalf("expected ErrOpen, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected cause to be preserved, got %v", err)
	}
	var devErr *Error
	if !errors.As(err, &devErr) || devErr.Path != path {
		t.Fatalf("expected *Error for %q, got %#v", path, err)
	}
	if w.Stats().Failures != 1 {
		t.Fatalf("expected one failure, got %+v", w.Stats())
	}

	// the writer stays usable after a failure
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatalf("create device file: %v", err)
	}
	if err := w.Write(context.Background(), "y"); err != nil {
		t.Fatalf("write after recovery: %v", err)
	}
}

func TestWriterShortAndFailedWrites(t *testing.T) {
	testlog.Start(t)

	dev := &recordingDevice{}
	short, _ := NewWriter(Config{Path: "/dev/null-short", WriteTimeout: time.Second, Open: func(string) (Port, error) {
		return &recordingPort{dev: dev, short: true}, nil
	}})
	if err := short.Write(context.Background(), "abcdef"); !errors.Is(err, ErrShortWrite) {
		t.Fatalf("expected ErrShortWrite, got %v", err)
	}

	boom := errors.New("io timeout")
	failing, _ := NewWriter(Config{Path: "/dev/null-fail", Open: func(string) (Port, error) {
		return &recordingPort{dev: dev, failErr: boom}, nil
	}})
	if err := failing.Write(context.Background(), "abcdef"); !errors.Is(err, ErrWrite) || !errors.Is(err, boom) {
		t.Fatalf("expected ErrWrite wrapping cause, got %v", err)
	}
	if dev.closed.Load() != 2 {
		t.Fatalf("expected every opened port to be closed, closed=%d", dev.closed.Load())
	}
}

func TestWriterSerializesConcurrentWrites(t *testing.T) {
	testlog.Start(t)

	dev := &recordingDevice{}
	w, err := NewWriter(Config{Path: "/dev/fake", Open: func(string) (Port, error) {
		return &recordingPort{dev: dev}, nil
	}})
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}

	const producers = 16
	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := w.Write(context.Background(), "cmd-"+strconv.Itoa(i)); err != nil {
				t.Errorf("write %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	if dev.overlap.Load() {
		t.Fatalf("device writes overlapped")
	}
	if len(dev.writes) != producers {
		t.Fatalf("expected %d writes, got %d", producers, len(dev.writes))
	}
	if int(dev.closed.Load()) != producers {
		t.Fatalf("expected one open/close per write, closed=%d", dev.closed.Load())
	}
}

func TestWriterWaitHonorsContext(t *testing.T) {
	testlog.Start(t)

	w, err := NewWriter(Config{Path: "/dev/fake"})
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	<-w.sem
	defer func() { w.sem <- struct{}{} }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := w.Write(ctx, "x"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded while device busy, got %v", err)
	}
}

func TestNewWriterRequiresPath(t *testing.T) {
	testlog.Start(t)

	if _, err := NewWriter(Config{Path: "  "}); !errors.Is(err, ErrInvalidPath) {
		t.Fatalf("expected ErrInvalidPath, got %v", err)
	}
}
