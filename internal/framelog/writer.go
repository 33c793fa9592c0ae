// Package framelog keeps an append-only log of every line received from the
// base station, one file per UTC day:
//
//	<dir>/2024/03/frames-2024-03-17.txt
package framelog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Writer appends lines to the file of the current day. It is safe for
// concurrent use.
type Writer struct {
	dir    string
	prefix string
	header string
	now    func() time.Time
	log    *zap.Logger

	mu   sync.Mutex
	file *os.File
	name string
}

// Option configures a Writer.
type Option func(*Writer)

// WithHeader writes header as the first line of every newly created file.
func WithHeader(header string) Option {
	return func(w *Writer) { w.header = header }
}

// WithClock replaces time.Now, used for file naming.
func WithClock(now func() time.Time) Option {
	return func(w *Writer) { w.now = now }
}

// WithLogger sets the logger used to report file rotation.
func WithLogger(log *zap.Logger) Option {
	return func(w *Writer) { w.log = log }
}

// New returns a writer rooted at dir. No file is opened until the first line.
func New(dir, prefix string, opts ...Option) *Writer {
	w := &Writer{dir: dir, prefix: prefix, now: time.Now, log: zap.NewNop()}
	for _, o := range opts {
		o(w)
	}
	return w
}

// FileName returns the path of the file used at t.
func (w *Writer) FileName(t time.Time) string {
	t = t.UTC()
	return filepath.Join(w.dir,
		t.Format("2006"), t.Format("01"),
		fmt.Sprintf("%s-%s.txt", w.prefix, t.Format("2006-01-02")))
}

// WriteLine appends line and a newline, switching files when the day
// changes, and flushes to disk.
func (w *Writer) WriteLine(line string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	fn := w.FileName(w.now())
	if w.file == nil || w.name != fn {
		if err := w.open(fn); err != nil {
			return err
		}
	}
	if _, err := w.file.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("write frame log %s: %w", w.name, err)
	}
	return w.file.Sync()
}

func (w *Writer) open(fn string) error {
	if w.file != nil {
		_ = w.file.Close()
		w.file = nil
	}
	if err := os.MkdirAll(filepath.Dir(fn), 0o755); err != nil {
		return fmt.Errorf("create frame log dir: %w", err)
	}
	_, statErr := os.Stat(fn)
	existed := statErr == nil

	f, err := os.OpenFile(fn, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open frame log: %w", err)
	}
	if w.header != "" && !existed {
		if _, err := f.WriteString(w.header + "\n"); err != nil {
			_ = f.Close()
			return fmt.Errorf("write frame log header: %w", err)
		}
	}
	w.file, w.name = f, fn

	state := "new"
	if existed {
		state = "existing"
	}
	w.log.Info("opened frame log", zap.String("state", state), zap.String("file", fn))
	return nil
}

// Close closes the current file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
