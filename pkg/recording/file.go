package recording

import (
	"bufio"
	"encoding/json"
	stderrors "errors"
	"io"
	"os"
	"sync"

	"github.com/vango-dev/nativebridge/internal/errors"
)

// FileSink writes entries as JSON Lines.
type FileSink struct {
	mu  sync.Mutex
	w   *bufio.Writer
	enc *json.Encoder
	c   io.Closer
}

// NewFileSink writes entries to w. If w is an io.Closer it is closed
// with the sink.
func NewFileSink(w io.Writer) *FileSink {
	bw := bufio.NewWriter(w)
	s := &FileSink{w: bw, enc: json.NewEncoder(bw)}
	if c, ok := w.(io.Closer); ok {
		s.c = c
	}
	return s
}

// CreateFile creates (or truncates) path and returns a sink writing to it.
func CreateFile(path string) (*FileSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.New("B061").Wrap(err).WithDetailf("cannot create %s", path)
	}
	return NewFileSink(f), nil
}

// Write appends e as one line.
func (s *FileSink) Write(e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enc == nil {
		return errors.New("B061").WithDetail("sink is closed")
	}
	if err := s.enc.Encode(e); err != nil {
		return errors.New("B061").Wrap(err)
	}
	return nil
}

// Flush writes buffered lines through.
func (s *FileSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.w == nil {
		return nil
	}
	return s.w.Flush()
}

// Close flushes and closes the underlying writer.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enc == nil {
		return nil
	}
	err := s.w.Flush()
	s.enc, s.w = nil, nil
	if s.c != nil {
		if cerr := s.c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// maxLine bounds a single recorded line; snapshots of large trees are
// the longest.
const maxLine = 64 << 20

// Read parses JSON Lines entries from r. Blank lines are skipped.
func Read(r io.Reader) ([]Entry, error) {
	var entries []Entry
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxLine)
	line := 0
	for sc.Scan() {
		line++
		b := sc.Bytes()
		if len(b) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(b, &e); err != nil {
			return nil, errors.New("B060").Wrap(err).WithDetailf("line %d", line)
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.New("B060").Wrap(err)
	}
	return entries, nil
}

// ReadFile reads a JSON Lines recording.
func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New("B060").Wrap(err)
	}
	defer f.Close()
	return Read(f)
}

func decodeError(e Entry, err error) error {
	return errors.New("B060").Wrap(err).WithDetailf("%s entry %d of session %s", e.Kind, e.Seq, e.Session)
}

// MultiSink writes every entry to several sinks.
type MultiSink []Sink

// Write writes e to every sink and joins the failures.
func (m MultiSink) Write(e Entry) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(e); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

// Close closes every sink.
func (m MultiSink) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}
