package recording

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vango-dev/nativebridge/internal/errors"
	"github.com/vango-dev/nativebridge/pkg/adapter"
	"github.com/vango-dev/nativebridge/pkg/render"
)

// Recorder is a renderer decorator that records every call to a sink.
// It exposes the optional interfaces of the wrapped renderer only, as
// reported through adapter.Featured.
type Recorder struct {
	inner   adapter.Renderer
	sink    Sink
	session string
	logger  *slog.Logger
	now     func() time.Time

	mu       sync.Mutex
	seq      uint64
	failures int
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithSession sets the session id. The default is a new UUIDv7.
func WithSession(id string) RecorderOption {
	return func(r *Recorder) { r.session = id }
}

// WithRecorderLogger sets the logger.
func WithRecorderLogger(l *slog.Logger) RecorderOption {
	return func(r *Recorder) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) { r.now = now }
}

// NewRecorder wraps inner, writing entries to sink.
func NewRecorder(inner adapter.Renderer, sink Sink, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		inner:  inner,
		sink:   sink,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.session == "" {
		r.session = uuid.Must(uuid.NewV7()).String()
	}
	r.logger = r.logger.With("component", "recorder", "session", r.session)
	return r
}

var (
	_ adapter.Renderer   = (*Recorder)(nil)
	_ adapter.OpsApplier = (*Recorder)(nil)
	_ adapter.TreeSetter = (*Recorder)(nil)
	_ adapter.TextSetter = (*Recorder)(nil)
	_ adapter.EventRing  = (*Recorder)(nil)
	_ adapter.Featured   = (*Recorder)(nil)
)

// Session returns the session id.
func (r *Recorder) Session() string { return r.session }

// Inner returns the wrapped renderer.
func (r *Recorder) Inner() adapter.Renderer { return r.inner }

// Failures returns how many entries the sink refused.
func (r *Recorder) Failures() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failures
}

// record writes an entry. Sink failures are logged and counted; they
// never reach the bridge.
func (r *Recorder) record(kind Kind, accepted bool, payload []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	e := Entry{
		Session:  r.session,
		Seq:      r.seq,
		Time:     r.now().UTC(),
		Kind:     kind,
		Accepted: accepted,
		Payload:  json.RawMessage(bytes.Clone(payload)),
	}
	if err := r.sink.Write(e); err != nil {
		r.failures++
		r.logger.Warn("recording failed", "code", "B061", "kind", kind, "seq", e.Seq, "error", err)
	}
}

func (r *Recorder) recordJSON(kind Kind, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		r.logger.Warn("recording failed", "code", "B061", "kind", kind, "error", err)
		return
	}
	r.record(kind, true, payload)
}

// Supports implements adapter.Featured.
func (r *Recorder) Supports(f adapter.Feature) bool {
	return adapter.Supports(r.inner, f)
}

func (r *Recorder) Commit(bufs render.Buffers) error {
	err := r.inner.Commit(bufs)
	if err == nil {
		r.recordJSON(KindCommit, Frame{Count: bufs.Count, Headers: bufs.Headers, Payload: bufs.Payload})
	}
	return err
}

func (r *Recorder) Present() { r.inner.Present() }

func (r *Recorder) Resize(width, height uint32) {
	r.inner.Resize(width, height)
	r.recordJSON(KindResize, Size{Width: width, Height: height})
}

// OnEvent registers fn with the wrapped renderer, recording each event
// before it is delivered.
func (r *Recorder) OnEvent(fn adapter.EventHandler) {
	if fn == nil {
		r.inner.OnEvent(nil)
		return
	}
	r.inner.OnEvent(func(name string, payload []byte) {
		r.recordJSON(KindEvent, Event{Name: name, Payload: payload})
		fn(name, payload)
	})
}

// Close closes the wrapped renderer and then the sink.
func (r *Recorder) Close() error {
	err := r.inner.Close()
	r.record(KindClose, err == nil, nil)
	if serr := r.sink.Close(); serr != nil && err == nil {
		err = errors.New("B061").Wrap(serr)
	}
	return err
}

func (r *Recorder) Capabilities() adapter.Capabilities { return r.inner.Capabilities() }

func (r *Recorder) Disposed() bool { return r.inner.Disposed() }

// ApplyOps forwards the batch and records it with the verdict.
func (r *Recorder) ApplyOps(payload []byte) bool {
	a, ok := adapter.AsOpsApplier(r.inner)
	if !ok {
		return false
	}
	accepted := a.ApplyOps(payload)
	r.record(KindBatch, accepted, payload)
	return accepted
}

func (r *Recorder) SetSolidTree(payload []byte) {
	if t, ok := adapter.AsTreeSetter(r.inner); ok {
		t.SetSolidTree(payload)
		r.record(KindSnapshot, true, payload)
	}
}

func (r *Recorder) SetText(text string) {
	if t, ok := adapter.AsTextSetter(r.inner); ok {
		t.SetText(text)
		r.recordJSON(KindText, text)
	}
}

func (r *Recorder) EventRingHeader(buf []byte) int {
	if e, ok := adapter.AsEventRing(r.inner); ok {
		return e.EventRingHeader(buf)
	}
	return 0
}

func (r *Recorder) EventRingEntries(capacity uint32) []byte {
	if e, ok := adapter.AsEventRing(r.inner); ok {
		return e.EventRingEntries(capacity)
	}
	return nil
}

func (r *Recorder) EventRingDetail(detailCapacity uint32) []byte {
	if e, ok := adapter.AsEventRing(r.inner); ok {
		return e.EventRingDetail(detailCapacity)
	}
	return nil
}

func (r *Recorder) AcknowledgeEvents(readHead uint32) {
	if e, ok := adapter.AsEventRing(r.inner); ok {
		e.AcknowledgeEvents(readHead)
	}
}
