package adapter

import (
	"bytes"
	"slices"
	"sync"

	"github.com/vango-dev/nativebridge/internal/errors"
	"github.com/vango-dev/nativebridge/pkg/render"
)

// Stub is a headless renderer. It records everything it receives and
// can be configured to lack optional features or to reject batches.
type Stub struct {
	guard Guard

	mu        sync.Mutex
	features  map[Feature]bool
	accept    func(payload []byte) bool
	ring      *Ring
	handlers  []EventHandler
	commits   []render.Buffers
	batches   [][]byte
	snapshots [][]byte
	texts     []string
	presents  int
	width     uint32
	height    uint32
}

// StubOption configures a Stub.
type StubOption func(*Stub)

// WithoutFeature removes an optional interface from the stub.
func WithoutFeature(f Feature) StubOption {
	return func(s *Stub) { s.features[f] = false }
}

// WithAcceptFunc decides whether each mutation batch is accepted. The
// default accepts everything.
func WithAcceptFunc(fn func(payload []byte) bool) StubOption {
	return func(s *Stub) { s.accept = fn }
}

// WithRing attaches an event ring.
func WithRing(r *Ring) StubOption {
	return func(s *Stub) {
		s.ring = r
		s.features[FeatureEventRing] = r != nil
	}
}

// NewStub returns a stub that supports ops, snapshots and text.
func NewStub(opts ...StubOption) *Stub {
	s := &Stub{
		features: map[Feature]bool{FeatureOps: true, FeatureTree: true, FeatureText: true},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var (
	_ Renderer   = (*Stub)(nil)
	_ OpsApplier = (*Stub)(nil)
	_ TreeSetter = (*Stub)(nil)
	_ TextSetter = (*Stub)(nil)
	_ EventRing  = (*Stub)(nil)
	_ Featured   = (*Stub)(nil)
)

// Supports implements Featured.
func (s *Stub) Supports(f Feature) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.features[f]
}

// Commit records a copy of bufs.
func (s *Stub) Commit(bufs render.Buffers) error {
	if s.guard.Disposed() {
		return errors.New("B012")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commits = append(s.commits, render.Buffers{
		Headers: bytes.Clone(bufs.Headers),
		Payload: bytes.Clone(bufs.Payload),
		Count:   bufs.Count,
	})
	return nil
}

func (s *Stub) Present() {
	s.mu.Lock()
	s.presents++
	s.mu.Unlock()
}

func (s *Stub) Resize(width, height uint32) {
	s.mu.Lock()
	s.width, s.height = width, height
	s.mu.Unlock()
}

// OnEvent implements Renderer.
func (s *Stub) OnEvent(fn EventHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn == nil {
		s.handlers = nil
		return
	}
	s.handlers = append(s.handlers, fn)
}

// Emit delivers a callback event to the registered handlers as the
// native side would.
func (s *Stub) Emit(name string, payload []byte) {
	if s.guard.Disposed() {
		return
	}
	s.mu.Lock()
	handlers := slices.Clone(s.handlers)
	s.mu.Unlock()
	s.guard.Callback(func() {
		for _, fn := range handlers {
			fn(name, payload)
		}
	})
}

// Close disposes the stub and drops its records once no callback is
// running.
func (s *Stub) Close() error {
	s.guard.Close(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.commits = nil
		s.handlers = nil
	})
	return nil
}

func (s *Stub) Capabilities() Capabilities { return Capabilities{} }

func (s *Stub) Disposed() bool { return s.guard.Disposed() }

// ApplyOps implements OpsApplier.
func (s *Stub) ApplyOps(payload []byte) bool {
	if s.guard.Disposed() {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, bytes.Clone(payload))
	if s.accept != nil {
		return s.accept(payload)
	}
	return true
}

// SetSolidTree implements TreeSetter.
func (s *Stub) SetSolidTree(payload []byte) {
	if s.guard.Disposed() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, bytes.Clone(payload))
}

// SetText implements TextSetter.
func (s *Stub) SetText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
}

// EventRingHeader implements EventRing. It reports no ring unless one
// was attached.
func (s *Stub) EventRingHeader(buf []byte) int {
	if s.ring == nil || s.guard.Disposed() {
		return 0
	}
	return s.ring.EventRingHeader(buf)
}

func (s *Stub) EventRingEntries(capacity uint32) []byte {
	if s.ring == nil {
		return nil
	}
	return s.ring.EventRingEntries(capacity)
}

func (s *Stub) EventRingDetail(detailCapacity uint32) []byte {
	if s.ring == nil {
		return nil
	}
	return s.ring.EventRingDetail(detailCapacity)
}

func (s *Stub) AcknowledgeEvents(readHead uint32) {
	if s.ring != nil {
		s.ring.AcknowledgeEvents(readHead)
	}
}

// Commits returns the recorded frames.
func (s *Stub) Commits() []render.Buffers {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.commits)
}

// Batches returns every payload passed to ApplyOps, accepted or not.
func (s *Stub) Batches() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.batches)
}

// Snapshots returns every payload passed to SetSolidTree.
func (s *Stub) Snapshots() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.snapshots)
}

// Texts returns every string passed to SetText.
func (s *Stub) Texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.texts)
}

// Presents returns how many times Present was called.
func (s *Stub) Presents() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presents
}

// Size returns the last size passed to Resize.
func (s *Stub) Size() (width, height uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}
