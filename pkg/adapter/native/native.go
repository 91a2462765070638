//go:build darwin || linux

package native

import (
	"log/slog"
	"slices"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"

	"github.com/vango-dev/nativebridge/internal/errors"
	"github.com/vango-dev/nativebridge/pkg/adapter"
	"github.com/vango-dev/nativebridge/pkg/render"
)

const rtldLazy = 0x1

type library struct {
	createRenderer  func(logCb, eventCb uintptr) uintptr
	destroyRenderer func(h uintptr)
	resizeRenderer  func(h uintptr, width, height uint32)
	commitCommands  func(h uintptr, headers unsafe.Pointer, headersLen uintptr, payload unsafe.Pointer, payloadLen uintptr, count uint32)
	presentRenderer func(h uintptr)

	setText       func(h uintptr, data unsafe.Pointer, n uintptr)
	setSolidTree  func(h uintptr, data unsafe.Pointer, n uintptr)
	applySolidOps func(h uintptr, data unsafe.Pointer, n uintptr) bool
	ringHeader    func(h uintptr, buf unsafe.Pointer, n uintptr) uintptr
	ringBuffer    func(h uintptr) unsafe.Pointer
	ringDetail    func(h uintptr) unsafe.Pointer
	acknowledge   func(h uintptr, readHead uint32)
}

// load opens path and binds its symbols. Missing optional symbols leave
// the matching field nil.
func load(path string) (*library, error) {
	handle, err := purego.Dlopen(path, rtldLazy)
	if err != nil {
		return nil, errors.New("B011").WithDetailf("dlopen %s", path).Wrap(err)
	}
	lib := &library{}
	required := []struct {
		fn   any
		name string
	}{
		{&lib.createRenderer, "createRenderer"},
		{&lib.destroyRenderer, "destroyRenderer"},
		{&lib.resizeRenderer, "resizeRenderer"},
		{&lib.commitCommands, "commitCommands"},
		{&lib.presentRenderer, "presentRenderer"},
	}
	for _, s := range required {
		if _, err := purego.Dlsym(handle, s.name); err != nil {
			return nil, errors.New("B011").WithDetailf("%s: missing symbol %s", path, s.name).Wrap(err)
		}
		purego.RegisterLibFunc(s.fn, handle, s.name)
	}
	optional := []struct {
		fn   any
		name string
	}{
		{&lib.setText, "setRendererText"},
		{&lib.setSolidTree, "setRendererSolidTree"},
		{&lib.applySolidOps, "applyRendererSolidOps"},
		{&lib.ringHeader, "getEventRingHeader"},
		{&lib.ringBuffer, "getEventRingBuffer"},
		{&lib.ringDetail, "getEventRingDetail"},
		{&lib.acknowledge, "acknowledgeEvents"},
	}
	for _, s := range optional {
		if _, err := purego.Dlsym(handle, s.name); err == nil {
			purego.RegisterLibFunc(s.fn, handle, s.name)
		}
	}
	return lib, nil
}

// Renderer drives a native renderer handle.
type Renderer struct {
	lib    *library
	handle uintptr
	guard  adapter.Guard
	logger *slog.Logger

	mu       sync.Mutex
	handlers []adapter.EventHandler
}

// Option configures Open.
type Option func(*Renderer)

// WithLogger sets the logger native log callbacks are written to.
func WithLogger(l *slog.Logger) Option {
	return func(r *Renderer) { r.logger = l }
}

var (
	_ adapter.Renderer   = (*Renderer)(nil)
	_ adapter.OpsApplier = (*Renderer)(nil)
	_ adapter.TreeSetter = (*Renderer)(nil)
	_ adapter.TextSetter = (*Renderer)(nil)
	_ adapter.EventRing  = (*Renderer)(nil)
	_ adapter.Featured   = (*Renderer)(nil)
)

// Open loads the library at path and creates a renderer. An empty path
// uses DefaultLibraryName. No renderer is returned when the library
// cannot be loaded or refuses to create a handle.
func Open(path string, opts ...Option) (*Renderer, error) {
	if path == "" {
		path = DefaultLibraryName()
	}
	lib, err := load(path)
	if err != nil {
		return nil, err
	}
	r := &Renderer{lib: lib, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "native")

	logCb := purego.NewCallback(r.onLog)
	eventCb := purego.NewCallback(r.onEvent)
	r.handle = lib.createRenderer(logCb, eventCb)
	if r.handle == 0 {
		return nil, errors.New("B010").WithDetailf("createRenderer in %s returned null", path)
	}
	return r, nil
}

func (r *Renderer) onLog(level uintptr, msg unsafe.Pointer, n uintptr) {
	r.guard.Callback(func() {
		text := string(bytesAt(msg, n))
		switch {
		case level >= 3:
			r.logger.Error(text)
		case level == 2:
			r.logger.Warn(text)
		case level == 1:
			r.logger.Info(text)
		default:
			r.logger.Debug(text)
		}
	})
}

func (r *Renderer) onEvent(name unsafe.Pointer, nameLen uintptr, data unsafe.Pointer, dataLen uintptr) {
	if name == nil || nameLen == 0 {
		return
	}
	r.guard.Callback(func() {
		event := string(bytesAt(name, nameLen))
		payload := slices.Clone(bytesAt(data, dataLen))
		r.mu.Lock()
		handlers := slices.Clone(r.handlers)
		r.mu.Unlock()
		for _, fn := range handlers {
			fn(event, payload)
		}
	})
}

// bytesAt views n bytes of native memory at ptr. Callback arguments are
// only valid during the callback; ring regions live as long as the
// handle. The Go collector never owns ptr.
func bytesAt(ptr unsafe.Pointer, n uintptr) []byte {
	if ptr == nil || n == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(ptr), n)
}

func dataPtr(b []byte) unsafe.Pointer {
	if len(b) == 0 {
		return nil
	}
	return unsafe.Pointer(unsafe.SliceData(b))
}

// Supports implements adapter.Featured.
func (r *Renderer) Supports(f adapter.Feature) bool {
	switch f {
	case adapter.FeatureOps:
		return r.lib.applySolidOps != nil
	case adapter.FeatureTree:
		return r.lib.setSolidTree != nil
	case adapter.FeatureText:
		return r.lib.setText != nil
	case adapter.FeatureEventRing:
		return r.lib.ringHeader != nil && r.lib.ringBuffer != nil && r.lib.acknowledge != nil
	}
	return false
}

// Commit implements adapter.Renderer.
func (r *Renderer) Commit(bufs render.Buffers) error {
	if r.guard.Disposed() {
		return errors.New("B012")
	}
	r.lib.commitCommands(r.handle,
		dataPtr(bufs.Headers), uintptr(len(bufs.Headers)),
		dataPtr(bufs.Payload), uintptr(len(bufs.Payload)),
		uint32(bufs.Count))
	return nil
}

func (r *Renderer) Present() {
	if !r.guard.Disposed() {
		r.lib.presentRenderer(r.handle)
	}
}

func (r *Renderer) Resize(width, height uint32) {
	if !r.guard.Disposed() {
		r.lib.resizeRenderer(r.handle, width, height)
	}
}

// OnEvent implements adapter.Renderer.
func (r *Renderer) OnEvent(fn adapter.EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if fn == nil {
		r.handlers = nil
		return
	}
	r.handlers = append(r.handlers, fn)
}

// Close destroys the native handle once no callback is running.
func (r *Renderer) Close() error {
	r.guard.Close(func() {
		r.lib.destroyRenderer(r.handle)
		r.mu.Lock()
		r.handlers = nil
		r.mu.Unlock()
	})
	return nil
}

func (r *Renderer) Capabilities() adapter.Capabilities {
	return adapter.Capabilities{Window: true}
}

func (r *Renderer) Disposed() bool { return r.guard.Disposed() }

// ApplyOps implements adapter.OpsApplier.
func (r *Renderer) ApplyOps(payload []byte) bool {
	if r.guard.Disposed() || r.lib.applySolidOps == nil {
		return false
	}
	return r.lib.applySolidOps(r.handle, dataPtr(payload), uintptr(len(payload)))
}

// SetSolidTree implements adapter.TreeSetter.
func (r *Renderer) SetSolidTree(payload []byte) {
	if r.guard.Disposed() || r.lib.setSolidTree == nil {
		return
	}
	r.lib.setSolidTree(r.handle, dataPtr(payload), uintptr(len(payload)))
}

// SetText implements adapter.TextSetter.
func (r *Renderer) SetText(text string) {
	if r.guard.Disposed() || r.lib.setText == nil {
		return
	}
	b := []byte(text)
	r.lib.setText(r.handle, dataPtr(b), uintptr(len(b)))
}

// EventRingHeader implements adapter.EventRing.
func (r *Renderer) EventRingHeader(buf []byte) int {
	if r.guard.Disposed() || r.lib.ringHeader == nil || len(buf) == 0 {
		return 0
	}
	return int(r.lib.ringHeader(r.handle, dataPtr(buf), uintptr(len(buf))))
}

// EventRingEntries implements adapter.EventRing.
func (r *Renderer) EventRingEntries(capacity uint32) []byte {
	if r.guard.Disposed() || r.lib.ringBuffer == nil {
		return nil
	}
	return bytesAt(r.lib.ringBuffer(r.handle), uintptr(capacity)*16)
}

// EventRingDetail implements adapter.EventRing.
func (r *Renderer) EventRingDetail(detailCapacity uint32) []byte {
	if r.guard.Disposed() || r.lib.ringDetail == nil {
		return nil
	}
	return bytesAt(r.lib.ringDetail(r.handle), uintptr(detailCapacity))
}

// AcknowledgeEvents implements adapter.EventRing.
func (r *Renderer) AcknowledgeEvents(readHead uint32) {
	if !r.guard.Disposed() && r.lib.acknowledge != nil {
		r.lib.acknowledge(r.handle, readHead)
	}
}
