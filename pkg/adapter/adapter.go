package adapter

import "github.com/vango-dev/nativebridge/pkg/render"

// Capabilities describes what the renderer can present.
type Capabilities struct {
	// Window is true when the renderer owns an on-screen window.
	Window bool `json:"window"`
}

// EventHandler receives callback events. The payload starts with the
// little-endian target node id; id 0 addresses every listener.
type EventHandler func(name string, payload []byte)

// Renderer is the surface every native renderer implements.
type Renderer interface {
	// Commit hands over a frame of draw commands. The buffers are only
	// valid for the duration of the call.
	Commit(bufs render.Buffers) error
	Present()
	Resize(width, height uint32)
	// OnEvent adds a callback event handler. A nil handler removes all.
	OnEvent(fn EventHandler)
	Close() error
	Capabilities() Capabilities
	Disposed() bool
}

// OpsApplier applies encoded mutation batches. A false return rejects
// the batch and asks for a full snapshot.
type OpsApplier interface {
	ApplyOps(payload []byte) bool
}

// TreeSetter replaces the native tree with an encoded snapshot.
type TreeSetter interface {
	SetSolidTree(payload []byte)
}

// TextSetter shows plain text instead of a tree.
type TextSetter interface {
	SetText(text string)
}

// EventRing exposes a native event ring.
type EventRing interface {
	// EventRingHeader copies the ring header into buf and returns the
	// number of bytes copied, 0 when no ring exists.
	EventRingHeader(buf []byte) int
	// EventRingEntries returns the entry region for capacity slots.
	EventRingEntries(capacity uint32) []byte
	// EventRingDetail returns the detail region.
	EventRingDetail(detailCapacity uint32) []byte
	// AcknowledgeEvents advances the read head.
	AcknowledgeEvents(readHead uint32)
}

// Feature names an optional renderer interface.
type Feature uint8

const (
	FeatureOps Feature = iota + 1
	FeatureTree
	FeatureText
	FeatureEventRing
)

func (f Feature) String() string {
	switch f {
	case FeatureOps:
		return "ops"
	case FeatureTree:
		return "tree"
	case FeatureText:
		return "text"
	case FeatureEventRing:
		return "event_ring"
	default:
		return "unknown"
	}
}

// Featured is implemented by decorators that forward optional interfaces
// to a renderer which may not support them.
type Featured interface {
	Supports(f Feature) bool
}

func supported(r Renderer, f Feature) bool {
	if fr, ok := r.(Featured); ok {
		return fr.Supports(f)
	}
	return true
}

// AsOpsApplier returns r's OpsApplier if it really supports one.
func AsOpsApplier(r Renderer) (OpsApplier, bool) {
	a, ok := r.(OpsApplier)
	return a, ok && supported(r, FeatureOps)
}

// AsTreeSetter returns r's TreeSetter if it really supports one.
func AsTreeSetter(r Renderer) (TreeSetter, bool) {
	s, ok := r.(TreeSetter)
	return s, ok && supported(r, FeatureTree)
}

// AsTextSetter returns r's TextSetter if it really supports one.
func AsTextSetter(r Renderer) (TextSetter, bool) {
	s, ok := r.(TextSetter)
	return s, ok && supported(r, FeatureText)
}

// AsEventRing returns r's EventRing if it really supports one.
func AsEventRing(r Renderer) (EventRing, bool) {
	e, ok := r.(EventRing)
	return e, ok && supported(r, FeatureEventRing)
}

// Supports reports whether r supports f, honoring Featured.
func Supports(r Renderer, f Feature) bool {
	switch f {
	case FeatureOps:
		_, ok := AsOpsApplier(r)
		return ok
	case FeatureTree:
		_, ok := AsTreeSetter(r)
		return ok
	case FeatureText:
		_, ok := AsTextSetter(r)
		return ok
	case FeatureEventRing:
		_, ok := AsEventRing(r)
		return ok
	}
	return false
}
