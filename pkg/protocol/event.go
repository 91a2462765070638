package protocol

// EventKind is the enumerated event type written by the native side.
type EventKind uint8

// Event kinds.
const (
	KindClick      EventKind = 0
	KindInput      EventKind = 1
	KindFocus      EventKind = 2
	KindBlur       EventKind = 3
	KindMouseEnter EventKind = 4
	KindMouseLeave EventKind = 5
	KindKeyDown    EventKind = 6
	KindKeyUp      EventKind = 7
	KindChange     EventKind = 8
	KindSubmit     EventKind = 9
	KindScroll     EventKind = 20
)

var kindNames = map[EventKind]string{
	KindClick:      "click",
	KindInput:      "input",
	KindFocus:      "focus",
	KindBlur:       "blur",
	KindMouseEnter: "mouseenter",
	KindMouseLeave: "mouseleave",
	KindKeyDown:    "keydown",
	KindKeyUp:      "keyup",
	KindChange:     "change",
	KindSubmit:     "submit",
	KindScroll:     "scroll",
}

var namedKinds = func() map[string]EventKind {
	m := make(map[string]EventKind, len(kindNames))
	for k, n := range kindNames {
		m[n] = k
	}
	return m
}()

// String returns the listener name for k, or "unknown".
func (k EventKind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "unknown"
}

// KindByName returns the kind for a listener name.
func KindByName(name string) (EventKind, bool) {
	k, ok := namedKinds[name]
	return k, ok
}
