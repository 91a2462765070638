package host

import (
	"slices"

	"github.com/vango-dev/nativebridge/pkg/protocol"
)

// Tags with special meaning to the host.
const (
	TagRoot   = "root"
	TagText   = "text"
	TagSlot   = "slot"
	TagPortal = "portal"
	TagImage  = "image"
)

// Event is delivered to listeners when the native side reports input.
type Event struct {
	// Name is the listener name, e.g. "click".
	Name string

	// NodeID is the node the event was dispatched to.
	NodeID protocol.NodeID

	// Detail is the decoded UTF-8 detail, if any (input value, key name).
	Detail string

	// Payload is the little-endian node id followed by the detail bytes.
	Payload []byte
}

// Handler handles an event. A returned error is logged by the dispatcher.
type Handler func(Event) error

// ListenerRef identifies one registered handler so it can be removed.
// The zero ref means "every handler for the event" when passed to Off.
type ListenerRef uint64

type listener struct {
	ref ListenerRef
	fn  Handler
}

// Node is one element of the host tree. Nodes live in the Host's arena and
// reference each other by id. Fields are read-only outside this package.
type Node struct {
	ID       protocol.NodeID
	Tag      string
	Parent   protocol.NodeID
	Children []protocol.NodeID
	Props    Props

	// SentListeners holds the event names already declared to the
	// native side.
	SentListeners map[string]struct{}

	// ListenersDirty is set when listeners changed since the last
	// declaration.
	ListenersDirty bool

	// Created is set once the native side knows this id.
	Created bool

	listeners    map[string][]listener
	propHandlers map[string]ListenerRef
	removed      bool
}

func newNode(id protocol.NodeID, tag string) *Node {
	return &Node{
		ID:            id,
		Tag:           tag,
		Props:         Props{},
		SentListeners: map[string]struct{}{},
		listeners:     map[string][]listener{},
	}
}

// IsText reports whether n is a text node.
func (n *Node) IsText() bool { return n.Tag == TagText }

// Transparent reports whether n only groups its children. Transparent
// nodes are never serialized or drawn, and never act as a parent on the
// native side.
func (n *Node) Transparent() bool {
	return n.Tag == TagSlot || n.Tag == TagPortal
}

// Listeners returns the event names n listens for, sorted.
func (n *Node) Listeners() []string {
	names := make([]string, 0, len(n.listeners))
	for name := range n.listeners {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// HasListener reports whether n has at least one handler for event.
func (n *Node) HasListener(event string) bool {
	return len(n.listeners[event]) > 0
}

// Handlers returns a copy of the handlers registered for event, in
// registration order.
func (n *Node) Handlers(event string) []Handler {
	ls := n.listeners[event]
	if len(ls) == 0 {
		return nil
	}
	out := make([]Handler, len(ls))
	for i, l := range ls {
		out[i] = l.fn
	}
	return out
}

func (n *Node) indexOf(child protocol.NodeID) int {
	return slices.Index(n.Children, child)
}
