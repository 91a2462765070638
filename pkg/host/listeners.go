package host

import (
	"slices"

	"github.com/vango-dev/nativebridge/internal/errors"
	"github.com/vango-dev/nativebridge/pkg/protocol"
)

// ListenerDecl is one listener declaration owed to the native side.
type ListenerDecl struct {
	ID    protocol.NodeID
	Event string
}

// On registers fn for event on node id and returns a reference for Off.
func (h *Host) On(id protocol.NodeID, event string, fn Handler) (ListenerRef, error) {
	n, err := h.lookup(id)
	if err != nil {
		return 0, err
	}
	if fn == nil {
		return 0, errors.Newf(errors.CategoryTree, "nil handler for %q on node %d", event, id)
	}
	ref := h.on(n, event, fn)
	h.schedule()
	return ref, nil
}

func (h *Host) on(n *Node, event string, fn Handler) ListenerRef {
	h.nextRef++
	n.listeners[event] = append(n.listeners[event], listener{ref: h.nextRef, fn: fn})
	n.ListenersDirty = true
	return h.nextRef
}

// Off removes the handler identified by ref, or every handler for event
// when ref is zero. Removing the last handler of an event that was
// already declared queues an unlisten op.
func (h *Host) Off(id protocol.NodeID, event string, ref ListenerRef) error {
	n, err := h.lookup(id)
	if err != nil {
		return err
	}
	if h.off(n, event, ref) {
		h.schedule()
	}
	return nil
}

func (h *Host) off(n *Node, event string, ref ListenerRef) bool {
	ls, ok := n.listeners[event]
	if !ok {
		return false
	}
	if ref == 0 {
		ls = nil
	} else {
		i := slices.IndexFunc(ls, func(l listener) bool { return l.ref == ref })
		if i < 0 {
			return false
		}
		ls = slices.Delete(ls, i, i+1)
	}
	if bound, ok := n.propHandlers[event]; ok && (ref == 0 || bound == ref) {
		delete(n.propHandlers, event)
	}
	if len(ls) > 0 {
		n.listeners[event] = ls
		return true
	}
	delete(n.listeners, event)
	if _, sent := n.SentListeners[event]; sent {
		delete(n.SentListeners, event)
		if n.Created {
			h.push(protocol.NewUnlistenOp(n.ID, event))
		}
	}
	return true
}

// bindProp installs the handler set through a property such as onClick,
// replacing the previous property-bound handler for the event.
func (h *Host) bindProp(n *Node, event string, value any) {
	old, hadOld := n.propHandlers[event]
	if fn := asHandler(value); fn != nil {
		if n.propHandlers == nil {
			n.propHandlers = make(map[string]ListenerRef)
		}
		n.propHandlers[event] = h.on(n, event, fn)
	}
	if hadOld {
		h.off(n, event, old)
	}
}

func asHandler(v any) Handler {
	switch fn := v.(type) {
	case Handler:
		return fn
	case func(Event) error:
		return fn
	case func(Event):
		return func(e Event) error { fn(e); return nil }
	case func([]byte):
		return func(e Event) error { fn(e.Payload); return nil }
	case func():
		return func(Event) error { fn(); return nil }
	}
	return nil
}

// PendingListeners returns the listener declarations the native side has
// not seen yet, ordered by node id then event name. Only created,
// non-transparent nodes are considered. Nodes that are marked dirty but
// owe nothing have the mark cleared.
func (h *Host) PendingListeners() []ListenerDecl {
	ids := make([]protocol.NodeID, 0, len(h.nodes))
	for id, n := range h.nodes {
		if n.removed || n == h.root || n.Transparent() || !n.Created {
			continue
		}
		if !n.ListenersDirty && len(n.SentListeners) >= len(n.listeners) {
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)

	var decls []ListenerDecl
	for _, id := range ids {
		n := h.nodes[id]
		owed := false
		for _, event := range n.Listeners() {
			if _, sent := n.SentListeners[event]; sent {
				continue
			}
			decls = append(decls, ListenerDecl{ID: id, Event: event})
			owed = true
		}
		if !owed {
			n.ListenersDirty = false
		}
	}
	return decls
}

// ListenOps converts declarations into listen ops.
func ListenOps(decls []ListenerDecl) []protocol.MutationOp {
	ops := make([]protocol.MutationOp, len(decls))
	for i, d := range decls {
		ops[i] = protocol.NewListenOp(d.ID, d.Event)
	}
	return ops
}

// CommitListeners records decls as delivered.
func (h *Host) CommitListeners(decls []ListenerDecl) {
	touched := make(map[*Node]struct{})
	for _, d := range decls {
		n, ok := h.nodes[d.ID]
		if !ok || !n.HasListener(d.Event) {
			continue
		}
		n.SentListeners[d.Event] = struct{}{}
		touched[n] = struct{}{}
	}
	for n := range touched {
		if len(n.SentListeners) >= len(n.listeners) {
			n.ListenersDirty = false
		}
	}
}
