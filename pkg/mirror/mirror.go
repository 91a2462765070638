// Package mirror maintains a replica of the native tree by applying the
// snapshots and mutation batches the bridge sends. It is what a native
// renderer does with the sync traffic, written in Go for convergence
// checks, replays and the inspector.
package mirror

import (
	"slices"
	"sync"

	"github.com/vango-dev/nativebridge/internal/errors"
	"github.com/vango-dev/nativebridge/pkg/protocol"
)

// Node is one replicated node.
type Node struct {
	protocol.SerializedNode
	Children  []protocol.NodeID
	Listeners map[string]struct{}
}

// Mirror is a replica of the native tree. It is safe for concurrent use.
type Mirror struct {
	mu      sync.RWMutex
	nodes   map[protocol.NodeID]*Node
	top     []protocol.NodeID
	lastSeq uint64
	synced  bool
}

// New returns an empty mirror.
func New() *Mirror {
	return &Mirror{nodes: make(map[protocol.NodeID]*Node)}
}

// Len returns the number of replicated nodes.
func (m *Mirror) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.nodes)
}

// LastSeq returns the sequence number of the last applied batch.
func (m *Mirror) LastSeq() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastSeq
}

// Reset empties the mirror and forgets the batch sequence, so a new
// session can start again from seq 1.
func (m *Mirror) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset()
	m.lastSeq = 0
}

func (m *Mirror) reset() {
	m.nodes = make(map[protocol.NodeID]*Node)
	m.top = nil
	m.synced = false
}

// ApplySnapshot replaces the replica with s. Nodes must be in pre-order:
// every parent precedes its children. Listener declarations are dropped,
// as the native side forgets them on a snapshot.
func (m *Mirror) ApplySnapshot(s protocol.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset()
	for _, sn := range s.Nodes {
		if _, dup := m.nodes[sn.ID]; dup {
			return errors.New("B031").WithDetailf("snapshot lists node %d twice", sn.ID)
		}
		if sn.Parent != 0 {
			if _, ok := m.nodes[sn.Parent]; !ok {
				return errors.New("B031").WithDetailf("node %d precedes its parent %d", sn.ID, sn.Parent)
			}
		}
		m.nodes[sn.ID] = &Node{SerializedNode: sn, Listeners: make(map[string]struct{})}
		m.insert(sn.ID, sn.Parent, 0)
	}
	m.synced = true
	return nil
}

// ApplyBatch applies b. Sequence numbers must increase strictly. Ops
// before a failing op stay applied, as they would on the native side.
func (m *Mirror) ApplyBatch(b protocol.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.Seq <= m.lastSeq {
		return errors.New("B020").WithDetailf("seq %d is not after %d", b.Seq, m.lastSeq)
	}
	m.lastSeq = b.Seq
	for i, op := range b.Ops {
		if err := m.apply(op); err != nil {
			return errors.New("B020").Wrap(err).WithDetailf("op %d (%s #%d) of batch %d", i, op.Op, op.ID, b.Seq)
		}
	}
	m.synced = true
	return nil
}

// Apply applies a single op outside any batch.
func (m *Mirror) Apply(op protocol.MutationOp) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.apply(op)
}

func (m *Mirror) apply(op protocol.MutationOp) error {
	if op.Op == protocol.OpCreate {
		return m.create(op)
	}
	n, ok := m.nodes[op.ID]
	if !ok {
		return errors.New("B030").WithDetailf("node %d", op.ID)
	}
	switch op.Op {
	case protocol.OpRemove:
		m.detach(n)
		m.drop(n)
	case protocol.OpMove:
		parent := deref(op.Parent)
		if err := m.checkParent(n.ID, parent); err != nil {
			return err
		}
		m.detach(n)
		m.insert(n.ID, parent, deref(op.Before))
	case protocol.OpSetText:
		n.Text = op.Text
	case protocol.OpSetClass:
		n.ClassName = deref(op.ClassName)
	case protocol.OpSetTransform:
		n.TransformFields = op.TransformFields
	case protocol.OpSetVisual:
		n.VisualFields = op.VisualFields
	case protocol.OpSetScroll:
		n.ScrollFields = op.ScrollFields
	case protocol.OpSetFocus:
		n.FocusFields = op.FocusFields
	case protocol.OpSetAnchor:
		n.AnchorFields = op.AnchorFields
	case protocol.OpSetAccessibility:
		n.AccessibilityFields = op.AccessibilityFields
	case protocol.OpSet:
		switch op.Name {
		case protocol.SetValue:
			n.Value = op.Value
		case protocol.SetSrc:
			n.Src = op.Src
		case protocol.SetIconKind:
			n.IconKind = op.Value
		case protocol.SetIconGlyph:
			n.IconGlyph = op.Value
		default:
			return errors.New("B031").WithDetailf("unknown set name %q", op.Name)
		}
	case protocol.OpListen:
		n.Listeners[op.EventType] = struct{}{}
	case protocol.OpUnlisten:
		delete(n.Listeners, op.EventType)
	default:
		return errors.New("B031").WithDetailf("unknown op %q", op.Op)
	}
	return nil
}

// create instantiates a node. A create for an existing id replaces its
// fields and moves it, keeping its children and listeners.
func (m *Mirror) create(op protocol.MutationOp) error {
	parent := deref(op.Parent)
	if err := m.checkParent(op.ID, parent); err != nil {
		return err
	}
	n, ok := m.nodes[op.ID]
	if ok {
		m.detach(n)
	} else {
		n = &Node{Listeners: make(map[string]struct{})}
		m.nodes[op.ID] = n
	}
	n.SerializedNode = protocol.SerializedNode{
		ID:        op.ID,
		Tag:       op.Tag,
		Parent:    parent,
		Text:      op.Text,
		Value:     op.Value,
		Src:       op.Src,
		ClassName: deref(op.ClassName),
		Groups:    op.Groups,
	}
	m.insert(op.ID, parent, deref(op.Before))
	return nil
}

func (m *Mirror) checkParent(id, parent protocol.NodeID) error {
	if parent == 0 {
		return nil
	}
	if _, ok := m.nodes[parent]; !ok {
		return errors.New("B030").WithDetailf("parent %d of node %d", parent, id)
	}
	for p := parent; p != 0; p = m.nodes[p].Parent {
		if p == id {
			return errors.New("B031").WithDetailf("moving %d under %d would create a cycle", id, parent)
		}
	}
	return nil
}

func (m *Mirror) children(parent protocol.NodeID) *[]protocol.NodeID {
	if parent == 0 {
		return &m.top
	}
	return &m.nodes[parent].Children
}

// insert places id under parent before the sibling before. An unknown
// or foreign before appends.
func (m *Mirror) insert(id, parent, before protocol.NodeID) {
	m.nodes[id].Parent = parent
	list := m.children(parent)
	i := len(*list)
	if before != 0 {
		if j := slices.Index(*list, before); j >= 0 {
			i = j
		}
	}
	*list = slices.Insert(*list, i, id)
}

func (m *Mirror) detach(n *Node) {
	if n.Parent != 0 {
		if _, ok := m.nodes[n.Parent]; !ok {
			return
		}
	}
	list := m.children(n.Parent)
	if i := slices.Index(*list, n.ID); i >= 0 {
		*list = slices.Delete(*list, i, i+1)
	}
}

func (m *Mirror) drop(n *Node) {
	for _, id := range n.Children {
		if c, ok := m.nodes[id]; ok {
			m.drop(c)
		}
	}
	delete(m.nodes, n.ID)
}

// Flatten returns the replica in snapshot order.
func (m *Mirror) Flatten() []protocol.SerializedNode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]protocol.SerializedNode, 0, len(m.nodes))
	var walk func(ids []protocol.NodeID)
	walk = func(ids []protocol.NodeID) {
		for _, id := range ids {
			n := m.nodes[id]
			out = append(out, n.SerializedNode)
			walk(n.Children)
		}
	}
	walk(m.top)
	return out
}

// Snapshot returns the replica as a snapshot.
func (m *Mirror) Snapshot() protocol.Snapshot {
	return protocol.Snapshot{Nodes: m.Flatten()}
}

// Node returns a copy of the replicated node with id.
func (m *Mirror) Node(id protocol.NodeID) (Node, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[id]
	if !ok {
		return Node{}, false
	}
	c := *n
	c.Children = slices.Clone(n.Children)
	c.Listeners = make(map[string]struct{}, len(n.Listeners))
	for k := range n.Listeners {
		c.Listeners[k] = struct{}{}
	}
	return c, true
}

// Listeners returns the declared listeners of id, sorted.
func (m *Mirror) Listeners(id protocol.NodeID) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[id]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(n.Listeners))
	for k := range n.Listeners {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
