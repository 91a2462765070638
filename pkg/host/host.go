package host

import (
	"log/slog"
	"slices"

	"github.com/vango-dev/nativebridge/internal/errors"
	"github.com/vango-dev/nativebridge/pkg/protocol"
)

// Option configures a Host.
type Option func(*Host)

// WithScheduler sets the function called after every mutation. The bridge
// passes its flush scheduler here; scheduling must be idempotent.
func WithScheduler(fn func()) Option {
	return func(h *Host) {
		if fn != nil {
			h.schedule = fn
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Host) {
		if l != nil {
			h.logger = l
		}
	}
}

// Host owns the node arena and the queue of mutation ops produced since
// the last flush. It is not safe for concurrent use; every call must come
// from the goroutine driving the bridge.
type Host struct {
	nodes   map[protocol.NodeID]*Node
	root    *Node
	nextID  protocol.NodeID
	nextRef ListenerRef

	ops      []protocol.MutationOp
	schedule func()
	logger   *slog.Logger
}

// New creates a host with an empty root.
func New(opts ...Option) *Host {
	h := &Host{
		nodes:    make(map[protocol.NodeID]*Node),
		schedule: func() {},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With("component", "host")
	h.root = h.alloc(TagRoot)
	return h
}

func (h *Host) alloc(tag string) *Node {
	h.nextID++
	n := newNode(h.nextID, tag)
	h.nodes[n.ID] = n
	return n
}

// Root returns the root node. It is never serialized or drawn; its
// children are the top-level nodes on the native side.
func (h *Host) Root() *Node { return h.root }

// Node returns the live node with id. Removed nodes are not live.
func (h *Host) Node(id protocol.NodeID) (*Node, bool) {
	n, ok := h.nodes[id]
	if !ok || n.removed {
		return nil, false
	}
	return n, true
}

// Len returns the number of live nodes, excluding the root.
func (h *Host) Len() int {
	count := 0
	for _, n := range h.nodes {
		if !n.removed && n != h.root {
			count++
		}
	}
	return count
}

func (h *Host) lookup(id protocol.NodeID) (*Node, error) {
	n, ok := h.Node(id)
	if !ok {
		return nil, errors.New("B030").WithDetailf("node %d is not in the host tree", id)
	}
	return n, nil
}

// CreateElement creates a detached element node. "img" is normalized to
// "image".
func (h *Host) CreateElement(tag string) protocol.NodeID {
	if tag == "img" {
		tag = TagImage
	}
	return h.alloc(tag).ID
}

// CreateText creates a detached text node.
func (h *Host) CreateText(value string) protocol.NodeID {
	n := h.alloc(TagText)
	n.Props["text"] = value
	return n.ID
}

// CreateSlot creates a detached transparent slot node.
func (h *Host) CreateSlot() protocol.NodeID {
	return h.alloc(TagSlot).ID
}

// CreatePortal creates a detached transparent portal node.
func (h *Host) CreatePortal() protocol.NodeID {
	return h.alloc(TagPortal).ID
}

// Add inserts child into parent's children at index. A negative or
// out-of-range index appends. A child that is already attached somewhere
// is detached first, which becomes a move on the native side.
func (h *Host) Add(parent, child protocol.NodeID, index int) error {
	p, err := h.lookup(parent)
	if err != nil {
		return err
	}
	c, ok := h.nodes[child]
	if !ok {
		return errors.New("B030").WithDetailf("node %d is not in the host tree", child)
	}
	switch {
	case c == h.root:
		return errors.New("B031").WithDetail("the root cannot be inserted")
	case p.IsText():
		return errors.New("B031").WithDetailf("text node %d cannot have children", p.ID)
	case h.isAncestorOrSelf(c, p):
		return errors.New("B031").WithDetailf("inserting %d under %d would create a cycle", c.ID, p.ID)
	}

	if old, ok := h.nodes[c.Parent]; ok && c.Parent != 0 {
		if i := old.indexOf(c.ID); i >= 0 {
			old.Children = slices.Delete(old.Children, i, i+1)
			if old == p && i < index {
				index--
			}
		}
	}
	if c.removed {
		h.setRemoved(c, false)
	}
	if index < 0 || index > len(p.Children) {
		index = len(p.Children)
	}
	p.Children = slices.Insert(p.Children, index, c.ID)
	c.Parent = p.ID

	if h.mounted(p) {
		// Last first, so each node's before anchor is already in place.
		nodes := h.topLevel(c)
		for i := len(nodes) - 1; i >= 0; i-- {
			h.attach(nodes[i])
		}
	} else {
		h.detach(c)
	}
	h.schedule()
	return nil
}

// Remove detaches child from parent and drops its subtree from the live
// index. The ids stay reserved and the nodes are released by the next
// Sweep unless they are inserted again first.
func (h *Host) Remove(parent, child protocol.NodeID) error {
	p, err := h.lookup(parent)
	if err != nil {
		return err
	}
	c, err := h.lookup(child)
	if err != nil {
		return err
	}
	i := p.indexOf(c.ID)
	if c.Parent != p.ID || i < 0 {
		return errors.New("B031").WithDetailf("node %d is not a child of %d", c.ID, p.ID)
	}
	p.Children = slices.Delete(p.Children, i, i+1)
	c.Parent = 0
	h.detach(c)
	h.setRemoved(c, true)
	h.schedule()
	return nil
}

// Sweep releases removed nodes from the arena and returns how many were
// released.
func (h *Host) Sweep() int {
	released := 0
	for id, n := range h.nodes {
		if n.removed {
			delete(h.nodes, id)
			released++
		}
	}
	if released > 0 {
		h.logger.Debug("released nodes", "count", released)
	}
	return released
}

func (h *Host) isAncestorOrSelf(a, n *Node) bool {
	for n != nil {
		if n == a {
			return true
		}
		if n.Parent == 0 {
			return false
		}
		n = h.nodes[n.Parent]
	}
	return false
}

func (h *Host) mounted(n *Node) bool {
	for n != nil && !n.removed {
		if n == h.root {
			return true
		}
		if n.Parent == 0 {
			return false
		}
		n = h.nodes[n.Parent]
	}
	return false
}

func (h *Host) setRemoved(n *Node, removed bool) {
	n.removed = removed
	for _, id := range n.Children {
		if c, ok := h.nodes[id]; ok {
			h.setRemoved(c, removed)
		}
	}
}

// effectiveParent returns the nearest non-transparent ancestor of n.
func (h *Host) effectiveParent(n *Node) *Node {
	p := h.nodes[n.Parent]
	for p != nil && p.Transparent() {
		p = h.nodes[p.Parent]
	}
	return p
}

// wireID is the id used for n as a parent on the native side.
func (h *Host) wireID(n *Node) protocol.NodeID {
	if n == nil || n == h.root {
		return 0
	}
	return n.ID
}

// expand returns n's children with transparent nodes replaced by their
// own expanded children.
func (h *Host) expand(n *Node) []*Node {
	var out []*Node
	for _, id := range n.Children {
		c, ok := h.nodes[id]
		if !ok {
			continue
		}
		if c.Transparent() {
			out = append(out, h.expand(c)...)
		} else {
			out = append(out, c)
		}
	}
	return out
}

// topLevel returns the non-transparent nodes n stands for on the native
// side: n itself, or its expanded children when n is transparent.
func (h *Host) topLevel(n *Node) []*Node {
	if n.Transparent() {
		return h.expand(n)
	}
	return []*Node{n}
}

// nextCreated returns the first created node after d among eff's
// expanded children, or 0.
func (h *Host) nextCreated(eff, d *Node) protocol.NodeID {
	siblings := h.expand(eff)
	i := slices.Index(siblings, d)
	if i < 0 {
		return 0
	}
	for _, s := range siblings[i+1:] {
		if s.Created {
			return s.ID
		}
	}
	return 0
}

func (h *Host) attach(d *Node) {
	eff := h.effectiveParent(d)
	parent := h.wireID(eff)
	before := h.nextCreated(eff, d)
	if d.Created {
		h.push(protocol.NewMoveOp(d.ID, parent, before))
		return
	}
	h.createSubtree(d, parent, before)
}

func (h *Host) createSubtree(n *Node, parent, before protocol.NodeID) {
	h.push(h.createOp(n, parent, before))
	n.Created = true
	for _, c := range h.expand(n) {
		if c.Created {
			h.push(protocol.NewMoveOp(c.ID, n.ID, 0))
			continue
		}
		h.createSubtree(c, n.ID, 0)
	}
}

func (h *Host) createOp(n *Node, parent, before protocol.NodeID) protocol.MutationOp {
	op := protocol.CreateFromNode(h.serializeNode(n, parent))
	if before != 0 {
		op.Before = &before
	}
	return op
}

// detach emits removes for the created nodes n stands for and forgets
// that the native side knows its subtree.
func (h *Host) detach(n *Node) {
	for _, d := range h.topLevel(n) {
		if d.Created {
			h.push(protocol.NewRemoveOp(d.ID))
		}
	}
	h.uncreate(n)
}

func (h *Host) uncreate(n *Node) {
	n.Created = false
	if len(n.SentListeners) > 0 {
		clear(n.SentListeners)
	}
	n.ListenersDirty = len(n.listeners) > 0
	for _, id := range n.Children {
		if c, ok := h.nodes[id]; ok {
			h.uncreate(c)
		}
	}
}

func (h *Host) push(op protocol.MutationOp) {
	h.ops = append(h.ops, op)
}

// QueueOps appends ops to the mutation queue.
func (h *Host) QueueOps(ops ...protocol.MutationOp) {
	h.ops = append(h.ops, ops...)
}

// PendingOps returns the number of queued ops.
func (h *Host) PendingOps() int { return len(h.ops) }

// Ops returns the queued ops without draining them.
func (h *Host) Ops() []protocol.MutationOp { return h.ops }

// DrainOps returns the queued ops and empties the queue.
func (h *Host) DrainOps() []protocol.MutationOp {
	ops := h.ops
	h.ops = nil
	return ops
}

// MarkAllCreated marks every mounted, non-transparent node as known to
// the native side. Called after a snapshot was delivered.
func (h *Host) MarkAllCreated() {
	var mark func(n *Node)
	mark = func(n *Node) {
		if n != h.root && !n.Transparent() {
			n.Created = true
		}
		for _, id := range n.Children {
			if c, ok := h.nodes[id]; ok {
				mark(c)
			}
		}
	}
	mark(h.root)
}

// ResetSentListeners forgets every listener declaration so they are sent
// again against fresh native identities.
func (h *Host) ResetSentListeners() {
	for _, n := range h.nodes {
		if len(n.SentListeners) > 0 {
			clear(n.SentListeners)
			n.ListenersDirty = true
		}
	}
}

// TextContent returns the text of a text node, or the concatenated text
// of every descendant text node.
func (h *Host) TextContent(id protocol.NodeID) (string, error) {
	n, err := h.lookup(id)
	if err != nil {
		return "", err
	}
	return h.textContent(n), nil
}

func (h *Host) textContent(n *Node) string {
	if n.IsText() {
		s, _ := n.Props.String("text")
		return s
	}
	var out string
	for _, id := range n.Children {
		if c, ok := h.nodes[id]; ok {
			out += h.textContent(c)
		}
	}
	return out
}

// SetTextContent replaces a text node's text, or replaces every child of
// an element with a single text node.
func (h *Host) SetTextContent(id protocol.NodeID, value string) error {
	n, err := h.lookup(id)
	if err != nil {
		return err
	}
	if n.IsText() {
		return h.ReplaceText(id, value)
	}
	for _, child := range slices.Clone(n.Children) {
		if err := h.Remove(id, child); err != nil {
			return err
		}
	}
	return h.Add(id, h.CreateText(value), -1)
}

// Prop returns a property value.
func (h *Host) Prop(id protocol.NodeID, name string) (any, bool) {
	n, ok := h.Node(id)
	if !ok {
		return nil, false
	}
	v, ok := n.Props[normalizePropName(name)]
	return v, ok
}

// SetProp sets a property. See SetProperty.
func (h *Host) SetProp(id protocol.NodeID, name string, value any) error {
	return h.SetProperty(id, name, value, nil)
}

// Listening returns the live nodes with a handler for event, by id.
func (h *Host) Listening(event string) []protocol.NodeID {
	var ids []protocol.NodeID
	for id, n := range h.nodes {
		if !n.removed && n.HasListener(event) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// Walk visits every mounted, non-transparent node in pre-order together
// with its parent id on the native side (0 for top-level nodes). Walk
// stops at the first error fn returns.
func (h *Host) Walk(fn func(n *Node, parent protocol.NodeID) error) error {
	return h.walk(h.root, 0, fn)
}

func (h *Host) walk(n *Node, parent protocol.NodeID, fn func(*Node, protocol.NodeID) error) error {
	for _, id := range n.Children {
		c, ok := h.nodes[id]
		if !ok {
			continue
		}
		if c.Transparent() {
			if err := h.walk(c, parent, fn); err != nil {
				return err
			}
			continue
		}
		if err := fn(c, parent); err != nil {
			return err
		}
		if err := h.walk(c, c.ID, fn); err != nil {
			return err
		}
	}
	return nil
}
