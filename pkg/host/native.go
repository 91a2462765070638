package host

import (
	"github.com/vango-dev/nativebridge/internal/errors"
	"github.com/vango-dev/nativebridge/pkg/protocol"
)

// NativeOps is the set of operations a reactive tree-diffing driver calls
// as its state recomputes. Host implements it.
type NativeOps interface {
	CreateElement(tag string) protocol.NodeID
	CreateTextNode(value string) protocol.NodeID
	CreateSlotNode() protocol.NodeID
	IsTextNode(id protocol.NodeID) bool
	ReplaceText(id protocol.NodeID, value string) error
	InsertNode(parent, node, anchor protocol.NodeID) error
	RemoveNode(parent, node protocol.NodeID) error
	SetProperty(node protocol.NodeID, name string, value, prev any) error
	GetParentNode(id protocol.NodeID) protocol.NodeID
	GetFirstChild(id protocol.NodeID) protocol.NodeID
	GetNextSibling(id protocol.NodeID) protocol.NodeID
}

var _ NativeOps = (*Host)(nil)

// CreateTextNode creates a detached text node.
func (h *Host) CreateTextNode(value string) protocol.NodeID { return h.CreateText(value) }

// CreateSlotNode creates a detached slot node.
func (h *Host) CreateSlotNode() protocol.NodeID { return h.CreateSlot() }

// IsTextNode reports whether id is a live text node.
func (h *Host) IsTextNode(id protocol.NodeID) bool {
	n, ok := h.Node(id)
	return ok && n.IsText()
}

// ReplaceText sets the text of a text node.
func (h *Host) ReplaceText(id protocol.NodeID, value string) error {
	n, err := h.lookup(id)
	if err != nil {
		return err
	}
	if !n.IsText() {
		return errors.New("B031").WithDetailf("node %d is a %s, not a text node", id, n.Tag)
	}
	n.Props["text"] = value
	if n.Created {
		h.push(protocol.NewSetTextOp(id, value))
	}
	h.schedule()
	return nil
}

// InsertNode inserts node into parent before anchor. A zero anchor, or
// one that is not a child of parent, appends.
func (h *Host) InsertNode(parent, node, anchor protocol.NodeID) error {
	index := -1
	if anchor != 0 {
		if p, ok := h.Node(parent); ok {
			index = p.indexOf(anchor)
		}
	}
	return h.Add(parent, node, index)
}

// RemoveNode removes node from parent.
func (h *Host) RemoveNode(parent, node protocol.NodeID) error {
	return h.Remove(parent, node)
}

// SetProperty sets a property and records the matching mutation op.
//
// Names of the form "on:x", "onX" and "prop:onX" bind a handler for event
// x, replacing the handler previously bound through a property; prev is
// not consulted since handlers are tracked by reference. "className" and
// "class" are the same property, "aria-*" names become "ariaX", and a nil
// value deletes the property.
func (h *Host) SetProperty(id protocol.NodeID, name string, value, prev any) error {
	n, err := h.lookup(id)
	if err != nil {
		return err
	}
	if event, ok := eventFromProp(name); ok {
		h.bindProp(n, event, value)
		h.schedule()
		return nil
	}

	name = normalizePropName(name)
	if n.IsText() && name == "text" {
		return h.ReplaceText(id, stringify(value))
	}
	if value == nil {
		delete(n.Props, name)
	} else {
		n.Props[name] = value
	}

	onNative := n.Created && !n.Transparent()
	switch name {
	case "class":
		h.classChanged(n, onNative)
	case protocol.SetSrc:
		if onNative {
			h.push(protocol.MutationOp{Op: protocol.OpSet, ID: id, Name: name, Src: stringPtr(n.Props, name)})
		}
	case protocol.SetValue, protocol.SetIconKind, protocol.SetIconGlyph:
		if onNative {
			h.push(protocol.MutationOp{Op: protocol.OpSet, ID: id, Name: name, Value: stringPtr(n.Props, name)})
		}
	default:
		if g := fieldGroups[name]; g != groupNone && onNative {
			h.push(groupOp(n, g))
		}
	}
	h.schedule()
	return nil
}

func (h *Host) classChanged(n *Node, onNative bool) {
	cls := n.Props.Class()
	if onNative {
		h.push(protocol.NewSetClassOp(n.ID, cls))
	}
	next := ClipChildrenFromClass(cls)
	cur, has := n.Props.Bool("clipChildren")
	if (next || has) && (!has || cur != next) {
		n.Props["clipChildren"] = next
		if onNative {
			h.push(groupOp(n, groupVisual))
		}
	}
}

// groupOp builds the set op carrying n's complete group g.
func groupOp(n *Node, g group) protocol.MutationOp {
	op := protocol.MutationOp{ID: n.ID}
	switch g {
	case groupTransform:
		op.Op = protocol.OpSetTransform
		op.TransformFields = TransformGroup(n.Props)
	case groupVisual:
		op.Op = protocol.OpSetVisual
		op.VisualFields = VisualGroup(n.Props)
	case groupScroll:
		op.Op = protocol.OpSetScroll
		op.ScrollFields = ScrollGroup(n.Props)
	case groupFocus:
		op.Op = protocol.OpSetFocus
		op.FocusFields = FocusGroup(n.Props)
	case groupAnchor:
		op.Op = protocol.OpSetAnchor
		op.AnchorFields = AnchorGroup(n.Props)
	case groupAccessibility:
		op.Op = protocol.OpSetAccessibility
		op.AccessibilityFields = AccessibilityGroup(n.Props)
	}
	return op
}

// GetParentNode returns the parent id, or 0 when detached or unknown.
func (h *Host) GetParentNode(id protocol.NodeID) protocol.NodeID {
	if n, ok := h.nodes[id]; ok {
		return n.Parent
	}
	return 0
}

// GetFirstChild returns the first child id, or 0.
func (h *Host) GetFirstChild(id protocol.NodeID) protocol.NodeID {
	if n, ok := h.nodes[id]; ok && len(n.Children) > 0 {
		return n.Children[0]
	}
	return 0
}

// GetNextSibling returns the following sibling id, or 0.
func (h *Host) GetNextSibling(id protocol.NodeID) protocol.NodeID {
	n, ok := h.nodes[id]
	if !ok || n.Parent == 0 {
		return 0
	}
	p, ok := h.nodes[n.Parent]
	if !ok {
		return 0
	}
	i := p.indexOf(id)
	if i < 0 || i+1 >= len(p.Children) {
		return 0
	}
	return p.Children[i+1]
}
