package protocol

import (
	"encoding/json"
	"fmt"
)

// OpKind identifies the kind of a mutation op.
type OpKind string

// Mutation op kinds.
const (
	OpCreate           OpKind = "create"
	OpRemove           OpKind = "remove"
	OpMove             OpKind = "move"
	OpSetText          OpKind = "set_text"
	OpSetClass         OpKind = "set_class"
	OpSetTransform     OpKind = "set_transform"
	OpSetVisual        OpKind = "set_visual"
	OpSetScroll        OpKind = "set_scroll"
	OpSetFocus         OpKind = "set_focus"
	OpSetAnchor        OpKind = "set_anchor"
	OpSetAccessibility OpKind = "set_accessibility"
	OpSet              OpKind = "set"
	OpListen           OpKind = "listen"
	OpUnlisten         OpKind = "unlisten"
)

// Valid reports whether k is a known op kind.
func (k OpKind) Valid() bool {
	switch k {
	case OpCreate, OpRemove, OpMove, OpSetText, OpSetClass, OpSetTransform,
		OpSetVisual, OpSetScroll, OpSetFocus, OpSetAnchor, OpSetAccessibility,
		OpSet, OpListen, OpUnlisten:
		return true
	}
	return false
}

// Names accepted by OpSet.
const (
	SetValue     = "value"
	SetSrc       = "src"
	SetIconKind  = "iconKind"
	SetIconGlyph = "iconGlyph"
)

// MutationOp is one incremental change against previously synced state.
// Which fields are meaningful depends on Op:
//
//	create            Parent, Before, Tag, Text, ClassName, Value, Src, groups
//	remove            -
//	move              Parent, Before
//	set_text          Text
//	set_class         ClassName
//	set_<group>       the whole group, absent fields cleared
//	set               Name and Value (or Src for name "src"); nil clears
//	listen, unlisten  EventType
type MutationOp struct {
	Op        OpKind  `json:"op"`
	ID        NodeID  `json:"id"`
	Parent    *NodeID `json:"parent,omitempty"`
	Before    *NodeID `json:"before,omitempty"`
	Tag       string  `json:"tag,omitempty"`
	Text      *string `json:"text,omitempty"`
	ClassName *string `json:"className,omitempty"`
	Name      string  `json:"name,omitempty"`
	Value     *string `json:"value,omitempty"`
	Src       *string `json:"src,omitempty"`
	EventType string  `json:"eventType,omitempty"`
	Groups
}

// Batch is an ordered group of ops submitted together.
type Batch struct {
	Seq uint64       `json:"seq"`
	Ops []MutationOp `json:"ops"`
}

// NewRemoveOp creates a remove op.
func NewRemoveOp(id NodeID) MutationOp {
	return MutationOp{Op: OpRemove, ID: id}
}

// NewMoveOp creates a move op. A zero before appends.
func NewMoveOp(id, parent, before NodeID) MutationOp {
	op := MutationOp{Op: OpMove, ID: id, Parent: &parent}
	if before != 0 {
		op.Before = &before
	}
	return op
}

// NewSetTextOp creates a set_text op.
func NewSetTextOp(id NodeID, text string) MutationOp {
	return MutationOp{Op: OpSetText, ID: id, Text: &text}
}

// NewSetClassOp creates a set_class op.
func NewSetClassOp(id NodeID, className string) MutationOp {
	return MutationOp{Op: OpSetClass, ID: id, ClassName: &className}
}

// NewListenOp creates a listen op.
func NewListenOp(id NodeID, event string) MutationOp {
	return MutationOp{Op: OpListen, ID: id, EventType: event}
}

// NewUnlistenOp creates an unlisten op.
func NewUnlistenOp(id NodeID, event string) MutationOp {
	return MutationOp{Op: OpUnlisten, ID: id, EventType: event}
}

// CreateFromNode builds the create op that instantiates n with no
// explicit sibling anchor.
func CreateFromNode(n SerializedNode) MutationOp {
	parent := n.Parent
	op := MutationOp{
		Op:     OpCreate,
		ID:     n.ID,
		Parent: &parent,
		Tag:    n.Tag,
		Text:   n.Text,
		Value:  n.Value,
		Src:    n.Src,
		Groups: n.Groups,
	}
	if n.ClassName != "" {
		cls := n.ClassName
		op.ClassName = &cls
	}
	return op
}

// EncodeBatch serializes a batch to its UTF-8 JSON wire form.
func EncodeBatch(b Batch) ([]byte, error) {
	if b.Ops == nil {
		b.Ops = []MutationOp{}
	}
	return json.Marshal(b)
}

// DecodeBatch parses a batch and rejects unknown op kinds.
func DecodeBatch(data []byte) (Batch, error) {
	var b Batch
	if err := json.Unmarshal(data, &b); err != nil {
		return Batch{}, err
	}
	for i, op := range b.Ops {
		if !op.Op.Valid() {
			return Batch{}, fmt.Errorf("op %d: unknown kind %q", i, op.Op)
		}
	}
	return b, nil
}

// EncodeSnapshot serializes a snapshot to its UTF-8 JSON wire form.
func EncodeSnapshot(s Snapshot) ([]byte, error) {
	if s.Nodes == nil {
		s.Nodes = []SerializedNode{}
	}
	return json.Marshal(s)
}

// DecodeSnapshot parses a snapshot.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	err := json.Unmarshal(data, &s)
	return s, err
}
