package host

import "github.com/vango-dev/nativebridge/pkg/protocol"

// Serialize flattens the mounted tree into snapshot order. The root and
// transparent nodes are omitted; their children carry the nearest
// serialized ancestor as parent, or 0 at the top level.
func (h *Host) Serialize() []protocol.SerializedNode {
	nodes := make([]protocol.SerializedNode, 0, len(h.nodes))
	_ = h.Walk(func(n *Node, parent protocol.NodeID) error {
		nodes = append(nodes, h.serializeNode(n, parent))
		return nil
	})
	return nodes
}

// Snapshot returns the serialized tree as a snapshot.
func (h *Host) Snapshot() protocol.Snapshot {
	return protocol.Snapshot{Nodes: h.Serialize()}
}

func (h *Host) serializeNode(n *Node, parent protocol.NodeID) protocol.SerializedNode {
	s := protocol.SerializedNode{
		ID:        n.ID,
		Tag:       n.Tag,
		Parent:    parent,
		ClassName: n.Props.Class(),
		Value:     stringPtr(n.Props, "value"),
		Src:       stringPtr(n.Props, "src"),
		Groups:    GroupsFromProps(n.Props),
	}
	if n.IsText() {
		text, _ := n.Props.String("text")
		s.Text = &text
	}
	return s
}
