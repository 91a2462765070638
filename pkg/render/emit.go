package render

import (
	"github.com/vango-dev/nativebridge/pkg/host"
	"github.com/vango-dev/nativebridge/pkg/protocol"
)

// Emit resets enc and writes one command per mounted, non-transparent
// node in pre-order. Text nodes become Text commands colored by their
// color property (opaque white by default). Every other node becomes a
// Quad filled with its color property, else its bg-* class, else
// transparent black. The absolute class token sets FlagAbsolute.
func Emit(h *host.Host, enc *Encoder) error {
	enc.Reset()
	return h.Walk(func(n *host.Node, parent protocol.NodeID) error {
		frame := host.FrameFromProps(n.Props)
		class := n.Props.Class()
		var flags uint8
		if host.HasAbsolute(class) {
			flags |= protocol.FlagAbsolute
		}
		if n.IsText() {
			text, _ := n.Props.String("text")
			return enc.PushText(n.ID, parent, frame, text, host.PackColor(n.Props["color"]), flags)
		}
		return enc.PushQuad(n.ID, parent, frame, quadColor(n.Props, class), flags)
	})
}

func quadColor(p host.Props, class string) uint32 {
	if c, ok := p["color"]; ok && c != nil {
		return host.PackColor(c)
	}
	if c, ok := host.BackgroundFromClass(class); ok {
		return c
	}
	return 0
}
