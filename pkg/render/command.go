package render

import (
	"fmt"

	"github.com/vango-dev/nativebridge/internal/errors"
	"github.com/vango-dev/nativebridge/pkg/protocol"
)

// Command is a decoded draw command.
type Command struct {
	protocol.CommandHeader
	Text string
}

func (c Command) String() string {
	s := fmt.Sprintf("%s #%d parent=%d frame=(%g,%g %gx%g) extra=%#08x",
		c.Opcode, c.NodeID, c.ParentID, c.Frame.X, c.Frame.Y, c.Frame.Width, c.Frame.Height, c.Extra)
	if c.Flags&protocol.FlagAbsolute != 0 {
		s += " absolute"
	}
	if c.Opcode == protocol.OpcodeText {
		s += fmt.Sprintf(" %q", c.Text)
	}
	return s
}

// DecodeCommands parses committed buffers back into commands.
func DecodeCommands(b Buffers) ([]Command, error) {
	if b.Count < 0 || len(b.Headers) < b.Count*protocol.CommandHeaderSize {
		return nil, errors.New("B003").WithDetailf(
			"%d commands need %d header bytes, have %d", b.Count, b.Count*protocol.CommandHeaderSize, len(b.Headers))
	}
	cmds := make([]Command, b.Count)
	for i := range cmds {
		base := i * protocol.CommandHeaderSize
		h := protocol.ReadCommandHeader(b.Headers[base : base+protocol.CommandHeaderSize])
		cmds[i].CommandHeader = h
		if h.PayloadLength == 0 {
			continue
		}
		end := uint64(h.PayloadOffset) + uint64(h.PayloadLength)
		if end > uint64(len(b.Payload)) {
			return nil, errors.New("B003").WithDetailf(
				"command %d payload [%d,%d) outside %d bytes", i, h.PayloadOffset, end, len(b.Payload))
		}
		cmds[i].Text = string(b.Payload[h.PayloadOffset:end])
	}
	return cmds, nil
}
