package protocol

import (
	"encoding/binary"
	"math"
)

// CommandHeaderSize is the size of one draw command header in bytes.
const CommandHeaderSize = 40

// Opcode identifies a draw primitive.
type Opcode uint8

// Draw opcodes.
const (
	OpcodeQuad Opcode = 1
	OpcodeText Opcode = 2
)

func (o Opcode) String() string {
	switch o {
	case OpcodeQuad:
		return "Quad"
	case OpcodeText:
		return "Text"
	default:
		return "Unknown"
	}
}

// Command flags.
const (
	// FlagAbsolute positions the command outside its parent's flow.
	FlagAbsolute uint8 = 1
)

// Frame is a command's rectangle in renderer units.
type Frame struct {
	X, Y, Width, Height float32
}

// CommandHeader is the decoded form of one 40-byte header.
type CommandHeader struct {
	Opcode        Opcode
	Flags         uint8
	NodeID        NodeID
	ParentID      NodeID
	Frame         Frame
	PayloadOffset uint32
	PayloadLength uint32
	Extra         uint32
}

// PutCommandHeader writes h into b, which must hold CommandHeaderSize bytes.
func PutCommandHeader(b []byte, h CommandHeader) {
	_ = b[CommandHeaderSize-1]
	b[0] = byte(h.Opcode)
	b[1] = h.Flags
	binary.LittleEndian.PutUint16(b[2:], 0)
	binary.LittleEndian.PutUint32(b[4:], uint32(h.NodeID))
	binary.LittleEndian.PutUint32(b[8:], uint32(h.ParentID))
	binary.LittleEndian.PutUint32(b[12:], math.Float32bits(h.Frame.X))
	binary.LittleEndian.PutUint32(b[16:], math.Float32bits(h.Frame.Y))
	binary.LittleEndian.PutUint32(b[20:], math.Float32bits(h.Frame.Width))
	binary.LittleEndian.PutUint32(b[24:], math.Float32bits(h.Frame.Height))
	binary.LittleEndian.PutUint32(b[28:], h.PayloadOffset)
	binary.LittleEndian.PutUint32(b[32:], h.PayloadLength)
	binary.LittleEndian.PutUint32(b[36:], h.Extra)
}

// ReadCommandHeader decodes one header from b, which must hold
// CommandHeaderSize bytes.
func ReadCommandHeader(b []byte) CommandHeader {
	_ = b[CommandHeaderSize-1]
	return CommandHeader{
		Opcode:   Opcode(b[0]),
		Flags:    b[1],
		NodeID:   NodeID(binary.LittleEndian.Uint32(b[4:])),
		ParentID: NodeID(binary.LittleEndian.Uint32(b[8:])),
		Frame: Frame{
			X:      math.Float32frombits(binary.LittleEndian.Uint32(b[12:])),
			Y:      math.Float32frombits(binary.LittleEndian.Uint32(b[16:])),
			Width:  math.Float32frombits(binary.LittleEndian.Uint32(b[20:])),
			Height: math.Float32frombits(binary.LittleEndian.Uint32(b[24:])),
		},
		PayloadOffset: binary.LittleEndian.Uint32(b[28:]),
		PayloadLength: binary.LittleEndian.Uint32(b[32:]),
		Extra:         binary.LittleEndian.Uint32(b[36:]),
	}
}
