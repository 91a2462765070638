package render

import (
	"github.com/vango-dev/nativebridge/internal/errors"
	"github.com/vango-dev/nativebridge/pkg/protocol"
)

// Sentinels for errors.Is. Returned errors carry the same code with a
// frame-specific detail.
var (
	ErrHeaderCapacity  = errors.New("B001")
	ErrPayloadCapacity = errors.New("B002")
)

// Buffers are the views handed to the renderer on commit. Headers and
// Payload alias the encoder's storage and stay valid until the next
// Reset.
type Buffers struct {
	Headers []byte
	Payload []byte
	Count   int
}

// Encoder writes draw commands into pre-allocated buffers.
type Encoder struct {
	headers []byte
	payload []byte
	count   int
	offset  int
}

// NewEncoder allocates room for maxCommands headers and maxPayloadBytes
// of text. Values below one are raised to one.
func NewEncoder(maxCommands, maxPayloadBytes int) *Encoder {
	maxCommands = max(maxCommands, 1)
	maxPayloadBytes = max(maxPayloadBytes, 1)
	return &Encoder{
		headers: make([]byte, maxCommands*protocol.CommandHeaderSize),
		payload: make([]byte, maxPayloadBytes),
	}
}

// MaxCommands returns the header capacity.
func (e *Encoder) MaxCommands() int { return len(e.headers) / protocol.CommandHeaderSize }

// MaxPayloadBytes returns the payload capacity.
func (e *Encoder) MaxPayloadBytes() int { return len(e.payload) }

// Len returns the number of commands written since the last Reset.
func (e *Encoder) Len() int { return e.count }

// Reset rewinds both cursors without reallocating.
func (e *Encoder) Reset() {
	e.count = 0
	e.offset = 0
}

// PushQuad writes a solid rectangle filled with rgba.
func (e *Encoder) PushQuad(id, parent protocol.NodeID, frame protocol.Frame, rgba uint32, flags uint8) error {
	return e.writeHeader(protocol.CommandHeader{
		Opcode:   protocol.OpcodeQuad,
		Flags:    flags,
		NodeID:   id,
		ParentID: parent,
		Frame:    frame,
		Extra:    rgba,
	})
}

// PushText copies text into the payload region and writes a header
// referencing it. Nothing is written when either region is full.
func (e *Encoder) PushText(id, parent protocol.NodeID, frame protocol.Frame, text string, color uint32, flags uint8) error {
	if e.count >= e.MaxCommands() {
		return e.headerFull()
	}
	if e.offset+len(text) > len(e.payload) {
		return errors.New("B002").WithDetailf(
			"text for node %d needs %d bytes, %d of %d left", id, len(text), len(e.payload)-e.offset, len(e.payload))
	}
	start := e.offset
	e.offset += copy(e.payload[start:], text)
	return e.writeHeader(protocol.CommandHeader{
		Opcode:        protocol.OpcodeText,
		Flags:         flags,
		NodeID:        id,
		ParentID:      parent,
		Frame:         frame,
		PayloadOffset: uint32(start),
		PayloadLength: uint32(len(text)),
		Extra:         color,
	})
}

func (e *Encoder) writeHeader(h protocol.CommandHeader) error {
	if e.count >= e.MaxCommands() {
		return e.headerFull()
	}
	base := e.count * protocol.CommandHeaderSize
	protocol.PutCommandHeader(e.headers[base:base+protocol.CommandHeaderSize], h)
	e.count++
	return nil
}

func (e *Encoder) headerFull() error {
	return errors.New("B001").WithDetailf("capacity is %d commands", e.MaxCommands())
}

// Finalize returns views bounded by the bytes written so far.
func (e *Encoder) Finalize() Buffers {
	return Buffers{
		Headers: e.headers[:e.count*protocol.CommandHeaderSize],
		Payload: e.payload[:e.offset],
		Count:   e.count,
	}
}
