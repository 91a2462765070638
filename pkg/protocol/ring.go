package protocol

import "encoding/binary"

// Event ring layout sizes.
const (
	// RingHeaderSize is the minimal header: readHead, writeHead,
	// capacity, detailCapacity.
	RingHeaderSize = 16

	// RingHeaderExtSize adds droppedEvents and droppedDetails.
	RingHeaderExtSize = 24

	// EventEntrySize is the size of one ring entry.
	EventEntrySize = 16
)

// RingHeader describes the state of a native event ring. Heads are
// free-running counters; the slot index is counter mod Capacity.
type RingHeader struct {
	ReadHead       uint32
	WriteHead      uint32
	Capacity       uint32
	DetailCapacity uint32

	// HasDropped is set when the header carried the dropped counters.
	HasDropped     bool
	DroppedEvents  uint32
	DroppedDetails uint32
}

// Pending returns the number of unread entries. The subtraction wraps,
// so it stays correct after the counters overflow.
func (h RingHeader) Pending() uint32 {
	return h.WriteHead - h.ReadHead
}

// ParseRingHeader decodes a header copied from the native side. It
// returns false if b is shorter than RingHeaderSize.
func ParseRingHeader(b []byte) (RingHeader, bool) {
	if len(b) < RingHeaderSize {
		return RingHeader{}, false
	}
	h := RingHeader{
		ReadHead:       binary.LittleEndian.Uint32(b[0:]),
		WriteHead:      binary.LittleEndian.Uint32(b[4:]),
		Capacity:       binary.LittleEndian.Uint32(b[8:]),
		DetailCapacity: binary.LittleEndian.Uint32(b[12:]),
	}
	if len(b) >= RingHeaderExtSize {
		h.HasDropped = true
		h.DroppedEvents = binary.LittleEndian.Uint32(b[16:])
		h.DroppedDetails = binary.LittleEndian.Uint32(b[20:])
	}
	return h, true
}

// PutRingHeader encodes h into b and returns the number of bytes written:
// RingHeaderExtSize when b has room for the dropped counters, otherwise
// RingHeaderSize. It returns 0 if b is too short.
func PutRingHeader(b []byte, h RingHeader) int {
	if len(b) < RingHeaderSize {
		return 0
	}
	binary.LittleEndian.PutUint32(b[0:], h.ReadHead)
	binary.LittleEndian.PutUint32(b[4:], h.WriteHead)
	binary.LittleEndian.PutUint32(b[8:], h.Capacity)
	binary.LittleEndian.PutUint32(b[12:], h.DetailCapacity)
	if len(b) < RingHeaderExtSize {
		return RingHeaderSize
	}
	binary.LittleEndian.PutUint32(b[16:], h.DroppedEvents)
	binary.LittleEndian.PutUint32(b[20:], h.DroppedDetails)
	return RingHeaderExtSize
}

// EventEntry is one decoded ring entry.
type EventEntry struct {
	Kind         EventKind
	NodeID       NodeID
	DetailOffset uint32
	DetailLen    uint16
}

// ReadEventEntry decodes the entry stored in slot of entries. It returns
// false if the slot lies outside entries.
func ReadEventEntry(entries []byte, slot uint32) (EventEntry, bool) {
	off := uint64(slot) * EventEntrySize
	if off+EventEntrySize > uint64(len(entries)) {
		return EventEntry{}, false
	}
	b := entries[off : off+EventEntrySize]
	return EventEntry{
		Kind:         EventKind(b[0]),
		NodeID:       NodeID(binary.LittleEndian.Uint32(b[4:])),
		DetailOffset: binary.LittleEndian.Uint32(b[8:]),
		DetailLen:    binary.LittleEndian.Uint16(b[12:]),
	}, true
}

// PutEventEntry encodes e into slot of entries.
func PutEventEntry(entries []byte, slot uint32, e EventEntry) {
	off := uint64(slot) * EventEntrySize
	b := entries[off : off+EventEntrySize]
	clear(b)
	b[0] = byte(e.Kind)
	binary.LittleEndian.PutUint32(b[4:], uint32(e.NodeID))
	binary.LittleEndian.PutUint32(b[8:], e.DetailOffset)
	binary.LittleEndian.PutUint16(b[12:], e.DetailLen)
}

// Detail returns the detail bytes referenced by e, or nil when the range
// falls outside detail.
func (e EventEntry) Detail(detail []byte) []byte {
	if e.DetailLen == 0 {
		return nil
	}
	end := uint64(e.DetailOffset) + uint64(e.DetailLen)
	if end > uint64(len(detail)) {
		return nil
	}
	return detail[e.DetailOffset:end]
}

// EventPayload builds the payload handed to listeners: the little-endian
// node id followed by the detail bytes.
func EventPayload(id NodeID, detail []byte) []byte {
	p := make([]byte, 4+len(detail))
	binary.LittleEndian.PutUint32(p, uint32(id))
	copy(p[4:], detail)
	return p
}

// PayloadTarget extracts the target node id from a callback payload.
func PayloadTarget(payload []byte) (NodeID, []byte, bool) {
	if len(payload) < 4 {
		return 0, nil, false
	}
	return NodeID(binary.LittleEndian.Uint32(payload)), payload[4:], true
}
