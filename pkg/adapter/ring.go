package adapter

import (
	"sync"

	"github.com/vango-dev/nativebridge/pkg/protocol"
)

// Ring is an in-memory event ring laid out like the native one. The
// producer side (Push) stands in for the renderer; the consumer side is
// the EventRing interface.
//
// Details are bump-allocated and wrap to the start of the region when
// they do not fit at the end. A producer that outruns the consumer can
// overwrite unread details.
type Ring struct {
	mu         sync.Mutex
	header     protocol.RingHeader
	entries    []byte
	detail     []byte
	detailHead uint32
	compact    bool
	acks       []uint32
}

// RingOption configures a Ring.
type RingOption func(*Ring)

// WithCompactHeader makes the ring report the 16-byte header without
// dropped counters.
func WithCompactHeader() RingOption {
	return func(r *Ring) { r.compact = true }
}

// NewRing creates a ring with capacity entries and detailCapacity bytes
// of detail storage.
func NewRing(capacity, detailCapacity uint32, opts ...RingOption) *Ring {
	r := &Ring{
		header:  protocol.RingHeader{Capacity: capacity, DetailCapacity: detailCapacity},
		entries: make([]byte, int(capacity)*protocol.EventEntrySize),
		detail:  make([]byte, detailCapacity),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Push appends an event. It returns false and counts a dropped event
// when the ring is full. A detail that cannot be stored is dropped and
// counted, and the event is kept without it.
func (r *Ring) Push(kind protocol.EventKind, id protocol.NodeID, detail []byte) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	h := &r.header
	if h.Capacity == 0 || h.Pending() >= h.Capacity {
		h.DroppedEvents++
		return false
	}
	e := protocol.EventEntry{Kind: kind, NodeID: id}
	if n := uint32(len(detail)); n > 0 {
		if n > h.DetailCapacity || n > 0xFFFF {
			h.DroppedDetails++
		} else {
			if r.detailHead+n > h.DetailCapacity {
				r.detailHead = 0
			}
			copy(r.detail[r.detailHead:], detail)
			e.DetailOffset = r.detailHead
			e.DetailLen = uint16(n)
			r.detailHead += n
		}
	}
	protocol.PutEventEntry(r.entries, h.WriteHead%h.Capacity, e)
	h.WriteHead++
	return true
}

// SetHeads positions both counters, for example to exercise wrap-around.
func (r *Ring) SetHeads(readHead, writeHead uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.header.ReadHead = readHead
	r.header.WriteHead = writeHead
}

// Header returns a copy of the current header.
func (r *Ring) Header() protocol.RingHeader {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := r.header
	h.HasDropped = !r.compact
	return h
}

// Acks returns the read heads passed to AcknowledgeEvents, in order.
func (r *Ring) Acks() []uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint32(nil), r.acks...)
}

// EventRingHeader implements EventRing.
func (r *Ring) EventRingHeader(buf []byte) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	size := protocol.RingHeaderExtSize
	if r.compact {
		size = protocol.RingHeaderSize
	}
	return protocol.PutRingHeader(buf[:min(len(buf), size)], r.header)
}

// EventRingEntries implements EventRing.
func (r *Ring) EventRingEntries(capacity uint32) []byte {
	return r.entries[:min(len(r.entries), int(capacity)*protocol.EventEntrySize)]
}

// EventRingDetail implements EventRing.
func (r *Ring) EventRingDetail(detailCapacity uint32) []byte {
	return r.detail[:min(len(r.detail), int(detailCapacity))]
}

// AcknowledgeEvents implements EventRing.
func (r *Ring) AcknowledgeEvents(readHead uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.header.ReadHead = readHead
	r.acks = append(r.acks, readHead)
}
