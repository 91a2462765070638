package protocol

import (
	"bytes"
	"testing"
)

func TestRingHeader(t *testing.T) {
	tests := []struct {
		name        string
		size        int
		wantOK      bool
		wantDropped bool
	}{
		{"too short", 12, false, false},
		{"base", RingHeaderSize, true, false},
		{"extended", RingHeaderExtSize, true, true},
	}

	src := RingHeader{ReadHead: 3, WriteHead: 8, Capacity: 64, DetailCapacity: 1024, DroppedEvents: 2, DroppedDetails: 1}
	full := make([]byte, RingHeaderExtSize)
	PutRingHeader(full, src)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, ok := ParseRingHeader(full[:tt.size])
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if h.ReadHead != 3 || h.WriteHead != 8 || h.Capacity != 64 || h.DetailCapacity != 1024 {
				t.Errorf("header = %+v", h)
			}
			if h.HasDropped != tt.wantDropped {
				t.Errorf("HasDropped = %v, want %v", h.HasDropped, tt.wantDropped)
			}
			if tt.wantDropped && (h.DroppedEvents != 2 || h.DroppedDetails != 1) {
				t.Errorf("dropped = %d/%d", h.DroppedEvents, h.DroppedDetails)
			}
		})
	}
}

func TestRingPendingWraps(t *testing.T) {
	h := RingHeader{ReadHead: 0xFFFFFFFE, WriteHead: 3}
	if got := h.Pending(); got != 5 {
		t.Errorf("Pending() = %d, want 5", got)
	}
	if got := (RingHeader{ReadHead: 5, WriteHead: 5}).Pending(); got != 0 {
		t.Errorf("Pending() = %d, want 0", got)
	}
}

func TestEventEntryLayout(t *testing.T) {
	entries := make([]byte, 4*EventEntrySize)
	e := EventEntry{Kind: KindInput, NodeID: 42, DetailOffset: 6, DetailLen: 3}
	PutEventEntry(entries, 2, e)

	raw := entries[2*EventEntrySize:]
	if raw[0] != 1 || raw[4] != 42 || raw[8] != 6 || raw[12] != 3 {
		t.Errorf("raw entry = % x", raw[:EventEntrySize])
	}

	got, ok := ReadEventEntry(entries, 2)
	if !ok || got != e {
		t.Errorf("ReadEventEntry() = %+v, %v", got, ok)
	}
	if _, ok := ReadEventEntry(entries, 4); ok {
		t.Error("slot past the end should not decode")
	}
}

func TestEventDetailBounds(t *testing.T) {
	detail := []byte("helloworld")
	tests := []struct {
		name  string
		entry EventEntry
		want  []byte
	}{
		{"in range", EventEntry{DetailOffset: 5, DetailLen: 5}, []byte("world")},
		{"empty", EventEntry{DetailOffset: 5, DetailLen: 0}, nil},
		{"overflow", EventEntry{DetailOffset: 8, DetailLen: 5}, nil},
		{"offset past end", EventEntry{DetailOffset: 0xFFFFFFFF, DetailLen: 2}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.entry.Detail(detail); !bytes.Equal(got, tt.want) {
				t.Errorf("Detail() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEventPayload(t *testing.T) {
	p := EventPayload(0x0A0B0C0D, []byte("x"))
	if !bytes.Equal(p, []byte{0x0D, 0x0C, 0x0B, 0x0A, 'x'}) {
		t.Errorf("EventPayload() = % x", p)
	}
	id, rest, ok := PayloadTarget(p)
	if !ok || id != 0x0A0B0C0D || string(rest) != "x" {
		t.Errorf("PayloadTarget() = %d %q %v", id, rest, ok)
	}
	if _, _, ok := PayloadTarget([]byte{1, 2}); ok {
		t.Error("short payload should not parse")
	}
}

func TestEventKindNames(t *testing.T) {
	tests := []struct {
		kind EventKind
		name string
	}{
		{KindClick, "click"},
		{KindSubmit, "submit"},
		{KindScroll, "scroll"},
		{EventKind(15), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.name {
			t.Errorf("EventKind(%d).String() = %q, want %q", tt.kind, got, tt.name)
		}
	}
	if k, ok := KindByName("keyup"); !ok || k != KindKeyUp {
		t.Errorf("KindByName(keyup) = %d, %v", k, ok)
	}
}
