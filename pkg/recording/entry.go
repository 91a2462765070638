package recording

import (
	"encoding/json"
	"time"

	"github.com/vango-dev/nativebridge/pkg/render"
)

// Kind classifies a recorded entry.
type Kind string

const (
	KindBatch    Kind = "batch"
	KindSnapshot Kind = "snapshot"
	KindCommit   Kind = "commit"
	KindText     Kind = "text"
	KindResize   Kind = "resize"
	KindEvent    Kind = "event"
	KindClose    Kind = "close"
)

// Entry is one recorded renderer call. Batch and snapshot payloads are
// the wire JSON as sent; the other kinds carry a small JSON document.
type Entry struct {
	Session  string          `json:"session"`
	Seq      uint64          `json:"seq"`
	Time     time.Time       `json:"time"`
	Kind     Kind            `json:"kind"`
	Accepted bool            `json:"accepted,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// Frame is the payload of a commit entry.
type Frame struct {
	Count   int    `json:"count"`
	Headers []byte `json:"headers"`
	Payload []byte `json:"payload,omitempty"`
}

// Buffers returns the frame as command buffers.
func (f Frame) Buffers() render.Buffers {
	return render.Buffers{Headers: f.Headers, Payload: f.Payload, Count: f.Count}
}

// Event is the payload of an event entry.
type Event struct {
	Name    string `json:"name"`
	Payload []byte `json:"payload,omitempty"`
}

// Size is the payload of a resize entry.
type Size struct {
	Width  uint32 `json:"width"`
	Height uint32 `json:"height"`
}

// Decode unmarshals the payload of e into v.
func (e Entry) Decode(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return decodeError(e, err)
	}
	return nil
}

// Sink stores entries.
type Sink interface {
	Write(Entry) error
	Close() error
}
