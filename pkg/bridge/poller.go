package bridge

import (
	"log/slog"
	"time"

	"github.com/vango-dev/nativebridge/pkg/adapter"
	"github.com/vango-dev/nativebridge/pkg/host"
	"github.com/vango-dev/nativebridge/pkg/protocol"
)

// Poller consumes a renderer's event ring and queues handler
// invocations.
type Poller struct {
	ring   adapter.EventRing
	host   *host.Host
	queue  *Queue
	logger *slog.Logger

	header         [protocol.RingHeaderExtSize]byte
	sizeWarned     bool
	droppedEvents  uint32
	droppedDetails uint32
}

// NewPoller creates a poller reading ring into queue.
func NewPoller(ring adapter.EventRing, h *host.Host, q *Queue, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{ring: ring, host: h, queue: q, logger: logger}
}

// Poll reads every pending entry, queues one unit per handler and
// acknowledges the new read head. Nothing is acknowledged when no entry
// was pending.
func (p *Poller) Poll() (stats PollStats) {
	stats.Start = time.Now()
	defer func() { stats.Duration = time.Since(stats.Start) }()

	n := p.ring.EventRingHeader(p.header[:])
	if n == 0 {
		return stats
	}
	if n != protocol.RingHeaderExtSize && !p.sizeWarned {
		p.logger.Warn("event ring header size mismatch", "want", protocol.RingHeaderExtSize, "got", n)
		p.sizeWarned = true
	}
	h, ok := protocol.ParseRingHeader(p.header[:min(n, len(p.header))])
	if !ok {
		return stats
	}
	if h.HasDropped {
		p.trackDropped(h, &stats)
	}

	pending := h.Pending()
	stats.Pending = pending
	if pending == 0 || h.Capacity == 0 {
		return stats
	}
	start := h.ReadHead
	if pending > h.Capacity {
		p.logger.Warn("event ring overran, skipping oldest entries",
			"pending", pending,
			"capacity", h.Capacity)
		start = h.WriteHead - h.Capacity
		pending = h.Capacity
	}

	entries := p.ring.EventRingEntries(h.Capacity)
	detail := p.ring.EventRingDetail(h.DetailCapacity)
	for i := range pending {
		e, ok := protocol.ReadEventEntry(entries, (start+i)%h.Capacity)
		if !ok {
			stats.Skipped++
			continue
		}
		if p.dispatch(e, detail) {
			stats.Dispatched++
		} else {
			stats.Skipped++
		}
	}
	p.ring.AcknowledgeEvents(h.WriteHead)
	return stats
}

// dispatch queues the handlers for e. Unknown nodes are expected while
// the tree changes under in-flight events and are skipped silently.
func (p *Poller) dispatch(e protocol.EventEntry, detail []byte) bool {
	n, ok := p.host.Node(e.NodeID)
	if !ok {
		return false
	}
	name := e.Kind.String()
	handlers := n.Handlers(name)
	if len(handlers) == 0 {
		return false
	}
	d := e.Detail(detail)
	ev := host.Event{
		Name:    name,
		NodeID:  e.NodeID,
		Detail:  string(d),
		Payload: protocol.EventPayload(e.NodeID, d),
	}
	for _, fn := range handlers {
		_ = p.queue.pushHandler(fn, ev)
	}
	return true
}

func (p *Poller) trackDropped(h protocol.RingHeader, stats *PollStats) {
	if h.DroppedEvents == p.droppedEvents && h.DroppedDetails == p.droppedDetails {
		return
	}
	stats.DroppedEvents = counterDelta(p.droppedEvents, h.DroppedEvents)
	stats.DroppedDetails = counterDelta(p.droppedDetails, h.DroppedDetails)
	p.droppedEvents = h.DroppedEvents
	p.droppedDetails = h.DroppedDetails
	if stats.DroppedEvents > 0 || stats.DroppedDetails > 0 {
		p.logger.Warn("event ring overflow",
			"dropped_events", stats.DroppedEvents,
			"dropped_details", stats.DroppedDetails)
	}
}

// counterDelta treats a counter that went backwards as reset.
func counterDelta(prev, cur uint32) uint32 {
	if cur >= prev {
		return cur - prev
	}
	return cur
}
