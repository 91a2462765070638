package bridge

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/vango-dev/nativebridge/internal/errors"
	"github.com/vango-dev/nativebridge/pkg/host"
	"github.com/vango-dev/nativebridge/pkg/protocol"
)

// unit is one deferred piece of work: a handler invocation or a
// function passed to Dispatch.
type unit struct {
	event string
	node  protocol.NodeID
	run   func() error
}

// Queue is the bounded dispatch queue drained once per tick. Push is
// safe for concurrent use; Drain must be called from the bridge
// goroutine.
type Queue struct {
	mu      sync.Mutex
	units   []unit
	limit   int
	dropped int
	logger  *slog.Logger
}

// NewQueue creates a queue holding at most limit units.
func NewQueue(limit int, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{limit: max(limit, 1), logger: logger}
}

// Len returns the number of queued units.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.units)
}

func (q *Queue) push(u unit) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.units) >= q.limit {
		q.dropped++
		q.logger.Warn("dispatch queue full, dropping unit",
			"event", u.event,
			"node", u.node,
			"limit", q.limit)
		return errors.New("B040").WithDetailf("%d units already queued", q.limit)
	}
	q.units = append(q.units, u)
	return nil
}

// pushHandler queues one handler invocation for e.
func (q *Queue) pushHandler(fn host.Handler, e host.Event) error {
	return q.push(unit{event: e.Name, node: e.NodeID, run: func() error { return fn(e) }})
}

// Drain runs the units queued before the call, in order. Units queued
// while draining run on the next drain. Errors and panics are logged per
// unit and never stop the drain.
func (q *Queue) Drain() DispatchStats {
	q.mu.Lock()
	units := q.units
	q.units = nil
	stats := DispatchStats{Dropped: q.dropped}
	q.dropped = 0
	q.mu.Unlock()

	for _, u := range units {
		stats.Ran++
		panicked, err := q.safeRun(u)
		switch {
		case panicked:
			stats.Panics++
		case err != nil:
			stats.Failed++
			q.logger.Error("handler failed", "event", u.event, "node", u.node, "error", err)
		}
	}
	return stats
}

func (q *Queue) safeRun(u unit) (panicked bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			panicked = true
			err = fmt.Errorf("panic: %v", r)
			q.logger.Error("handler panic",
				"panic", r,
				"event", u.event,
				"node", u.node,
				"stack", string(debug.Stack()))
		}
	}()
	return false, u.run()
}
