package bridge

import (
	"context"
	"log/slog"
	"time"

	"github.com/vango-dev/nativebridge/internal/errors"
	"github.com/vango-dev/nativebridge/pkg/adapter"
	"github.com/vango-dev/nativebridge/pkg/host"
	"github.com/vango-dev/nativebridge/pkg/protocol"
	"github.com/vango-dev/nativebridge/pkg/render"
)

// Bridge wires a host tree to a renderer.
type Bridge struct {
	host     *host.Host
	renderer adapter.Renderer
	enc      *render.Encoder
	ctrl     *Controller
	queue    *Queue
	poller   *Poller
	logger   *slog.Logger
	obs      observers
}

// New creates a bridge driving r. The renderer must be open; a disposed
// renderer is refused.
func New(r adapter.Renderer, opts ...Option) (*Bridge, error) {
	if r == nil || r.Disposed() {
		return nil, errors.New("B012").WithDetail("the bridge needs an open renderer")
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if _, err := ParseMode(string(o.mode)); err != nil {
		return nil, err
	}

	b := &Bridge{
		renderer: r,
		enc:      render.NewEncoder(o.maxCommands, o.maxPayloadBytes),
		logger:   o.logger.With("component", "bridge"),
		obs:      o.observers,
	}
	b.host = host.New(host.WithScheduler(b.ScheduleFlush), host.WithLogger(o.logger))
	b.queue = NewQueue(o.queueSize, b.logger)
	b.ctrl = newController(b.host, b.enc, r, o.mode, o.resyncInterval, b.logger, b.obs)
	if ring, ok := adapter.AsEventRing(r); ok {
		b.poller = NewPoller(ring, b.host, b.queue, b.logger)
	}
	r.OnEvent(b.onCallback)

	b.logger.Debug("bridge ready",
		"mode", b.ctrl.Mode(),
		"ops", adapter.Supports(r, adapter.FeatureOps),
		"tree", adapter.Supports(r, adapter.FeatureTree),
		"ring", b.poller != nil)
	return b, nil
}

// Host returns the host tree. It must only be used from the goroutine
// driving the bridge.
func (b *Bridge) Host() *host.Host { return b.host }

// Renderer returns the renderer.
func (b *Bridge) Renderer() adapter.Renderer { return b.renderer }

// Controller returns the flush controller.
func (b *Bridge) Controller() *Controller { return b.ctrl }

// Mode returns the effective sync mode.
func (b *Bridge) Mode() Mode { return b.ctrl.Mode() }

// ScheduleFlush requests a flush on the next tick. Idempotent.
func (b *Bridge) ScheduleFlush() { b.ctrl.Schedule() }

// Flush runs a flush now, whether or not one was scheduled.
func (b *Bridge) Flush() error { return b.ctrl.Flush() }

// FlushIfPending runs a flush if one was scheduled.
func (b *Bridge) FlushIfPending() error { return b.ctrl.FlushIfPending() }

// Dispatch queues fn to run on the next tick. It is safe to call from
// any goroutine and is the way to touch the host from outside the loop.
func (b *Bridge) Dispatch(fn func()) error {
	return b.queue.push(unit{event: "dispatch", run: func() error {
		fn()
		return nil
	}})
}

// Tick polls events, runs the queued dispatch units and flushes if
// anything scheduled a flush.
func (b *Bridge) Tick() error {
	if b.renderer.Disposed() {
		return errors.New("B012")
	}
	if b.poller != nil {
		b.obs.poll(b.poller.Poll())
	}
	if b.queue.Len() > 0 {
		b.obs.dispatch(b.queue.Drain())
	}
	return b.ctrl.FlushIfPending()
}

// Run ticks every interval and presents each frame until ctx is done,
// step returns false or the renderer is closed. A nil step always
// continues. Frame errors are logged; fatal ones stop the loop.
func (b *Bridge) Run(ctx context.Context, interval time.Duration, step func() bool) error {
	return Loop(ctx, interval, func() (bool, error) {
		if b.renderer.Disposed() {
			return false, nil
		}
		if err := b.Tick(); err != nil {
			if errors.IsFatal(err) {
				b.logger.Error("frame failed", "error", err)
			} else {
				b.logger.Warn("frame failed", "error", err)
			}
		}
		b.renderer.Present()
		if step != nil && !step() {
			return false, nil
		}
		return true, nil
	})
}

// Loop calls step every interval until ctx is done or step returns false
// or an error. A zero interval runs frames back to back.
func Loop(ctx context.Context, interval time.Duration, step func() (bool, error)) error {
	var tick <-chan time.Time
	if interval > 0 {
		t := time.NewTicker(interval)
		defer t.Stop()
		tick = t.C
	}
	for {
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		more, err := step()
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
}

// Resize forwards a new surface size and schedules a flush.
func (b *Bridge) Resize(width, height uint32) {
	b.renderer.Resize(width, height)
	b.ScheduleFlush()
}

// SetText shows text through the renderer's text fallback. It reports
// false if the renderer has none.
func (b *Bridge) SetText(text string) bool {
	ts, ok := adapter.AsTextSetter(b.renderer)
	if ok {
		ts.SetText(text)
	}
	return ok
}

// Close detaches the bridge from the renderer and closes it.
func (b *Bridge) Close() error {
	if b.renderer.Disposed() {
		return nil
	}
	b.renderer.OnEvent(nil)
	return b.renderer.Close()
}

// onCallback receives callback events. The target is resolved when the
// unit runs so the host is only touched from the bridge goroutine.
func (b *Bridge) onCallback(name string, payload []byte) {
	target, detail, ok := protocol.PayloadTarget(payload)
	if !ok {
		b.logger.Debug("callback event without target", "event", name, "bytes", len(payload))
		return
	}
	_ = b.queue.push(unit{event: name, node: target, run: func() error {
		b.deliver(name, target, detail, payload)
		return nil
	}})
}

// deliver runs every handler for a callback event. Target 0 broadcasts
// to every node listening for name.
func (b *Bridge) deliver(name string, target protocol.NodeID, detail, payload []byte) {
	targets := []protocol.NodeID{target}
	if target == 0 {
		targets = b.host.Listening(name)
	}
	for _, id := range targets {
		n, ok := b.host.Node(id)
		if !ok {
			continue
		}
		ev := host.Event{Name: name, NodeID: id, Detail: string(detail), Payload: payload}
		for _, fn := range n.Handlers(name) {
			panicked, err := b.queue.safeRun(unit{event: name, node: id, run: func() error { return fn(ev) }})
			if err != nil && !panicked {
				b.logger.Error("handler failed", "event", name, "node", id, "error", err)
			}
		}
	}
}
