package bridge

import (
	"log/slog"
	"time"

	"github.com/vango-dev/nativebridge/internal/errors"
	"github.com/vango-dev/nativebridge/pkg/adapter"
	"github.com/vango-dev/nativebridge/pkg/host"
	"github.com/vango-dev/nativebridge/pkg/protocol"
	"github.com/vango-dev/nativebridge/pkg/render"
)

// Controller runs flushes: it decides between incremental batches and
// full snapshots, declares listeners and commits draw commands.
type Controller struct {
	host     *host.Host
	enc      *render.Encoder
	renderer adapter.Renderer
	logger   *slog.Logger
	obs      observers

	mode           Mode
	resyncInterval int

	pending       bool
	seq           uint64
	syncedOnce    bool
	needFullSync  bool
	opsSynced     bool
	rebuild       bool
	sinceSnapshot int
}

func newController(h *host.Host, enc *render.Encoder, r adapter.Renderer, mode Mode, resync int, logger *slog.Logger, obs observers) *Controller {
	c := &Controller{
		host:           h,
		enc:            enc,
		renderer:       r,
		logger:         logger,
		obs:            obs,
		mode:           mode,
		resyncInterval: resync,
	}
	_, canOps := adapter.AsOpsApplier(r)
	_, canTree := adapter.AsTreeSetter(r)
	if canOps && !canTree && mode != ModeMutationsOnly {
		logger.Warn("renderer takes batches but no snapshots, using mutations_only",
			"requested", mode)
		c.mode = ModeMutationsOnly
	}
	return c
}

// Mode returns the effective sync mode.
func (c *Controller) Mode() Mode { return c.mode }

// Schedule marks a flush as pending. Repeated calls before the flush
// runs are coalesced.
func (c *Controller) Schedule() { c.pending = true }

// Pending reports whether a flush is scheduled.
func (c *Controller) Pending() bool { return c.pending }

// Seq returns the last batch sequence number sent.
func (c *Controller) Seq() uint64 { return c.seq }

// NeedsFullSync reports whether the next flush will send a snapshot to
// recover from a rejected batch or a dropped frame.
func (c *Controller) NeedsFullSync() bool { return c.needFullSync }

// FlushIfPending flushes if a flush was scheduled.
func (c *Controller) FlushIfPending() error {
	if !c.pending {
		return nil
	}
	return c.Flush()
}

// Flush synchronizes the renderer with the host and commits a frame. The
// mutation queue is always drained, whatever path ran. An encoder error
// aborts the frame before anything is sent; the next flush resyncs.
func (c *Controller) Flush() (err error) {
	c.pending = false
	stats := FlushStats{Start: time.Now(), Mode: c.mode}
	defer func() {
		stats.Duration = time.Since(stats.Start)
		stats.Err = err
		c.obs.flush(stats)
	}()

	if c.renderer.Disposed() {
		c.host.DrainOps()
		return errors.New("B012")
	}

	if err := render.Emit(c.host, c.enc); err != nil {
		c.host.DrainOps()
		c.diverged()
		c.logger.Error("frame dropped", "error", err, "max_commands", c.enc.MaxCommands())
		return err
	}

	applier, canOps := adapter.AsOpsApplier(c.renderer)
	tree, canTree := adapter.AsTreeSetter(c.renderer)
	ops := c.host.DrainOps()

	var nodes []protocol.SerializedNode
	serialized := false
	serialize := func() []protocol.SerializedNode {
		if !serialized {
			nodes = c.host.Serialize()
			serialized = true
		}
		return nodes
	}

	// A periodic resync still sends the pending batch before its snapshot.
	c.sinceSnapshot++
	periodic := c.mode == ModeSnapshotOnce && c.syncedOnce && c.resyncInterval > 0 &&
		c.sinceSnapshot >= c.resyncInterval && canTree

	if c.mode == ModeMutationsOnly && !c.opsSynced && (len(ops) == 0 || c.rebuild) {
		ops = ops[:0]
		for _, n := range serialize() {
			ops = append(ops, protocol.CreateFromNode(n))
		}
		c.host.MarkAllCreated()
		c.host.ResetSentListeners()
		c.rebuild = false
	}

	var decls []host.ListenerDecl
	if canOps {
		decls = c.host.PendingListeners()
		ops = append(ops, host.ListenOps(decls)...)
	}

	incremental := c.mode != ModeSnapshotEveryFlush && (c.syncedOnce || c.mode == ModeMutationsOnly)
	if canOps && len(ops) > 0 && !c.needFullSync && incremental {
		stats.Ops = len(ops)
		stats.Listens = len(decls)
		if c.sendBatch(applier, ops) {
			c.host.CommitListeners(decls)
			if c.mode == ModeMutationsOnly {
				c.opsSynced = true
			}
		} else {
			stats.Rejected = true
		}
		stats.Seq = c.seq
	}

	snapshot := c.needFullSync || periodic || !canOps || c.mode == ModeSnapshotEveryFlush ||
		(!c.syncedOnce && c.mode != ModeMutationsOnly)
	if canTree && snapshot {
		payload, err := protocol.EncodeSnapshot(protocol.Snapshot{Nodes: serialize()})
		if err != nil {
			return errors.New("B021").Wrap(err)
		}
		tree.SetSolidTree(payload)
		stats.Snapshot = true
		c.host.MarkAllCreated()
		c.host.ResetSentListeners()
		c.syncedOnce = true
		c.opsSynced = true
		c.needFullSync = false
		c.sinceSnapshot = 0

		if canOps {
			decls := c.host.PendingListeners()
			if len(decls) > 0 {
				stats.Listens += len(decls)
				if c.sendBatch(applier, host.ListenOps(decls)) {
					c.host.CommitListeners(decls)
				} else {
					stats.Rejected = true
				}
				stats.Seq = c.seq
			}
		}
	}

	bufs := c.enc.Finalize()
	stats.Commands = bufs.Count
	stats.PayloadBytes = len(bufs.Payload)
	if err := c.renderer.Commit(bufs); err != nil {
		return err
	}

	c.host.Sweep()
	c.logger.Debug("flush",
		"seq", stats.Seq,
		"ops", stats.Ops,
		"snapshot", stats.Snapshot,
		"commands", stats.Commands)
	return nil
}

// sendBatch encodes ops under the next sequence number and submits them.
// A rejection or encoding failure schedules a resync flush.
func (c *Controller) sendBatch(applier adapter.OpsApplier, ops []protocol.MutationOp) bool {
	c.seq++
	payload, err := protocol.EncodeBatch(protocol.Batch{Seq: c.seq, Ops: ops})
	if err != nil {
		c.logger.Error("batch encoding failed", "seq", c.seq, "error", err)
		c.reject()
		return false
	}
	if applier.ApplyOps(payload) {
		return true
	}
	c.logger.Warn("mutation batch rejected, scheduling full resync",
		"code", "B020",
		"seq", c.seq,
		"ops", len(ops))
	c.reject()
	return false
}

func (c *Controller) reject() {
	first := !c.needFullSync
	c.diverged()
	if first {
		c.Schedule()
	}
}

// diverged records that the renderer no longer matches the host.
func (c *Controller) diverged() {
	if _, ok := adapter.AsTreeSetter(c.renderer); ok {
		c.needFullSync = true
		return
	}
	if c.mode == ModeMutationsOnly {
		c.opsSynced = false
		c.rebuild = true
	}
}
