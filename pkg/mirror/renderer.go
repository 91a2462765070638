package mirror

import (
	"log/slog"
	"sync"

	"github.com/vango-dev/nativebridge/pkg/adapter"
	"github.com/vango-dev/nativebridge/pkg/protocol"
	"github.com/vango-dev/nativebridge/pkg/render"
)

// Renderer is a headless renderer that keeps a Mirror of the tree and
// the last committed frame. Everything else behaves like adapter.Stub.
type Renderer struct {
	*adapter.Stub

	mirror *Mirror
	logger *slog.Logger

	mu    sync.Mutex
	frame []render.Command
}

var (
	_ adapter.Renderer   = (*Renderer)(nil)
	_ adapter.OpsApplier = (*Renderer)(nil)
	_ adapter.TreeSetter = (*Renderer)(nil)
)

// NewRenderer returns a renderer replicating into m.
func NewRenderer(m *Mirror, logger *slog.Logger, opts ...adapter.StubOption) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{
		Stub:   adapter.NewStub(opts...),
		mirror: m,
		logger: logger,
	}
}

// Mirror returns the replica.
func (r *Renderer) Mirror() *Mirror { return r.mirror }

// ApplyOps applies the batch to the mirror. Undecodable or inconsistent
// batches are rejected.
func (r *Renderer) ApplyOps(payload []byte) bool {
	if !r.Stub.ApplyOps(payload) {
		return false
	}
	b, err := protocol.DecodeBatch(payload)
	if err != nil {
		r.logger.Warn("mirror rejected batch", "error", err)
		return false
	}
	if err := r.mirror.ApplyBatch(b); err != nil {
		r.logger.Warn("mirror rejected batch", "seq", b.Seq, "error", err)
		return false
	}
	return true
}

// SetSolidTree replaces the mirror with the snapshot.
func (r *Renderer) SetSolidTree(payload []byte) {
	if r.Disposed() {
		return
	}
	r.Stub.SetSolidTree(payload)
	s, err := protocol.DecodeSnapshot(payload)
	if err == nil {
		err = r.mirror.ApplySnapshot(s)
	}
	if err != nil {
		r.logger.Warn("mirror dropped snapshot", "error", err)
	}
}

// Commit decodes and keeps the frame.
func (r *Renderer) Commit(bufs render.Buffers) error {
	if err := r.Stub.Commit(bufs); err != nil {
		return err
	}
	cmds, err := render.DecodeCommands(bufs)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.frame = cmds
	r.mu.Unlock()
	return nil
}

// Frame returns the last committed draw commands.
func (r *Renderer) Frame() []render.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frame
}
