package bridge

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/vango-dev/nativebridge/internal/errors"
	"github.com/vango-dev/nativebridge/pkg/adapter"
	"github.com/vango-dev/nativebridge/pkg/host"
	"github.com/vango-dev/nativebridge/pkg/protocol"
	"github.com/vango-dev/nativebridge/pkg/render"
)

var errTest = stderrors.New("test failure")

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recorder struct {
	flushes    []FlushStats
	polls      []PollStats
	dispatches []DispatchStats
}

func (r *recorder) ObserveFlush(s FlushStats)       { r.flushes = append(r.flushes, s) }
func (r *recorder) ObservePoll(s PollStats)         { r.polls = append(r.polls, s) }
func (r *recorder) ObserveDispatch(s DispatchStats) { r.dispatches = append(r.dispatches, s) }

func newBridge(t *testing.T, r adapter.Renderer, opts ...Option) *Bridge {
	t.Helper()
	b, err := New(r, append([]Option{WithLogger(quiet())}, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return b
}

// mount creates a view under the root with the given props.
func mount(t *testing.T, h *host.Host, props map[string]any) protocol.NodeID {
	t.Helper()
	id := h.CreateElement("view")
	for k, v := range props {
		if err := h.SetProp(id, k, v); err != nil {
			t.Fatal(err)
		}
	}
	if err := h.Add(h.Root().ID, id, -1); err != nil {
		t.Fatal(err)
	}
	return id
}

func decodeBatch(t *testing.T, payload []byte) protocol.Batch {
	t.Helper()
	b, err := protocol.DecodeBatch(payload)
	if err != nil {
		t.Fatalf("DecodeBatch() error = %v", err)
	}
	return b
}

func countOps(t *testing.T, batches [][]byte, kind protocol.OpKind) int {
	t.Helper()
	n := 0
	for _, p := range batches {
		for _, op := range decodeBatch(t, p).Ops {
			if op.Op == kind {
				n++
			}
		}
	}
	return n
}

func TestSingleQuadFlush(t *testing.T) {
	stub := adapter.NewStub()
	b := newBridge(t, stub)
	mount(t, b.Host(), map[string]any{
		"x": 0, "y": 0, "width": 100, "height": 50,
		"color": 0xFF0000FF,
	})
	if !b.Controller().Pending() {
		t.Fatal("mutation should schedule a flush")
	}

	if err := b.FlushIfPending(); err != nil {
		t.Fatal(err)
	}
	commits := stub.Commits()
	if len(commits) != 1 {
		t.Fatalf("commits = %d, want 1", len(commits))
	}
	cmds, err := render.DecodeCommands(commits[0])
	if err != nil {
		t.Fatal(err)
	}
	if len(cmds) != 1 {
		t.Fatalf("commands = %v", cmds)
	}
	c := cmds[0]
	if c.Opcode != protocol.OpcodeQuad || c.Extra != 0xFF0000FF {
		t.Errorf("command = %s", c)
	}
	if c.Frame != (protocol.Frame{Width: 100, Height: 50}) {
		t.Errorf("frame = %+v", c.Frame)
	}
	if len(stub.Snapshots()) != 1 || len(stub.Batches()) != 0 {
		t.Errorf("snapshots = %d, batches = %d; want 1, 0", len(stub.Snapshots()), len(stub.Batches()))
	}
	if b.Controller().Pending() {
		t.Error("flush should clear the pending flag")
	}
}

func TestFlushIsCoalesced(t *testing.T) {
	stub := adapter.NewStub()
	b := newBridge(t, stub)
	for range 5 {
		mount(t, b.Host(), nil)
	}
	_ = b.FlushIfPending()
	_ = b.FlushIfPending()
	if got := len(stub.Commits()); got != 1 {
		t.Errorf("commits = %d, want 1", got)
	}
}

func TestIncrementalAfterFirstSnapshot(t *testing.T) {
	stub := adapter.NewStub()
	b := newBridge(t, stub)
	h := b.Host()
	box := mount(t, h, nil)
	_ = b.Flush()

	_ = h.SetProp(box, "className", "row")
	_ = h.Add(box, h.CreateText("hi"), -1)
	if err := b.Flush(); err != nil {
		t.Fatal(err)
	}

	batches := stub.Batches()
	if len(batches) != 1 || len(stub.Snapshots()) != 1 {
		t.Fatalf("batches = %d, snapshots = %d", len(batches), len(stub.Snapshots()))
	}
	batch := decodeBatch(t, batches[0])
	if batch.Seq != 1 || len(batch.Ops) != 2 {
		t.Fatalf("batch = %+v", batch)
	}
	if batch.Ops[0].Op != protocol.OpSetClass || batch.Ops[1].Op != protocol.OpCreate {
		t.Errorf("ops = %s, %s", batch.Ops[0].Op, batch.Ops[1].Op)
	}
	if h.PendingOps() != 0 {
		t.Error("flush must drain the mutation queue")
	}
}

func TestSecondFlushSendsNoListenOps(t *testing.T) {
	stub := adapter.NewStub()
	b := newBridge(t, stub)
	h := b.Host()
	box := mount(t, h, nil)
	if _, err := h.On(box, "click", func(host.Event) error { return nil }); err != nil {
		t.Fatal(err)
	}

	_ = b.Flush()
	if got := countOps(t, stub.Batches(), protocol.OpListen); got != 1 {
		t.Fatalf("listen ops after first flush = %d, want 1", got)
	}
	_ = b.Flush()
	if got := countOps(t, stub.Batches(), protocol.OpListen); got != 1 {
		t.Errorf("listen ops after second flush = %d, want 1", got)
	}
	n, _ := h.Node(box)
	if _, ok := n.SentListeners["click"]; !ok || n.ListenersDirty {
		t.Errorf("listener state = %v dirty=%v", n.SentListeners, n.ListenersDirty)
	}
}

func TestRejectedBatchResyncs(t *testing.T) {
	reject := false
	stub := adapter.NewStub(adapter.WithAcceptFunc(func([]byte) bool {
		if reject {
			reject = false
			return false
		}
		return true
	}))
	rec := &recorder{}
	b := newBridge(t, stub, WithObserver(rec))
	h := b.Host()
	box := mount(t, h, nil)
	_, _ = h.On(box, "click", func(host.Event) error { return nil })
	_ = b.Flush()

	reject = true
	_ = h.Add(box, h.CreateElement("view"), -1)
	if err := b.Flush(); err != nil {
		t.Fatal(err)
	}

	last := rec.flushes[len(rec.flushes)-1]
	if !last.Rejected || !last.Snapshot {
		t.Errorf("stats = %+v, want rejected batch healed by a snapshot", last)
	}
	if len(stub.Snapshots()) != 2 {
		t.Errorf("snapshots = %d, want 2", len(stub.Snapshots()))
	}
	if got := countOps(t, stub.Batches(), protocol.OpListen); got != 2 {
		t.Errorf("listen ops = %d, want the click declared twice", got)
	}
	if b.Controller().NeedsFullSync() {
		t.Error("a delivered snapshot clears the resync condition")
	}
	if !b.Controller().Pending() {
		t.Error("rejection should schedule a follow-up flush")
	}
}

func TestRejectedBatchWithoutTreeRebuilds(t *testing.T) {
	reject := false
	stub := adapter.NewStub(
		adapter.WithoutFeature(adapter.FeatureTree),
		adapter.WithAcceptFunc(func([]byte) bool { return !reject }),
	)
	b := newBridge(t, stub)
	h := b.Host()
	box := mount(t, h, nil)
	_ = b.Flush()

	reject = true
	_ = h.SetProp(box, "className", "row")
	_ = b.Flush()

	reject = false
	if err := b.FlushIfPending(); err != nil {
		t.Fatal(err)
	}
	batches := stub.Batches()
	last := decodeBatch(t, batches[len(batches)-1])
	if len(last.Ops) != 1 || last.Ops[0].Op != protocol.OpCreate || last.Ops[0].ID != box {
		t.Fatalf("rebuild batch = %+v", last.Ops)
	}
	if last.Ops[0].ClassName == nil || *last.Ops[0].ClassName != "row" {
		t.Error("rebuilt create should carry the current class")
	}
	if len(stub.Snapshots()) != 0 {
		t.Error("no snapshot can be sent without tree support")
	}
}

func TestSnapshotEveryFlush(t *testing.T) {
	stub := adapter.NewStub()
	b := newBridge(t, stub, WithMode(ModeSnapshotEveryFlush))
	box := mount(t, b.Host(), nil)
	_, _ = b.Host().On(box, "input", func(host.Event) error { return nil })
	for range 3 {
		_ = b.Flush()
	}
	if len(stub.Snapshots()) != 3 {
		t.Errorf("snapshots = %d, want 3", len(stub.Snapshots()))
	}
	if got := countOps(t, stub.Batches(), protocol.OpCreate); got != 0 {
		t.Errorf("create ops sent = %d, want none", got)
	}
	if got := countOps(t, stub.Batches(), protocol.OpListen); got != 3 {
		t.Errorf("listen ops = %d, want one redeclaration per snapshot", got)
	}
}

func TestPeriodicResync(t *testing.T) {
	stub := adapter.NewStub()
	b := newBridge(t, stub, WithResyncInterval(3))
	box := mount(t, b.Host(), nil)
	var snaps []int
	for i := 1; i <= 7; i++ {
		_ = b.Host().SetProp(box, "opacity", float64(i)/10)
		_ = b.Flush()
		if l := len(stub.Snapshots()); len(snaps) < l {
			snaps = append(snaps, i)
		}
	}
	want := []int{1, 4, 7}
	if len(snaps) != len(want) || snaps[0] != 1 || snaps[1] != 4 || snaps[2] != 7 {
		t.Errorf("snapshot flushes = %v, want %v", snaps, want)
	}
}

func TestMutationsOnlySynthesizesCreates(t *testing.T) {
	stub := adapter.NewStub()
	b := newBridge(t, stub, WithMode(ModeMutationsOnly))
	h := b.Host()
	box := mount(t, h, nil)
	_ = h.Add(box, h.CreateText("a"), -1)
	h.DrainOps()

	if err := b.Flush(); err != nil {
		t.Fatal(err)
	}
	if len(stub.Snapshots()) != 0 {
		t.Fatal("mutations_only never sends a first snapshot")
	}
	batches := stub.Batches()
	if len(batches) != 1 {
		t.Fatalf("batches = %d", len(batches))
	}
	ops := decodeBatch(t, batches[0]).Ops
	if len(ops) != 2 || ops[0].ID != box || ops[1].Op != protocol.OpCreate || *ops[1].Parent != box {
		t.Errorf("synthesized ops = %+v", ops)
	}
}

func TestModeCoercion(t *testing.T) {
	stub := adapter.NewStub(adapter.WithoutFeature(adapter.FeatureTree))
	b := newBridge(t, stub, WithMode(ModeSnapshotEveryFlush))
	if b.Mode() != ModeMutationsOnly {
		t.Errorf("Mode() = %s, want mutations_only", b.Mode())
	}

	plain := adapter.NewStub(adapter.WithoutFeature(adapter.FeatureOps))
	if m := newBridge(t, plain).Mode(); m != ModeSnapshotOnce {
		t.Errorf("Mode() = %s, want snapshot_once", m)
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	if _, err := New(nil); !stderrors.Is(err, errors.New("B012")) {
		t.Errorf("New(nil) error = %v, want B012", err)
	}
	closed := adapter.NewStub()
	_ = closed.Close()
	if _, err := New(closed); !stderrors.Is(err, errors.New("B012")) {
		t.Errorf("New(closed) error = %v, want B012", err)
	}
	if _, err := New(adapter.NewStub(), WithMode("sometimes")); !stderrors.Is(err, errors.New("B050")) {
		t.Errorf("New(bad mode) error = %v, want B050", err)
	}
}

func TestEncoderOverflowDropsFrame(t *testing.T) {
	stub := adapter.NewStub()
	b := newBridge(t, stub, WithEncoder(1, 64))
	h := b.Host()
	a := mount(t, h, nil)
	mount(t, h, nil)

	err := b.Flush()
	if !stderrors.Is(err, render.ErrHeaderCapacity) {
		t.Fatalf("Flush() error = %v, want header capacity", err)
	}
	if len(stub.Commits()) != 0 || len(stub.Snapshots()) != 0 {
		t.Error("a dropped frame must not reach the renderer")
	}
	if h.PendingOps() != 0 {
		t.Error("the mutation queue is drained even when the frame is dropped")
	}
	if !b.Controller().NeedsFullSync() {
		t.Error("a dropped frame forces a resync")
	}

	_ = h.Remove(h.Root().ID, a)
	if err := b.Flush(); err != nil {
		t.Fatal(err)
	}
	if len(stub.Commits()) != 1 || len(stub.Snapshots()) != 1 {
		t.Errorf("commits = %d, snapshots = %d", len(stub.Commits()), len(stub.Snapshots()))
	}
}

func TestFlushAfterCloseDrainsQueue(t *testing.T) {
	stub := adapter.NewStub()
	b := newBridge(t, stub)
	mount(t, b.Host(), nil)
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
	if err := b.Flush(); !stderrors.Is(err, errors.New("B012")) {
		t.Errorf("Flush() error = %v, want B012", err)
	}
	if b.Host().PendingOps() != 0 {
		t.Error("ops should be drained after close")
	}
	if err := b.Tick(); !stderrors.Is(err, errors.New("B012")) {
		t.Errorf("Tick() error = %v, want B012", err)
	}
}

func TestCallbackEvents(t *testing.T) {
	stub := adapter.NewStub()
	rec := &recorder{}
	b := newBridge(t, stub, WithObserver(rec))
	h := b.Host()
	a := mount(t, h, nil)
	c := mount(t, h, nil)

	var got []string
	for _, id := range []protocol.NodeID{a, c} {
		_, _ = h.On(id, "submit", func(e host.Event) error {
			got = append(got, e.Detail)
			return nil
		})
	}

	stub.Emit("submit", protocol.EventPayload(c, []byte("one")))
	stub.Emit("submit", protocol.EventPayload(0, []byte("all")))
	stub.Emit("submit", []byte{1})
	if len(got) != 0 {
		t.Fatal("callback events run on the next tick, not inline")
	}
	if err := b.Tick(); err != nil {
		t.Fatal(err)
	}
	want := []string{"one", "all", "all"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] || got[2] != want[2] {
		t.Errorf("handled = %v, want %v", got, want)
	}
	if len(rec.dispatches) != 1 || rec.dispatches[0].Ran != 2 {
		t.Errorf("dispatch stats = %+v", rec.dispatches)
	}
}

func TestHandlerPanicIsContained(t *testing.T) {
	ring := adapter.NewRing(8, 64)
	stub := adapter.NewStub(adapter.WithRing(ring))
	rec := &recorder{}
	b := newBridge(t, stub, WithObserver(rec))
	h := b.Host()
	box := mount(t, h, nil)

	calls := 0
	_, _ = h.On(box, "click", func(host.Event) error { panic("boom") })
	_, _ = h.On(box, "click", func(host.Event) error {
		calls++
		return nil
	})
	_ = b.Flush()

	ring.Push(protocol.KindClick, box, nil)
	ring.Push(protocol.KindClick, box, nil)
	if err := b.Tick(); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("second handler ran %d times, want 2", calls)
	}
	stats := rec.dispatches[len(rec.dispatches)-1]
	if stats.Ran != 4 || stats.Panics != 2 {
		t.Errorf("dispatch stats = %+v", stats)
	}
}

func TestHandlerMutationsFlushOnSameTick(t *testing.T) {
	ring := adapter.NewRing(8, 64)
	stub := adapter.NewStub(adapter.WithRing(ring))
	b := newBridge(t, stub)
	h := b.Host()
	box := mount(t, h, nil)
	_, _ = h.On(box, "input", func(e host.Event) error {
		return h.SetProp(box, "value", e.Detail)
	})
	_ = b.Flush()
	before := len(stub.Commits())

	ring.Push(protocol.KindInput, box, []byte("typed"))
	if err := b.Tick(); err != nil {
		t.Fatal(err)
	}
	if len(stub.Commits()) != before+1 {
		t.Fatal("handler mutation should flush on the same tick")
	}
	ops := decodeBatch(t, stub.Batches()[len(stub.Batches())-1]).Ops
	if len(ops) != 1 || ops[0].Name != protocol.SetValue || *ops[0].Value != "typed" {
		t.Errorf("ops = %+v", ops)
	}
}

func TestDispatch(t *testing.T) {
	b := newBridge(t, adapter.NewStub(), WithQueueSize(1))
	ran := false
	if err := b.Dispatch(func() { ran = true }); err != nil {
		t.Fatal(err)
	}
	if err := b.Dispatch(func() {}); !stderrors.Is(err, errors.New("B040")) {
		t.Errorf("Dispatch() on a full queue error = %v, want B040", err)
	}
	_ = b.Tick()
	if !ran {
		t.Error("dispatched function did not run")
	}
}

func TestRunPresentsEachFrame(t *testing.T) {
	stub := adapter.NewStub()
	b := newBridge(t, stub)
	mount(t, b.Host(), nil)

	frames := 0
	err := b.Run(context.Background(), 0, func() bool {
		frames++
		return frames < 3
	})
	if err != nil {
		t.Fatal(err)
	}
	if stub.Presents() != 3 || len(stub.Commits()) != 1 {
		t.Errorf("presents = %d, commits = %d", stub.Presents(), len(stub.Commits()))
	}
}

func TestLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	n := 0
	err := Loop(ctx, time.Millisecond, func() (bool, error) {
		n++
		if n == 2 {
			cancel()
		}
		return true, nil
	})
	if !stderrors.Is(err, context.Canceled) {
		t.Errorf("Loop() error = %v, want context.Canceled", err)
	}

	boom := stderrors.New("boom")
	err = Loop(context.Background(), 0, func() (bool, error) { return true, boom })
	if err != boom {
		t.Errorf("Loop() error = %v, want boom", err)
	}
}

func TestResizeSchedulesFlush(t *testing.T) {
	stub := adapter.NewStub()
	b := newBridge(t, stub)
	b.Resize(800, 600)
	if w, h := stub.Size(); w != 800 || h != 600 {
		t.Errorf("Size() = %dx%d", w, h)
	}
	if !b.Controller().Pending() {
		t.Error("resize should schedule a flush")
	}
	if !b.SetText("hello") || stub.Texts()[0] != "hello" {
		t.Error("SetText should reach the text fallback")
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
		err  bool
	}{
		{"", ModeSnapshotOnce, false},
		{"snapshot_once", ModeSnapshotOnce, false},
		{"snapshot_every_flush", ModeSnapshotEveryFlush, false},
		{"mutations_only", ModeMutationsOnly, false},
		{"always", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.err || got != tt.want {
			t.Errorf("ParseMode(%q) = %q, %v", tt.in, got, err)
		}
	}
}
