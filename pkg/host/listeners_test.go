package host

import (
	"testing"

	"github.com/vango-dev/nativebridge/pkg/protocol"
)

func noop(Event) error { return nil }

func mountedNode(t *testing.T, h *Host) protocol.NodeID {
	t.Helper()
	id := h.CreateElement("view")
	mustAdd(t, h, h.Root().ID, id, -1)
	h.DrainOps()
	return id
}

func TestPendingListenersOnlyForCreatedNodes(t *testing.T) {
	h := New()
	detached := h.CreateElement("view")
	if _, err := h.On(detached, "click", noop); err != nil {
		t.Fatal(err)
	}
	if decls := h.PendingListeners(); len(decls) != 0 {
		t.Fatalf("detached node owes %v", decls)
	}

	mustAdd(t, h, h.Root().ID, detached, -1)
	decls := h.PendingListeners()
	if len(decls) != 1 || decls[0] != (ListenerDecl{ID: detached, Event: "click"}) {
		t.Fatalf("PendingListeners() = %v", decls)
	}

	h.CommitListeners(decls)
	if again := h.PendingListeners(); len(again) != 0 {
		t.Errorf("second PendingListeners() = %v, want none", again)
	}
	n, _ := h.Node(detached)
	if n.ListenersDirty {
		t.Error("ListenersDirty should clear once everything is sent")
	}
}

func TestOffLastHandlerQueuesUnlisten(t *testing.T) {
	h := New()
	id := mountedNode(t, h)
	first, _ := h.On(id, "click", noop)
	second, _ := h.On(id, "click", noop)
	h.CommitListeners(h.PendingListeners())

	if err := h.Off(id, "click", first); err != nil {
		t.Fatal(err)
	}
	if h.PendingOps() != 0 {
		t.Fatal("removing one of two handlers should not unlisten")
	}
	if err := h.Off(id, "click", second); err != nil {
		t.Fatal(err)
	}
	ops := h.DrainOps()
	if len(ops) != 1 || ops[0].Op != protocol.OpUnlisten || ops[0].EventType != "click" {
		t.Fatalf("ops = %+v", ops)
	}
	n, _ := h.Node(id)
	if _, sent := n.SentListeners["click"]; sent {
		t.Error("unlistened event must leave SentListeners")
	}
}

func TestOffBeforeSendIsSilent(t *testing.T) {
	h := New()
	id := mountedNode(t, h)
	ref, _ := h.On(id, "input", noop)
	if err := h.Off(id, "input", ref); err != nil {
		t.Fatal(err)
	}
	if h.PendingOps() != 0 || len(h.PendingListeners()) != 0 {
		t.Error("an unsent listener should vanish without ops")
	}
}

func TestPropertyHandlerReplaces(t *testing.T) {
	h := New()
	id := mountedNode(t, h)
	var calls []string

	_ = h.SetProp(id, "onClick", func(Event) { calls = append(calls, "a") })
	h.CommitListeners(h.PendingListeners())
	_ = h.SetProperty(id, "on:click", func(Event) { calls = append(calls, "b") }, nil)

	n, _ := h.Node(id)
	handlers := n.Handlers("click")
	if len(handlers) != 1 {
		t.Fatalf("handlers = %d, want 1", len(handlers))
	}
	_ = handlers[0](Event{Name: "click"})
	if len(calls) != 1 || calls[0] != "b" {
		t.Errorf("calls = %v, want [b]", calls)
	}
	if h.PendingOps() != 0 {
		t.Errorf("replacing a bound handler queued %v", opKinds(h.DrainOps()))
	}

	_ = h.SetProp(id, "prop:onClick", nil)
	if n.HasListener("click") {
		t.Error("nil property handler should unbind")
	}
	if ops := h.DrainOps(); len(ops) != 1 || ops[0].Op != protocol.OpUnlisten {
		t.Errorf("ops = %v, want unlisten", opKinds(ops))
	}
}

func TestResetSentListenersRedeclares(t *testing.T) {
	h := New()
	id := mountedNode(t, h)
	_, _ = h.On(id, "click", noop)
	_, _ = h.On(id, "keydown", noop)
	h.CommitListeners(h.PendingListeners())

	h.ResetSentListeners()
	decls := h.PendingListeners()
	if len(decls) != 2 || decls[0].Event != "click" || decls[1].Event != "keydown" {
		t.Errorf("PendingListeners() = %v", decls)
	}
	ops := ListenOps(decls)
	if ops[0].Op != protocol.OpListen || ops[0].ID != id {
		t.Errorf("ListenOps() = %+v", ops)
	}
}

func TestListenersSkipTransparentNodes(t *testing.T) {
	h := New()
	slot := h.CreateSlot()
	mustAdd(t, h, h.Root().ID, slot, -1)
	_, _ = h.On(slot, "click", noop)
	h.MarkAllCreated()
	if decls := h.PendingListeners(); len(decls) != 0 {
		t.Errorf("slot listeners declared: %v", decls)
	}
	if got := h.Listening("click"); len(got) != 1 || got[0] != slot {
		t.Errorf("Listening() = %v", got)
	}
}

func TestEventFromProp(t *testing.T) {
	tests := []struct {
		name  string
		event string
		ok    bool
	}{
		{"on:click", "click", true},
		{"onClick", "click", true},
		{"onMouseEnter", "mouseenter", true},
		{"prop:onKeyDown", "keydown", true},
		{"prop:OnInput", "input", true},
		{"one", "", false},
		{"online", "", false},
		{"on:", "", false},
	}
	for _, tt := range tests {
		event, ok := eventFromProp(tt.name)
		if ok != tt.ok || event != tt.event {
			t.Errorf("eventFromProp(%q) = %q, %v; want %q, %v", tt.name, event, ok, tt.event, tt.ok)
		}
	}
}
