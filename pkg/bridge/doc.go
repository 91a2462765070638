// Package bridge keeps a native renderer in sync with a host tree.
//
// A Bridge owns the host, a command encoder and the renderer. Mutations
// made through the host schedule a flush; the flush serializes the tree,
// re-emits every draw command, ships pending mutation ops (or a full
// snapshot) and commits the frame. Events flow back through the
// renderer's event ring or its callback and are queued as dispatch units
// that run on the next Tick, before the next flush.
//
// A typical frame loop:
//
//	b, err := bridge.New(renderer, bridge.WithMode(bridge.ModeSnapshotOnce))
//	if err != nil {
//	    return err
//	}
//	defer b.Close()
//
//	h := b.Host()
//	view := h.CreateElement("view")
//	_ = h.Add(h.Root().ID, view, -1)
//
//	return b.Run(ctx, 16*time.Millisecond, nil)
//
// The bridge is single-threaded: the host, the encoder and the renderer
// must only be used from the goroutine calling Tick. Dispatch is the one
// entry point safe to call from other goroutines.
package bridge
