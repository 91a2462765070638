// Package host implements the in-memory host tree that a reactive runtime
// drives, and records the mutation ops that keep a native replica in sync.
//
// Nodes live in an id-indexed arena. Children are stored as ids and the
// parent as an id, so there are no reference cycles and serialization is
// a plain walk. Ids are assigned from a monotonic counter and never
// reused.
//
// Every mutation updates the arena, appends ops for nodes the native side
// already knows (create on first mount, move afterwards, remove, set_*),
// and calls the scheduler passed at construction:
//
//	h := host.New(host.WithScheduler(bridge.ScheduleFlush))
//	box := h.CreateElement("view")
//	h.SetProp(box, "width", 100)
//	h.Add(h.Root().ID, box, -1)
//
// Slot and portal nodes are transparent. They group children in the host
// tree but never exist on the native side; their children attach to the
// nearest non-transparent ancestor.
package host
