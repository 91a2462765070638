// Package adapter defines the boundary between the bridge and a native
// renderer.
//
// Renderer is the required surface. The incremental sync paths are
// optional interfaces a renderer may implement:
//
//   - OpsApplier accepts encoded mutation batches
//   - TreeSetter accepts full snapshots
//   - TextSetter accepts a plain text fallback
//   - EventRing exposes a shared event ring
//
// Decorators that forward every optional interface report what the
// wrapped renderer really supports through Featured; use the As* helpers
// rather than type assertions so that report is honored.
//
// Stub is a headless renderer for tests and tooling, and Ring is an
// in-memory event ring with the native memory layout. The native
// subpackage loads a real renderer from a shared library.
package adapter
