// Package native loads a renderer from a shared library with purego.
//
// The library exports a C ABI: createRenderer, destroyRenderer,
// commitCommands, presentRenderer and resizeRenderer are required;
// setRendererText, setRendererSolidTree, applyRendererSolidOps and the
// event ring accessors are optional and enable the matching adapter
// features when present.
package native
