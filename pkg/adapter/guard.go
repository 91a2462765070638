package adapter

import "sync"

// Guard implements deferred close for renderers whose native side calls
// back into Go. Close marks the renderer disposed at once; the release
// function runs only when no callback is executing.
type Guard struct {
	mu       sync.Mutex
	disposed bool
	depth    int
	release  func()
}

// Disposed reports whether Close has been called.
func (g *Guard) Disposed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.disposed
}

// Callback runs fn as a native callback. A Close issued from inside fn
// is completed after fn returns.
func (g *Guard) Callback(fn func()) {
	g.mu.Lock()
	g.depth++
	g.mu.Unlock()
	defer g.exit()
	fn()
}

func (g *Guard) exit() {
	g.mu.Lock()
	g.depth--
	release := g.take()
	g.mu.Unlock()
	if release != nil {
		release()
	}
}

// take returns the pending release if it may run now. Callers hold mu.
func (g *Guard) take() func() {
	if g.depth > 0 || g.release == nil {
		return nil
	}
	r := g.release
	g.release = nil
	return r
}

// Close disposes the guard and schedules release. It returns false if
// the guard was already disposed, in which case release is not used.
func (g *Guard) Close(release func()) bool {
	g.mu.Lock()
	if g.disposed {
		g.mu.Unlock()
		return false
	}
	g.disposed = true
	g.release = release
	r := g.take()
	g.mu.Unlock()
	if r != nil {
		r()
	}
	return true
}
