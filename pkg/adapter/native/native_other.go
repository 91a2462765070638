//go:build !(darwin || linux)

package native

import (
	"log/slog"

	"github.com/vango-dev/nativebridge/internal/errors"
	"github.com/vango-dev/nativebridge/pkg/adapter"
)

// Renderer is unavailable on this platform. It satisfies
// adapter.Renderer so callers compile everywhere; Open never returns one.
type Renderer struct{ adapter.Renderer }

// Option configures Open.
type Option func(*Renderer)

// WithLogger is accepted for API parity.
func WithLogger(*slog.Logger) Option { return func(*Renderer) {} }

// Open always fails on this platform.
func Open(path string, opts ...Option) (*Renderer, error) {
	return nil, errors.New("B011").WithDetail("native renderers are only supported on darwin and linux")
}
