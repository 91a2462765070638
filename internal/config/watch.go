package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vango-dev/nativebridge/internal/errors"
)

const watchDebounce = 100 * time.Millisecond

type watchOptions struct {
	logger *slog.Logger
}

// WatchOption configures Watch.
type WatchOption func(*watchOptions)

// WithWatchLogger sets the logger for watcher errors. The default is
// slog.Default().
func WithWatchLogger(l *slog.Logger) WatchOption {
	return func(o *watchOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// Watch reloads the config file at path whenever it changes and calls fn
// with the result. A reload that fails to parse or validate is reported
// through fn with a nil config. Watch blocks until ctx is cancelled.
//
// The parent directory is watched rather than the file itself so editors
// that replace the file on save are handled.
func Watch(ctx context.Context, path string, fn func(*Config, error), opts ...WatchOption) error {
	o := watchOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.New("B052").Wrap(err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return errors.New("B052").Wrap(err)
	}
	watchLoop(ctx, path, watcher.Events, watcher.Errors, fn, o.logger)
	return nil
}

func watchLoop(ctx context.Context, path string, events <-chan fsnotify.Event, errs <-chan error, fn func(*Config, error), logger *slog.Logger) {
	target := filepath.Clean(path)
	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			resetTimer(timer)
		case <-timer.C:
			cfg, err := LoadFile(path)
			fn(cfg, err)
		case err, ok := <-errs:
			if !ok {
				return
			}
			logger.Warn("config watcher error", "path", path, "error", err)
		}
	}
}

func resetTimer(timer *time.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	timer.Reset(watchDebounce)
}

// ParseLevel maps a config log level onto a slog level.
func ParseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}
