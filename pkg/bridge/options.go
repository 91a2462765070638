package bridge

import (
	"log/slog"

	"github.com/vango-dev/nativebridge/internal/config"
)

type options struct {
	mode            Mode
	resyncInterval  int
	maxCommands     int
	maxPayloadBytes int
	queueSize       int
	logger          *slog.Logger
	observers       observers
}

func defaultOptions() options {
	return options{
		mode:            ModeSnapshotOnce,
		resyncInterval:  config.DefaultResyncInterval,
		maxCommands:     config.DefaultMaxCommands,
		maxPayloadBytes: config.DefaultMaxPayloadBytes,
		queueSize:       config.DefaultQueueSize,
		logger:          slog.Default(),
	}
}

// Option configures a Bridge.
type Option func(*options)

// WithMode sets the sync mode.
func WithMode(m Mode) Option {
	return func(o *options) { o.mode = m }
}

// WithResyncInterval sets how many flushes pass between periodic
// snapshots in ModeSnapshotOnce. Zero disables them.
func WithResyncInterval(n int) Option {
	return func(o *options) { o.resyncInterval = max(n, 0) }
}

// WithEncoder sizes the command encoder.
func WithEncoder(maxCommands, maxPayloadBytes int) Option {
	return func(o *options) {
		o.maxCommands = maxCommands
		o.maxPayloadBytes = maxPayloadBytes
	}
}

// WithQueueSize bounds the dispatch queue.
func WithQueueSize(n int) Option {
	return func(o *options) { o.queueSize = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithObserver adds an observer for flush, poll and dispatch stats.
func WithObserver(ob Observer) Option {
	return func(o *options) {
		if ob != nil {
			o.observers = append(o.observers, ob)
		}
	}
}

// FromConfig applies the sync, encoder and dispatch sections of cfg. An
// invalid mode falls back to snapshot_once; LoadFile has already
// validated it.
func FromConfig(cfg *config.Config) Option {
	return func(o *options) {
		if m, err := ParseMode(cfg.Sync.Mode); err == nil {
			o.mode = m
		}
		o.resyncInterval = max(cfg.Sync.ResyncInterval, 0)
		if cfg.Encoder.MaxCommands > 0 {
			o.maxCommands = cfg.Encoder.MaxCommands
		}
		if cfg.Encoder.MaxPayloadBytes > 0 {
			o.maxPayloadBytes = cfg.Encoder.MaxPayloadBytes
		}
		if cfg.Dispatch.QueueSize > 0 {
			o.queueSize = cfg.Dispatch.QueueSize
		}
	}
}
