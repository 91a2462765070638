package main

import (
	"context"
	stderrors "errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"github.com/vango-dev/nativebridge/internal/config"
	"github.com/vango-dev/nativebridge/pkg/adapter"
	"github.com/vango-dev/nativebridge/pkg/adapter/native"
	"github.com/vango-dev/nativebridge/pkg/bridge"
	"github.com/vango-dev/nativebridge/pkg/protocol"
	"github.com/vango-dev/nativebridge/pkg/recording"
	"github.com/vango-dev/nativebridge/pkg/telemetry"
)

// runOptions configures a demo run.
type runOptions struct {
	frames     int
	interval   time.Duration
	clickEvery int
	seed       uint64
	native     bool
	record     string
	sqlite     string
	verify     bool

	// extra sinks, such as the inspector
	sinks    []recording.Sink
	registry *prometheus.Registry
}

func demoCmd(g *globals) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the demo scene",
		Long: `Run the demo scene against a renderer.

The scene churns a list of rows every frame and counts clicks on a
button. Without a native library the headless stub renderer is used and
clicks are synthesized.

Examples:
  nativebridge demo --frames 120
  nativebridge demo --record session.jsonl --verify
  nativebridge demo --native --frames 0`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return g.runDemo(ctx, opts)
		},
	}

	addRunFlags(cmd, &opts)
	cmd.Flags().BoolVar(&opts.verify, "verify", false, "Verify the JSONL recording after the run")
	return cmd
}

func addRunFlags(cmd *cobra.Command, opts *runOptions) {
	cmd.Flags().IntVarP(&opts.frames, "frames", "n", 120, "Frames to run (0 runs until interrupted)")
	cmd.Flags().DurationVar(&opts.interval, "interval", 0, "Frame interval (default from config)")
	cmd.Flags().IntVar(&opts.clickEvery, "click-every", 10, "Synthesize a click every N frames on the stub renderer (0 disables)")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 1, "Seed for the scene churn")
	cmd.Flags().BoolVar(&opts.native, "native", false, "Use the native library from config (native.library)")
	cmd.Flags().StringVar(&opts.record, "record", "", "Record to a JSONL file (default recording.path)")
	cmd.Flags().StringVar(&opts.sqlite, "sqlite", "", "Record to a SQLite database (default recording.sqlite)")
}

// openRenderer returns the native renderer when asked for, else a stub.
func (g *globals) openRenderer(useNative bool) (adapter.Renderer, *adapter.Stub, error) {
	if useNative || g.cfg.Native.Library != "" {
		r, err := native.Open(g.cfg.LibraryPath(), native.WithLogger(g.logger))
		if err != nil {
			return nil, nil, err
		}
		return r, nil, nil
	}
	stub := adapter.NewStub()
	return stub, stub, nil
}

// sinks opens the configured recording sinks.
func (g *globals) openSinks(ctx context.Context, opts *runOptions) (recording.MultiSink, error) {
	sinks := recording.MultiSink(opts.sinks)
	if opts.record == "" {
		opts.record = g.cfg.Recording.Path
	}
	if opts.sqlite == "" {
		opts.sqlite = g.cfg.Recording.SQLite
	}
	if opts.record != "" {
		f, err := recording.CreateFile(opts.record)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, f)
	}
	if opts.sqlite != "" {
		db, err := recording.OpenSQLite(ctx, opts.sqlite)
		if err != nil {
			_ = sinks.Close()
			return nil, err
		}
		sinks = append(sinks, db)
	}
	return sinks, nil
}

func (g *globals) runDemo(ctx context.Context, opts runOptions) error {
	renderer, stub, err := g.openRenderer(opts.native)
	if err != nil {
		return err
	}

	sinks, err := g.openSinks(ctx, &opts)
	if err != nil {
		_ = renderer.Close()
		return err
	}
	session := ""
	if len(sinks) > 0 {
		rec := recording.NewRecorder(renderer, sinks, recording.WithRecorderLogger(g.logger))
		session = rec.Session()
		renderer = rec
	}

	reg := opts.registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	tracerOpts := []telemetry.TracerOption{}
	if session != "" {
		tracerOpts = append(tracerOpts, telemetry.WithAttributes(attribute.String("nativebridge.session", session)))
	}
	b, err := bridge.New(renderer,
		bridge.FromConfig(g.cfg),
		bridge.WithLogger(g.logger),
		bridge.WithObserver(telemetry.NewMetrics(
			telemetry.WithRegistry(reg),
			telemetry.WithNamespace(g.cfg.Telemetry.Namespace))),
		bridge.WithObserver(telemetry.NewTracer(tracerOpts...)),
	)
	if err != nil {
		_ = renderer.Close()
		return err
	}

	sc := newScene(b.Host(), opts.seed)
	if err := sc.mount(b.Host().Root().ID); err != nil {
		_ = b.Close()
		return err
	}

	if path := g.cfg.Path(); path != "" {
		go g.watchConfig(ctx, path)
	}

	interval := opts.interval
	if interval == 0 {
		interval = g.cfg.FrameInterval()
	}
	g.out.heading("nativebridge demo")
	g.out.fields(
		"mode", b.Mode(),
		"renderer", rendererName(stub),
		"interval", interval,
		"session", orNone(session),
	)
	g.out.line("")

	frames := 0
	start := time.Now()
	runErr := b.Run(ctx, interval, func() bool {
		frames++
		if stub != nil && opts.clickEvery > 0 && frames%opts.clickEvery == 0 {
			stub.Emit("click", protocol.EventPayload(sc.button, nil))
		}
		if err := sc.step(); err != nil {
			g.logger.Error("scene step failed", "error", err)
			return false
		}
		return opts.frames == 0 || frames < opts.frames
	})
	// One more tick runs the last step's flush and queued clicks.
	if runErr == nil {
		runErr = b.Tick()
	}
	commits := -1
	if stub != nil {
		commits = len(stub.Commits())
	}
	closeErr := b.Close()

	if runErr != nil && !stderrors.Is(runErr, context.Canceled) {
		return runErr
	}
	if closeErr != nil {
		return closeErr
	}

	elapsed := time.Since(start)
	g.out.success("Ran %d frames in %s", frames, elapsed.Round(time.Millisecond))
	g.out.fields(
		"clicks", sc.clicks,
		"nodes", b.Host().Len(),
		"batches", b.Controller().Seq(),
	)
	if commits >= 0 {
		g.out.fields("commits", commits)
	}
	if opts.record != "" {
		g.out.success("Recorded to %s", opts.record)
	}
	if opts.sqlite != "" {
		g.out.success("Recorded to %s", opts.sqlite)
	}

	if opts.verify && opts.record != "" {
		entries, err := recording.ReadFile(opts.record)
		if err != nil {
			return err
		}
		return g.reportVerify(entries)
	}
	return nil
}

// watchConfig applies log level changes from the config file.
func (g *globals) watchConfig(ctx context.Context, path string) {
	err := config.Watch(ctx, path, func(cfg *config.Config, err error) {
		if err != nil {
			g.logger.Warn("config reload failed", "path", path, "error", err)
			return
		}
		if g.logLevel == "" {
			g.level.Set(config.ParseLevel(cfg.Log.Level))
		}
		g.logger.Info("config reloaded", "path", path, "log_level", cfg.Log.Level)
	}, config.WithWatchLogger(g.logger))
	if err != nil {
		g.logger.Warn("config watch stopped", "path", path, "error", err)
	}
}

func rendererName(stub *adapter.Stub) string {
	if stub != nil {
		return "stub"
	}
	return "native"
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
