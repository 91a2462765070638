package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/vango-dev/nativebridge/pkg/inspector"
	"github.com/vango-dev/nativebridge/pkg/recording"
)

// maxPause caps the delay between entries when pacing a recording.
const maxPause = 2 * time.Second

func serveCmd(g *globals) *cobra.Command {
	var (
		addr    string
		session string
		pace    bool
		backlog int
		opts    runOptions
	)

	cmd := &cobra.Command{
		Use:   "serve [recording]",
		Short: "Serve the inspector",
		Long: `Serve the HTTP inspector.

With a recording, its entries are fed to the inspector, optionally at
the pace they were recorded. Without one, the demo scene runs live and
its traffic is streamed.

Endpoints:
  /tree     replicated tree as JSON
  /frame    last committed frame
  /stats    replay counters
  /entries  recent entries (?limit=N)
  /ws       websocket stream of entries
  /metrics  Prometheus metrics

Examples:
  nativebridge serve
  nativebridge serve session.jsonl --pace
  nativebridge serve --addr 0.0.0.0:7420 --frames 0`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if addr == "" {
				addr = g.cfg.Inspector.Addr
			}
			reg := prometheus.NewRegistry()
			insp := inspector.New(
				inspector.WithLogger(g.logger),
				inspector.WithGatherer(reg),
				inspector.WithBacklog(backlog),
			)

			errCh := make(chan error, 1)
			go func() { errCh <- insp.ListenAndServe(ctx, addr) }()
			g.out.success("Inspector on http://%s", addr)

			if len(args) == 1 {
				entries, id, err := g.loadEntries(ctx, args[0], session)
				if err != nil {
					stop()
					<-errCh
					return err
				}
				g.out.info("feeding %d entries of session %s", len(entries), id)
				feed(ctx, insp, entries, pace)
			} else {
				opts.sinks = []recording.Sink{keepOpen{insp}}
				opts.registry = reg
				if err := g.runDemo(ctx, opts); err != nil {
					stop()
					<-errCh
					return err
				}
			}

			g.out.info("serving until interrupted")
			return <-errCh
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default inspector.addr)")
	cmd.Flags().StringVarP(&session, "session", "s", "", "Session to feed (default: the last one)")
	cmd.Flags().BoolVar(&pace, "pace", false, "Feed entries at their recorded pace")
	cmd.Flags().IntVar(&backlog, "backlog", inspector.DefaultBacklog, "Entries replayed to new websocket clients")
	addRunFlags(cmd, &opts)
	return cmd
}

// feed writes entries to the inspector, sleeping between them when pace
// is set.
func feed(ctx context.Context, insp *inspector.Inspector, entries []recording.Entry, pace bool) {
	for i, e := range entries {
		if pace && i > 0 {
			wait := min(e.Time.Sub(entries[i-1].Time), maxPause)
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
		}
		_ = insp.Write(e)
	}
}

// keepOpen keeps the inspector serving after the recorder closes its
// sinks.
type keepOpen struct{ recording.Sink }

func (keepOpen) Close() error { return nil }
