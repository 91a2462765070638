package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/nativebridge/internal/errors"
	"github.com/vango-dev/nativebridge/pkg/mirror"
	"github.com/vango-dev/nativebridge/pkg/protocol"
	"github.com/vango-dev/nativebridge/pkg/recording"
	"github.com/vango-dev/nativebridge/pkg/render"
)

// loadEntries reads one session from a JSONL or SQLite recording. With
// no session given, the last recorded session is used.
func (g *globals) loadEntries(ctx context.Context, path, session string) ([]recording.Entry, string, error) {
	if isSQLite(path) {
		db, err := recording.OpenSQLite(ctx, path)
		if err != nil {
			return nil, "", err
		}
		defer db.Close()
		if session == "" {
			sessions, err := db.Sessions(ctx)
			if err != nil {
				return nil, "", err
			}
			if len(sessions) == 0 {
				return nil, "", errors.New("B060").WithDetailf("%s holds no sessions", path)
			}
			session = sessions[len(sessions)-1]
		}
		entries, err := db.Entries(ctx, session)
		return entries, session, err
	}

	entries, err := recording.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	sessions := recording.Sessions(entries)
	if len(sessions) == 0 {
		return nil, "", errors.New("B060").WithDetailf("%s holds no entries", path)
	}
	if session == "" {
		session = sessions[len(sessions)-1]
		if len(sessions) > 1 {
			g.out.warning("%s holds %d sessions, using the last (%s)", path, len(sessions), session)
		}
	}
	entries = recording.Filter(entries, session)
	if len(entries) == 0 {
		return nil, "", errors.New("B060").WithDetailf("no session %s in %s", session, path)
	}
	return entries, session, nil
}

func replayCmd(g *globals) *cobra.Command {
	var (
		session   string
		showTree  bool
		showFrame bool
	)

	cmd := &cobra.Command{
		Use:   "replay <recording>",
		Short: "Replay a recording into a replica",
		Long: `Replay the accepted sync traffic of a recording into a replica tree
and print what it applied.

Recordings ending in .db, .sqlite or .sqlite3 are read from SQLite,
anything else as JSON Lines.

Examples:
  nativebridge replay session.jsonl --tree
  nativebridge replay sessions.db --session 0190... --frame`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, id, err := g.loadEntries(cmd.Context(), args[0], session)
			if err != nil {
				return err
			}
			m := mirror.New()
			stats, err := recording.Replay(entries, m)
			if err != nil {
				return err
			}

			g.out.heading("replay " + id)
			g.printStats(stats, len(entries))
			g.out.fields("nodes", m.Len(), "last batch", m.LastSeq())
			if showTree {
				g.out.line("")
				g.printTree(m)
			}
			if showFrame {
				g.out.line("")
				if err := g.printFrame(stats.LastFrame); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&session, "session", "s", "", "Session to replay (default: the last one)")
	cmd.Flags().BoolVar(&showTree, "tree", false, "Print the replicated tree")
	cmd.Flags().BoolVar(&showFrame, "frame", false, "Print the last committed frame")
	return cmd
}

func verifyCmd(g *globals) *cobra.Command {
	var session string

	cmd := &cobra.Command{
		Use:   "verify <recording>",
		Short: "Check that batches and snapshots agree",
		Long: `Replay a recording and compare every snapshot with the state built
from the batches before it. Snapshots following a rejected batch are
not checked; the snapshot is what heals the renderer.

Exits non-zero when any snapshot disagrees.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, id, err := g.loadEntries(cmd.Context(), args[0], session)
			if err != nil {
				return err
			}
			g.out.heading("verify " + id)
			return g.reportVerify(entries)
		},
	}

	cmd.Flags().StringVarP(&session, "session", "s", "", "Session to verify (default: the last one)")
	return cmd
}

// reportVerify prints the verification result and fails on drift.
func (g *globals) reportVerify(entries []recording.Entry) error {
	stats, drifts, err := recording.Verify(entries)
	if err != nil {
		return err
	}
	if len(drifts) == 0 {
		g.out.success("%d snapshots and %d batches agree", stats.Snapshots, stats.Batches)
		return nil
	}
	for _, d := range drifts {
		g.out.errorMsg("entry %d: %s", d.Seq, describeDrift(d))
	}
	return fmt.Errorf("%d of %d snapshots disagree with the replayed batches", len(drifts), stats.Snapshots)
}

func describeDrift(d recording.Drift) string {
	if d.Err != "" {
		return "batch does not apply: " + d.Err
	}
	var parts []string
	if len(d.Missing) > 0 {
		parts = append(parts, "missing "+idList(d.Missing))
	}
	if len(d.Extra) > 0 {
		parts = append(parts, "extra "+idList(d.Extra))
	}
	if len(d.Changed) > 0 {
		parts = append(parts, "changed "+idList(d.Changed))
	}
	if d.Reordered {
		parts = append(parts, "children reordered")
	}
	return strings.Join(parts, "; ")
}

func idList(ids []protocol.NodeID) string {
	s := make([]string, len(ids))
	for i, id := range ids {
		s[i] = fmt.Sprintf("#%d", id)
	}
	return strings.Join(s, " ")
}

func (g *globals) printStats(stats recording.ReplayStats, entries int) {
	g.out.fields(
		"entries", entries,
		"snapshots", stats.Snapshots,
		"batches", stats.Batches,
		"rejected", stats.Rejected,
		"commits", stats.Commits,
		"events", stats.Events,
	)
}

// printTree prints the replica indented by depth.
func (g *globals) printTree(m *mirror.Mirror) {
	depth := map[protocol.NodeID]int{}
	for _, n := range m.Flatten() {
		d := 0
		if n.Parent != 0 {
			d = depth[n.Parent] + 1
		}
		depth[n.ID] = d
		line := fmt.Sprintf("%s<%s> %s", strings.Repeat("  ", d+1), n.Tag, g.out.muted.Render(fmt.Sprintf("#%d", n.ID)))
		if n.Text != nil {
			line += fmt.Sprintf(" %q", *n.Text)
		}
		if n.ClassName != "" {
			line += " " + g.out.muted.Render("."+strings.ReplaceAll(n.ClassName, " ", "."))
		}
		if listeners := m.Listeners(n.ID); len(listeners) > 0 {
			line += " " + g.out.warn.Render("on:"+strings.Join(listeners, ","))
		}
		g.out.line("%s", line)
	}
}

func (g *globals) printFrame(f *recording.Frame) error {
	if f == nil {
		g.out.warning("no frame committed")
		return nil
	}
	cmds, err := render.DecodeCommands(f.Buffers())
	if err != nil {
		return err
	}
	g.out.info("%d commands, %d payload bytes", f.Count, len(f.Payload))
	for _, c := range cmds {
		g.out.info("%s", c)
	}
	return nil
}
