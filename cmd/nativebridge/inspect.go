package main

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/vango-dev/nativebridge/pkg/protocol"
	"github.com/vango-dev/nativebridge/pkg/recording"
)

func inspectCmd(g *globals) *cobra.Command {
	var (
		session string
		kinds   []string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "inspect <recording>",
		Short: "List the entries of a recording",
		Long: `List the entries of a recording with a one-line summary each.

Examples:
  nativebridge inspect session.jsonl
  nativebridge inspect session.jsonl --kind batch,snapshot --limit 20`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, id, err := g.loadEntries(cmd.Context(), args[0], session)
			if err != nil {
				return err
			}
			if len(kinds) > 0 {
				entries = slices.DeleteFunc(entries, func(e recording.Entry) bool {
					return !slices.Contains(kinds, string(e.Kind))
				})
			}
			if limit > 0 && len(entries) > limit {
				entries = entries[len(entries)-limit:]
			}

			g.out.heading("inspect " + id)
			var start time.Time
			if len(entries) > 0 {
				start = entries[0].Time
			}
			kindCol := lipgloss.NewStyle().Width(9)
			for _, e := range entries {
				g.out.line("  %6d  %s  %s %s",
					e.Seq,
					g.out.muted.Render(fmt.Sprintf("%9s", e.Time.Sub(start).Round(time.Microsecond))),
					kindCol.Render(g.kindStyle(e).Render(string(e.Kind))),
					summarize(e))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&session, "session", "s", "", "Session to inspect (default: the last one)")
	cmd.Flags().StringSliceVarP(&kinds, "kind", "k", nil, "Only show these kinds (batch, snapshot, commit, text, resize, event, close)")
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "Only show the last N entries")
	return cmd
}

func (g *globals) kindStyle(e recording.Entry) lipgloss.Style {
	switch {
	case e.Kind == recording.KindBatch && !e.Accepted:
		return g.out.fail
	case e.Kind == recording.KindSnapshot:
		return g.out.title
	case e.Kind == recording.KindBatch:
		return g.out.ok
	case e.Kind == recording.KindEvent:
		return g.out.warn
	}
	return g.out.muted
}

// summarize describes an entry in one line.
func summarize(e recording.Entry) string {
	switch e.Kind {
	case recording.KindBatch:
		b, err := protocol.DecodeBatch(e.Payload)
		if err != nil {
			return "undecodable: " + err.Error()
		}
		s := fmt.Sprintf("seq %d, %d ops", b.Seq, len(b.Ops))
		if counts := opCounts(b.Ops); counts != "" {
			s += ": " + counts
		}
		if !e.Accepted {
			s += " (rejected)"
		}
		return s
	case recording.KindSnapshot:
		s, err := protocol.DecodeSnapshot(e.Payload)
		if err != nil {
			return "undecodable: " + err.Error()
		}
		return fmt.Sprintf("%d nodes", len(s.Nodes))
	case recording.KindCommit:
		var f recording.Frame
		if err := e.Decode(&f); err != nil {
			return err.Error()
		}
		return fmt.Sprintf("%d commands, %d payload bytes", f.Count, len(f.Payload))
	case recording.KindEvent:
		var ev recording.Event
		if err := e.Decode(&ev); err != nil {
			return err.Error()
		}
		if id, detail, ok := protocol.PayloadTarget(ev.Payload); ok {
			return fmt.Sprintf("%s on #%d (%d detail bytes)", ev.Name, id, len(detail))
		}
		return ev.Name
	case recording.KindResize:
		var sz recording.Size
		if err := e.Decode(&sz); err != nil {
			return err.Error()
		}
		return fmt.Sprintf("%dx%d", sz.Width, sz.Height)
	case recording.KindText:
		var text string
		if err := e.Decode(&text); err != nil {
			return err.Error()
		}
		return fmt.Sprintf("%q", text)
	}
	return ""
}

// opCounts formats op kinds with their counts, most frequent first.
func opCounts(ops []protocol.MutationOp) string {
	counts := map[protocol.OpKind]int{}
	for _, op := range ops {
		counts[op.Op]++
	}
	kinds := make([]protocol.OpKind, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool {
		if counts[kinds[i]] != counts[kinds[j]] {
			return counts[kinds[i]] > counts[kinds[j]]
		}
		return kinds[i] < kinds[j]
	})
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = fmt.Sprintf("%s×%d", k, counts[k])
	}
	return strings.Join(parts, " ")
}
