package recording

import (
	"reflect"
	"slices"

	"github.com/vango-dev/nativebridge/pkg/mirror"
	"github.com/vango-dev/nativebridge/pkg/protocol"
)

// Sessions returns the distinct session ids in entries, in order of
// first appearance.
func Sessions(entries []Entry) []string {
	var ids []string
	for _, e := range entries {
		if !slices.Contains(ids, e.Session) {
			ids = append(ids, e.Session)
		}
	}
	return ids
}

// Filter returns the entries of session.
func Filter(entries []Entry, session string) []Entry {
	var out []Entry
	for _, e := range entries {
		if e.Session == session {
			out = append(out, e)
		}
	}
	return out
}

// ReplayStats counts what a replay applied.
type ReplayStats struct {
	Snapshots int `json:"snapshots"`
	Batches   int `json:"batches"`
	Rejected  int `json:"rejected"`
	Commits   int `json:"commits"`
	Events    int `json:"events"`

	// LastFrame is the last committed frame, if any.
	LastFrame *Frame `json:"-"`
}

// Drift is a point where a snapshot disagreed with the state built from
// the batches before it.
type Drift struct {
	Seq       uint64            `json:"seq"`
	Missing   []protocol.NodeID `json:"missing,omitempty"`
	Extra     []protocol.NodeID `json:"extra,omitempty"`
	Changed   []protocol.NodeID `json:"changed,omitempty"`
	Reordered bool              `json:"reordered,omitempty"`
	Err       string            `json:"error,omitempty"`
}

// Replay feeds the accepted sync traffic of one session into m.
func Replay(entries []Entry, m *mirror.Mirror) (ReplayStats, error) {
	stats, _, err := replay(entries, m, false)
	return stats, err
}

// Verify replays entries and checks every snapshot against the state
// the preceding batches produced. A snapshot is only checked once the
// session has sent structural ops, and not after a rejected batch until
// the next snapshot. Sessions that never send structural ops
// (snapshot_every_flush) have nothing to verify.
func Verify(entries []Entry) (ReplayStats, []Drift, error) {
	return replay(entries, mirror.New(), true)
}

func replay(entries []Entry, m *mirror.Mirror, verify bool) (ReplayStats, []Drift, error) {
	var (
		stats       ReplayStats
		drifts      []Drift
		clean       bool
		incremental bool // a batch carried more than listeners
	)
	for _, e := range entries {
		switch e.Kind {
		case KindSnapshot:
			s, err := protocol.DecodeSnapshot(e.Payload)
			if err != nil {
				return stats, drifts, decodeError(e, err)
			}
			if verify && clean && incremental {
				if d, ok := compare(e.Seq, m.Flatten(), s.Nodes); !ok {
					drifts = append(drifts, d)
				}
			}
			if err := m.ApplySnapshot(s); err != nil {
				return stats, drifts, decodeError(e, err)
			}
			stats.Snapshots++
			clean = true
		case KindBatch:
			if !e.Accepted {
				stats.Rejected++
				clean = false
				continue
			}
			b, err := protocol.DecodeBatch(e.Payload)
			if err != nil {
				return stats, drifts, decodeError(e, err)
			}
			stats.Batches++
			incremental = incremental || slices.ContainsFunc(b.Ops, structural)
			if err := m.ApplyBatch(b); err != nil {
				if !verify {
					return stats, drifts, err
				}
				drifts = append(drifts, Drift{Seq: e.Seq, Err: err.Error()})
				clean = false
			}
		case KindCommit:
			var f Frame
			if err := e.Decode(&f); err != nil {
				return stats, drifts, err
			}
			stats.Commits++
			stats.LastFrame = &f
		case KindEvent:
			stats.Events++
		}
	}
	return stats, drifts, nil
}

// compare diffs the replica against a snapshot.
func compare(seq uint64, got, want []protocol.SerializedNode) (Drift, bool) {
	d := Drift{Seq: seq}
	have := make(map[protocol.NodeID]protocol.SerializedNode, len(got))
	for _, n := range got {
		have[n.ID] = n
	}
	seen := make(map[protocol.NodeID]bool, len(want))
	for _, n := range want {
		seen[n.ID] = true
		g, ok := have[n.ID]
		switch {
		case !ok:
			d.Missing = append(d.Missing, n.ID)
		case !reflect.DeepEqual(g, n):
			d.Changed = append(d.Changed, n.ID)
		}
	}
	for _, n := range got {
		if !seen[n.ID] {
			d.Extra = append(d.Extra, n.ID)
		}
	}
	if len(d.Missing) == 0 && len(d.Extra) == 0 && len(d.Changed) == 0 {
		if reflect.DeepEqual(got, want) || (len(got) == 0 && len(want) == 0) {
			return d, true
		}
		d.Reordered = true
	}
	return d, false
}

func structural(op protocol.MutationOp) bool {
	return op.Op != protocol.OpListen && op.Op != protocol.OpUnlisten
}
