package bridge

import (
	"github.com/vango-dev/nativebridge/internal/errors"
)

// Mode selects how host state reaches the renderer.
type Mode string

const (
	// ModeSnapshotOnce sends one snapshot, then incremental batches, with
	// a periodic resync snapshot.
	ModeSnapshotOnce Mode = "snapshot_once"

	// ModeSnapshotEveryFlush sends a full snapshot on every flush.
	ModeSnapshotEveryFlush Mode = "snapshot_every_flush"

	// ModeMutationsOnly assumes the renderer starts empty and only ever
	// receives batches. Create ops are synthesized for the whole tree
	// when nothing has been synced yet.
	ModeMutationsOnly Mode = "mutations_only"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeSnapshotOnce, ModeSnapshotEveryFlush, ModeMutationsOnly:
		return m, nil
	case "":
		return ModeSnapshotOnce, nil
	}
	return "", errors.New("B050").WithDetailf("unknown sync mode %q", s).
		WithSuggestion("Use snapshot_once, snapshot_every_flush or mutations_only.")
}
