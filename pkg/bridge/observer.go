package bridge

import "time"

// FlushStats describes one flush.
type FlushStats struct {
	Start    time.Time
	Duration time.Duration
	Mode     Mode

	// Seq is the last batch sequence number sent, 0 if none was sent.
	Seq uint64
	// Ops is the number of ops in the incremental batch.
	Ops int
	// Listens is the number of listen ops sent, including redeclarations
	// after a snapshot.
	Listens int
	// Snapshot is true when a full snapshot was sent.
	Snapshot bool
	// Rejected is true when the renderer refused a batch.
	Rejected bool
	// Commands and PayloadBytes describe the committed frame.
	Commands     int
	PayloadBytes int

	Err error
}

// PollStats describes one pass over the event ring.
type PollStats struct {
	Start    time.Time
	Duration time.Duration

	Pending    uint32
	Dispatched int
	// Skipped counts entries for unknown nodes or nodes without a
	// listener for the event.
	Skipped int
	// DroppedEvents and DroppedDetails are the increases of the native
	// overflow counters since the previous poll.
	DroppedEvents  uint32
	DroppedDetails uint32
}

// DispatchStats describes one drain of the dispatch queue.
type DispatchStats struct {
	Ran     int
	Failed  int
	Panics  int
	Dropped int
}

// Observer receives statistics from the bridge. Implementations must not
// call back into the bridge.
type Observer interface {
	ObserveFlush(FlushStats)
	ObservePoll(PollStats)
	ObserveDispatch(DispatchStats)
}

type observers []Observer

func (o observers) flush(s FlushStats) {
	for _, ob := range o {
		ob.ObserveFlush(s)
	}
}

func (o observers) poll(s PollStats) {
	for _, ob := range o {
		ob.ObservePoll(s)
	}
}

func (o observers) dispatch(s DispatchStats) {
	for _, ob := range o {
		ob.ObserveDispatch(s)
	}
}
