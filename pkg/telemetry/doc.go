// Package telemetry exports bridge statistics as Prometheus metrics and
// OpenTelemetry spans.
//
// Both types implement bridge.Observer and are attached with
// bridge.WithObserver:
//
//	reg := prometheus.NewRegistry()
//	b, err := bridge.New(r,
//	    bridge.WithObserver(telemetry.NewMetrics(telemetry.WithRegistry(reg))),
//	    bridge.WithObserver(telemetry.NewTracer()),
//	)
//
// # Metrics
//
// With the default namespace:
//   - nativebridge_flushes_total: flushes by result (ok, error)
//   - nativebridge_flush_duration_seconds: flush duration histogram
//   - nativebridge_snapshots_total: full snapshots sent
//   - nativebridge_batch_ops_total: ops sent in incremental batches
//   - nativebridge_listen_ops_total: listen ops sent
//   - nativebridge_batches_rejected_total: batches the renderer refused
//   - nativebridge_flush_errors_total: failed flushes by error code
//   - nativebridge_frame_commands / nativebridge_frame_payload_bytes:
//     size of the last committed frame
//   - nativebridge_events_total: ring events by outcome (dispatched,
//     skipped, dropped_event, dropped_detail)
//   - nativebridge_poll_duration_seconds: duration of polls that found
//     pending events
//   - nativebridge_dispatch_units_total: dispatch units by outcome (ran,
//     failed, panicked, dropped)
//
// # Tracing
//
// Statistics arrive after the fact, so spans are created with the
// recorded start time and ended at start plus duration. Idle polls are
// not traced unless WithIdlePolls is set.
package telemetry
