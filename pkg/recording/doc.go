// Package recording captures the traffic between a bridge and its
// renderer so it can be inspected, replayed into a mirror and verified
// offline.
//
// A Recorder wraps any adapter.Renderer and writes one Entry per call to
// a Sink. Sinks are provided for JSON Lines files (FileSink), SQLite
// databases (SQLiteSink) and fan-out (MultiSink). Finished files can be
// shipped to S3 with an S3Uploader.
//
//	sink, _ := recording.CreateFile("session.jsonl")
//	rec := recording.NewRecorder(renderer, sink)
//	b, _ := bridge.New(rec)
package recording
