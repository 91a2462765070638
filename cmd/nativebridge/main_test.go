package main

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vango-dev/nativebridge/internal/errors"
	"github.com/vango-dev/nativebridge/pkg/protocol"
	"github.com/vango-dev/nativebridge/pkg/recording"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	root := newRootCmd(&globals{})
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(append(args, "--no-color", "--log-level", "error"))
	err := root.Execute()
	return buf.String(), err
}

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "nativebridge.toml")
	data := "[sync]\nmode = \"snapshot_once\"\nresyncInterval = 5\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDemoRecordReplayVerify(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir)
	jsonl := filepath.Join(dir, "demo.jsonl")
	db := filepath.Join(dir, "demo.db")

	out, err := run(t, "demo", "--config", cfg, "--frames", "40", "--interval", "1ms",
		"--click-every", "7", "--record", jsonl, "--sqlite", db, "--verify")
	if err != nil {
		t.Fatalf("demo: %v\n%s", err, out)
	}
	for _, want := range []string{"Ran 40 frames", "clicks:", "snapshots and", "agree"} {
		if !strings.Contains(out, want) {
			t.Errorf("demo output missing %q:\n%s", want, out)
		}
	}

	entries, err := recording.ReadFile(jsonl)
	if err != nil {
		t.Fatal(err)
	}
	var events int
	for _, e := range entries {
		if e.Kind == recording.KindEvent {
			events++
		}
	}
	if events != 5 {
		t.Errorf("recorded %d click events, want 5", events)
	}

	out, err = run(t, "replay", jsonl, "--tree", "--frame")
	if err != nil {
		t.Fatalf("replay: %v\n%s", err, out)
	}
	if !strings.Contains(out, `"clicks: 5"`) || !strings.Contains(out, "on:click") {
		t.Errorf("replayed tree misses the header:\n%s", out)
	}

	if out, err := run(t, "verify", db); err != nil {
		t.Fatalf("verify sqlite: %v\n%s", err, out)
	}

	out, err = run(t, "inspect", jsonl, "--kind", "snapshot")
	if err != nil {
		t.Fatalf("inspect: %v\n%s", err, out)
	}
	if strings.Contains(out, "commit") || !strings.Contains(out, "nodes") {
		t.Errorf("inspect --kind snapshot output:\n%s", out)
	}
}

func TestVerifyReportsDrift(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drift.jsonl")
	sink, err := recording.CreateFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for i, e := range []struct {
		kind    recording.Kind
		payload string
	}{
		{recording.KindSnapshot, `{"nodes":[{"id":2,"tag":"view","parent":0}]}`},
		{recording.KindBatch, `{"seq":1,"ops":[{"op":"set_class","id":2,"className":"row"}]}`},
		{recording.KindSnapshot, `{"nodes":[{"id":2,"tag":"view","parent":0}]}`},
	} {
		if err := sink.Write(recording.Entry{Session: "d", Seq: uint64(i + 1), Kind: e.kind, Accepted: true, Payload: []byte(e.payload)}); err != nil {
			t.Fatal(err)
		}
	}
	if err := sink.Close(); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "verify", path)
	if err == nil {
		t.Fatalf("verify passed on a drifting recording:\n%s", out)
	}
	if !strings.Contains(out, "entry 3: changed #2") {
		t.Errorf("verify output:\n%s", out)
	}
}

func TestReplayMissingSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "one.jsonl")
	if err := os.WriteFile(path, []byte(`{"session":"a","seq":1,"kind":"close","time":"2026-03-01T12:00:00Z"}`+"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := run(t, "replay", path, "--session", "b")
	if !stderrors.Is(err, errors.New("B060")) {
		t.Errorf("err = %v, want B060", err)
	}
}

func TestConfigInitAndShow(t *testing.T) {
	t.Chdir(t.TempDir())

	if out, err := run(t, "config", "init", "--format", "yaml"); err != nil {
		t.Fatalf("config init: %v\n%s", err, out)
	}
	if _, err := os.Stat("nativebridge.yaml"); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, "config", "init", "--format", "yaml"); !stderrors.Is(err, errors.New("B050")) {
		t.Errorf("second init err = %v, want B050", err)
	}

	out, err := run(t, "config", "show")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "nativebridge.yaml") || !strings.Contains(out, "snapshot_once") {
		t.Errorf("config show output:\n%s", out)
	}
}

func TestUploadNeedsBucket(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := run(t, "upload", "missing.jsonl")
	if !stderrors.Is(err, errors.New("B050")) {
		t.Errorf("err = %v, want B050", err)
	}
}

func TestErrorStyleFollowsLogFormat(t *testing.T) {
	t.Chdir(t.TempDir())
	g := &globals{}
	root := newRootCmd(g)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"upload", "missing.jsonl", "--no-color", "--log-format", "json"})
	err := root.Execute()
	if err == nil {
		t.Fatal("upload without a bucket succeeded")
	}
	if g.errStyle != errors.StyleJSON {
		t.Fatalf("errStyle = %v, want StyleJSON", g.errStyle)
	}

	var buf bytes.Buffer
	errors.WriteError(&buf, err, g.errStyle)
	var report struct {
		Code string `json:"code"`
	}
	if jerr := json.Unmarshal(buf.Bytes(), &report); jerr != nil || report.Code != "B050" {
		t.Errorf("error report = %q (%v), want B050 JSON", buf.String(), jerr)
	}

	if got := errorStyle("text", false); got != errors.StyleCompact {
		t.Errorf("errorStyle(text, pipe) = %v, want StyleCompact", got)
	}
	if got := errorStyle("text", true); got != errors.StyleText {
		t.Errorf("errorStyle(text, terminal) = %v, want StyleText", got)
	}
}

func TestVersionShort(t *testing.T) {
	out, err := run(t, "version", "--short")
	if err != nil || strings.TrimSpace(out) != version {
		t.Errorf("version --short = %q, %v", out, err)
	}
}

func TestOpCounts(t *testing.T) {
	ops := []protocol.MutationOp{
		{Op: protocol.OpListen}, {Op: protocol.OpCreate}, {Op: protocol.OpCreate}, {Op: protocol.OpMove},
	}
	if got, want := opCounts(ops), "create×2 listen×1 move×1"; got != want {
		t.Errorf("opCounts() = %q, want %q", got, want)
	}
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		entry recording.Entry
		want  string
	}{
		{recording.Entry{Kind: recording.KindBatch, Payload: []byte(`{"seq":3,"ops":[{"op":"remove","id":4}]}`)}, "seq 3, 1 ops: remove×1 (rejected)"},
		{recording.Entry{Kind: recording.KindSnapshot, Payload: []byte(`{"nodes":[]}`)}, "0 nodes"},
		{recording.Entry{Kind: recording.KindResize, Payload: []byte(`{"width":640,"height":480}`)}, "640x480"},
		{recording.Entry{Kind: recording.KindText, Payload: []byte(`"hi"`)}, `"hi"`},
		{recording.Entry{Kind: recording.KindClose}, ""},
	}
	for _, tt := range tests {
		if got := summarize(tt.entry); got != tt.want {
			t.Errorf("summarize(%s) = %q, want %q", tt.entry.Kind, got, tt.want)
		}
	}
}
