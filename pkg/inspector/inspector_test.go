package inspector

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/nativebridge/pkg/adapter"
	"github.com/vango-dev/nativebridge/pkg/bridge"
	"github.com/vango-dev/nativebridge/pkg/host"
	"github.com/vango-dev/nativebridge/pkg/recording"
	"github.com/vango-dev/nativebridge/pkg/telemetry"
)

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	insp *Inspector
	srv  *httptest.Server
	b    *bridge.Bridge
	h    *host.Host
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	reg := prometheus.NewRegistry()
	insp := New(append([]Option{WithLogger(quiet()), WithGatherer(reg)}, opts...)...)
	rec := recording.NewRecorder(adapter.NewStub(), insp,
		recording.WithSession("live"), recording.WithRecorderLogger(quiet()))
	b, err := bridge.New(rec,
		bridge.WithLogger(quiet()),
		bridge.WithObserver(telemetry.NewMetrics(telemetry.WithRegistry(reg))))
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(insp.Handler())
	t.Cleanup(func() {
		insp.Close()
		srv.Close()
	})
	return &fixture{insp: insp, srv: srv, b: b, h: b.Host()}
}

// frame adds a labelled row and flushes.
func (f *fixture) frame(t *testing.T, label string) {
	t.Helper()
	row := f.h.CreateElement("view")
	_ = f.h.SetProp(row, "class", "row bg-blue")
	_ = f.h.Add(row, f.h.CreateText(label), -1)
	_ = f.h.Add(f.h.Root().ID, row, -1)
	if err := f.b.Flush(); err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) get(t *testing.T, path string, v any) int {
	t.Helper()
	resp, err := http.Get(f.srv.URL + path)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if v != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return resp.StatusCode
}

func TestTreeFollowsBridge(t *testing.T) {
	f := newFixture(t)
	f.frame(t, "one")
	f.frame(t, "two")

	var tree treeResponse
	if code := f.get(t, "/tree", &tree); code != http.StatusOK {
		t.Fatalf("GET /tree = %d", code)
	}
	if tree.Session != "live" {
		t.Errorf("session = %q", tree.Session)
	}
	got, _ := json.Marshal(tree.Nodes)
	want, _ := json.Marshal(f.h.Serialize())
	if string(got) != string(want) {
		t.Errorf("tree = %s\nwant %s", got, want)
	}

	var frame frameResponse
	if code := f.get(t, "/frame", &frame); code != http.StatusOK {
		t.Fatalf("GET /frame = %d", code)
	}
	if frame.Count != 4 || !strings.Contains(frame.Commands[3], `"two"`) {
		t.Errorf("frame = %+v", frame)
	}

	var stats statsResponse
	f.get(t, "/stats", &stats)
	if stats.Snapshots != 1 || stats.Commits != 2 || stats.Errors != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestFrameBeforeCommit(t *testing.T) {
	f := newFixture(t)
	if code := f.get(t, "/frame", nil); code != http.StatusNotFound {
		t.Errorf("GET /frame = %d, want 404", code)
	}
	if code := f.get(t, "/healthz", nil); code != http.StatusOK {
		t.Errorf("GET /healthz = %d", code)
	}
}

func TestEntriesLimit(t *testing.T) {
	f := newFixture(t, WithBacklog(3))
	f.frame(t, "one")
	f.frame(t, "two")

	var all []recording.Entry
	f.get(t, "/entries", &all)
	if len(all) != 3 || all[2].Kind != recording.KindCommit {
		t.Fatalf("entries = %+v", all)
	}
	var last []recording.Entry
	f.get(t, "/entries?limit=1", &last)
	if len(last) != 1 || last[0].Seq != all[2].Seq {
		t.Errorf("limited entries = %+v", last)
	}
	if code := f.get(t, "/entries?limit=x", nil); code != http.StatusBadRequest {
		t.Errorf("bad limit = %d, want 400", code)
	}
}

func TestWebSocketStream(t *testing.T) {
	f := newFixture(t)
	f.frame(t, "one") // snapshot, listen-free, commit

	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial(%q) failed: %v", url, err)
	}
	defer conn.Close()

	read := func() recording.Entry {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var e recording.Entry
		if err := conn.ReadJSON(&e); err != nil {
			t.Fatalf("ReadJSON() error: %v", err)
		}
		return e
	}

	// Backlog first.
	if e := read(); e.Kind != recording.KindSnapshot || e.Session != "live" {
		t.Fatalf("first entry = %+v", e)
	}
	if e := read(); e.Kind != recording.KindCommit {
		t.Fatalf("second entry = %+v", e)
	}

	// Then live traffic.
	f.frame(t, "two")
	if e := read(); e.Kind != recording.KindBatch || !e.Accepted {
		t.Errorf("live entry = %+v", e)
	}
	if e := read(); e.Kind != recording.KindCommit {
		t.Errorf("live entry = %+v", e)
	}

	f.insp.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("after Close: %v, want normal closure", err)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.frame(t, "one")

	resp, err := http.Get(f.srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `nativebridge_flushes_total{result="ok"} 1`) {
		t.Errorf("metrics output missing flush counter:\n%s", body)
	}
}

func TestNewSessionResetsReplica(t *testing.T) {
	insp := New(WithLogger(quiet()), WithGatherer(prometheus.NewRegistry()))
	write := func(session string, seq uint64, kind recording.Kind, payload string) {
		_ = insp.Write(recording.Entry{Session: session, Seq: seq, Kind: kind, Accepted: true, Payload: json.RawMessage(payload)})
	}
	write("a", 1, recording.KindSnapshot, `{"nodes":[{"id":2,"tag":"view","parent":0}]}`)
	write("a", 2, recording.KindBatch, `{"seq":1,"ops":[{"op":"create","id":3,"tag":"text","parent":2,"text":"x"}]}`)
	if insp.Mirror().Len() != 2 {
		t.Fatalf("Len() = %d, want 2", insp.Mirror().Len())
	}
	write("b", 1, recording.KindBatch, `{"seq":1,"ops":[{"op":"create","id":9,"tag":"view","parent":0}]}`)
	if insp.Mirror().Len() != 1 || insp.Mirror().LastSeq() != 1 {
		t.Errorf("Len() = %d, LastSeq() = %d after new session", insp.Mirror().Len(), insp.Mirror().LastSeq())
	}

	write("b", 2, recording.KindBatch, `{"seq":1,"ops":[]}`)
	insp.mu.RLock()
	defer insp.mu.RUnlock()
	if insp.errs != 1 {
		t.Errorf("errs = %d, want 1 for a stale batch", insp.errs)
	}
}
