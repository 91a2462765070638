// Package inspector serves a live view of recorded sync traffic over
// HTTP: the replicated tree, the last committed frame, the entry stream
// over a websocket and Prometheus metrics.
//
// An Inspector is a recording.Sink. Combine it with a file sink through
// recording.MultiSink to record and inspect at the same time.
package inspector

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/nativebridge/internal/errors"
	"github.com/vango-dev/nativebridge/pkg/mirror"
	"github.com/vango-dev/nativebridge/pkg/protocol"
	"github.com/vango-dev/nativebridge/pkg/recording"
	"github.com/vango-dev/nativebridge/pkg/render"
)

// DefaultBacklog is the number of entries replayed to new websocket
// clients.
const DefaultBacklog = 512

// Option configures an Inspector.
type Option func(*Inspector)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(i *Inspector) {
		if l != nil {
			i.logger = l
		}
	}
}

// WithGatherer sets the registry served on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(i *Inspector) { i.gatherer = g }
}

// WithBacklog sets how many entries new clients receive on connect.
func WithBacklog(n int) Option {
	return func(i *Inspector) { i.backlog = max(n, 0) }
}

// Inspector mirrors the recorded traffic and serves it.
type Inspector struct {
	logger   *slog.Logger
	gatherer prometheus.Gatherer
	backlog  int

	hub    *Hub
	mirror *mirror.Mirror
	router chi.Router

	mu      sync.RWMutex
	session string
	stats   recording.ReplayStats
	frame   *recording.Frame
	errs    int
}

var _ recording.Sink = (*Inspector)(nil)

// New creates an Inspector.
func New(opts ...Option) *Inspector {
	i := &Inspector{
		logger:   slog.Default(),
		gatherer: prometheus.DefaultGatherer,
		backlog:  DefaultBacklog,
		mirror:   mirror.New(),
	}
	for _, opt := range opts {
		opt(i)
	}
	i.logger = i.logger.With("component", "inspector")
	i.hub = NewHub(i.backlog, i.logger)
	i.router = i.routes()
	return i
}

func (i *Inspector) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.NoCache)
		r.Get("/tree", i.handleTree)
		r.Get("/frame", i.handleFrame)
		r.Get("/stats", i.handleStats)
		r.Get("/entries", i.handleEntries)
	})
	r.Handle("/ws", i.hub)
	r.Handle("/metrics", promhttp.HandlerFor(i.gatherer, promhttp.HandlerOpts{}))
	return r
}

// Handler returns the HTTP handler.
func (i *Inspector) Handler() http.Handler { return i.router }

// Hub returns the websocket hub.
func (i *Inspector) Hub() *Hub { return i.hub }

// Mirror returns the replica built from the recorded traffic.
func (i *Inspector) Mirror() *mirror.Mirror { return i.mirror }

// Write implements recording.Sink. Sync traffic is applied to the
// replica; every entry is broadcast.
func (i *Inspector) Write(e recording.Entry) error {
	i.mu.Lock()
	if e.Session != i.session {
		// A new session starts from an empty replica.
		i.session = e.Session
		i.stats = recording.ReplayStats{}
		i.frame = nil
		i.mirror.Reset()
	}
	stats, err := recording.Replay([]recording.Entry{e}, i.mirror)
	i.stats.Snapshots += stats.Snapshots
	i.stats.Batches += stats.Batches
	i.stats.Rejected += stats.Rejected
	i.stats.Commits += stats.Commits
	i.stats.Events += stats.Events
	if stats.LastFrame != nil {
		i.frame = stats.LastFrame
	}
	if err != nil {
		i.errs++
	}
	i.mu.Unlock()

	if err != nil {
		i.logger.Warn("entry does not apply to the replica", "seq", e.Seq, "kind", e.Kind, "error", err)
	}
	i.hub.Broadcast(e)
	return nil
}

// Close implements recording.Sink. It disconnects websocket clients.
func (i *Inspector) Close() error {
	i.hub.Close()
	return nil
}

// ListenAndServe serves on addr until ctx is cancelled.
func (i *Inspector) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.New("B050").Wrap(err).WithDetailf("inspector address %s", addr)
	}
	return i.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (i *Inspector) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           i.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	i.logger.Info("inspector listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	i.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type treeResponse struct {
	Session string                    `json:"session"`
	Seq     uint64                    `json:"seq"`
	Nodes   []protocol.SerializedNode `json:"nodes"`
}

func (i *Inspector) handleTree(w http.ResponseWriter, r *http.Request) {
	i.mu.RLock()
	resp := treeResponse{Session: i.session, Seq: i.mirror.LastSeq(), Nodes: i.mirror.Flatten()}
	i.mu.RUnlock()
	writeJSON(w, http.StatusOK, resp)
}

type frameResponse struct {
	Count    int      `json:"count"`
	Commands []string `json:"commands"`
}

func (i *Inspector) handleFrame(w http.ResponseWriter, r *http.Request) {
	i.mu.RLock()
	f := i.frame
	i.mu.RUnlock()
	if f == nil {
		http.Error(w, "no frame committed yet", http.StatusNotFound)
		return
	}
	cmds, err := render.DecodeCommands(f.Buffers())
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	resp := frameResponse{Count: f.Count, Commands: make([]string, len(cmds))}
	for n, c := range cmds {
		resp.Commands[n] = c.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

type statsResponse struct {
	Session string `json:"session"`
	recording.ReplayStats
	Errors  int `json:"errors"`
	Clients int `json:"clients"`
}

func (i *Inspector) handleStats(w http.ResponseWriter, r *http.Request) {
	i.mu.RLock()
	resp := statsResponse{Session: i.session, ReplayStats: i.stats, Errors: i.errs}
	i.mu.RUnlock()
	resp.Clients = i.hub.ClientCount()
	writeJSON(w, http.StatusOK, resp)
}

// handleEntries returns the backlog, optionally limited to the last n
// entries with ?limit=n.
func (i *Inspector) handleEntries(w http.ResponseWriter, r *http.Request) {
	entries := i.hub.Backlog()
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		if n < len(entries) {
			entries = entries[len(entries)-n:]
		}
	}
	writeJSON(w, http.StatusOK, entries)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
