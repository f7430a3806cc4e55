package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"github.com/esonde/galisondaggi/internal/core"
	"github.com/esonde/galisondaggi/internal/corpus"
)

// Store is the archive-backed query surface. It is optional; without it
// the poll and message routes fall back to the raw JSON artifacts.
type Store interface {
	CountMessages(ctx context.Context, filters Filters) (int64, error)
	ListMessages(ctx context.Context, filters Filters) ([]core.Message, error)
	ListPolls(ctx context.Context, filters Filters) ([]core.Poll, error)
}

// RefreshEvent is broadcast to SSE and WebSocket clients after each
// re-ingest pass so the dashboard can refetch the artifacts.
type RefreshEvent struct {
	At           time.Time `json:"at"`
	PollsAdded   int       `json:"polls_added"`
	PollsUpdated int       `json:"polls_updated"`
	Messages     int       `json:"messages"`
}

type Options struct {
	Addr         string
	ArtifactsDir string
	CORSOrigins  []string
	RateRPS      int
	RateBurst    int
	Metrics      bool
	AccessLog    bool
	Build        BuildInfo
}

type Server struct {
	opts       Options
	httpServer *http.Server
	store      Store
	metrics    *Metrics
	limiter    *ipRateLimiter
	cors       *corsPolicy

	mu      sync.Mutex
	clients map[chan RefreshEvent]struct{}
	closed  bool
}

func New(store Store, opts Options) *Server {
	srv := &Server{
		opts:    opts,
		store:   store,
		limiter: newIPRateLimiter(opts.RateRPS, opts.RateBurst),
		cors:    newCORSPolicy(opts.CORSOrigins),
		clients: make(map[chan RefreshEvent]struct{}),
	}
	if opts.Metrics {
		srv.metrics = newMetrics()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", srv.wrap("healthz", srv.handleHealthz))
	mux.HandleFunc("/info", srv.wrap("info", srv.handleInfo))
	mux.HandleFunc("/results", srv.wrap("results", srv.artifactHandler(corpus.ResultsFile)))
	mux.HandleFunc("/unanimous", srv.wrap("unanimous", srv.artifactHandler(corpus.UnanimousFile)))
	mux.HandleFunc("/polls", srv.wrap("polls", srv.handlePolls))
	mux.HandleFunc("/messages", srv.wrap("messages", srv.handleMessages))
	mux.HandleFunc("/count", srv.wrap("count", srv.handleCount))
	mux.HandleFunc("/events", srv.wrap("events", srv.handleEvents))
	mux.HandleFunc("/ws", srv.wrap("ws", srv.handleWS))
	if srv.metrics != nil {
		mux.Handle("/metrics", srv.metrics.handler())
	}

	srv.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv
}

// wrap applies the shared middleware chain: rate limiting, CORS, gzip,
// access logging, and request metrics.
func (s *Server) wrap(route string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := newResponseRecorder(w)

		if handled, status := s.cors.handlePreflight(rec, r); handled {
			s.finish(route, r, status, rec.Bytes(), start)
			return
		}
		if !s.cors.applyHeaders(rec, r) {
			http.Error(rec, "origin not allowed", http.StatusForbidden)
			s.finish(route, r, http.StatusForbidden, rec.Bytes(), start)
			return
		}
		if !s.limiter.Allow(remoteIP(r)) {
			if s.metrics != nil {
				s.metrics.rateLimited.Inc()
			}
			http.Error(rec, "rate limit exceeded", http.StatusTooManyRequests)
			s.finish(route, r, http.StatusTooManyRequests, rec.Bytes(), start)
			return
		}

		if gz, ok := maybeGzip(rec, r); ok {
			defer gz.Close()
		}

		handler(rec, r)
		s.finish(route, r, rec.Status(), rec.Bytes(), start)
	}
}

func (s *Server) finish(route string, r *http.Request, status int, bytes int64, start time.Time) {
	elapsed := time.Since(start)
	s.metrics.observe(route, r.Method, status, elapsed)
	if s.opts.AccessLog {
		log.Printf("http: %s %s %d %dB %s ip=%s", r.Method, r.URL.Path, status, bytes, elapsed.Round(time.Microsecond), remoteIP(r))
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// artifactHandler serves one published JSON artifact verbatim.
func (s *Server) artifactHandler(name string) http.HandlerFunc {
	store := corpus.NewStore(s.opts.ArtifactsDir)
	return func(w http.ResponseWriter, r *http.Request) {
		path := store.Path(name)
		if _, err := os.Stat(path); err != nil {
			http.Error(w, "artifact not yet published", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		http.ServeFile(w, r, path)
	}
}

func (s *Server) handlePolls(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.artifactHandler(corpus.PollsFile)(w, r)
		return
	}
	filters, err := ParseFilters(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	rows, err := s.store.ListPolls(r.Context(), filters)
	if err != nil {
		http.Error(w, "list error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, rows)
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.artifactHandler(corpus.MessagesFile)(w, r)
		return
	}
	filters, err := ParseFilters(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	rows, err := s.store.ListMessages(r.Context(), filters)
	if err != nil {
		http.Error(w, "list error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, rows)
}

func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "archive not configured", http.StatusServiceUnavailable)
		return
	}
	filters, err := ParseFilters(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	count, err := s.store.CountMessages(r.Context(), filters)
	if err != nil {
		http.Error(w, "count error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"count": count})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}

	clientCh, ok := s.subscribe()
	if !ok {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	defer s.unsubscribe(clientCh)

	if s.metrics != nil {
		s.metrics.sseClients.Inc()
		defer s.metrics.sseClients.Dec()
	}

	fmt.Fprintf(w, ":ok\n\n")
	flusher.Flush()

	ticker := time.NewTicker(20 * time.Second)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fmt.Fprintf(w, ":ping\n\n")
			flusher.Flush()
		case ev, ok := <-clientCh:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: refresh\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(baseWriter(w), r, &websocket.AcceptOptions{
		OriginPatterns: s.opts.CORSOrigins,
	})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	clientCh, ok := s.subscribe()
	if !ok {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	defer s.unsubscribe(clientCh)

	if s.metrics != nil {
		s.metrics.wsClients.Inc()
		defer s.metrics.wsClients.Dec()
	}

	// CloseRead cancels the context when the peer goes away.
	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-clientCh:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = conn.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

func (s *Server) subscribe() (chan RefreshEvent, bool) {
	clientCh := make(chan RefreshEvent, 16)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false
	}
	s.clients[clientCh] = struct{}{}
	return clientCh, true
}

func (s *Server) unsubscribe(clientCh chan RefreshEvent) {
	s.mu.Lock()
	delete(s.clients, clientCh)
	s.mu.Unlock()
}

// Broadcast fans a refresh event out to every connected client. Slow
// clients drop events rather than blocking the ingest path.
func (s *Server) Broadcast(ev RefreshEvent) {
	if s.metrics != nil {
		s.metrics.refreshes.Inc()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.clients {
		select {
		case ch <- ev:
		default:
			if s.metrics != nil {
				s.metrics.broadcastDrops.WithLabelValues("stream").Inc()
			}
		}
	}
}

func (s *Server) Start() error {
	log.Printf("http api listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for ch := range s.clients {
		close(ch)
	}
	s.mu.Unlock()
	return s.httpServer.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(v)
}
