// Package server exposes the current table of contents over HTTP, with a
// server-sent event stream of changes, health, metrics and tick history.
package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/nbtoc/internal/foundation/errors"
	"git.home.luguber.info/inful/nbtoc/internal/history"
	"git.home.luguber.info/inful/nbtoc/internal/logfields"
	"git.home.luguber.info/inful/nbtoc/internal/metrics"
	"git.home.luguber.info/inful/nbtoc/internal/refresh"
	smw "git.home.luguber.info/inful/nbtoc/internal/server/middleware"
	"git.home.luguber.info/inful/nbtoc/internal/toc"
	"git.home.luguber.info/inful/nbtoc/internal/version"
)

// ErrNotReady is returned while no tick has succeeded yet.
var ErrNotReady = errors.RuntimeError("table of contents not built yet").NextTick().Build()

// Snapshotter is the refresher view the server needs.
type Snapshotter interface {
	Current() *refresh.Outcome
	Last() *refresh.Outcome
	Ticks() uint64
}

// HistoryReader lists recent ticks.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
}

// Options wires optional endpoints.
type Options struct {
	Addr     string
	Registry *prom.Registry
	History  HistoryReader
	Hub      *Hub
	Logger   *slog.Logger
}

// Server is the HTTP surface.
type Server struct {
	snap    Snapshotter
	opts    Options
	errors  *errors.HTTPErrorAdapter
	logger  *slog.Logger
	handler http.Handler
	srv     *http.Server
	started time.Time
}

// New builds the router. Endpoints whose dependency is nil are not mounted.
func New(snap Snapshotter, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		snap:    snap,
		opts:    opts,
		errors:  errors.NewHTTPErrorAdapter(logger),
		logger:  logger,
		started: time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /toc", s.handleTOC)
	mux.HandleFunc("GET /toc.json", s.handleTOCJSON)
	mux.HandleFunc("GET /health", s.handleHealth)
	if opts.Hub != nil {
		mux.Handle("GET /events", opts.Hub)
	}
	if opts.Registry != nil {
		mux.Handle("GET /metrics", metrics.HTTPHandler(opts.Registry))
	}
	if opts.History != nil {
		mux.HandleFunc("GET /history", s.handleHistory)
	}

	s.handler = smw.Chain(logger, s.errors)(mux)
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Start listens on Options.Addr and serves in the background.
func (s *Server) Start(_ context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return errors.WrapError(err, errors.CategoryNetwork, "failed to listen").
			WithContext("addr", s.opts.Addr).
			Build()
	}
	s.srv = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("HTTP server listening", logfields.Addr(ln.Addr().String()))

	go func() {
		if err := s.srv.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server failed", logfields.Error(err))
		}
	}()
	return nil
}

// Stop closes event streams and shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.opts.Hub != nil {
		s.opts.Hub.Shutdown()
	}
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleTOC(w http.ResponseWriter, r *http.Request) {
	cur := s.snap.Current()
	if cur == nil {
		s.errors.WriteErrorResponse(w, r, s.notReady())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("ETag", strconv.Quote(cur.Fingerprint))
	if r.Header.Get("If-None-Match") == strconv.Quote(cur.Fingerprint) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	_, _ = w.Write(cur.Rendered)
}

// TOCResponse is the /toc.json payload.
type TOCResponse struct {
	TickID      string    `json:"tick_id"`
	Fingerprint string    `json:"fingerprint"`
	UpdatedAt   time.Time `json:"updated_at"`
	Primary     int       `json:"primary_entries"`
	Secondary   int       `json:"secondary_entries"`
	Revision    string    `json:"revision,omitempty"`
	Tree        *toc.Tree `json:"tree"`
}

func (s *Server) handleTOCJSON(w http.ResponseWriter, r *http.Request) {
	cur := s.snap.Current()
	if cur == nil {
		s.errors.WriteErrorResponse(w, r, s.notReady())
		return
	}
	writeJSON(w, http.StatusOK, TOCResponse{
		TickID:      cur.TickID,
		Fingerprint: cur.Fingerprint,
		UpdatedAt:   cur.StartedAt.UTC(),
		Primary:     cur.Primary,
		Secondary:   cur.Secondary,
		Revision:    cur.Revision,
		Tree:        cur.Tree,
	})
}

// HealthResponse is the /health payload.
type HealthResponse struct {
	Status     string `json:"status"`
	Version    string `json:"version"`
	Uptime     string `json:"uptime"`
	Ticks      uint64 `json:"ticks"`
	LastResult string `json:"last_result,omitempty"`
	LastError  string `json:"last_error,omitempty"`
	Clients    int    `json:"clients"`
}

// handleHealth reports "ok" while the last tick succeeded, "degraded"
// otherwise. Failing ticks are retried, so degraded still answers 200; only
// a refresher that never succeeded answers 503.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := HealthResponse{
		Status:  "ok",
		Version: version.Version,
		Uptime:  time.Since(s.started).Round(time.Second).String(),
		Ticks:   s.snap.Ticks(),
	}
	if s.opts.Hub != nil {
		resp.Clients = s.opts.Hub.Clients()
	}
	status := http.StatusOK
	if last := s.snap.Last(); last != nil {
		resp.LastResult = string(last.Result)
		if last.Err != nil {
			resp.Status = "degraded"
			resp.LastError = last.ErrorMessage()
		}
	} else {
		resp.Status = "starting"
	}
	if s.snap.Current() == nil && resp.Status != "starting" {
		resp.Status = "failing"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 1000 {
			s.errors.WriteErrorResponse(w, r, errors.ValidationError("limit must be between 1 and 1000").
				WithContext("limit", raw).
				Build())
			return
		}
		limit = n
	}
	entries, err := s.opts.History.Recent(r.Context(), limit)
	if err != nil {
		s.errors.WriteErrorResponse(w, r, errors.WrapError(err, errors.CategoryStorage, "failed to read history").Build())
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) notReady() error {
	if last := s.snap.Last(); last != nil && last.Err != nil {
		return errors.WrapError(last.Err, errors.CategoryRuntime, "table of contents not built yet").
			NextTick().
			WithContext("last_error", last.ErrorMessage()).
			Build()
	}
	return ErrNotReady
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
