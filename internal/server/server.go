package server

import (
	"clipboard-history/internal/history"
	"clipboard-history/pkg/types"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Server struct {
	store   *history.Store
	hub     *Hub
	srv     *http.Server
	addr    string
	config  Config
	started time.Time
}

type Config struct {
	Addr string
	// DisplayLimit slices list responses when the request names no limit. 0 shows all.
	DisplayLimit  int
	LaunchAtLogin bool
}

func New(store *history.Store, config Config) *Server {
	s := &Server{
		store:  store,
		hub:    newHub(),
		config: config,
	}
	store.RegisterHandler(s.hub)
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(s.localOnly)

	r.Get("/status", s.handleStatus)
	r.Get("/ws", s.serveWs)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(10 * time.Second))
		r.Get("/entries", s.handleListEntries)
		r.Delete("/entries", s.handleClearEntries)
		r.Get("/entries/{id}", s.handleGetEntry)
		r.Get("/entries/{id}/content", s.handleGetContent)
		r.Post("/entries/{id}/copy", s.handleCopyEntry)
		r.Delete("/entries/{id}", s.handleDeleteEntry)
		r.Post("/reload", s.handleReload)
		r.Get("/stats", s.handleStats)
	})
	return r
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.config.Addr, err)
	}
	s.addr = ln.Addr().String()
	s.started = time.Now()
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go s.hub.run(ctx)
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server stopped", "addr", s.addr, "err", err)
		}
	}()

	slog.Info("http server listening", "addr", s.addr)
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string { return s.addr }

func (s *Server) Stop() error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	return nil
}

// EntryView is the JSON shape of an entry. Image bytes are only included
// when a single entry is requested.
type EntryView struct {
	ID        string     `json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	Kind      types.Kind `json:"kind"`
	Text      string     `json:"text,omitempty"`
	Image     []byte     `json:"image,omitempty"`
	SizeKB    float64    `json:"size_kb"`
}

func newEntryView(e types.Entry, withImage bool) EntryView {
	v := EntryView{
		ID:        e.ID,
		CreatedAt: e.CreatedAt,
		Kind:      e.Kind,
		Text:      e.Text,
		SizeKB:    e.SizeInKB(),
	}
	if withImage {
		v.Image = e.Image
	}
	return v
}

// StatsView is returned by /api/stats.
type StatsView struct {
	history.Stats
	DisplayLimit  int  `json:"display_limit"`
	LaunchAtLogin bool `json:"launch_at_login"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"time":    time.Now().Format(time.RFC3339),
		"addr":    s.addr,
		"entries": s.store.Len(),
		"clients": s.hub.connected.Load(),
		"uptime":  time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	limit := s.config.DisplayLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}
	kind := types.Kind(r.URL.Query().Get("kind"))
	if kind != "" && !kind.Valid() {
		writeError(w, http.StatusBadRequest, "invalid kind")
		return
	}

	entries := history.Search(s.store.Snapshot(), history.SearchOptions{
		Query: r.URL.Query().Get("q"),
		Kind:  kind,
		Limit: limit,
	})
	views := make([]EntryView, len(entries))
	for i, e := range entries {
		views[i] = newEntryView(e, false)
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.store.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, history.ErrNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, newEntryView(entry, true))
}

func (s *Server) handleGetContent(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.store.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, history.ErrNotFound.Error())
		return
	}
	content := entry.Content()
	if entry.Kind == types.KindText {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	} else {
		w.Header().Set("Content-Type", http.DetectContentType(content))
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}

func (s *Server) handleCopyEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := s.store.Copy(r.Context(), chi.URLParam(r, "id"))
	if err != nil && !errors.Is(err, history.ErrStorage) {
		writeStoreError(w, err)
		return
	}
	if err != nil {
		slog.Warn("copy persisted in memory only", "id", entry.ID, "err", err)
	}
	writeJSON(w, http.StatusOK, newEntryView(entry, false))
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearEntries(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Clear(r.Context()); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.Load(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"entries": len(entries)})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatsView{
		Stats:         stats,
		DisplayLimit:  s.config.DisplayLimit,
		LaunchAtLogin: s.config.LaunchAtLogin,
	})
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, history.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, history.ErrCodec):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		slog.Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "err", err)
	}
}
