// Package api provides the read-only HTTP surface over the field log store.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"sar_tracker/internal/fieldlog"
	"sar_tracker/internal/storage"
)

// Server serves the store's current state as JSON. It holds only the
// database path; every request re-reads durable state, so the response always
// reflects the latest writes from a concurrently running logging session.
type Server struct {
	dbPath string
	port   int
}

// Config holds server configuration.
type Config struct {
	DBPath string
	Port   int
}

// NewServer creates a read-only state server.
func NewServer(cfg Config) *Server {
	return &Server{dbPath: cfg.DBPath, port: cfg.Port}
}

// Router builds the HTTP routes. Exposed separately from Run for tests.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", s.handleHealth)
	r.Get("/state", s.handleState)
	r.Get("/debug", s.handleDebug)

	return r
}

// Run starts the HTTP server.
func (s *Server) Run() error {
	addr := fmt.Sprintf(":%d", s.port)
	log.Printf("state server listening on %s (db: %s)", addr, s.dbPath)
	return http.ListenAndServe(addr, s.Router())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleState returns the full document. An absent store substitutes the
// empty document so the endpoint always answers 200 with a valid structure.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	doc, err := storage.Load(s.dbPath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, http.StatusOK, fieldlog.NewDocument())
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDebug(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"db_path": s.dbPath}

	doc, err := storage.Load(s.dbPath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			resp["status_by_team"] = 0
			resp["transmissions"] = 0
			writeJSON(w, http.StatusOK, resp)
			return
		}
		resp["error"] = err.Error()
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}

	resp["status_by_team"] = len(doc.StatusByTeam)
	resp["transmissions"] = len(doc.Transmissions)
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}
