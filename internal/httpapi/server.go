// Package httpapi serves the typing presence HTTP contract used by the
// message composer on conversation pages:
//
//	POST /api/typing/start/{target}/   mark the caller as typing
//	POST /api/typing/stop/{target}/    clear the caller's typing state
//	GET  /api/typing/check/{target}/   who is typing, excluding the caller
//
// A numeric target selects room mode (group conversation); any other target
// is a username and selects legacy direct-message mode. Mutations require a
// CSRF token; the read-only check never does.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/mahmudurrahman-beep/network/internal/directory"
	"github.com/mahmudurrahman-beep/network/internal/metrics"
	"github.com/mahmudurrahman-beep/network/internal/ratelimit"
	"github.com/mahmudurrahman-beep/network/internal/session"
	"github.com/mahmudurrahman-beep/network/internal/typing"
)

// Config holds tunable parameters for the API server.
type Config struct {
	ListenAddr   string        // address to listen on, e.g. ":8081"
	ReadTimeout  time.Duration // timeout for reading requests
	WriteTimeout time.Duration // timeout for writing responses
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		ListenAddr:   ":8081",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// SessionResolver is the slice of the session store the API needs. It is an
// interface so tests can stub identity without Redis.
type SessionResolver interface {
	Get(ctx context.Context, token string) (*session.Session, error)
	Touch(ctx context.Context, token string) error
}

// Server is the typing presence API server.
type Server struct {
	config     Config
	store      typing.Store
	dir        directory.Directory
	sessions   SessionResolver
	limiter    *ratelimit.Limiter // nil disables rate limiting
	httpServer *http.Server
	startedAt  time.Time
}

// NewServer assembles the API server. limiter may be nil to disable rate
// limiting (tests, single-user tools).
func NewServer(config Config, store typing.Store, dir directory.Directory, sessions SessionResolver, limiter *ratelimit.Limiter) *Server {
	return &Server{
		config:   config,
		store:    store,
		dir:      dir,
		sessions: sessions,
		limiter:  limiter,
	}
}

// Handler builds the full route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	signal := func(h http.HandlerFunc) http.Handler {
		return s.requireAuth(s.requireCSRF(s.rateLimit(ratelimit.RuleTypingSignal, "signal", h)))
	}

	mux.Handle("POST /api/typing/start/{target}/{$}", signal(s.handleStart))
	mux.Handle("POST /api/typing/stop/{target}/{$}", signal(s.handleStop))
	mux.Handle("GET /api/typing/check/{target}/{$}",
		s.requireAuth(s.rateLimit(ratelimit.RuleTypingCheck, "check", s.handleCheck)))

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())

	return s.withAccessLog(mux)
}

// Start begins serving and blocks until the server stops.
func (s *Server) Start() error {
	s.startedAt = time.Now()
	s.httpServer = &http.Server{
		Addr:         s.config.ListenAddr,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	log.Printf("[httpapi] listening on %s", s.config.ListenAddr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("httpapi: serve: %w", err)
	}
	return nil
}

// Shutdown stops the server gracefully, letting in-flight requests finish.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int(time.Since(s.startedAt).Seconds()),
	})
}

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[httpapi] response encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}
