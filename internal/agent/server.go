// Package agent hosts the long-lived local process that holds the access
// token, proxies all backend calls, and fans auth/generation events out to
// subscribed clients over SSE.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"
)

// Config holds the agent server configuration.
type Config struct {
	Port int
	Host string
}

// DefaultConfig returns the default agent configuration.
func DefaultConfig() Config {
	return Config{
		Port: 7537,
		Host: "127.0.0.1",
	}
}

// Server is the agent's HTTP front: the message endpoint, the event
// stream, and a health probe.
type Server struct {
	httpServer *http.Server
	router     *Router
	sseHub     *SSEHub
	config     Config
}

// NewServer creates an agent server around a wired router and hub.
func NewServer(config Config, router *Router, hub *SSEHub) *Server {
	return &Server{
		router: router,
		sseHub: hub,
		config: config,
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	s.setupRoutes(mux)

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.loggingMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start agent: %w", err)
	}

	go s.sseHub.Run(ctx)

	log.Printf("agent listening on http://%s", addr)

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("agent server error: %v", err)
		}
	}()

	<-ctx.Done()

	return s.Shutdown(context.Background()) //nolint:contextcheck // parent context cancelled, use background for shutdown
}

// Shutdown gracefully shuts down the agent server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	log.Println("shutting down agent...")

	return s.httpServer.Shutdown(shutdownCtx)
}

func (s *Server) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/message", s.handleMessage)
	mux.HandleFunc("GET /api/v1/events", s.sseHub.handleSSE)
	mux.HandleFunc("GET /healthz", s.handleHealth)
}

// handleMessage decodes one envelope, dispatches it, and always answers
// with the uniform {ok, data?, error?} shape.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var msg Message

	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{OK: false, Error: "invalid message envelope"})

		return
	}

	resp := s.router.Handle(r.Context(), msg)

	// The transport always succeeds; failures live in the envelope.
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

// loggingMiddleware logs HTTP requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}
