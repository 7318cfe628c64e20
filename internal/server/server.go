// SPDX-License-Identifier: MIT
// Package server exposes the session over HTTP: the current estimate, session
// control, Prometheus metrics and the live WebSocket feed.
package server

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	applog "pulse/internal/log"
	"pulse/internal/transport"
	"pulse/pkg/build"
)

//go:embed dashboard.html
var dashboard []byte

// Controls starts and stops the measurement session.
type Controls interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Options wires the server to the engine. Metrics and WebSocket are optional.
type Options struct {
	Address   string
	Estimates transport.EstimateSource
	Controls  Controls
	Metrics   http.Handler
	WebSocket http.Handler
}

// Server is the HTTP API.
type Server struct {
	opts    Options
	handler http.Handler
	http    *http.Server
}

// New builds the router. It does not start listening.
func New(opts Options) (*Server, error) {
	if opts.Estimates == nil || opts.Controls == nil {
		return nil, errors.New("server: estimates and controls are required")
	}

	s := &Server{opts: opts}

	// Keep routes on the root router; a subrouter reports method mismatches as 404.
	r := mux.NewRouter()
	r.HandleFunc("/api/health", s.getHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/estimate", s.getEstimate).Methods(http.MethodGet)
	r.HandleFunc("/api/session/start", s.postStart).Methods(http.MethodPost)
	r.HandleFunc("/api/session/stop", s.postStop).Methods(http.MethodPost)
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", req.Method))
	})
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, http.StatusNotFound, fmt.Errorf("no route for %s", req.URL.Path))
	})
	r.HandleFunc("/", serveDashboard).Methods(http.MethodGet)
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics).Methods(http.MethodGet)
	}
	if opts.WebSocket != nil {
		r.Handle("/ws", opts.WebSocket).Methods(http.MethodGet)
	}

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)
	s.handler = handlers.LoggingHandler(applog.Writer(applog.LevelInfo),
		handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(cors(r)))

	s.http = &http.Server{
		Addr:              opts.Address,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s, nil
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves until Shutdown. It returns nil after a graceful shutdown.
func (s *Server) ListenAndServe() error {
	applog.Infof("Server: Listening on %s", s.opts.Address)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	applog.Infof("Server: Shutting down")
	return s.http.Shutdown(ctx)
}

type healthResponse struct {
	Status  string `json:"status"`
	State   string `json:"state"`
	Version string `json:"version"`
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		State:   s.opts.Estimates.Snapshot().State.String(),
		Version: build.Get().Version,
	})
}

func (s *Server) getEstimate(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, transport.NewMessage(s.opts.Estimates.Snapshot()))
}

func (s *Server) postStart(w http.ResponseWriter, r *http.Request) {
	if err := s.opts.Controls.Start(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusAccepted, transport.NewMessage(s.opts.Estimates.Snapshot()))
}

func (s *Server) postStop(w http.ResponseWriter, r *http.Request) {
	if err := s.opts.Controls.Stop(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, transport.NewMessage(s.opts.Estimates.Snapshot()))
}

func serveDashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(dashboard)
}

// DashboardURL returns the browser URL of a server listening on address.
func DashboardURL(address string) string {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return "http://" + address + "/"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port) + "/"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		applog.Debugf("Server: Error writing response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
