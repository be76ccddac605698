// Package server provides the HTTP server for the wavecoach service.
package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ayusman/wavecoach/internal/app"
	"github.com/ayusman/wavecoach/internal/server/api"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	App       *app.App
	// Gatherer exposes /metrics when set.
	Gatherer prometheus.Gatherer
}

// Server represents the HTTP server for the wavecoach service.
type Server struct {
	config Config
	mux    *http.ServeMux
	live   *LiveHub
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.App != nil {
		sessions := api.NewSessionHandler(s.config.App)
		s.mux.Handle("/api/sessions", sessions)
		s.mux.Handle("/api/sessions/", sessions)

		settings := api.NewSettingsHandler(s.config.App)
		s.mux.Handle("/api/settings", settings)
		s.mux.Handle("/api/settings/", settings)

		s.live = NewLiveHub(s.config.App.Metrics().GaugeLiveClients)
		s.config.App.OnResult(s.live.Publish)
		s.mux.Handle("/api/live", s.live)
	}

	if s.config.Gatherer != nil {
		s.mux.Handle("/metrics", promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{}))
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// The live feed hijacks the connection, so it bypasses request counting.
	if s.config.App == nil || r.URL.Path == "/api/live" {
		s.mux.ServeHTTP(w, r)
		return
	}

	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(rec, r)
	s.config.App.Metrics().CounterRequests.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
}

// Live returns the live feed hub, or nil when no App is configured.
func (s *Server) Live() *LiveHub {
	return s.live
}

// Close disconnects live feed clients.
func (s *Server) Close() {
	if s.live != nil {
		s.live.Close()
	}
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if s.live != nil {
		response["live_clients"] = s.live.Clients()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
