// Package web is the REST and WebSocket surface of the setup service:
// device registry CRUD, calibration jobs and input-action programming, with
// live progress streamed to WebSocket clients.
package web

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"zigbee-go-setup/internal/setup"
)

// ServerOption configures the web server.
type ServerOption func(*Server)

// WithAPIKey enables API key authentication.
func WithAPIKey(key string) ServerOption {
	return func(s *Server) {
		s.apiKey = key
	}
}

// WithAllowedOrigins sets allowed WebSocket origin patterns.
func WithAllowedOrigins(origins []string) ServerOption {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

// Server is the HTTP server for the setup API.
type Server struct {
	svc            *setup.Service
	stream         *EventStream
	jobs           *jobRegistry
	logger         *slog.Logger
	mux            *http.ServeMux
	apiKey         string
	allowedOrigins []string
	wg             sync.WaitGroup
	unsubEvents    func()
}

// NewServer creates a new web server around the setup service.
func NewServer(svc *setup.Service, logger *slog.Logger, opts ...ServerOption) *Server {
	s := &Server{
		svc:    svc,
		jobs:   newJobRegistry(),
		logger: logger.With("component", "web"),
		mux:    http.NewServeMux(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.stream = newEventStream(s.logger)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.stream.Run()
	}()

	// Every setup event goes out to WebSocket clients.
	s.unsubEvents = svc.Events().OnAll(s.stream.Publish)

	s.routes()
	return s
}

// Stop gracefully shuts down the WebSocket hub and waits for goroutines.
func (s *Server) Stop() {
	if s.unsubEvents != nil {
		s.unsubEvents()
	}
	s.stream.Stop()
	s.wg.Wait()
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/devices", s.handleAPIListDevices)
	s.mux.HandleFunc("POST /api/devices", s.handleAPIRegisterDevice)
	s.mux.HandleFunc("GET /api/devices/{name}", s.handleAPIGetDevice)
	s.mux.HandleFunc("DELETE /api/devices/{name}", s.handleAPIDeleteDevice)
	s.mux.HandleFunc("POST /api/devices/{name}/firmware", s.handleAPIRefreshFirmware)

	s.mux.HandleFunc("POST /api/devices/{name}/calibration", s.handleAPIStartCalibration)
	s.mux.HandleFunc("GET /api/devices/{name}/calibration", s.handleAPIGetCalibration)
	s.mux.HandleFunc("GET /api/devices/{name}/report", s.handleAPIReport)
	s.mux.HandleFunc("POST /api/devices/{name}/actions", s.handleAPIApplyActions)
	s.mux.HandleFunc("GET /api/jobs/{id}", s.handleAPIGetJob)

	s.mux.HandleFunc("GET /api/models", s.handleAPIListModels)
	s.mux.HandleFunc("GET /api/families", s.handleAPIListFamilies)

	// WebSocket
	s.mux.HandleFunc("GET /ws", s.handleWS)
}

// ServeHTTP implements http.Handler, applying auth and CORS middleware.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// CORS: check Origin on mutating requests to prevent CSRF.
	if len(s.allowedOrigins) > 0 {
		origin := r.Header.Get("Origin")
		if origin != "" {
			if r.Method == http.MethodOptions {
				// Preflight request.
				if s.isOriginAllowed(origin) {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key")
					w.Header().Set("Access-Control-Max-Age", "3600")
					w.WriteHeader(http.StatusNoContent)
					return
				}
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}

			if r.Method != http.MethodGet {
				if !s.isOriginAllowed(origin) {
					http.Error(w, "Forbidden", http.StatusForbidden)
					return
				}
				w.Header().Set("Access-Control-Allow-Origin", origin)
			}
		}
	}

	if s.apiKey != "" {
		// Only /api/ endpoints are API-key-protected; browsers cannot send
		// custom headers on a WebSocket upgrade.
		if strings.HasPrefix(r.URL.Path, "/api/") {
			key := r.Header.Get("X-API-Key")
			if subtle.ConstantTimeCompare([]byte(key), []byte(s.apiKey)) != 1 {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
		}
	}
	s.mux.ServeHTTP(w, r)
}

// isOriginAllowed checks if the origin matches any allowed origin pattern.
func (s *Server) isOriginAllowed(origin string) bool {
	for _, allowed := range s.allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}
