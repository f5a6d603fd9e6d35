package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/luongdev/rtcqos/pkg/logger"
	"github.com/luongdev/rtcqos/pkg/processor"
)

const defaultMaxBodyBytes = 32 << 20

// HealthChecker reports whether a backend is reachable
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Dependencies are the components served by the HTTP server
type Dependencies struct {
	Sessions  processor.SessionProcessor
	Extractor processor.Extractor
	Storage   HealthChecker
	Gatherer  prometheus.Gatherer
}

// HTTPServer represents the HTTP server for the session API, health and metrics endpoints
type HTTPServer struct {
	server       *http.Server
	deps         Dependencies
	port         int
	maxBodyBytes int64
	addr         string
	mu           sync.RWMutex
	errChan      chan error
	shutdownChan chan struct{}
	stopped      bool
}

// NewHTTPServer creates a new HTTP server instance
func NewHTTPServer(port int, maxBodyBytes int64, deps Dependencies) *HTTPServer {
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}
	return &HTTPServer{
		port:         port,
		maxBodyBytes: maxBodyBytes,
		deps:         deps,
		errChan:      make(chan error, 1),
		shutdownChan: make(chan struct{}),
	}
}

// Handler builds the router
func (s *HTTPServer) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ready", s.handleReady).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})).Methods(http.MethodGet)

	r.HandleFunc("/extract", s.handleExtract).Methods(http.MethodPost)

	r.HandleFunc("/classify", s.handleClassify).Methods(http.MethodPost)

	r.HandleFunc("/sessions/{id}/local", s.handlePutLocal).Methods(http.MethodPut)
	r.HandleFunc("/sessions/{id}/remotes", s.handlePostRemote).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/report", s.handleReport).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}", s.handleDelete).Methods(http.MethodDelete)

	return r
}

// Start binds the listen port and serves in the background. A bind failure
// is returned; later serve failures are delivered on Errors.
func (s *HTTPServer) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Error("HTTP server failed to listen on %s: %v", addr, err)
		return errors.Wrapf(err, "listen on %s", addr)
	}

	s.mu.Lock()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.addr = ln.Addr().String()
	s.mu.Unlock()

	logger.Info("HTTP server starting on %s", s.addr)

	// Serve in goroutine
	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error: %v", err)
			s.errChan <- err
		}
	}()

	// Wait for shutdown signal
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Errors delivers a serve failure once the server has started
func (s *HTTPServer) Errors() <-chan error {
	return s.errChan
}

// Addr returns the bound listen address once started
func (s *HTTPServer) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

// Stop gracefully stops the HTTP server
func (s *HTTPServer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Check if already stopped
	if s.stopped {
		return nil
	}

	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("Shutting down HTTP server...")
	if err := s.server.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error: %v", err)
		return err
	}

	close(s.shutdownChan)
	s.stopped = true
	logger.Info("HTTP server stopped")
	return nil
}

// Done is closed once the server has stopped
func (s *HTTPServer) Done() <-chan struct{} {
	return s.shutdownChan
}

// HealthResponse represents the response structure for /health endpoint
type HealthResponse struct {
	Status  string      `json:"status"`
	Storage StorageInfo `json:"storage"`
}

// StorageInfo represents the state of the capture store
type StorageInfo struct {
	Connected bool   `json:"connected"`
	LastError string `json:"last_error,omitempty"`
}

func (s *HTTPServer) pingStorage(ctx context.Context) error {
	if s.deps.Storage == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.deps.Storage.Ping(ctx)
}

// handleHealth handles the /health endpoint
func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:  "healthy",
		Storage: StorageInfo{Connected: true},
	}

	if err := s.pingStorage(r.Context()); err != nil {
		response.Status = "unhealthy"
		response.Storage = StorageInfo{Connected: false, LastError: err.Error()}
	}

	// Set status code based on health
	statusCode := http.StatusOK
	if response.Status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSON(w, statusCode, response)

	logger.Debug("Health check request processed: status=%s", response.Status)
}

// handleReady handles the /ready endpoint
func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.pingStorage(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("not ready"))
		logger.Debug("Readiness check: not ready (%v)", err)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
	logger.Debug("Readiness check: ready")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode response: %v", err)
	}
}

// ErrorResponse is the body of every non-2xx API response
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}
