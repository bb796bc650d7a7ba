// Package server implements the HTTP server that exposes the UI Guide agent
// via a JSON REST API. The server is started by the `uiguide serve` CLI
// command.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/uiguide/uiguide-go/internal/agent"
	"github.com/uiguide/uiguide-go/internal/logging"
	"github.com/uiguide/uiguide-go/internal/version"
)

// New constructs a Server from the provided agent, document lister and config.
func New(guide querier, documents documentLister, cfg *Config) (*Server, error) {
	if guide == nil {
		return nil, fmt.Errorf("server: agent must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8000
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		// WriteTimeout must cover a full agent round-trip including tool calls.
		cfg.WriteTimeout = 2 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.New()
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = defaultRateBurst
	}
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	s := &Server{
		querier:   guide,
		documents: documents,
		cfg:       cfg,
		log:       cfg.Logger,
		pingers:   cfg.Pingers,
		metrics:   newServerMetrics(reg),
	}

	if cfg.APIKey == "" {
		s.log.Warn("server: UIGUIDE_API_KEY not set, API authentication is disabled")
	}

	rl, stopRL := newRateLimiter(cfg.RateLimit, cfg.RateBurst, s.log)
	s.stopRL = stopRL

	mux := http.NewServeMux()
	mux.Handle("POST /api/chat",
		rl.middleware(authMiddleware(cfg.APIKey, s.instrument("chat", s.handleChat))))
	mux.Handle("GET /api/documents",
		authMiddleware(cfg.APIKey, s.instrument("documents", s.handleDocuments)))
	mux.Handle("GET /api/health", s.instrument("health", s.handleHealth))
	mux.Handle("GET /api/ready", s.instrument("ready", s.handleReady))
	mux.Handle("GET /api/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle("GET /{$}", s.instrument("root", s.handleHealth))

	handler := requestLogger(s.log, corsMiddleware(cfg.AllowedOrigins, mux))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.log.Info("uiguide server listening", slog.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.stopRL()
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		s.stopRL()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	}
}

// handleChat handles POST /api/chat requests. It validates the request,
// generates a thread ID when the client did not supply one, runs the agent,
// and returns the answer with citations as JSON.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	log := logging.FromContext(r.Context())

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.finishChat("bad_request", start)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		s.finishChat("bad_request", start)
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}
	if len(req.Message) > maxMessageChars {
		s.finishChat("bad_request", start)
		http.Error(w, fmt.Sprintf("message exceeds %d characters", maxMessageChars), http.StatusBadRequest)
		return
	}
	if len(req.ThreadID) > maxThreadIDChars {
		s.finishChat("bad_request", start)
		http.Error(w, fmt.Sprintf("thread_id exceeds %d characters", maxThreadIDChars), http.StatusBadRequest)
		return
	}

	threadID := req.ThreadID
	if threadID == "" {
		threadID = uuid.NewString()
	}

	result, err := s.querier.Query(r.Context(), req.Message, threadID)
	if err != nil {
		if errors.Is(err, agent.ErrModelUnavailable) {
			s.finishChat("model_unavailable", start)
			log.Error("chat: model unavailable", slog.Any("error", err))
			http.Error(w, "model backend unavailable", http.StatusServiceUnavailable)
			return
		}
		s.finishChat("error", start)
		log.Error("chat: query failed", slog.Any("error", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if result.UsedRetriever {
		s.metrics.chatRetrievalsTotal.Inc()
	}
	s.finishChat("ok", start)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		log.Error("chat: encode error", slog.Any("error", err))
	}
}

// finishChat records the outcome metrics for one /api/chat request.
func (s *Server) finishChat(outcome string, start time.Time) {
	s.metrics.chatRequestsTotal.WithLabelValues(outcome).Inc()
	s.metrics.chatDurationSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}

// handleDocuments handles GET /api/documents. It returns the sorted list of
// source documents currently present in the index.
func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	names := []string{}
	if s.documents != nil {
		var err error
		names, err = s.documents.DocumentNames(r.Context())
		if err != nil {
			log.Error("documents: listing failed", slog.Any("error", err))
			http.Error(w, "document store unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	sort.Strings(names)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(documentsResponse{Documents: names, Count: len(names)}); err != nil {
		log.Error("documents: encode error", slog.Any("error", err))
	}
}

// handleHealth handles GET /api/health (and GET /) for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(healthResponse{
		Status:  "healthy",
		Message: "UI Guide API is running",
		Version: version.Version,
	}); err != nil {
		logging.FromContext(r.Context()).Error("health encode error", slog.Any("error", err))
	}
}

// instrument wraps a handler with per-endpoint Prometheus request counting
// and latency observation, labelled by the logical handler name.
func (s *Server) instrument(name string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		h(rw, r)
		s.metrics.httpRequestsTotal.WithLabelValues(r.Method, name, strconv.Itoa(rw.status)).Inc()
		s.metrics.httpDurationSeconds.WithLabelValues(r.Method, name).Observe(time.Since(start).Seconds())
	})
}
