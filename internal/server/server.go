// Package server provides the operator HTTP API for the auto-leech monitor.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/autoleech/internal/db"
	"github.com/jonathan/autoleech/internal/monitor"
	"github.com/jonathan/autoleech/internal/ratelimit"
	"github.com/jonathan/autoleech/internal/server/middleware"
	"github.com/jonathan/autoleech/internal/types"
)

// Controller is the monitor lifecycle the API drives.
type Controller interface {
	Start(ctx context.Context, req monitor.StartRequest) (monitor.Status, error)
	Stop(ctx context.Context) error
	Status() monitor.Status
}

// DeliveryLister reads the delivery journal.
type DeliveryLister interface {
	ListDeliveries(ctx context.Context, filters db.DeliveryFilters) ([]types.Delivery, error)
}

// Config holds server configuration
type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// Deps are the collaborators of the Server.
type Deps struct {
	Controller Controller
	// Journal is optional; /deliveries answers 404 without it.
	Journal     DeliveryLister
	JWT         *JWTService
	RateLimiter *ratelimit.Limiter
	// Authorize, when set, re-checks the operator of every valid token.
	Authorize func(operatorID int64) bool
	Logger    *slog.Logger
}

// Server represents the HTTP server
type Server struct {
	httpServer      *http.Server
	controller      Controller
	journal         DeliveryLister
	rateLimiter     *ratelimit.Limiter
	logger          *slog.Logger
	shutdownTimeout time.Duration
}

// StartBody is the optional JSON body of POST /monitor/start.
type StartBody struct {
	CommandChat types.ChatRef `json:"command_chat,omitempty"`
}

// New creates a new server instance
func New(cfg Config, deps Deps) (*Server, error) {
	if deps.Controller == nil {
		return nil, fmt.Errorf("server: controller is required")
	}
	if deps.JWT == nil {
		return nil, fmt.Errorf("server: JWT service is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rateLimiter := deps.RateLimiter
	if rateLimiter == nil {
		rateLimiter = ratelimit.NewLimiter(&ratelimit.Config{Enabled: false})
	}

	s := &Server{
		controller:      deps.Controller,
		journal:         deps.Journal,
		rateLimiter:     rateLimiter,
		logger:          logger,
		shutdownTimeout: cfg.ShutdownTimeout,
	}
	if s.shutdownTimeout <= 0 {
		s.shutdownTimeout = 30 * time.Second
	}

	auth := middleware.AuthMiddleware(deps.JWT.AsTokenValidator(), deps.Authorize)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("POST /monitor/start", auth(http.HandlerFunc(s.handleStart)))
	mux.Handle("POST /monitor/stop", auth(http.HandlerFunc(s.handleStop)))
	mux.Handle("GET /monitor/status", auth(http.HandlerFunc(s.handleStatus)))
	mux.Handle("GET /deliveries", auth(http.HandlerFunc(s.handleListDeliveries)))

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.withRateLimit(s.withLogging(mux)),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Stop waits for the poll loop to acknowledge.
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the root handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server: listening", "addr", ln.Addr().String())
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		s.rateLimiter.Stop()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("server: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	defer s.rateLimiter.Stop()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("server: stopped")
	return nil
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := extractClientID(r)
		allowed, info := s.rateLimiter.AllowRequest(clientID, r.URL.Path, r.Method)
		setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, clientID, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response code for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("server: request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"remote", r.RemoteAddr,
			"duration", time.Since(start))
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStart launches a monitor run. The body is optional.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	operatorID, err := middleware.GetOperatorID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var body StartBody
	if err := decodeOptionalJSON(r.Body, &body); err != nil {
		s.writeError(w, err)
		return
	}

	status, err := s.controller.Start(r.Context(), monitor.StartRequest{
		CommandChat: body.CommandChat,
		// A private chat with a user shares the user's id.
		IssuerChat: types.ChatRefFromID(operatorID),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info("server: monitor started", "operator", operatorID, "run_id", status.RunID.String())
	s.jsonResponse(w, http.StatusAccepted, status)
}

// handleStop stops the active run and waits for the loop to exit, bounded by
// the request context.
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	operatorID, _ := middleware.GetOperatorID(r)
	if err := s.controller.Stop(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info("server: monitor stopped", "operator", operatorID)
	s.jsonResponse(w, http.StatusOK, s.controller.Status())
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.controller.Status())
}

// handleListDeliveries lists journaled deliveries, newest first.
// Query parameters: limit, run_id, link.
func (s *Server) handleListDeliveries(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		s.writeError(w, ErrNoJournal)
		return
	}

	filters, err := parseDeliveryFilters(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	deliveries, err := s.journal.ListDeliveries(r.Context(), filters)
	if err != nil {
		s.logger.Error("server: list deliveries", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to list deliveries")
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"deliveries": deliveries,
		"count":      len(deliveries),
	})
}

func parseDeliveryFilters(r *http.Request) (db.DeliveryFilters, error) {
	q := r.URL.Query()
	var filters db.DeliveryFilters

	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			return filters, &ErrValidation{Field: "limit", Message: "must be a positive integer"}
		}
		filters.Limit = limit
	}
	filters.Limit = db.ClampLimit(filters.Limit)

	if v := q.Get("run_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return filters, &ErrValidation{Field: "run_id", Message: "must be a UUID"}
		}
		filters.RunID = id
	}
	filters.Link = q.Get("link")
	return filters, nil
}

// decodeOptionalJSON decodes r into v, treating an empty body as no input.
func decodeOptionalJSON(r io.Reader, v any) error {
	dec := json.NewDecoder(io.LimitReader(r, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return &ErrValidation{Field: "body", Message: err.Error()}
	}
	return nil
}

// writeError maps err onto a status code and writes it as JSON.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("server: request failed", "error", err)
	}
	s.errorResponse(w, status, err.Error())
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("server: encode response", "error", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// extractClientID extracts the client identifier from the request.
// This uses the IP address from RemoteAddr; X-Forwarded-For is not trusted.
func extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, clientID string, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
	}

	if info.RetryAfter > 0 {
		seconds := int(info.RetryAfter.Round(time.Second).Seconds())
		if seconds < 1 {
			seconds = 1
		}
		response["retry_after"] = seconds
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}

	s.logger.Warn("server: rate limit exceeded", "client", clientID, "limit", info.Limit)
	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
