package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/mattjoyce/smartapp-gw/internal/dispatcher"
	"github.com/mattjoyce/smartapp-gw/internal/lifecycle"
	"github.com/mattjoyce/smartapp-gw/internal/signature"
)

// DefaultMaxBodySize bounds lifecycle request bodies (1 MB).
const DefaultMaxBodySize = 1048576

// Config holds webhook server configuration.
type Config struct {
	// Listen is the address to bind (e.g. "127.0.0.1:8080").
	Listen string

	// Path is the URL path lifecycle events arrive on, normally the path
	// component of the definition's target URL.
	Path string

	// MaxBodySize is the maximum allowed request body size in bytes.
	MaxBodySize int64
}

// LifecycleDispatcher processes one verified lifecycle call.
type LifecycleDispatcher interface {
	Dispatch(ctx context.Context, rc dispatcher.RequestContext) (lifecycle.Response, error)
}

// ErrorResponse is the JSON body returned for failed requests.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server is the webhook HTTP server.
type Server struct {
	config     Config
	dispatcher LifecycleDispatcher
	logger     *slog.Logger
	server     *http.Server
}

// New creates a webhook server for the given dispatcher.
func New(config Config, d LifecycleDispatcher, logger *slog.Logger) *Server {
	if config.MaxBodySize == 0 {
		config.MaxBodySize = DefaultMaxBodySize
	}
	if config.Path == "" {
		config.Path = "/"
	}
	return &Server{
		config:     config,
		dispatcher: d,
		logger:     logger,
	}
}

// PathFromTargetURL derives the serving path from the definition's registered
// target URL.
func PathFromTargetURL(targetURL string) (string, error) {
	parts, err := url.Parse(targetURL)
	if err != nil {
		return "", fmt.Errorf("invalid target URL %q: %w", targetURL, err)
	}
	if parts.Path == "" {
		return "/", nil
	}
	return parts.Path, nil
}

// Start starts the webhook HTTP server (blocking until ctx is cancelled).
func (s *Server) Start(ctx context.Context) error {
	router := s.setupRoutes()

	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("webhook server starting", "listen", s.config.Listen, "path", s.config.Path)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("webhook server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("webhook server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("webhook server error: %w", err)
	}
}

func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Post(s.config.Path, s.handleLifecycle)

	return r
}

// loggingMiddleware logs HTTP requests (excludes bodies, which carry tokens).
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("lifecycle request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// handleLifecycle handles one inbound lifecycle POST.
func (s *Server) handleLifecycle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limitedReader := io.LimitReader(r.Body, s.config.MaxBodySize+1)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to read request body")
		return
	}
	if int64(len(body)) > s.config.MaxBodySize {
		s.respondError(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}

	// Go strips Host out of the header map, but it is part of the Joyent
	// signing string when the platform signs it.
	headers := r.Header.Clone()
	if headers.Get("Host") == "" && r.Host != "" {
		headers.Set("Host", r.Host)
	}

	rc := dispatcher.NewRequestContext(headers, body)
	if rc.CorrelationID == "" {
		rc.CorrelationID = uuid.NewString()
	}

	response, err := s.dispatcher.Dispatch(ctx, rc)
	if err != nil {
		status := statusForError(err)
		s.logger.Warn("lifecycle dispatch failed",
			"status", status,
			"correlation_id", rc.CorrelationID,
			"error", err,
		)
		s.respondError(w, status, errorMessage(err, status))
		return
	}

	encoded, err := lifecycle.EncodeResponse(response)
	if err != nil {
		s.logger.Error("failed to encode lifecycle response",
			"correlation_id", rc.CorrelationID,
			"error", err,
		)
		s.respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(encoded)
}

// statusForError maps each failure kind from the dispatcher to a status code.
func statusForError(err error) int {
	var schemaErr *lifecycle.SchemaError
	var handlerErr *lifecycle.HandlerError
	switch {
	case errors.Is(err, signature.ErrMalformedSignature),
		errors.Is(err, signature.ErrInvalidSignature),
		errors.Is(err, signature.ErrKeyUnavailable):
		return http.StatusUnauthorized
	case errors.Is(err, lifecycle.ErrInvalidJSON),
		errors.Is(err, lifecycle.ErrUnknownLifecycle),
		errors.Is(err, lifecycle.ErrPageNotFound),
		errors.As(err, &schemaErr):
		return http.StatusBadRequest
	case errors.As(err, &handlerErr):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// errorMessage returns the body for a failed request. Signature failures get
// a generic message so the response leaks nothing about the verification.
func errorMessage(err error, status int) string {
	switch status {
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusBadRequest:
		return err.Error()
	default:
		return "internal error"
	}
}

// respondJSON sends a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends a JSON error response.
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{Error: message})
}
