package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/knoguchi/campusrag/internal/auth"
	"github.com/knoguchi/campusrag/internal/retrieval"
)

// MaxQuestionRunes bounds the accepted question length
const MaxQuestionRunes = 2000

// Answerer is the retrieval engine as seen by the HTTP API
type Answerer interface {
	Answer(ctx context.Context, question string, schoolID uuid.UUID) (retrieval.Response, error)
	PurgeCache() int
	PurgeSchoolCache(schoolID uuid.UUID) int
}

// ReadinessFunc reports whether the backing stores are reachable
type ReadinessFunc func(ctx context.Context) error

// HTTPServer serves the JSON API
type HTTPServer struct {
	server *http.Server
	router *chi.Mux
	engine Answerer
	ready  ReadinessFunc
	logger *slog.Logger
}

// HTTPServerConfig holds configuration for the HTTP server
type HTTPServerConfig struct {
	Port           int
	Logger         *slog.Logger
	AllowedOrigins []string         // CORS allowed origins
	Auth           *auth.JWTManager // nil disables bearer authentication
	Ready          ReadinessFunc    // nil reports always ready
}

type answerRequest struct {
	Question string `json:"question"`
	SchoolID string `json:"school_id,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPServer creates the HTTP server and its routes
func NewHTTPServer(cfg HTTPServerConfig, engine Answerer) *HTTPServer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &HTTPServer{
		router: chi.NewRouter(),
		engine: engine,
		ready:  cfg.Ready,
		logger: logger,
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLoggingMiddleware(logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(corsMiddleware(cfg.AllowedOrigins))

	s.router.Get("/healthz", healthCheckHandler())
	s.router.Get("/readyz", s.readinessCheckHandler())

	s.router.Route("/v1", func(r chi.Router) {
		if cfg.Auth != nil {
			r.Use(cfg.Auth.Middleware(logger))
		}
		r.Use(middleware.AllowContentType("application/json"))
		r.Post("/answer", s.handleAnswer)
		r.Delete("/cache", s.handlePurgeCache)
	})

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // Answer generation can be slow
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Handler returns the router, for tests and embedding
func (s *HTTPServer) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *HTTPServer) Start() error {
	s.logger.Info("starting HTTP server", "address", s.server.Addr)

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP server shutdown error: %w", err)
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

func (s *HTTPServer) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	// The question goes to the engine as sent; cache keys compare exact bytes
	question := req.Question
	if strings.TrimSpace(question) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "question is required"})
		return
	}
	if utf8.RuneCountInString(question) > MaxQuestionRunes {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: fmt.Sprintf("question exceeds %d characters", MaxQuestionRunes),
		})
		return
	}

	schoolID, status, msg := resolveSchool(r.Context(), req.SchoolID)
	if status != http.StatusOK {
		writeJSON(w, status, errorResponse{Error: msg})
		return
	}

	resp, err := s.engine.Answer(r.Context(), question, schoolID)
	if err != nil {
		if errors.Is(err, retrieval.ErrInvalidTenant) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid school_id"})
			return
		}
		s.logger.Error("answer failed", "school_id", schoolID, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// resolveSchool picks the school from the token when authenticated, otherwise from the body
func resolveSchool(ctx context.Context, requested string) (uuid.UUID, int, string) {
	tokenSchool, authenticated := auth.SchoolFromContext(ctx)

	var bodySchool uuid.UUID
	if requested != "" {
		id, err := uuid.Parse(requested)
		if err != nil || id == uuid.Nil {
			return uuid.Nil, http.StatusBadRequest, "invalid school_id"
		}
		bodySchool = id
	}

	switch {
	case authenticated && bodySchool != uuid.Nil && bodySchool != tokenSchool:
		return uuid.Nil, http.StatusForbidden, "school_id does not match token"
	case authenticated:
		return tokenSchool, http.StatusOK, ""
	case bodySchool == uuid.Nil:
		return uuid.Nil, http.StatusBadRequest, "school_id is required"
	default:
		return bodySchool, http.StatusOK, ""
	}
}

// handlePurgeCache drops memoized answers. A bearer token limits the purge to its own
// school; without authentication an optional school_id query narrows it to one school.
func (s *HTTPServer) handlePurgeCache(w http.ResponseWriter, r *http.Request) {
	requested := r.URL.Query().Get("school_id")
	if _, authenticated := auth.SchoolFromContext(r.Context()); !authenticated && requested == "" {
		n := s.engine.PurgeCache()
		s.logger.Info("query cache purged", "entries", n)
		writeJSON(w, http.StatusOK, map[string]int{"purged": n})
		return
	}

	schoolID, status, msg := resolveSchool(r.Context(), requested)
	if status != http.StatusOK {
		writeJSON(w, status, errorResponse{Error: msg})
		return
	}
	n := s.engine.PurgeSchoolCache(schoolID)
	s.logger.Info("query cache purged", "school_id", schoolID, "entries", n)
	writeJSON(w, http.StatusOK, map[string]int{"purged": n})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// requestLoggingMiddleware logs HTTP requests
func requestLoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Wrap response writer to capture status code
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote_addr", r.RemoteAddr,
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

// corsMiddleware handles CORS headers
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			allowed := false
			if len(allowedOrigins) == 0 {
				allowed = true
				origin = "*"
			} else {
				for _, o := range allowedOrigins {
					if o == "*" || o == origin {
						allowed = true
						break
					}
				}
			}

			if allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")
				w.Header().Set("Access-Control-Max-Age", "86400")
			}

			// Handle preflight requests
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// healthCheckHandler returns a handler for the /healthz endpoint
func healthCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}
}

// readinessCheckHandler reports 503 while the stores are unreachable
func (s *HTTPServer) readinessCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := s.ready(ctx); err != nil {
				s.logger.Warn("readiness check failed", "error", err)
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
