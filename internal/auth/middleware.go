package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

// schoolContextKey is the context key for the authenticated school
const schoolContextKey contextKey = "school"

// WithSchool returns a context carrying the authenticated school id
func WithSchool(ctx context.Context, schoolID uuid.UUID) context.Context {
	return context.WithValue(ctx, schoolContextKey, schoolID)
}

// SchoolFromContext extracts the authenticated school id from context
func SchoolFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(schoolContextKey).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// Middleware rejects requests without a valid bearer token and stores the token's school
// in the request context. Paths in skip are served without a token.
func (m *JWTManager) Middleware(logger *slog.Logger, skip ...string) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	skipped := make(map[string]bool, len(skip))
	for _, p := range skip {
		skipped[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipped[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := bearerToken(r)
			if !ok {
				unauthorized(w, "missing bearer token")
				return
			}
			claims, err := m.ValidateToken(token)
			if err != nil {
				logger.Debug("rejected token", "path", r.URL.Path, "error", err)
				if errors.Is(err, ErrExpiredToken) {
					unauthorized(w, "token has expired")
					return
				}
				unauthorized(w, "invalid token")
				return
			}
			schoolID, err := claims.GetSchoolID()
			if err != nil {
				unauthorized(w, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSchool(r.Context(), schoolID)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="campusrag"`)
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
