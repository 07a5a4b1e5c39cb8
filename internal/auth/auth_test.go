package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManager_RoundTrip(t *testing.T) {
	m := NewJWTManager(DefaultJWTConfig("secret"))
	school := uuid.New()

	token, err := m.GenerateToken(school, "Alpha University")
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	id, err := claims.GetSchoolID()
	require.NoError(t, err)
	assert.Equal(t, school, id)
	assert.Equal(t, "Alpha University", claims.SchoolName)
}

func TestJWTManager_Rejects(t *testing.T) {
	m := NewJWTManager(DefaultJWTConfig("secret"))
	school := uuid.New()

	_, err := m.GenerateToken(uuid.Nil, "")
	assert.ErrorIs(t, err, ErrInvalidClaims)

	other := NewJWTManager(DefaultJWTConfig("other-secret"))
	foreign, err := other.GenerateToken(school, "")
	require.NoError(t, err)
	_, err = m.ValidateToken(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := m.GenerateTokenWithExpiry(school, "", -time.Minute)
	require.NoError(t, err)
	_, err = m.ValidateToken(expired)
	assert.ErrorIs(t, err, ErrExpiredToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{SchoolID: school.String()})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = m.ValidateToken(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.ValidateToken("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMiddleware(t *testing.T) {
	m := NewJWTManager(DefaultJWTConfig("secret"))
	school := uuid.New()
	token, err := m.GenerateToken(school, "")
	require.NoError(t, err)

	var seen uuid.UUID
	handler := m.Middleware(nil, "/healthz")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = SchoolFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"valid token", "/v1/answer", "Bearer " + token, http.StatusNoContent},
		{"lower-case scheme", "/v1/answer", "bearer " + token, http.StatusNoContent},
		{"missing token", "/v1/answer", "", http.StatusUnauthorized},
		{"wrong scheme", "/v1/answer", "Basic abc", http.StatusUnauthorized},
		{"bad token", "/v1/answer", "Bearer nope", http.StatusUnauthorized},
		{"skipped path", "/healthz", "", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = uuid.Nil
			req := httptest.NewRequest(http.MethodPost, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusNoContent && tt.path != "/healthz" {
				assert.Equal(t, school, seen)
			}
		})
	}
}
