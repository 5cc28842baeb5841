package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opengrc/attest/internal/auth"
	"github.com/opengrc/attest/internal/server/middleware"
)

const testSecret = "middleware-test-secret-0123456789"

// contextHandler captures context values set by middleware so tests can
// assert that the correct user and role were injected.
type contextHandler struct {
	userID uuid.UUID
	role   string
	called bool
}

func (h *contextHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.called = true
	h.userID, _ = middleware.UserIDFromContext(r.Context())
	h.role, _ = middleware.RoleFromContext(r.Context())
	w.WriteHeader(http.StatusOK)
}

// ---------------------------------------------------------------------------
// Auth middleware
// ---------------------------------------------------------------------------

func TestAuth_ValidAccessToken(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	token, err := auth.IssueAccessToken(testSecret, userID, "auditor", 5*time.Minute)
	require.NoError(t, err)

	next := &contextHandler{}
	handler := middleware.Auth(testSecret)(next)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/audits", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, next.called)
	assert.Equal(t, userID, next.userID)
	assert.Equal(t, "auditor", next.role)
}

func TestAuth_RefreshTokenRejected(t *testing.T) {
	t.Parallel()

	token, err := auth.IssueRefreshToken(testSecret, uuid.New(), "auditor", time.Hour)
	require.NoError(t, err)

	next := &contextHandler{}
	handler := middleware.Auth(testSecret)(next)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/audits", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, next.called)
}

func TestAuth_MissingHeader(t *testing.T) {
	t.Parallel()

	next := &contextHandler{}
	handler := middleware.Auth(testSecret)(next)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/audits", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, next.called)
}

func TestAuth_ExpiredToken(t *testing.T) {
	t.Parallel()

	token, err := auth.IssueAccessToken(testSecret, uuid.New(), "auditor", -time.Second)
	require.NoError(t, err)

	next := &contextHandler{}
	handler := middleware.Auth(testSecret)(next)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/audits", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_WrongSecret(t *testing.T) {
	t.Parallel()

	token, err := auth.IssueAccessToken("another-secret-entirely-01234567", uuid.New(), "auditor", 5*time.Minute)
	require.NoError(t, err)

	next := &contextHandler{}
	handler := middleware.Auth(testSecret)(next)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/audits", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// ---------------------------------------------------------------------------
// RequireRole middleware
// ---------------------------------------------------------------------------

// authedRequest builds a request that has passed Auth with the given role.
func authedRequest(t *testing.T, role string) *http.Request {
	t.Helper()

	token, err := auth.IssueAccessToken(testSecret, uuid.New(), role, 5*time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/frameworks", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestRequireRole(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		allowed  []string
		role     string
		wantCode int
	}{
		{name: "matching role passes", allowed: []string{middleware.RoleReviewer}, role: "reviewer", wantCode: http.StatusOK},
		{name: "one of several passes", allowed: []string{middleware.RoleAdmin, middleware.RoleAuditor}, role: "auditor", wantCode: http.StatusOK},
		{name: "wrong role forbidden", allowed: []string{middleware.RoleAdmin}, role: "auditor", wantCode: http.StatusForbidden},
		{name: "empty role unauthorized", allowed: []string{middleware.RoleAdmin}, role: "", wantCode: http.StatusUnauthorized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			next := &contextHandler{}
			handler := middleware.Auth(testSecret)(middleware.RequireRole(tc.allowed...)(next))

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, authedRequest(t, tc.role))

			assert.Equal(t, tc.wantCode, rec.Code)
		})
	}
}

func TestRequireRole_WithoutAuthIsUnauthorized(t *testing.T) {
	t.Parallel()

	next := &contextHandler{}
	handler := middleware.RequireRole(middleware.RoleAdmin)(next)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/frameworks", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, next.called)
}
