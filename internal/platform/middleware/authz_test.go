// Copyright (c) 2026 Audira. All rights reserved.
// Author: contact@audira.fm

package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/audira/audira/internal/platform/ctxutil"
	"github.com/audira/audira/internal/platform/sec"
)

// # Test Fixtures

type stubRevocations struct {
	revoked map[string]bool
	err     error
}

func (s *stubRevocations) IsRevoked(_ context.Context, token string) (bool, error) {
	return s.revoked[token], s.err
}

type stubSessions struct {
	active map[string]string // userID -> active sessionID
	err    error
}

func (s *stubSessions) IsValid(_ context.Context, userID, sessionID string) (bool, error) {
	return s.active[userID] == sessionID, s.err
}

func newTokenService(t *testing.T) *sec.TokenService {
	t.Helper()
	service, err := sec.NewTokenService("test-secret-key", "audira.fm", time.Hour, 24*time.Hour)
	require.NoError(t, err)
	return service
}

// runGate wires the middleware around a probe handler and returns the
// response plus the claims the handler observed (nil when it never ran).
func runGate(t *testing.T, tokens *sec.TokenService, revocations *stubRevocations, sessions *stubSessions, authHeader string) (*httptest.ResponseRecorder, *sec.SessionClaims) {
	t.Helper()

	var seen *sec.SessionClaims
	probe := http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		seen = ctxutil.GetAuthUser(request.Context())
		writer.WriteHeader(http.StatusOK)
	})

	handler := Authenticate(tokens, revocations, sessions)(probe)

	request := httptest.NewRequest(http.MethodGet, "/probe", nil)
	if authHeader != "" {
		request.Header.Set("Authorization", authHeader)
	}

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder, seen
}

func errorCode(t *testing.T, recorder *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	code, _ := body["code"].(string)
	return code
}

// # Authenticate

func TestAuthenticate_ValidAccessToken(t *testing.T) {
	tokens := newTokenService(t)
	accessToken, err := tokens.IssueAccessToken("user-1", "session-1")
	require.NoError(t, err)

	revocations := &stubRevocations{revoked: map[string]bool{}}
	sessions := &stubSessions{active: map[string]string{"user-1": "session-1"}}

	recorder, seen := runGate(t, tokens, revocations, sessions, "Bearer "+accessToken)

	assert.Equal(t, http.StatusOK, recorder.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "user-1", seen.UserID)
	assert.Equal(t, "session-1", seen.SessionID)
}

func TestAuthenticate_AnonymousPassThrough(t *testing.T) {
	tokens := newTokenService(t)
	recorder, seen := runGate(t, tokens, &stubRevocations{}, &stubSessions{}, "")

	// No header means the request proceeds without an identity.
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Nil(t, seen)
}

func TestAuthenticate_Rejections(t *testing.T) {
	tokens := newTokenService(t)

	expiredService, err := sec.NewTokenService("test-secret-key", "audira.fm", -time.Minute, -time.Minute)
	require.NoError(t, err)
	expiredToken, err := expiredService.IssueAccessToken("user-1", "session-1")
	require.NoError(t, err)

	refreshToken, err := tokens.IssueRefreshToken("user-1", "session-1")
	require.NoError(t, err)

	validToken, err := tokens.IssueAccessToken("user-1", "session-1")
	require.NoError(t, err)

	revokedToken, err := tokens.IssueAccessToken("user-1", "session-1")
	require.NoError(t, err)

	unsessionedToken, err := tokens.IssueAccessToken("user-1", "")
	require.NoError(t, err)

	testCases := []struct {
		name         string
		header       string
		revocations  *stubRevocations
		sessions     *stubSessions
		expectStatus int
		expectCode   string
	}{
		{
			name:         "malformed scheme",
			header:       "Basic abc123",
			revocations:  &stubRevocations{},
			sessions:     &stubSessions{},
			expectStatus: http.StatusUnauthorized,
			expectCode:   "UNAUTHORIZED",
		},
		{
			name:         "garbage token",
			header:       "Bearer not.a.jwt",
			revocations:  &stubRevocations{},
			sessions:     &stubSessions{},
			expectStatus: http.StatusUnauthorized,
			expectCode:   "UNAUTHORIZED",
		},
		{
			name:         "expired token",
			header:       "Bearer " + expiredToken,
			revocations:  &stubRevocations{},
			sessions:     &stubSessions{},
			expectStatus: http.StatusUnauthorized,
			expectCode:   "TOKEN_EXPIRED",
		},
		{
			name:         "refresh token used as access",
			header:       "Bearer " + refreshToken,
			revocations:  &stubRevocations{},
			sessions:     &stubSessions{active: map[string]string{"user-1": "session-1"}},
			expectStatus: http.StatusUnauthorized,
			expectCode:   "UNAUTHORIZED",
		},
		{
			// Erroring stubs pin the short-circuit: touching either backend
			// would surface as a 503 instead of the expected 401.
			name:         "token without session binding",
			header:       "Bearer " + unsessionedToken,
			revocations:  &stubRevocations{err: errors.New("must not be consulted")},
			sessions:     &stubSessions{err: errors.New("must not be consulted")},
			expectStatus: http.StatusUnauthorized,
			expectCode:   "UNAUTHORIZED",
		},
		{
			name:         "revoked token",
			header:       "Bearer " + revokedToken,
			revocations:  &stubRevocations{revoked: map[string]bool{revokedToken: true}},
			sessions:     &stubSessions{active: map[string]string{"user-1": "session-1"}},
			expectStatus: http.StatusUnauthorized,
			expectCode:   "TOKEN_REVOKED",
		},
		{
			name:         "session replaced elsewhere",
			header:       "Bearer " + validToken,
			revocations:  &stubRevocations{},
			sessions:     &stubSessions{active: map[string]string{"user-1": "session-2"}},
			expectStatus: http.StatusUnauthorized,
			expectCode:   "SESSION_CONFLICT",
		},
		{
			name:         "revocation registry down",
			header:       "Bearer " + validToken,
			revocations:  &stubRevocations{err: errors.New("redis: connection refused")},
			sessions:     &stubSessions{active: map[string]string{"user-1": "session-1"}},
			expectStatus: http.StatusServiceUnavailable,
			expectCode:   "SERVICE_UNAVAILABLE",
		},
		{
			name:         "session store down",
			header:       "Bearer " + validToken,
			revocations:  &stubRevocations{},
			sessions:     &stubSessions{err: errors.New("pg: connection refused")},
			expectStatus: http.StatusServiceUnavailable,
			expectCode:   "SERVICE_UNAVAILABLE",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			recorder, seen := runGate(t, tokens, testCase.revocations, testCase.sessions, testCase.header)

			assert.Equal(t, testCase.expectStatus, recorder.Code)
			assert.Equal(t, testCase.expectCode, errorCode(t, recorder))
			assert.Nil(t, seen, "handler must not run on rejection")
		})
	}
}

func TestAuthenticate_RevocationCheckedBeforeSession(t *testing.T) {
	tokens := newTokenService(t)
	accessToken, err := tokens.IssueAccessToken("user-1", "session-1")
	require.NoError(t, err)

	// Token is both revoked and points at a replaced session. The revocation
	// verdict must win.
	revocations := &stubRevocations{revoked: map[string]bool{accessToken: true}}
	sessions := &stubSessions{active: map[string]string{"user-1": "session-2"}}

	recorder, _ := runGate(t, tokens, revocations, sessions, "Bearer "+accessToken)

	assert.Equal(t, "TOKEN_REVOKED", errorCode(t, recorder))
}

// # RequireAuth / RequireOwner

func TestRequireAuth(t *testing.T) {
	probe := http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusOK)
	})
	handler := RequireAuth()(probe)

	t.Run("anonymous rejected", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/probe", nil))
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("authenticated allowed", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/probe", nil)
		ctx := ctxutil.WithAuthUser(request.Context(), &sec.SessionClaims{UserID: "user-1"})

		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request.WithContext(ctx))
		assert.Equal(t, http.StatusOK, recorder.Code)
	})
}

func TestRequireOwner(t *testing.T) {
	router := chi.NewRouter()
	router.With(RequireOwner("userID")).Get("/users/{userID}/profile", func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusOK)
	})

	t.Run("owner allowed", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/users/user-1/profile", nil)
		ctx := ctxutil.WithAuthUser(request.Context(), &sec.SessionClaims{UserID: "user-1"})

		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, request.WithContext(ctx))
		assert.Equal(t, http.StatusOK, recorder.Code)
	})

	t.Run("cross-user forbidden", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/users/user-2/profile", nil)
		ctx := ctxutil.WithAuthUser(request.Context(), &sec.SessionClaims{UserID: "user-1"})

		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, request.WithContext(ctx))
		assert.Equal(t, http.StatusForbidden, recorder.Code)
	})
}
