// Copyright (c) 2026 Audira. All rights reserved.
// Author: contact@audira.fm

package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/audira/audira/internal/platform/apperr"
	"github.com/audira/audira/internal/platform/sec"
)

// # In-Memory Fakes

type fakeUserRepo struct {
	users map[string]*User // keyed by ID
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*User)}
}

func (f *fakeUserRepo) FindByID(_ context.Context, id string) (*User, error) {
	if user, ok := f.users[id]; ok {
		return user, nil
	}
	return nil, apperr.NotFound("User")
}

func (f *fakeUserRepo) FindByEmail(_ context.Context, email string) (*User, error) {
	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (f *fakeUserRepo) FindByUsername(_ context.Context, username string) (*User, error) {
	for _, user := range f.users {
		if user.Username == username {
			return user, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (f *fakeUserRepo) Create(_ context.Context, user *User) error {
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) MarkVerified(_ context.Context, userID string) error {
	user, ok := f.users[userID]
	if !ok {
		return apperr.NotFound("User")
	}
	user.IsVerified = true
	return nil
}

func (f *fakeUserRepo) UpdatePassword(_ context.Context, userID, newHash string) error {
	user, ok := f.users[userID]
	if !ok {
		return apperr.NotFound("User")
	}
	user.PasswordHash = newHash
	return nil
}

type fakeSessionRepo struct {
	sessions map[string]*Session // keyed by UserID; at most one per user
	storeErr error
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*Session)}
}

func (f *fakeSessionRepo) Store(_ context.Context, session *Session, onReplace func(old *Session) error) error {
	if f.storeErr != nil {
		return f.storeErr
	}
	if old, exists := f.sessions[session.UserID]; exists && onReplace != nil {
		if err := onReplace(old); err != nil {
			// Mirror the transactional contract: the old session survives.
			return err
		}
	}
	f.sessions[session.UserID] = session
	return nil
}

func (f *fakeSessionRepo) IsValid(_ context.Context, userID, sessionID string) (bool, error) {
	session, ok := f.sessions[userID]
	return ok && session.SessionID == sessionID && !session.IsExpired(), nil
}

func (f *fakeSessionRepo) IsValidRefreshToken(_ context.Context, userID, refreshToken string) (bool, error) {
	session, ok := f.sessions[userID]
	return ok && session.RefreshToken == refreshToken && !session.IsExpired(), nil
}

func (f *fakeSessionRepo) Find(_ context.Context, userID string) (*Session, error) {
	if session, ok := f.sessions[userID]; ok {
		return session, nil
	}
	return nil, apperr.NotFound("Session")
}

func (f *fakeSessionRepo) Remove(_ context.Context, userID string) error {
	delete(f.sessions, userID)
	return nil
}

type fakeRevocations struct {
	revoked   map[string]bool
	revokeErr error
}

func newFakeRevocations() *fakeRevocations {
	return &fakeRevocations{revoked: make(map[string]bool)}
}

func (f *fakeRevocations) Revoke(_ context.Context, token string, ttl time.Duration) error {
	if f.revokeErr != nil {
		return f.revokeErr
	}
	if ttl > 0 {
		f.revoked[token] = true
	}
	return nil
}

func (f *fakeRevocations) IsRevoked(_ context.Context, token string) (bool, error) {
	return f.revoked[token], nil
}

type fakeCodes struct {
	verify map[string]string // userID -> code
	reset  map[string]string
}

func newFakeCodes() *fakeCodes {
	return &fakeCodes{verify: make(map[string]string), reset: make(map[string]string)}
}

func (f *fakeCodes) SetVerifyCode(_ context.Context, userID, code string, _ time.Duration) error {
	f.verify[userID] = code
	return nil
}

func (f *fakeCodes) ConsumeVerifyCode(_ context.Context, userID, code string) (bool, error) {
	if stored, ok := f.verify[userID]; ok && stored == code {
		delete(f.verify, userID)
		return true, nil
	}
	return false, nil
}

func (f *fakeCodes) SetResetCode(_ context.Context, userID, code string, _ time.Duration) error {
	f.reset[userID] = code
	return nil
}

func (f *fakeCodes) ConsumeResetCode(_ context.Context, userID, code string) (bool, error) {
	if stored, ok := f.reset[userID]; ok && stored == code {
		delete(f.reset, userID)
		return true, nil
	}
	return false, nil
}

type fakeGoogle struct {
	identity *GoogleIdentity
	err      error
}

func (f *fakeGoogle) VerifyIDToken(_ context.Context, _ string) (*GoogleIdentity, error) {
	return f.identity, f.err
}

func (f *fakeGoogle) ExchangeCode(_ context.Context, _ string) (*GoogleIdentity, error) {
	return f.identity, f.err
}

// # Test Harness

type harness struct {
	service     *Service
	users       *fakeUserRepo
	sessions    *fakeSessionRepo
	revocations *fakeRevocations
	codes       *fakeCodes
	google      *fakeGoogle
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	tokens, err := sec.NewTokenService("test-secret-key", "audira.fm", time.Hour, 24*time.Hour)
	require.NoError(t, err)

	h := &harness{
		users:       newFakeUserRepo(),
		sessions:    newFakeSessionRepo(),
		revocations: newFakeRevocations(),
		codes:       newFakeCodes(),
		google:      &fakeGoogle{},
	}
	h.service = NewService(
		h.users, h.sessions, h.revocations, h.codes, tokens, h.google,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	return h
}

// registerVerified creates a confirmed account ready for login tests.
func (h *harness) registerVerified(t *testing.T, email, username, password string) *User {
	t.Helper()

	user, err := h.service.Register(context.Background(), RegisterInput{
		Email:    email,
		Username: username,
		Password: password,
	})
	require.NoError(t, err)
	require.NoError(t, h.users.MarkVerified(context.Background(), user.ID))
	return user
}

// # Registration & Verification

func TestRegister_CreatesUnverifiedAccountWithCode(t *testing.T) {
	h := newHarness(t)

	user, err := h.service.Register(context.Background(), RegisterInput{
		Email:    "lena@example.com",
		Username: "lena",
		Password: "listening123",
	})
	require.NoError(t, err)

	assert.False(t, user.IsVerified)
	assert.NotEmpty(t, user.ID)
	assert.NotEqual(t, "listening123", user.PasswordHash, "password must be hashed")

	code := h.codes.verify[user.ID]
	assert.Len(t, code, 6)
}

func TestRegister_RejectsDuplicates(t *testing.T) {
	h := newHarness(t)
	h.registerVerified(t, "lena@example.com", "lena", "listening123")

	_, err := h.service.Register(context.Background(), RegisterInput{
		Email:    "lena@example.com",
		Username: "other",
		Password: "listening123",
	})
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", apperr.As(err).Code)

	_, err = h.service.Register(context.Background(), RegisterInput{
		Email:    "other@example.com",
		Username: "lena",
		Password: "listening123",
	})
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", apperr.As(err).Code)
}

func TestVerifyEmail(t *testing.T) {
	h := newHarness(t)

	user, err := h.service.Register(context.Background(), RegisterInput{
		Email:    "lena@example.com",
		Username: "lena",
		Password: "listening123",
	})
	require.NoError(t, err)
	code := h.codes.verify[user.ID]

	t.Run("wrong code rejected", func(t *testing.T) {
		_, err := h.service.VerifyEmail(context.Background(), "lena@example.com", "000000")
		require.Error(t, err)
		assert.Equal(t, "UNAUTHORIZED", apperr.As(err).Code)
	})

	t.Run("correct code grants first session", func(t *testing.T) {
		pair, err := h.service.VerifyEmail(context.Background(), "lena@example.com", code)
		require.NoError(t, err)

		assert.True(t, pair.User.IsVerified)
		assert.NotEmpty(t, pair.AccessToken)
		assert.NotEmpty(t, pair.RefreshToken)
		assert.Contains(t, h.sessions.sessions, user.ID)
	})

	t.Run("code is single-use", func(t *testing.T) {
		_, err := h.service.VerifyEmail(context.Background(), "lena@example.com", code)
		require.Error(t, err)
	})
}

// # Login & Single-Session Policy

func TestLogin(t *testing.T) {
	h := newHarness(t)
	h.registerVerified(t, "lena@example.com", "lena", "listening123")

	t.Run("by email", func(t *testing.T) {
		pair, err := h.service.Login(context.Background(), LoginInput{Login: "lena@example.com", Password: "listening123"})
		require.NoError(t, err)
		assert.NotEmpty(t, pair.AccessToken)
	})

	t.Run("by username", func(t *testing.T) {
		_, err := h.service.Login(context.Background(), LoginInput{Login: "lena", Password: "listening123"})
		require.NoError(t, err)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := h.service.Login(context.Background(), LoginInput{Login: "lena", Password: "nope-nope-nope"})
		require.Error(t, err)
		assert.Equal(t, "UNAUTHORIZED", apperr.As(err).Code)
	})

	t.Run("unknown account", func(t *testing.T) {
		_, err := h.service.Login(context.Background(), LoginInput{Login: "ghost", Password: "listening123"})
		require.Error(t, err)
		assert.Equal(t, "UNAUTHORIZED", apperr.As(err).Code)
	})
}

func TestLogin_UnverifiedAccountRejected(t *testing.T) {
	h := newHarness(t)

	_, err := h.service.Register(context.Background(), RegisterInput{
		Email:    "lena@example.com",
		Username: "lena",
		Password: "listening123",
	})
	require.NoError(t, err)

	_, err = h.service.Login(context.Background(), LoginInput{Login: "lena", Password: "listening123"})
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", apperr.As(err).Code)
}

func TestLogin_SecondDeviceDisplacesFirst(t *testing.T) {
	h := newHarness(t)
	user := h.registerVerified(t, "lena@example.com", "lena", "listening123")

	first, err := h.service.Login(context.Background(), LoginInput{Login: "lena", Password: "listening123"})
	require.NoError(t, err)

	second, err := h.service.Login(context.Background(), LoginInput{Login: "lena", Password: "listening123"})
	require.NoError(t, err)

	// The first device's refresh token must be blacklisted before the new
	// session goes live.
	assert.True(t, h.revocations.revoked[first.RefreshToken])
	assert.False(t, h.revocations.revoked[second.RefreshToken])

	// Only the second session remains authoritative.
	assert.Equal(t, second.RefreshToken, h.sessions.sessions[user.ID].RefreshToken)

	// The first device's refresh token no longer matches the session.
	valid, err := h.sessions.IsValidRefreshToken(context.Background(), user.ID, first.RefreshToken)
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestLogin_FailsWhenOldTokenCannotBeBlacklisted(t *testing.T) {
	h := newHarness(t)
	user := h.registerVerified(t, "lena@example.com", "lena", "listening123")

	first, err := h.service.Login(context.Background(), LoginInput{Login: "lena", Password: "listening123"})
	require.NoError(t, err)

	// Registry down: the replacement must fail closed and keep the old session.
	h.revocations.revokeErr = errors.New("redis: connection refused")

	_, err = h.service.Login(context.Background(), LoginInput{Login: "lena", Password: "listening123"})
	require.Error(t, err)
	assert.Equal(t, first.RefreshToken, h.sessions.sessions[user.ID].RefreshToken)
}

// # Google Sign-In

func TestGoogleLogin(t *testing.T) {
	h := newHarness(t)

	t.Run("provisions verified account on first sign-in", func(t *testing.T) {
		h.google.identity = &GoogleIdentity{
			Subject:       "google-sub-1",
			Email:         "lena@gmail.com",
			EmailVerified: true,
			Name:          "Lena",
		}

		pair, err := h.service.GoogleLogin(context.Background(), GoogleLoginInput{IDToken: "fake-id-token"})
		require.NoError(t, err)

		assert.True(t, pair.User.IsVerified)
		assert.Equal(t, "lena@gmail.com", pair.User.Email)
		assert.Empty(t, pair.User.PasswordHash)
	})

	t.Run("links existing account by email", func(t *testing.T) {
		before := len(h.users.users)

		_, err := h.service.GoogleLogin(context.Background(), GoogleLoginInput{IDToken: "fake-id-token"})
		require.NoError(t, err)
		assert.Len(t, h.users.users, before, "no duplicate account")
	})

	t.Run("rejects unverified google email", func(t *testing.T) {
		h.google.identity = &GoogleIdentity{Email: "spoof@gmail.com", EmailVerified: false}

		_, err := h.service.GoogleLogin(context.Background(), GoogleLoginInput{IDToken: "fake-id-token"})
		require.Error(t, err)
	})

	t.Run("requires a credential", func(t *testing.T) {
		_, err := h.service.GoogleLogin(context.Background(), GoogleLoginInput{})
		require.Error(t, err)
		assert.Equal(t, "VALIDATION_ERROR", apperr.As(err).Code)
	})
}

// # Token Refresh

func TestRefresh(t *testing.T) {
	h := newHarness(t)
	h.registerVerified(t, "lena@example.com", "lena", "listening123")

	pair, err := h.service.Login(context.Background(), LoginInput{Login: "lena", Password: "listening123"})
	require.NoError(t, err)

	t.Run("valid refresh issues new access token", func(t *testing.T) {
		refreshed, err := h.service.Refresh(context.Background(), pair.RefreshToken)
		require.NoError(t, err)

		assert.NotEmpty(t, refreshed.AccessToken)
		// The refresh token is NOT rotated; the session continues.
		assert.Equal(t, pair.RefreshToken, refreshed.RefreshToken)
	})

	t.Run("access token cannot refresh", func(t *testing.T) {
		_, err := h.service.Refresh(context.Background(), pair.AccessToken)
		require.Error(t, err)
		assert.Equal(t, "UNAUTHORIZED", apperr.As(err).Code)
	})

	t.Run("garbage token rejected", func(t *testing.T) {
		_, err := h.service.Refresh(context.Background(), "not.a.token")
		require.Error(t, err)
	})

	t.Run("revoked refresh token rejected", func(t *testing.T) {
		h.revocations.revoked[pair.RefreshToken] = true
		defer delete(h.revocations.revoked, pair.RefreshToken)

		_, err := h.service.Refresh(context.Background(), pair.RefreshToken)
		require.Error(t, err)
		assert.Equal(t, "TOKEN_REVOKED", apperr.As(err).Code)
	})

	t.Run("displaced session cannot refresh", func(t *testing.T) {
		// A login on another device replaces the session.
		_, err := h.service.Login(context.Background(), LoginInput{Login: "lena", Password: "listening123"})
		require.NoError(t, err)

		_, err = h.service.Refresh(context.Background(), pair.RefreshToken)
		require.Error(t, err)
		assert.Equal(t, "TOKEN_REVOKED", apperr.As(err).Code, "displacement blacklists the old refresh token")
	})
}

// # Logout

func TestLogout(t *testing.T) {
	h := newHarness(t)
	user := h.registerVerified(t, "lena@example.com", "lena", "listening123")

	pair, err := h.service.Login(context.Background(), LoginInput{Login: "lena", Password: "listening123"})
	require.NoError(t, err)

	require.NoError(t, h.service.Logout(context.Background(), user.ID, pair.AccessToken))

	// Both tokens are dead and the session row is gone.
	assert.True(t, h.revocations.revoked[pair.AccessToken])
	assert.True(t, h.revocations.revoked[pair.RefreshToken])
	assert.NotContains(t, h.sessions.sessions, user.ID)

	// Logging out again is a no-op, not an error.
	assert.NoError(t, h.service.Logout(context.Background(), user.ID, pair.AccessToken))
}

// # Password Reset

func TestPasswordReset(t *testing.T) {
	h := newHarness(t)
	user := h.registerVerified(t, "lena@example.com", "lena", "oldpassword1")

	_, err := h.service.Login(context.Background(), LoginInput{Login: "lena", Password: "oldpassword1"})
	require.NoError(t, err)

	t.Run("unknown email does not leak", func(t *testing.T) {
		assert.NoError(t, h.service.ForgotPassword(context.Background(), "ghost@example.com"))
	})

	require.NoError(t, h.service.ForgotPassword(context.Background(), "lena@example.com"))
	code := h.reset(t, user.ID)

	t.Run("wrong code rejected", func(t *testing.T) {
		err := h.service.ResetPassword(context.Background(), "lena@example.com", "000000", "newpassword1")
		require.Error(t, err)
	})

	t.Run("successful reset ends the active session", func(t *testing.T) {
		require.NoError(t, h.service.ResetPassword(context.Background(), "lena@example.com", code, "newpassword1"))

		assert.NotContains(t, h.sessions.sessions, user.ID)

		_, err := h.service.Login(context.Background(), LoginInput{Login: "lena", Password: "oldpassword1"})
		require.Error(t, err, "old password must stop working")

		_, err = h.service.Login(context.Background(), LoginInput{Login: "lena", Password: "newpassword1"})
		require.NoError(t, err)
	})
}

func (h *harness) reset(t *testing.T, userID string) string {
	t.Helper()
	code, ok := h.codes.reset[userID]
	require.True(t, ok)
	return code
}
