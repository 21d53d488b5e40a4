// Copyright (c) 2026 Audira. All rights reserved.
// Author: contact@audira.fm

package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/audira/audira/internal/platform/apperr"
	"github.com/audira/audira/internal/platform/constants"
	"github.com/audira/audira/internal/platform/sec"
	"github.com/audira/audira/pkg/slug"
	"github.com/audira/audira/pkg/uuid"
)

// TokenProvider defines the contract for minting and inspecting session tokens.
type TokenProvider interface {
	// IssueAccessToken creates a short-lived access token bound to a session.
	IssueAccessToken(userID, sessionID string) (string, error)

	// IssueRefreshToken creates a long-lived refresh token bound to a session.
	IssueRefreshToken(userID, sessionID string) (string, error)

	// Verify checks a token's signature and validity.
	Verify(tokenString string) (*sec.SessionClaims, error)

	// Expiry extracts the 'exp' claim even from an already-expired token.
	Expiry(tokenString string) (time.Time, error)
}

// Service implements user authentication use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing, session
// replacement, or token issuance must be reviewed by the security team.
type Service struct {
	userRepository    UserRepository
	sessionRepository SessionRepository
	revocations       RevocationRepository
	codes             CodeRepository
	tokenProvider     TokenProvider
	googleVerifier    IdentityVerifier
	logger            *slog.Logger
}

// NewService constructs a new auth [Service] with necessary dependencies.
//
// googleVerifier may be nil when Google sign-in is not configured; the
// google-login endpoint then rejects every attempt.
func NewService(
	userRepo UserRepository,
	sessionRepo SessionRepository,
	revocations RevocationRepository,
	codes CodeRepository,
	tokenProv TokenProvider,
	googleVerifier IdentityVerifier,
	logger *slog.Logger,
) *Service {
	return &Service{
		userRepository:    userRepo,
		sessionRepository: sessionRepo,
		revocations:       revocations,
		codes:             codes,
		tokenProvider:     tokenProv,
		googleVerifier:    googleVerifier,
		logger:            logger,
	}
}

// # Registration & Verification

// RegisterInput holds the data required to enroll a new listener.
type RegisterInput struct {
	Email       string
	Username    string
	Password    string
	DisplayName string
}

// Register validates, hashes, and persists a brand new user account.
//
// # Business Rules
//   - Emails must be unique.
//   - Usernames must be unique.
//   - The account starts unverified; a 6-digit code is issued for email
//     confirmation. No tokens are granted until the email is verified.
func (service *Service) Register(ctx context.Context, input RegisterInput) (*User, error) {
	// ── 1. Uniqueness Checks ──────────────────────────────────────────────

	// Verify email uniqueness. Return a client-safe Conflict error.
	_, err := service.userRepository.FindByEmail(ctx, input.Email)
	if err == nil {
		return nil, apperr.Conflict("Email is already registered")
	}

	// Verify username uniqueness. Return a client-safe Conflict error.
	_, err = service.userRepository.FindByUsername(ctx, input.Username)
	if err == nil {
		return nil, apperr.Conflict("Username is already taken")
	}

	// ── 2. Security ───────────────────────────────────────────────────────

	// Prevent storing plain-text passwords. Default cost is used for balance
	// between security and CPU utilization during registration spikes.
	hashedPassword, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	// ── 3. Entity Construction ────────────────────────────────────────────

	user := &User{
		ID:           uuid.Must(), // Time-sortable ID to prevent PG index fragmentation.
		Email:        input.Email,
		Username:     input.Username,
		PasswordHash: hashedPassword,
		DisplayName:  input.DisplayName,
		IsVerified:   false,
	}

	// ── 4. Persistence ────────────────────────────────────────────────────

	if err := service.userRepository.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("auth_service_register_failed: %w", err)
	}

	// ── 5. Verification Code Issuance ─────────────────────────────────────

	if err := service.issueVerificationCode(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// issueVerificationCode creates a fresh 6-digit code and stages it for delivery.
func (service *Service) issueVerificationCode(ctx context.Context, user *User) error {
	code, err := sec.GenerateNumericCode(6)
	if err != nil {
		return fmt.Errorf("auth_service_code_generation_failed: %w", err)
	}

	if err := service.codes.SetVerifyCode(ctx, user.ID, code, constants.VerificationCodeTTL); err != nil {
		return fmt.Errorf("auth_service_code_store_failed: %w", err)
	}

	// Mail delivery runs through a separate notification pipeline; the event
	// log is the hand-off point.
	service.logger.InfoContext(ctx, "verification_code_issued",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return nil
}

// VerifyEmail confirms account ownership with the 6-digit code and, on
// success, establishes the user's first session.
func (service *Service) VerifyEmail(ctx context.Context, email, code string) (*TokenPair, error) {
	user, err := service.userRepository.FindByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid verification code")
	}

	ok, err := service.codes.ConsumeVerifyCode(ctx, user.ID, code)
	if err != nil {
		return nil, fmt.Errorf("auth_service_verify_consume_failed: %w", err)
	}
	if !ok {
		return nil, apperr.Unauthorized("Invalid verification code")
	}

	if !user.IsVerified {
		if err := service.userRepository.MarkVerified(ctx, user.ID); err != nil {
			return nil, fmt.Errorf("auth_service_mark_verified_failed: %w", err)
		}
		user.IsVerified = true
	}

	return service.establishSession(ctx, user)
}

// # Login Flows

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	Login    string // Can be Email or Username
	Password string
}

// TokenPair represents a successfully established device session.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user"`
}

// Login validates user credentials and issues a fresh token pair.
//
// # Flow
//  1. Lookup user by login (email or username).
//  2. Verify password hash using Bcrypt.
//  3. Establish the single active session, displacing any previous device.
func (service *Service) Login(ctx context.Context, input LoginInput) (*TokenPair, error) {
	// ── 1. Fetch User Profile ─────────────────────────────────────────────

	// We support flexible login, allowing the user to use either Email or Username.
	user, err := service.userRepository.FindByEmail(ctx, input.Login)
	if err != nil {
		user, err = service.userRepository.FindByUsername(ctx, input.Login)
	}

	// Return generic unauthorized error to prevent username enumeration attacks.
	if err != nil {
		return nil, apperr.Unauthorized("Invalid login credentials")
	}

	// ── 2. Security Verification ──────────────────────────────────────────

	// Prevent timing attacks by always using constant-time comparison in bcrypt.
	if !sec.CheckPasswordHash(input.Password, user.PasswordHash) {
		return nil, apperr.Unauthorized("Invalid login credentials")
	}

	if !user.IsVerified {
		return nil, apperr.Forbidden("Email address has not been verified")
	}

	// ── 3. Session Establishment ──────────────────────────────────────────

	return service.establishSession(ctx, user)
}

// GoogleLoginInput carries one of the two Google sign-in shapes: mobile
// clients send the ID token directly, web clients send the redirect code.
type GoogleLoginInput struct {
	IDToken string
	Code    string
}

// GoogleLogin authenticates via a Google identity, provisioning the account
// on first sign-in.
//
// # Business Rules
//   - Google-attested emails count as verified from the first login.
//   - An existing account with the same email is linked, not duplicated.
func (service *Service) GoogleLogin(ctx context.Context, input GoogleLoginInput) (*TokenPair, error) {
	if service.googleVerifier == nil {
		return nil, apperr.ServiceUnavailable("Google sign-in is not configured")
	}

	// ── 1. Identity Assertion ─────────────────────────────────────────────

	var identity *GoogleIdentity
	var err error

	switch {
	case input.IDToken != "":
		identity, err = service.googleVerifier.VerifyIDToken(ctx, input.IDToken)
	case input.Code != "":
		identity, err = service.googleVerifier.ExchangeCode(ctx, input.Code)
	default:
		return nil, apperr.ValidationError("Either id_token or code is required")
	}
	if err != nil {
		return nil, err
	}

	if identity.Email == "" || !identity.EmailVerified {
		return nil, apperr.Unauthorized("Google account email is not verified")
	}

	// ── 2. Find or Provision ──────────────────────────────────────────────

	user, err := service.userRepository.FindByEmail(ctx, identity.Email)
	if err != nil {
		user = &User{
			ID:          uuid.Must(),
			Email:       identity.Email,
			Username:    service.usernameFromEmail(ctx, identity.Email),
			DisplayName: identity.Name,
			IsVerified:  true, // Google already confirmed ownership of the address.
		}
		if createErr := service.userRepository.Create(ctx, user); createErr != nil {
			return nil, fmt.Errorf("auth_service_google_provision_failed: %w", createErr)
		}

		service.logger.InfoContext(ctx, "google_account_provisioned",
			slog.String("user_id", user.ID),
		)
	}

	// ── 3. Session Establishment ──────────────────────────────────────────

	return service.establishSession(ctx, user)
}

// usernameFromEmail derives a unique, URL-safe username from the email's
// local part, appending a random suffix on collision.
func (service *Service) usernameFromEmail(ctx context.Context, email string) string {
	base := slug.From(strings.SplitN(email, "@", 2)[0])
	if base == "" {
		base = "listener"
	}

	if _, err := service.userRepository.FindByUsername(ctx, base); err != nil {
		return base
	}

	suffix, err := sec.GenerateSecureToken(3)
	if err != nil {
		suffix = uuid.Must()[:6]
	}
	return base + "-" + suffix
}

// # Session Lifecycle

/*
establishSession mints a token pair and makes it the user's only session.

Description:

	The session ID is generated fresh for every login, so tokens from the
	previous device stop matching the stored session immediately. The
	replacement callback blacklists the displaced session's refresh token
	for its remaining lifetime; if that write fails the replacement is
	rolled back and this login fails. Establishing a session must never
	leave a displaced refresh token usable.

Returns:
  - The new [*TokenPair], or an error when signing or storage fails.
*/
func (service *Service) establishSession(ctx context.Context, user *User) (*TokenPair, error) {
	sessionID := uuid.Must()

	accessToken, err := service.tokenProvider.IssueAccessToken(user.ID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("auth_service_access_token_failed: %w", err)
	}

	refreshToken, err := service.tokenProvider.IssueRefreshToken(user.ID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_token_failed: %w", err)
	}

	session := &Session{
		UserID:       user.ID,
		SessionID:    sessionID,
		RefreshToken: refreshToken,
		ExpiresAt:    time.Now().Add(constants.RefreshTokenTTL),
	}

	err = service.sessionRepository.Store(ctx, session, func(old *Session) error {
		return service.blacklistToken(ctx, old.RefreshToken)
	})
	if err != nil {
		return nil, fmt.Errorf("auth_service_session_store_failed: %w", err)
	}

	service.logger.InfoContext(ctx, "session_established",
		slog.String("user_id", user.ID),
		slog.String("session_id", sessionID),
	)

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
	}, nil
}

// blacklistToken revokes a token for exactly its remaining lifetime.
func (service *Service) blacklistToken(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	expiresAt, err := service.tokenProvider.Expiry(token)
	if err != nil {
		// A token we cannot parse cannot authenticate either.
		return nil
	}

	return service.revocations.Revoke(ctx, token, time.Until(expiresAt))
}

// Refresh exchanges a valid refresh token for a fresh access token.
//
// # Flow
//  1. Verify the refresh token's signature, expiry, and type.
//  2. Reject blacklisted tokens.
//  3. Confirm it is still bound to the user's current session.
//  4. Issue a new access token for the SAME session. The refresh token is
//     not rotated; it stays valid until the session ends.
func (service *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	// ── 1. Cryptographic Verification ─────────────────────────────────────

	claims, err := service.tokenProvider.Verify(refreshToken)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid or expired refresh token")
	}
	if claims.TokenType != sec.TokenTypeRefresh {
		return nil, apperr.Unauthorized("Invalid or expired refresh token")
	}

	// ── 2. Revocation Check ───────────────────────────────────────────────

	revoked, err := service.revocations.IsRevoked(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_revocation_check_failed: %w", err)
	}
	if revoked {
		return nil, apperr.TokenRevoked()
	}

	// ── 3. Session Binding ────────────────────────────────────────────────

	valid, err := service.sessionRepository.IsValidRefreshToken(ctx, claims.UserID, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_session_check_failed: %w", err)
	}
	if !valid {
		return nil, apperr.SessionConflict()
	}

	user, err := service.userRepository.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, apperr.Unauthorized("User not found or suspended")
	}

	// ── 4. Access Token Issuance ──────────────────────────────────────────

	accessToken, err := service.tokenProvider.IssueAccessToken(claims.UserID, claims.SessionID)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_access_token_failed: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
	}, nil
}

// Logout ends the user's session and kills both of its tokens.
//
// The access token comes from the request context; the refresh token comes
// from the stored session row. Both are blacklisted for their remaining
// lifetimes before the session row is removed. Logout is idempotent.
func (service *Service) Logout(ctx context.Context, userID, accessToken string) error {
	session, err := service.sessionRepository.Find(ctx, userID)
	if err != nil {
		if apperr.IsAppError(err) {
			// Already logged out elsewhere.
			return nil
		}
		return fmt.Errorf("auth_service_logout_find_failed: %w", err)
	}

	if err := service.blacklistToken(ctx, accessToken); err != nil {
		return fmt.Errorf("auth_service_logout_revoke_access_failed: %w", err)
	}
	if err := service.blacklistToken(ctx, session.RefreshToken); err != nil {
		return fmt.Errorf("auth_service_logout_revoke_refresh_failed: %w", err)
	}

	if err := service.sessionRepository.Remove(ctx, userID); err != nil {
		return fmt.Errorf("auth_service_logout_failed: %w", err)
	}

	service.logger.InfoContext(ctx, "session_ended", slog.String("user_id", userID))
	return nil
}

// # Password Reset

// ForgotPassword issues a reset code without revealing whether the email is
// registered.
func (service *Service) ForgotPassword(ctx context.Context, email string) error {
	user, err := service.userRepository.FindByEmail(ctx, email)
	if err != nil {
		// Respond identically for unknown emails to prevent enumeration.
		return nil
	}

	code, err := sec.GenerateNumericCode(6)
	if err != nil {
		return fmt.Errorf("auth_service_reset_code_generation_failed: %w", err)
	}

	if err := service.codes.SetResetCode(ctx, user.ID, code, constants.ResetCodeTTL); err != nil {
		return fmt.Errorf("auth_service_reset_code_store_failed: %w", err)
	}

	service.logger.InfoContext(ctx, "password_reset_code_issued",
		slog.String("user_id", user.ID),
	)

	return nil
}

// ResetPassword redeems a reset code and replaces the password. The active
// session (if any) is terminated so a potentially compromised device is
// logged out.
func (service *Service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	user, err := service.userRepository.FindByEmail(ctx, email)
	if err != nil {
		return apperr.Unauthorized("Invalid reset code")
	}

	ok, err := service.codes.ConsumeResetCode(ctx, user.ID, code)
	if err != nil {
		return fmt.Errorf("auth_service_reset_consume_failed: %w", err)
	}
	if !ok {
		return apperr.Unauthorized("Invalid reset code")
	}

	hashedPassword, err := sec.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("auth_service_reset_hash_failed: %w", err)
	}

	if err := service.userRepository.UpdatePassword(ctx, user.ID, hashedPassword); err != nil {
		return fmt.Errorf("auth_service_reset_update_failed: %w", err)
	}

	// Kill the active session: whoever held the old password loses access now.
	if session, findErr := service.sessionRepository.Find(ctx, user.ID); findErr == nil {
		_ = service.blacklistToken(ctx, session.RefreshToken)
		if removeErr := service.sessionRepository.Remove(ctx, user.ID); removeErr != nil {
			return fmt.Errorf("auth_service_reset_session_remove_failed: %w", removeErr)
		}
	}

	return nil
}
