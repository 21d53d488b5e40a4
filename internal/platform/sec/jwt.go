// Copyright (c) 2026 Audira. All rights reserved.
// Author: contact@audira.fm

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing) from
// the domain logic. It acts as an Infrastructure service injected into the
// Application layer via small interfaces.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token types carried in the "typ" claim. A refresh token must never
// authenticate an API call, and an access token must never mint a new pair.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Verification failure modes. The middleware maps these to distinct 401
// responses so clients can tell "refresh me" apart from "re-login".
var (
	// ErrTokenExpired indicates the signature was valid but 'exp' has passed.
	ErrTokenExpired = errors.New("sec: token expired")

	// ErrTokenInvalid indicates a malformed token, bad signature, or wrong algorithm.
	ErrTokenInvalid = errors.New("sec: token invalid")
)

// SessionClaims represents the payload embedded inside every Audira JWT.
//
// # Why session-bound claims?
//
// The token alone never authenticates a request. The middleware cross-checks
// SessionID against the session store, which is what enforces the
// single-active-session policy: a perfectly signed token from a replaced
// session is rejected.
type SessionClaims struct {
	jwt.RegisteredClaims

	// Custom application claims are abbreviated to keep the JWT payload small.
	UserID    string `json:"uid"`
	SessionID string `json:"sid"`
	TokenType string `json:"typ"`
}

// TokenService handles generation and verification of JWT tokens using HS256.
type TokenService struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenService creates a new TokenService signing with the given shared secret.
func NewTokenService(secret, issuer string, accessTTL, refreshTTL time.Duration) (*TokenService, error) {
	if secret == "" {
		return nil, errors.New("sec: jwt secret must not be empty")
	}

	return &TokenService{
		secret:     []byte(secret),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}, nil
}

// IssueAccessToken creates a short-lived access token bound to a session.
func (service *TokenService) IssueAccessToken(userID, sessionID string) (string, error) {
	return service.issue(userID, sessionID, TokenTypeAccess, service.accessTTL)
}

// IssueRefreshToken creates a long-lived refresh token bound to a session.
func (service *TokenService) IssueRefreshToken(userID, sessionID string) (string, error) {
	return service.issue(userID, sessionID, TokenTypeRefresh, service.refreshTTL)
}

// issue signs a token with the given type and lifetime.
func (service *TokenService) issue(userID, sessionID, tokenType string, timeToLive time.Duration) (string, error) {
	currentTime := time.Now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(timeToLive)),
		},
		UserID:    userID,
		SessionID: sessionID,
		TokenType: tokenType,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(service.secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return signedToken, nil
}

// Verify checks the signature and validity of a JWT string.
//
// # Returns
//   - *SessionClaims on success.
//   - [ErrTokenExpired] if the token is structurally valid but past 'exp'.
//   - [ErrTokenInvalid] for every other failure mode.
func (service *TokenService) Verify(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return service.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// Expiry extracts the 'exp' claim without requiring a fully valid token.
//
// # Usage
//
// The logout flow blacklists tokens for exactly their remaining lifetime,
// which needs the true expiry even when the token is already past 'exp'.
func (service *TokenService) Expiry(tokenString string) (time.Time, error) {
	claims := &SessionClaims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())

	if _, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return service.secret, nil
	}); err != nil {
		return time.Time{}, ErrTokenInvalid
	}

	if claims.ExpiresAt == nil {
		return time.Time{}, ErrTokenInvalid
	}

	return claims.ExpiresAt.Time, nil
}
