// Copyright (c) 2026 Audira. All rights reserved.
// Author: contact@audira.fm

// Package auth defines the account entity and the authentication flows of the
// Audira platform.
//
// # Architecture
//
// Entities in this package represent the "Truth" of the system.
// They have no dependencies on outer layers (like databases, APIs, or libraries).
// This makes the core logic highly testable and resilient to technology changes.
package auth

import (
	"time"
)

// User represents a registered listener of the Audira platform.
//
// # Rules
//   - Email is unique and validated.
//   - Username is unique and URL-safe.
//   - PasswordHash is generated via Bcrypt exclusively via the auth Service.
//     It is empty for accounts created through Google sign-in.
//   - IsVerified ensures the user has confirmed their email address. Google
//     accounts are verified from the first login because Google attests the
//     email.
//   - AESKey is the per-user content encryption key. It is generated lazily
//     on first request and immutable afterwards.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"` // Explicitly omitted from JSON for security.
	DisplayName  string     `json:"display_name"`
	AESKey       *string    `json:"-"` // Delivered only via the dedicated content-key endpoint.
	IsVerified   bool       `json:"is_verified"`
	IsSubscribed bool       `json:"is_subscribed"`
	SubscribedAt *time.Time `json:"subscribed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Session represents a user's single active device session.
//
// # Security Concept
//
// Audira enforces ONE active session per account. The session row is keyed by
// UserID with a UNIQUE constraint, so establishing a session from a new device
// replaces the previous row. Every JWT carries the SessionID it was minted
// for; tokens from a replaced session fail the middleware's session check even
// though their signatures remain valid.
type Session struct {
	UserID       string    `json:"user_id"`
	SessionID    string    `json:"session_id"`
	RefreshToken string    `json:"-"` // Needed for blacklisting on replacement. Omitted for security.
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsExpired reports whether the session's refresh window has closed.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
