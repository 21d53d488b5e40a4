// Copyright (c) 2026 Audira. All rights reserved.
// Author: contact@audira.fm

package auth

import (
	"context"
	"time"
)

// UserRepository defines the data access contract for user accounts.
//
// # Review Process
//
// This interface is placed in a separate file from user.go so entity changes
// and storage-contract changes can be reviewed independently by the team.
//
// # Implementations
//
// The canonical implementation for Audira is PostgreSQL.
type UserRepository interface {
	// FindByID returns the account with the given ID.
	//
	// Returns [apperr.NotFound] if the account does not exist.
	FindByID(ctx context.Context, id string) (*User, error)

	// FindByEmail returns the account with the given email.
	//
	// Returns [apperr.NotFound] if no user is registered with this email.
	FindByEmail(ctx context.Context, email string) (*User, error)

	// FindByUsername returns the account with the given username.
	//
	// Returns [apperr.NotFound] if the username is available.
	FindByUsername(ctx context.Context, username string) (*User, error)

	// Create persists a brand-new user account to the storage.
	//
	// Returns a wrapped error if a unique constraint (email/username) fails.
	Create(ctx context.Context, user *User) error

	// MarkVerified flips the account's verification flag after the user
	// confirms their email.
	MarkVerified(ctx context.Context, userID string) error

	// UpdatePassword replaces only the user's password hash.
	// This is separate from profile updates to prevent accidental overwrites.
	UpdatePassword(ctx context.Context, userID, newHash string) error
}

// SessionRepository defines the data access contract for the single active
// session per account.
//
// # Domain Ownership
//
// This is kept alongside [UserRepository] because sessions are owned entirely
// by the users' domain, despite serving authentication security.
type SessionRepository interface {
	// Store establishes the session as the user's only active one, replacing
	// any previous session atomically.
	//
	// If a previous session exists, onReplace is invoked with it BEFORE the
	// new row is written, inside the same transaction. The callback is where
	// the old session's refresh token gets blacklisted; if it fails the whole
	// replacement is rolled back and the old session stays active. The policy
	// ends the old session only once its tokens are provably dead.
	Store(ctx context.Context, session *Session, onReplace func(old *Session) error) error

	// IsValid reports whether (userID, sessionID) is the user's current
	// active, unexpired session.
	IsValid(ctx context.Context, userID, sessionID string) (bool, error)

	// IsValidRefreshToken reports whether the given refresh token string is
	// the one bound to the user's current active session.
	IsValidRefreshToken(ctx context.Context, userID, refreshToken string) (bool, error)

	// Find returns the user's current session, or [apperr.NotFound].
	Find(ctx context.Context, userID string) (*Session, error)

	// Remove deletes the user's session. Used by logout; idempotent.
	Remove(ctx context.Context, userID string) error
}

// RevocationRepository is the token blacklist.
//
// # Lifetime
//
// Entries carry a TTL equal to the revoked token's remaining validity, so the
// registry self-garbage-collects: once the token would have expired anyway,
// the signature check rejects it and the blacklist entry is no longer needed.
type RevocationRepository interface {
	// Revoke blacklists a token string for the given duration.
	// A non-positive TTL is a no-op: the token is already dead on its own.
	Revoke(ctx context.Context, token string, ttl time.Duration) error

	// IsRevoked reports whether the token has been blacklisted.
	// Errors must propagate: the auth middleware fails closed on them.
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// CodeRepository stores volatile one-time codes for email verification and
// password resets.
type CodeRepository interface {
	// SetVerifyCode stores the email verification code for a user.
	SetVerifyCode(ctx context.Context, userID, code string, ttl time.Duration) error

	// ConsumeVerifyCode checks the code and deletes it on success.
	// Returns false when the code is wrong, expired, or already used.
	ConsumeVerifyCode(ctx context.Context, userID, code string) (bool, error)

	// SetResetCode stores the password reset code for a user.
	SetResetCode(ctx context.Context, userID, code string, ttl time.Duration) error

	// ConsumeResetCode checks the code and deletes it on success.
	ConsumeResetCode(ctx context.Context, userID, code string) (bool, error)
}
