// Copyright (c) 2026 Audira. All rights reserved.
// Author: contact@audira.fm

package account

import (
	"context"
)

// Repository defines the data access contract for profile reads and the
// content key lifecycle.
type Repository interface {
	// FindProfile returns the profile view of an account.
	//
	// Returns [apperr.NotFound] if the account does not exist.
	FindProfile(ctx context.Context, userID string) (*Profile, error)

	// ContentKey returns the user's stored content key, or "" when none has
	// been generated yet.
	ContentKey(ctx context.Context, userID string) (string, error)

	// SetContentKeyIfAbsent writes the key only when the column is still
	// NULL, then returns the authoritative stored value. Two concurrent
	// first requests both receive the same winner's key.
	SetContentKeyIfAbsent(ctx context.Context, userID, key string) (string, error)

	// IsSubscribed reports the account's current subscription flag.
	IsSubscribed(ctx context.Context, userID string) (bool, error)
}
