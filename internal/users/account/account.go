// Copyright (c) 2026 Audira. All rights reserved.
// Author: contact@audira.fm

// Package account covers the authenticated user's own profile surface:
// profile reads, the per-user content encryption key, and the subscription
// flag consumed by playback gating.
package account

import (
	"time"
)

// Profile is the user-facing view of an account. It never carries the
// password hash or the content key; the key has its own endpoint.
type Profile struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Username     string     `json:"username"`
	DisplayName  string     `json:"display_name"`
	IsVerified   bool       `json:"is_verified"`
	IsSubscribed bool       `json:"is_subscribed"`
	SubscribedAt *time.Time `json:"subscribed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}
