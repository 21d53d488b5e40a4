// Copyright (c) 2026 Audira. All rights reserved.
// Author: contact@audira.fm

package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/audira/audira/internal/platform/apperr"
	"github.com/audira/audira/internal/platform/postgres"
)

// PostgresRepository implements the account Repository using pgx.
type PostgresRepository struct {
	db postgres.DB
}

// NewRepository creates a new PostgreSQL implementation of the account Repository.
func NewRepository(db postgres.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// FindProfile retrieves the profile view of an account.
func (repository *PostgresRepository) FindProfile(ctx context.Context, userID string) (*Profile, error) {
	const query = `
		SELECT id, email, username, displayname, isverified, issubscribed, subscribedat, createdat
		FROM users.account
		WHERE id = $1`

	profile := &Profile{}
	err := repository.db.QueryRow(ctx, query, userID).Scan(
		&profile.ID,
		&profile.Email,
		&profile.Username,
		&profile.DisplayName,
		&profile.IsVerified,
		&profile.IsSubscribed,
		&profile.SubscribedAt,
		&profile.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("postgres_account_repo_find_profile_failed: %w", err)
	}

	return profile, nil
}

// ContentKey returns the stored key, or "" when none exists yet.
func (repository *PostgresRepository) ContentKey(ctx context.Context, userID string) (string, error) {
	const query = `SELECT aeskey FROM users.account WHERE id = $1`

	var key *string
	if err := repository.db.QueryRow(ctx, query, userID).Scan(&key); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperr.NotFound("User")
		}
		return "", fmt.Errorf("postgres_account_repo_content_key_failed: %w", err)
	}

	if key == nil {
		return "", nil
	}
	return *key, nil
}

/*
SetContentKeyIfAbsent persists the key only if the account has none.

Description:

	The guarded UPDATE makes the write race-safe without an explicit lock:
	only the first writer's WHERE clause matches, every later writer's
	update is a no-op. The follow-up SELECT returns whichever key actually
	won, so concurrent callers all hand the client the same key. A key,
	once set, is immutable.
*/
func (repository *PostgresRepository) SetContentKeyIfAbsent(ctx context.Context, userID, key string) (string, error) {
	const update = `UPDATE users.account SET aeskey = $2, updatedat = NOW() WHERE id = $1 AND aeskey IS NULL`

	if _, err := repository.db.Exec(ctx, update, userID, key); err != nil {
		return "", fmt.Errorf("postgres_account_repo_set_content_key_failed: %w", err)
	}

	stored, err := repository.ContentKey(ctx, userID)
	if err != nil {
		return "", err
	}
	if stored == "" {
		return "", apperr.NotFound("User")
	}

	return stored, nil
}

// IsSubscribed reports the account's current subscription flag.
func (repository *PostgresRepository) IsSubscribed(ctx context.Context, userID string) (bool, error) {
	const query = `SELECT issubscribed FROM users.account WHERE id = $1`

	var subscribed bool
	if err := repository.db.QueryRow(ctx, query, userID).Scan(&subscribed); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, apperr.NotFound("User")
		}
		return false, fmt.Errorf("postgres_account_repo_is_subscribed_failed: %w", err)
	}

	return subscribed, nil
}
