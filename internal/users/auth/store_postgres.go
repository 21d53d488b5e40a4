// Copyright (c) 2026 Audira. All rights reserved.
// Author: contact@audira.fm

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/audira/audira/internal/platform/apperr"
	"github.com/audira/audira/internal/platform/postgres"
)

// # User Repository (PostgreSQL)

// PostgresUserRepository implements the UserRepository interface using pgx.
type PostgresUserRepository struct {
	db postgres.DB
}

// NewUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewUserRepository(db postgres.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

const userColumns = `id, email, username, passwordhash, displayname, aeskey, isverified, issubscribed, subscribedat, createdat, updatedat`

func scanUser(row pgx.Row) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.PasswordHash,
		&user.DisplayName,
		&user.AESKey,
		&user.IsVerified,
		&user.IsSubscribed,
		&user.SubscribedAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}

// Create persists a new user record into the users.account table.
func (repository *PostgresUserRepository) Create(ctx context.Context, user *User) error {
	const query = `
		INSERT INTO users.account (
			id, email, username, passwordhash, displayname, isverified, issubscribed, createdat, updatedat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := repository.db.Exec(ctx, query,
		user.ID,
		user.Email,
		user.Username,
		user.PasswordHash,
		user.DisplayName,
		user.IsVerified,
		user.IsSubscribed,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("postgres_user_repo_create_failed: %w", err)
	}

	return nil
}

// FindByID retrieves a user record by its primary key.
func (repository *PostgresUserRepository) FindByID(ctx context.Context, id string) (*User, error) {
	const query = `SELECT ` + userColumns + ` FROM users.account WHERE id = $1`

	user, err := scanUser(repository.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("postgres_user_repo_find_by_id_failed: %w", err)
	}

	return user, nil
}

// FindByEmail retrieves a user record by their unique email address.
func (repository *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	const query = `SELECT ` + userColumns + ` FROM users.account WHERE email = $1`

	user, err := scanUser(repository.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("postgres_user_repo_find_by_email_failed: %w", err)
	}

	return user, nil
}

// FindByUsername retrieves a user record by their unique username.
func (repository *PostgresUserRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	const query = `SELECT ` + userColumns + ` FROM users.account WHERE username = $1`

	user, err := scanUser(repository.db.QueryRow(ctx, query, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("postgres_user_repo_find_by_username_failed: %w", err)
	}

	return user, nil
}

// MarkVerified sets the verification flag after email confirmation.
func (repository *PostgresUserRepository) MarkVerified(ctx context.Context, userID string) error {
	const query = `UPDATE users.account SET isverified = TRUE, updatedat = NOW() WHERE id = $1`

	tag, err := repository.db.Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("postgres_user_repo_mark_verified_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("User")
	}

	return nil
}

// UpdatePassword replaces only the user's password hash.
func (repository *PostgresUserRepository) UpdatePassword(ctx context.Context, userID, newHash string) error {
	const query = `UPDATE users.account SET passwordhash = $2, updatedat = NOW() WHERE id = $1`

	tag, err := repository.db.Exec(ctx, query, userID, newHash)
	if err != nil {
		return fmt.Errorf("postgres_user_repo_update_password_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("User")
	}

	return nil
}

// # Session Repository (PostgreSQL)

// PostgresSessionRepository implements the SessionRepository interface.
//
// The users.session table carries a UNIQUE constraint on userid, which is the
// storage-level enforcement of the single-active-session policy.
type PostgresSessionRepository struct {
	db postgres.DB
}

// NewSessionRepository creates a new PostgreSQL implementation of the SessionRepository.
func NewSessionRepository(db postgres.DB) *PostgresSessionRepository {
	return &PostgresSessionRepository{db: db}
}

/*
Store establishes the session as the user's only active one.

Description:

	Runs inside a single transaction. The user's existing session row (if any)
	is locked with FOR UPDATE so two concurrent logins for one account
	serialize; the loser of the race observes the winner's row and replaces
	it in turn. The onReplace callback runs against the old session before
	the upsert: a failure there rolls the whole replacement back, keeping
	the old session authoritative. The new session must never go live while
	the old session's tokens might still authenticate.

Parameters:
  - session: The new session to persist.
  - onReplace: Invoked with the previous session when one exists. May be nil.

Returns:
  - An error if the transaction, the callback, or the upsert fails.
*/
func (repository *PostgresSessionRepository) Store(ctx context.Context, session *Session, onReplace func(old *Session) error) error {
	tx, err := repository.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres_session_repo_begin_failed: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// 1. Lock the user's current session row, if one exists
	const selectQuery = `
		SELECT userid, sessionid, refreshtoken, expiresat, createdat
		FROM users.session
		WHERE userid = $1
		FOR UPDATE`

	old := &Session{}
	err = tx.QueryRow(ctx, selectQuery, session.UserID).Scan(
		&old.UserID,
		&old.SessionID,
		&old.RefreshToken,
		&old.ExpiresAt,
		&old.CreatedAt,
	)

	switch {
	case err == nil:
		// 2. Invalidate the old session's tokens before replacing it
		if onReplace != nil {
			if callbackErr := onReplace(old); callbackErr != nil {
				return fmt.Errorf("postgres_session_repo_replace_callback_failed: %w", callbackErr)
			}
		}
	case errors.Is(err, pgx.ErrNoRows):
		// First session for this user, nothing to replace.
	default:
		return fmt.Errorf("postgres_session_repo_lock_failed: %w", err)
	}

	// 3. Upsert the new session keyed on userid
	const upsertQuery = `
		INSERT INTO users.session (userid, sessionid, refreshtoken, expiresat, createdat)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (userid) DO UPDATE SET
			sessionid    = EXCLUDED.sessionid,
			refreshtoken = EXCLUDED.refreshtoken,
			expiresat    = EXCLUDED.expiresat,
			createdat    = EXCLUDED.createdat`

	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}

	if _, err := tx.Exec(ctx, upsertQuery,
		session.UserID,
		session.SessionID,
		session.RefreshToken,
		session.ExpiresAt,
		session.CreatedAt,
	); err != nil {
		return fmt.Errorf("postgres_session_repo_upsert_failed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres_session_repo_commit_failed: %w", err)
	}

	return nil
}

// IsValid reports whether the pair matches the user's current unexpired session.
func (repository *PostgresSessionRepository) IsValid(ctx context.Context, userID, sessionID string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM users.session
			WHERE userid = $1 AND sessionid = $2 AND expiresat > NOW()
		)`

	var valid bool
	if err := repository.db.QueryRow(ctx, query, userID, sessionID).Scan(&valid); err != nil {
		return false, fmt.Errorf("postgres_session_repo_is_valid_failed: %w", err)
	}

	return valid, nil
}

// IsValidRefreshToken reports whether the token is bound to the user's current session.
func (repository *PostgresSessionRepository) IsValidRefreshToken(ctx context.Context, userID, refreshToken string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM users.session
			WHERE userid = $1 AND refreshtoken = $2 AND expiresat > NOW()
		)`

	var valid bool
	if err := repository.db.QueryRow(ctx, query, userID, refreshToken).Scan(&valid); err != nil {
		return false, fmt.Errorf("postgres_session_repo_is_valid_refresh_failed: %w", err)
	}

	return valid, nil
}

// Find returns the user's current session.
func (repository *PostgresSessionRepository) Find(ctx context.Context, userID string) (*Session, error) {
	const query = `
		SELECT userid, sessionid, refreshtoken, expiresat, createdat
		FROM users.session
		WHERE userid = $1`

	session := &Session{}
	err := repository.db.QueryRow(ctx, query, userID).Scan(
		&session.UserID,
		&session.SessionID,
		&session.RefreshToken,
		&session.ExpiresAt,
		&session.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Session")
		}
		return nil, fmt.Errorf("postgres_session_repo_find_failed: %w", err)
	}

	return session, nil
}

// Remove deletes the user's session. Deleting a missing row is not an error.
func (repository *PostgresSessionRepository) Remove(ctx context.Context, userID string) error {
	const query = `DELETE FROM users.session WHERE userid = $1`

	if _, err := repository.db.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("postgres_session_repo_remove_failed: %w", err)
	}

	return nil
}
