// Copyright (c) 2026 Audira. All rights reserved.
// Author: contact@audira.fm

package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return mock
}

func TestSessionRepo_Store_FirstSession(t *testing.T) {
	mock := newMockDB(t)
	defer mock.Close()
	repo := NewSessionRepository(mock)
	ctx := context.Background()

	session := &Session{
		UserID:       "user-1",
		SessionID:    "session-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().Add(24 * time.Hour),
		CreatedAt:    time.Now(),
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT userid, sessionid, refreshtoken, expiresat, createdat\s+FROM users\.session\s+WHERE userid = \$1\s+FOR UPDATE`).
		WithArgs("user-1").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec(`INSERT INTO users\.session`).
		WithArgs("user-1", "session-1", "refresh-1", session.ExpiresAt, session.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	callbackRan := false
	err := repo.Store(ctx, session, func(*Session) error {
		callbackRan = true
		return nil
	})
	require.NoError(t, err)

	assert.False(t, callbackRan, "no previous session, nothing to replace")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepo_Store_ReplacesAndInvokesCallback(t *testing.T) {
	mock := newMockDB(t)
	defer mock.Close()
	repo := NewSessionRepository(mock)
	ctx := context.Background()

	oldExpiry := time.Now().Add(12 * time.Hour)
	newSession := &Session{
		UserID:       "user-1",
		SessionID:    "session-2",
		RefreshToken: "refresh-2",
		ExpiresAt:    time.Now().Add(24 * time.Hour),
		CreatedAt:    time.Now(),
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT userid, sessionid, refreshtoken, expiresat, createdat\s+FROM users\.session\s+WHERE userid = \$1\s+FOR UPDATE`).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"userid", "sessionid", "refreshtoken", "expiresat", "createdat"}).
			AddRow("user-1", "session-1", "refresh-1", oldExpiry, time.Now().Add(-time.Hour)))
	mock.ExpectExec(`INSERT INTO users\.session`).
		WithArgs("user-1", "session-2", "refresh-2", newSession.ExpiresAt, newSession.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	var replaced *Session
	err := repo.Store(ctx, newSession, func(old *Session) error {
		replaced = old
		return nil
	})
	require.NoError(t, err)

	require.NotNil(t, replaced)
	assert.Equal(t, "session-1", replaced.SessionID)
	assert.Equal(t, "refresh-1", replaced.RefreshToken)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepo_Store_CallbackFailureRollsBack(t *testing.T) {
	mock := newMockDB(t)
	defer mock.Close()
	repo := NewSessionRepository(mock)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT userid, sessionid, refreshtoken, expiresat, createdat\s+FROM users\.session\s+WHERE userid = \$1\s+FOR UPDATE`).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"userid", "sessionid", "refreshtoken", "expiresat", "createdat"}).
			AddRow("user-1", "session-1", "refresh-1", time.Now().Add(time.Hour), time.Now()))
	mock.ExpectRollback()

	err := repo.Store(ctx, &Session{
		UserID:       "user-1",
		SessionID:    "session-2",
		RefreshToken: "refresh-2",
		ExpiresAt:    time.Now().Add(24 * time.Hour),
		CreatedAt:    time.Now(),
	}, func(*Session) error {
		return errors.New("redis: connection refused")
	})

	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepo_IsValid(t *testing.T) {
	mock := newMockDB(t)
	defer mock.Close()
	repo := NewSessionRepository(mock)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("user-1", "session-1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	valid, err := repo.IsValid(ctx, "user-1", "session-1")
	require.NoError(t, err)
	assert.True(t, valid)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("user-1", "session-stale").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	valid, err = repo.IsValid(ctx, "user-1", "session-stale")
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestSessionRepo_Remove_IsIdempotent(t *testing.T) {
	mock := newMockDB(t)
	defer mock.Close()
	repo := NewSessionRepository(mock)
	ctx := context.Background()

	mock.ExpectExec(`DELETE FROM users\.session WHERE userid = \$1`).
		WithArgs("user-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	assert.NoError(t, repo.Remove(ctx, "user-1"))
}
