// Copyright (c) 2026 Audira. All rights reserved.
// Author: contact@audira.fm

package progress

import (
	"context"
	"testing"

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

func TestPlaylistListened_ReadsPlaybackHighWater(t *testing.T) {
	mock := newMockDB(t)
	defer mock.Close()
	repo := NewRepository(mock)
	ctx := context.Background()

	// The non-completed branch must source listening.playback, never the
	// trackprogress resume position.
	mock.ExpectQuery(`LEAST\(COALESCE\(pb\.playedseconds, 0\), t\.durationseconds\)[\s\S]*LEFT JOIN listening\.playback pb`).
		WithArgs("user-1", []string{"book-1"}).
		WillReturnRows(pgxmock.NewRows([]string{"bookid", "sum"}).AddRow("book-1", 1700))

	listened, err := repo.PlaylistListened(ctx, "user-1", []string{"book-1"})
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"book-1": 1700}, listened)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertPlayback_KeepsHighWaterMonotonic(t *testing.T) {
	mock := newMockDB(t)
	defer mock.Close()
	repo := NewRepository(mock)
	ctx := context.Background()

	// GREATEST in the conflict clause is what makes late reports safe.
	mock.ExpectExec(`GREATEST\(listening\.playback\.playedseconds, EXCLUDED\.playedseconds\)`).
		WithArgs("user-1", "book-1", pgxmock.AnyArg(), 300).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.UpsertPlayback(ctx, "user-1", "book-1", nil, 300))
	assert.NoError(t, mock.ExpectationsWereMet())
}
