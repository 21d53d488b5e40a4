// Copyright (c) 2026 Audira. All rights reserved.
// Author: contact@audira.fm

package account

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/audira/audira/internal/platform/apperr"
)

type fakeRepo struct {
	profiles        map[string]*Profile
	keys            map[string]string
	subscribed      map[string]bool
	subscribedReads int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		profiles:   make(map[string]*Profile),
		keys:       make(map[string]string),
		subscribed: make(map[string]bool),
	}
}

func (f *fakeRepo) FindProfile(_ context.Context, userID string) (*Profile, error) {
	if profile, ok := f.profiles[userID]; ok {
		return profile, nil
	}
	return nil, apperr.NotFound("User")
}

func (f *fakeRepo) ContentKey(_ context.Context, userID string) (string, error) {
	return f.keys[userID], nil
}

func (f *fakeRepo) SetContentKeyIfAbsent(_ context.Context, userID, key string) (string, error) {
	if existing, ok := f.keys[userID]; ok && existing != "" {
		return existing, nil
	}
	f.keys[userID] = key
	return key, nil
}

func (f *fakeRepo) IsSubscribed(_ context.Context, userID string) (bool, error) {
	f.subscribedReads++
	return f.subscribed[userID], nil
}

func TestContentKey_LazyAndImmutable(t *testing.T) {
	repo := newFakeRepo()
	repo.subscribed["user-1"] = true
	repo.subscribed["user-2"] = true
	service := NewService(repo)
	ctx := context.Background()

	// No key exists until the first request.
	assert.Empty(t, repo.keys["user-1"])

	first, err := service.ContentKey(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, first, 44, "32 random bytes, base64-encoded")

	// Every later request returns the same key.
	second, err := service.ContentKey(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// Different users get different keys.
	other, err := service.ContentKey(ctx, "user-2")
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestContentKey_RequiresSubscription(t *testing.T) {
	repo := newFakeRepo()
	service := NewService(repo)

	_, err := service.ContentKey(context.Background(), "user-1")
	require.Error(t, err)
	require.NotNil(t, apperr.As(err))
	assert.Equal(t, "FORBIDDEN", apperr.As(err).Code)
	assert.Empty(t, repo.keys["user-1"], "no key may be generated for an unsubscribed account")
}

func TestContentKey_ConcurrentFirstRequestConverges(t *testing.T) {
	repo := newFakeRepo()
	repo.subscribed["user-1"] = true
	service := NewService(repo)

	// Simulate the guarded-update race: a concurrent winner already wrote a
	// key between our read and our write.
	repo.keys["user-1"] = ""
	winner, err := repo.SetContentKeyIfAbsent(context.Background(), "user-1", "winner-key")
	require.NoError(t, err)
	assert.Equal(t, "winner-key", winner)

	got, err := service.ContentKey(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "winner-key", got, "loser must receive the winner's key")
}

func TestIsSubscribed_Cached(t *testing.T) {
	repo := newFakeRepo()
	repo.subscribed["user-1"] = true
	service := NewService(repo)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		subscribed, err := service.IsSubscribed(ctx, "user-1")
		require.NoError(t, err)
		assert.True(t, subscribed)
	}

	assert.Equal(t, 1, repo.subscribedReads, "repeat checks inside the TTL hit the cache")
}
