// Copyright (c) 2026 Audira. All rights reserved.
// Author: contact@audira.fm

package account

import (
	"context"
	"fmt"

	"github.com/audira/audira/internal/platform/apperr"
	"github.com/audira/audira/internal/platform/cache"
	"github.com/audira/audira/internal/platform/constants"
	"github.com/audira/audira/internal/platform/sec"
)

// Service implements profile and content-key use cases.
type Service struct {
	repository Repository

	// subscriptionCache bounds database reads for the subscription flag,
	// which gates content-key access.
	subscriptionCache *cache.TTL[string, bool]
}

// NewService constructs a new account [Service].
func NewService(repository Repository) *Service {
	return &Service{
		repository:        repository,
		subscriptionCache: cache.NewTTL[string, bool](constants.SubscriptionCacheTTL),
	}
}

// GetProfile returns the profile view of an account.
func (service *Service) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	return service.repository.FindProfile(ctx, userID)
}

// ContentKey returns the user's content encryption key, generating it on
// first request.
//
// # Business Rules
//   - Only subscribed accounts may stream encrypted audio, so the key is
//     withheld without an active subscription.
//   - The key is generated lazily: accounts that never stream encrypted
//     audio never get one.
//   - Once set, the key is immutable. Re-keying would orphan every download
//     the client already decrypted with the old key.
func (service *Service) ContentKey(ctx context.Context, userID string) (string, error) {
	subscribed, err := service.IsSubscribed(ctx, userID)
	if err != nil {
		return "", err
	}
	if !subscribed {
		return "", apperr.Forbidden("An active subscription is required")
	}

	existing, err := service.repository.ContentKey(ctx, userID)
	if err != nil {
		return "", err
	}
	if existing != "" {
		return existing, nil
	}

	fresh, err := sec.GenerateContentKey()
	if err != nil {
		return "", fmt.Errorf("account_service_key_generation_failed: %w", err)
	}

	// The repository resolves the first-request race; the returned key may
	// be a concurrent winner's, not ours.
	return service.repository.SetContentKeyIfAbsent(ctx, userID, fresh)
}

// IsSubscribed reports whether the account has an active subscription.
// Results are cached briefly; a just-expired subscription may be honored
// for up to the cache TTL.
func (service *Service) IsSubscribed(ctx context.Context, userID string) (bool, error) {
	if subscribed, found := service.subscriptionCache.Get(userID); found {
		return subscribed, nil
	}

	subscribed, err := service.repository.IsSubscribed(ctx, userID)
	if err != nil {
		return false, err
	}

	service.subscriptionCache.Set(userID, subscribed)
	return subscribed, nil
}
