// Copyright (c) 2026 Audira. All rights reserved.
// Author: contact@audira.fm

package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/audira/audira/internal/platform/constants"
)

// # Revocation Registry (Redis)

// RedisRevocationRepository implements the token blacklist on Redis.
//
// # Key Design
//
// Raw JWTs are long; keys store the SHA-256 of the token instead. Hashing
// also keeps live credentials out of Redis snapshots and monitoring tools.
// Every key carries a TTL equal to the token's remaining lifetime, so the
// registry never needs a cleanup job.
type RedisRevocationRepository struct {
	client *redis.Client
}

// NewRevocationRepository creates a Redis-backed token blacklist.
func NewRevocationRepository(client *redis.Client) *RedisRevocationRepository {
	return &RedisRevocationRepository{client: client}
}

func revocationKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return constants.RedisPrefixRevokedToken + hex.EncodeToString(sum[:])
}

// Revoke blacklists a token for its remaining lifetime.
func (repository *RedisRevocationRepository) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	// An already-expired token cannot authenticate; storing it would only
	// create a key with no expiry.
	if ttl <= 0 {
		return nil
	}

	if err := repository.client.Set(ctx, revocationKey(token), "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis_revocation_repo_revoke_failed: %w", err)
	}

	return nil
}

// IsRevoked reports whether the token is blacklisted. Errors propagate so the
// middleware can fail closed.
func (repository *RedisRevocationRepository) IsRevoked(ctx context.Context, token string) (bool, error) {
	err := repository.client.Get(ctx, revocationKey(token)).Err()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis_revocation_repo_lookup_failed: %w", err)
	}

	return true, nil
}

// # One-Time Codes (Redis)

// RedisCodeRepository stores email verification and password reset codes.
// Codes expire on their own via key TTLs.
type RedisCodeRepository struct {
	client *redis.Client
}

// NewCodeRepository creates a Redis-backed one-time code store.
func NewCodeRepository(client *redis.Client) *RedisCodeRepository {
	return &RedisCodeRepository{client: client}
}

// SetVerifyCode stores the email verification code for a user.
func (repository *RedisCodeRepository) SetVerifyCode(ctx context.Context, userID, code string, ttl time.Duration) error {
	key := constants.RedisPrefixVerifyCode + userID
	if err := repository.client.Set(ctx, key, code, ttl).Err(); err != nil {
		return fmt.Errorf("redis_code_repo_set_verify_failed: %w", err)
	}
	return nil
}

// ConsumeVerifyCode checks the verification code and deletes it on success.
func (repository *RedisCodeRepository) ConsumeVerifyCode(ctx context.Context, userID, code string) (bool, error) {
	return repository.consume(ctx, constants.RedisPrefixVerifyCode+userID, code)
}

// SetResetCode stores the password reset code for a user.
func (repository *RedisCodeRepository) SetResetCode(ctx context.Context, userID, code string, ttl time.Duration) error {
	key := constants.RedisPrefixResetCode + userID
	if err := repository.client.Set(ctx, key, code, ttl).Err(); err != nil {
		return fmt.Errorf("redis_code_repo_set_reset_failed: %w", err)
	}
	return nil
}

// ConsumeResetCode checks the reset code and deletes it on success.
func (repository *RedisCodeRepository) ConsumeResetCode(ctx context.Context, userID, code string) (bool, error) {
	return repository.consume(ctx, constants.RedisPrefixResetCode+userID, code)
}

// consume compares a stored code and deletes the key only when it matches.
// The compare-and-delete is a single Lua script so two concurrent attempts
// cannot both succeed with the same code.
func (repository *RedisCodeRepository) consume(ctx context.Context, key, code string) (bool, error) {
	const script = `
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			redis.call("DEL", KEYS[1])
			return 1
		end
		return 0`

	result, err := repository.client.Eval(ctx, script, []string{key}, code).Int()
	if err != nil {
		return false, fmt.Errorf("redis_code_repo_consume_failed: %w", err)
	}

	return result == 1, nil
}
