// Copyright (c) 2026 Audira. All rights reserved.
// Author: contact@audira.fm

/*
Package constants provides centralized, immutable values for the entire platform.

It defines default timeouts, rate limits, and cross-cutting keys that are shared
between different layers of the system.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Rate Limiting: Burst capacities and IP tracking TTLs.
  - Security: JWT issuer and token lifetimes.

Using this package ensures Magic Strings and Magic Numbers are eliminated
from the business logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "audira-api"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	GlobalRequestTimeout = 30 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second
)

// # Rate Limiting

const (
	// DefaultRateLimitRPS is the requests per second allowed per IP.
	DefaultRateLimitRPS = 100.0

	// DefaultRateLimitBurst is the maximum burst allowed for the rate limiter.
	DefaultRateLimitBurst = 150

	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute
)

// # Authentication

const (
	// AuthIssuer is the standard 'iss' claim in JWTs.
	AuthIssuer = "audira.fm"

	// AccessTokenTTL is the lifetime of an access token.
	// Short-lived so a leaked token has a bounded blast radius.
	AccessTokenTTL = 1 * time.Hour

	// RefreshTokenTTL is the lifetime of a refresh token and its session row.
	RefreshTokenTTL = 30 * 24 * time.Hour

	// VerificationCodeTTL is how long a 6-digit email verification code stays valid.
	VerificationCodeTTL = 15 * time.Minute

	// ResetCodeTTL is how long a password reset code stays valid.
	ResetCodeTTL = 1 * time.Hour
)

// # Caching

const (
	// CategoryTreeCacheTTL bounds staleness of the cached category tree.
	// A stale tree only delays a catalog reorganization, never correctness.
	CategoryTreeCacheTTL = 5 * time.Minute

	// SubscriptionCacheTTL bounds staleness of the per-user subscription flag.
	SubscriptionCacheTTL = 60 * time.Second
)

// # HTTP Headers

const (
	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderOrigin        = "Origin"
	HeaderAuthorization = "Authorization"

	// BearerPrefix is the expected scheme prefix on the Authorization header.
	BearerPrefix = "Bearer "
)

// # JSON Field Identifiers

const (
	FieldData    = "data"
	FieldMeta    = "meta"
	FieldError   = "error"
	FieldCode    = "code"
	FieldDetails = "details"
	FieldMessage = "message"
	FieldStatus  = "status"
)

// # Database Schemas

const (
	SchemaUsers     = "users"
	SchemaCatalog   = "catalog"
	SchemaListening = "listening"
)

// # Redis Prefixes (Volatile Key Taxonomy)

const (
	RedisPrefixRevokedToken = "auth:revoked:"
	RedisPrefixVerifyCode   = "auth:verify_code:"
	RedisPrefixResetCode    = "auth:reset_code:"
)
