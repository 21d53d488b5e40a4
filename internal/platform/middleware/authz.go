// Copyright (c) 2026 Audira. All rights reserved.
// Author: contact@audira.fm

package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/audira/audira/internal/platform/apperr"
	"github.com/audira/audira/internal/platform/constants"
	"github.com/audira/audira/internal/platform/ctxutil"
	"github.com/audira/audira/internal/platform/respond"
	"github.com/audira/audira/internal/platform/sec"
)

// # Authentication Contracts

// TokenVerifier checks the cryptographic validity of a bearer token.
type TokenVerifier interface {
	Verify(tokenString string) (*sec.SessionClaims, error)
}

// RevocationChecker answers whether a token string has been blacklisted.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// SessionChecker answers whether a (userID, sessionID) pair is the user's
// current active session.
type SessionChecker interface {
	IsValid(ctx context.Context, userID, sessionID string) (bool, error)
}

// # Authentication Gate

/*
Authenticate validates the bearer token and, on success, attaches the token
claims to the request context.

Description:

	The gate runs in a strict order. Signature and expiry are checked first
	because they are cheap and local. The revocation registry is consulted
	BEFORE the session store: a token blacklisted at logout must be rejected
	as revoked even if the session row it points at still exists. Only then
	is the session claim cross-checked against the store, which is what
	enforces the single-active-session policy.

	Requests without an Authorization header pass through anonymously so
	public routes can share the same chain. RequireAuth turns anonymity
	into a 401 on protected routes.

	Any infrastructure failure (revocation registry or session store
	unreachable) rejects the request. Authentication fails closed.

Parameters:
  - verifier: cryptographic token verification (HS256 signature, expiry, claims).
  - revocations: the token blacklist, typically Redis-backed.
  - sessions: the active-session store, typically Postgres-backed.

Returns:
  - A middleware that injects *sec.SessionClaims and the raw access token
    into the request context for downstream handlers.
*/
func Authenticate(verifier TokenVerifier, revocations RevocationChecker, sessions SessionChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			// 1. Extract the bearer token (absence is not an error here)
			header := request.Header.Get(constants.HeaderAuthorization)
			if header == "" {
				next.ServeHTTP(writer, request)
				return
			}

			if !strings.HasPrefix(header, constants.BearerPrefix) {
				respond.Error(writer, request, apperr.Unauthorized("Malformed Authorization header"))
				return
			}
			tokenString := strings.TrimPrefix(header, constants.BearerPrefix)

			// 2. Verify signature, expiry, and claim structure
			claims, err := verifier.Verify(tokenString)
			if err != nil {
				if errors.Is(err, sec.ErrTokenExpired) {
					respond.Error(writer, request, apperr.TokenExpired())
					return
				}
				respond.Error(writer, request, apperr.Unauthorized("Invalid token"))
				return
			}

			// 3. Only access tokens authenticate API calls
			if claims.TokenType != sec.TokenTypeAccess {
				respond.Error(writer, request, apperr.Unauthorized("Invalid token type"))
				return
			}

			// 4. A token without a session binding can never match the
			// store; reject it before spending a round trip on either check
			if claims.SessionID == "" {
				respond.Error(writer, request, apperr.Unauthorized("Token has no session binding"))
				return
			}

			// 5. Revocation check runs before the session match
			revoked, err := revocations.IsRevoked(request.Context(), tokenString)
			if err != nil {
				respond.Error(writer, request, apperr.ServiceUnavailable("Authentication backend unavailable"))
				return
			}
			if revoked {
				respond.Error(writer, request, apperr.TokenRevoked())
				return
			}

			// 6. Cross-check the session claim against the active session
			active, err := sessions.IsValid(request.Context(), claims.UserID, claims.SessionID)
			if err != nil {
				respond.Error(writer, request, apperr.ServiceUnavailable("Authentication backend unavailable"))
				return
			}
			if !active {
				respond.Error(writer, request, apperr.SessionConflict())
				return
			}

			// 7. Attach identity and raw token for downstream handlers
			ctx := ctxutil.WithAuthUser(request.Context(), claims)
			ctx = ctxutil.WithAccessToken(ctx, tokenString)

			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// RequireAuth rejects anonymous requests on protected route groups.
func RequireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if ctxutil.GetAuthUser(request.Context()) == nil {
				respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
				return
			}
			next.ServeHTTP(writer, request)
		})
	}
}

// RequireOwner ensures the authenticated user matches the route's user ID
// parameter. Cross-user access is a 403, not a 404, so clients can tell
// "not yours" apart from "does not exist".
func RequireOwner(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			claims := ctxutil.GetAuthUser(request.Context())
			if claims == nil {
				respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
				return
			}

			if chi.URLParam(request, param) != claims.UserID {
				respond.Error(writer, request, apperr.Forbidden("You do not have access to this resource"))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}
