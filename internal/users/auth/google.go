// Copyright (c) 2026 Audira. All rights reserved.
// Author: contact@audira.fm

package auth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/audira/audira/internal/platform/apperr"
)

// googleIssuer is Google's OIDC discovery endpoint.
const googleIssuer = "https://accounts.google.com"

// GoogleIdentity is the subset of Google ID token claims Audira cares about.
type GoogleIdentity struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// IdentityVerifier abstracts Google sign-in so the service can be tested
// without Google's JWKS endpoint.
type IdentityVerifier interface {
	// VerifyIDToken validates a raw Google ID token (mobile clients send it
	// directly) and returns the asserted identity.
	VerifyIDToken(ctx context.Context, rawIDToken string) (*GoogleIdentity, error)

	// ExchangeCode trades an authorization code for an identity (web clients
	// send the code from the redirect).
	ExchangeCode(ctx context.Context, code string) (*GoogleIdentity, error)
}

// GoogleVerifier implements IdentityVerifier against Google's OIDC endpoints.
type GoogleVerifier struct {
	provider    *oidc.Provider
	oauthConfig oauth2.Config
}

// NewGoogleVerifier performs OIDC discovery against Google and prepares the
// OAuth2 exchange configuration.
func NewGoogleVerifier(ctx context.Context, clientID, clientSecret, redirectURL string) (*GoogleVerifier, error) {
	provider, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		return nil, fmt.Errorf("google_verifier_discovery_failed: %w", err)
	}

	return &GoogleVerifier{
		provider: provider,
		oauthConfig: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
		},
	}, nil
}

// VerifyIDToken validates the token signature, issuer, audience, and expiry
// against Google's published keys, then extracts the identity claims.
func (verifier *GoogleVerifier) VerifyIDToken(ctx context.Context, rawIDToken string) (*GoogleIdentity, error) {
	idToken, err := verifier.provider.
		Verifier(&oidc.Config{ClientID: verifier.oauthConfig.ClientID}).
		Verify(ctx, rawIDToken)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid Google credential")
	}

	identity := &GoogleIdentity{}
	if err := idToken.Claims(identity); err != nil {
		return nil, fmt.Errorf("google_verifier_claims_failed: %w", err)
	}

	return identity, nil
}

// ExchangeCode trades an authorization code for Google tokens and verifies
// the ID token carried in the response.
func (verifier *GoogleVerifier) ExchangeCode(ctx context.Context, code string) (*GoogleIdentity, error) {
	token, err := verifier.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, apperr.Unauthorized("Google code exchange failed")
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, apperr.Unauthorized("Google response carried no identity token")
	}

	return verifier.VerifyIDToken(ctx, rawIDToken)
}
