// Copyright (c) 2026 Audira. All rights reserved.
// Author: contact@audira.fm

package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/audira/audira/internal/platform/ctxutil"
	requestutil "github.com/audira/audira/internal/platform/request"
	"github.com/audira/audira/internal/platform/respond"
	"github.com/audira/audira/internal/platform/validate"
)

// Handler implements authentication-related HTTP endpoints.
//
// # Scope
//
// This handler manages everything related to the user lifecycle entry points
// (Registration, Verification, Login, Token Refresh, Password Reset).
type Handler struct {
	authService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{authService: service}
}

// Routes returns a [chi.Router] configured with authentication-specific routes.
//
// # Endpoints
//   - POST /register        : Creates a new unverified account.
//   - POST /verify-email    : Redeems the 6-digit code, issues first tokens.
//   - POST /login           : Authenticates and returns a token pair.
//   - POST /google-login    : Authenticates via a Google identity.
//   - POST /refresh-token   : Exchanges a refresh token for a new access token.
//   - POST /logout          : Ends the active session (authenticated).
//   - POST /forgot-password : Issues a password reset code.
//   - POST /reset-password  : Redeems the reset code, replaces the password.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/register", handler.register)
	router.Post("/verify-email", handler.verifyEmail)
	router.Post("/login", handler.login)
	router.Post("/google-login", handler.googleLogin)
	router.Post("/refresh-token", handler.refreshToken)
	router.Post("/logout", handler.logout)
	router.Post("/forgot-password", handler.forgotPassword)
	router.Post("/reset-password", handler.resetPassword)

	return router
}

// registerRequest represents the JSON payload expected for account creation.
type registerRequest struct {
	Email       string `json:"email"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// register handles POST /api/v1/auth/register requests.
//
// # Returns
//   - Writes HTTP 201 Created on success with the (unverified) user profile.
//   - Writes HTTP 400 Bad Request if validation rules fail.
//   - Writes HTTP 409 Conflict if email/username is taken.
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	// ── 1. Payload Extraction ─────────────────────────────────────────────

	var input registerRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	// ── 2. Boundary Validation ────────────────────────────────────────────

	validator := &validate.Validator{}
	validator.
		Required("email", input.Email).
		Email("email", input.Email).
		Required("username", input.Username).
		MinLen("username", input.Username, 3).
		MaxLen("username", input.Username, 32).
		Required("password", input.Password).
		MinLen("password", input.Password, 8).
		MaxLen("display_name", input.DisplayName, 80)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	// ── 3. Application Execution ──────────────────────────────────────────

	user, err := handler.authService.Register(request.Context(), RegisterInput{
		Email:       input.Email,
		Username:    input.Username,
		Password:    input.Password,
		DisplayName: input.DisplayName,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// ── 4. Presentation Output ────────────────────────────────────────────

	respond.Created(writer, user)
}

// verifyEmailRequest carries the 6-digit code redemption payload.
type verifyEmailRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// verifyEmail handles POST /api/v1/auth/verify-email requests.
func (handler *Handler) verifyEmail(writer http.ResponseWriter, request *http.Request) {
	var input verifyEmailRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	if input.Email == "" || input.Code == "" {
		respond.Error(writer, request, validate.RequiredError("email/code", "are required"))
		return
	}

	pair, err := handler.authService.VerifyEmail(request.Context(), input.Email, input.Code)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, pair)
}

// loginRequest represents the JSON payload expected for authentication.
type loginRequest struct {
	Login    string `json:"login"` // Can be Email or Username
	Password string `json:"password"`
}

// login handles POST /api/v1/auth/login requests.
//
// # Returns
//   - Writes HTTP 200 OK on success with the token pair and user profile.
//   - Writes HTTP 401 Unauthorized for bad credentials.
//   - Writes HTTP 403 Forbidden for unverified accounts.
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	if input.Login == "" || input.Password == "" {
		respond.Error(writer, request, validate.RequiredError("login/password", "are required"))
		return
	}

	pair, err := handler.authService.Login(request.Context(), LoginInput{
		Login:    input.Login,
		Password: input.Password,
	})
	if err != nil {
		// Will return HTTP 401 Unauthorized without leaking the reason
		// (wrong pass vs wrong email).
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, pair)
}

// googleLoginRequest carries either shape of the Google sign-in payload.
type googleLoginRequest struct {
	IDToken string `json:"id_token,omitempty"`
	Code    string `json:"code,omitempty"`
}

// googleLogin handles POST /api/v1/auth/google-login requests.
func (handler *Handler) googleLogin(writer http.ResponseWriter, request *http.Request) {
	var input googleLoginRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	pair, err := handler.authService.GoogleLogin(request.Context(), GoogleLoginInput{
		IDToken: input.IDToken,
		Code:    input.Code,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, pair)
}

// refreshTokenRequest carries the refresh token exchange payload.
type refreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// refreshToken handles POST /api/v1/auth/refresh-token requests.
func (handler *Handler) refreshToken(writer http.ResponseWriter, request *http.Request) {
	var input refreshTokenRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	if input.RefreshToken == "" {
		respond.Error(writer, request, validate.RequiredError("refresh_token", "is required"))
		return
	}

	pair, err := handler.authService.Refresh(request.Context(), input.RefreshToken)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, pair)
}

// logout handles POST /api/v1/auth/logout requests.
//
// The bearer token that authenticated this request is the one that gets
// blacklisted, so no body is required.
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	accessToken := ctxutil.GetAccessToken(request.Context())

	if err := handler.authService.Logout(request.Context(), claims.UserID, accessToken); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// forgotPasswordRequest carries the reset initiation payload.
type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// forgotPassword handles POST /api/v1/auth/forgot-password requests.
// Always returns 204 to prevent email enumeration.
func (handler *Handler) forgotPassword(writer http.ResponseWriter, request *http.Request) {
	var input forgotPasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	if input.Email == "" {
		respond.Error(writer, request, validate.RequiredError("email", "is required"))
		return
	}

	if err := handler.authService.ForgotPassword(request.Context(), input.Email); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// resetPasswordRequest carries the reset redemption payload.
type resetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

// resetPassword handles POST /api/v1/auth/reset-password requests.
func (handler *Handler) resetPassword(writer http.ResponseWriter, request *http.Request) {
	var input resetPasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.
		Required("email", input.Email).
		Required("code", input.Code).
		Required("new_password", input.NewPassword).
		MinLen("new_password", input.NewPassword, 8)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.ResetPassword(request.Context(), input.Email, input.Code, input.NewPassword); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}
