package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/nwehr/longbox/internal/apperror"
	"github.com/nwehr/longbox/internal/auth"
	"github.com/nwehr/longbox/internal/model"
	"github.com/nwehr/longbox/internal/service"
)

// AuthHandler exposes the credential lifecycle over HTTP:
//
//	POST /api/auth/register         create an account
//	POST /api/auth/login            issue access+refresh pair
//	POST /api/auth/refresh          rotate the refresh token
//	POST /api/auth/logout           clear the refresh session (keyed on email)
//	POST /api/auth/change-email     authenticated
//	POST /api/auth/change-password  authenticated
//
// The handler parses and validates JSON, delegates to AuthService, and maps
// errors; all session rules live in the service.
type AuthHandler struct {
	auth   *service.AuthService
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(authSvc *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: authSvc, logger: logger}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// authResponse is the success shape for login/refresh (and register when
// token issuance on register is enabled).
type authResponse struct {
	AccessToken  string        `json:"accessToken,omitempty"`
	RefreshToken string        `json:"refreshToken,omitempty"`
	User         model.Summary `json:"user"`
}

func toAuthResponse(res *service.AuthResult) authResponse {
	out := authResponse{User: res.User}
	if res.Tokens != nil {
		out.AccessToken = res.Tokens.AccessToken
		out.RefreshToken = res.Tokens.RefreshToken
	}
	return out
}

// HandleRegister creates a new account.
//
// HTTP: POST /api/auth/register → 201 on success.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	res, err := h.auth.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAuthResponse(res))
}

// HandleLogin verifies credentials and returns a fresh token pair.
//
// HTTP: POST /api/auth/login
//
// STATUS-CODE COMPATIBILITY:
// An unknown email answers 403, a wrong password 400. Existing clients key
// off that split, so it is mapped here rather than through the generic
// not-found → 404 rule. (It also tells a caller which emails exist — a
// known enumeration leak, kept as-is.)
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	res, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			writeError(w, apperror.Forbidden("user not found"))
			return
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAuthResponse(res))
}

// HandleRefresh exchanges a refresh token for a new pair. Every failure
// kind (missing, malformed, expired, mismatched, unknown subject) responds
// 401 — a refresh client can only ever react one way: log in again.
//
// HTTP: POST /api/auth/refresh
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.Unauthorized("missing token"))
		return
	}

	res, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAuthResponse(res))
}

// HandleLogout clears the server-side refresh session.
//
// HTTP: POST /api/auth/logout
//
// Deliberately unauthenticated and keyed on email: the usual caller is a
// client whose access token has already expired.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	if err := h.auth.Logout(r.Context(), req.Email); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// HandleChangeEmail updates the authenticated user's email address.
//
// HTTP: POST /api/auth/change-email (behind RequireAuth)
func (h *AuthHandler) HandleChangeEmail(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	if err := h.auth.ChangeEmail(r.Context(), id.UserID, req.Email); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Email changed to: " + req.Email})
}

// HandleChangePassword updates the authenticated user's password.
//
// HTTP: POST /api/auth/change-password (behind RequireAuth)
func (h *AuthHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	if err := h.auth.ChangePassword(r.Context(), id.UserID, req.Password); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated successfully."})
}
