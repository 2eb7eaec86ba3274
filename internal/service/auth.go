// Package service contains the business logic layer.
//
//	Handler (HTTP)    → parses requests, writes responses
//	Service (rules)   → validates, enforces the session state machine
//	Repository (data) → reads/writes the store
//
// AuthService is the session rotation controller. Per user, the session
// moves through:
//
//	Anonymous → Authenticated(T1) → Authenticated(T2) → ... → Anonymous
//
// Login enters the chain (and cuts off any prior session — one active
// refresh token per user), Refresh advances it by rotating the token, and
// Logout exits it. A superseded refresh token presented after rotation is
// rejected as a mismatch, which is the replay/theft defense.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/nwehr/longbox/internal/apperror"
	"github.com/nwehr/longbox/internal/auth"
	"github.com/nwehr/longbox/internal/model"
	"github.com/nwehr/longbox/internal/repository"
)

// AuthService orchestrates registration, login, refresh rotation, logout,
// and credential changes against the user store and the token issuer.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger

	// tokensOnRegister makes Register behave like an implicit Login,
	// issuing and persisting a session for the new account. Off by
	// default: a fresh account stays anonymous until it logs in.
	tokensOnRegister bool
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
	tokensOnRegister bool,
) *AuthService {
	return &AuthService{
		users:            users,
		tokens:           tokens,
		passwords:        passwords,
		logger:           logger,
		tokensOnRegister: tokensOnRegister,
	}
}

// AuthResult is returned by the operations that may issue credentials.
// Tokens is nil when no session was established (plain registration).
type AuthResult struct {
	User   model.Summary
	Tokens *model.TokenPair
}

// Register creates a new account.
//
// Fails with a validation error when either field is blank and with a
// conflict when the email is taken. The password is bcrypt-hashed before it
// goes anywhere near the store; the plaintext is never logged.
//
// When tokensOnRegister is set, a token pair is issued and the refresh
// session persisted, exactly as Login would.
func (s *AuthService) Register(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperror.ValidationFailed("email", "email and password are required")
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", "password is not usable")
	}

	user := &model.User{
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.Conflict("user", email)
		}
		s.logger.Error("failed to create user",
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Unavailable("could not create user", err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("email", user.Email),
	)

	result := &AuthResult{User: user.Summary()}
	if s.tokensOnRegister {
		pair, err := s.establishSession(ctx, user)
		if err != nil {
			return nil, err
		}
		result.Tokens = pair
	}
	return result, nil
}

// Login verifies credentials and establishes a fresh session.
//
// Unknown email and wrong password fail differently (not-found vs
// invalid-credentials) — the split leaks which emails are registered, a
// known hardening gap kept for client compatibility.
//
// A successful login overwrites whatever refresh session the user had:
// single-session-per-user, so logging in on a second device logs the first
// one out of refreshing.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperror.ValidationFailed("email", "email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFound("user", email)
		}
		s.logger.Error("login lookup failed", slog.String("error", err.Error()))
		return nil, apperror.Unavailable("could not log in", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return nil, apperror.ValidationFailed("password", "invalid credentials")
	}

	pair, err := s.establishSession(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))
	return &AuthResult{User: user.Summary(), Tokens: pair}, nil
}

// establishSession issues a token pair and unconditionally overwrites the
// stored refresh session. Shared by Login and token-issuing Register.
func (s *AuthService) establishSession(ctx context.Context, user *model.User) (*model.TokenPair, error) {
	accessToken, err := s.tokens.GenerateAccess(user.ID, user.Role)
	if err != nil {
		return nil, apperror.Unavailable("could not issue tokens", err)
	}
	refreshToken, err := s.tokens.GenerateRefresh(user.ID)
	if err != nil {
		return nil, apperror.Unavailable("could not issue tokens", err)
	}

	expiresAt := time.Now().Add(s.tokens.RefreshTTL())
	if err := s.users.SetRefreshSession(ctx, user.ID, refreshToken, expiresAt); err != nil {
		s.logger.Error("failed to persist refresh session",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Unavailable("could not establish session", err)
	}

	return &model.TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// Refresh exchanges a still-valid refresh token for a brand-new pair,
// rotating the stored token so the presented one is immediately unusable.
//
// Checks, in order:
//  1. token present
//  2. token cryptographically valid and unexpired (its own exp claim)
//  3. subject resolves to a user
//  4. presented token equals the stored one — a superseded token here
//     means replay or theft
//  5. store-side expiry not passed (authoritative: logout clears the
//     stored record even while the token itself is still signed-valid)
//
// The rotation write is a compare-and-swap on the stored token. Two
// concurrent refreshes presenting the same token race; exactly one CAS
// matches, the other observes the winner's rotated value and fails with a
// mismatch.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, apperror.Unauthorized("missing token")
	}

	userID, err := s.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return nil, apperror.Unauthorized("refresh token expired")
		}
		return nil, apperror.Unauthorized("token verification failed")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized("user not found")
		}
		s.logger.Error("refresh lookup failed",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Unavailable("could not refresh session", err)
	}

	if user.RefreshToken == nil || *user.RefreshToken != refreshToken {
		s.logger.Warn("refresh token mismatch", slog.String("userID", user.ID))
		return nil, apperror.Unauthorized("token mismatch")
	}
	if user.RefreshTokenExpiresAt != nil && user.RefreshTokenExpiresAt.Before(time.Now()) {
		return nil, apperror.Unauthorized("refresh token expired")
	}

	newRefresh, err := s.tokens.GenerateRefresh(user.ID)
	if err != nil {
		return nil, apperror.Unavailable("could not issue tokens", err)
	}

	expiresAt := time.Now().Add(s.tokens.RefreshTTL())
	err = s.users.RotateRefreshSession(ctx, user.ID, refreshToken, newRefresh, expiresAt)
	if err != nil {
		if errors.Is(err, repository.ErrStaleRefreshToken) {
			// Lost the race against a concurrent refresh.
			s.logger.Warn("refresh rotation lost to concurrent rotation",
				slog.String("userID", user.ID))
			return nil, apperror.Unauthorized("token mismatch")
		}
		s.logger.Error("failed to rotate refresh session",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Unavailable("could not refresh session", err)
	}

	newAccess, err := s.tokens.GenerateAccess(user.ID, user.Role)
	if err != nil {
		return nil, apperror.Unavailable("could not issue tokens", err)
	}

	s.logger.Info("refresh session rotated", slog.String("userID", user.ID))
	return &AuthResult{
		User:   user.Summary(),
		Tokens: &model.TokenPair{AccessToken: newAccess, RefreshToken: newRefresh},
	}, nil
}

// Logout clears the user's refresh session. The pair (token, expiry) is
// nulled atomically. Logging out a user who has no session is still a
// success — the operation is idempotent.
func (s *AuthService) Logout(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return apperror.ValidationFailed("email", "email is required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.NotFound("user", email)
		}
		return apperror.Unavailable("could not log out", err)
	}

	if err := s.users.ClearRefreshSession(ctx, user.ID); err != nil {
		s.logger.Error("failed to clear refresh session",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
		return apperror.Unavailable("could not log out", err)
	}

	s.logger.Info("user logged out", slog.String("userID", user.ID))
	return nil
}

// ChangeEmail updates the email of an already-authenticated user. The user
// ID comes from the auth gate, never from the request body.
//
// The existing refresh session is deliberately left alone — changing an
// email does not revoke the session.
func (s *AuthService) ChangeEmail(ctx context.Context, userID, newEmail string) error {
	newEmail = strings.TrimSpace(newEmail)
	if newEmail == "" {
		return apperror.ValidationFailed("email", "email is required")
	}

	if err := s.users.UpdateEmail(ctx, userID, newEmail); err != nil {
		switch {
		case errors.Is(err, apperror.ErrNotFound):
			return apperror.NotFound("user", userID)
		case errors.Is(err, apperror.ErrConflict):
			return apperror.Conflict("user", newEmail)
		}
		s.logger.Error("failed to change email",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return apperror.Unavailable("could not change email", err)
	}

	s.logger.Info("email changed", slog.String("userID", userID))
	return nil
}

// ChangePassword re-hashes and stores a new password for an authenticated
// user. Like ChangeEmail, it does not revoke the refresh session.
func (s *AuthService) ChangePassword(ctx context.Context, userID, newPassword string) error {
	if newPassword == "" {
		return apperror.ValidationFailed("password", "password is required")
	}

	hash, err := s.passwords.Hash(newPassword)
	if err != nil {
		return apperror.ValidationFailed("password", "password is not usable")
	}

	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.NotFound("user", userID)
		}
		s.logger.Error("failed to change password",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return apperror.Unavailable("could not change password", err)
	}

	s.logger.Info("password changed", slog.String("userID", userID))
	return nil
}
