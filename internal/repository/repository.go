// Package repository declares the storage interfaces the service layer
// depends on. Services receive these interfaces, never a concrete store —
// tests substitute in-memory fakes, and the SQLite implementation lives in
// repository/sqlite.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/nwehr/longbox/internal/model"
)

// ErrStaleRefreshToken is returned by RotateRefreshSession when the
// expected token no longer matches the stored one: either a concurrent
// refresh already rotated it, or a superseded token is being replayed.
var ErrStaleRefreshToken = errors.New("repository: stale refresh token")

// UserRepository persists account records and their single refresh session.
//
// The refresh-session methods always write refresh_token and
// refresh_token_expires_at together — callers can rely on the pair being
// set or cleared atomically.
type UserRepository interface {
	// Create inserts a new user. Fails with apperror.ErrConflict when the
	// email is already taken.
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)

	UpdateEmail(ctx context.Context, id, email string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error

	// SetRefreshSession unconditionally overwrites the stored refresh
	// session (login path — any prior session is invalidated).
	SetRefreshSession(ctx context.Context, id, token string, expiresAt time.Time) error
	// RotateRefreshSession replaces the session only if the stored token
	// still equals expected. When two refreshes race, exactly one write
	// matches; the loser gets ErrStaleRefreshToken.
	RotateRefreshSession(ctx context.Context, id, expected, replacement string, expiresAt time.Time) error
	// ClearRefreshSession nulls out the session pair. Idempotent — clearing
	// an already-cleared session succeeds.
	ClearRefreshSession(ctx context.Context, id string) error
}

// CollectionRepository persists per-user named, ordered issue lists.
//
// Both repositories are implemented by the same sqlite.DB, so the method
// names must not collide with UserRepository's; hence CreateCollection
// rather than a second Create.
type CollectionRepository interface {
	// ListNames returns the user's collection names. Empty slice, not an
	// error, when the user has no collections.
	ListNames(ctx context.Context, userID string) ([]string, error)
	// CreateCollection adds an empty collection. apperror.ErrConflict when
	// the name already exists for this user.
	CreateCollection(ctx context.Context, userID, name string) error
	// Rename atomically moves a collection (and all its issues) to a new
	// name. apperror.ErrNotFound if oldName is absent, apperror.ErrConflict
	// if newName exists. No observable state where both or neither exist.
	Rename(ctx context.Context, userID, oldName, newName string) error
	// Delete removes a collection and all its issues. apperror.ErrNotFound
	// when absent.
	Delete(ctx context.Context, userID, name string) error
	// AddIssue appends an issue, creating the collection if it does not
	// exist yet. Adding an issue ID already present is a silent no-op.
	AddIssue(ctx context.Context, userID, name string, issue model.Issue) error
	// RemoveIssue filters an issue out of the collection.
	// apperror.ErrNotFound when the collection is absent; a missing issue
	// ID is a no-op, not an error.
	RemoveIssue(ctx context.Context, userID, name, issueID string) error
	// GetIssues returns the collection's issues in insertion order. An
	// unknown name yields an empty slice, not an error.
	GetIssues(ctx context.Context, userID, name string) ([]model.Issue, error)
}
