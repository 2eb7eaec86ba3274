package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/nwehr/longbox/internal/apperror"
	"github.com/nwehr/longbox/internal/model"
	"github.com/nwehr/longbox/internal/repository"
)

// MaxCollectionNameLength bounds collection names; anything longer is
// almost certainly a pasted blob, not a name.
const MaxCollectionNameLength = 100

// CollectionService handles the per-user collection operations.
//
// EXISTENCE SEMANTICS, ON PURPOSE:
// The operations are not uniform about missing collections — Get returns an
// empty list, Delete/Rename/RemoveIssue return not-found, and AddIssue
// quietly creates the collection. Clients depend on each of those
// behaviors, so they are preserved per-operation rather than harmonized.
type CollectionService struct {
	users       repository.UserRepository
	collections repository.CollectionRepository
	logger      *slog.Logger
}

// NewCollectionService creates a CollectionService.
func NewCollectionService(
	users repository.UserRepository,
	collections repository.CollectionRepository,
	logger *slog.Logger,
) *CollectionService {
	return &CollectionService{
		users:       users,
		collections: collections,
		logger:      logger,
	}
}

// requireUser confirms the authenticated subject still exists in the
// store. The token is stateless, so a deleted account could otherwise keep
// mutating collections until its access token expires.
func (s *CollectionService) requireUser(ctx context.Context, userID string) error {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.NotFound("user", userID)
		}
		return apperror.Unavailable("could not look up user", err)
	}
	return nil
}

// List returns the user's collection names.
func (s *CollectionService) List(ctx context.Context, userID string) ([]string, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}

	names, err := s.collections.ListNames(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list collections",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Unavailable("could not list collections", err)
	}
	return names, nil
}

// Create makes a new, empty collection. The name is trimmed; an empty
// result is a validation error, an existing name a conflict.
func (s *CollectionService) Create(ctx context.Context, userID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return apperror.ValidationFailed("name", "collection name is required")
	}
	if len(name) > MaxCollectionNameLength {
		return apperror.ValidationFailed("name", "collection name is too long")
	}

	if err := s.requireUser(ctx, userID); err != nil {
		return err
	}

	if err := s.collections.CreateCollection(ctx, userID, name); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return apperror.Conflict("collection", name)
		}
		s.logger.Error("failed to create collection",
			slog.String("userID", userID),
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
		return apperror.Unavailable("could not create collection", err)
	}

	s.logger.Info("collection created",
		slog.String("userID", userID),
		slog.String("name", name),
	)
	return nil
}

// Rename atomically moves all issues under the new name and removes the
// old key. Stored names are always trimmed and non-empty, so the new name
// is held to the same rule as Create.
func (s *CollectionService) Rename(ctx context.Context, userID, oldName, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return apperror.ValidationFailed("newName", "new collection name is required")
	}
	if len(newName) > MaxCollectionNameLength {
		return apperror.ValidationFailed("newName", "collection name is too long")
	}

	if err := s.requireUser(ctx, userID); err != nil {
		return err
	}

	if err := s.collections.Rename(ctx, userID, oldName, newName); err != nil {
		switch {
		case errors.Is(err, apperror.ErrNotFound):
			return apperror.NotFound("collection", oldName)
		case errors.Is(err, apperror.ErrConflict):
			return apperror.Conflict("collection", newName)
		}
		s.logger.Error("failed to rename collection",
			slog.String("userID", userID),
			slog.String("oldName", oldName),
			slog.String("error", err.Error()),
		)
		return apperror.Unavailable("could not rename collection", err)
	}

	s.logger.Info("collection renamed",
		slog.String("userID", userID),
		slog.String("oldName", oldName),
		slog.String("newName", newName),
	)
	return nil
}

// Delete removes a collection and everything in it.
func (s *CollectionService) Delete(ctx context.Context, userID, name string) error {
	if err := s.requireUser(ctx, userID); err != nil {
		return err
	}

	if err := s.collections.Delete(ctx, userID, name); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.NotFound("collection", name)
		}
		s.logger.Error("failed to delete collection",
			slog.String("userID", userID),
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
		return apperror.Unavailable("could not delete collection", err)
	}

	s.logger.Info("collection deleted",
		slog.String("userID", userID),
		slog.String("name", name),
	)
	return nil
}

// AddIssue appends an issue snapshot to a collection, creating the
// collection on first use. Re-adding an issue ID already present succeeds
// without writing anything.
func (s *CollectionService) AddIssue(ctx context.Context, userID, name string, issue model.Issue) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return apperror.ValidationFailed("collectionName", "collection name is required")
	}
	if issue.ID == "" {
		return apperror.ValidationFailed("issue", "issue id is required")
	}

	if err := s.requireUser(ctx, userID); err != nil {
		return err
	}

	if err := s.collections.AddIssue(ctx, userID, name, issue); err != nil {
		s.logger.Error("failed to add issue",
			slog.String("userID", userID),
			slog.String("name", name),
			slog.String("issueID", issue.ID),
			slog.String("error", err.Error()),
		)
		return apperror.Unavailable("could not add issue", err)
	}

	s.logger.Info("issue added",
		slog.String("userID", userID),
		slog.String("name", name),
		slog.String("issueID", issue.ID),
	)
	return nil
}

// RemoveIssue filters an issue out of an existing collection. A missing
// issue ID is a no-op; a missing collection is not-found.
func (s *CollectionService) RemoveIssue(ctx context.Context, userID, name, issueID string) error {
	if err := s.requireUser(ctx, userID); err != nil {
		return err
	}

	if err := s.collections.RemoveIssue(ctx, userID, name, issueID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.NotFound("collection", name)
		}
		s.logger.Error("failed to remove issue",
			slog.String("userID", userID),
			slog.String("name", name),
			slog.String("issueID", issueID),
			slog.String("error", err.Error()),
		)
		return apperror.Unavailable("could not remove issue", err)
	}
	return nil
}

// Get returns the issues of a collection in insertion order. An unknown
// name yields an empty list, not an error.
func (s *CollectionService) Get(ctx context.Context, userID, name string) ([]model.Issue, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}

	issues, err := s.collections.GetIssues(ctx, userID, name)
	if err != nil {
		s.logger.Error("failed to get collection",
			slog.String("userID", userID),
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Unavailable("could not get collection", err)
	}
	return issues, nil
}
