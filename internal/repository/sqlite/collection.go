package sqlite

import (
	"context"
	"fmt"

	"github.com/nwehr/longbox/internal/apperror"
	"github.com/nwehr/longbox/internal/model"
	"github.com/nwehr/longbox/internal/repository"
)

// compile-time check that *DB implements repository.CollectionRepository
var _ repository.CollectionRepository = (*DB)(nil)

// ListNames returns the user's collection names. The order is whatever the
// index yields; callers do not rely on it.
func (db *DB) ListNames(ctx context.Context, userID string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT name FROM collections WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing collections for user %s: %w", userID, err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("sqlite: scanning collection name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: listing collections for user %s: %w", userID, err)
	}
	return names, nil
}

// CreateCollection adds an empty collection. Named to stay clear of the
// user-side Create on the same receiver.
// Returns apperror.ErrConflict when the (user, name) pair already exists.
func (db *DB) CreateCollection(ctx context.Context, userID, name string) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO collections (user_id, name) VALUES (?, ?)`,
		userID, name,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("collection", name)
		}
		return fmt.Errorf("sqlite: creating collection %q for user %s: %w", name, userID, err)
	}
	return nil
}

// Rename moves a collection to a new name in a single transaction. The
// ON UPDATE CASCADE on collection_issues carries the issue rows along, so
// there is no intermediate state where the issues belong to neither name.
func (db *DB) Rename(ctx context.Context, userID, oldName, newName string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning rename tx: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM collections WHERE user_id = ? AND name = ?`,
		userID, newName,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("sqlite: checking target name %q: %w", newName, err)
	}
	if exists > 0 {
		return apperror.Conflict("collection", newName)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE collections SET name = ? WHERE user_id = ? AND name = ?`,
		newName, userID, oldName,
	)
	if err != nil {
		return fmt.Errorf("sqlite: renaming collection %q: %w", oldName, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("collection", oldName)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing rename: %w", err)
	}
	return nil
}

// Delete removes a collection; its issue rows go with it via
// ON DELETE CASCADE.
func (db *DB) Delete(ctx context.Context, userID, name string) error {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM collections WHERE user_id = ? AND name = ?`,
		userID, name,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting collection %q for user %s: %w", name, userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("collection", name)
	}
	return nil
}

// AddIssue appends an issue snapshot to the collection, creating the
// collection row first if this is the first add. A duplicate issue ID is a
// silent no-op: INSERT OR IGNORE hits the primary key and inserts nothing.
//
// The whole thing runs in one transaction so a concurrent add cannot
// observe the collection without its first issue, and two adds racing on
// position both serialize behind SQLite's single writer.
func (db *DB) AddIssue(ctx context.Context, userID, name string, issue model.Issue) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning add tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO collections (user_id, name) VALUES (?, ?)`,
		userID, name,
	); err != nil {
		return fmt.Errorf("sqlite: ensuring collection %q: %w", name, err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO collection_issues
			(user_id, collection_name, issue_id, position,
			 name, issue_number, description, volume_id, volume_name, year, cover_url)
		 VALUES (?, ?, ?,
			(SELECT COALESCE(MAX(position) + 1, 0) FROM collection_issues
			 WHERE user_id = ? AND collection_name = ?),
			?, ?, ?, ?, ?, ?, ?)`,
		userID, name, issue.ID,
		userID, name,
		issue.Name, issue.IssueNumber, issue.Description,
		issue.VolumeID, issue.VolumeName, issue.Year, issue.CoverURL,
	); err != nil {
		return fmt.Errorf("sqlite: adding issue %s to %q: %w", issue.ID, name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing add: %w", err)
	}
	return nil
}

// RemoveIssue deletes an issue row. The collection must exist; a missing
// issue ID within an existing collection is a no-op.
func (db *DB) RemoveIssue(ctx context.Context, userID, name, issueID string) error {
	var exists int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM collections WHERE user_id = ? AND name = ?`,
		userID, name,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("sqlite: checking collection %q: %w", name, err)
	}
	if exists == 0 {
		return apperror.NotFound("collection", name)
	}

	if _, err := db.conn.ExecContext(ctx,
		`DELETE FROM collection_issues
		 WHERE user_id = ? AND collection_name = ? AND issue_id = ?`,
		userID, name, issueID,
	); err != nil {
		return fmt.Errorf("sqlite: removing issue %s from %q: %w", issueID, name, err)
	}
	return nil
}

// GetIssues returns the collection's issues in insertion order. An unknown
// collection name yields an empty slice — deliberately not an error, to
// match how clients have always probed for a collection's contents.
func (db *DB) GetIssues(ctx context.Context, userID, name string) ([]model.Issue, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT issue_id, name, issue_number, description, volume_id, volume_name, year, cover_url
		 FROM collection_issues
		 WHERE user_id = ? AND collection_name = ?
		 ORDER BY position`,
		userID, name,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting issues of %q for user %s: %w", name, userID, err)
	}
	defer rows.Close()

	issues := []model.Issue{}
	for rows.Next() {
		var is model.Issue
		if err := rows.Scan(
			&is.ID, &is.Name, &is.IssueNumber, &is.Description,
			&is.VolumeID, &is.VolumeName, &is.Year, &is.CoverURL,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning issue row: %w", err)
		}
		issues = append(issues, is)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: getting issues of %q: %w", name, err)
	}
	return issues, nil
}
