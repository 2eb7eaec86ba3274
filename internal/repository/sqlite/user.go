package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/nwehr/longbox/internal/apperror"
	"github.com/nwehr/longbox/internal/model"
	"github.com/nwehr/longbox/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
// modernc.org/sqlite doesn't export a typed constraint error, so we match
// the stable SQLite message text.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Create inserts a new user. The ID and timestamps are assigned here; the
// caller's struct is updated in place.
// Returns apperror.ErrConflict when the email is already registered.
func (db *DB) Create(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.ID = xid.New().String()
	if user.Role == "" {
		user.Role = model.RoleUser
	}
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, role, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.PasswordHash, user.Role, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("sqlite: inserting user %s: %w", user.Email, err)
	}

	return nil
}

const userColumns = `id, email, password_hash, role, refresh_token, refresh_token_expires_at, created_at, updated_at`

func scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&u.RefreshToken,
		&u.RefreshTokenExpiresAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID retrieves a user by internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetByID(ctx context.Context, id string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

// GetByEmail retrieves a user by email. Emails are compared exactly as
// stored — no case folding.
func (db *DB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}
	return u, nil
}

// UpdateEmail changes the user's email address.
func (db *DB) UpdateEmail(ctx context.Context, id, email string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET email = ?, updated_at = ? WHERE id = ?`,
		email, time.Now().UTC(), id,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", email)
		}
		return fmt.Errorf("sqlite: updating email for user %s: %w", id, err)
	}
	return requireRow(res, "user", id)
}

// UpdatePassword replaces the stored password hash.
func (db *DB) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating password for user %s: %w", id, err)
	}
	return requireRow(res, "user", id)
}

// SetRefreshSession unconditionally overwrites the refresh session pair.
// This is the login path: whatever session existed before is gone.
func (db *DB) SetRefreshSession(ctx context.Context, id, token string, expiresAt time.Time) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users
		 SET refresh_token = ?, refresh_token_expires_at = ?, updated_at = ?
		 WHERE id = ?`,
		token, expiresAt.UTC(), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: setting refresh session for user %s: %w", id, err)
	}
	return requireRow(res, "user", id)
}

// RotateRefreshSession is a compare-and-swap: the session is replaced only
// if the stored token still equals expected. When two refreshes race on the
// same token, the database serializes the writes and exactly one UPDATE
// matches its WHERE clause; the other affects zero rows and gets
// repository.ErrStaleRefreshToken.
func (db *DB) RotateRefreshSession(ctx context.Context, id, expected, replacement string, expiresAt time.Time) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users
		 SET refresh_token = ?, refresh_token_expires_at = ?, updated_at = ?
		 WHERE id = ? AND refresh_token = ?`,
		replacement, expiresAt.UTC(), time.Now().UTC(), id, expected,
	)
	if err != nil {
		return fmt.Errorf("sqlite: rotating refresh session for user %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rotating refresh session for user %s: %w", id, err)
	}
	if n == 0 {
		return repository.ErrStaleRefreshToken
	}
	return nil
}

// ClearRefreshSession nulls out the session pair. Clearing a user with no
// session is a success — the WHERE matches the row either way.
func (db *DB) ClearRefreshSession(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users
		 SET refresh_token = NULL, refresh_token_expires_at = NULL, updated_at = ?
		 WHERE id = ?`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: clearing refresh session for user %s: %w", id, err)
	}
	return requireRow(res, "user", id)
}

// requireRow converts "UPDATE matched nothing" into a not-found error.
func requireRow(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}
