package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nwehr/longbox/internal/apperror"
	"github.com/nwehr/longbox/internal/model"
	"github.com/nwehr/longbox/internal/repository"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, db *DB, email string) *model.User {
	t.Helper()
	u := &model.User{Email: email, PasswordHash: "hash"}
	require.NoError(t, db.Create(context.Background(), u))
	return u
}

func TestUserCreate(t *testing.T) {
	db := newTestDB(t)

	u := &model.User{Email: "alice@example.com", PasswordHash: "hash"}
	err := db.Create(context.Background(), u)
	require.NoError(t, err)

	assert.NotEmpty(t, u.ID)
	assert.Equal(t, model.RoleUser, u.Role)
	assert.False(t, u.CreatedAt.IsZero())
	assert.Equal(t, u.CreatedAt, u.UpdatedAt)
}

func TestUserCreate_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "alice@example.com")

	err := db.Create(context.Background(), &model.User{
		Email:        "alice@example.com",
		PasswordHash: "other",
	})
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

func TestUserGetByID(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "alice@example.com")

	got, err := db.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Email, got.Email)
	assert.Nil(t, got.RefreshToken)

	_, err = db.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestUserGetByEmail(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "alice@example.com")

	got, err := db.GetByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	// exact match, no case folding
	_, err = db.GetByEmail(context.Background(), "ALICE@example.com")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestUserUpdateEmail(t *testing.T) {
	db := newTestDB(t)
	u := createTestUser(t, db, "alice@example.com")
	createTestUser(t, db, "bob@example.com")

	require.NoError(t, db.UpdateEmail(context.Background(), u.ID, "alice2@example.com"))

	got, err := db.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice2@example.com", got.Email)

	err = db.UpdateEmail(context.Background(), u.ID, "bob@example.com")
	assert.ErrorIs(t, err, apperror.ErrConflict)

	err = db.UpdateEmail(context.Background(), "missing", "x@example.com")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestUserUpdatePassword(t *testing.T) {
	db := newTestDB(t)
	u := createTestUser(t, db, "alice@example.com")

	require.NoError(t, db.UpdatePassword(context.Background(), u.ID, "newhash"))

	got, err := db.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "newhash", got.PasswordHash)
}

func TestSetRefreshSession(t *testing.T) {
	db := newTestDB(t)
	u := createTestUser(t, db, "alice@example.com")
	expires := time.Now().Add(time.Hour).UTC().Truncate(time.Second)

	require.NoError(t, db.SetRefreshSession(context.Background(), u.ID, "token-1", expires))

	got, err := db.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.RefreshToken)
	assert.Equal(t, "token-1", *got.RefreshToken)
	require.NotNil(t, got.RefreshTokenExpiresAt)
	assert.WithinDuration(t, expires, *got.RefreshTokenExpiresAt, time.Second)

	// login overwrites whatever session existed
	require.NoError(t, db.SetRefreshSession(context.Background(), u.ID, "token-2", expires))
	got, err = db.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "token-2", *got.RefreshToken)
}

func TestRotateRefreshSession(t *testing.T) {
	db := newTestDB(t)
	u := createTestUser(t, db, "alice@example.com")
	expires := time.Now().Add(time.Hour)

	require.NoError(t, db.SetRefreshSession(context.Background(), u.ID, "old", expires))

	err := db.RotateRefreshSession(context.Background(), u.ID, "old", "new", expires)
	require.NoError(t, err)

	got, err := db.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", *got.RefreshToken)
}

func TestRotateRefreshSession_Stale(t *testing.T) {
	db := newTestDB(t)
	u := createTestUser(t, db, "alice@example.com")
	expires := time.Now().Add(time.Hour)

	require.NoError(t, db.SetRefreshSession(context.Background(), u.ID, "current", expires))

	// a second rotation presenting the already-replaced token loses
	err := db.RotateRefreshSession(context.Background(), u.ID, "previous", "new", expires)
	assert.True(t, errors.Is(err, repository.ErrStaleRefreshToken))

	got, err := db.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "current", *got.RefreshToken)
}

func TestClearRefreshSession(t *testing.T) {
	db := newTestDB(t)
	u := createTestUser(t, db, "alice@example.com")

	require.NoError(t, db.SetRefreshSession(context.Background(), u.ID, "token", time.Now().Add(time.Hour)))
	require.NoError(t, db.ClearRefreshSession(context.Background(), u.ID))

	got, err := db.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Nil(t, got.RefreshToken)
	assert.Nil(t, got.RefreshTokenExpiresAt)

	// clearing an already-clear session is fine
	require.NoError(t, db.ClearRefreshSession(context.Background(), u.ID))
}
