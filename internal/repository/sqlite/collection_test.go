package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nwehr/longbox/internal/apperror"
	"github.com/nwehr/longbox/internal/model"
)

func testIssue(id string) model.Issue {
	return model.Issue{
		ID:          id,
		Name:        "The Anatomy Lesson",
		IssueNumber: "21",
		VolumeID:    "1234",
		VolumeName:  "Swamp Thing",
		Year:        "1984",
	}
}

func TestCollectionCreateAndList(t *testing.T) {
	db := newTestDB(t)
	u := createTestUser(t, db, "alice@example.com")
	ctx := context.Background()

	names, err := db.ListNames(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, names)

	require.NoError(t, db.CreateCollection(ctx, u.ID, "favorites"))
	require.NoError(t, db.CreateCollection(ctx, u.ID, "to-read"))

	names, err = db.ListNames(ctx, u.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"favorites", "to-read"}, names)
}

func TestCollectionCreate_Duplicate(t *testing.T) {
	db := newTestDB(t)
	u := createTestUser(t, db, "alice@example.com")
	ctx := context.Background()

	require.NoError(t, db.CreateCollection(ctx, u.ID, "favorites"))
	err := db.CreateCollection(ctx, u.ID, "favorites")
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

func TestCollectionCreate_SameNameDifferentUsers(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice@example.com")
	bob := createTestUser(t, db, "bob@example.com")
	ctx := context.Background()

	require.NoError(t, db.CreateCollection(ctx, alice.ID, "favorites"))
	require.NoError(t, db.CreateCollection(ctx, bob.ID, "favorites"))
}

func TestCollectionRename(t *testing.T) {
	db := newTestDB(t)
	u := createTestUser(t, db, "alice@example.com")
	ctx := context.Background()

	require.NoError(t, db.AddIssue(ctx, u.ID, "favorites", testIssue("4050-100")))
	require.NoError(t, db.AddIssue(ctx, u.ID, "favorites", testIssue("4050-101")))

	require.NoError(t, db.Rename(ctx, u.ID, "favorites", "keepers"))

	names, err := db.ListNames(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"keepers"}, names)

	// the issues move with the collection, order intact
	issues, err := db.GetIssues(ctx, u.ID, "keepers")
	require.NoError(t, err)
	require.Len(t, issues, 2)
	assert.Equal(t, "4050-100", issues[0].ID)
	assert.Equal(t, "4050-101", issues[1].ID)
}

func TestCollectionRename_Missing(t *testing.T) {
	db := newTestDB(t)
	u := createTestUser(t, db, "alice@example.com")

	err := db.Rename(context.Background(), u.ID, "nope", "keepers")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestCollectionRename_TargetExists(t *testing.T) {
	db := newTestDB(t)
	u := createTestUser(t, db, "alice@example.com")
	ctx := context.Background()

	require.NoError(t, db.CreateCollection(ctx, u.ID, "favorites"))
	require.NoError(t, db.CreateCollection(ctx, u.ID, "keepers"))

	err := db.Rename(ctx, u.ID, "favorites", "keepers")
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

func TestCollectionDelete(t *testing.T) {
	db := newTestDB(t)
	u := createTestUser(t, db, "alice@example.com")
	ctx := context.Background()

	require.NoError(t, db.AddIssue(ctx, u.ID, "favorites", testIssue("4050-100")))
	require.NoError(t, db.Delete(ctx, u.ID, "favorites"))

	names, err := db.ListNames(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, names)

	// the cascade took the issue rows too
	issues, err := db.GetIssues(ctx, u.ID, "favorites")
	require.NoError(t, err)
	assert.Empty(t, issues)

	err = db.Delete(ctx, u.ID, "favorites")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestAddIssue_CreatesCollection(t *testing.T) {
	db := newTestDB(t)
	u := createTestUser(t, db, "alice@example.com")
	ctx := context.Background()

	require.NoError(t, db.AddIssue(ctx, u.ID, "favorites", testIssue("4050-100")))

	names, err := db.ListNames(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"favorites"}, names)
}

func TestAddIssue_DuplicateIsNoOp(t *testing.T) {
	db := newTestDB(t)
	u := createTestUser(t, db, "alice@example.com")
	ctx := context.Background()

	require.NoError(t, db.AddIssue(ctx, u.ID, "favorites", testIssue("4050-100")))
	require.NoError(t, db.AddIssue(ctx, u.ID, "favorites", testIssue("4050-100")))

	issues, err := db.GetIssues(ctx, u.ID, "favorites")
	require.NoError(t, err)
	assert.Len(t, issues, 1)
}

func TestAddIssue_PreservesInsertionOrder(t *testing.T) {
	db := newTestDB(t)
	u := createTestUser(t, db, "alice@example.com")
	ctx := context.Background()

	for _, id := range []string{"4050-300", "4050-100", "4050-200"} {
		require.NoError(t, db.AddIssue(ctx, u.ID, "favorites", testIssue(id)))
	}

	issues, err := db.GetIssues(ctx, u.ID, "favorites")
	require.NoError(t, err)
	require.Len(t, issues, 3)
	assert.Equal(t, "4050-300", issues[0].ID)
	assert.Equal(t, "4050-100", issues[1].ID)
	assert.Equal(t, "4050-200", issues[2].ID)
}

func TestRemoveIssue(t *testing.T) {
	db := newTestDB(t)
	u := createTestUser(t, db, "alice@example.com")
	ctx := context.Background()

	require.NoError(t, db.AddIssue(ctx, u.ID, "favorites", testIssue("4050-100")))
	require.NoError(t, db.RemoveIssue(ctx, u.ID, "favorites", "4050-100"))

	issues, err := db.GetIssues(ctx, u.ID, "favorites")
	require.NoError(t, err)
	assert.Empty(t, issues)

	// unknown issue in an existing collection is a no-op
	require.NoError(t, db.RemoveIssue(ctx, u.ID, "favorites", "4050-999"))

	err = db.RemoveIssue(ctx, u.ID, "nope", "4050-100")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestGetIssues_UnknownCollection(t *testing.T) {
	db := newTestDB(t)
	u := createTestUser(t, db, "alice@example.com")

	issues, err := db.GetIssues(context.Background(), u.ID, "nope")
	require.NoError(t, err)
	assert.NotNil(t, issues)
	assert.Empty(t, issues)
}

func TestGetIssues_RoundTripsSnapshot(t *testing.T) {
	db := newTestDB(t)
	u := createTestUser(t, db, "alice@example.com")
	ctx := context.Background()

	want := model.Issue{
		ID:          "4050-100",
		Name:        "The Anatomy Lesson",
		IssueNumber: "21",
		Description: "Swamp Thing learns what he is.",
		VolumeID:    "1234",
		VolumeName:  "Swamp Thing",
		Year:        "1984",
		CoverURL:    "https://example.com/cover.jpg",
	}
	require.NoError(t, db.AddIssue(ctx, u.ID, "favorites", want))

	issues, err := db.GetIssues(ctx, u.ID, "favorites")
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, want, issues[0])
}
