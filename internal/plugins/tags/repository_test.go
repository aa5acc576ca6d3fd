package tags

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyxmakerx/tally/internal/apperror"
)

func newMockRepo(t *testing.T) (TagRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewTagRepository(db), mock
}

var tagCols = []string{"id", "user_id", "name", "color", "is_shared", "created_at", "updated_at"}

var duplicateEntry = &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}

func TestRepoCreate_SetsID(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tags (user_id, name, color, is_shared) VALUES (?, ?, ?, FALSE)")).
		WithArgs("u1", "Food", "#FF5733").
		WillReturnResult(sqlmock.NewResult(12, 1))

	tag := &Tag{UserID: "u1", Name: "Food", Color: "#FF5733"}
	require.NoError(t, repo.Create(context.Background(), tag))
	assert.Equal(t, int64(12), tag.ID)
}

func TestRepoCreate_DuplicateIsConflict(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tags")).WillReturnError(duplicateEntry)

	err := repo.Create(context.Background(), &Tag{UserID: "u1", Name: "Food", Color: "#FF5733"})
	assert.Equal(t, 409, apperror.SafeCode(err))
}

func TestRepoFindByID(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, name, color, is_shared, created_at, updated_at FROM tags WHERE id = ?")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(tagCols).AddRow(3, "u1", "Food", "#FF5733", true, now, now))

	tag, err := repo.FindByID(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "Food", tag.Name)
	assert.True(t, tag.IsShared)
}

func TestRepoFindByID_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM tags WHERE id = ?")).
		WillReturnRows(sqlmock.NewRows(tagCols))

	_, err := repo.FindByID(context.Background(), 3)
	assert.True(t, apperror.IsNotFound(err))
}

func TestRepoListByUser_EmptyIsNotNil(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM tags WHERE user_id = ? ORDER BY name")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(tagCols))

	tags, err := repo.ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.NotNil(t, tags)
	assert.Empty(t, tags)
}

func TestRepoNameExists(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM tags WHERE user_id = ? AND name = ? AND id <> ?)")).
		WithArgs("u1", "Food", int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.NameExists(context.Background(), "u1", "Food", 4)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRepoDelete_NoRowIsNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tags WHERE id = ?")).
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.True(t, apperror.IsNotFound(repo.Delete(context.Background(), 9)))
}

func TestRepoAddShare_RecomputesInSameTx(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tag_shares (tag_id, shared_by_user_id, shared_with_user_id) VALUES (?, ?, ?)")).
		WithArgs(int64(1), "owner", "friend").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("SET is_shared = EXISTS(SELECT 1 FROM tag_shares WHERE tag_id = ?)")).
		WithArgs(int64(1), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.AddShare(context.Background(), 1, "owner", "friend"))
}

func TestRepoAddShare_DuplicateRollsBack(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tag_shares")).WillReturnError(duplicateEntry)
	mock.ExpectRollback()

	err := repo.AddShare(context.Background(), 1, "owner", "friend")
	assert.Equal(t, 409, apperror.SafeCode(err))
}

func TestRepoRemoveShare_RecomputeFailureRollsBack(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tag_shares WHERE tag_id = ? AND shared_with_user_id = ?")).
		WithArgs(int64(1), "friend").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("SET is_shared = EXISTS")).
		WillReturnError(errors.New("deadlock"))
	mock.ExpectRollback()

	err := repo.RemoveShare(context.Background(), 1, "friend")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recomputing is_shared")
}

func TestRepoListSharedWith_IncludesOwner(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	cols := append(append([]string{}, tagCols...), "uid", "uname", "uemail")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE s.shared_with_user_id = ?")).
		WithArgs("friend").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(1, "owner", "Food", "#FF5733", true, now, now, "owner", "Olivia", "o@example.com"))

	shared, err := repo.ListSharedWith(context.Background(), "friend")
	require.NoError(t, err)
	require.Len(t, shared, 1)
	assert.Equal(t, "Olivia", shared[0].User.Name)
	assert.Equal(t, "owner", shared[0].UserID)
}
