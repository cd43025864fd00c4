package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func productCols() []string {
	return []string{"id", "user_id", "name", "created_at", "updated_at"}
}

func TestProductRepo_GetByIDAndOwner(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewProductRepo(db)
	ctx := context.Background()
	now := time.Now()

	t.Run("owned product is returned", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, name, created_at, updated_at FROM products WHERE id = ? AND user_id = ?")).
			WithArgs(uint64(3), uint64(1)).
			WillReturnRows(sqlmock.NewRows(productCols()).AddRow(3, 1, "Camera bag", now, now))

		p, err := repo.GetByIDAndOwner(ctx, 3, 1)
		require.NoError(t, err)
		assert.Equal(t, "Camera bag", p.Name)
	})

	t.Run("someone else's product reads as missing", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("WHERE id = ? AND user_id = ?")).
			WithArgs(uint64(3), uint64(2)).
			WillReturnError(sql.ErrNoRows)

		_, err := repo.GetByIDAndOwner(ctx, 3, 2)
		assert.ErrorIs(t, err, ErrProductNotFound)
	})
}

func TestProductRepo_FirstByOwnerPicksLowestID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewProductRepo(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE user_id = ? ORDER BY id LIMIT 1")).
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows(productCols()).AddRow(2, 1, "First product", now, now))

	p, err := repo.FirstByOwner(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), p.ID)
}

func TestProductRepo_UpdateName(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewProductRepo(db)
	ctx := context.Background()

	t.Run("renames owned product", func(t *testing.T) {
		mock.ExpectExec("UPDATE products").
			WithArgs("New name", uint64(3), uint64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.UpdateName(ctx, 3, 1, "New name"))
	})

	t.Run("no affected row means not found", func(t *testing.T) {
		mock.ExpectExec("UPDATE products").
			WithArgs("New name", uint64(3), uint64(99)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.UpdateName(ctx, 3, 99, "New name"), sql.ErrNoRows)
	})
}

func TestProductRepo_DeleteByIDAndOwner(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes when owned and unreferenced", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT user_id FROM products WHERE id = ?")).
			WithArgs(uint64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(1))
		mock.ExpectQuery("SELECT \\(SELECT COUNT").
			WithArgs(uint64(3), uint64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"dependents"}).AddRow(0))
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM products WHERE id = ?")).
			WithArgs(uint64(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		repo := NewProductRepo(db)
		require.NoError(t, repo.DeleteByIDAndOwner(ctx, 3, 1))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("refuses other owner's product", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT user_id FROM products WHERE id = ?")).
			WithArgs(uint64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(2))
		mock.ExpectRollback()

		repo := NewProductRepo(db)
		assert.ErrorIs(t, repo.DeleteByIDAndOwner(ctx, 3, 1), ErrProductNotFound)
	})

	t.Run("refuses product with dependents", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT user_id FROM products WHERE id = ?")).
			WithArgs(uint64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(1))
		mock.ExpectQuery("SELECT \\(SELECT COUNT").
			WithArgs(uint64(3), uint64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"dependents"}).AddRow(2))
		mock.ExpectRollback()

		repo := NewProductRepo(db)
		assert.ErrorIs(t, repo.DeleteByIDAndOwner(ctx, 3, 1), ErrConflict)
	})
}

func TestProductRepo_AcquireLockTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewProductRepo(db)
	ctx := context.Background()

	t.Run("lock granted", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT GET_LOCK").
			WithArgs(uint64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"lock"}).AddRow(1))

		tx, err := db.BeginTx(ctx, nil)
		require.NoError(t, err)
		assert.NoError(t, repo.AcquireLockTx(ctx, tx, 3))
	})

	t.Run("lock held elsewhere", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT GET_LOCK").
			WithArgs(uint64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"lock"}).AddRow(0))

		tx, err := db.BeginTx(ctx, nil)
		require.NoError(t, err)
		assert.ErrorIs(t, repo.AcquireLockTx(ctx, tx, 3), ErrConflict)
	})
}
