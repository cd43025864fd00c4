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

func requestJoinCols() []string {
	return []string{
		"pr.id", "pr.product_id", "pr.name", "pr.fulfilled", "pr.created_at", "pr.updated_at",
		"p.id", "p.user_id", "p.name", "p.created_at", "p.updated_at",
	}
}

func TestRequestRepo_ListOpen(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRequestRepo(db)
	now := time.Now()

	mock.ExpectQuery("WHERE pr.fulfilled = 0 ORDER BY pr.id LIMIT").
		WithArgs(10, 0).
		WillReturnRows(sqlmock.NewRows(requestJoinCols()).
			AddRow(1, 5, "Front shot", 0, now, now, 5, 2, "Handbag", now, now).
			AddRow(4, 5, "Side shot", 0, now, now, 5, 2, "Handbag", now, now))

	out, err := repo.ListOpen(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, uint64(1), out[0].ID)
	require.NotNil(t, out[0].Product)
	assert.Equal(t, "Handbag", out[0].Product.Name)
	assert.Equal(t, int8(0), out[1].Fulfilled)
}

func TestRequestRepo_FirstOpenByProductTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRequestRepo(db)
	ctx := context.Background()
	now := time.Now()

	t.Run("oldest open request wins", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("WHERE product_id = ? AND fulfilled = 0 ORDER BY id LIMIT 1")).
			WithArgs(uint64(5)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "product_id", "name", "fulfilled", "created_at", "updated_at"}).
				AddRow(1, 5, "Front shot", 0, now, now))

		tx, err := db.BeginTx(ctx, nil)
		require.NoError(t, err)

		req, err := repo.FirstOpenByProductTx(ctx, tx, 5)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), req.ID)
	})

	t.Run("no open request", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("WHERE product_id = ? AND fulfilled = 0 ORDER BY id LIMIT 1")).
			WithArgs(uint64(5)).
			WillReturnError(sql.ErrNoRows)

		tx, err := db.BeginTx(ctx, nil)
		require.NoError(t, err)

		_, err = repo.FirstOpenByProductTx(ctx, tx, 5)
		assert.ErrorIs(t, err, ErrRequestNotFound)
	})
}

func TestRequestRepo_UpdateAndDeleteAreProductScoped(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRequestRepo(db)
	ctx := context.Background()

	mock.ExpectExec("UPDATE product_requests").
		WithArgs("New name", uint64(1), uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, repo.UpdateName(ctx, 1, 5, "New name"))

	// A request id under another owner's product touches zero rows.
	mock.ExpectExec("UPDATE product_requests").
		WithArgs("New name", uint64(1), uint64(6)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.UpdateName(ctx, 1, 6, "New name"), sql.ErrNoRows)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM product_requests WHERE id = ? AND product_id = ?")).
		WithArgs(uint64(1), uint64(6)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Delete(ctx, 1, 6), sql.ErrNoRows)
}
