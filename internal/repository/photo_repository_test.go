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

func photoCols() []string {
	return []string{"id", "product_id", "product_photo", "approved", "created_at", "updated_at"}
}

func TestPhotoRepo_LatestByProductTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPhotoRepo(db)
	ctx := context.Background()
	now := time.Now()

	t.Run("newest photo regardless of state", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("FROM photos WHERE product_id = ? ORDER BY id DESC LIMIT 1")).
			WithArgs(uint64(5)).
			WillReturnRows(sqlmock.NewRows(photoCols()).
				AddRow(9, 5, "http://minio/images/PHOTO1_2026-08-31_1756600000.jpg", 1, now, now))

		tx, err := db.BeginTx(ctx, nil)
		require.NoError(t, err)

		p, err := repo.LatestByProductTx(ctx, tx, 5)
		require.NoError(t, err)
		assert.Equal(t, uint64(9), p.ID)
		assert.Equal(t, int8(1), p.Approved)
	})

	t.Run("no photo at all", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("FROM photos WHERE product_id = ? ORDER BY id DESC LIMIT 1")).
			WithArgs(uint64(5)).
			WillReturnError(sql.ErrNoRows)

		tx, err := db.BeginTx(ctx, nil)
		require.NoError(t, err)

		_, err = repo.LatestByProductTx(ctx, tx, 5)
		assert.ErrorIs(t, err, ErrPhotoNotFound)
	})
}

func TestPhotoRepo_LatestOpenByProductTxSkipsApproved(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPhotoRepo(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE product_id = ? AND approved = 0 ORDER BY id DESC LIMIT 1")).
		WithArgs(uint64(5)).
		WillReturnError(sql.ErrNoRows)

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)

	_, err = repo.LatestOpenByProductTx(ctx, tx, 5)
	assert.ErrorIs(t, err, ErrPhotoNotFound)
}

func TestPhotoRepo_ListAllJoinsProducts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPhotoRepo(db)
	now := time.Now()

	cols := []string{
		"ph.id", "ph.product_id", "ph.product_photo", "ph.approved", "ph.created_at", "ph.updated_at",
		"p.id", "p.user_id", "p.name", "p.created_at", "p.updated_at",
	}
	mock.ExpectQuery("ORDER BY ph.id DESC LIMIT").
		WithArgs(10, 10).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(9, 5, "http://minio/images/a.jpg", 0, now, now, 5, 2, "Handbag", now, now))

	out, err := repo.ListAll(context.Background(), 10, 10)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.NotNil(t, out[0].Product)
	assert.Equal(t, uint64(2), out[0].Product.UserID)
}
