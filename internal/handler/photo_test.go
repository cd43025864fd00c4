package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Oluwablin/photography/internal/queue"
	"github.com/Oluwablin/photography/internal/repository"
)

// fakeStorage stands in for MinIO during handler tests.
type fakeStorage struct {
	url string
	err error
}

func (f *fakeStorage) UploadPhoto(_ context.Context, _ string, _ io.Reader, _ int64) (string, string, error) {
	return "PHOTO1_2026-08-31_1756600000.jpg", f.url, f.err
}

// fakeNotifier records published events.
type fakeNotifier struct {
	registered []queue.UserRegisteredEvent
	submitted  []queue.PhotoSubmittedEvent
}

func (f *fakeNotifier) UserRegistered(_ context.Context, ev queue.UserRegisteredEvent) error {
	f.registered = append(f.registered, ev)
	return nil
}

func (f *fakeNotifier) PhotoSubmitted(_ context.Context, ev queue.PhotoSubmittedEvent) error {
	f.submitted = append(f.submitted, ev)
	return nil
}

func newPhotoHandler(t *testing.T) (*PhotoHandler, sqlmock.Sqlmock, *fakeNotifier, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	notify := &fakeNotifier{}
	h := &PhotoHandler{
		Products: repository.NewProductRepo(db),
		Requests: repository.NewRequestRepo(db),
		Photos:   repository.NewPhotoRepo(db),
		Users:    repository.NewUserRepo(db),
		Store:    &fakeStorage{url: "http://minio/images/PHOTO1_2026-08-31_1756600000.jpg"},
		Notify:   notify,
	}
	return h, mock, notify, func() { db.Close() }
}

func ownerContext(t *testing.T, method string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", uint64(2))
	return c, rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func expectFirstByOwner(mock sqlmock.Sqlmock, ownerID, productID uint64) {
	now := time.Now()
	mock.ExpectQuery("WHERE user_id = \\? ORDER BY id LIMIT 1").
		WithArgs(ownerID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name", "created_at", "updated_at"}).
			AddRow(productID, ownerID, "Handbag", now, now))
}

func expectLock(mock sqlmock.Sqlmock, productID uint64) {
	mock.ExpectQuery("SELECT GET_LOCK").
		WithArgs(productID).
		WillReturnRows(sqlmock.NewRows([]string{"lock"}).AddRow(1))
}

func expectUnlock(mock sqlmock.Sqlmock, productID uint64) {
	mock.ExpectQuery("SELECT RELEASE_LOCK").
		WithArgs(productID).
		WillReturnRows(sqlmock.NewRows([]string{"unlock"}).AddRow(1))
}

func requestRows(id, productID uint64) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "product_id", "name", "fulfilled", "created_at", "updated_at"}).
		AddRow(id, productID, "Front shot", 0, now, now)
}

func photoRows(id, productID uint64, approved int8) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "product_id", "product_photo", "approved", "created_at", "updated_at"}).
		AddRow(id, productID, "http://minio/images/a.jpg", approved, now, now)
}

func TestApproveClosesRequestAndPhotoTogether(t *testing.T) {
	h, mock, _, done := newPhotoHandler(t)
	defer done()

	expectFirstByOwner(mock, 2, 5)
	mock.ExpectBegin()
	expectLock(mock, 5)
	mock.ExpectQuery("WHERE product_id = \\? AND fulfilled = 0 ORDER BY id LIMIT 1").
		WithArgs(uint64(5)).
		WillReturnRows(requestRows(1, 5))
	mock.ExpectQuery("WHERE product_id = \\? AND approved = 0 ORDER BY id DESC LIMIT 1").
		WithArgs(uint64(5)).
		WillReturnRows(photoRows(9, 5, 0))
	mock.ExpectExec("UPDATE photos SET approved").
		WithArgs(int8(1), uint64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE product_requests SET fulfilled = 1").
		WithArgs(uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectUnlock(mock, 5)
	mock.ExpectCommit()

	c, rec := ownerContext(t, http.MethodPost)
	require.NoError(t, h.Approve(c))

	env := decodeEnvelope(t, rec)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Photo Approved", env.Message)
	assert.NoError(t, mock.ExpectationsWereMet())

	data, ok := env.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), data["approved"])
}

func TestApproveIsIdempotent(t *testing.T) {
	h, mock, _, done := newPhotoHandler(t)
	defer done()

	// Request already fulfilled, latest photo already approved: success
	// without touching either row.
	expectFirstByOwner(mock, 2, 5)
	mock.ExpectBegin()
	expectLock(mock, 5)
	mock.ExpectQuery("WHERE product_id = \\? AND fulfilled = 0 ORDER BY id LIMIT 1").
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "product_id", "name", "fulfilled", "created_at", "updated_at"}))
	mock.ExpectQuery("WHERE product_id = \\? ORDER BY id DESC LIMIT 1").
		WithArgs(uint64(5)).
		WillReturnRows(photoRows(9, 5, 1))
	expectUnlock(mock, 5)
	mock.ExpectCommit()

	c, rec := ownerContext(t, http.MethodPost)
	require.NoError(t, h.Approve(c))

	env := decodeEnvelope(t, rec)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Photo Approved", env.Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApproveGuards(t *testing.T) {
	t.Run("owner without product", func(t *testing.T) {
		h, mock, _, done := newPhotoHandler(t)
		defer done()

		mock.ExpectQuery("WHERE user_id = \\? ORDER BY id LIMIT 1").
			WithArgs(uint64(2)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name", "created_at", "updated_at"}))

		c, rec := ownerContext(t, http.MethodPost)
		require.NoError(t, h.Approve(c))

		env := decodeEnvelope(t, rec)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "Product not found for this user", env.Message)
	})

	t.Run("no open request and no approved photo", func(t *testing.T) {
		h, mock, _, done := newPhotoHandler(t)
		defer done()

		expectFirstByOwner(mock, 2, 5)
		mock.ExpectBegin()
		expectLock(mock, 5)
		mock.ExpectQuery("WHERE product_id = \\? AND fulfilled = 0 ORDER BY id LIMIT 1").
			WithArgs(uint64(5)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "product_id", "name", "fulfilled", "created_at", "updated_at"}))
		mock.ExpectQuery("WHERE product_id = \\? ORDER BY id DESC LIMIT 1").
			WithArgs(uint64(5)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "product_id", "product_photo", "approved", "created_at", "updated_at"}))
		expectUnlock(mock, 5)
		mock.ExpectRollback()

		c, rec := ownerContext(t, http.MethodPost)
		require.NoError(t, h.Approve(c))

		env := decodeEnvelope(t, rec)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "Request not found for this user", env.Message)
	})

	t.Run("open request but no photo yet", func(t *testing.T) {
		h, mock, _, done := newPhotoHandler(t)
		defer done()

		expectFirstByOwner(mock, 2, 5)
		mock.ExpectBegin()
		expectLock(mock, 5)
		mock.ExpectQuery("WHERE product_id = \\? AND fulfilled = 0 ORDER BY id LIMIT 1").
			WithArgs(uint64(5)).
			WillReturnRows(requestRows(1, 5))
		mock.ExpectQuery("WHERE product_id = \\? AND approved = 0 ORDER BY id DESC LIMIT 1").
			WithArgs(uint64(5)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "product_id", "product_photo", "approved", "created_at", "updated_at"}))
		expectUnlock(mock, 5)
		mock.ExpectRollback()

		c, rec := ownerContext(t, http.MethodPost)
		require.NoError(t, h.Approve(c))

		env := decodeEnvelope(t, rec)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "Photo not found for this user", env.Message)
	})
}

func TestRejectLeavesRequestOpen(t *testing.T) {
	h, mock, _, done := newPhotoHandler(t)
	defer done()

	expectFirstByOwner(mock, 2, 5)
	mock.ExpectBegin()
	expectLock(mock, 5)
	mock.ExpectQuery("WHERE product_id = \\? AND fulfilled = 0 ORDER BY id LIMIT 1").
		WithArgs(uint64(5)).
		WillReturnRows(requestRows(1, 5))
	mock.ExpectQuery("WHERE product_id = \\? AND approved = 0 ORDER BY id DESC LIMIT 1").
		WithArgs(uint64(5)).
		WillReturnRows(photoRows(9, 5, 0))
	// Only the photo row is written; the request stays open.
	mock.ExpectExec("UPDATE photos SET approved").
		WithArgs(int8(0), uint64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectUnlock(mock, 5)
	mock.ExpectCommit()

	c, rec := ownerContext(t, http.MethodPost)
	require.NoError(t, h.Reject(c))

	env := decodeEnvelope(t, rec)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Photo Rejected", env.Message)
	assert.Nil(t, env.Data)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func multipartBody(t *testing.T, filename, productID string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	if filename != "" {
		fw, err := w.CreateFormFile("product_photo", filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte("not-really-a-jpeg"))
		require.NoError(t, err)
	}
	if productID != "" {
		require.NoError(t, w.WriteField("product_id", productID))
	}
	require.NoError(t, w.Close())
	return buf, w.FormDataContentType()
}

func TestSubmitPhoto(t *testing.T) {
	t.Run("missing attachment", func(t *testing.T) {
		h, _, _, done := newPhotoHandler(t)
		defer done()

		body, ctype := multipartBody(t, "", "5")
		e := echo.New()
		req := httptest.NewRequest(http.MethodPost, "/", body)
		req.Header.Set(echo.HeaderContentType, ctype)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.Set("user_id", uint64(3))

		require.NoError(t, h.Create(c))
		env := decodeEnvelope(t, rec)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "Photo attachment is required.", env.Message)
	})

	t.Run("wrong file type", func(t *testing.T) {
		h, _, _, done := newPhotoHandler(t)
		defer done()

		body, ctype := multipartBody(t, "shot.gif", "5")
		e := echo.New()
		req := httptest.NewRequest(http.MethodPost, "/", body)
		req.Header.Set(echo.HeaderContentType, ctype)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.Set("user_id", uint64(3))

		require.NoError(t, h.Create(c))
		env := decodeEnvelope(t, rec)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, []any{"The product photo must be a file of type: jpg, png."}, env.Message)
	})

	t.Run("stores photo and notifies the owner", func(t *testing.T) {
		h, mock, notify, done := newPhotoHandler(t)
		defer done()

		now := time.Now()
		mock.ExpectQuery("FROM products WHERE id = \\?").
			WithArgs(uint64(5)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name", "created_at", "updated_at"}).
				AddRow(5, 2, "Handbag", now, now))
		mock.ExpectBegin()
		expectLock(mock, 5)
		mock.ExpectQuery("WHERE product_id = \\? AND fulfilled = 0 ORDER BY id LIMIT 1").
			WithArgs(uint64(5)).
			WillReturnRows(requestRows(1, 5))
		mock.ExpectExec("INSERT INTO photos").
			WithArgs(uint64(5), "http://minio/images/PHOTO1_2026-08-31_1756600000.jpg").
			WillReturnResult(sqlmock.NewResult(9, 1))
		mock.ExpectQuery("SELECT product_id, product_photo, approved, created_at, updated_at FROM photos WHERE id = \\?").
			WithArgs(uint64(9)).
			WillReturnRows(sqlmock.NewRows([]string{"product_id", "product_photo", "approved", "created_at", "updated_at"}).
				AddRow(5, "http://minio/images/PHOTO1_2026-08-31_1756600000.jpg", 0, now, now))
		expectUnlock(mock, 5)
		mock.ExpectCommit()
		mock.ExpectQuery("FROM users WHERE id").
			WithArgs(uint64(2)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "firstname", "lastname", "email", "password_hash", "is_active", "created_at", "updated_at"}).
				AddRow(2, "Owner", "One", "owner@example.com", "x", 1, now, now))

		body, ctype := multipartBody(t, "shot.jpg", "5")
		e := echo.New()
		req := httptest.NewRequest(http.MethodPost, "/", body)
		req.Header.Set(echo.HeaderContentType, ctype)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.Set("user_id", uint64(3))

		require.NoError(t, h.Create(c))
		env := decodeEnvelope(t, rec)
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "Photo created successfully", env.Message)
		assert.NoError(t, mock.ExpectationsWereMet())

		require.Len(t, notify.submitted, 1)
		assert.Equal(t, uint64(9), notify.submitted[0].PhotoID)
		assert.Equal(t, "owner@example.com", notify.submitted[0].OwnerEmail)
	})

	t.Run("no open request rejects the upload", func(t *testing.T) {
		h, mock, notify, done := newPhotoHandler(t)
		defer done()

		now := time.Now()
		mock.ExpectQuery("FROM products WHERE id = \\?").
			WithArgs(uint64(5)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name", "created_at", "updated_at"}).
				AddRow(5, 2, "Handbag", now, now))
		mock.ExpectBegin()
		expectLock(mock, 5)
		mock.ExpectQuery("WHERE product_id = \\? AND fulfilled = 0 ORDER BY id LIMIT 1").
			WithArgs(uint64(5)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "product_id", "name", "fulfilled", "created_at", "updated_at"}))
		expectUnlock(mock, 5)
		mock.ExpectRollback()

		body, ctype := multipartBody(t, "shot.jpg", "5")
		e := echo.New()
		req := httptest.NewRequest(http.MethodPost, "/", body)
		req.Header.Set(echo.HeaderContentType, ctype)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.Set("user_id", uint64(3))

		require.NoError(t, h.Create(c))
		env := decodeEnvelope(t, rec)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "Request not found", env.Message)
		assert.Empty(t, notify.submitted)
	})
}
