package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Oluwablin/photography/internal/queue"
	"github.com/Oluwablin/photography/internal/repository"
	"github.com/Oluwablin/photography/internal/storage"
	"github.com/Oluwablin/photography/internal/validate"
)

// photoExts is the upload whitelist, matched against the file extension.
var photoExts = []string{"jpg", "png"}

// PhotoHandler serves photo submission and the owner's approve/reject
// resolution. Submit, approve and reject all serialize on a per-product
// advisory lock so the open request and its latest photo cannot change
// between the guard checks and the writes.
type PhotoHandler struct {
	Products *repository.ProductRepo
	Requests *repository.RequestRepo
	Photos   *repository.PhotoRepo
	Users    *repository.UserRepo
	Store    storage.Storage
	Notify   Notifier
}

// List returns one page of all photos with their products, newest first.
// The listing is shared across roles, which is what makes it cacheable.
func (h *PhotoHandler) List(c echo.Context) error {
	page, offset := pageParam(c)

	items, err := h.Photos.ListAll(c.Request().Context(), perPage, offset)
	if err != nil {
		return respond(c, http.StatusInternalServerError, true, "Photos could not be fetched", nil)
	}
	return respond(c, http.StatusOK, false, nil, listData(items, page))
}

// Create stores a photographer's upload against a product's open request.
// The object is uploaded before the transaction opens; if the insert then
// fails the object is orphaned in the bucket, which is acceptable; the
// reverse order could commit a row pointing at nothing.
func (h *PhotoHandler) Create(c echo.Context) error {
	fh, _ := c.FormFile("product_photo")
	productParam := c.FormValue("product_id")

	if verr := validate.First(
		validate.FileRequired(fh, "Photo attachment is required."),
		validate.FileTypes(fh, photoExts, []string{"The product photo must be a file of type: jpg, png."}),
		validate.Required(productParam, "Product id is required."),
	); verr != nil {
		return respond(c, http.StatusUnprocessableEntity, true, verr.Message, nil)
	}
	ctx := c.Request().Context()

	productID, err := strconv.ParseUint(productParam, 10, 64)
	if err != nil {
		return respond(c, http.StatusUnprocessableEntity, true, "Product not found", nil)
	}
	product, err := h.Products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return respond(c, http.StatusUnprocessableEntity, true, "Product not found", nil)
		}
		return respond(c, http.StatusInternalServerError, true, "Photo could not be created", nil)
	}

	src, err := fh.Open()
	if err != nil {
		return respond(c, http.StatusInternalServerError, true, "Photo could not be created", nil)
	}
	defer src.Close()

	_, url, err := h.Store.UploadPhoto(ctx, fh.Filename, src, fh.Size)
	if err != nil {
		return respond(c, http.StatusInternalServerError, true, "Photo could not be created", nil)
	}

	tx, err := h.Photos.DB().BeginTx(ctx, nil)
	if err != nil {
		return respond(c, http.StatusInternalServerError, true, "Photo could not be created", nil)
	}
	// The advisory lock lives on the tx's session, so it must be released
	// before the tx ends or the pooled connection keeps holding it.
	committed := false
	defer func() {
		if !committed {
			h.Products.ReleaseLockTx(ctx, tx, product.ID)
			_ = tx.Rollback()
		}
	}()

	if err := h.Products.AcquireLockTx(ctx, tx, product.ID); err != nil {
		return respond(c, http.StatusConflict, true, "Product is busy, try again", nil)
	}

	if _, err := h.Requests.FirstOpenByProductTx(ctx, tx, product.ID); err != nil {
		if errors.Is(err, repository.ErrRequestNotFound) {
			return respond(c, http.StatusUnprocessableEntity, true, "Request not found", nil)
		}
		return respond(c, http.StatusInternalServerError, true, "Photo could not be created", nil)
	}

	photo := &repository.Photo{ProductID: product.ID, ProductPhoto: url}
	if err := h.Photos.CreateTx(ctx, tx, photo); err != nil {
		return respond(c, http.StatusInternalServerError, true, "Photo could not be created", nil)
	}
	h.Products.ReleaseLockTx(ctx, tx, product.ID)
	if err := tx.Commit(); err != nil {
		return respond(c, http.StatusInternalServerError, true, "Photo could not be created", nil)
	}
	committed = true

	if h.Notify != nil {
		ev := queue.PhotoSubmittedEvent{
			PhotoID:     photo.ID,
			ProductID:   product.ID,
			ProductName: product.Name,
			OwnerID:     product.UserID,
			PhotoURL:    url,
			SubmittedAt: time.Now().UTC().Format(time.RFC3339),
		}
		if owner, err := h.Users.GetByID(ctx, product.UserID); err == nil {
			ev.OwnerEmail = owner.Email
		}
		_ = h.Notify.PhotoSubmitted(ctx, ev)
	}

	return respond(c, http.StatusCreated, false, "Photo created successfully", photo)
}

// Approve marks the latest photo of the owner's product as approved and
// closes the open request, both in one transaction. Approving an already
// approved photo succeeds without writing anything.
func (h *PhotoHandler) Approve(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respond(c, http.StatusUnauthorized, true, "invalid token", nil)
	}
	ctx := c.Request().Context()

	product, err := h.Products.FirstByOwner(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return respond(c, http.StatusUnprocessableEntity, true, "Product not found for this user", nil)
		}
		return respond(c, http.StatusInternalServerError, true, "Photo could not be approved", nil)
	}

	tx, err := h.Photos.DB().BeginTx(ctx, nil)
	if err != nil {
		return respond(c, http.StatusInternalServerError, true, "Photo could not be approved", nil)
	}
	committed := false
	defer func() {
		if !committed {
			h.Products.ReleaseLockTx(ctx, tx, product.ID)
			_ = tx.Rollback()
		}
	}()

	if err := h.Products.AcquireLockTx(ctx, tx, product.ID); err != nil {
		return respond(c, http.StatusConflict, true, "Product is busy, try again", nil)
	}

	req, err := h.Requests.FirstOpenByProductTx(ctx, tx, product.ID)
	if err != nil {
		if !errors.Is(err, repository.ErrRequestNotFound) {
			return respond(c, http.StatusInternalServerError, true, "Photo could not be approved", nil)
		}
		// No open request. If the latest photo is already approved this
		// is a repeat of a completed approval and succeeds untouched.
		photo, perr := h.Photos.LatestByProductTx(ctx, tx, product.ID)
		if perr == nil && photo.Approved == 1 {
			h.Products.ReleaseLockTx(ctx, tx, product.ID)
			if cerr := tx.Commit(); cerr != nil {
				return respond(c, http.StatusInternalServerError, true, "Photo could not be approved", nil)
			}
			committed = true
			return respond(c, http.StatusOK, false, "Photo Approved", photo)
		}
		return respond(c, http.StatusUnprocessableEntity, true, "Request not found for this user", nil)
	}

	photo, err := h.Photos.LatestOpenByProductTx(ctx, tx, product.ID)
	if err != nil {
		if errors.Is(err, repository.ErrPhotoNotFound) {
			return respond(c, http.StatusUnprocessableEntity, true, "Photo not found for this user", nil)
		}
		return respond(c, http.StatusInternalServerError, true, "Photo could not be approved", nil)
	}

	if err := h.Photos.SetApprovedTx(ctx, tx, photo.ID, 1); err != nil {
		return respond(c, http.StatusInternalServerError, true, "Photo could not be approved", nil)
	}
	if err := h.Requests.MarkFulfilledTx(ctx, tx, req.ID); err != nil {
		return respond(c, http.StatusInternalServerError, true, "Photo could not be approved", nil)
	}
	h.Products.ReleaseLockTx(ctx, tx, product.ID)
	if err := tx.Commit(); err != nil {
		return respond(c, http.StatusInternalServerError, true, "Photo could not be approved", nil)
	}
	committed = true

	photo.Approved = 1
	return respond(c, http.StatusOK, false, "Photo Approved", photo)
}

// Reject resolves the latest unapproved photo of the owner's product as
// rejected. The request stays open so another photo can be submitted; the
// photo row keeps approved=0.
func (h *PhotoHandler) Reject(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respond(c, http.StatusUnauthorized, true, "invalid token", nil)
	}
	ctx := c.Request().Context()

	product, err := h.Products.FirstByOwner(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return respond(c, http.StatusUnprocessableEntity, true, "Product not found for this user", nil)
		}
		return respond(c, http.StatusInternalServerError, true, "Photo could not be rejected", nil)
	}

	tx, err := h.Photos.DB().BeginTx(ctx, nil)
	if err != nil {
		return respond(c, http.StatusInternalServerError, true, "Photo could not be rejected", nil)
	}
	committed := false
	defer func() {
		if !committed {
			h.Products.ReleaseLockTx(ctx, tx, product.ID)
			_ = tx.Rollback()
		}
	}()

	if err := h.Products.AcquireLockTx(ctx, tx, product.ID); err != nil {
		return respond(c, http.StatusConflict, true, "Product is busy, try again", nil)
	}

	if _, err := h.Requests.FirstOpenByProductTx(ctx, tx, product.ID); err != nil {
		if errors.Is(err, repository.ErrRequestNotFound) {
			return respond(c, http.StatusUnprocessableEntity, true, "Request not found for this user", nil)
		}
		return respond(c, http.StatusInternalServerError, true, "Photo could not be rejected", nil)
	}

	photo, err := h.Photos.LatestOpenByProductTx(ctx, tx, product.ID)
	if err != nil {
		if errors.Is(err, repository.ErrPhotoNotFound) {
			return respond(c, http.StatusUnprocessableEntity, true, "Photo not found for this user", nil)
		}
		return respond(c, http.StatusInternalServerError, true, "Photo could not be rejected", nil)
	}

	if err := h.Photos.SetApprovedTx(ctx, tx, photo.ID, 0); err != nil {
		return respond(c, http.StatusInternalServerError, true, "Photo could not be rejected", nil)
	}
	h.Products.ReleaseLockTx(ctx, tx, product.ID)
	if err := tx.Commit(); err != nil {
		return respond(c, http.StatusInternalServerError, true, "Photo could not be rejected", nil)
	}
	committed = true

	return respond(c, http.StatusOK, false, "Photo Rejected", nil)
}
