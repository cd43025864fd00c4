package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Oluwablin/photography/internal/repository"
	"github.com/Oluwablin/photography/internal/validate"
)

// RequestHandler serves photo requests. Owners manage requests against
// their own product; the open-request listing is the photographers' work
// queue. Owner writes resolve the product through the ownership resolver
// (lowest product id), so the product_id field of the payload is required
// but never trusted.
type RequestHandler struct {
	Products *repository.ProductRepo
	Requests *repository.RequestRepo
}

type requestPayload struct {
	Name      string `json:"name" form:"name"`
	ProductID string `json:"product_id" form:"product_id"`
}

// List returns one page of open requests with their products, oldest
// first. Photographer role only (enforced by the router).
func (h *RequestHandler) List(c echo.Context) error {
	page, offset := pageParam(c)

	items, err := h.Requests.ListOpen(c.Request().Context(), perPage, offset)
	if err != nil {
		return respond(c, http.StatusInternalServerError, true, "Requests could not be fetched", nil)
	}
	return respond(c, http.StatusOK, false, nil, listData(items, page))
}

// Show fetches a single request by id, any authenticated role.
func (h *RequestHandler) Show(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return respond(c, http.StatusNotFound, true, "Request not found for this user", nil)
	}

	req, err := h.Requests.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrRequestNotFound) {
			return respond(c, http.StatusNotFound, true, "Request not found for this user", nil)
		}
		return respond(c, http.StatusInternalServerError, true, "Request could not be fetched", nil)
	}
	return respond(c, http.StatusOK, false, nil, req)
}

// Create opens a new request against the owner's product.
func (h *RequestHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respond(c, http.StatusUnauthorized, true, "invalid token", nil)
	}
	var req requestPayload
	if err := c.Bind(&req); err != nil {
		return respond(c, http.StatusUnprocessableEntity, true, "invalid request body", nil)
	}
	if verr := validate.First(
		validate.Required(req.Name, "Request name is required."),
		validate.Required(req.ProductID, "Product id is required."),
	); verr != nil {
		return respond(c, http.StatusUnprocessableEntity, true, verr.Message, nil)
	}
	ctx := c.Request().Context()

	product, err := h.Products.FirstByOwner(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return respond(c, http.StatusUnprocessableEntity, true, "You have no product yet, go and create one before making requests.", nil)
		}
		return respond(c, http.StatusInternalServerError, true, "Request could not be created", nil)
	}

	tx, err := h.Requests.DB().BeginTx(ctx, nil)
	if err != nil {
		return respond(c, http.StatusInternalServerError, true, "Request could not be created", nil)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	pr := &repository.ProductRequest{ProductID: product.ID, Name: req.Name}
	if err := h.Requests.CreateTx(ctx, tx, pr); err != nil {
		return respond(c, http.StatusInternalServerError, true, "Request could not be created", nil)
	}
	if err := tx.Commit(); err != nil {
		return respond(c, http.StatusInternalServerError, true, "Request could not be created", nil)
	}
	committed = true

	return respond(c, http.StatusCreated, false, "Request created successfully", pr)
}

// Update renames one of the owner's requests.
func (h *RequestHandler) Update(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respond(c, http.StatusUnauthorized, true, "invalid token", nil)
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return respond(c, http.StatusNotFound, true, "Request not found for this user", nil)
	}
	var req requestPayload
	if err := c.Bind(&req); err != nil {
		return respond(c, http.StatusUnprocessableEntity, true, "invalid request body", nil)
	}
	if verr := validate.First(
		validate.Required(req.Name, "Request name is required."),
		validate.Required(req.ProductID, "Product id is required."),
	); verr != nil {
		return respond(c, http.StatusUnprocessableEntity, true, verr.Message, nil)
	}
	ctx := c.Request().Context()

	product, err := h.Products.FirstByOwner(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return respond(c, http.StatusUnprocessableEntity, true, "You have no product yet, go and create one before updating requests.", nil)
		}
		return respond(c, http.StatusInternalServerError, true, "Request could not be updated", nil)
	}

	if err := h.Requests.UpdateName(ctx, id, product.ID, req.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return respond(c, http.StatusNotFound, true, "Request not found for this user", nil)
		}
		return respond(c, http.StatusInternalServerError, true, "Request could not be updated", nil)
	}
	updated, err := h.Requests.GetByIDAndProduct(ctx, id, product.ID)
	if err != nil {
		return respond(c, http.StatusInternalServerError, true, "Request could not be updated", nil)
	}
	return respond(c, http.StatusOK, false, "Request updated successfully", updated)
}

// Delete removes one of the owner's requests.
func (h *RequestHandler) Delete(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respond(c, http.StatusUnauthorized, true, "invalid token", nil)
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return respond(c, http.StatusNotFound, true, "Request not found for this user", nil)
	}
	ctx := c.Request().Context()

	product, err := h.Products.FirstByOwner(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return respond(c, http.StatusUnprocessableEntity, true, "You have no product yet, go and create one before you delete requests.", nil)
		}
		return respond(c, http.StatusInternalServerError, true, "Request could not be deleted", nil)
	}

	if err := h.Requests.Delete(ctx, id, product.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return respond(c, http.StatusNotFound, true, "Request not found for this user", nil)
		}
		return respond(c, http.StatusInternalServerError, true, "Request could not be deleted", nil)
	}
	return c.NoContent(http.StatusNoContent)
}
