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

// ProductHandler serves the owner-scoped product CRUD. Every query is
// constrained to the authenticated owner; another owner's product id
// behaves exactly like a missing one.
type ProductHandler struct {
	Products *repository.ProductRepo
}

type productRequest struct {
	Name string `json:"name" form:"name"`
}

// Create adds a product for the authenticated owner.
func (h *ProductHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respond(c, http.StatusUnauthorized, true, "invalid token", nil)
	}
	var req productRequest
	if err := c.Bind(&req); err != nil {
		return respond(c, http.StatusUnprocessableEntity, true, "invalid request body", nil)
	}
	if verr := validate.First(
		validate.Required(req.Name, "Product name is required."),
	); verr != nil {
		return respond(c, http.StatusUnprocessableEntity, true, verr.Message, nil)
	}

	p := &repository.Product{UserID: uid, Name: req.Name}
	if err := h.Products.Create(c.Request().Context(), p); err != nil {
		return respond(c, http.StatusInternalServerError, true, "Product could not be created", nil)
	}
	return respond(c, http.StatusCreated, false, "Product created successfully", p)
}

// List returns one page of the owner's products, oldest first.
func (h *ProductHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respond(c, http.StatusUnauthorized, true, "invalid token", nil)
	}
	page, offset := pageParam(c)

	items, err := h.Products.ListByOwner(c.Request().Context(), uid, perPage, offset)
	if err != nil {
		return respond(c, http.StatusInternalServerError, true, "Products could not be fetched", nil)
	}
	return respond(c, http.StatusOK, false, nil, listData(items, page))
}

// Show fetches one of the owner's products by id.
func (h *ProductHandler) Show(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respond(c, http.StatusUnauthorized, true, "invalid token", nil)
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return respond(c, http.StatusNotFound, true, "Product not found for this user", nil)
	}

	p, err := h.Products.GetByIDAndOwner(c.Request().Context(), id, uid)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return respond(c, http.StatusNotFound, true, "Product not found for this user", nil)
		}
		return respond(c, http.StatusInternalServerError, true, "Product could not be fetched", nil)
	}
	return respond(c, http.StatusOK, false, nil, p)
}

// Update renames one of the owner's products.
func (h *ProductHandler) Update(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respond(c, http.StatusUnauthorized, true, "invalid token", nil)
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return respond(c, http.StatusNotFound, true, "Product not found for this user", nil)
	}
	var req productRequest
	if err := c.Bind(&req); err != nil {
		return respond(c, http.StatusUnprocessableEntity, true, "invalid request body", nil)
	}
	if verr := validate.First(
		validate.Required(req.Name, "Product name is required."),
	); verr != nil {
		return respond(c, http.StatusUnprocessableEntity, true, verr.Message, nil)
	}
	ctx := c.Request().Context()

	if err := h.Products.UpdateName(ctx, id, uid, req.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return respond(c, http.StatusNotFound, true, "Product not found for this user", nil)
		}
		return respond(c, http.StatusInternalServerError, true, "Product could not be updated", nil)
	}
	p, err := h.Products.GetByIDAndOwner(ctx, id, uid)
	if err != nil {
		return respond(c, http.StatusInternalServerError, true, "Product could not be updated", nil)
	}
	return respond(c, http.StatusOK, false, "Product updated successfully", p)
}

// Delete removes one of the owner's products. Products with requests or
// photos attached are refused rather than cascading the delete.
func (h *ProductHandler) Delete(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respond(c, http.StatusUnauthorized, true, "invalid token", nil)
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return respond(c, http.StatusNotFound, true, "Product not found for this user", nil)
	}

	if err := h.Products.DeleteByIDAndOwner(c.Request().Context(), id, uid); err != nil {
		switch {
		case errors.Is(err, repository.ErrProductNotFound):
			return respond(c, http.StatusNotFound, true, "Product not found for this user", nil)
		case errors.Is(err, repository.ErrConflict):
			return respond(c, http.StatusConflict, true, "Product has requests or photos attached", nil)
		}
		return respond(c, http.StatusInternalServerError, true, "Product could not be deleted", nil)
	}
	return c.NoContent(http.StatusNoContent)
}
