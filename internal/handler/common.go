package handler // handler defines http handlers

import (
	"context"
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Oluwablin/photography/internal/queue"
)

// Role slugs the API authorizes against. Checks compare slugs only; the
// numeric role level in the database is never consulted.
const (
	RoleProductOwner = "product.owner"
	RolePhotographer = "photographer"
)

// perPage is the fixed page size for all listings (offset paging only).
const perPage = 10

// envelope is the uniform response shape of every endpoint. Message is a
// string, an array of strings (some validation messages), or null.
type envelope struct {
	Error   bool `json:"error"`
	Message any  `json:"message"`
	Data    any  `json:"data"`
}

// respond writes the envelope with the given status.
func respond(c echo.Context, status int, errFlag bool, message, data any) error {
	return c.JSON(status, envelope{Error: errFlag, Message: message, Data: data})
}

// Notifier publishes fire-and-forget notification events. Handlers treat
// a nil Notifier as "notifications disabled" and never let a publish
// failure affect the response.
type Notifier interface {
	UserRegistered(ctx context.Context, ev queue.UserRegisteredEvent) error
	PhotoSubmitted(ctx context.Context, ev queue.PhotoSubmittedEvent) error
}

// getUserID extracts the authenticated user id from echo.Context. The JWT
// middleware stores the raw sub claim, which decodes as float64; tests
// store typed values directly.
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// pageParam reads ?page=N (1-based) and returns the page plus its offset.
func pageParam(c echo.Context) (page, offset int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	return page, (page - 1) * perPage
}

// listData wraps one page of items for the envelope's data field.
func listData(items any, page int) echo.Map {
	return echo.Map{"items": items, "page": page, "per_page": perPage}
}
