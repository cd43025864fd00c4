package handler

import (
	"database/sql"
	"net/http"

	"github.com/labstack/echo/v4"
)

// HealthHandler reports liveness plus a database ping.
type HealthHandler struct {
	DB *sql.DB
}

func (h *HealthHandler) Check(c echo.Context) error {
	if h.DB != nil {
		if err := h.DB.PingContext(c.Request().Context()); err != nil {
			return respond(c, http.StatusServiceUnavailable, true, "database unreachable", nil)
		}
	}
	return respond(c, http.StatusOK, false, "ok", echo.Map{"status": "up"})
}

// NotFound is the fallback for unmatched routes.
func NotFound(c echo.Context) error {
	return respond(c, http.StatusNotFound, true, "Route don't exist", nil)
}
