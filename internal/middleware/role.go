package middleware // middleware provides shared request processing for handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireRole enforces that the authenticated user holds the given role
// slug. The message is endpoint-specific ("You are not a Product Owner")
// because the API contract carries the wording in the response envelope.
// It assumes JWTAuth already stored the role slugs under "roles".
func RequireRole(slug, message string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !HasRole(c, slug) {
				return c.JSON(http.StatusForbidden, echo.Map{"error": true, "message": message, "data": nil})
			}
			return next(c)
		}
	}
}

// HasRole reports whether the authenticated user carries the role slug.
// Handlers covering mixed-role groups call this directly.
func HasRole(c echo.Context, slug string) bool {
	roles, _ := c.Get("roles").([]string)
	for _, r := range roles {
		if r == slug {
			return true
		}
	}
	return false
}
