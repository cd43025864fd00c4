package middleware // middleware contains reusable HTTP middleware functions

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/Oluwablin/photography/internal/utils"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and injects the token's claims into the request context. Handlers read
// the authenticated principal via `c.Get("user_id")` and `c.Get("roles")`.
// Tokens whose jti is on the logout denylist are rejected even though the
// signature is still valid.
//
// Error responses use the same {error, message, data} envelope as the
// handlers so clients see one shape everywhere.
func JWTAuth(secret string, deny *utils.Denylist) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			raw := ""
			if strings.HasPrefix(auth, "Bearer ") {
				raw = strings.TrimPrefix(auth, "Bearer ")
			} else if t := c.QueryParam("token"); t != "" {
				// The token may also ride in a query parameter for clients
				// that cannot set headers.
				raw = t
			}
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": true, "message": "missing bearer token", "data": nil})
			}

			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				// Only HMAC is accepted; reject tokens signed another way.
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.ErrUnauthorized
				}
				return []byte(secret), nil
			})
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": true, "message": "invalid token", "data": nil})
			}

			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": true, "message": "invalid claims", "data": nil})
			}

			jti, _ := claims["jti"].(string)
			if deny.Revoked(c.Request().Context(), jti) {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": true, "message": "token revoked", "data": nil})
			}

			c.Set("user_id", claims["sub"])
			c.Set("roles", roleSlugs(claims["roles"]))
			c.Set("token_jti", jti)
			if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
				c.Set("token_exp", exp.Time)
			}
			return next(c)
		}
	}
}

// roleSlugs normalizes the roles claim to []string. JSON decoding yields
// []interface{}, so both shapes are handled.
func roleSlugs(v interface{}) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, r := range t {
			if s, ok := r.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
