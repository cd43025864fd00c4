package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/Oluwablin/photography/internal/config"
	"github.com/Oluwablin/photography/internal/handler"
	"github.com/Oluwablin/photography/internal/middleware"
	"github.com/Oluwablin/photography/internal/utils"
)

// Handlers collects everything the route table needs. main builds one of
// these and hands it over; the router owns which middleware guards which
// group.
type Handlers struct {
	Auth     *handler.AuthHandler
	Products *handler.ProductHandler
	Requests *handler.RequestHandler
	Photos   *handler.PhotoHandler
	Health   *handler.HealthHandler
}

// Register wires every route of the API onto the Echo instance. Protected
// groups run JWTAuth first; role checks sit per group so the 403 message
// can name the role the endpoint wanted.
func Register(e *echo.Echo, h Handlers, cfg config.Config, deny *utils.Denylist, rdb *redis.Client) {
	// Unmatched paths answer with the API envelope instead of Echo's default.
	e.RouteNotFound("/*", handler.NotFound)

	e.GET("/v1/healthz", h.Health.Check)

	// Rate limiting covers the whole /v1 surface, unauthenticated included.
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	// Open endpoints: register and login.
	open := e.Group("/v1/auth", limiter)
	open.POST("/create", h.Auth.Register)
	open.POST("/login", h.Auth.Login)

	// Everything below requires a valid, non-revoked access token.
	auth := e.Group("/v1", limiter, middleware.JWTAuth(cfg.JWTSecret, deny))
	auth.POST("/logout", h.Auth.Logout)
	auth.GET("/me", h.Auth.Me)

	// Product CRUD is owner-only.
	owner := middleware.RequireRole(handler.RoleProductOwner, "You are not a Product Owner")
	product := auth.Group("/product", owner)
	product.GET("/fetch/all", h.Products.List)
	product.GET("/fetch/one/:id", h.Products.Show)
	product.POST("/add/new", h.Products.Create)
	product.PUT("/update/:id", h.Products.Update)
	product.DELETE("/delete/:id", h.Products.Delete)

	// The open-request listing is the photographers' work queue; show is
	// readable by any authenticated role; the writes are owner-only.
	photographer := middleware.RequireRole(handler.RolePhotographer, "You are not a Photographer")
	request := auth.Group("/product_request")
	request.GET("/fetch/all", h.Requests.List, photographer)
	request.GET("/fetch/one/:id", h.Requests.Show)
	request.POST("/add/new", h.Requests.Create, owner)
	request.PUT("/update/:id", h.Requests.Update, owner)
	request.DELETE("/delete/:id", h.Requests.Delete, owner)

	// The photo listing is identical for every caller, so it is the one
	// route behind the shared response cache.
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	photo := auth.Group("/photo")
	photo.GET("/fetch/all", h.Photos.List, cache)
	photo.POST("/add/new", h.Photos.Create, photographer)
	photo.POST("/approve", h.Photos.Approve, owner)
	photo.POST("/reject", h.Photos.Reject, owner)
}
