// Package router wires handlers and middleware onto an echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/quote-board/internal/config"
	"github.com/iliyamo/quote-board/internal/handler"
	"github.com/iliyamo/quote-board/internal/middleware"
)

// Deps is everything the routes need.  Redis may be nil, which disables
// rate limiting; DB may be nil, which makes /healthz a pure liveness check.
type Deps struct {
	Cfg    config.Config
	Auth   *handler.AuthHandler
	Quotes *handler.QuoteHandler
	Redis  *redis.Client
	DB     handler.Pinger
}

// New returns an echo instance with the global middleware, the error
// handler and every route registered.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.Validator{}
	e.HTTPErrorHandler = handler.HTTPErrorHandler

	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger())
	e.Use(echomw.Recover())

	RegisterRoutes(e, d)
	return e
}

// RegisterRoutes registers all routes.  Reads accept an optional token so
// that quote views can carry the caller's own vote; writes require one and
// are rate limited.
func RegisterRoutes(e *echo.Echo, d Deps) {
	limit := middleware.NewTokenBucket(d.Cfg.RateLimit, d.Redis)
	requireAuth := middleware.JWTAuth(d.Cfg.JWTSecret)
	optionalAuth := middleware.OptionalJWT(d.Cfg.JWTSecret)

	e.GET("/healthz", handler.Health(d.DB))

	// Account
	e.POST("/signup", d.Auth.Signup, limit)
	e.POST("/login", d.Auth.Login, limit)
	e.POST("/refresh", d.Auth.Refresh, limit)
	e.POST("/logout", d.Auth.Logout, requireAuth)

	me := e.Group("/me", requireAuth)
	me.GET("", d.Auth.Me)
	me.PUT("/update-password", d.Auth.UpdatePassword, limit)

	// Quotes
	q := e.Group("/quotes")
	q.GET("", d.Quotes.List, optionalAuth)
	q.GET("/random", d.Quotes.Random, optionalAuth)
	q.GET("/:id", d.Quotes.Get, optionalAuth)
	q.GET("/:id/votes", d.Quotes.Votes)
	q.POST("", d.Quotes.Create, requireAuth, limit)
	q.PUT("/:id", d.Quotes.Edit, requireAuth, limit)
	q.DELETE("/:id", d.Quotes.Delete, requireAuth, limit)
	q.POST("/:id/:type", d.Quotes.Vote, requireAuth, limit)

	// Anything else is a 404 envelope.
	e.RouteNotFound("/*", func(c echo.Context) error { return echo.ErrNotFound })
}
