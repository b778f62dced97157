// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/rudrakv/storefront-api/internal/config"
	"github.com/rudrakv/storefront-api/internal/handler"
	"github.com/rudrakv/storefront-api/internal/middleware"
	"github.com/rudrakv/storefront-api/internal/model"
	"github.com/rudrakv/storefront-api/internal/repository"
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance: a health check for load balancers and the
// Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers authentication routes and their middleware.
// Unauthenticated operations live under /v1/auth, while protected account
// endpoints live under /v1. Register and login share a rate limiter so a
// single client cannot hammer the password hasher.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, users *repository.UserRepo, secret string, rdb *redis.Client) {
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	g := e.Group("/v1/auth")
	g.Use(limiter)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)

	auth := e.Group("/v1")
	auth.Use(middleware.RequireAuth(secret, users))
	auth.GET("/me", a.Me)
	auth.PATCH("/me/password", a.ChangePassword)
	auth.POST("/auth/logout-all", a.LogoutAll)
}

// RegisterCatalog registers unauthenticated browse endpoints. Product reads
// go through the Redis response cache so repeated catalog hits skip MySQL.
func RegisterCatalog(e *echo.Echo, c *handler.CatalogHandler, rdb *redis.Client) {
	cache := middleware.NewCatalogCache(config.LoadCacheConfig(), rdb)
	e.GET("/v1/products", c.List, cache)
	e.GET("/v1/products/:id", c.Get, cache)
}

// RegisterAccount registers the delivery address book under /v1/addresses.
// All routes require a valid session.
func RegisterAccount(e *echo.Echo, h *handler.AddressHandler, users *repository.UserRepo, secret string) {
	g := e.Group("/v1/addresses")
	g.Use(middleware.RequireAuth(secret, users))
	g.GET("", h.List)
	g.POST("", h.Create)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/default", h.SetDefault)
}

// RegisterOrders registers order placement and retrieval. Placement is rate
// limited per client. Status transitions are restricted to staff roles.
func RegisterOrders(e *echo.Echo, h *handler.OrderHandler, users *repository.UserRepo, secret string, rdb *redis.Client) {
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	g := e.Group("/v1/orders")
	g.Use(middleware.RequireAuth(secret, users))
	g.POST("", h.Place, limiter)
	g.GET("", h.ListMine)
	g.GET("/:id", h.Get)

	staff := e.Group("/v1/orders")
	staff.Use(middleware.RequireAuth(secret, users, model.RoleAdmin, model.RoleRider))
	staff.PATCH("/:id/status", h.UpdateStatus)
}
