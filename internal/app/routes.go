package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/felix-phuctran/base-be-go/internal/middleware"
	"github.com/felix-phuctran/base-be-go/internal/pkg"
)

// PublicPaths lists the API routes reachable without a bearer token. Logout
// is public because it authenticates through the refresh token it revokes.
var PublicPaths = []string{
	"/api/v1/auth/register",
	"/api/v1/auth/login",
	"/api/v1/auth/refresh",
	"/api/v1/auth/logout",
	"/api/v1/auth/verify",
}

// RouteDeps holds all dependencies needed to register routes.
type RouteDeps struct {
	Modules     []Module
	DB          *gorm.DB
	Redis       *redis.Client
	TokenParser middleware.TokenParser
	PublicPaths []string
}

// RegisterRoutes registers all application routes on the given gin.Engine.
func RegisterRoutes(r *gin.Engine, deps *RouteDeps) error {
	if r == nil {
		return errors.New("router is nil")
	}
	if deps == nil {
		return errors.New("route dependencies are nil")
	}
	if len(deps.Modules) == 0 {
		return errors.New("at least one module is required")
	}
	if deps.TokenParser == nil {
		return errors.New("token parser is required")
	}

	// Health check is unauthenticated.
	r.GET("/health", healthHandler(deps.DB, deps.Redis))

	api := r.Group("/api/v1")
	api.Use(middleware.Auth(deps.TokenParser, deps.PublicPaths))

	for i, m := range deps.Modules {
		if m == nil {
			return fmt.Errorf("module at index %d is nil", i)
		}
		m.RegisterRoutes(api)
	}

	r.NoRoute(noRouteHandler())

	return nil
}

// healthHandler pings the database and, when configured, the cache, and
// reports per-component status.
func healthHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "ok"
		code := http.StatusOK
		components := gin.H{}

		dbStatus := "ok"
		if db == nil {
			dbStatus = "error"
		} else if sqlDB, err := db.DB(); err != nil {
			dbStatus = "error"
		} else {
			ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
			defer cancel()
			if err := sqlDB.PingContext(ctx); err != nil {
				dbStatus = "error"
			}
		}
		components["database"] = dbStatus
		if dbStatus != "ok" {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		if rdb != nil {
			cacheStatus := "ok"
			ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
			defer cancel()
			if err := rdb.Ping(ctx).Err(); err != nil {
				cacheStatus = "error"
				status = "degraded"
				code = http.StatusServiceUnavailable
			}
			components["cache"] = cacheStatus
		}

		c.JSON(code, gin.H{
			"status":     status,
			"components": components,
		})
	}
}

func noRouteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusNotFound, pkg.Response{Code: http.StatusNotFound, Message: "not found"})
	}
}
