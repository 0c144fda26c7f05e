package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/user-registry/internal/container"
	handlers "github.com/oksasatya/user-registry/internal/interface/http"
	"github.com/oksasatya/user-registry/internal/interface/middleware"
	"github.com/oksasatya/user-registry/internal/router/modules"
)

// New builds the gin engine with global middleware and every module
// registered under /api.
func New(c *container.Container) *gin.Engine {
	cfg := c.Config

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID(), middleware.RealIP())
	if origins := cfg.CORSOrigins(); len(origins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader},
			ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader, "X-RateLimit-Remaining"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	if cfg.HTTPLogEnabled {
		r.Use(gin.Logger())
	}

	reg := NewRegistry(r)
	InitModules(reg, c)
	reg.RegisterAll()
	return r
}

// InitModules wires feature modules from the container.
func InitModules(reg *Registry, c *container.Container) {
	limiter := func(prefix string, max int, key func(string) middleware.KeyFunc) *middleware.RateLimiter {
		if c.Redis == nil {
			return nil
		}
		return &middleware.RateLimiter{
			Redis:  c.Redis,
			Max:    max,
			Window: time.Minute,
			Key:    key(prefix),
			Logger: c.Logger,
		}
	}

	userHandler := handlers.NewUserHandler(c.Users, c.Logger)
	reg.Add(
		modules.NewHealthModule(c),
		modules.NewUserModule(userHandler, limiter("users", c.Config.RateLimitPerMinute, middleware.KeyByIPAndRoute)),
	)
	if c.Config.DebugMetricsEnabled {
		reg.Add(modules.NewDebugModule(limiter("debug", 120, middleware.KeyByIP)))
	}
}
