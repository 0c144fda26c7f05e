package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/user-registry/internal/interface/http"
	"github.com/oksasatya/user-registry/internal/interface/middleware"
)

// UserModule exposes the user records:
//
//	POST   /api/users
//	GET    /api/users
//	GET    /api/users/:id
//	PUT    /api/users/:id
//	DELETE /api/users/:id
type UserModule struct {
	Handler *handlers.UserHandler
	Limiter *middleware.RateLimiter
}

func NewUserModule(h *handlers.UserHandler, limiter *middleware.RateLimiter) *UserModule {
	return &UserModule{Handler: h, Limiter: limiter}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	users := rg.Group("/users")
	users.Use(m.Limiter.Handler())
	{
		users.POST("", m.Handler.Create)
		users.GET("", m.Handler.List)
		users.GET("/:id", m.Handler.Get)
		users.PUT("/:id", m.Handler.Update)
		users.DELETE("/:id", m.Handler.Delete)
	}
}
