package modules

import (
	"expvar"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/user-registry/internal/interface/middleware"
)

// DebugModule serves expvar counters, including user event publish counts.
type DebugModule struct {
	Limiter *middleware.RateLimiter
}

func NewDebugModule(limiter *middleware.RateLimiter) *DebugModule {
	if limiter != nil {
		limiter.Allow = middleware.AllowPrivateIP()
	}
	return &DebugModule{Limiter: limiter}
}

func (m *DebugModule) Register(rg *gin.RouterGroup) {
	rg.GET("/debug/vars", m.Limiter.Handler(), gin.WrapH(expvar.Handler()))
}
