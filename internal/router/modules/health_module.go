package modules

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/user-registry/pkg/response"
)

// Pinger reports backend health keyed by backend name.
type Pinger interface {
	Ping(ctx context.Context) map[string]error
}

type HealthModule struct {
	Pinger Pinger
}

func NewHealthModule(p Pinger) *HealthModule { return &HealthModule{Pinger: p} }

func (m *HealthModule) Register(rg *gin.RouterGroup) {
	rg.GET("/healthz", m.healthz)
}

func (m *HealthModule) healthz(c *gin.Context) {
	checks := map[string]string{}
	healthy := true
	for name, err := range m.Pinger.Ping(c.Request.Context()) {
		if err != nil {
			checks[name] = err.Error()
			healthy = false
			continue
		}
		checks[name] = "ok"
	}
	if !healthy {
		response.Fail(c, http.StatusServiceUnavailable, "unhealthy", checks)
		return
	}
	response.OK(c, http.StatusOK, checks, "ok", nil)
}
