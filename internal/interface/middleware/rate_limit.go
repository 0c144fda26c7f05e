package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/user-registry/pkg/response"
)

// KeyFunc builds the counter key for a request.
type KeyFunc func(c *gin.Context) string

// AllowFunc returns true when the request skips the limiter.
type AllowFunc func(c *gin.Context) bool

// KeyByIP limits per client address across all routes of the group.
func KeyByIP(prefix string) KeyFunc {
	return func(c *gin.Context) string {
		return "rl:" + prefix + ":ip:" + clientIP(c)
	}
}

// KeyByIPAndRoute limits per client address and matched route, so writes and
// reads on /users get separate budgets.
func KeyByIPAndRoute(prefix string) KeyFunc {
	return func(c *gin.Context) string {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		return "rl:" + prefix + ":" + c.Request.Method + ":" + route + ":ip:" + clientIP(c)
	}
}

// INCR and PEXPIRE in one round trip; returns count and remaining ttl in ms.
var incrExpireScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {current, redis.call("PTTL", KEYS[1])}
`)

// RateLimiter is a fixed-window counter stored in redis.
type RateLimiter struct {
	Redis  redis.Scripter
	Max    int
	Window time.Duration
	Key    KeyFunc
	Allow  AllowFunc
	Logger *logrus.Logger
}

// Handler returns a pass-through middleware when the limiter is not
// configured. Redis failures fail open.
func (l *RateLimiter) Handler() gin.HandlerFunc {
	if l == nil || l.Redis == nil || l.Max <= 0 || l.Window <= 0 || l.Key == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions || (l.Allow != nil && l.Allow(c)) {
			c.Next()
			return
		}

		count, ttl, err := l.hit(c, l.Key(c))
		if err != nil {
			if l.Logger != nil {
				l.Logger.WithError(err).Warn("rate limiter unavailable")
			}
			c.Next()
			return
		}

		resetSec := int((ttl + time.Second - 1) / time.Second)
		remaining := l.Max - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(l.Max))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.Itoa(resetSec))

		if count > l.Max {
			if resetSec > 0 {
				c.Header("Retry-After", strconv.Itoa(resetSec))
			}
			response.Fail(c, http.StatusTooManyRequests, "rate limit exceeded", nil)
			return
		}
		c.Next()
	}
}

func (l *RateLimiter) hit(c *gin.Context, key string) (int, time.Duration, error) {
	res, err := incrExpireScript.Run(c.Request.Context(), l.Redis, []string{key}, l.Window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, 0, err
	}
	if len(res) != 2 {
		return 0, 0, redis.Nil
	}
	ttl := time.Duration(res[1]) * time.Millisecond
	if ttl < 0 {
		ttl = 0
	}
	return int(res[0]), ttl, nil
}
