package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/LavaJover/shvark-payment-service/internal/delivery/http/dto/payment/response"
	cache "github.com/LavaJover/shvark-payment-service/internal/infrastructure/redis"
	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"
)

// KEYS[1]=limiter key; ARGV: now(ms), window start(ms), window(s), member, limit.
// Returns the request count inside the window, or -1 when the limit is hit.
const luaSlidingWindow = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local windowStart = tonumber(ARGV[2])
local windowSec = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, '0', windowStart)

local count = redis.call('ZCARD', key)
if count < tonumber(ARGV[5]) then
  redis.call('ZADD', key, now, member)
  redis.call('EXPIRE', key, windowSec)
  return count + 1
end
return -1
`

// PollRateLimit throttles status polling per user_id, then order_ref, then
// client IP. Redis errors let the request through.
func PollRateLimit(rdb *rd.Client, limit int, window time.Duration) gin.HandlerFunc {
	windowSec := int64(window / time.Second)
	if windowSec < 1 {
		windowSec = 1
	}

	return func(c *gin.Context) {
		key := cache.PollRateLimitKey(pollSubject(c))

		now := time.Now()
		nowMs := now.UnixMilli()
		windowStart := nowMs - windowSec*1000
		member := fmt.Sprintf("%d-%d", nowMs, now.UnixNano())

		res, err := rdb.Eval(c.Request.Context(), luaSlidingWindow, []string{key},
			nowMs, windowStart, windowSec, member, limit).Int()
		if err != nil {
			slog.Warn("poll rate limiter unavailable", "error", err.Error())
			c.Next()
			return
		}

		if res < 0 {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, response.Envelope{
				Code:    response.CodeRateLimited,
				Message: "too many status requests, slow down",
			})
			return
		}
		c.Next()
	}
}

func pollSubject(c *gin.Context) string {
	if userID := strings.TrimSpace(c.Query("user_id")); userID != "" {
		return "user:" + userID
	}
	if ref := strings.TrimSpace(c.Query("order_ref")); ref != "" {
		return "order:" + ref
	}
	return "ip:" + c.ClientIP()
}
