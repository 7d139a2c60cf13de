package router

import (
	"net/http"
	"time"

	"github.com/LavaJover/shvark-payment-service/internal/delivery/http/handlers"
	"github.com/LavaJover/shvark-payment-service/internal/delivery/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	rd "github.com/redis/go-redis/v9"
)

type Options struct {
	AdminToken     string
	PollRateLimit  int
	PollRateWindow time.Duration
	// Gatherer backs /metrics; nil leaves the endpoint out.
	Gatherer prometheus.Gatherer
}

// Setup registers every HTTP route. A nil rdb disables the poll limiter.
func Setup(r *gin.Engine, h *handlers.PaymentHandler, rdb *rd.Client, opts Options) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	if opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	payments := r.Group("/api/v1/payments")
	payments.POST("/orders", h.CreateOrder)
	payments.POST("/notify", h.Notify)

	poll := []gin.HandlerFunc{h.Status}
	if rdb != nil && opts.PollRateLimit > 0 {
		poll = append([]gin.HandlerFunc{middleware.PollRateLimit(rdb, opts.PollRateLimit, opts.PollRateWindow)}, poll...)
	}
	payments.GET("/status", poll...)

	admin := r.Group("/api/v1/admin/payments", middleware.AdminToken(opts.AdminToken))
	admin.POST("/refund", h.Refund)
}
