package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/LavaJover/shvark-payment-service/internal/delivery/http/dto/payment/response"
	"github.com/gin-gonic/gin"
)

const AdminTokenHeader = "X-Admin-Token"

// AdminToken guards operator endpoints. An empty configured token rejects
// every request.
func AdminToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(AdminTokenHeader)
		if token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			slog.Warn("admin request with invalid token",
				"path", c.FullPath(),
				"client_ip", c.ClientIP(),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Envelope{
				Code:    response.CodeUnauthorized,
				Message: "invalid admin token",
			})
			return
		}
		c.Next()
	}
}
