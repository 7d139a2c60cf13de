package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/LavaJover/shvark-payment-service/internal/delivery/http/dto/payment/response"
	"github.com/LavaJover/shvark-payment-service/internal/domain"
	"github.com/gin-gonic/gin"
)

func writeOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, response.Envelope{Code: response.CodeOK, Message: "ok", Data: data})
}

func writeError(c *gin.Context, err error) {
	status, code, message := mapError(err)
	if status >= http.StatusInternalServerError {
		slog.Error("payment request failed",
			"path", c.FullPath(),
			"status", status,
			"error", err.Error(),
		)
	}
	c.JSON(status, response.Envelope{Code: code, Message: message})
}

func mapError(err error) (int, int, string) {
	var rejected *domain.RefundRejectedError
	switch {
	case errors.As(err, &rejected):
		return http.StatusBadGateway, response.CodeGateway, rejected.Message
	case errors.Is(err, domain.ErrInvalidAmount):
		return http.StatusBadRequest, response.CodeInvalidAmount, err.Error()
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest, response.CodeInvalidRequest, err.Error()
	case errors.Is(err, domain.ErrOrderNotFound):
		return http.StatusNotFound, response.CodeNotFound, "order not found"
	case errors.Is(err, domain.ErrInvalidState):
		return http.StatusConflict, response.CodeInvalidState, err.Error()
	case errors.Is(err, domain.ErrGatewayRequest):
		return http.StatusBadGateway, response.CodeGateway, "payment gateway unavailable"
	}
	return http.StatusInternalServerError, response.CodeInternal, "internal error"
}
