package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/LavaJover/shvark-payment-service/internal/delivery/http/dto/payment/request"
	"github.com/LavaJover/shvark-payment-service/internal/delivery/http/dto/payment/response"
	"github.com/LavaJover/shvark-payment-service/internal/domain"
	paymentdto "github.com/LavaJover/shvark-payment-service/internal/usecase/dto/payment"
	paymentuc "github.com/LavaJover/shvark-payment-service/internal/usecase/payment"
	"github.com/gin-gonic/gin"
)

// maxNotifyBody caps a gateway notification; real ones are a few KB.
const maxNotifyBody = 64 << 10

const (
	notifyAck  = "success"
	notifyNack = "fail"
)

type PaymentHandler struct {
	uc paymentuc.PaymentUsecase
}

func NewPaymentHandler(uc paymentuc.PaymentUsecase) *PaymentHandler {
	return &PaymentHandler{uc: uc}
}

func (h *PaymentHandler) CreateOrder(c *gin.Context) {
	var req request.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errors.Join(domain.ErrInvalidRequest, err))
		return
	}

	out, err := h.uc.CreateOrder(c.Request.Context(), &paymentdto.CreateOrderInput{
		UserID:    req.UserID,
		Amount:    req.Amount,
		Subject:   req.Subject,
		ReturnURL: req.ReturnURL,
		Channel:   req.Channel,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	writeOK(c, response.CreateOrderResponse{
		PayURL:   out.PaymentURL,
		OrderRef: out.OrderRef,
	})
}

// Notify answers the gateway in its own plain-text protocol: anything other
// than "success" makes it redeliver.
func (h *PaymentHandler) Notify(c *gin.Context) {
	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxNotifyBody))
	if err != nil {
		slog.Warn("failed to read gateway notification", "error", err.Error())
		c.String(http.StatusOK, notifyNack)
		return
	}

	res, err := h.uc.HandleCallback(c.Request.Context(), raw)
	if res == nil || !res.Ack {
		if err != nil {
			slog.Debug("gateway notification refused", "error", err.Error())
		}
		c.String(http.StatusOK, notifyNack)
		return
	}
	c.String(http.StatusOK, notifyAck)
}

func (h *PaymentHandler) Status(c *gin.Context) {
	var q request.StatusQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeError(c, errors.Join(domain.ErrInvalidRequest, err))
		return
	}

	out, err := h.uc.PollStatus(c.Request.Context(), &paymentdto.PollInput{
		OrderRef: q.OrderRef,
		UserID:   q.UserID,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	writeOK(c, response.StatusResponse{
		OrderRef: out.OrderRef,
		Status:   string(out.Status),
		ExpireAt: out.ExpireAt,
	})
}

func (h *PaymentHandler) Refund(c *gin.Context) {
	var req request.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errors.Join(domain.ErrInvalidRequest, err))
		return
	}

	out, err := h.uc.Refund(c.Request.Context(), &paymentdto.RefundInput{
		OrderRef:   req.OrderRef,
		Amount:     req.RefundAmount,
		Reason:     req.Reason,
		OperatorID: req.OperatorID,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	writeOK(c, response.RefundResponse{
		RefundRef: out.RefundRef,
		Status:    string(out.Status),
	})
}
