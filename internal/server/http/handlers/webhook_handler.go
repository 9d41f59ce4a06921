package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/soloviev-d/ordercore/internal/domain/errors"
	"github.com/soloviev-d/ordercore/internal/domain/model"
	"github.com/soloviev-d/ordercore/internal/server/http/dto"
)

// WebhookHandler receives payment gateway notifications. The contract
// with the gateway is acknowledge-or-retry: any outcome we can never
// recover from by retrying (bad signature, unknown order, wrong amount,
// impossible transition) is logged and acknowledged with 200 so the
// gateway stops resending it. Only a persistence failure returns 5xx.
type WebhookHandler struct {
	payments PaymentFacade
	logger   *slog.Logger
}

// NewWebhookHandler constructs WebhookHandler.
func NewWebhookHandler(payments PaymentFacade, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{payments: payments, logger: logger}
}

// Receive handles POST /api/payments/webhook.
func (h *WebhookHandler) Receive(c *gin.Context) {
	var req dto.WebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// malformed payload: retrying won't fix it either
		h.logger.Error("malformed webhook payload", slog.String("error", err.Error()))
		c.JSON(http.StatusOK, dto.WebhookResponse{Status: "ignored"})
		return
	}

	result, err := h.payments.ProcessWebhook(c.Request.Context(), model.GatewayNotification{
		OrderNumber:       req.OrderID,
		TransactionID:     req.TransactionID,
		TransactionStatus: req.TransactionStatus,
		PaymentType:       req.PaymentType,
		GrossAmount:       req.GrossAmount,
		Signature:         req.SignatureKey,
	})
	if err != nil {
		if unrecoverable(err) {
			h.logger.Error("webhook rejected",
				slog.String("order", req.OrderID),
				slog.String("transaction_id", req.TransactionID),
				slog.String("error", err.Error()),
			)
			c.JSON(http.StatusOK, dto.WebhookResponse{Status: "rejected"})
			return
		}
		h.logger.Error("webhook processing failed",
			slog.String("order", req.OrderID),
			slog.String("transaction_id", req.TransactionID),
			slog.String("error", err.Error()),
		)
		c.Status(http.StatusInternalServerError)
		return
	}

	if result.Duplicate {
		c.JSON(http.StatusOK, dto.WebhookResponse{Status: "ok", Duplicate: true})
		return
	}
	c.JSON(http.StatusOK, dto.WebhookResponse{Status: "ok"})
}

func unrecoverable(err error) bool {
	return errors.Is(err, domainErrors.ErrInvalidSignature) ||
		errors.Is(err, domainErrors.ErrOrderNotFound) ||
		errors.Is(err, domainErrors.ErrAmountMismatch) ||
		errors.Is(err, domainErrors.ErrInvalidTransition) ||
		errors.Is(err, domainErrors.ErrUnknownStatus)
}
