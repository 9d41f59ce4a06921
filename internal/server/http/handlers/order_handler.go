package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/soloviev-d/ordercore/internal/domain/errors"
	"github.com/soloviev-d/ordercore/internal/domain/model"
	"github.com/soloviev-d/ordercore/internal/domain/repository"
	"github.com/soloviev-d/ordercore/internal/server/http/dto"
	"github.com/soloviev-d/ordercore/internal/usecase"
)

// OrderHandler manages checkout and order endpoints.
type OrderHandler struct {
	orders   OrderFacade
	payments PaymentFacade
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(orders OrderFacade, payments PaymentFacade) *OrderHandler {
	return &OrderHandler{orders: orders, payments: payments}
}

// Checkout handles POST /api/checkout.
func (h *OrderHandler) Checkout(c *gin.Context) {
	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	items := make([]repository.CheckoutItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, repository.CheckoutItem{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}

	order, err := h.orders.Checkout(c.Request.Context(), usecase.CheckoutInput{
		UserID:        req.UserID,
		Items:         items,
		ShippingCost:  req.ShippingCost,
		Discount:      req.Discount,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		var stockErr *domainErrors.InsufficientStockError
		switch {
		case errors.As(err, &stockErr):
			shortages := make([]dto.ShortageResponse, 0, len(stockErr.Shortages))
			for _, s := range stockErr.Shortages {
				shortages = append(shortages, dto.ShortageResponse{
					ProductID: s.ProductID,
					VariantID: s.VariantID,
					Requested: s.Requested,
					Available: s.Available,
				})
			}
			c.JSON(http.StatusConflict, gin.H{"error": "insufficient stock", "shortages": shortages})
		case errors.Is(err, domainErrors.ErrInvalidAmount):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			c.Status(http.StatusInternalServerError)
		}
		return
	}

	c.JSON(http.StatusCreated, toOrderResponse(order))
}

// Get handles GET /api/orders/:number.
func (h *OrderHandler) Get(c *gin.Context) {
	order, err := h.orders.Order(c.Request.Context(), c.Param("number"))
	if err != nil {
		if errors.Is(err, domainErrors.ErrOrderNotFound) {
			c.Status(http.StatusNotFound)
			return
		}
		c.Status(http.StatusInternalServerError)
		return
	}

	detail := dto.OrderDetailResponse{OrderResponse: toOrderResponse(order)}

	if payment, err := h.orders.OrderPayment(c.Request.Context(), order.ID); err == nil {
		detail.Payment = &dto.PaymentResponse{
			Method:        payment.Method,
			Amount:        payment.Amount,
			Status:        string(payment.Status),
			TransactionID: payment.GatewayTransactionID,
			PaidAt:        payment.PaidAt,
		}
	}
	if log, err := h.orders.OrderStatusLog(c.Request.Context(), order.ID); err == nil {
		detail.History = make([]dto.StatusLogResponse, 0, len(log))
		for _, entry := range log {
			detail.History = append(detail.History, dto.StatusLogResponse{
				From:   string(entry.FromStatus),
				To:     string(entry.ToStatus),
				Actor:  entry.Actor,
				Reason: entry.Reason,
				At:     entry.CreatedAt,
			})
		}
	}

	c.JSON(http.StatusOK, detail)
}

// Status handles GET /api/orders/:number/status, the poll endpoint
// served from the status cache when it is warm.
func (h *OrderHandler) Status(c *gin.Context) {
	number := c.Param("number")
	status, err := h.orders.OrderStatus(c.Request.Context(), number)
	if err != nil {
		if errors.Is(err, domainErrors.ErrOrderNotFound) {
			c.Status(http.StatusNotFound)
			return
		}
		c.Status(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, dto.OrderStatusResponse{Number: number, Status: string(status)})
}

// Transition handles POST /api/orders/:number/transition.
func (h *OrderHandler) Transition(c *gin.Context) {
	var req dto.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.orders.Transition(c.Request.Context(),
		c.Param("number"), model.OrderStatus(req.Target), CurrentActor(c), req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrOrderNotFound):
			c.Status(http.StatusNotFound)
		case errors.Is(err, domainErrors.ErrInvalidTransition):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.Status(http.StatusInternalServerError)
		}
		return
	}

	c.JSON(http.StatusOK, toOrderResponse(order))
}

// ConfirmCOD handles POST /api/orders/:number/cod/confirm.
func (h *OrderHandler) ConfirmCOD(c *gin.Context) {
	order, err := h.payments.ConfirmCOD(c.Request.Context(), c.Param("number"), CurrentActor(c))
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrOrderNotFound):
			c.Status(http.StatusNotFound)
		case errors.Is(err, domainErrors.ErrInvalidTransition):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.Status(http.StatusInternalServerError)
		}
		return
	}

	c.JSON(http.StatusOK, toOrderResponse(order))
}
