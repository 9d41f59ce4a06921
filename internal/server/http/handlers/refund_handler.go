package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/soloviev-d/ordercore/internal/domain/errors"
	"github.com/soloviev-d/ordercore/internal/domain/model"
	"github.com/soloviev-d/ordercore/internal/server/http/dto"
	"github.com/soloviev-d/ordercore/internal/usecase"
)

// RefundHandler manages refund endpoints.
type RefundHandler struct {
	refunds RefundFacade
}

// NewRefundHandler constructs RefundHandler.
func NewRefundHandler(refunds RefundFacade) *RefundHandler {
	return &RefundHandler{refunds: refunds}
}

// Request handles POST /api/orders/:number/refund.
func (h *RefundHandler) Request(c *gin.Context) {
	var req dto.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	refund, err := h.refunds.RequestRefund(c.Request.Context(),
		c.Param("number"), req.Reason,
		model.RefundType(strings.ToUpper(req.Type)), req.Amount, req.Evidence)
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrOrderNotFound):
			c.Status(http.StatusNotFound)
		case errors.Is(err, domainErrors.ErrRefundNotAllowed):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, domainErrors.ErrAlreadyExists):
			c.JSON(http.StatusConflict, gin.H{"error": "an active refund request already exists"})
		case errors.Is(err, domainErrors.ErrInvalidAmount):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			c.Status(http.StatusInternalServerError)
		}
		return
	}

	c.JSON(http.StatusCreated, toRefundResponse(refund))
}

// Resolve handles POST /api/refunds/:id/resolve.
func (h *RefundHandler) Resolve(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	var req dto.RefundResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	refund, err := h.refunds.ResolveRefund(c.Request.Context(), id,
		usecase.RefundDecision(strings.ToUpper(req.Decision)), CurrentActor(c), req.Note)
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrNotFound):
			c.Status(http.StatusNotFound)
		case errors.Is(err, domainErrors.ErrAlreadyResolved):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, domainErrors.ErrInvalidTransition):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, domainErrors.ErrInvalidAmount):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			c.Status(http.StatusInternalServerError)
		}
		return
	}

	c.JSON(http.StatusOK, toRefundResponse(refund))
}
