package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/soloviev-d/ordercore/internal/domain/errors"
	"github.com/soloviev-d/ordercore/internal/domain/model"
	"github.com/soloviev-d/ordercore/internal/server/http/dto"
)

// StockHandler manages the operator stock ledger endpoints.
type StockHandler struct {
	stock StockFacade
}

// NewStockHandler constructs StockHandler.
func NewStockHandler(stock StockFacade) *StockHandler {
	return &StockHandler{stock: stock}
}

// Receive handles POST /api/stock/receive.
func (h *StockHandler) Receive(c *gin.Context) {
	h.change(c, h.stock.ReceiveStock)
}

// Withdraw handles POST /api/stock/withdraw.
func (h *StockHandler) Withdraw(c *gin.Context) {
	h.change(c, h.stock.WithdrawStock)
}

func (h *StockHandler) change(c *gin.Context, apply func(ctx context.Context, sku model.SKU, qty int) (int, error)) {
	var req dto.StockChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sku := model.SKU{ProductID: req.ProductID, VariantID: req.VariantID}
	onHand, err := apply(c.Request.Context(), sku, req.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrInvalidAmount):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		case errors.Is(err, domainErrors.ErrInsufficientStock):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, domainErrors.ErrNotFound):
			c.Status(http.StatusNotFound)
		default:
			c.Status(http.StatusInternalServerError)
		}
		return
	}

	c.JSON(http.StatusOK, dto.StockLevelResponse{
		ProductID: sku.ProductID,
		VariantID: sku.VariantID,
		OnHand:    onHand,
	})
}

// OnHand handles GET /api/stock.
func (h *StockHandler) OnHand(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Query("product_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "product_id is required"})
		return
	}
	sku := model.SKU{ProductID: productID}
	if raw := c.Query("variant_id"); raw != "" {
		variantID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "variant_id must be an integer"})
			return
		}
		sku.VariantID = &variantID
	}

	onHand, err := h.stock.StockOnHand(c.Request.Context(), sku)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			c.Status(http.StatusNotFound)
			return
		}
		c.Status(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, dto.StockLevelResponse{
		ProductID: sku.ProductID,
		VariantID: sku.VariantID,
		OnHand:    onHand,
	})
}
