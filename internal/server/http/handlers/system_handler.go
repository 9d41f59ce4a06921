package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const reconcileBatchSize = 256

// SystemHandler manages health and operational endpoints.
type SystemHandler struct {
	system SystemFacade
}

// NewSystemHandler constructs SystemHandler.
func NewSystemHandler(system SystemFacade) *SystemHandler {
	return &SystemHandler{system: system}
}

// Health handles GET /api/health.
func (h *SystemHandler) Health(c *gin.Context) {
	if err := h.system.Health(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "down", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Reconcile handles POST /api/internal/reconcile: one on-demand sweep
// outside the schedule.
func (h *SystemHandler) Reconcile(c *gin.Context) {
	ctx := c.Request.Context()

	released, err := h.system.ExpireReservations(ctx, reconcileBatchSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	payments, err := h.system.CancelStalePayments(ctx, reconcileBatchSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	shipments, err := h.system.FlagStaleShipments(ctx, reconcileBatchSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reservations_released": released,
		"payments_resolved":     payments,
		"shipments_flagged":     shipments,
	})
}
