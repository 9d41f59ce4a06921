package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/soloviev-d/ordercore/internal/domain/model"
	"github.com/soloviev-d/ordercore/internal/server/http/dto"
	"github.com/soloviev-d/ordercore/internal/server/http/middleware"
)

// CurrentActor extracts the acting admin identity from context.
func CurrentActor(c *gin.Context) string {
	val, ok := c.Get(middleware.ActorContextKey)
	if !ok {
		return ""
	}
	actor, _ := val.(string)
	return actor
}

func toOrderResponse(order *model.Order) dto.OrderResponse {
	items := make([]dto.OrderItemResponse, 0, len(order.Items))
	for _, it := range order.Items {
		items = append(items, dto.OrderItemResponse{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Subtotal:  it.Subtotal,
		})
	}
	return dto.OrderResponse{
		Number:        order.Number,
		Status:        string(order.Status),
		Subtotal:      order.Subtotal,
		ShippingCost:  order.ShippingCost,
		Discount:      order.Discount,
		Total:         order.Total,
		PaymentMethod: order.PaymentMethod,
		Items:         items,
		CreatedAt:     order.CreatedAt,
	}
}

func toRefundResponse(refund *model.RefundRequest) dto.RefundResponse {
	return dto.RefundResponse{
		ID:         refund.ID,
		OrderID:    refund.OrderID,
		Type:       string(refund.Type),
		Amount:     refund.Amount,
		Status:     string(refund.Status),
		Reason:     refund.Reason,
		ResolvedBy: refund.ResolvedBy,
		Note:       refund.Note,
		CreatedAt:  refund.CreatedAt,
		ResolvedAt: refund.ResolvedAt,
	}
}
