// internal/handlers/delivery.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/eventra/eventra-backend/internal/services"
	"github.com/eventra/eventra-backend/internal/utils"
)

type DeliveryHandler struct {
	deliveryService *services.DeliveryService
}

func NewDeliveryHandler(deliveryService *services.DeliveryService) *DeliveryHandler {
	return &DeliveryHandler{deliveryService: deliveryService}
}

// GET /organization/orders/:id/deliveries
func (h *DeliveryHandler) ListByOrder(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid order ID", nil)
		return
	}

	deliveries, err := h.deliveryService.ListByOrder(id)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, deliveries)
}

// POST /organization/deliveries/:id/retry
func (h *DeliveryHandler) Retry(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid delivery ID", nil)
		return
	}

	if err := h.deliveryService.RetryDelivery(c.Request.Context(), id); err != nil {
		utils.ConflictResponse(c, "retry_rejected", err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{"message": "Delivery retried"})
}
