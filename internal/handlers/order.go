// internal/handlers/order.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/eventra/eventra-backend/internal/services"
	"github.com/eventra/eventra-backend/internal/utils"
)

type OrderHandler struct {
	orderService *services.OrderService
}

func NewOrderHandler(orderService *services.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// POST /orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req services.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	// Authenticated buyers are bound to their own account.
	if actorID, ok := utils.GetActorIDFromContext(c); ok {
		if actorType, _ := utils.GetActorTypeFromContext(c); actorType == utils.ActorTypeUser {
			if id, err := uuid.Parse(actorID); err == nil {
				req.UserID = &id
			}
		}
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	order, transaction, err := h.orderService.CreateOrder(&req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"order":       order,
		"transaction": transaction,
	})
}

func (h *OrderHandler) resolveOrder(c *gin.Context) (uuid.UUID, bool) {
	order, err := h.orderService.GetOrderByCode(c.Param("code"))
	if err != nil {
		respondServiceError(c, err)
		return uuid.Nil, false
	}
	return order.ID, true
}

// POST /orders/:code/pay
func (h *OrderHandler) BeginPayment(c *gin.Context) {
	id, ok := h.resolveOrder(c)
	if !ok {
		return
	}

	result, err := h.orderService.BeginPayment(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, result)
}

// POST /orders/:code/cancel
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	id, ok := h.resolveOrder(c)
	if !ok {
		return
	}

	if err := h.orderService.CancelOrder(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": "Order canceled"})
}

// GET /orders/:code
func (h *OrderHandler) GetOrder(c *gin.Context) {
	code := c.Param("code")

	order, err := h.orderService.GetOrderByCode(code)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, order)
}
