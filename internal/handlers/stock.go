// internal/handlers/stock.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/eventra/eventra-backend/internal/services"
	"github.com/eventra/eventra-backend/internal/utils"
)

type StockHandler struct {
	inventoryService *services.InventoryService
}

func NewStockHandler(inventoryService *services.InventoryService) *StockHandler {
	return &StockHandler{inventoryService: inventoryService}
}

// POST /organization/stocks
func (h *StockHandler) Allocate(c *gin.Context) {
	var req services.AllocateStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	stock, err := h.inventoryService.AllocateToSeller(&req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, stock)
}

type returnStockRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

// POST /organization/stocks/:id/return
func (h *StockHandler) Return(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid stock ID", nil)
		return
	}

	var req returnStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	if err := h.inventoryService.ReturnSellerAllocation(id, req.Quantity); err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": "Allocation returned"})
}

type commissionRequest struct {
	CommissionRate float64 `json:"commission_rate" validate:"min=0,max=100"`
}

// PATCH /organization/stocks/:id/commission
func (h *StockHandler) UpdateCommission(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid stock ID", nil)
		return
	}

	var req commissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if err := h.inventoryService.UpdateCommissionRate(id, req.CommissionRate); err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": "Commission updated"})
}
