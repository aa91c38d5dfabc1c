// internal/handlers/sale.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/eventra/eventra-backend/internal/services"
	"github.com/eventra/eventra-backend/internal/utils"
)

type SaleHandler struct {
	saleService *services.SaleService
}

func NewSaleHandler(saleService *services.SaleService) *SaleHandler {
	return &SaleHandler{saleService: saleService}
}

// POST /seller/sales
func (h *SaleHandler) Sell(c *gin.Context) {
	actorID, ok := utils.GetActorIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	sellerID, err := uuid.Parse(actorID)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid seller ID", nil)
		return
	}

	var req services.SellRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}
	req.SellerID = sellerID

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	result, err := h.saleService.SellBySeller(c.Request.Context(), &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, result)
}
