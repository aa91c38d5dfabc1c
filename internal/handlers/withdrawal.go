// internal/handlers/withdrawal.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/eventra/eventra-backend/internal/services"
	"github.com/eventra/eventra-backend/internal/utils"
)

type WithdrawalHandler struct {
	withdrawalService *services.WithdrawalService
}

func NewWithdrawalHandler(withdrawalService *services.WithdrawalService) *WithdrawalHandler {
	return &WithdrawalHandler{withdrawalService: withdrawalService}
}

func organizationID(c *gin.Context) (uuid.UUID, bool) {
	orgIDStr, ok := utils.GetOrganizationIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return uuid.Nil, false
	}
	orgID, err := uuid.Parse(orgIDStr)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid organization ID", nil)
		return uuid.Nil, false
	}
	return orgID, true
}

// POST /organization/withdrawals
func (h *WithdrawalHandler) Request(c *gin.Context) {
	orgID, ok := organizationID(c)
	if !ok {
		return
	}

	var req services.WithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}
	req.OrganizationID = orgID

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	withdrawal, transaction, err := h.withdrawalService.Request(&req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"withdrawal":  withdrawal,
		"transaction": transaction,
	})
}

// GET /organization/withdrawals
func (h *WithdrawalHandler) List(c *gin.Context) {
	orgID, ok := organizationID(c)
	if !ok {
		return
	}

	withdrawals, err := h.withdrawalService.ListByOrganization(orgID)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, withdrawals)
}
