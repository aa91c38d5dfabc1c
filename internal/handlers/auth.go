// internal/handlers/auth.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/eventra/eventra-backend/internal/services"
	"github.com/eventra/eventra-backend/internal/utils"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	user, err := h.authService.RegisterUser(&req)
	if err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.CreatedResponse(c, user)
}

func (h *AuthHandler) login(c *gin.Context, login func(*services.LoginRequest) (*services.LoginResponse, error)) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	resp, err := login(&req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, resp)
}

// POST /auth/login
func (h *AuthHandler) LoginUser(c *gin.Context) {
	h.login(c, h.authService.LoginUser)
}

// POST /auth/seller/login
func (h *AuthHandler) LoginSeller(c *gin.Context) {
	h.login(c, h.authService.LoginSeller)
}

// POST /auth/organization/login
func (h *AuthHandler) LoginOrganization(c *gin.Context) {
	h.login(c, h.authService.LoginOrganization)
}
