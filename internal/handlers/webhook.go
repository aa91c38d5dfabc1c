// internal/handlers/webhook.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/eventra/eventra-backend/internal/config"
	"github.com/eventra/eventra-backend/internal/models"
	"github.com/eventra/eventra-backend/internal/services"
	"github.com/eventra/eventra-backend/internal/utils"
)

type WebhookHandler struct {
	orderService *services.OrderService
	cfg          config.PaymentConfig
}

func NewWebhookHandler(orderService *services.OrderService, cfg config.PaymentConfig) *WebhookHandler {
	return &WebhookHandler{orderService: orderService, cfg: cfg}
}

type webhookPayload struct {
	Name   string                 `json:"name" validate:"required"`
	Entity map[string]interface{} `json:"entity" validate:"required"`
}

func (p *webhookPayload) entityID() string {
	if id, ok := p.Entity["id"].(string); ok {
		return id
	}
	return ""
}

// POST /webhooks/payments
func (h *WebhookHandler) Payments(c *gin.Context) {
	h.handle(c, services.WebhookScopePayment)
}

// POST /webhooks/payouts
func (h *WebhookHandler) Payouts(c *gin.Context) {
	h.handle(c, services.WebhookScopePayout)
}

func (h *WebhookHandler) handle(c *gin.Context, scope services.WebhookScope) {
	if !utils.SecureCompare(c.GetHeader("X-Webhook-Secret"), h.cfg.WebhookSecret) {
		utils.UnauthorizedResponse(c, "Invalid webhook secret")
		return
	}

	var payload webhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.BadRequestResponse(c, "Invalid webhook body", err.Error())
		return
	}

	gatewayID := payload.entityID()
	if payload.Name == "" || gatewayID == "" {
		utils.BadRequestResponse(c, "Missing event name or entity id", nil)
		return
	}

	snapshot := models.JSONB{
		"name":   payload.Name,
		"entity": payload.Entity,
	}

	_, err := h.orderService.ApplyWebhook(c.Request.Context(), scope, gatewayID, payload.Name, snapshot)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTransactionAlreadyCompleted):
			// Acknowledged so the gateway stops retrying.
			utils.SuccessResponse(c, gin.H{"status": "already_completed"})
		case errors.Is(err, services.ErrStaleWebhook):
			utils.SuccessResponse(c, gin.H{"status": "dropped_stale"})
		case errors.Is(err, services.ErrUnknownTransaction):
			utils.NotFoundResponse(c, "transaction")
		case errors.Is(err, services.ErrWebhookKindMismatch),
			errors.Is(err, services.ErrUnknownWebhookEvent):
			utils.BadRequestResponse(c, err.Error(), nil)
		default:
			utils.InternalErrorResponse(c, err.Error())
		}
		return
	}

	utils.SuccessResponse(c, gin.H{"status": "applied"})
}
