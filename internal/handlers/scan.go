// internal/handlers/scan.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/eventra/eventra-backend/internal/metrics"
	"github.com/eventra/eventra-backend/internal/services"
	"github.com/eventra/eventra-backend/internal/utils"
)

type ScanHandler struct {
	eticketService *services.ETicketService
}

func NewScanHandler(eticketService *services.ETicketService) *ScanHandler {
	return &ScanHandler{eticketService: eticketService}
}

type scanRequest struct {
	// Payload is the scanned QR content. Alternatively TicketRef plus
	// SecretPhrase for manual entry.
	Payload      string `json:"payload,omitempty"`
	TicketRef    string `json:"ticket_ref,omitempty"`
	SecretPhrase string `json:"secret_phrase,omitempty"`
}

// POST /organization/scan
func (h *ScanHandler) Scan(c *gin.Context) {
	orgIDStr, ok := utils.GetOrganizationIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}
	orgID, err := uuid.Parse(orgIDStr)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid organization ID", nil)
		return
	}

	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	var ticketID uuid.UUID
	var secret string
	switch {
	case req.Payload != "":
		ticketID, secret, err = utils.DecodeQRPayload(req.Payload)
		if err != nil {
			metrics.TicketsScanned.WithLabelValues("invalid_payload").Inc()
			utils.BadRequestResponse(c, "Invalid QR payload", nil)
			return
		}
	case req.TicketRef != "" && req.SecretPhrase != "":
		ticketID, err = utils.DecodeTicketRef(req.TicketRef)
		if err != nil {
			metrics.TicketsScanned.WithLabelValues("invalid_payload").Inc()
			utils.BadRequestResponse(c, "Invalid ticket reference", nil)
			return
		}
		secret = req.SecretPhrase
	default:
		utils.BadRequestResponse(c, "Provide a QR payload or a ticket reference with secret", nil)
		return
	}

	ticket, err := h.eticketService.VerifyAndConsume(ticketID, secret, orgID)
	if err != nil {
		metrics.TicketsScanned.WithLabelValues("rejected").Inc()
		respondServiceError(c, err)
		return
	}

	metrics.TicketsScanned.WithLabelValues("accepted").Inc()
	utils.SuccessResponse(c, ticket)
}
