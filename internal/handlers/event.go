// internal/handlers/event.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/eventra/eventra-backend/internal/services"
	"github.com/eventra/eventra-backend/internal/utils"
)

type EventHandler struct {
	eventService *services.EventService
}

func NewEventHandler(eventService *services.EventService) *EventHandler {
	return &EventHandler{eventService: eventService}
}

// GET /events
func (h *EventHandler) ListEvents(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	result, err := h.eventService.ListEvents(params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.PaginatedResponse(c, *result)
}

// GET /events/:id
func (h *EventHandler) GetEvent(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid event ID", nil)
		return
	}

	event, err := h.eventService.GetEvent(c.Request.Context(), id, c.Query("access_code"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, event)
}

// GET /ticket-types/:id/availability
func (h *EventHandler) GetAvailability(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid ticket type ID", nil)
		return
	}

	availability, err := h.eventService.GetAvailability(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, availability)
}
