// internal/handlers/errors.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/eventra/eventra-backend/internal/services"
	"github.com/eventra/eventra-backend/internal/utils"
)

// respondServiceError maps the service error taxonomy to HTTP statuses: 404
// for missing things, 409 for state conflicts, 422 for exhausted capacity,
// 403 for authorization, 400 for the rest.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		utils.NotFoundResponse(c, "resource")

	case errors.Is(err, services.ErrInsufficientEventStock),
		errors.Is(err, services.ErrInsufficientSellerStock),
		errors.Is(err, services.ErrParticipantLimitReached):
		utils.UnprocessableResponse(c, err.Error(), "Not enough stock or capacity")

	case errors.Is(err, services.ErrSellerNotAllowed),
		errors.Is(err, services.ErrWrongOrgForScan):
		utils.ForbiddenResponse(c, err.Error())

	case errors.Is(err, services.ErrTransactionAlreadyPaid),
		errors.Is(err, services.ErrTicketAlreadyUsed),
		errors.Is(err, services.ErrOrderNotCancelable),
		errors.Is(err, services.ErrOrderNotPayable):
		utils.ConflictResponse(c, err.Error(), "Conflicting state")

	case errors.Is(err, services.ErrInvalidCoupon),
		errors.Is(err, services.ErrMissingBuyer),
		errors.Is(err, services.ErrBelowMinimum),
		errors.Is(err, services.ErrInsufficientBalance):
		utils.BadRequestResponse(c, err.Error(), nil)

	case errors.Is(err, services.ErrTicketNotFound),
		errors.Is(err, services.ErrInvalidSecret),
		errors.Is(err, services.ErrTicketExpired):
		utils.UnprocessableResponse(c, err.Error(), "Ticket verification failed")

	case errors.Is(err, services.ErrInvalidCredentials):
		utils.UnauthorizedResponse(c, "Invalid credentials")

	default:
		utils.InternalErrorResponse(c, err.Error())
	}
}
