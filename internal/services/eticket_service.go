// internal/services/eticket_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/eventra/eventra-backend/internal/models"
	"github.com/eventra/eventra-backend/internal/utils"
)

// ETicketService mints single-use admission credentials and verifies scans.
type ETicketService struct {
	db *gorm.DB
}

func NewETicketService(db *gorm.DB) *ETicketService {
	return &ETicketService{db: db}
}

// IssueTx creates count e-tickets bound to the order within the given
// transaction. Each carries a fresh random secret phrase and an opaque QR
// payload binding (ticket id, secret).
func (s *ETicketService) IssueTx(tx *gorm.DB, event *models.Event, ticketType *models.TicketType, order *models.Order, count int) ([]models.ETicket, error) {
	if count <= 0 {
		return nil, fmt.Errorf("issue count must be positive, got %d", count)
	}

	tickets := make([]models.ETicket, 0, count)
	for i := 1; i <= count; i++ {
		secret, err := utils.GenerateSecretPhrase()
		if err != nil {
			return nil, fmt.Errorf("failed to generate secret phrase: %w", err)
		}

		ticket := models.ETicket{
			EventID:        event.ID,
			TicketTypeID:   ticketType.ID,
			OrderID:        order.ID,
			Name:           fmt.Sprintf("%s - %s #%d", event.Title, ticketType.Name, i),
			ExpirationDate: event.EndsAt,
			SecretPhrase:   secret,
			IsActive:       true,
		}
		ticket.ID = uuid.New()
		ticket.QRCodeData = utils.EncodeQRPayload(ticket.ID, secret)

		if err := tx.Create(&ticket).Error; err != nil {
			return nil, fmt.Errorf("failed to create e-ticket: %w", err)
		}
		tickets = append(tickets, ticket)
	}

	return tickets, nil
}

// VerifyAndConsume validates a scan and consumes the ticket. Exactly one of
// any number of concurrent scans for the same ticket sees success; the flip of
// is_active is a compare-and-set, not a read-then-write.
func (s *ETicketService) VerifyAndConsume(ticketID uuid.UUID, secretPhrase string, scanningOrgID uuid.UUID) (*models.ETicket, error) {
	var ticket models.ETicket
	if err := s.db.Preload("Event").First(&ticket, "id = ?", ticketID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if !utils.SecureCompare(ticket.SecretPhrase, secretPhrase) {
		return nil, ErrInvalidSecret
	}

	if ticket.Event.OrganizationID != scanningOrgID {
		return nil, ErrWrongOrgForScan
	}

	now := time.Now()
	if !now.Before(ticket.ExpirationDate) {
		return nil, ErrTicketExpired
	}

	if !ticket.IsActive {
		return nil, ErrTicketAlreadyUsed
	}

	result := s.db.Model(&models.ETicket{}).
		Where("id = ? AND is_active = ?", ticketID, true).
		Updates(map[string]interface{}{
			"is_active":  false,
			"scanned_at": now,
		})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to consume e-ticket: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		// A concurrent scan won the compare-and-set.
		return nil, ErrTicketAlreadyUsed
	}

	ticket.IsActive = false
	ticket.ScannedAt = &now

	logrus.WithFields(logrus.Fields{
		"eticket_id": ticket.ID,
		"event_id":   ticket.EventID,
	}).Info("E-ticket consumed")

	return &ticket, nil
}
