// internal/services/eticket_service_test.go
package services

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/eventra/eventra-backend/internal/models"
	"github.com/eventra/eventra-backend/internal/utils"
)

func issueTickets(t *testing.T, db *gorm.DB, f *fixture, count int) []models.ETicket {
	t.Helper()
	svc := NewETicketService(db)

	order := models.Order{
		Code:       fmt.Sprintf("TK%06d", count),
		BuyerEmail: "scan@buyer.test",
		Status:     models.OrderStatusFinished,
	}
	require.NoError(t, db.Create(&order).Error)

	var tickets []models.ETicket
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		tickets, err = svc.IssueTx(tx, &f.Event, &f.TicketType, &order, count)
		return err
	})
	require.NoError(t, err)
	return tickets
}

func TestIssueTxCreatesTickets(t *testing.T) {
	db := setupTestDB(t)
	f := seedSale(t, db, 5, 0)

	tickets := issueTickets(t, db, f, 3)
	require.Len(t, tickets, 3)

	seen := map[string]bool{}
	for i, ticket := range tickets {
		assert.Equal(t, fmt.Sprintf("Warehouse Night - General #%d", i+1), ticket.Name)
		assert.True(t, ticket.IsActive)
		assert.WithinDuration(t, f.Event.EndsAt, ticket.ExpirationDate, time.Second)
		assert.NotEmpty(t, ticket.SecretPhrase)
		assert.False(t, seen[ticket.SecretPhrase])
		seen[ticket.SecretPhrase] = true

		id, secret, err := utils.DecodeQRPayload(ticket.QRCodeData)
		require.NoError(t, err)
		assert.Equal(t, ticket.ID, id)
		assert.Equal(t, ticket.SecretPhrase, secret)
	}
}

func TestIssueTxRejectsNonPositiveCount(t *testing.T) {
	db := setupTestDB(t)
	f := seedSale(t, db, 5, 0)
	svc := NewETicketService(db)

	order := models.Order{Code: "TK000000", BuyerEmail: "x@y.test"}
	require.NoError(t, db.Create(&order).Error)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.IssueTx(tx, &f.Event, &f.TicketType, &order, 0)
		return err
	})
	assert.Error(t, err)
}

func TestVerifyAndConsume(t *testing.T) {
	db := setupTestDB(t)
	f := seedSale(t, db, 5, 0)
	svc := NewETicketService(db)
	ticket := issueTickets(t, db, f, 1)[0]

	consumed, err := svc.VerifyAndConsume(ticket.ID, ticket.SecretPhrase, f.Organization.ID)
	require.NoError(t, err)
	assert.False(t, consumed.IsActive)
	require.NotNil(t, consumed.ScannedAt)

	var reloaded models.ETicket
	require.NoError(t, db.First(&reloaded, "id = ?", ticket.ID).Error)
	assert.False(t, reloaded.IsActive)
	require.NotNil(t, reloaded.ScannedAt)
}

func TestVerifyAndConsumeDoubleScan(t *testing.T) {
	db := setupTestDB(t)
	f := seedSale(t, db, 5, 0)
	svc := NewETicketService(db)
	ticket := issueTickets(t, db, f, 1)[0]

	_, err := svc.VerifyAndConsume(ticket.ID, ticket.SecretPhrase, f.Organization.ID)
	require.NoError(t, err)

	_, err = svc.VerifyAndConsume(ticket.ID, ticket.SecretPhrase, f.Organization.ID)
	assert.ErrorIs(t, err, ErrTicketAlreadyUsed)
}

func TestVerifyAndConsumeConcurrentScansSingleWinner(t *testing.T) {
	db := setupTestDB(t)
	f := seedSale(t, db, 5, 0)
	svc := NewETicketService(db)
	ticket := issueTickets(t, db, f, 1)[0]

	const scanners = 8
	errs := make([]error, scanners)
	var wg sync.WaitGroup
	for i := 0; i < scanners; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.VerifyAndConsume(ticket.ID, ticket.SecretPhrase, f.Organization.ID)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, ErrTicketAlreadyUsed)
		}
	}
	assert.Equal(t, 1, winners)

	var reloaded models.ETicket
	require.NoError(t, db.First(&reloaded, "id = ?", ticket.ID).Error)
	assert.False(t, reloaded.IsActive)
}

func TestVerifyAndConsumeWrongSecret(t *testing.T) {
	db := setupTestDB(t)
	f := seedSale(t, db, 5, 0)
	svc := NewETicketService(db)
	ticket := issueTickets(t, db, f, 1)[0]

	_, err := svc.VerifyAndConsume(ticket.ID, "not-the-secret", f.Organization.ID)
	assert.ErrorIs(t, err, ErrInvalidSecret)

	// A failed scan leaves the ticket usable.
	var reloaded models.ETicket
	require.NoError(t, db.First(&reloaded, "id = ?", ticket.ID).Error)
	assert.True(t, reloaded.IsActive)
}

func TestVerifyAndConsumeWrongOrganization(t *testing.T) {
	db := setupTestDB(t)
	f := seedSale(t, db, 5, 0)
	svc := NewETicketService(db)
	ticket := issueTickets(t, db, f, 1)[0]

	other := models.Organization{
		Name:   "Rival Org",
		Email:  "rival@org.test",
		Status: models.OrganizationStatusActive,
	}
	require.NoError(t, other.SetPassword("rival-password-1"))
	require.NoError(t, db.Create(&other).Error)

	_, err := svc.VerifyAndConsume(ticket.ID, ticket.SecretPhrase, other.ID)
	assert.ErrorIs(t, err, ErrWrongOrgForScan)
}

func TestVerifyAndConsumeExpired(t *testing.T) {
	db := setupTestDB(t)
	f := seedSale(t, db, 5, 0)
	svc := NewETicketService(db)
	ticket := issueTickets(t, db, f, 1)[0]

	require.NoError(t, db.Model(&models.ETicket{}).Where("id = ?", ticket.ID).
		Update("expiration_date", time.Now().Add(-time.Hour)).Error)

	_, err := svc.VerifyAndConsume(ticket.ID, ticket.SecretPhrase, f.Organization.ID)
	assert.ErrorIs(t, err, ErrTicketExpired)
}

func TestVerifyAndConsumeUnknownTicket(t *testing.T) {
	db := setupTestDB(t)
	f := seedSale(t, db, 5, 0)
	svc := NewETicketService(db)

	_, err := svc.VerifyAndConsume(uuid.New(), "whatever", f.Organization.ID)
	assert.ErrorIs(t, err, ErrTicketNotFound)
}
