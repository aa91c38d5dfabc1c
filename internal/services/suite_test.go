// internal/services/suite_test.go
package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/eventra/eventra-backend/internal/config"
	"github.com/eventra/eventra-backend/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One in-memory database per test; extra pool connections would each get
	// their own empty database.
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.User{},
		&models.Organization{},
		&models.Seller{},
		&models.Event{},
		&models.TicketType{},
		&models.SellerStock{},
		&models.StockTransaction{},
		&models.Coupon{},
		&models.Order{},
		&models.OrderItem{},
		&models.Transaction{},
		&models.Withdrawal{},
		&models.ETicket{},
		&models.TicketDelivery{},
	)
	require.NoError(t, err)

	return db
}

func testDeliveryConfig() config.DeliveryConfig {
	return config.DeliveryConfig{
		MaxRetryCount:   3,
		BackoffSchedule: []time.Duration{5 * time.Minute, 15 * time.Minute, 30 * time.Minute},
		SweepInterval:   10 * time.Minute,
	}
}

// fakeSender is a deterministic channel sender: it fails the first failures
// attempts, then succeeds.
type fakeSender struct {
	channel  models.DeliveryChannel
	failures int
	attempts int
}

func (f *fakeSender) Channel() models.DeliveryChannel {
	return f.channel
}

func (f *fakeSender) Send(_ context.Context, _ *models.TicketDelivery, _ *models.ETicket, _ *models.Order) (string, error) {
	f.attempts++
	if f.attempts <= f.failures {
		return "", fmt.Errorf("provider unavailable (attempt %d)", f.attempts)
	}
	return `{"status":"accepted"}`, nil
}

type fixture struct {
	Organization models.Organization
	Seller       models.Seller
	Event        models.Event
	TicketType   models.TicketType
	Stock        models.SellerStock
}

// seedSale creates an organization with an active seller holding allocated
// stock for one finite ticket type.
func seedSale(t *testing.T, db *gorm.DB, initialQty, allocated int) *fixture {
	t.Helper()

	org := models.Organization{
		Name:          "Night Shows",
		Email:         uuid.NewString() + "@org.test",
		Status:        models.OrganizationStatusActive,
		IsSuperSeller: true,
		KYCVerified:   true,
	}
	require.NoError(t, org.SetPassword("org-password-1"))
	require.NoError(t, db.Create(&org).Error)

	seller := models.Seller{
		OrganizationID: org.ID,
		Name:           "Alice",
		Email:          uuid.NewString() + "@seller.test",
		Status:         models.SellerStatusActive,
	}
	require.NoError(t, seller.SetPassword("seller-password-1"))
	require.NoError(t, db.Create(&seller).Error)

	event := models.Event{
		OrganizationID: org.ID,
		Title:          "Warehouse Night",
		StartsAt:       time.Now().Add(24 * time.Hour),
		EndsAt:         time.Now().Add(30 * time.Hour),
	}
	require.NoError(t, db.Create(&event).Error)

	ticketType := models.TicketType{
		EventID:           event.ID,
		Name:              "General",
		Price:             5000,
		InitialQuantity:   initialQty,
		AvailableQuantity: initialQty,
	}
	if initialQty == models.UnlimitedQuantity {
		ticketType.AvailableQuantity = 0
	}
	require.NoError(t, db.Create(&ticketType).Error)

	f := &fixture{Organization: org, Seller: seller, Event: event, TicketType: ticketType}

	if allocated > 0 {
		stock := models.SellerStock{
			SellerID:       seller.ID,
			EventID:        event.ID,
			TicketTypeID:   ticketType.ID,
			TotalAllocated: allocated,
			SalePrice:      5000,
			CommissionRate: 10,
		}
		require.NoError(t, db.Create(&stock).Error)
		f.Stock = stock
	}

	return f
}

func reloadTicketType(t *testing.T, db *gorm.DB, id uuid.UUID) models.TicketType {
	t.Helper()
	var tt models.TicketType
	require.NoError(t, db.First(&tt, "id = ?", id).Error)
	return tt
}

func reloadStock(t *testing.T, db *gorm.DB, id uuid.UUID) models.SellerStock {
	t.Helper()
	var s models.SellerStock
	require.NoError(t, db.First(&s, "id = ?", id).Error)
	return s
}
