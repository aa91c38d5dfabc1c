// internal/services/delivery_service_test.go
package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/eventra/eventra-backend/internal/models"
)

// seedDelivery creates a finished order with one issued ticket and returns
// the enqueued delivery rows.
func seedDelivery(t *testing.T, db *gorm.DB, svc *DeliveryService, buyerEmail, buyerPhone string) (*models.Order, []models.TicketDelivery) {
	t.Helper()
	f := seedSale(t, db, 5, 0)

	order := models.Order{
		Code:       "DL000001",
		BuyerName:  "Delivery Buyer",
		BuyerEmail: buyerEmail,
		BuyerPhone: buyerPhone,
		Status:     models.OrderStatusFinished,
	}
	require.NoError(t, db.Create(&order).Error)

	var deliveries []models.TicketDelivery
	err := db.Transaction(func(tx *gorm.DB) error {
		tickets, err := NewETicketService(db).IssueTx(tx, &f.Event, &f.TicketType, &order, 1)
		if err != nil {
			return err
		}
		deliveries, err = svc.EnqueueTx(tx, &order, tickets)
		return err
	})
	require.NoError(t, err)
	return &order, deliveries
}

func reloadDelivery(t *testing.T, db *gorm.DB, id interface{}) models.TicketDelivery {
	t.Helper()
	var d models.TicketDelivery
	require.NoError(t, db.First(&d, "id = ?", id).Error)
	return d
}

func TestEnqueueTxOneRowPerChannelWithAddress(t *testing.T) {
	db := setupTestDB(t)
	svc := NewDeliveryService(db, testDeliveryConfig(), &fakeSender{channel: models.DeliveryChannelEmail})

	_, deliveries := seedDelivery(t, db, svc, "buyer@mail.test", "+15550001111")
	require.Len(t, deliveries, 2)

	byChannel := map[models.DeliveryChannel]string{}
	for _, d := range deliveries {
		byChannel[d.Channel] = d.Recipient
		assert.Equal(t, models.DeliveryStatusPending, d.Status)
		assert.Equal(t, 3, d.MaxRetryCount)
	}
	assert.Equal(t, "buyer@mail.test", byChannel[models.DeliveryChannelEmail])
	assert.Equal(t, "+15550001111", byChannel[models.DeliveryChannelWhatsApp])
}

func TestEnqueueTxSkipsChannelsWithoutAddress(t *testing.T) {
	db := setupTestDB(t)
	svc := NewDeliveryService(db, testDeliveryConfig(), &fakeSender{channel: models.DeliveryChannelEmail})

	_, deliveries := seedDelivery(t, db, svc, "buyer@mail.test", "")
	require.Len(t, deliveries, 1)
	assert.Equal(t, models.DeliveryChannelEmail, deliveries[0].Channel)
}

func TestProcessDeliversFirstAttempt(t *testing.T) {
	db := setupTestDB(t)
	sender := &fakeSender{channel: models.DeliveryChannelEmail}
	svc := NewDeliveryService(db, testDeliveryConfig(), sender)
	_, deliveries := seedDelivery(t, db, svc, "buyer@mail.test", "")

	require.NoError(t, svc.Process(context.Background(), deliveries[0].ID))

	d := reloadDelivery(t, db, deliveries[0].ID)
	assert.Equal(t, models.DeliveryStatusSent, d.Status)
	assert.Equal(t, 0, d.RetryCount)
	require.NotNil(t, d.SentAt)
	assert.Nil(t, d.NextRetryAt)
	assert.Equal(t, `{"status":"accepted"}`, d.ProviderResponse)
	require.Len(t, d.Logs, 1)
	assert.Equal(t, "info", d.Logs[0].Level)
	assert.Equal(t, 1, sender.attempts)
}

func TestProcessSchedulesRetryOnFailure(t *testing.T) {
	db := setupTestDB(t)
	sender := &fakeSender{channel: models.DeliveryChannelEmail, failures: 1}
	svc := NewDeliveryService(db, testDeliveryConfig(), sender)
	_, deliveries := seedDelivery(t, db, svc, "buyer@mail.test", "")

	// The failed attempt is recorded, not surfaced.
	require.NoError(t, svc.Process(context.Background(), deliveries[0].ID))

	d := reloadDelivery(t, db, deliveries[0].ID)
	assert.Equal(t, models.DeliveryStatusRetry, d.Status)
	assert.Equal(t, 1, d.RetryCount)
	assert.Contains(t, d.LastError, "provider unavailable")
	require.NotNil(t, d.NextRetryAt)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), *d.NextRetryAt, 10*time.Second)
	require.Len(t, d.Logs, 1)
	assert.Equal(t, "error", d.Logs[0].Level)
}

func TestRetryLadderSucceedsOnThirdAttempt(t *testing.T) {
	db := setupTestDB(t)
	sender := &fakeSender{channel: models.DeliveryChannelEmail, failures: 2}
	svc := NewDeliveryService(db, testDeliveryConfig(), sender)
	_, deliveries := seedDelivery(t, db, svc, "buyer@mail.test", "")
	id := deliveries[0].ID

	require.NoError(t, svc.Process(context.Background(), id))
	d := reloadDelivery(t, db, id)
	assert.Equal(t, models.DeliveryStatusRetry, d.Status)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), *d.NextRetryAt, 10*time.Second)

	require.NoError(t, svc.Process(context.Background(), id))
	d = reloadDelivery(t, db, id)
	assert.Equal(t, models.DeliveryStatusRetry, d.Status)
	assert.Equal(t, 2, d.RetryCount)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), *d.NextRetryAt, 10*time.Second)

	require.NoError(t, svc.Process(context.Background(), id))
	d = reloadDelivery(t, db, id)
	assert.Equal(t, models.DeliveryStatusSent, d.Status)
	assert.Equal(t, 2, d.RetryCount)
	require.NotNil(t, d.SentAt)
	require.Len(t, d.Logs, 3)
	assert.Equal(t, "error", d.Logs[0].Level)
	assert.Equal(t, "error", d.Logs[1].Level)
	assert.Equal(t, "info", d.Logs[2].Level)
}

func TestRetryExhaustionGoesTerminal(t *testing.T) {
	db := setupTestDB(t)
	sender := &fakeSender{channel: models.DeliveryChannelEmail, failures: 10}
	svc := NewDeliveryService(db, testDeliveryConfig(), sender)
	_, deliveries := seedDelivery(t, db, svc, "buyer@mail.test", "")
	id := deliveries[0].ID

	for i := 0; i < 4; i++ {
		require.NoError(t, svc.Process(context.Background(), id))
	}

	d := reloadDelivery(t, db, id)
	assert.Equal(t, models.DeliveryStatusFailed, d.Status)
	assert.Equal(t, 3, d.RetryCount)
	require.NotNil(t, d.FailedAt)
	assert.Nil(t, d.NextRetryAt)
	require.Len(t, d.Logs, 4)

	// A terminal row is no longer claimable.
	require.NoError(t, svc.Process(context.Background(), id))
	assert.Equal(t, 4, sender.attempts)
}

func TestProcessWithoutSenderFailsDelivery(t *testing.T) {
	db := setupTestDB(t)
	svc := NewDeliveryService(db, testDeliveryConfig(), &fakeSender{channel: models.DeliveryChannelEmail})
	_, deliveries := seedDelivery(t, db, svc, "buyer@mail.test", "+15550001111")

	var whatsapp models.TicketDelivery
	for _, d := range deliveries {
		if d.Channel == models.DeliveryChannelWhatsApp {
			whatsapp = d
		}
	}
	require.NotEqual(t, models.TicketDelivery{}, whatsapp)

	require.NoError(t, svc.Process(context.Background(), whatsapp.ID))
	d := reloadDelivery(t, db, whatsapp.ID)
	assert.Equal(t, models.DeliveryStatusRetry, d.Status)
	assert.Contains(t, d.LastError, "no sender configured")
}

func TestSweepProcessesDueRetries(t *testing.T) {
	db := setupTestDB(t)
	sender := &fakeSender{channel: models.DeliveryChannelEmail, failures: 1}
	svc := NewDeliveryService(db, testDeliveryConfig(), sender)
	_, deliveries := seedDelivery(t, db, svc, "buyer@mail.test", "")
	id := deliveries[0].ID

	require.NoError(t, svc.Process(context.Background(), id))
	d := reloadDelivery(t, db, id)
	require.Equal(t, models.DeliveryStatusRetry, d.Status)

	// Before the backoff elapses the row is not due.
	processed, err := svc.Sweep(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, processed)

	processed, err = svc.Sweep(context.Background(), time.Now().Add(6*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	d = reloadDelivery(t, db, id)
	assert.Equal(t, models.DeliveryStatusSent, d.Status)
}

func TestRetryDeliveryReopensFailedRow(t *testing.T) {
	db := setupTestDB(t)
	sender := &fakeSender{channel: models.DeliveryChannelEmail, failures: 4}
	svc := NewDeliveryService(db, testDeliveryConfig(), sender)
	_, deliveries := seedDelivery(t, db, svc, "buyer@mail.test", "")
	id := deliveries[0].ID

	for i := 0; i < 4; i++ {
		require.NoError(t, svc.Process(context.Background(), id))
	}
	require.Equal(t, models.DeliveryStatusFailed, reloadDelivery(t, db, id).Status)

	require.NoError(t, svc.RetryDelivery(context.Background(), id))

	d := reloadDelivery(t, db, id)
	assert.Equal(t, models.DeliveryStatusSent, d.Status)
	require.NotNil(t, d.SentAt)
}

func TestRetryDeliveryRejectsNonFailedRow(t *testing.T) {
	db := setupTestDB(t)
	svc := NewDeliveryService(db, testDeliveryConfig(), &fakeSender{channel: models.DeliveryChannelEmail})
	_, deliveries := seedDelivery(t, db, svc, "buyer@mail.test", "")

	err := svc.RetryDelivery(context.Background(), deliveries[0].ID)
	assert.Error(t, err)
}

func TestEnqueueMissingBackfillsFinishedOrders(t *testing.T) {
	db := setupTestDB(t)
	svc := NewDeliveryService(db, testDeliveryConfig(), &fakeSender{channel: models.DeliveryChannelEmail})
	f := seedSale(t, db, 5, 0)

	order := models.Order{
		Code:       "BF000001",
		BuyerEmail: "backfill@mail.test",
		Status:     models.OrderStatusFinished,
	}
	require.NoError(t, db.Create(&order).Error)
	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := NewETicketService(db).IssueTx(tx, &f.Event, &f.TicketType, &order, 2)
		return err
	})
	require.NoError(t, err)

	enqueued, err := svc.EnqueueMissing(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, enqueued)

	// Orders that already have rows are left alone.
	enqueued, err = svc.EnqueueMissing(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, enqueued)
}

func TestListByOrder(t *testing.T) {
	db := setupTestDB(t)
	svc := NewDeliveryService(db, testDeliveryConfig(), &fakeSender{channel: models.DeliveryChannelEmail})
	order, deliveries := seedDelivery(t, db, svc, "buyer@mail.test", "+15550001111")

	listed, err := svc.ListByOrder(order.ID)
	require.NoError(t, err)
	assert.Len(t, listed, len(deliveries))
}
