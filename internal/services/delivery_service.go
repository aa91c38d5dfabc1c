// internal/services/delivery_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/eventra/eventra-backend/internal/config"
	"github.com/eventra/eventra-backend/internal/metrics"
	"github.com/eventra/eventra-backend/internal/models"
)

// DeliveryService owns the outbound ticket pipeline: it enqueues one durable
// delivery row per (ticket, channel), pushes attempts through the configured
// senders and schedules bounded retries with backoff.
type DeliveryService struct {
	db      *gorm.DB
	cfg     config.DeliveryConfig
	senders map[models.DeliveryChannel]ChannelSender
}

func NewDeliveryService(db *gorm.DB, cfg config.DeliveryConfig, senders ...ChannelSender) *DeliveryService {
	byChannel := make(map[models.DeliveryChannel]ChannelSender, len(senders))
	for _, s := range senders {
		byChannel[s.Channel()] = s
	}
	return &DeliveryService{db: db, cfg: cfg, senders: byChannel}
}

// EnqueueTx creates pending delivery rows for every issued ticket of the
// order, one per channel that has a recipient address. Creating the rows in
// the finalizing transaction makes the enqueue atomic with ticket issuance.
func (s *DeliveryService) EnqueueTx(tx *gorm.DB, order *models.Order, tickets []models.ETicket) ([]models.TicketDelivery, error) {
	targets := []struct {
		channel   models.DeliveryChannel
		recipient string
	}{
		{models.DeliveryChannelEmail, order.RecipientEmail()},
		{models.DeliveryChannelWhatsApp, order.RecipientPhone()},
	}

	var deliveries []models.TicketDelivery
	for _, ticket := range tickets {
		for _, target := range targets {
			if target.recipient == "" {
				continue
			}
			deliveries = append(deliveries, models.TicketDelivery{
				ETicketID:     ticket.ID,
				OrderID:       order.ID,
				Channel:       target.channel,
				Recipient:     target.recipient,
				Status:        models.DeliveryStatusPending,
				MaxRetryCount: s.cfg.MaxRetryCount,
			})
		}
	}

	if len(deliveries) == 0 {
		return nil, nil
	}

	if err := tx.Create(&deliveries).Error; err != nil {
		return nil, fmt.Errorf("failed to enqueue deliveries: %w", err)
	}

	return deliveries, nil
}

// Process claims the delivery and runs one send attempt. It is safe to call
// concurrently for the same delivery: only the caller that wins the claim
// performs the attempt.
func (s *DeliveryService) Process(ctx context.Context, deliveryID uuid.UUID) error {
	claimed, err := s.claim(deliveryID)
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}

	return s.attempt(ctx, deliveryID)
}

// claim flips a pending or retry row to sending. The conditional update is
// the distributed lock: a row already claimed by another worker matches zero
// rows.
func (s *DeliveryService) claim(deliveryID uuid.UUID) (bool, error) {
	result := s.db.Model(&models.TicketDelivery{}).
		Where("id = ? AND status IN ?", deliveryID,
			[]models.DeliveryStatus{models.DeliveryStatusPending, models.DeliveryStatusRetry}).
		Update("status", models.DeliveryStatusSending)
	if result.Error != nil {
		return false, fmt.Errorf("failed to claim delivery: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (s *DeliveryService) attempt(ctx context.Context, deliveryID uuid.UUID) error {
	var delivery models.TicketDelivery
	if err := s.db.Preload("ETicket").Preload("ETicket.Event").Preload("Order").Preload("Order.User").
		First(&delivery, "id = ?", deliveryID).Error; err != nil {
		return fmt.Errorf("failed to load delivery: %w", err)
	}

	sender, ok := s.senders[delivery.Channel]
	if !ok {
		return s.recordFailure(&delivery, fmt.Errorf("no sender configured for channel %s", delivery.Channel))
	}

	providerResponse, err := sender.Send(ctx, &delivery, &delivery.ETicket, &delivery.Order)
	if err != nil {
		metrics.DeliveryAttempts.WithLabelValues(string(delivery.Channel), "failed").Inc()
		return s.recordFailure(&delivery, err)
	}

	metrics.DeliveryAttempts.WithLabelValues(string(delivery.Channel), "sent").Inc()
	return s.recordSuccess(&delivery, providerResponse)
}

func (s *DeliveryService) recordSuccess(delivery *models.TicketDelivery, providerResponse string) error {
	now := time.Now()
	logs := append(delivery.Logs, models.DeliveryLog{
		Timestamp:  now,
		Level:      "info",
		Message:    "delivered",
		RetryCount: delivery.RetryCount,
	})

	err := s.db.Model(&models.TicketDelivery{}).Where("id = ?", delivery.ID).Updates(map[string]interface{}{
		"status":            models.DeliveryStatusSent,
		"sent_at":           now,
		"next_retry_at":     nil,
		"last_error":        "",
		"provider_response": providerResponse,
		"logs":              logs,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to record delivery success: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"delivery_id": delivery.ID,
		"channel":     delivery.Channel,
		"retry_count": delivery.RetryCount,
	}).Info("Ticket delivered")

	return nil
}

// recordFailure appends an attempt log and, while attempts remain, schedules
// a retry with the configured backoff. The failed attempt itself is not an
// error for the caller: the delivery stays durable and the sweeper picks it
// up again.
func (s *DeliveryService) recordFailure(delivery *models.TicketDelivery, sendErr error) error {
	now := time.Now()
	logs := append(delivery.Logs, models.DeliveryLog{
		Timestamp:  now,
		Level:      "error",
		Message:    sendErr.Error(),
		RetryCount: delivery.RetryCount,
	})

	updates := map[string]interface{}{
		"last_error": sendErr.Error(),
		"logs":       logs,
	}

	if delivery.RetryCount < delivery.MaxRetryCount {
		next := now.Add(s.backoff(delivery.RetryCount))
		updates["status"] = models.DeliveryStatusRetry
		updates["retry_count"] = delivery.RetryCount + 1
		updates["next_retry_at"] = next
		metrics.DeliveryRetries.Inc()
	} else {
		updates["status"] = models.DeliveryStatusFailed
		updates["failed_at"] = now
		updates["next_retry_at"] = nil
	}

	if err := s.db.Model(&models.TicketDelivery{}).Where("id = ?", delivery.ID).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to record delivery failure: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"delivery_id": delivery.ID,
		"channel":     delivery.Channel,
		"retry_count": delivery.RetryCount,
		"error":       sendErr.Error(),
	}).Warn("Ticket delivery attempt failed")

	return nil
}

func (s *DeliveryService) backoff(retryCount int) time.Duration {
	schedule := s.cfg.BackoffSchedule
	if len(schedule) == 0 {
		return 5 * time.Minute
	}
	if retryCount >= len(schedule) {
		return schedule[len(schedule)-1]
	}
	return schedule[retryCount]
}

// Sweep claims every retry row whose backoff has elapsed and runs one attempt
// for each. Called periodically by the background worker.
func (s *DeliveryService) Sweep(ctx context.Context, now time.Time) (int, error) {
	var due []models.TicketDelivery
	err := s.db.Where("status = ? AND next_retry_at IS NOT NULL AND next_retry_at <= ?",
		models.DeliveryStatusRetry, now).Find(&due).Error
	if err != nil {
		return 0, fmt.Errorf("failed to list due deliveries: %w", err)
	}

	processed := 0
	for _, delivery := range due {
		claimed, err := s.claim(delivery.ID)
		if err != nil {
			logrus.WithError(err).WithField("delivery_id", delivery.ID).Error("Failed to claim due delivery")
			continue
		}
		if !claimed {
			continue
		}
		if err := s.attempt(ctx, delivery.ID); err != nil {
			logrus.WithError(err).WithField("delivery_id", delivery.ID).Error("Failed to process due delivery")
			continue
		}
		processed++
	}

	return processed, nil
}

// RetryDelivery is the operator escape hatch for terminally failed rows. It
// reopens the row for one more attempt and processes immediately.
func (s *DeliveryService) RetryDelivery(ctx context.Context, deliveryID uuid.UUID) error {
	result := s.db.Model(&models.TicketDelivery{}).
		Where("id = ? AND status = ?", deliveryID, models.DeliveryStatusFailed).
		Updates(map[string]interface{}{
			"status":        models.DeliveryStatusPending,
			"next_retry_at": nil,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to reopen delivery: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.New("delivery not found or not in failed state")
	}

	return s.Process(ctx, deliveryID)
}

// EnqueueMissing backfills delivery rows for finished orders whose tickets
// never got any. Covers orders finalized before the pipeline existed or rows
// lost to operational mistakes.
func (s *DeliveryService) EnqueueMissing(ctx context.Context) (int, error) {
	var orders []models.Order
	err := s.db.Where("status = ? AND id NOT IN (?)", models.OrderStatusFinished,
		s.db.Model(&models.TicketDelivery{}).Select("order_id")).
		Preload("User").
		Find(&orders).Error
	if err != nil {
		return 0, fmt.Errorf("failed to list undelivered orders: %w", err)
	}

	enqueued := 0
	for i := range orders {
		order := &orders[i]

		var tickets []models.ETicket
		if err := s.db.Where("order_id = ?", order.ID).Find(&tickets).Error; err != nil {
			logrus.WithError(err).WithField("order_id", order.ID).Error("Failed to load tickets for backfill")
			continue
		}
		if len(tickets) == 0 {
			continue
		}

		created, err := s.EnqueueTx(s.db, order, tickets)
		if err != nil {
			logrus.WithError(err).WithField("order_id", order.ID).Error("Failed to backfill deliveries")
			continue
		}
		enqueued += len(created)
	}

	return enqueued, nil
}

// ListByOrder returns the delivery rows of one order, newest first.
func (s *DeliveryService) ListByOrder(orderID uuid.UUID) ([]models.TicketDelivery, error) {
	var deliveries []models.TicketDelivery
	err := s.db.Where("order_id = ?", orderID).Order("created_at DESC").Find(&deliveries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list deliveries: %w", err)
	}
	return deliveries, nil
}
