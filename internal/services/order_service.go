// internal/services/order_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
	"gorm.io/gorm"

	"github.com/eventra/eventra-backend/internal/broker"
	"github.com/eventra/eventra-backend/internal/config"
	"github.com/eventra/eventra-backend/internal/metrics"
	"github.com/eventra/eventra-backend/internal/models"
	"github.com/eventra/eventra-backend/internal/utils"
)

// staleWebhookWindow bounds the duplicate-webhook grace period. A repeat of a
// terminal transition inside the window is acknowledged as a no-op; after the
// window it is dropped as stale.
const staleWebhookWindow = 10 * time.Minute

// WebhookScope identifies the callback endpoint a webhook arrived on, which
// constrains the transaction kinds it may address.
type WebhookScope string

const (
	WebhookScopePayment WebhookScope = "payment"
	WebhookScopePayout  WebhookScope = "payout"
)

// OrderService drives the order and transaction state machines for the
// non-seller purchase path: checkout, payment hand-off, webhook promotion
// and cancellation.
type OrderService struct {
	db         *gorm.DB
	config     *config.Config
	inventory  *InventoryService
	etickets   *ETicketService
	deliveries *DeliveryService
	discounts  DiscountPolicy
	publisher  *broker.Publisher
}

func NewOrderService(db *gorm.DB, cfg *config.Config, inventory *InventoryService, etickets *ETicketService, deliveries *DeliveryService, discounts DiscountPolicy, publisher *broker.Publisher) *OrderService {
	stripe.Key = cfg.Payment.StripeSecretKey

	return &OrderService{
		db:         db,
		config:     cfg,
		inventory:  inventory,
		etickets:   etickets,
		deliveries: deliveries,
		discounts:  discounts,
		publisher:  publisher,
	}
}

type CreateOrderRequest struct {
	TicketTypeID uuid.UUID  `json:"ticket_type_id" validate:"required"`
	Quantity     int        `json:"quantity" validate:"required,min=1"`
	UserID       *uuid.UUID `json:"user_id,omitempty"`
	BuyerName    string     `json:"buyer_name,omitempty" validate:"omitempty,max=255"`
	BuyerEmail   string     `json:"buyer_email,omitempty" validate:"omitempty,email"`
	BuyerPhone   string     `json:"buyer_phone,omitempty" validate:"omitempty,phone"`
	CouponCode   string     `json:"coupon_code,omitempty" validate:"omitempty,max=64"`
	AutoResolve  bool       `json:"-"`
}

// CreateOrder reserves inventory, applies at most one discount and opens a
// pending ORDER transaction. The reservation is authoritative: the same
// conditional decrement the point-of-sale path uses, so an order that exists
// always has stock behind it. AutoResolve is set only by the admin path and
// routes the transaction to the internal gateway.
func (s *OrderService) CreateOrder(req *CreateOrderRequest) (*models.Order, *models.Transaction, error) {
	var order models.Order
	var transaction models.Transaction

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var ticketType models.TicketType
		if err := tx.Preload("Event").First(&ticketType, "id = ?", req.TicketTypeID).Error; err != nil {
			return fmt.Errorf("ticket type not found: %w", err)
		}

		var user *models.User
		if req.UserID != nil {
			user = &models.User{}
			if err := tx.First(user, "id = ?", *req.UserID).Error; err != nil {
				return fmt.Errorf("user not found: %w", err)
			}
		}

		code, err := generateUniqueOrderCode(tx)
		if err != nil {
			return err
		}

		order = models.Order{
			Code:       code,
			UserID:     req.UserID,
			BuyerName:  req.BuyerName,
			BuyerEmail: req.BuyerEmail,
			BuyerPhone: req.BuyerPhone,
			Status:     models.OrderStatusSubmitted,
		}
		order.User = user
		if order.RecipientEmail() == "" && order.RecipientPhone() == "" {
			return ErrMissingBuyer
		}

		if !ticketType.Event.HasCapacityFor(req.Quantity) {
			metrics.CapacityRejections.WithLabelValues("participant_limit").Inc()
			return ErrParticipantLimitReached
		}

		if _, err := s.inventory.ReserveTx(tx, ticketType.ID, req.Quantity); err != nil {
			metrics.CapacityRejections.WithLabelValues("event_stock").Inc()
			return err
		}

		lineTotal := ticketType.Price * float64(req.Quantity)

		discount, err := s.discounts.Apply(tx, ticketType.EventID, lineTotal, req.CouponCode, time.Now())
		if err != nil {
			return err
		}

		amount := lineTotal
		gateway := models.GatewayStripe
		var couponMetadata models.JSONB
		var discountSnapshot models.JSONB

		if discount != nil {
			amount = discount.ReducedAmount
			couponMetadata = discount.Snapshot()
			discountSnapshot = discount.Snapshot()
			order.HasBeenDiscounted = true
			if err := MarkCouponUsed(tx, discount.CouponCode); err != nil {
				return err
			}
		}

		if req.AutoResolve {
			gateway = models.GatewayInternalAuto
		} else if discount != nil && amount == 0 {
			gateway = models.GatewayFreeShipping
		}

		if err := tx.Create(&order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		item := models.OrderItem{
			OrderID:          order.ID,
			TicketTypeID:     ticketType.ID,
			Quantity:         req.Quantity,
			UnitPrice:        ticketType.Price,
			LineTotal:        lineTotal,
			DiscountSnapshot: discountSnapshot,
		}
		if err := tx.Create(&item).Error; err != nil {
			return fmt.Errorf("failed to create order item: %w", err)
		}
		order.Item = &item

		transaction = models.Transaction{
			Kind:            models.TransactionKindOrder,
			OrderID:         &order.ID,
			Amount:          amount,
			Status:          models.TransactionStatusPending,
			Gateway:         gateway,
			CouponMetadata:  couponMetadata,
			StatusUpdatedAt: time.Now(),
		}
		if err := tx.Create(&transaction).Error; err != nil {
			return fmt.Errorf("failed to create transaction: %w", err)
		}
		order.Txn = &transaction

		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	metrics.OrdersCreated.Inc()

	logrus.WithFields(logrus.Fields{
		"order_id":   order.ID,
		"order_code": order.Code,
		"gateway":    transaction.Gateway,
		"amount":     transaction.Amount,
	}).Info("Order created")

	return &order, &transaction, nil
}

func generateUniqueOrderCode(tx *gorm.DB) (string, error) {
	// Collisions on an 8-char code are rare enough that a few retries cover
	// them.
	for i := 0; i < 5; i++ {
		code, err := utils.GenerateOrderCode()
		if err != nil {
			return "", fmt.Errorf("failed to generate order code: %w", err)
		}
		var count int64
		if err := tx.Model(&models.Order{}).Unscoped().Where("code = ?", code).Count(&count).Error; err != nil {
			return "", fmt.Errorf("failed to check order code: %w", err)
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", fmt.Errorf("failed to generate a unique order code")
}

// PaymentBeginResult is what the checkout frontend needs to continue: for
// external gateways the client secret of the created intent, for internal
// gateways the already finalized order.
type PaymentBeginResult struct {
	Order        *models.Order       `json:"order"`
	Transaction  *models.Transaction `json:"transaction"`
	ClientSecret string              `json:"client_secret,omitempty"`
}

// BeginPayment moves the order into STARTED and routes by gateway: sentinel
// gateways settle immediately inside the same transaction, real gateways get
// a payment intent whose id later matches the webhook.
func (s *OrderService) BeginPayment(ctx context.Context, orderID uuid.UUID) (*PaymentBeginResult, error) {
	var result PaymentBeginResult
	var settled []models.TicketDelivery

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Preload("Item").Preload("User").First(&order, "id = ?", orderID).Error; err != nil {
			return fmt.Errorf("order not found: %w", err)
		}

		var transaction models.Transaction
		if err := lockForUpdate(tx).First(&transaction, "order_id = ?", order.ID).Error; err != nil {
			return fmt.Errorf("transaction not found: %w", err)
		}

		if transaction.Status.IsTerminal() {
			return ErrTransactionAlreadyPaid
		}
		if transaction.Status != models.TransactionStatusPending {
			return ErrOrderNotPayable
		}

		if err := tx.Model(&order).Update("status", models.OrderStatusStarted).Error; err != nil {
			return fmt.Errorf("failed to start order: %w", err)
		}
		order.Status = models.OrderStatusStarted

		switch transaction.Gateway {
		case models.GatewayFreeShipping, models.GatewayInternalAuto:
			if err := s.updateTransactionStatus(tx, &transaction, models.TransactionStatusPaid, nil); err != nil {
				return err
			}
			deliveries, err := s.finalizeOrderTx(tx, &transaction)
			if err != nil {
				return err
			}
			settled = deliveries

		default:
			params := &stripe.PaymentIntentParams{
				Amount:   stripe.Int64(int64(transaction.Amount * 100)),
				Currency: stripe.String(s.config.Payment.Currency),
			}
			params.AddMetadata("order_code", order.Code)

			pi, err := paymentintent.New(params)
			if err != nil {
				return fmt.Errorf("failed to create payment intent: %w", err)
			}

			updates := map[string]interface{}{
				"status":            models.TransactionStatusInProgress,
				"gateway_id":        pi.ID,
				"status_updated_at": time.Now(),
			}
			if err := tx.Model(&transaction).Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to update transaction: %w", err)
			}
			transaction.Status = models.TransactionStatusInProgress
			transaction.GatewayID = pi.ID
			result.ClientSecret = pi.ClientSecret
		}

		result.Order = &order
		result.Transaction = &transaction
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(settled) > 0 {
		s.afterFinalize(ctx, result.Order, settled)
	}

	return &result, nil
}

// ApplyWebhook locates the transaction by gateway id and applies the event.
// Unknown ids are rejected, never auto-created. The whole update runs under a
// row lock so two concurrent webhooks for the same transaction serialize.
func (s *OrderService) ApplyWebhook(ctx context.Context, scope WebhookScope, gatewayID, eventName string, payload models.JSONB) (*models.Transaction, error) {
	target, ok := webhookTargetStatus(scope, eventName)
	if !ok {
		metrics.WebhooksProcessed.WithLabelValues("unknown_event").Inc()
		return nil, ErrUnknownWebhookEvent
	}

	var transaction models.Transaction
	var finalized *models.Order
	var enqueued []models.TicketDelivery

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).Where("gateway_id = ?", gatewayID).First(&transaction).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrUnknownTransaction
			}
			return fmt.Errorf("failed to load transaction: %w", err)
		}

		if !scopeMatchesKind(scope, transaction.Kind) {
			return ErrWebhookKindMismatch
		}

		if transaction.Status.IsTerminal() {
			if time.Since(transaction.StatusUpdatedAt) <= staleWebhookWindow {
				return ErrTransactionAlreadyCompleted
			}
			return ErrStaleWebhook
		}

		if transaction.Kind == models.TransactionKindWithdraw && target == models.TransactionStatusPaid {
			target = models.TransactionStatusResolved
		}

		if err := s.updateTransactionStatus(tx, &transaction, target, payload); err != nil {
			return err
		}

		switch {
		case target == models.TransactionStatusPaid && transaction.Kind == models.TransactionKindOrder:
			deliveries, err := s.finalizeOrderTx(tx, &transaction)
			if err != nil {
				return err
			}
			enqueued = deliveries
			finalized = transaction.Order

		case target == models.TransactionStatusResolved && transaction.Kind == models.TransactionKindWithdraw:
			if err := s.resolveWithdrawalTx(tx, &transaction, models.WithdrawalStatusResolved); err != nil {
				return err
			}

		case target == models.TransactionStatusFailed || target == models.TransactionStatusCanceled:
			if err := s.rollBackEntityTx(tx, &transaction); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		switch err {
		case ErrTransactionAlreadyCompleted:
			metrics.WebhooksProcessed.WithLabelValues("already_completed").Inc()
		case ErrStaleWebhook:
			metrics.WebhooksProcessed.WithLabelValues("stale").Inc()
		case ErrUnknownTransaction:
			metrics.WebhooksProcessed.WithLabelValues("unknown_transaction").Inc()
		default:
			metrics.WebhooksProcessed.WithLabelValues("error").Inc()
		}
		return &transaction, err
	}

	metrics.WebhooksProcessed.WithLabelValues("applied").Inc()

	logrus.WithFields(logrus.Fields{
		"gateway_id": gatewayID,
		"event":      eventName,
		"status":     transaction.Status,
	}).Info("Webhook applied")

	if finalized != nil {
		s.afterFinalize(ctx, finalized, enqueued)
	}

	return &transaction, nil
}

func webhookTargetStatus(scope WebhookScope, eventName string) (models.TransactionStatus, bool) {
	if scope == WebhookScopePayout {
		switch eventName {
		case "payout.sent":
			return models.TransactionStatusPaid, true
		case "payout.failed":
			return models.TransactionStatusFailed, true
		}
		return "", false
	}

	switch eventName {
	case "transaction.approved":
		return models.TransactionStatusPaid, true
	case "transaction.canceled", "transaction.declined":
		return models.TransactionStatusCanceled, true
	case "transaction.failed":
		return models.TransactionStatusFailed, true
	}
	return "", false
}

func scopeMatchesKind(scope WebhookScope, kind models.TransactionKind) bool {
	if scope == WebhookScopePayout {
		return kind == models.TransactionKindWithdraw
	}
	return kind != models.TransactionKindWithdraw
}

func (s *OrderService) updateTransactionStatus(tx *gorm.DB, transaction *models.Transaction, status models.TransactionStatus, payload models.JSONB) error {
	now := time.Now()
	updates := map[string]interface{}{
		"status":            status,
		"status_updated_at": now,
	}
	if payload != nil {
		updates["last_webhook_data"] = payload
	}

	if err := tx.Model(transaction).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update transaction status: %w", err)
	}

	transaction.Status = status
	transaction.StatusUpdatedAt = now
	if payload != nil {
		transaction.LastWebhookData = payload
	}
	return nil
}

// finalizeOrderTx promotes a paid order to FINISHED: issue the tickets, bump
// the participant counter and enqueue deliveries, all in the caller's
// transaction. Idempotent: an already finished order is left alone.
func (s *OrderService) finalizeOrderTx(tx *gorm.DB, transaction *models.Transaction) ([]models.TicketDelivery, error) {
	if transaction.OrderID == nil {
		return nil, fmt.Errorf("order transaction %s has no order", transaction.ID)
	}

	var order models.Order
	if err := tx.Preload("Item").Preload("User").First(&order, "id = ?", *transaction.OrderID).Error; err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	transaction.Order = &order

	if order.Status == models.OrderStatusFinished {
		return nil, nil
	}
	if order.Item == nil {
		return nil, fmt.Errorf("order %s has no item", order.ID)
	}

	var ticketType models.TicketType
	if err := tx.Preload("Event").First(&ticketType, "id = ?", order.Item.TicketTypeID).Error; err != nil {
		return nil, fmt.Errorf("failed to load ticket type: %w", err)
	}

	tickets, err := s.etickets.IssueTx(tx, &ticketType.Event, &ticketType, &order, order.Item.Quantity)
	if err != nil {
		return nil, err
	}

	// Inventory was already taken at order creation; only the participant
	// counter moves here. Payment has settled, so a limit breach at this
	// point is logged for the operator rather than blocking the order.
	result := tx.Model(&models.Event{}).
		Where("id = ? AND (participant_limit <= 0 OR participant_count + ? <= participant_limit)",
			ticketType.EventID, order.Item.Quantity).
		Update("participant_count", gorm.Expr("participant_count + ?", order.Item.Quantity))
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update participant count: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		logrus.WithFields(logrus.Fields{
			"order_id": order.ID,
			"event_id": ticketType.EventID,
		}).Error("Participant limit exceeded on paid order")
	}

	if err := tx.Model(&order).Update("status", models.OrderStatusFinished).Error; err != nil {
		return nil, fmt.Errorf("failed to finish order: %w", err)
	}
	order.Status = models.OrderStatusFinished

	deliveries, err := s.deliveries.EnqueueTx(tx, &order, tickets)
	if err != nil {
		return nil, err
	}

	metrics.TicketsIssued.Add(float64(len(tickets)))

	return deliveries, nil
}

// afterFinalize runs the post-commit side effects of a finished order:
// first-attempt delivery pushes and the domain event.
func (s *OrderService) afterFinalize(ctx context.Context, order *models.Order, deliveries []models.TicketDelivery) {
	for _, delivery := range deliveries {
		go func(id uuid.UUID) {
			if err := s.deliveries.Process(context.Background(), id); err != nil {
				logrus.WithError(err).WithField("delivery_id", id).Error("Failed to process delivery")
			}
		}(delivery.ID)
	}

	s.publisher.Publish(ctx, broker.EventOrderFinished, order.ID, map[string]interface{}{
		"order_id":   order.ID,
		"order_code": order.Code,
	})
}

// rollBackEntityTx undoes the side effects of a transaction that just went
// FAILED or CANCELED: orders release their reserved inventory, withdrawals
// restore the held balance.
func (s *OrderService) rollBackEntityTx(tx *gorm.DB, transaction *models.Transaction) error {
	switch transaction.Kind {
	case models.TransactionKindOrder:
		if transaction.OrderID == nil {
			return nil
		}

		var order models.Order
		if err := tx.Preload("Item").First(&order, "id = ?", *transaction.OrderID).Error; err != nil {
			return fmt.Errorf("failed to load order: %w", err)
		}
		if order.Status == models.OrderStatusFinished || order.Status == models.OrderStatusFailed {
			return nil
		}

		if order.Item != nil {
			if err := s.inventory.ReleaseTx(tx, order.Item.TicketTypeID, order.Item.Quantity); err != nil {
				return err
			}
		}

		if err := tx.Model(&order).Update("status", models.OrderStatusFailed).Error; err != nil {
			return fmt.Errorf("failed to fail order: %w", err)
		}

	case models.TransactionKindWithdraw:
		return s.resolveWithdrawalTx(tx, transaction, models.WithdrawalStatusFailed)
	}

	return nil
}

func (s *OrderService) resolveWithdrawalTx(tx *gorm.DB, transaction *models.Transaction, status models.WithdrawalStatus) error {
	if transaction.WithdrawalID == nil {
		return nil
	}

	var withdrawal models.Withdrawal
	if err := tx.First(&withdrawal, "id = ?", *transaction.WithdrawalID).Error; err != nil {
		return fmt.Errorf("failed to load withdrawal: %w", err)
	}

	if err := tx.Model(&withdrawal).Update("status", status).Error; err != nil {
		return fmt.Errorf("failed to update withdrawal: %w", err)
	}

	// A failed payout returns the held amount to the organization.
	if status == models.WithdrawalStatusFailed {
		err := tx.Model(&models.Organization{}).
			Where("id = ?", withdrawal.OrganizationID).
			Update("balance", gorm.Expr("balance + ?", withdrawal.Amount)).Error
		if err != nil {
			return fmt.Errorf("failed to restore balance: %w", err)
		}
	}

	return nil
}

// CancelOrder cancels an order that has not settled. Reserved inventory goes
// back to the pool.
func (s *OrderService) CancelOrder(ctx context.Context, orderID uuid.UUID) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Preload("Item").First(&order, "id = ?", orderID).Error; err != nil {
			return fmt.Errorf("order not found: %w", err)
		}

		if order.Status != models.OrderStatusSubmitted && order.Status != models.OrderStatusStarted {
			return ErrOrderNotCancelable
		}

		var transaction models.Transaction
		if err := lockForUpdate(tx).First(&transaction, "order_id = ?", order.ID).Error; err != nil {
			return fmt.Errorf("transaction not found: %w", err)
		}

		if transaction.Status == models.TransactionStatusPaid || transaction.Status == models.TransactionStatusResolved {
			return ErrOrderNotCancelable
		}

		if order.Item != nil {
			if err := s.inventory.ReleaseTx(tx, order.Item.TicketTypeID, order.Item.Quantity); err != nil {
				return err
			}
		}

		if !transaction.Status.IsTerminal() {
			if err := s.updateTransactionStatus(tx, &transaction, models.TransactionStatusCanceled, nil); err != nil {
				return err
			}
		}

		if err := tx.Model(&order).Update("status", models.OrderStatusCanceled).Error; err != nil {
			return fmt.Errorf("failed to cancel order: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.publisher.Publish(ctx, broker.EventOrderCanceled, orderID, map[string]interface{}{
		"order_id": orderID,
	})

	logrus.WithField("order_id", orderID).Info("Order canceled")
	return nil
}

// GetOrderByCode loads one order with its item, transaction and tickets.
func (s *OrderService) GetOrderByCode(code string) (*models.Order, error) {
	var order models.Order
	err := s.db.Preload("Item").Preload("Item.TicketType").Preload("Txn").Preload("ETickets").
		First(&order, "code = ?", code).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}
