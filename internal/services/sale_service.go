// internal/services/sale_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/eventra/eventra-backend/internal/broker"
	"github.com/eventra/eventra-backend/internal/metrics"
	"github.com/eventra/eventra-backend/internal/models"
)

// SaleService composes a complete point-of-sale transaction: a seller hands
// over n tickets against an already collected payment. Inventory movement,
// order, transaction, audit record, ticket issuance and the participant
// counter all commit or roll back together.
type SaleService struct {
	db         *gorm.DB
	inventory  *InventoryService
	etickets   *ETicketService
	deliveries *DeliveryService
	publisher  *broker.Publisher
}

func NewSaleService(db *gorm.DB, inventory *InventoryService, etickets *ETicketService, deliveries *DeliveryService, publisher *broker.Publisher) *SaleService {
	return &SaleService{
		db:         db,
		inventory:  inventory,
		etickets:   etickets,
		deliveries: deliveries,
		publisher:  publisher,
	}
}

type SellRequest struct {
	SellerID         uuid.UUID  `json:"seller_id" validate:"required"`
	TicketTypeID     uuid.UUID  `json:"ticket_type_id" validate:"required"`
	Quantity         int        `json:"quantity" validate:"required,min=1"`
	PaidAmount       float64    `json:"paid_amount" validate:"min=0"`
	PaymentChannel   string     `json:"payment_channel" validate:"required,max=50"`
	PaymentReference string     `json:"payment_reference" validate:"required,max=255"`
	BuyerUserID      *uuid.UUID `json:"buyer_user_id,omitempty"`
	BuyerName        string     `json:"buyer_name,omitempty" validate:"omitempty,max=255"`
	BuyerEmail       string     `json:"buyer_email,omitempty" validate:"omitempty,email"`
	BuyerPhone       string     `json:"buyer_phone,omitempty" validate:"omitempty,phone"`
	Notes            string     `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

type SellResult struct {
	Order       *models.Order       `json:"order"`
	Transaction *models.Transaction `json:"transaction"`
	ETickets    []models.ETicket    `json:"etickets"`
	SellerStock *models.SellerStock `json:"seller_stock"`
	Commission  float64             `json:"commission"`
}

// SellBySeller runs the whole sale in one transaction. A failure at any step
// leaves no trace: no inventory burned, no order, no tickets.
func (s *SaleService) SellBySeller(ctx context.Context, req *SellRequest) (*SellResult, error) {
	var result SellResult
	var enqueued []models.TicketDelivery

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var seller models.Seller
		if err := tx.First(&seller, "id = ?", req.SellerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("seller not found")
			}
			return fmt.Errorf("database error: %w", err)
		}
		if !seller.CanSell() {
			return ErrSellerNotAllowed
		}

		var ticketType models.TicketType
		if err := tx.Preload("Event").First(&ticketType, "id = ?", req.TicketTypeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("ticket type not found")
			}
			return fmt.Errorf("database error: %w", err)
		}

		if ticketType.Event.OrganizationID != seller.OrganizationID && !ticketType.Event.IsEphemeral {
			return ErrSellerNotAllowed
		}

		var stock models.SellerStock
		err := lockForUpdate(tx).
			Where("seller_id = ? AND event_id = ? AND ticket_type_id = ?", req.SellerID, ticketType.EventID, req.TicketTypeID).
			First(&stock).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInsufficientSellerStock
			}
			return fmt.Errorf("database error: %w", err)
		}

		if stock.Available() < req.Quantity {
			metrics.CapacityRejections.WithLabelValues("seller_stock").Inc()
			return ErrInsufficientSellerStock
		}

		// Step 3 and 8 in one: the conditional decrement both checks and
		// takes the event-level stock.
		if _, err := s.inventory.ReserveTx(tx, ticketType.ID, req.Quantity); err != nil {
			metrics.CapacityRejections.WithLabelValues("event_stock").Inc()
			return err
		}

		if !ticketType.Event.HasCapacityFor(req.Quantity) {
			metrics.CapacityRejections.WithLabelValues("participant_limit").Inc()
			return ErrParticipantLimitReached
		}

		code, err := generateUniqueOrderCode(tx)
		if err != nil {
			return err
		}

		order := models.Order{
			Code:              code,
			UserID:            req.BuyerUserID,
			BuyerName:         req.BuyerName,
			BuyerEmail:        req.BuyerEmail,
			BuyerPhone:        req.BuyerPhone,
			Status:            models.OrderStatusSubmitted,
			CommissionPercent: stock.CommissionRate,
		}

		if req.BuyerUserID != nil {
			order.User = &models.User{}
			if err := tx.First(order.User, "id = ?", *req.BuyerUserID).Error; err != nil {
				return fmt.Errorf("buyer not found: %w", err)
			}
		}
		if order.RecipientEmail() == "" && order.RecipientPhone() == "" {
			return ErrMissingBuyer
		}

		if err := tx.Create(&order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		item := models.OrderItem{
			OrderID:      order.ID,
			TicketTypeID: ticketType.ID,
			Quantity:     req.Quantity,
			UnitPrice:    stock.SalePrice,
			LineTotal:    stock.SalePrice * float64(req.Quantity),
		}
		if err := tx.Create(&item).Error; err != nil {
			return fmt.Errorf("failed to create order item: %w", err)
		}
		order.Item = &item

		transaction := models.Transaction{
			Kind:             models.TransactionKindOrder,
			OrderID:          &order.ID,
			Amount:           req.PaidAmount,
			Status:           models.TransactionStatusPaid,
			Gateway:          models.GatewayInternalAuto,
			PaymentChannel:   req.PaymentChannel,
			PaymentReference: req.PaymentReference,
			Metadata: models.JSONB{
				"seller_id": seller.ID.String(),
				"notes":     req.Notes,
			},
			StatusUpdatedAt: time.Now(),
		}
		if err := tx.Create(&transaction).Error; err != nil {
			return fmt.Errorf("failed to create transaction: %w", err)
		}
		order.Txn = &transaction

		commission, err := s.inventory.RecordSaleTx(tx, &stock, req.Quantity, order.ID)
		if err != nil {
			return err
		}

		capRes := tx.Model(&models.Event{}).
			Where("id = ? AND (participant_limit <= 0 OR participant_count + ? <= participant_limit)",
				ticketType.EventID, req.Quantity).
			Update("participant_count", gorm.Expr("participant_count + ?", req.Quantity))
		if capRes.Error != nil {
			return fmt.Errorf("failed to update participant count: %w", capRes.Error)
		}
		if capRes.RowsAffected == 0 {
			metrics.CapacityRejections.WithLabelValues("participant_limit").Inc()
			return ErrParticipantLimitReached
		}

		tickets, err := s.etickets.IssueTx(tx, &ticketType.Event, &ticketType, &order, req.Quantity)
		if err != nil {
			return err
		}

		if err := tx.Model(&order).Update("status", models.OrderStatusFinished).Error; err != nil {
			return fmt.Errorf("failed to finish order: %w", err)
		}
		order.Status = models.OrderStatusFinished

		deliveries, err := s.deliveries.EnqueueTx(tx, &order, tickets)
		if err != nil {
			return err
		}
		enqueued = deliveries

		result = SellResult{
			Order:       &order,
			Transaction: &transaction,
			ETickets:    tickets,
			SellerStock: &stock,
			Commission:  commission,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.SalesCompleted.Inc()
	metrics.TicketsIssued.Add(float64(len(result.ETickets)))

	for _, delivery := range enqueued {
		go func(id uuid.UUID) {
			if err := s.deliveries.Process(context.Background(), id); err != nil {
				logrus.WithError(err).WithField("delivery_id", id).Error("Failed to process delivery")
			}
		}(delivery.ID)
	}

	s.publisher.Publish(ctx, broker.EventOrderFinished, result.Order.ID, map[string]interface{}{
		"order_id":   result.Order.ID,
		"order_code": result.Order.Code,
		"seller_id":  req.SellerID,
		"quantity":   req.Quantity,
	})

	logrus.WithFields(logrus.Fields{
		"order_id":   result.Order.ID,
		"order_code": result.Order.Code,
		"seller_id":  req.SellerID,
		"quantity":   req.Quantity,
		"commission": result.Commission,
	}).Info("Seller sale completed")

	return &result, nil
}
