// internal/services/inventory_service.go
package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/eventra/eventra-backend/internal/models"
)

// InventoryService is the authoritative ledger for ticket-type stocks and
// per-seller sub-stocks. Every decrement runs under the ticket type's row lock
// plus a guarded conditional update, so concurrent reservers can never both
// observe the same available quantity and each decrement.
type InventoryService struct {
	db *gorm.DB
}

// ReserveReceipt holds the pre-decrement count of a successful reservation.
type ReserveReceipt struct {
	TicketTypeID uuid.UUID
	Quantity     int
	Before       int
	Unlimited    bool
}

func NewInventoryService(db *gorm.DB) *InventoryService {
	return &InventoryService{db: db}
}

// ReserveTx atomically checks and decrements the ticket type's available
// quantity within the given transaction. Unlimited ticket types skip both the
// check and the decrement.
func (s *InventoryService) ReserveTx(tx *gorm.DB, ticketTypeID uuid.UUID, quantity int) (*ReserveReceipt, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("reserve quantity must be positive, got %d", quantity)
	}

	var ticketType models.TicketType
	if err := lockForUpdate(tx).First(&ticketType, "id = ?", ticketTypeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("ticket type not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if ticketType.IsUnlimited() {
		return &ReserveReceipt{TicketTypeID: ticketTypeID, Quantity: quantity, Before: ticketType.AvailableQuantity, Unlimited: true}, nil
	}

	if ticketType.AvailableQuantity < quantity {
		return nil, ErrInsufficientEventStock
	}

	result := tx.Model(&models.TicketType{}).
		Where("id = ? AND available_quantity >= ?", ticketTypeID, quantity).
		UpdateColumn("available_quantity", gorm.Expr("available_quantity - ?", quantity))
	if result.Error != nil {
		return nil, fmt.Errorf("failed to decrement stock: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		// The guard re-checks what the row lock already serialized; losing
		// here means another writer slipped in between.
		return nil, ErrInsufficientEventStock
	}

	return &ReserveReceipt{TicketTypeID: ticketTypeID, Quantity: quantity, Before: ticketType.AvailableQuantity}, nil
}

// ReleaseTx increments the available quantity, used on sale rollback and
// seller returns. Unlimited ticket types are untouched.
func (s *InventoryService) ReleaseTx(tx *gorm.DB, ticketTypeID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("release quantity must be positive, got %d", quantity)
	}

	result := tx.Model(&models.TicketType{}).
		Where("id = ? AND initial_quantity <> ?", ticketTypeID, models.UnlimitedQuantity).
		UpdateColumn("available_quantity", gorm.Expr("available_quantity + ?", quantity))
	if result.Error != nil {
		return fmt.Errorf("failed to release stock: %w", result.Error)
	}

	return nil
}

// Reserve is the self-transactional form of ReserveTx.
func (s *InventoryService) Reserve(ticketTypeID uuid.UUID, quantity int) (*ReserveReceipt, error) {
	var receipt *ReserveReceipt
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		receipt, err = s.ReserveTx(tx, ticketTypeID, quantity)
		return err
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

func (s *InventoryService) Release(ticketTypeID uuid.UUID, quantity int) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return s.ReleaseTx(tx, ticketTypeID, quantity)
	})
}

type AllocateStockRequest struct {
	SellerID       uuid.UUID `json:"seller_id" validate:"required"`
	TicketTypeID   uuid.UUID `json:"ticket_type_id" validate:"required"`
	Quantity       int       `json:"quantity" validate:"required,min=1"`
	SalePrice      float64   `json:"sale_price" validate:"min=0"`
	CommissionRate float64   `json:"commission_rate" validate:"min=0,max=100"`
}

// AllocateToSeller reserves quantity on the ticket type and grows (or creates)
// the seller's sub-stock. The seller must be active or invited, and must belong
// to the organization owning the event unless the event is ephemeral.
func (s *InventoryService) AllocateToSeller(req *AllocateStockRequest) (*models.SellerStock, error) {
	var stock *models.SellerStock

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var seller models.Seller
		if err := tx.First(&seller, "id = ?", req.SellerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("seller not found")
			}
			return fmt.Errorf("database error: %w", err)
		}

		if !seller.MayHoldStock() {
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

		if _, err := s.ReserveTx(tx, req.TicketTypeID, req.Quantity); err != nil {
			return err
		}

		var existing models.SellerStock
		err := lockForUpdate(tx).
			Where("seller_id = ? AND event_id = ? AND ticket_type_id = ?", req.SellerID, ticketType.EventID, req.TicketTypeID).
			First(&existing).Error
		switch {
		case err == nil:
			before := existing.Available()
			updates := map[string]interface{}{
				"total_allocated": gorm.Expr("total_allocated + ?", req.Quantity),
				"sale_price":      req.SalePrice,
				"commission_rate": req.CommissionRate,
			}
			if err := tx.Model(&existing).Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to grow seller stock: %w", err)
			}
			existing.TotalAllocated += req.Quantity
			existing.SalePrice = req.SalePrice
			existing.CommissionRate = req.CommissionRate

			if err := s.recordStockTransaction(tx, &existing, models.StockTransactionKindAllocation, req.Quantity, before, nil, nil, nil); err != nil {
				return err
			}
			stock = &existing

		case errors.Is(err, gorm.ErrRecordNotFound):
			created := models.SellerStock{
				SellerID:       req.SellerID,
				EventID:        ticketType.EventID,
				TicketTypeID:   req.TicketTypeID,
				TotalAllocated: req.Quantity,
				SalePrice:      req.SalePrice,
				CommissionRate: req.CommissionRate,
			}
			if err := tx.Create(&created).Error; err != nil {
				return fmt.Errorf("failed to create seller stock: %w", err)
			}

			if err := s.recordStockTransaction(tx, &created, models.StockTransactionKindAllocation, req.Quantity, 0, nil, nil, nil); err != nil {
				return err
			}
			stock = &created

		default:
			return fmt.Errorf("database error: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"seller_id":      req.SellerID,
		"ticket_type_id": req.TicketTypeID,
		"quantity":       req.Quantity,
	}).Info("Allocated stock to seller")

	return stock, nil
}

// ReturnSellerAllocation shrinks a seller's allocation and releases the units
// back to the ticket type.
func (s *InventoryService) ReturnSellerAllocation(sellerStockID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("return quantity must be positive, got %d", quantity)
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var stock models.SellerStock
		if err := lockForUpdate(tx).First(&stock, "id = ?", sellerStockID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("seller stock not found")
			}
			return fmt.Errorf("database error: %w", err)
		}

		before := stock.Available()
		if quantity > before {
			return ErrInsufficientSellerStock
		}

		if err := tx.Model(&stock).
			UpdateColumn("total_allocated", gorm.Expr("total_allocated - ?", quantity)).Error; err != nil {
			return fmt.Errorf("failed to shrink seller stock: %w", err)
		}
		stock.TotalAllocated -= quantity

		if err := s.ReleaseTx(tx, stock.TicketTypeID, quantity); err != nil {
			return err
		}

		return s.recordStockTransaction(tx, &stock, models.StockTransactionKindReturn, -quantity, before, nil, nil, nil)
	})
}

// UpdateCommissionRate is an ordinary property change; no StockTransaction is
// written for it.
func (s *InventoryService) UpdateCommissionRate(sellerStockID uuid.UUID, rate float64) error {
	if rate < 0 || rate > 100 {
		return fmt.Errorf("commission rate must be within [0,100], got %v", rate)
	}

	result := s.db.Model(&models.SellerStock{}).
		Where("id = ?", sellerStockID).
		Update("commission_rate", rate)
	if result.Error != nil {
		return fmt.Errorf("failed to update commission rate: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.New("seller stock not found")
	}
	return nil
}

// RecordSaleTx raises the seller stock's sold counter and appends the SALE
// audit record with the commission earned. The caller must already hold the
// stock's row lock; the conditional update re-guards S1 regardless.
func (s *InventoryService) RecordSaleTx(tx *gorm.DB, stock *models.SellerStock, quantity int, orderID uuid.UUID) (float64, error) {
	if quantity <= 0 {
		return 0, fmt.Errorf("sale quantity must be positive, got %d", quantity)
	}

	before := stock.Available()
	if before < quantity {
		return 0, ErrInsufficientSellerStock
	}

	result := tx.Model(&models.SellerStock{}).
		Where("id = ? AND total_sold + ? <= total_allocated", stock.ID, quantity).
		UpdateColumn("total_sold", gorm.Expr("total_sold + ?", quantity))
	if result.Error != nil {
		return 0, fmt.Errorf("failed to record sale on seller stock: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return 0, ErrInsufficientSellerStock
	}
	stock.TotalSold += quantity

	commission := stock.CommissionFor(quantity)
	unitPrice := stock.SalePrice
	if err := s.recordStockTransaction(tx, stock, models.StockTransactionKindSale, -quantity, before, &orderID, &unitPrice, &commission); err != nil {
		return 0, err
	}

	return commission, nil
}

// recordStockTransaction appends the audit record for a SellerStock mutation.
// quantity is signed; the before count is the stock's available units prior to
// the mutation.
func (s *InventoryService) recordStockTransaction(tx *gorm.DB, stock *models.SellerStock, kind models.StockTransactionKind, quantity, before int, orderID *uuid.UUID, unitPrice, commission *float64) error {
	after := before + quantity

	record := models.StockTransaction{
		SellerStockID:    stock.ID,
		Kind:             kind,
		Quantity:         quantity,
		QuantityBefore:   before,
		QuantityAfter:    after,
		OrderID:          orderID,
		UnitSalePrice:    unitPrice,
		CommissionAmount: commission,
	}

	if err := tx.Create(&record).Error; err != nil {
		return fmt.Errorf("failed to write stock transaction: %w", err)
	}
	return nil
}
