// internal/models/seller_stock.go
package models

import (
	"github.com/google/uuid"
)

// SellerStock is the sub-inventory a ticket type allocates to one seller.
type SellerStock struct {
	BaseModel
	SellerID       uuid.UUID `json:"seller_id" gorm:"type:uuid;not null;uniqueIndex:idx_seller_event_ticket_type"`
	EventID        uuid.UUID `json:"event_id" gorm:"type:uuid;not null;uniqueIndex:idx_seller_event_ticket_type"`
	TicketTypeID   uuid.UUID `json:"ticket_type_id" gorm:"type:uuid;not null;uniqueIndex:idx_seller_event_ticket_type"`
	TotalAllocated int       `json:"total_allocated" gorm:"not null;default:0"`
	TotalSold      int       `json:"total_sold" gorm:"not null;default:0"`
	SalePrice      float64   `json:"sale_price" gorm:"type:decimal(12,2);not null"`
	CommissionRate float64   `json:"commission_rate" gorm:"type:decimal(5,2);not null;default:0"`

	// Relationships
	Seller     Seller     `json:"seller,omitempty" gorm:"foreignKey:SellerID"`
	Event      Event      `json:"event,omitempty" gorm:"foreignKey:EventID"`
	TicketType TicketType `json:"ticket_type,omitempty" gorm:"foreignKey:TicketTypeID"`
}

func (s *SellerStock) Available() int {
	return s.TotalAllocated - s.TotalSold
}

// CommissionFor computes the commission earned by the seller on a sale of n
// units at the stock's authorized price.
func (s *SellerStock) CommissionFor(quantity int) float64 {
	return float64(quantity) * s.SalePrice * s.CommissionRate / 100
}

// StockTransaction is the append-only audit record for every SellerStock
// mutation. quantity is signed; quantity_after = quantity_before + quantity.
type StockTransaction struct {
	BaseModel
	SellerStockID    uuid.UUID            `json:"seller_stock_id" gorm:"type:uuid;not null;index"`
	Kind             StockTransactionKind `json:"kind" gorm:"type:varchar(20);not null;index"`
	Quantity         int                  `json:"quantity" gorm:"not null"`
	QuantityBefore   int                  `json:"quantity_before" gorm:"not null"`
	QuantityAfter    int                  `json:"quantity_after" gorm:"not null"`
	OrderID          *uuid.UUID           `json:"order_id,omitempty" gorm:"type:uuid;index"`
	UnitSalePrice    *float64             `json:"unit_sale_price,omitempty" gorm:"type:decimal(12,2)"`
	CommissionAmount *float64             `json:"commission_amount,omitempty" gorm:"type:decimal(12,2)"`

	// Relationships
	SellerStock SellerStock `json:"seller_stock,omitempty" gorm:"foreignKey:SellerStockID"`
	Order       *Order      `json:"order,omitempty" gorm:"foreignKey:OrderID"`
}
