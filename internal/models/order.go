// internal/models/order.go
package models

import (
	"time"

	"github.com/google/uuid"
)

type Order struct {
	SoftDeleteModel
	Code              string      `json:"code" gorm:"size:16;uniqueIndex;not null"`
	UserID            *uuid.UUID  `json:"user_id,omitempty" gorm:"type:uuid;index"`
	BuyerName         string      `json:"buyer_name" gorm:"size:255"`
	BuyerEmail        string      `json:"buyer_email" gorm:"size:255;index"`
	BuyerPhone        string      `json:"buyer_phone" gorm:"size:32"`
	Status            OrderStatus `json:"status" gorm:"type:varchar(20);default:'submitted';index"`
	HasBeenDiscounted bool        `json:"has_been_discounted" gorm:"default:false"`
	CommissionPercent float64     `json:"commission_percent" gorm:"type:decimal(5,2);default:0"`

	// Relationships
	User     *User        `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Item     *OrderItem   `json:"item,omitempty" gorm:"foreignKey:OrderID"`
	ETickets []ETicket    `json:"etickets,omitempty" gorm:"foreignKey:OrderID"`
	Txn      *Transaction `json:"transaction,omitempty" gorm:"foreignKey:OrderID"`
}

// RecipientEmail returns the address electronic tickets are delivered to.
func (o *Order) RecipientEmail() string {
	if o.BuyerEmail != "" {
		return o.BuyerEmail
	}
	if o.User != nil {
		return o.User.Email
	}
	return ""
}

func (o *Order) RecipientPhone() string {
	if o.BuyerPhone != "" {
		return o.BuyerPhone
	}
	if o.User != nil {
		return o.User.Phone
	}
	return ""
}

func (o *Order) RecipientName() string {
	if o.BuyerName != "" {
		return o.BuyerName
	}
	if o.User != nil {
		return o.User.Name
	}
	return ""
}

type OrderItem struct {
	BaseModel
	OrderID          uuid.UUID `json:"order_id" gorm:"type:uuid;not null;uniqueIndex"`
	TicketTypeID     uuid.UUID `json:"ticket_type_id" gorm:"type:uuid;not null;index"`
	Quantity         int       `json:"quantity" gorm:"not null"`
	UnitPrice        float64   `json:"unit_price" gorm:"type:decimal(12,2);not null"`
	LineTotal        float64   `json:"line_total" gorm:"type:decimal(12,2);not null"`
	DiscountSnapshot JSONB     `json:"discount_snapshot,omitempty" gorm:"type:jsonb"`

	// Relationships
	TicketType TicketType `json:"ticket_type,omitempty" gorm:"foreignKey:TicketTypeID"`
}

// Transaction is the money-movement record tied to exactly one entity
// (order, withdrawal or highlighting).
type Transaction struct {
	BaseModel
	Kind             TransactionKind   `json:"kind" gorm:"type:varchar(30);not null;index"`
	OrderID          *uuid.UUID        `json:"order_id,omitempty" gorm:"type:uuid;index"`
	WithdrawalID     *uuid.UUID        `json:"withdrawal_id,omitempty" gorm:"type:uuid;index"`
	Amount           float64           `json:"amount" gorm:"type:decimal(12,2);not null"`
	Status           TransactionStatus `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	Gateway          string            `json:"gateway" gorm:"size:50"`
	GatewayID        string            `json:"gateway_id" gorm:"size:255;index"`
	PaymentChannel   string            `json:"payment_channel" gorm:"size:50"`
	PaymentReference string            `json:"payment_reference" gorm:"size:255"`
	CouponMetadata   JSONB             `json:"coupon_metadata,omitempty" gorm:"type:jsonb"`
	Metadata         JSONB             `json:"metadata,omitempty" gorm:"type:jsonb"`
	LastWebhookData  JSONB             `json:"last_webhook_data,omitempty" gorm:"type:jsonb"`
	StatusUpdatedAt  time.Time         `json:"status_updated_at"`

	// Relationships
	Order      *Order      `json:"order,omitempty" gorm:"foreignKey:OrderID"`
	Withdrawal *Withdrawal `json:"withdrawal,omitempty" gorm:"foreignKey:WithdrawalID"`
}

type Withdrawal struct {
	BaseModel
	OrganizationID uuid.UUID        `json:"organization_id" gorm:"type:uuid;not null;index"`
	Amount         float64          `json:"amount" gorm:"type:decimal(12,2);not null"`
	Status         WithdrawalStatus `json:"status" gorm:"type:varchar(20);default:'requested';index"`
	AccountInfo    JSONB            `json:"account_info,omitempty" gorm:"type:jsonb"`

	// Relationships
	Organization Organization `json:"organization,omitempty" gorm:"foreignKey:OrganizationID"`
}

type Coupon struct {
	BaseModel
	Code       string       `json:"code" gorm:"size:64;uniqueIndex;not null"`
	Method     CouponMethod `json:"method" gorm:"type:varchar(20);not null"`
	Value      float64      `json:"value" gorm:"type:decimal(12,2);not null"`
	IsActive   bool         `json:"is_active" gorm:"default:true"`
	Automatic  bool         `json:"automatic" gorm:"default:false"`
	ValidFrom  *time.Time   `json:"valid_from,omitempty"`
	ValidUntil *time.Time   `json:"valid_until,omitempty"`
	UsageLimit int          `json:"usage_limit" gorm:"default:0"`
	UsedCount  int          `json:"used_count" gorm:"default:0"`
	EventID    *uuid.UUID   `json:"event_id,omitempty" gorm:"type:uuid;index"`
}

// IsValidAt reports whether the coupon can be applied at the given instant.
func (c *Coupon) IsValidAt(now time.Time) bool {
	if !c.IsActive {
		return false
	}
	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return false
	}
	if c.ValidUntil != nil && now.After(*c.ValidUntil) {
		return false
	}
	if c.UsageLimit > 0 && c.UsedCount >= c.UsageLimit {
		return false
	}
	return true
}

// Reduce applies the coupon to amount, clamped at zero.
func (c *Coupon) Reduce(amount float64) float64 {
	var reduced float64
	switch c.Method {
	case CouponMethodPercent:
		reduced = amount - amount*c.Value/100
	case CouponMethodFixed:
		reduced = amount - c.Value
	default:
		reduced = amount
	}
	if reduced < 0 {
		return 0
	}
	return reduced
}
