// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// SoftDeleteModel adds gorm soft deletion on top of BaseModel. Soft-deleted
// rows are excluded from default queries; restore goes through Restore below.
type SoftDeleteModel struct {
	BaseModel
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// Restore re-activates a soft-deleted row of the given model.
func Restore(db *gorm.DB, model interface{}, id uuid.UUID) error {
	result := db.Unscoped().Model(model).Where("id = ?", id).Update("deleted_at", nil)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("record not found")
	}
	return nil
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		if s, isString := value.(string); isString {
			bytes = []byte(s)
		} else {
			return nil
		}
	}

	return json.Unmarshal(bytes, j)
}

// Enums
type OrganizationStatus string

const (
	OrganizationStatusActive    OrganizationStatus = "active"
	OrganizationStatusSuspended OrganizationStatus = "suspended"
)

type SellerStatus string

const (
	SellerStatusInvited   SellerStatus = "invited"
	SellerStatusActive    SellerStatus = "active"
	SellerStatusSuspended SellerStatus = "suspended"
	SellerStatusRemoved   SellerStatus = "removed"
)

type OrderStatus string

const (
	OrderStatusSubmitted OrderStatus = "submitted"
	OrderStatusStarted   OrderStatus = "started"
	OrderStatusFinished  OrderStatus = "finished"
	OrderStatusFailed    OrderStatus = "failed"
	OrderStatusCanceled  OrderStatus = "canceled"
)

type TransactionKind string

const (
	TransactionKindOrder        TransactionKind = "order"
	TransactionKindWithdraw     TransactionKind = "withdraw"
	TransactionKindHighlighting TransactionKind = "event_highlighting"
	TransactionKindSubscription TransactionKind = "subscription"
)

type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "pending"
	TransactionStatusInProgress TransactionStatus = "in_progress"
	TransactionStatusPaid       TransactionStatus = "paid"
	TransactionStatusResolved   TransactionStatus = "resolved"
	TransactionStatusCanceled   TransactionStatus = "canceled"
	TransactionStatusFailed     TransactionStatus = "failed"
)

// IsTerminal reports whether no further status transition is allowed.
func (s TransactionStatus) IsTerminal() bool {
	switch s {
	case TransactionStatusPaid, TransactionStatusResolved, TransactionStatusCanceled, TransactionStatusFailed:
		return true
	}
	return false
}

// Synthetic gateway identifiers that bypass external payment.
const (
	GatewayFreeShipping = "FREE_SHIPPING"
	GatewayInternalAuto = "INTERNAL_AUTO"
	GatewayStripe       = "stripe"
)

type StockTransactionKind string

const (
	StockTransactionKindAllocation StockTransactionKind = "allocation"
	StockTransactionKindSale       StockTransactionKind = "sale"
	StockTransactionKindReturn     StockTransactionKind = "return"
	StockTransactionKindAdjustment StockTransactionKind = "adjustment"
)

type DeliveryChannel string

const (
	DeliveryChannelEmail    DeliveryChannel = "email"
	DeliveryChannelWhatsApp DeliveryChannel = "whatsapp"
	DeliveryChannelSMS      DeliveryChannel = "sms"
)

type DeliveryStatus string

const (
	DeliveryStatusPending DeliveryStatus = "pending"
	DeliveryStatusSending DeliveryStatus = "sending"
	DeliveryStatusSent    DeliveryStatus = "sent"
	DeliveryStatusFailed  DeliveryStatus = "failed"
	DeliveryStatusRetry   DeliveryStatus = "retry"
)

type CouponMethod string

const (
	CouponMethodPercent CouponMethod = "percent"
	CouponMethodFixed   CouponMethod = "fixed"
)

type WithdrawalStatus string

const (
	WithdrawalStatusRequested WithdrawalStatus = "requested"
	WithdrawalStatusResolved  WithdrawalStatus = "resolved"
	WithdrawalStatusFailed    WithdrawalStatus = "failed"
)
