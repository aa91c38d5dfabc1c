// internal/models/eticket.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// ETicket is a single-use admission credential bound to a secret phrase.
type ETicket struct {
	SoftDeleteModel
	EventID        uuid.UUID  `json:"event_id" gorm:"type:uuid;not null;index"`
	TicketTypeID   uuid.UUID  `json:"ticket_type_id" gorm:"type:uuid;not null;index"`
	OrderID        uuid.UUID  `json:"order_id" gorm:"type:uuid;not null;index"`
	Name           string     `json:"name" gorm:"size:255;not null"`
	ExpirationDate time.Time  `json:"expiration_date" gorm:"not null"`
	SecretPhrase   string     `json:"-" gorm:"size:128;not null"`
	QRCodeData     string     `json:"qr_code_data" gorm:"type:text;not null"`
	IsActive       bool       `json:"is_active" gorm:"default:true;index"`
	ScannedAt      *time.Time `json:"scanned_at,omitempty"`

	// Relationships
	Event      Event      `json:"event,omitempty" gorm:"foreignKey:EventID"`
	TicketType TicketType `json:"ticket_type,omitempty" gorm:"foreignKey:TicketTypeID"`
	Order      Order      `json:"order,omitempty" gorm:"foreignKey:OrderID"`
}
