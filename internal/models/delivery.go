// internal/models/delivery.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type DeliveryLog struct {
	Timestamp  time.Time `json:"timestamp"`
	Level      string    `json:"level"`
	Message    string    `json:"message"`
	RetryCount int       `json:"retry_count"`
}

// DeliveryLogs is the append-only per-attempt log list, stored as JSONB.
type DeliveryLogs []DeliveryLog

func (l DeliveryLogs) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

func (l *DeliveryLogs) Scan(value interface{}) error {
	if value == nil {
		*l = nil
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

	return json.Unmarshal(bytes, l)
}

// TicketDelivery is one (eticket, channel) delivery attempt series.
type TicketDelivery struct {
	BaseModel
	ETicketID        uuid.UUID       `json:"eticket_id" gorm:"type:uuid;not null;index"`
	OrderID          uuid.UUID       `json:"order_id" gorm:"type:uuid;not null;index"`
	Channel          DeliveryChannel `json:"channel" gorm:"type:varchar(20);not null"`
	Recipient        string          `json:"recipient" gorm:"size:255;not null"`
	Status           DeliveryStatus  `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	RetryCount       int             `json:"retry_count" gorm:"default:0"`
	MaxRetryCount    int             `json:"max_retry_count" gorm:"default:3"`
	NextRetryAt      *time.Time      `json:"next_retry_at,omitempty" gorm:"index"`
	SentAt           *time.Time      `json:"sent_at,omitempty"`
	FailedAt         *time.Time      `json:"failed_at,omitempty"`
	LastError        string          `json:"last_error,omitempty" gorm:"type:text"`
	Logs             DeliveryLogs    `json:"logs,omitempty" gorm:"type:jsonb"`
	ProviderResponse string          `json:"provider_response,omitempty" gorm:"type:text"`

	// Relationships
	ETicket ETicket `json:"eticket,omitempty" gorm:"foreignKey:ETicketID"`
	Order   Order   `json:"order,omitempty" gorm:"foreignKey:OrderID"`
}
