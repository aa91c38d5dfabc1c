// internal/models/event.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// UnlimitedQuantity is the sentinel meaning a ticket type has no finite stock.
const UnlimitedQuantity = -1

type Event struct {
	BaseModel
	OrganizationID   uuid.UUID      `json:"organization_id" gorm:"type:uuid;not null;index"`
	Title            string         `json:"title" gorm:"size:255;not null"`
	Description      string         `json:"description" gorm:"type:text"`
	Venue            string         `json:"venue" gorm:"size:255"`
	StartsAt         time.Time      `json:"starts_at" gorm:"not null;index"`
	EndsAt           time.Time      `json:"ends_at" gorm:"not null"`
	ParticipantLimit int            `json:"participant_limit" gorm:"default:0"`
	ParticipantCount int            `json:"participant_count" gorm:"default:0"`
	IsEphemeral      bool           `json:"is_ephemeral" gorm:"default:false"`
	AccessCode       string         `json:"-" gorm:"size:64;index"`
	Images           pq.StringArray `json:"images" gorm:"type:text[]"`
	Tags             pq.StringArray `json:"tags" gorm:"type:text[]"`

	// Relationships
	Organization Organization `json:"organization,omitempty" gorm:"foreignKey:OrganizationID"`
	TicketTypes  []TicketType `json:"ticket_types,omitempty" gorm:"foreignKey:EventID"`
}

// HasCapacityFor reports whether adding n participants stays within the
// event-level cap. A zero limit means uncapped.
func (e *Event) HasCapacityFor(n int) bool {
	if e.ParticipantLimit <= 0 {
		return true
	}
	return e.ParticipantCount+n <= e.ParticipantLimit
}

type TicketType struct {
	BaseModel
	EventID           uuid.UUID `json:"event_id" gorm:"type:uuid;not null;index"`
	Name              string    `json:"name" gorm:"size:255;not null"`
	Price             float64   `json:"price" gorm:"type:decimal(12,2);not null"`
	InitialQuantity   int       `json:"initial_quantity" gorm:"not null"`
	AvailableQuantity int       `json:"available_quantity" gorm:"not null;default:0"`

	// Relationships
	Event Event `json:"event,omitempty" gorm:"foreignKey:EventID"`
}

// IsUnlimited reports whether the ticket type carries no finite stock;
// available_quantity is never touched for unlimited types.
func (t *TicketType) IsUnlimited() bool {
	return t.InitialQuantity == UnlimitedQuantity
}
