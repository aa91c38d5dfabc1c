// internal/services/event_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/eventra/eventra-backend/internal/cache"
	"github.com/eventra/eventra-backend/internal/models"
	"github.com/eventra/eventra-backend/internal/utils"
)

// EventService serves the public catalog. Detail and availability reads are
// cache-backed since they dominate traffic during on-sales; writes go
// straight to the database and invalidate.
type EventService struct {
	db    *gorm.DB
	cache *cache.Cache
}

func NewEventService(db *gorm.DB, c *cache.Cache) *EventService {
	return &EventService{db: db, cache: c}
}

func eventCacheKey(id uuid.UUID) string {
	return "event:detail:" + id.String()
}

// GetEvent returns the event with its ticket types. Ephemeral events require
// the matching access code.
func (s *EventService) GetEvent(ctx context.Context, id uuid.UUID, accessCode string) (*models.Event, error) {
	var event models.Event

	if err := s.cache.Get(ctx, eventCacheKey(id), &event); err != nil {
		if err := s.db.Preload("TicketTypes").First(&event, "id = ?", id).Error; err != nil {
			return nil, err
		}
		s.cache.Set(ctx, eventCacheKey(id), &event)
	}

	if event.IsEphemeral && !utils.SecureCompare(event.AccessCode, accessCode) {
		return nil, gorm.ErrRecordNotFound
	}

	return &event, nil
}

// ListEvents pages through public, non-ephemeral events.
func (s *EventService) ListEvents(params utils.PaginationParams) (*utils.PaginationResult, error) {
	query := s.db.Model(&models.Event{}).Where("is_ephemeral = ?", false)

	if params.Search != "" {
		like := "%" + params.Search + "%"
		query = query.Where("title LIKE ?", like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count events: %w", err)
	}

	var events []models.Event
	query = utils.ApplySort(query, params, []string{"starts_at", "created_at", "title"})
	if err := utils.ApplyPagination(query, params).Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	result := utils.CreatePaginationResult(events, total, params)
	return &result, nil
}

// Availability is the lightweight stock view the checkout page polls.
type Availability struct {
	TicketTypeID      uuid.UUID `json:"ticket_type_id"`
	Unlimited         bool      `json:"unlimited"`
	AvailableQuantity int       `json:"available_quantity"`
}

func (s *EventService) GetAvailability(ctx context.Context, ticketTypeID uuid.UUID) (*Availability, error) {
	var ticketType models.TicketType
	if err := s.db.First(&ticketType, "id = ?", ticketTypeID).Error; err != nil {
		return nil, err
	}

	return &Availability{
		TicketTypeID:      ticketType.ID,
		Unlimited:         ticketType.IsUnlimited(),
		AvailableQuantity: ticketType.AvailableQuantity,
	}, nil
}

// InvalidateEvent drops the cached detail after catalog writes.
func (s *EventService) InvalidateEvent(ctx context.Context, id uuid.UUID) {
	s.cache.Delete(ctx, eventCacheKey(id))
}

// RestoreOrder undoes a soft delete by order code.
func (s *EventService) RestoreOrder(code string) error {
	var order models.Order
	err := s.db.Unscoped().First(&order, "code = ?", code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.New("order not found")
		}
		return fmt.Errorf("database error: %w", err)
	}

	return models.Restore(s.db, &models.Order{}, order.ID)
}
