package memory

import (
	"context"
	"sync"

	"github.com/99minutos/coupon-admin/internal/core/domain"
)

// EventRepository keeps the audit trail in memory.
type EventRepository struct {
	mu     sync.Mutex
	events []domain.AuthEvent
}

func NewEventRepository() *EventRepository {
	return &EventRepository{}
}

func (r *EventRepository) InsertEvent(_ context.Context, event *domain.AuthEvent) error {
	r.mu.Lock()
	r.events = append(r.events, *event)
	r.mu.Unlock()
	return nil
}

// Events returns a copy of the recorded trail.
func (r *EventRepository) Events() []domain.AuthEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.AuthEvent(nil), r.events...)
}
