package ports

import (
	"context"

	"github.com/99minutos/coupon-admin/internal/core/domain"
)

// AuditService records authentication events.
type AuditService interface {
	Process(ctx context.Context, event domain.AuthEvent) error
}

// AuditSink accepts events for asynchronous recording. Enqueue must not block
// request handling for longer than a channel send.
type AuditSink interface {
	Enqueue(event domain.AuthEvent)
}
