package ports

import (
	"context"

	"github.com/99minutos/coupon-admin/internal/core/domain"
)

// TokenStore persists at most one bearer token. Storage failures are never
// reported: an unusable medium behaves as if no token were stored.
type TokenStore interface {
	Get(ctx context.Context) (domain.Token, bool)
	Set(ctx context.Context, token domain.Token)
	Clear(ctx context.Context)
	IsPresent(ctx context.Context) bool
}
