package ports

import (
	"context"

	"github.com/99minutos/coupon-admin/internal/core/domain"
)

// UserRepository defines persistence operations for console users.
type UserRepository interface {
	FindByID(ctx context.Context, id domain.UserID) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	// UpdateAccess persists the roles and superuser flag of an existing user.
	UpdateAccess(ctx context.Context, user *domain.User) error
}

// UserCache is a read-through cache in front of UserRepository.FindByID.
// Implementations report a miss with (nil, nil).
type UserCache interface {
	Get(ctx context.Context, id domain.UserID) (*domain.User, error)
	Set(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id domain.UserID) error
}
