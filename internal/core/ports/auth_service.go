package ports

import (
	"context"

	"github.com/99minutos/coupon-admin/internal/core/domain"
)

// WindowsIdentity is the account name detected for a request and how it was detected.
type WindowsIdentity struct {
	Account string
	// Mode is "iis" for proxy injected identities and "native" for the server's own account.
	Mode string
}

// AuthService is the server side of the identity API.
type AuthService interface {
	Register(ctx context.Context, in domain.NewUser) (*domain.User, error)
	Login(ctx context.Context, username, password string) (domain.Token, *domain.User, error)
	LoginWindows(ctx context.Context, id WindowsIdentity) (*domain.WindowsLogin, error)
	// CurrentUser loads the user a verified token or proxy identity refers to.
	CurrentUser(ctx context.Context, id domain.UserID) (*domain.User, error)
	// WindowsUser returns the provisioned user for a proxy injected account name.
	WindowsUser(ctx context.Context, account string) (*domain.User, error)
}
