package ports

import (
	"context"

	"github.com/99minutos/coupon-admin/internal/core/domain"
)

// IdentityAPI is the console's view of the identity backend. Failures are
// returned as *domain.AuthError.
type IdentityAPI interface {
	// Me returns the user the bearer token belongs to.
	Me(ctx context.Context, token domain.Token) (*domain.User, error)
	// WindowsLogin asks for the implicit, proxy supplied identity. No bearer header is sent.
	WindowsLogin(ctx context.Context) (*domain.WindowsLogin, error)
	// AccessToken exchanges credentials for a bearer token.
	AccessToken(ctx context.Context, username, password string) (domain.Token, error)
	Register(ctx context.Context, in domain.NewUser) (*domain.User, error)
}

// Navigator receives navigation signals from auth actions.
type Navigator interface {
	Navigate(path string)
}
