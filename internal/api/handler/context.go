package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/coupon-admin/internal/core/domain"
)

// Context keys written by the Authenticate middleware.
const (
	CtxUser   = "user"
	CtxUserID = "user_id"
	CtxRoles  = "roles"
)

// SetPrincipal stores the authenticated user on the request context.
func SetPrincipal(c echo.Context, u *domain.User) {
	c.Set(CtxUser, u)
	c.Set(CtxUserID, u.ID.String())
	c.Set(CtxRoles, u.Roles)
}

// ctxUser extracts the user injected by the Authenticate middleware and
// fails fast when the middleware did not run.
func ctxUser(c echo.Context) (*domain.User, error) {
	u, _ := c.Get(CtxUser).(*domain.User)
	if u == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Missing authentication credentials")
	}
	return u, nil
}
