package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/coupon-admin/internal/api/handler"
	"github.com/99minutos/coupon-admin/internal/core/domain"
)

// RequireRole lets the request through when the caller holds any of
// allowedRoles. A caller without roles counts as a plain user.
func RequireRole(allowedRoles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			roles, _ := c.Get(handler.CtxRoles).([]string)
			if len(roles) == 0 {
				roles = []string{domain.RoleUser}
			}
			for _, r := range roles {
				if _, ok := allowed[r]; ok {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, "Insufficient permissions")
		}
	}
}
