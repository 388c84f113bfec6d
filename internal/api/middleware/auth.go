package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/coupon-admin/internal/api/handler"
	"github.com/99minutos/coupon-admin/internal/api/metrics"
	"github.com/99minutos/coupon-admin/internal/core/domain"
	"github.com/99minutos/coupon-admin/internal/core/ports"
	"github.com/99minutos/coupon-admin/internal/core/service"
)

// HeaderWindowsUser carries a Windows identity asserted by the fronting proxy.
const HeaderWindowsUser = "X-Windows-User"

// TokenVerifier checks a raw bearer token.
type TokenVerifier interface {
	Verify(raw string) (*service.Claims, error)
}

// Authenticate resolves the caller and injects it into the context. A proxy
// asserted Windows identity wins over a bearer token.
func Authenticate(auth ports.AuthService, tokens TokenVerifier, m *metrics.Auth) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			if account := strings.TrimSpace(c.Request().Header.Get(HeaderWindowsUser)); account != "" {
				u, err := auth.WindowsUser(ctx, account)
				if err != nil {
					return err
				}
				handler.SetPrincipal(c, u)
				return next(c)
			}

			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing authentication credentials")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				m.TokenRejected()
				return echo.NewHTTPError(http.StatusUnauthorized, "Could not validate credentials")
			}

			claims, err := tokens.Verify(strings.TrimSpace(parts[1]))
			if err != nil {
				m.TokenRejected()
				return echo.NewHTTPError(http.StatusUnauthorized, "Could not validate credentials")
			}

			u, err := auth.CurrentUser(ctx, domain.UserID(claims.Subject))
			if err != nil {
				return err
			}
			handler.SetPrincipal(c, u)
			return next(c)
		}
	}
}
