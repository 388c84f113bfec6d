package api

import (
	"strings"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/99minutos/coupon-admin/internal/api/handler"
	"github.com/99minutos/coupon-admin/internal/api/metrics"
	"github.com/99minutos/coupon-admin/internal/api/middleware"
	"github.com/99minutos/coupon-admin/internal/core/domain"
	"github.com/99minutos/coupon-admin/internal/core/ports"
	opshttp "github.com/99minutos/coupon-admin/internal/infrastructure/http"
	"github.com/99minutos/coupon-admin/internal/infrastructure/http/handlers"
)

// Deps are the collaborators the HTTP layer needs.
type Deps struct {
	Auth    ports.AuthService
	Tokens  middleware.TokenVerifier
	Windows handler.WindowsOptions
	Log     zerolog.Logger
	// Registry receives the HTTP and auth metrics. A fresh one is used when nil.
	Registry *prometheus.Registry
	// Ready lists the dependencies probed by /health/ready.
	Ready map[string]handlers.Pinger
	// Metrics is built from Registry when nil.
	Metrics *metrics.Auth
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	if d.Registry == nil {
		d.Registry = prometheus.NewRegistry()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.NewAuth(d.Registry)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "coupon_admin",
		Registerer: d.Registry,
		Skipper: func(c echo.Context) bool {
			return strings.HasPrefix(c.Path(), "/health") || c.Path() == "/metrics"
		},
	}))

	// --- Ops (no auth required) ---
	opshttp.RegisterOps(e, d.Registry, d.Ready)

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(d.Auth, d.Metrics, d.Windows)
	userHandler := handler.NewUserHandler()
	authenticate := middleware.Authenticate(d.Auth, d.Tokens, d.Metrics)

	v1 := e.Group("/api/v1")

	// --- Login and signup ---
	v1.GET("/login/windows", authHandler.LoginWindows)
	v1.POST("/login/access-token", authHandler.AccessToken)
	v1.POST("/users/signup", authHandler.Signup)

	// --- Authenticated ---
	v1.GET("/me", userHandler.Me, authenticate)

	admin := v1.Group("/admin", authenticate, middleware.RequireRole(domain.RoleCouponAdmin))
	admin.GET("/ping", userHandler.AdminPing)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			e := log.Info()
			if v.Status >= 500 {
				e = log.Error().Err(v.Error)
			}
			e.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
