package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/coupon-admin/internal/core/domain"
)

func TestUserHandler_Me(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/me", nil), rec)
	SetPrincipal(c, &domain.User{ID: "9", Username: "ann", Roles: []string{domain.RoleCouponManager}})

	if err := NewUserHandler().Me(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var u domain.User
	if err := json.Unmarshal(rec.Body.Bytes(), &u); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if u.ID != "9" || !u.HasRole(domain.RoleCouponManager) {
		t.Fatalf("unexpected user %+v", u)
	}
}

func TestUserHandler_Me_WithoutPrincipal(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/me", nil), httptest.NewRecorder())

	err := NewUserHandler().Me(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}
