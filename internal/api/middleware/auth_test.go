package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/coupon-admin/internal/core/domain"
	"github.com/99minutos/coupon-admin/internal/core/ports"
	"github.com/99minutos/coupon-admin/internal/core/service"
)

type stubAuthService struct {
	users        map[domain.UserID]*domain.User
	windowsCalls []string
}

func (s *stubAuthService) Register(context.Context, domain.NewUser) (*domain.User, error) {
	return nil, nil
}

func (s *stubAuthService) Login(context.Context, string, string) (domain.Token, *domain.User, error) {
	return "", nil, nil
}

func (s *stubAuthService) LoginWindows(context.Context, ports.WindowsIdentity) (*domain.WindowsLogin, error) {
	return nil, nil
}

func (s *stubAuthService) CurrentUser(_ context.Context, id domain.UserID) (*domain.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func (s *stubAuthService) WindowsUser(_ context.Context, account string) (*domain.User, error) {
	s.windowsCalls = append(s.windowsCalls, account)
	return &domain.User{ID: "w1", Username: account, Roles: []string{domain.RoleUser}}, nil
}

func runAuth(t *testing.T, svc *stubAuthService, header map[string]string) (*httptest.ResponseRecorder, echo.Context, bool) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	h := Authenticate(svc, service.NewTokenIssuer("secret", time.Hour), nil)(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})
	if err := h(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec, c, called
}

func TestAuthenticate_ValidToken(t *testing.T) {
	u := &domain.User{ID: "42", Username: "alice", Roles: []string{domain.RoleCouponAdmin}, IsActive: true}
	svc := &stubAuthService{users: map[domain.UserID]*domain.User{"42": u}}
	tok, err := service.NewTokenIssuer("secret", time.Hour).Issue(u)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	rec, c, called := runAuth(t, svc, map[string]string{"Authorization": "Bearer " + string(tok)})
	if !called || rec.Code != http.StatusOK {
		t.Fatalf("expected pass-through, got called=%v code=%d", called, rec.Code)
	}
	if c.Get("user_id") != "42" {
		t.Fatalf("user_id not set: %v", c.Get("user_id"))
	}
	roles, _ := c.Get("roles").([]string)
	if len(roles) != 1 || roles[0] != domain.RoleCouponAdmin {
		t.Fatalf("roles not set: %v", roles)
	}
}

func TestAuthenticate_WindowsHeaderWins(t *testing.T) {
	svc := &stubAuthService{}
	rec, c, called := runAuth(t, svc, map[string]string{
		HeaderWindowsUser: `CORP\ann`,
		"Authorization":   "Bearer not-a-token",
	})
	if !called || rec.Code != http.StatusOK {
		t.Fatalf("expected windows identity to authenticate, got %d", rec.Code)
	}
	if len(svc.windowsCalls) != 1 || svc.windowsCalls[0] != `CORP\ann` {
		t.Fatalf("unexpected windows lookups %v", svc.windowsCalls)
	}
	if u, _ := c.Get("user").(*domain.User); u == nil || u.Username != `CORP\ann` {
		t.Fatalf("user not set")
	}
}

func TestAuthenticate_MissingCredentials(t *testing.T) {
	rec, _, called := runAuth(t, &stubAuthService{}, nil)
	if called || rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got called=%v code=%d", called, rec.Code)
	}
}

func TestAuthenticate_InvalidHeaderFormat(t *testing.T) {
	rec, _, called := runAuth(t, &stubAuthService{}, map[string]string{"Authorization": "Token abc"})
	if called || rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthenticate_InvalidToken(t *testing.T) {
	rec, _, called := runAuth(t, &stubAuthService{}, map[string]string{"Authorization": "Bearer not-a-token"})
	if called || rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthenticate_UnknownSubject(t *testing.T) {
	tok, _ := service.NewTokenIssuer("secret", time.Hour).Issue(&domain.User{ID: "gone"})
	svc := &stubAuthService{users: map[domain.UserID]*domain.User{}}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+string(tok))
	c := e.NewContext(req, httptest.NewRecorder())

	err := Authenticate(svc, service.NewTokenIssuer("secret", time.Hour), nil)(func(echo.Context) error {
		t.Fatalf("should not reach next")
		return nil
	})(c)
	if err != domain.ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
