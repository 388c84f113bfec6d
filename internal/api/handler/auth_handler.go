package handler

import (
	"errors"
	"net/http"
	"os/user"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/coupon-admin/internal/api/metrics"
	"github.com/99minutos/coupon-admin/internal/core/domain"
	"github.com/99minutos/coupon-admin/internal/core/ports"
)

const (
	HeaderForwardedUser = "X-Forwarded-User"

	ModeIIS    = "iis"
	ModeNative = "native"
)

// WindowsOptions controls where the Windows identity is taken from.
type WindowsOptions struct {
	// NativeFallback uses the OS account running the API when no proxy header
	// is present. Only meaningful for single-user desktop deployments.
	NativeFallback bool
	// NativeUser overrides the OS lookup; tests set it.
	NativeUser func() (string, error)
}

type AuthHandler struct {
	authService ports.AuthService
	metrics     *metrics.Auth
	windows     WindowsOptions
}

func NewAuthHandler(authService ports.AuthService, m *metrics.Auth, windows WindowsOptions) *AuthHandler {
	if windows.NativeUser == nil {
		windows.NativeUser = osUser
	}
	return &AuthHandler{authService: authService, metrics: m, windows: windows}
}

type accessTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// AccessToken exchanges form credentials for a bearer token.
//
// @Summary      Password login
// @Tags         login
// @Accept       x-www-form-urlencoded
// @Produce      json
// @Param        username  formData  string  true  "Username"
// @Param        password  formData  string  true  "Password"
// @Success      200  {object}  accessTokenResponse
// @Failure      400  {object}  errorDoc
// @Failure      401  {object}  errorDoc
// @Failure      422  {object}  errorDoc
// @Router       /login/access-token [post]
func (h *AuthHandler) AccessToken(c echo.Context) error {
	username := strings.TrimSpace(c.FormValue("username"))
	password := c.FormValue("password")

	var missing []string
	if username == "" {
		missing = append(missing, "username is required")
	}
	if password == "" {
		missing = append(missing, "password is required")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}

	token, _, err := h.authService.Login(c.Request().Context(), username, password)
	h.metrics.Login("password", err == nil)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, accessTokenResponse{AccessToken: string(token), TokenType: "bearer"})
}

// LoginWindows provisions the caller's Windows account and returns a token.
//
// @Summary      Windows login
// @Tags         login
// @Produce      json
// @Param        X-Forwarded-User  header  string  false  "DOMAIN\\user forwarded by IIS"
// @Success      200  {object}  domain.WindowsLogin
// @Failure      400  {object}  errorDoc
// @Failure      401  {object}  errorDoc
// @Router       /login/windows [get]
func (h *AuthHandler) LoginWindows(c echo.Context) error {
	account, mode := h.windowsIdentity(c)
	if account == "" {
		h.metrics.Login("windows", false)
		return domain.ErrMissingIdentity
	}

	out, err := h.authService.LoginWindows(c.Request().Context(), ports.WindowsIdentity{Account: account, Mode: mode})
	h.metrics.Login("windows", err == nil)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

// Signup creates a regular account.
//
// @Summary      Register
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      domain.NewUser  true  "Registration details"
// @Success      201   {object}  domain.User
// @Failure      409   {object}  errorDoc
// @Failure      422   {object}  errorDoc
// @Router       /users/signup [post]
func (h *AuthHandler) Signup(c echo.Context) error {
	var req domain.NewUser
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		h.metrics.Registration("invalid")
		return err
	}

	created, err := h.authService.Register(c.Request().Context(), req)
	switch {
	case errors.Is(err, domain.ErrUserExists):
		h.metrics.Registration("conflict")
		return err
	case errors.Is(err, domain.ErrInvalidCredentials):
		h.metrics.Registration("invalid")
		return &ValidationError{Fields: []string{"password must be at least 8 characters"}}
	case err != nil:
		h.metrics.Registration("error")
		return err
	}

	h.metrics.Registration("success")
	return c.JSON(http.StatusCreated, created)
}

func (h *AuthHandler) windowsIdentity(c echo.Context) (string, string) {
	if fwd := strings.TrimSpace(c.Request().Header.Get(HeaderForwardedUser)); fwd != "" {
		return fwd, ModeIIS
	}
	if !h.windows.NativeFallback {
		return "", ""
	}
	name, err := h.windows.NativeUser()
	if err != nil {
		return "", ""
	}
	return name, ModeNative
}

func osUser() (string, error) {
	u, err := user.Current()
	if err != nil {
		return "", err
	}
	return u.Username, nil
}

// errorDoc documents the {"detail": ...} envelope for swagger.
type errorDoc struct {
	Detail string `json:"detail"`
}
