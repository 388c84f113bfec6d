package service

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/99minutos/coupon-admin/internal/core/domain"
	"github.com/99minutos/coupon-admin/internal/core/policy"
	"github.com/99minutos/coupon-admin/internal/core/ports"
)

// AuthActions are the user initiated operations that change who is logged in.
// Their only side effects are session cache writes (which own the token store)
// and navigation signals.
type AuthActions struct {
	api     ports.IdentityAPI
	session *SessionCache
	nav     ports.Navigator
	log     zerolog.Logger
}

func NewAuthActions(api ports.IdentityAPI, session *SessionCache, nav ports.Navigator, log zerolog.Logger) *AuthActions {
	return &AuthActions{api: api, session: session, nav: nav, log: log}
}

// LoginImplicit asks the identity API for the proxy supplied identity. On
// success the returned token replaces the stored one and the session is
// refreshed; on failure the token store is left alone.
func (a *AuthActions) LoginImplicit(ctx context.Context) error {
	wl, err := a.api.WindowsLogin(ctx)
	if err == nil && (wl == nil || wl.Token == "") {
		err = &domain.AuthError{Kind: domain.KindUnknown, Status: http.StatusOK, Detail: "Windows login failed"}
	}
	if err != nil {
		a.fail("login_implicit", err, "Windows login failed")
		return asAuthError(err, "Windows login failed")
	}

	a.session.SignIn(ctx, wl.Token)
	a.log.Info().Str("windows_user", wl.WindowsUser).Str("auth_mode", wl.AuthMode).Msg("implicit login succeeded")
	a.nav.Navigate(policy.PathMyCoupons)
	return nil
}

// LoginWithCredentials exchanges identifier and secret for a bearer token.
func (a *AuthActions) LoginWithCredentials(ctx context.Context, identifier, secret string) error {
	if identifier == "" || secret == "" {
		err := &domain.AuthError{Kind: domain.KindValidation, Detail: "Username and password are required"}
		a.fail("login_credentials", err, "")
		return err
	}

	tok, err := a.api.AccessToken(ctx, identifier, secret)
	if err != nil {
		a.fail("login_credentials", err, "Login failed")
		return asAuthError(err, "Login failed")
	}

	a.session.SignIn(ctx, tok)
	a.log.Info().Str("username", identifier).Msg("credential login succeeded")
	a.nav.Navigate(policy.PathDashboard)
	return nil
}

// Logout removes the token and empties the session. It does not start a new
// resolution; callers decide whether to try implicit login again.
func (a *AuthActions) Logout(ctx context.Context) {
	a.session.SignOut(ctx)
	a.log.Info().Msg("logged out")
	a.nav.Navigate(policy.PathLogin)
}

// Register creates an account and sends the user to the login view. It never
// logs the new user in.
func (a *AuthActions) Register(ctx context.Context, in domain.NewUser) error {
	u, err := a.api.Register(ctx, in)
	if err != nil {
		a.fail("register", err, "Registration failed")
		return asAuthError(err, "Registration failed")
	}
	a.log.Info().Str("username", u.Username).Msg("registered")
	a.nav.Navigate(policy.PathLogin)
	return nil
}

func (a *AuthActions) fail(action string, err error, fallback string) {
	ae := asAuthError(err, fallback)
	a.session.SetError(ae)
	a.log.Warn().
		Str("action", action).
		Str("kind", ae.Kind.String()).
		Int("status", ae.Status).
		Msg(domain.Message(ae))
}

// asAuthError guarantees the typed result and fills in a default message.
func asAuthError(err error, fallback string) *domain.AuthError {
	var ae *domain.AuthError
	if !errors.As(err, &ae) {
		ae = &domain.AuthError{Kind: domain.KindUnknown, Err: err}
	}
	if ae.Detail == "" && fallback != "" {
		c := *ae
		c.Detail = fallback
		return &c
	}
	return ae
}
