// Package console wires the client side identity stack into one injectable
// value: token store, identity resolver, session cache and auth actions.
// Views and commands depend on a *Console instead of package globals.
package console

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/coupon-admin/internal/core/domain"
	"github.com/99minutos/coupon-admin/internal/core/policy"
	"github.com/99minutos/coupon-admin/internal/core/ports"
	"github.com/99minutos/coupon-admin/internal/core/service"
)

type Options struct {
	Tokens    ports.TokenStore
	API       ports.IdentityAPI
	Navigator ports.Navigator
	// FetchTimeout bounds each resolver stage. Zero uses the resolver default.
	FetchTimeout time.Duration
	Log          zerolog.Logger
}

type Console struct {
	tokens  ports.TokenStore
	session *service.SessionCache
	actions *service.AuthActions
	log     zerolog.Logger

	startOnce sync.Once
}

func New(opts Options) *Console {
	resolver := service.NewIdentityResolver(opts.Tokens, opts.API, opts.FetchTimeout, opts.Log.With().Str("component", "resolver").Logger())
	session := service.NewSessionCache(resolver, opts.Tokens, opts.Log.With().Str("component", "session").Logger())
	actions := service.NewAuthActions(opts.API, session, opts.Navigator, opts.Log.With().Str("component", "actions").Logger())
	return &Console{
		tokens:  opts.Tokens,
		session: session,
		actions: actions,
		log:     opts.Log,
	}
}

// Start runs the startup resolution exactly once and returns the session
// state. Later calls return the current snapshot without resolving again.
// A failed resolution is not an error: the session just stays anonymous.
func (c *Console) Start(ctx context.Context) domain.SessionState {
	ran := false
	c.startOnce.Do(func() {
		ran = true
		c.log.Debug().Bool("token_present", c.tokens.IsPresent(ctx)).Msg("resolving startup identity")
		c.session.Refresh(ctx)
	})
	if !ran {
		return c.session.Get()
	}
	st := c.session.Get()
	if st.User != nil {
		c.log.Info().Str("username", st.User.Username).Msg("session resolved")
	}
	return st
}

func (c *Console) Session() *service.SessionCache { return c.session }

func (c *Console) Actions() *service.AuthActions { return c.actions }

// Capabilities derives the navigation and role flags of the cached user.
func (c *Console) Capabilities() policy.CapabilitySet {
	return policy.Capabilities(c.session.Get().User)
}

// Guard decides whether path may be shown. When it may not, redirect names
// where to go instead: the login view for anonymous sessions, the dashboard
// for signed in users lacking the role.
func (c *Console) Guard(path string) (allowed bool, redirect string) {
	u := c.session.Get().User
	if policy.IsPublic(path) {
		return true, ""
	}
	if u == nil {
		return false, policy.PathLogin
	}
	if policy.CanVisit(u, path) {
		return true, ""
	}
	return false, policy.PathDashboard
}
