package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/coupon-admin/internal/core/domain"
	"github.com/99minutos/coupon-admin/internal/core/ports"
)

const defaultFetchTimeout = 10 * time.Second

// IdentityResolver answers "who is the current user" by trying the stored
// bearer token first and the implicit Windows identity second.
type IdentityResolver struct {
	tokens  ports.TokenStore
	api     ports.IdentityAPI
	timeout time.Duration
	log     zerolog.Logger
}

// NewIdentityResolver returns a resolver. A non-positive timeout falls back to 10s.
func NewIdentityResolver(tokens ports.TokenStore, api ports.IdentityAPI, timeout time.Duration, log zerolog.Logger) *IdentityResolver {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &IdentityResolver{tokens: tokens, api: api, timeout: timeout, log: log}
}

// Resolution is the outcome of one Resolve call. Minted is the token handed
// out by the implicit login, empty when the stored token was used or nothing
// was found. Resolve never writes it; the caller persists it only if the
// resolution is still current.
type Resolution struct {
	User   *domain.User
	Minted domain.Token
}

// Resolve returns the current user, or a zero Resolution. It never fails: an
// unreachable, rejecting or garbled identity API all mean "nobody is logged in".
//
// A rejected token is left in place; only an explicit logout removes it.
func (r *IdentityResolver) Resolve(ctx context.Context) Resolution {
	// 1. Token based session.
	if tok, ok := r.tokens.Get(ctx); ok {
		u, err := r.me(ctx, tok)
		if err == nil && u != nil {
			r.log.Debug().Str("user_id", u.ID.String()).Str("strategy", "token").Msg("identity resolved")
			return Resolution{User: u}
		}
		r.log.Debug().Err(err).Str("strategy", "token").Msg("token lookup failed, trying implicit identity")
	}

	// 2. Implicit identity injected by the proxy.
	wl, err := r.windows(ctx)
	if err != nil || wl == nil || wl.User == nil {
		r.log.Debug().Err(err).Str("strategy", "implicit").Msg("no identity")
		return Resolution{}
	}
	u := wl.User.Clone()
	r.log.Debug().Str("user_id", u.ID.String()).Str("strategy", "implicit").Msg("identity resolved")
	return Resolution{User: u, Minted: wl.Token}
}

func (r *IdentityResolver) me(ctx context.Context, tok domain.Token) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.api.Me(ctx, tok)
}

func (r *IdentityResolver) windows(ctx context.Context) (*domain.WindowsLogin, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.api.WindowsLogin(ctx)
}
