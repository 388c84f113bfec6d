package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/coupon-admin/internal/core/domain"
	"github.com/99minutos/coupon-admin/internal/core/ports"
)

// Resolver is the part of IdentityResolver the session cache depends on.
type Resolver interface {
	Resolve(ctx context.Context) Resolution
}

// SessionCache holds the resolved user and serialises resolutions: every
// Refresh, SignIn, SignOut or Reset takes a new sequence number and only the
// holder of the latest number may write. A slow, superseded resolution is
// dropped whole, including the token it minted, so it can never overwrite a
// fresher answer.
type SessionCache struct {
	resolver Resolver
	tokens   ports.TokenStore
	log      zerolog.Logger
	now      func() time.Time

	mu        sync.Mutex
	state     domain.SessionState
	seq       uint64
	version   uint64
	stale     bool
	listeners map[uint64]func(domain.SessionState)
	nextSub   uint64

	// deliverMu orders notifications; delivered is the last version handed out.
	deliverMu sync.Mutex
	delivered uint64
}

// NewSessionCache returns an empty cache. tokens receives the tokens minted
// by implicit logins and is written only under the sequence check.
func NewSessionCache(resolver Resolver, tokens ports.TokenStore, log zerolog.Logger) *SessionCache {
	return &SessionCache{
		resolver:  resolver,
		tokens:    tokens,
		log:       log,
		now:       time.Now,
		listeners: make(map[uint64]func(domain.SessionState)),
	}
}

// Get returns a snapshot of the cached session. The user is a copy.
func (s *SessionCache) Get() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Stale reports whether the cache was invalidated and has not been refreshed since.
func (s *SessionCache) Stale() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stale
}

// Refresh resolves the current user and stores the result, unless a newer
// Refresh, SignIn, SignOut or Reset started in the meantime. It returns the
// state as seen after its own resolution finished.
func (s *SessionCache) Refresh(ctx context.Context) domain.SessionState {
	s.mu.Lock()
	s.seq++
	mine := s.seq
	s.state.IsLoading = true
	loading, v := s.publish()
	s.mu.Unlock()
	s.notify(loading, v)

	res := s.resolver.Resolve(ctx)

	s.mu.Lock()
	if mine != s.seq {
		latest := s.seq
		st := s.snapshot()
		s.mu.Unlock()
		s.log.Debug().Uint64("seq", mine).Uint64("latest", latest).Msg("discarding superseded resolution")
		return st
	}
	if res.Minted != "" {
		s.tokens.Set(ctx, res.Minted)
	}
	s.state.User = res.User
	s.state.IsLoading = false
	s.state.ResolvedAt = s.now()
	if res.User != nil {
		s.state.Err = nil
	}
	s.stale = false
	st, v := s.publish()
	s.mu.Unlock()

	s.notify(st, v)
	return st
}

// Invalidate marks the cached user stale and refreshes it.
func (s *SessionCache) Invalidate(ctx context.Context) domain.SessionState {
	s.mu.Lock()
	s.stale = true
	s.mu.Unlock()
	return s.Refresh(ctx)
}

// SignIn stores token, supersedes any in-flight Refresh and resolves the
// session again with the new token.
func (s *SessionCache) SignIn(ctx context.Context, token domain.Token) domain.SessionState {
	s.mu.Lock()
	s.seq++
	s.tokens.Set(ctx, token)
	s.state.Err = nil
	s.stale = true
	s.mu.Unlock()
	return s.Refresh(ctx)
}

// SignOut clears the stored token and empties the session in one step, so
// no in-flight Refresh can restore either.
func (s *SessionCache) SignOut(ctx context.Context) {
	s.mu.Lock()
	s.seq++
	s.tokens.Clear(ctx)
	s.state = domain.SessionState{}
	s.stale = false
	st, v := s.publish()
	s.mu.Unlock()
	s.notify(st, v)
}

// Reset empties the session and supersedes any in-flight Refresh. No new
// resolution is started and the token store is not touched.
func (s *SessionCache) Reset() {
	s.mu.Lock()
	s.seq++
	s.state = domain.SessionState{}
	s.stale = false
	st, v := s.publish()
	s.mu.Unlock()
	s.notify(st, v)
}

// SetError records the last action failure for views to render.
func (s *SessionCache) SetError(err error) {
	s.mu.Lock()
	s.state.Err = err
	st, v := s.publish()
	s.mu.Unlock()
	s.notify(st, v)
}

func (s *SessionCache) ResetError() {
	s.SetError(nil)
}

// Subscribe registers fn for every state change and returns its cancel func.
// Subscribers see states in the order they were made; a state overtaken by a
// newer one before delivery is skipped. fn must not change the cache
// synchronously.
func (s *SessionCache) Subscribe(fn func(domain.SessionState)) func() {
	s.mu.Lock()
	s.nextSub++
	id := s.nextSub
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *SessionCache) snapshot() domain.SessionState {
	st := s.state
	st.User = s.state.User.Clone()
	return st
}

// publish stamps the current state with a new version. Callers hold mu.
func (s *SessionCache) publish() (domain.SessionState, uint64) {
	s.version++
	return s.snapshot(), s.version
}

func (s *SessionCache) notify(st domain.SessionState, version uint64) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	if version <= s.delivered {
		return
	}
	s.delivered = version

	s.mu.Lock()
	fns := make([]func(domain.SessionState), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}
