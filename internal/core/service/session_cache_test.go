package service

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/99minutos/coupon-admin/internal/core/domain"
)

// gatedResolver hands out results only when the test releases them.
type gatedResolver struct {
	mu      sync.Mutex
	calls   int
	started chan int
	gates   map[int]chan *domain.User
}

func newGatedResolver() *gatedResolver {
	return &gatedResolver{started: make(chan int, 8), gates: make(map[int]chan *domain.User)}
}

func (g *gatedResolver) gate(n int) chan *domain.User {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[n]
	if !ok {
		ch = make(chan *domain.User, 1)
		g.gates[n] = ch
	}
	return ch
}

func (g *gatedResolver) Resolve(_ context.Context) Resolution {
	g.mu.Lock()
	g.calls++
	n := g.calls
	g.mu.Unlock()
	g.started <- n
	return Resolution{User: <-g.gate(n)}
}

type fixedResolver struct{ u *domain.User }

func (f fixedResolver) Resolve(context.Context) Resolution { return Resolution{User: f.u.Clone()} }

func TestSessionCache_RefreshStoresUser(t *testing.T) {
	cache := NewSessionCache(fixedResolver{userWithRoles("1", "user")}, &stubTokenStore{}, zerolog.Nop())

	if st := cache.Get(); st.User != nil || st.IsLoading {
		t.Fatalf("expected empty initial state, got %+v", st)
	}

	st := cache.Refresh(context.Background())
	if st.User == nil || st.User.ID != "1" || st.IsLoading {
		t.Fatalf("unexpected state %+v", st)
	}
	if st.ResolvedAt.IsZero() {
		t.Fatalf("expected ResolvedAt to be set")
	}
}

func TestSessionCache_LoadingWhilePending(t *testing.T) {
	g := newGatedResolver()
	cache := NewSessionCache(g, &stubTokenStore{}, zerolog.Nop())

	done := make(chan domain.SessionState)
	go func() { done <- cache.Refresh(context.Background()) }()
	<-g.started

	if !cache.Get().IsLoading {
		t.Fatalf("expected IsLoading while resolution is pending")
	}
	g.gate(1) <- userWithRoles("1")
	if st := <-done; st.IsLoading || st.User == nil {
		t.Fatalf("unexpected final state %+v", st)
	}
}

func TestSessionCache_StaleResultDoesNotOverwriteFresh(t *testing.T) {
	g := newGatedResolver()
	cache := NewSessionCache(g, &stubTokenStore{}, zerolog.Nop())

	first := make(chan domain.SessionState)
	second := make(chan domain.SessionState)
	go func() { first <- cache.Refresh(context.Background()) }()
	<-g.started
	go func() { second <- cache.Refresh(context.Background()) }()
	<-g.started

	// The second (fresh) call completes first and sees a user.
	g.gate(2) <- userWithRoles("fresh", domain.RoleCouponAdmin)
	if st := <-second; st.User == nil || st.User.ID != "fresh" {
		t.Fatalf("expected fresh user, got %+v", st)
	}

	// The first (stale) call completes late with "absent".
	g.gate(1) <- nil
	<-first

	st := cache.Get()
	if st.User == nil || st.User.ID != "fresh" {
		t.Fatalf("stale resolution overwrote fresh state: %+v", st)
	}
	if st.IsLoading {
		t.Fatalf("expected not loading")
	}
}

func TestSessionCache_NewerAbsentWins(t *testing.T) {
	g := newGatedResolver()
	cache := NewSessionCache(g, &stubTokenStore{}, zerolog.Nop())

	first := make(chan domain.SessionState)
	second := make(chan domain.SessionState)
	go func() { first <- cache.Refresh(context.Background()) }()
	<-g.started
	go func() { second <- cache.Refresh(context.Background()) }()
	<-g.started

	g.gate(1) <- userWithRoles("old")
	<-first
	g.gate(2) <- nil
	<-second

	if st := cache.Get(); st.User != nil {
		t.Fatalf("latest call saw absent, expected absent, got %+v", st.User)
	}
}

func TestSessionCache_ResetSupersedesPendingRefresh(t *testing.T) {
	g := newGatedResolver()
	cache := NewSessionCache(g, &stubTokenStore{}, zerolog.Nop())

	done := make(chan domain.SessionState)
	go func() { done <- cache.Refresh(context.Background()) }()
	<-g.started

	cache.Reset()
	g.gate(1) <- userWithRoles("ghost")
	<-done

	st := cache.Get()
	if st.User != nil || st.IsLoading {
		t.Fatalf("expected empty session after reset, got %+v", st)
	}
}

func TestSessionCache_InvalidateRefreshes(t *testing.T) {
	u := userWithRoles("1")
	cache := NewSessionCache(fixedResolver{u}, &stubTokenStore{}, zerolog.Nop())
	cache.Refresh(context.Background())

	st := cache.Invalidate(context.Background())
	if st.User == nil || cache.Stale() {
		t.Fatalf("expected fresh session after invalidate, got %+v stale=%v", st, cache.Stale())
	}
}

func TestSessionCache_GetReturnsCopy(t *testing.T) {
	cache := NewSessionCache(fixedResolver{userWithRoles("1", "user")}, &stubTokenStore{}, zerolog.Nop())
	cache.Refresh(context.Background())

	st := cache.Get()
	st.User.Roles[0] = "coupon_admin"
	if cache.Get().User.HasRole("coupon_admin") {
		t.Fatalf("cached user mutated through snapshot")
	}
}

func TestSessionCache_ErrorSlotAndSubscribers(t *testing.T) {
	cache := NewSessionCache(fixedResolver{}, &stubTokenStore{}, zerolog.Nop())

	var mu sync.Mutex
	var seen []domain.SessionState
	unsubscribe := cache.Subscribe(func(st domain.SessionState) {
		mu.Lock()
		seen = append(seen, st)
		mu.Unlock()
	})

	cache.SetError(&domain.AuthError{Kind: domain.KindUnauthorized, Detail: "nope"})
	if domain.Message(cache.Get().Err) != "nope" {
		t.Fatalf("expected error recorded")
	}
	cache.ResetError()
	if cache.Get().Err != nil {
		t.Fatalf("expected error cleared")
	}

	unsubscribe()
	cache.SetError(&domain.AuthError{Detail: "ignored"})

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 {
		t.Fatalf("expected 2 notifications before unsubscribe, got %d", len(seen))
	}
}

func TestSessionCache_ConcurrentRefreshesSettle(t *testing.T) {
	cache := NewSessionCache(fixedResolver{userWithRoles("1")}, &stubTokenStore{}, zerolog.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cache.Refresh(context.Background())
		}()
	}
	wg.Wait()

	st := cache.Get()
	if st.IsLoading || st.User == nil {
		t.Fatalf("expected settled authenticated state, got %+v", st)
	}
}

func TestSessionCache_NotifySkipsOvertakenState(t *testing.T) {
	cache := NewSessionCache(fixedResolver{}, &stubTokenStore{}, zerolog.Nop())

	var seen []domain.SessionState
	cache.Subscribe(func(st domain.SessionState) { seen = append(seen, st) })

	cache.mu.Lock()
	cache.state.IsLoading = true
	loading, v1 := cache.publish()
	cache.state.IsLoading = false
	cache.state.User = userWithRoles("1")
	settled, v2 := cache.publish()
	cache.mu.Unlock()

	// Deliver out of order, as two racing goroutines could.
	cache.notify(settled, v2)
	cache.notify(loading, v1)

	if len(seen) != 1 {
		t.Fatalf("expected only the newest state delivered, got %d", len(seen))
	}
	if seen[0].IsLoading || seen[0].User == nil {
		t.Fatalf("subscriber saw %+v", seen[0])
	}
}

func TestSessionCache_SubscribersEndOnSettledState(t *testing.T) {
	cache := NewSessionCache(fixedResolver{userWithRoles("1")}, &stubTokenStore{}, zerolog.Nop())

	var mu sync.Mutex
	var last domain.SessionState
	cache.Subscribe(func(st domain.SessionState) {
		mu.Lock()
		last = st
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cache.Refresh(context.Background())
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if last.IsLoading || last.User == nil {
		t.Fatalf("last delivered state is not settled: %+v", last)
	}
}

func TestSessionCache_SupersededRefreshDoesNotPersistMintedToken(t *testing.T) {
	tokens := &stubTokenStore{}
	release := make(chan struct{})
	started := make(chan struct{})
	cache := NewSessionCache(resolverFunc(func(context.Context) Resolution {
		close(started)
		<-release
		return Resolution{User: userWithRoles("1"), Minted: "stale"}
	}), tokens, zerolog.Nop())

	done := make(chan domain.SessionState)
	go func() { done <- cache.Refresh(context.Background()) }()
	<-started

	cache.SignOut(context.Background())
	close(release)
	<-done

	if tokens.IsPresent(context.Background()) || tokens.sets != 0 {
		t.Fatalf("superseded resolution persisted its token")
	}
	if cache.Get().User != nil {
		t.Fatalf("superseded resolution applied its user")
	}
}

type resolverFunc func(ctx context.Context) Resolution

func (f resolverFunc) Resolve(ctx context.Context) Resolution { return f(ctx) }
