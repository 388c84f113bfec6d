package service

import (
	"context"
	"strconv"
	"sync"

	"github.com/99minutos/coupon-admin/internal/core/domain"
)

// ---------------------------------------------------------------------------
// Client side stubs
// ---------------------------------------------------------------------------

type stubTokenStore struct {
	mu    sync.Mutex
	token domain.Token
	sets  int
	clear int
}

func (s *stubTokenStore) Get(_ context.Context) (domain.Token, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.token != ""
}

func (s *stubTokenStore) Set(_ context.Context, t domain.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = t
	s.sets++
}

func (s *stubTokenStore) Clear(_ context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.clear++
}

func (s *stubTokenStore) IsPresent(ctx context.Context) bool {
	_, ok := s.Get(ctx)
	return ok
}

type stubIdentityAPI struct {
	meFn       func(ctx context.Context, token domain.Token) (*domain.User, error)
	windowsFn  func(ctx context.Context) (*domain.WindowsLogin, error)
	tokenFn    func(ctx context.Context, username, password string) (domain.Token, error)
	registerFn func(ctx context.Context, in domain.NewUser) (*domain.User, error)

	mu           sync.Mutex
	meCalls      []domain.Token
	windowsCalls int
}

func (s *stubIdentityAPI) Me(ctx context.Context, token domain.Token) (*domain.User, error) {
	s.mu.Lock()
	s.meCalls = append(s.meCalls, token)
	s.mu.Unlock()
	if s.meFn == nil {
		return nil, &domain.AuthError{Kind: domain.KindUnauthorized, Status: 401}
	}
	return s.meFn(ctx, token)
}

func (s *stubIdentityAPI) WindowsLogin(ctx context.Context) (*domain.WindowsLogin, error) {
	s.mu.Lock()
	s.windowsCalls++
	s.mu.Unlock()
	if s.windowsFn == nil {
		return nil, &domain.AuthError{Kind: domain.KindUnauthorized, Status: 401}
	}
	return s.windowsFn(ctx)
}

func (s *stubIdentityAPI) AccessToken(ctx context.Context, username, password string) (domain.Token, error) {
	return s.tokenFn(ctx, username, password)
}

func (s *stubIdentityAPI) Register(ctx context.Context, in domain.NewUser) (*domain.User, error) {
	return s.registerFn(ctx, in)
}

type recordingNavigator struct {
	mu    sync.Mutex
	paths []string
}

func (n *recordingNavigator) Navigate(path string) {
	n.mu.Lock()
	n.paths = append(n.paths, path)
	n.mu.Unlock()
}

func (n *recordingNavigator) last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.paths) == 0 {
		return ""
	}
	return n.paths[len(n.paths)-1]
}

func userWithRoles(id string, roles ...string) *domain.User {
	return &domain.User{ID: domain.UserID(id), Username: "user" + id, Roles: roles}
}

// ---------------------------------------------------------------------------
// Server side stubs
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	mu      sync.Mutex
	users   map[string]*domain.User
	nextID  int
	updates int
	lookups int
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[user.Username]; exists {
		return nil, domain.ErrUserExists
	}
	c := user.Clone()
	if c.ID == "" {
		r.nextID++
		c.ID = domain.UserID(strconv.Itoa(r.nextID))
	}
	r.users[c.Username] = c.Clone()
	return c, nil
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[username]; ok {
		return u.Clone(), nil
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByID(_ context.Context, id domain.UserID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups++
	for _, u := range r.users {
		if u.ID == id {
			return u.Clone(), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) UpdateAccess(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.users[user.Username]
	if !ok {
		return domain.ErrUserNotFound
	}
	cur.Roles = append([]string(nil), user.Roles...)
	cur.IsSuperuser = user.IsSuperuser
	r.updates++
	return nil
}

type stubUserCache struct {
	users   map[domain.UserID]*domain.User
	deletes int
}

func newStubUserCache() *stubUserCache {
	return &stubUserCache{users: make(map[domain.UserID]*domain.User)}
}

func (c *stubUserCache) Get(_ context.Context, id domain.UserID) (*domain.User, error) {
	return c.users[id].Clone(), nil
}

func (c *stubUserCache) Set(_ context.Context, u *domain.User) error {
	c.users[u.ID] = u.Clone()
	return nil
}

func (c *stubUserCache) Delete(_ context.Context, id domain.UserID) error {
	delete(c.users, id)
	c.deletes++
	return nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []domain.AuthEvent
}

func (s *recordingSink) Enqueue(ev domain.AuthEvent) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
}

func (s *recordingSink) types() []domain.AuthEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.AuthEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Type)
	}
	return out
}
