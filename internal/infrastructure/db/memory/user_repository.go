// Package memory holds process-local stores for development runs without
// MongoDB (USER_STORE=memory) and for end-to-end tests.
package memory

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/99minutos/coupon-admin/internal/core/domain"
)

// UserRepository implements ports.UserRepository in memory.
type UserRepository struct {
	mu     sync.RWMutex
	byName map[string]*domain.User
	nextID int
}

func NewUserRepository() *UserRepository {
	return &UserRepository{byName: make(map[string]*domain.User)}
}

func (r *UserRepository) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byName[user.Username]; ok {
		return nil, domain.ErrUserExists
	}
	r.nextID++
	c := user.Clone()
	c.ID = domain.UserID(strconv.Itoa(r.nextID))
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	r.byName[c.Username] = c
	return c.Clone(), nil
}

func (r *UserRepository) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if u, ok := r.byName[username]; ok {
		return u.Clone(), nil
	}
	return nil, domain.ErrUserNotFound
}

func (r *UserRepository) FindByID(_ context.Context, id domain.UserID) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.byName {
		if u.ID == id {
			return u.Clone(), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *UserRepository) UpdateAccess(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.byName[user.Username]
	if !ok {
		return domain.ErrUserNotFound
	}
	cur.Roles = append([]string{}, user.Roles...)
	cur.IsSuperuser = user.IsSuperuser
	return nil
}

// SetActive flips the active flag; used by tests and admin tooling.
func (r *UserRepository) SetActive(username string, active bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byName[username]
	if ok {
		u.IsActive = active
	}
	return ok
}
