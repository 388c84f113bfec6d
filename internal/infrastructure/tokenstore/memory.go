// Package tokenstore holds the persistent bearer token of the console.
//
// Every implementation swallows storage failures: a broken medium reads as
// "no token", which leaves the user unauthenticated instead of failing navigation.
package tokenstore

import (
	"context"
	"sync"

	"github.com/99minutos/coupon-admin/internal/core/domain"
)

// Memory keeps the token in process memory.
type Memory struct {
	mu    sync.RWMutex
	token domain.Token
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Get(_ context.Context) (domain.Token, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token, m.token != ""
}

func (m *Memory) Set(_ context.Context, token domain.Token) {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
}

func (m *Memory) Clear(_ context.Context) {
	m.mu.Lock()
	m.token = ""
	m.mu.Unlock()
}

func (m *Memory) IsPresent(ctx context.Context) bool {
	_, ok := m.Get(ctx)
	return ok
}
