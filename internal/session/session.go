// Package session owns the authenticated identity held in the session slot.
//
// The session is replaced on every login, register and self-update, and
// removed on logout. It never expires on its own.
package session

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"zxsgit/internal/localstore"
	"zxsgit/internal/models"
)

type Manager struct {
	mu    sync.Mutex
	store *localstore.Store
	now   func() models.Millis
}

func NewManager(store *localstore.Store) *Manager {
	return &Manager{store: store, now: models.Now}
}

// Current returns the persisted session, if any.
func (m *Manager) Current(ctx context.Context) (models.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load(ctx)
}

func (m *Manager) load(ctx context.Context) (models.Session, bool) {
	s := localstore.Get[*models.Session](ctx, m.store, localstore.KeySession, nil)
	if s == nil || s.Email == "" {
		return models.Session{}, false
	}
	return *s, true
}

// Start replaces the session with one derived from u and a fresh token.
func (m *Manager) Start(ctx context.Context, u models.User) (models.Session, error) {
	s := models.Session{
		Name:       u.Name,
		Email:      u.Email,
		Role:       u.Role,
		Token:      uuid.NewString(),
		SignedInAt: m.now(),
	}
	return s, m.put(ctx, s)
}

// Adopt stores a session issued by the API, rotating the token if it came without one.
func (m *Manager) Adopt(ctx context.Context, s models.Session) (models.Session, error) {
	if s.Token == "" {
		s.Token = uuid.NewString()
	}
	if s.SignedInAt == 0 {
		s.SignedInAt = m.now()
	}
	return s, m.put(ctx, s)
}

// Refresh follows a self-update: identity fields change, the token and
// timestamp are regenerated.
func (m *Manager) Refresh(ctx context.Context, name, email string) (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.load(ctx)
	if !ok {
		return models.Session{}, nil
	}
	s.Name, s.Email = name, email
	s.Token = uuid.NewString()
	s.SignedInAt = m.now()
	return s, m.store.Set(ctx, localstore.KeySession, s)
}

// Patch follows an admin edit of the signed-in user. The token is kept.
func (m *Manager) Patch(ctx context.Context, u models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.load(ctx)
	if !ok {
		return nil
	}
	s.Name, s.Email, s.Role = u.Name, u.Email, u.Role
	return m.store.Set(ctx, localstore.KeySession, s)
}

// End signs out.
func (m *Manager) End(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store.Remove(ctx, localstore.KeySession)
}

func (m *Manager) put(ctx context.Context, s models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Set(ctx, localstore.KeySession, s)
}
