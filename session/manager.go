package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"hisaabpos/api"
	"hisaabpos/domain"
)

// Authenticator is the part of the backend the session talks to
type Authenticator interface {
	Login(ctx context.Context, email, password string) (api.LoginResponse, error)
	Me(ctx context.Context) (api.User, error)
}

// Manager is the explicitly passed auth context. It is the api.TokenSource for the
// backend client, so it must exist before the client; the client is then handed to
// Login and Restore.
type Manager struct {
	store Store

	mu      sync.RWMutex
	current *Session
}

// compile-time assertion
var _ api.TokenSource = (*Manager)(nil)

// NewManager returns a signed-out Manager over store
func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// AccessToken implements api.TokenSource
func (m *Manager) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return ""
	}
	return m.current.Access
}

// Current returns the active session
func (m *Manager) Current() (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return Session{}, false
	}
	return *m.current, true
}

// Business returns the business id of the signed-in user
func (m *Manager) Business() (int64, error) {
	s, ok := m.Current()
	if !ok {
		return 0, ErrNoSession
	}
	return s.User.Business, nil
}

// Restore loads the stored session and checks its token against the backend.
// A token the backend rejects with 401 is cleared from the store.
func (m *Manager) Restore(ctx context.Context, auth Authenticator) (Session, error) {
	s, err := m.store.Load(ctx)
	if err != nil {
		return Session{}, err
	}
	m.set(&s)

	user, err := auth.Me(ctx)
	if err != nil {
		if domain.IsUnauthorized(err) {
			slog.Warn("stored session rejected, clearing", "email", s.User.Email)
			if cerr := m.Logout(ctx); cerr != nil {
				return Session{}, errors.Join(err, cerr)
			}
			return Session{}, fmt.Errorf("session expired, log in again: %w", err)
		}
		m.set(nil)
		return Session{}, err
	}
	s.User = user
	m.set(&s)
	return s, nil
}

// Login exchanges credentials for tokens and stores the session
func (m *Manager) Login(ctx context.Context, auth Authenticator, email, password string) (Session, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return Session{}, domain.NewValidationError("email", "cannot be empty", email)
	}
	if password == "" {
		return Session{}, domain.NewValidationError("password", "cannot be empty", "")
	}

	res, err := auth.Login(ctx, email, password)
	if err != nil {
		return Session{}, err
	}
	s := Session{
		Access:  res.Access,
		Refresh: res.Refresh,
		User:    res.User,
		SavedAt: time.Now().UTC(),
	}
	if !s.Valid() {
		return Session{}, &domain.BackendError{StatusCode: 200, Message: "login response carried no access token"}
	}
	if err := m.store.Save(ctx, s); err != nil {
		return Session{}, fmt.Errorf("save session: %w", err)
	}
	m.set(&s)
	slog.Info("logged in", "email", s.User.Email, "business", s.User.Business)
	return s, nil
}

// Logout forgets the session in memory and in the store
func (m *Manager) Logout(ctx context.Context) error {
	m.set(nil)
	return m.store.Clear(ctx)
}

func (m *Manager) set(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = s
}
