// Package session holds the admin session on the client side: the token the
// server issued at login and when it stops being valid.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"nails-service/pkg/clock"
)

type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s Session) ExpiredAt(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Store persists at most one session. Load returns nil, nil when empty.
type Store interface {
	Load() (*Session, error)
	Save(s Session) error
	Clear() error
}

// Manager is the single owner of the current admin session.
type Manager struct {
	mu      sync.RWMutex
	clock   clock.Clock
	store   Store
	current *Session
}

func NewManager(store Store, clk clock.Clock) *Manager {
	return &Manager{
		clock: clk,
		store: store,
	}
}

// Load restores a stored session. An expired one is cleared from the store.
func (m *Manager) Load() error {
	const op = "session.Manager.Load"

	s, err := m.store.Load()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if s == nil || s.Token == "" || s.ExpiredAt(m.clock.Now()) {
		m.current = nil
		if s != nil {
			if err := m.store.Clear(); err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
		}
		return nil
	}

	m.current = s
	return nil
}

func (m *Manager) Save(s Session) error {
	const op = "session.Manager.Save"

	if err := m.store.Save(s); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	m.mu.Lock()
	m.current = &s
	m.mu.Unlock()

	return nil
}

// Authenticated checks expiry against the clock on every call.
func (m *Manager) Authenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.current != nil && !m.current.ExpiredAt(m.clock.Now())
}

// Token returns the token of a live session, or "".
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.current == nil || m.current.ExpiredAt(m.clock.Now()) {
		return ""
	}
	return m.current.Token
}

func (m *Manager) Current() (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.current == nil {
		return Session{}, false
	}
	return *m.current, true
}

func (m *Manager) Logout() error {
	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()

	if err := m.store.Clear(); err != nil {
		return fmt.Errorf("session.Manager.Logout: %w", err)
	}
	return nil
}

type ctxKey struct{}

func WithManager(ctx context.Context, m *Manager) context.Context {
	return context.WithValue(ctx, ctxKey{}, m)
}

func FromContext(ctx context.Context) (*Manager, bool) {
	m, ok := ctx.Value(ctxKey{}).(*Manager)
	return m, ok
}

type MemoryStore struct {
	mu sync.Mutex
	s  *Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.s == nil {
		return nil, nil
	}
	cp := *m.s
	return &cp, nil
}

func (m *MemoryStore) Save(s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.s = &s
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.s = nil
	return nil
}

// FileStore keeps the session as JSON in a single file readable only by its owner.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultPath is ~/.config/nails/session.json or its platform equivalent.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "nails", "session.json"), nil
}

func (f *FileStore) Load() (*Session, error) {
	const op = "session.FileStore.Load"

	raw, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &s, nil
}

func (f *FileStore) Save(s Session) error {
	const op = "session.FileStore.Save"

	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := os.WriteFile(f.path, raw, 0o600); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (f *FileStore) Clear() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("session.FileStore.Clear: %w", err)
	}
	return nil
}
