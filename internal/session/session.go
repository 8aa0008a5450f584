package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"spendsmart/internal/core"
	"spendsmart/internal/log"
	"spendsmart/internal/storage"
)

// Listener is notified whenever the active identity changes. It receives the
// new identity, or nil after a logout.
type Listener func(ctx context.Context, id *core.Identity)

// Manager owns the single active identity for the process. Login and logout
// persist through the identity store so the session survives restarts.
type Manager struct {
	mu        sync.RWMutex
	store     storage.IdentityStore
	logger    *log.Logger
	delay     time.Duration
	current   *core.Identity
	listeners []Listener
}

func NewManager(store storage.IdentityStore, delay time.Duration, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Manager{
		store:  store,
		logger: logger.WithComponent(log.ComponentSession),
		delay:  delay,
	}
}

// Restore loads any previously persisted identity on startup. Malformed
// stored data is logged and discarded so the process starts unauthenticated
// instead of crashing.
func (m *Manager) Restore(ctx context.Context) error {
	id, err := m.store.LoadIdentity(ctx)
	if errors.Is(err, storage.ErrMalformedIdentity) {
		m.logger.WarnContext(ctx, "Discarding malformed stored identity",
			log.FieldOperation, log.OpRestore,
			log.FieldError, err.Error())
		if clearErr := m.store.ClearIdentity(ctx); clearErr != nil {
			m.logger.WarnContext(ctx, "Failed to clear malformed identity",
				log.FieldError, clearErr.Error())
		}
		return nil
	}
	if err != nil {
		return err
	}
	if id == nil {
		m.logger.InfoContext(ctx, "No stored identity, starting unauthenticated",
			log.FieldOperation, log.OpRestore)
		return nil
	}

	m.mu.Lock()
	m.current = id
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "Session restored",
		log.FieldOperation, log.OpRestore,
		log.FieldUserID, id.ID)
	m.notify(ctx, id)
	return nil
}

// Login derives an identity from the email address, persists it and makes it
// the active identity. The email is the stable key: logging in twice with the
// same address yields the same user id.
func (m *Manager) Login(ctx context.Context, email, name string) (core.Identity, error) {
	id, err := core.NewIdentity(email, name)
	if err != nil {
		return core.Identity{}, err
	}

	if err := sleep(ctx, m.delay); err != nil {
		return core.Identity{}, err
	}

	if err := m.store.SaveIdentity(ctx, id); err != nil {
		return core.Identity{}, err
	}

	m.mu.Lock()
	m.current = &id
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "User logged in",
		log.FieldOperation, log.OpLogin,
		log.FieldUserID, id.ID)
	m.notify(ctx, &id)
	return id, nil
}

// Logout clears the persisted identity and deactivates the session. Calling
// it while already logged out is a no-op.
func (m *Manager) Logout(ctx context.Context) error {
	if err := m.store.ClearIdentity(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	wasActive := m.current != nil
	m.current = nil
	m.mu.Unlock()

	if wasActive {
		m.logger.InfoContext(ctx, "User logged out", log.FieldOperation, log.OpLogout)
	}
	m.notify(ctx, nil)
	return nil
}

// Current returns a copy of the active identity, or nil when unauthenticated.
func (m *Manager) Current() *core.Identity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return nil
	}
	id := *m.current
	return &id
}

// Subscribe registers a listener for identity changes. Listeners added before
// Restore also observe the restored identity.
func (m *Manager) Subscribe(fn Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

func (m *Manager) notify(ctx context.Context, id *core.Identity) {
	m.mu.RLock()
	listeners := make([]Listener, len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.RUnlock()

	for _, fn := range listeners {
		fn(ctx, id)
	}
}

// sleep blocks for d or until the context is cancelled. A zero duration
// returns immediately, which keeps tests fast.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
