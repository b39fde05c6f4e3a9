package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"flowLedger/client/dto"
)

type EventType string

const (
	// EventAuthenticated fires when the session goes from no token to a token.
	EventAuthenticated EventType = "authenticated"
	// EventSignedOut fires when the session goes from a token to none.
	EventSignedOut EventType = "signed_out"
)

type Event struct {
	Type EventType
	At   time.Time
}

// TokenStore persists the access token. cache.TokenStore is the Redis one.
type TokenStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string, ttl time.Duration) error
	Clear(ctx context.Context) error
}

const subscriberBuffer = 16

type Subscription struct {
	id     uint64
	ch     chan Event
	closed atomic.Bool
}

func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Manager owns the auth session and tells subscribers when it starts and
// ends. Dependent caches subscribe instead of polling the session.
type Manager struct {
	mu          sync.RWMutex
	token       string
	user        map[string]any
	preferences map[string]any
	expiresAt   time.Time

	store  TokenStore
	logger *zap.Logger
	now    func() time.Time

	subsMu sync.Mutex
	subs   map[uint64]*Subscription
	nextID uint64
}

func NewManager(store TokenStore, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:  store,
		logger: logger,
		now:    time.Now,
		subs:   make(map[uint64]*Subscription),
	}
}

// Restore loads a persisted token, if any.
func (m *Manager) Restore(ctx context.Context) error {
	if m.store == nil {
		return nil
	}
	token, err := m.store.Load(ctx)
	if err != nil {
		return err
	}
	if token != "" {
		m.apply(token, nil, nil, time.Time{})
	}
	return nil
}

// SetSession installs a login response and persists its token.
func (m *Manager) SetSession(ctx context.Context, resp *dto.AuthResponse) error {
	var (
		ttl       time.Duration
		expiresAt time.Time
	)
	if resp.ExpiresIn > 0 {
		ttl = time.Duration(resp.ExpiresIn) * time.Second
		expiresAt = m.now().Add(ttl)
	}

	if m.store != nil {
		if err := m.store.Save(ctx, resp.AccessToken, ttl); err != nil {
			return err
		}
	}

	m.apply(resp.AccessToken, resp.User, resp.Preferences, expiresAt)
	return nil
}

// SetToken installs a token supplied out of band, such as a flag. It is
// not persisted.
func (m *Manager) SetToken(token string) {
	m.apply(token, nil, nil, time.Time{})
}

func (m *Manager) Clear(ctx context.Context) error {
	m.apply("", nil, nil, time.Time{})

	if m.store != nil {
		return m.store.Clear(ctx)
	}
	return nil
}

// Invalidate drops the session after the backend rejected the token.
func (m *Manager) Invalidate() {
	if err := m.Clear(context.Background()); err != nil {
		m.logger.Warn("Failed to clear stored token", zap.Error(err))
	}
}

// Token returns the bearer token, or "" when signed out or expired.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.authenticatedLocked() {
		return ""
	}
	return m.token
}

// Persistent reports whether tokens outlive the process.
func (m *Manager) Persistent() bool {
	return m.store != nil
}

func (m *Manager) Authenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.authenticatedLocked()
}

func (m *Manager) User() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user
}

func (m *Manager) Preferences() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.preferences
}

func (m *Manager) Subscribe() *Subscription {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()

	m.nextID++
	sub := &Subscription{id: m.nextID, ch: make(chan Event, subscriberBuffer)}
	m.subs[sub.id] = sub

	return sub
}

func (m *Manager) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	m.subsMu.Lock()
	defer m.subsMu.Unlock()

	if _, ok := m.subs[sub.id]; ok {
		delete(m.subs, sub.id)
		if sub.closed.CompareAndSwap(false, true) {
			close(sub.ch)
		}
	}
}

// Close ends every subscription.
func (m *Manager) Close() {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()

	for id, sub := range m.subs {
		if sub.closed.CompareAndSwap(false, true) {
			close(sub.ch)
		}
		delete(m.subs, id)
	}
}

// apply swaps the session state. subsMu is held across the swap so events
// reach subscribers in the order the transitions happened.
func (m *Manager) apply(token string, user, preferences map[string]any, expiresAt time.Time) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()

	m.mu.Lock()
	was := m.authenticatedLocked()
	m.token = token
	m.user = user
	m.preferences = preferences
	m.expiresAt = expiresAt
	is := m.authenticatedLocked()
	m.mu.Unlock()

	switch {
	case is && !was:
		m.publishLocked(EventAuthenticated)
	case !is && was:
		m.publishLocked(EventSignedOut)
	}
}

func (m *Manager) authenticatedLocked() bool {
	if m.token == "" {
		return false
	}
	return m.expiresAt.IsZero() || m.now().Before(m.expiresAt)
}

// publishLocked sends to every subscriber without blocking. The caller
// holds subsMu.
func (m *Manager) publishLocked(eventType EventType) {
	event := Event{Type: eventType, At: m.now()}

	m.logger.Debug("Session changed",
		zap.String("event", string(eventType)),
		zap.Int("subscribers", len(m.subs)),
	)

	for _, sub := range m.subs {
		select {
		case sub.ch <- event:
		default:
			m.logger.Warn("Session subscriber full, dropping event",
				zap.Uint64("subscriber_id", sub.id),
				zap.String("event", string(eventType)),
			)
		}
	}
}
