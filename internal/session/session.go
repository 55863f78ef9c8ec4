// Package session tracks wallet sessions: an account connects, stays
// active until it disconnects or the session expires.
package session

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/docustore/internal/errors"
	"github.com/docustore/internal/logging"
	"github.com/docustore/internal/metrics"
	"github.com/docustore/internal/storage"
	"github.com/docustore/internal/types"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// State is where a session is in its lifecycle
type State string

const (
	// StateActive means the wallet is connected
	StateActive State = "active"
	// StateDisconnected means the wallet was disconnected; terminal
	StateDisconnected State = "disconnected"
)

// DefaultTTL is how long a session lives without being renewed
const DefaultTTL = 24 * time.Hour

// ErrSessionNotFound is returned for unknown, expired or disconnected sessions
var ErrSessionNotFound = &errors.CategorizedError{
	Category:   errors.CategoryNotFound,
	StatusCode: http.StatusNotFound,
	Code:       "SESSION_NOT_FOUND",
	Message:    "session not found or expired",
}

// Session is one connected wallet
type Session struct {
	ID          string        `json:"id"`
	Account     types.Account `json:"account"`
	State       State         `json:"state"`
	ConnectedAt time.Time     `json:"connectedAt"`
	ExpiresAt   time.Time     `json:"expiresAt"`
}

// Active reports whether the session can be used at time now
func (s *Session) Active(now time.Time) bool {
	return s != nil && s.State == StateActive && now.Before(s.ExpiresAt)
}

// Address returns the connected account address, or "" for a nil session
func (s *Session) Address() string {
	if s == nil {
		return ""
	}
	return s.Account.Address
}

// ShortAddress renders the address as its first six and last four characters
func (s *Session) ShortAddress() string {
	return ShortenAddress(s.Address())
}

// ShortenAddress renders addr as "wasm1q...x7k2"; short addresses are returned as is
func ShortenAddress(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}

// Manager creates, loads and ends sessions stored in Redis
type Manager struct {
	cache *storage.RedisCache
	ttl   time.Duration
	now   func() time.Time
}

// NewManager creates a session manager
func NewManager(cache *storage.RedisCache, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{cache: cache, ttl: ttl, now: time.Now}
}

// SetClock overrides the time source
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

// Now returns the manager's current time
func (m *Manager) Now() time.Time {
	return m.now()
}

func key(id string) string {
	return "session:" + id
}

// Connect starts a session for address
func (m *Manager) Connect(ctx context.Context, address string) (*Session, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, errors.NewValidationError("address", "must not be empty")
	}

	now := m.now().UTC()
	s := &Session{
		ID:          uuid.NewString(),
		Account:     types.Account{Address: address},
		State:       StateActive,
		ConnectedAt: now,
		ExpiresAt:   now.Add(m.ttl),
	}

	payload, err := json.Marshal(s)
	if err != nil {
		return nil, errors.NewInternalError("encode session", err)
	}
	if err := m.cache.Set(ctx, key(s.ID), payload, m.ttl); err != nil {
		return nil, errors.NewServiceUnavailableError("session store", err)
	}

	metrics.SessionConnected()
	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"sessionId": s.ID,
		"address":   s.ShortAddress(),
	}).Info("Wallet connected")
	return s, nil
}

// Get returns the active session with id
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrSessionNotFound
	}

	raw, err := m.cache.Get(ctx, key(id))
	if stderrors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, errors.NewServiceUnavailableError("session store", err)
	}

	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, errors.NewDecodeError("session", err)
	}
	if !s.Active(m.now()) {
		return nil, ErrSessionNotFound
	}
	return &s, nil
}

// Disconnect ends the session. Disconnecting an unknown session is not an error.
func (m *Manager) Disconnect(ctx context.Context, id string) error {
	s, err := m.Get(ctx, id)
	if stderrors.Is(err, ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := m.cache.Del(ctx, key(id)); err != nil {
		return errors.NewServiceUnavailableError("session store", fmt.Errorf("delete %s: %w", id, err))
	}
	s.State = StateDisconnected

	metrics.SessionDisconnected()
	logging.FromContext(ctx).WithField("sessionId", id).Info("Wallet disconnected")
	return nil
}
