package service

import (
	"sync"
	"time"
)

// DefaultNotificationTTL is how long a notification stays visible
const DefaultNotificationTTL = 3 * time.Second

// Notification is a transient message shown after a successful action
type Notification struct {
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Notifications holds the latest notification per session until it expires
type Notifications struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	current map[string]Notification
}

// NewNotifications creates a notification holder. now may be nil.
func NewNotifications(ttl time.Duration, now func() time.Time) *Notifications {
	if ttl <= 0 {
		ttl = DefaultNotificationTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Notifications{ttl: ttl, now: now, current: make(map[string]Notification)}
}

// Show replaces the session's notification
func (n *Notifications) Show(sessionID, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.current[sessionID] = Notification{Message: message, ExpiresAt: n.now().Add(n.ttl)}
}

// Current returns the session's notification, or nil once it has expired
func (n *Notifications) Current(sessionID string) *Notification {
	n.mu.Lock()
	defer n.mu.Unlock()

	note, ok := n.current[sessionID]
	if !ok {
		return nil
	}
	if !n.now().Before(note.ExpiresAt) {
		delete(n.current, sessionID)
		return nil
	}
	return &note
}

// Dismiss clears the session's notification
func (n *Notifications) Dismiss(sessionID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.current, sessionID)
}

// Sweep drops expired notifications and returns how many were removed
func (n *Notifications) Sweep() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := n.now()
	removed := 0
	for id, note := range n.current {
		if !now.Before(note.ExpiresAt) {
			delete(n.current, id)
			removed++
		}
	}
	return removed
}
