// Package confirm implements the high-risk confirmation workflow:
// blocked actions issue a scope-bound token, confirming the token
// grants the scope a time-boxed approval, and the approval silences
// the high-risk gate for that scope until it expires.
package confirm

import (
	"errors"
	"sync"
	"time"

	"github.com/ppiankov/clawgate/internal/ident"
	"github.com/ppiankov/clawgate/internal/redact"
)

// Confirmation failures.
var (
	ErrNotFound      = errors.New("confirmation token not found")
	ErrExpired       = errors.New("confirmation token expired")
	ErrScopeMismatch = errors.New("confirmation token scope mismatch")
)

// MinTTL is the floor for the confirmation window.
const MinTTL = 30 * time.Second

const previewLimit = 200

type pendingToken struct {
	scope         string
	actionPreview string
	expiresAt     time.Time
}

// Manager holds outstanding confirmation tokens and scope approvals.
// Safe for concurrent use.
type Manager struct {
	mu        sync.Mutex
	ttl       time.Duration
	now       func() time.Time
	pending   map[string]pendingToken
	approvals map[string]time.Time
}

// NewManager creates a Manager with the given token/approval TTL,
// clamped to MinTTL.
func NewManager(ttl time.Duration) *Manager {
	if ttl < MinTTL {
		ttl = MinTTL
	}
	return &Manager{
		ttl:       ttl,
		now:       time.Now,
		pending:   make(map[string]pendingToken),
		approvals: make(map[string]time.Time),
	}
}

// TTL returns the configured confirmation window.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue creates a confirmation token bound to the caller's scope.
// The action preview is stored truncated for later display.
func (m *Manager) Issue(scope, actionPreview string) (string, time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	actionPreview = redact.Clip(actionPreview, previewLimit)

	token := ident.NewConfirmToken()
	expires := m.now().Add(m.ttl)
	m.pending[token] = pendingToken{
		scope:         scope,
		actionPreview: actionPreview,
		expiresAt:     expires,
	}
	return token, expires
}

// Confirm consumes a token and grants its scope a fresh approval
// window. A token from another scope is rejected without being
// consumed; an expired token is evicted.
func (m *Manager) Confirm(token, scope string) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.pending[token]
	if !ok {
		return time.Time{}, ErrNotFound
	}
	now := m.now()
	if now.After(item.expiresAt) {
		delete(m.pending, token)
		return time.Time{}, ErrExpired
	}
	if item.scope != scope {
		return time.Time{}, ErrScopeMismatch
	}

	expires := now.Add(m.ttl)
	m.approvals[scope] = expires
	delete(m.pending, token)
	return expires, nil
}

// IsApproved reports whether the scope holds a live approval.
// Expired grants are evicted on lookup.
func (m *Manager) IsApproved(scope string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	exp, ok := m.approvals[scope]
	if !ok {
		return false
	}
	if !m.now().Before(exp) {
		delete(m.approvals, scope)
		return false
	}
	return true
}

// Preview returns the stored action preview for a live token, for
// display when an operator asks what they are confirming.
func (m *Manager) Preview(token string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.pending[token]
	if !ok || m.now().After(item.expiresAt) {
		return "", false
	}
	return item.actionPreview, true
}

// PendingCount returns the number of live tokens, evicting expired
// ones as it counts.
func (m *Manager) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	n := 0
	for token, item := range m.pending {
		if now.After(item.expiresAt) {
			delete(m.pending, token)
			continue
		}
		n++
	}
	return n
}
