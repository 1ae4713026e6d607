// Package session maps issued tokens to server-side session records in the
// store. The session record, not the token, is authoritative: deleting it
// revokes access even while the token signature remains valid.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kru-ai/kru/pkg/models"
	"github.com/kru-ai/kru/pkg/store"
)

// DefaultTTL is how long a session lives without being reissued.
const DefaultTTL = time.Hour

const keyPrefix = "session:"

// Session is the record stored per issued token.
type Session struct {
	UserID   string      `json:"userId"`
	Email    string      `json:"email"`
	Role     models.Role `json:"role"`
	IssuedAt time.Time   `json:"issuedAt"`
}

// Manager reads and writes sessions through the store.
type Manager struct {
	store store.Store
	ttl   time.Duration
}

// NewManager creates a Manager. A zero ttl falls back to DefaultTTL.
func NewManager(s store.Store, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{store: s, ttl: ttl}
}

// Save stores the session under its token.
func (m *Manager) Save(ctx context.Context, token string, sess Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return m.store.Set(ctx, keyPrefix+token, data, m.ttl)
}

// Load retrieves the session for a token. The boolean is false when the
// session is absent (logged out or expired server-side).
func (m *Manager) Load(ctx context.Context, token string) (Session, bool, error) {
	data, ok, err := m.store.Get(ctx, keyPrefix+token)
	if err != nil || !ok {
		return Session{}, false, err
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return Session{}, false, fmt.Errorf("unmarshal session: %w", err)
	}
	return sess, true, nil
}

// Delete revokes the session. Idempotent.
func (m *Manager) Delete(ctx context.Context, token string) error {
	return m.store.Delete(ctx, keyPrefix+token)
}
