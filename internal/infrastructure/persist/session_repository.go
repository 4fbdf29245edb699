// Package persist stores the session under two fixed keys of a
// ports.KeyValueStore: "data" holds the session JSON and "isLoggedIn" holds
// "true" while the session is authenticated.
package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/leadflow/leadctl/internal/core/domain"
	"github.com/leadflow/leadctl/internal/core/ports"
)

const (
	KeyData       = "data"
	KeyIsLoggedIn = "isLoggedIn"
)

// SessionRepository implements ports.SessionRepository over a KeyValueStore.
type SessionRepository struct {
	kv ports.KeyValueStore
}

func NewSessionRepository(kv ports.KeyValueStore) *SessionRepository {
	return &SessionRepository{kv: kv}
}

// Load decodes the stored session. A session whose isLoggedIn flag is missing
// comes back unauthenticated.
func (r *SessionRepository) Load(ctx context.Context) (*domain.Session, error) {
	raw, found, err := r.kv.Get(ctx, KeyData)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !found {
		return nil, domain.ErrNoSession
	}

	switch strings.TrimSpace(raw) {
	case "", "undefined", "null", "{}":
		return nil, domain.ErrCorruptSession
	}

	var stored domain.Session
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptSession, err)
	}

	flag, _, err := r.kv.Get(ctx, KeyIsLoggedIn)
	if err != nil {
		return nil, fmt.Errorf("load login flag: %w", err)
	}

	sess := domain.NewSession(stored.User, stored.Token)
	if flag != "true" {
		sess.Authenticated = false
	}
	return &sess, nil
}

// Save writes the session. The login flag is dropped first and only set again
// once data is stored, so a partial write never pairs new data with an old flag.
func (r *SessionRepository) Save(ctx context.Context, s domain.Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.kv.Delete(ctx, KeyIsLoggedIn); err != nil {
		return fmt.Errorf("reset login flag: %w", err)
	}
	if err := r.kv.Set(ctx, KeyData, string(raw)); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if !s.Authenticated {
		return nil
	}
	if err := r.kv.Set(ctx, KeyIsLoggedIn, "true"); err != nil {
		return fmt.Errorf("save login flag: %w", err)
	}
	return nil
}

func (r *SessionRepository) Clear(ctx context.Context) error {
	if err := r.kv.Delete(ctx, KeyData, KeyIsLoggedIn); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
