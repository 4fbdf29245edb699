package ports

import (
	"context"

	"github.com/leadflow/leadctl/internal/core/domain"
)

// SessionRepository persists the session across restarts.
// Load returns domain.ErrNoSession when nothing is stored and
// domain.ErrCorruptSession when the stored data cannot be decoded.
type SessionRepository interface {
	Load(ctx context.Context) (*domain.Session, error)
	Save(ctx context.Context, s domain.Session) error
	Clear(ctx context.Context) error
}

// KeyValueStore is durable local storage addressed by fixed string keys.
// Get reports found=false for a missing key rather than an error.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
	Close() error
}
