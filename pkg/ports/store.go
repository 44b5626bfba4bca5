package ports

import (
	"context"
	"time"

	"github.com/aretw0/intake/pkg/domain"
)

// SessionStore defines the interface for persisting sessions.
// Durability depends on the implementation (memory, file, redis).
type SessionStore interface {
	// Save persists the session under its user key.
	Save(ctx context.Context, key string, session *domain.Session) error

	// Load retrieves the session for a user key.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, key string) (*domain.Session, error)

	// Delete removes the session for a user key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns the user keys of every stored session.
	List(ctx context.Context) ([]string, error)
}

// Deduplicator remembers message IDs so redelivered messages are processed once.
type Deduplicator interface {
	// Seen records id and reports whether it had already been recorded within ttl.
	Seen(ctx context.Context, id string, ttl time.Duration) (bool, error)
}
