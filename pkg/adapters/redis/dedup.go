package redis

import (
	"context"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"
)

// Deduplicator implements ports.Deduplicator with SET NX, so redelivered
// webhook messages are recognised across replicas.
type Deduplicator struct {
	client *backend.Client
	prefix string
}

// NewDeduplicator creates a Redis deduplicator.
func NewDeduplicator(client *backend.Client, prefix string) *Deduplicator {
	return &Deduplicator{client: client, prefix: prefix}
}

// Seen records id and reports whether it was already present.
func (d *Deduplicator) Seen(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	fresh, err := d.client.SetNX(ctx, d.prefix+"msg:"+id, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to record message id: %w", err)
	}
	return !fresh, nil
}
