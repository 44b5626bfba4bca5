package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aretw0/intake/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

const defaultPrefix = "intake:session:"

// noExpiry is the index score of sessions saved without a TTL (2100-01-01).
const noExpiry = 4102444800

// Store is a ports.SessionStore keeping each session as a JSON string at
// {prefix}{userKey}. The sorted set {prefix}index scores every user key by
// its expiry so List never scans the keyspace.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithTTL expires sessions ttl after their last save. Setting it to the idle
// timeout lets redis drop abandoned dialogs even when no sweeper runs.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// WithPrefix namespaces the session keys and the index.
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// NewFromClient creates a store over an open client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{client: client, prefix: defaultPrefix, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) sessionKey(userKey string) string { return s.prefix + userKey }

func (s *Store) index() string { return s.prefix + "index" }

func (s *Store) expiry() float64 {
	if s.ttl <= 0 {
		return noExpiry
	}
	return float64(s.now().Add(s.ttl).Unix())
}

// Save writes the document and its index entry in one transaction.
func (s *Store) Save(ctx context.Context, userKey string, session *domain.Session) error {
	doc, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(tx backend.Pipeliner) error {
		tx.Set(ctx, s.sessionKey(userKey), doc, s.ttl)
		tx.ZAdd(ctx, s.index(), backend.Z{Score: s.expiry(), Member: userKey})
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save: %w", err)
	}
	return nil
}

// Load returns domain.ErrSessionNotFound for missing or expired sessions.
func (s *Store) Load(ctx context.Context, userKey string) (*domain.Session, error) {
	doc, err := s.client.Get(ctx, s.sessionKey(userKey)).Bytes()
	switch {
	case errors.Is(err, backend.Nil):
		return nil, domain.ErrSessionNotFound
	case err != nil:
		return nil, fmt.Errorf("redis load: %w", err)
	}
	session := new(domain.Session)
	if err := json.Unmarshal(doc, session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return session, nil
}

// Delete removes the document and its index entry. Missing keys are not an
// error.
func (s *Store) Delete(ctx context.Context, userKey string) error {
	_, err := s.client.TxPipelined(ctx, func(tx backend.Pipeliner) error {
		tx.Del(ctx, s.sessionKey(userKey))
		tx.ZRem(ctx, s.index(), userKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

// List drops index entries whose expiry has passed, then returns the rest.
func (s *Store) List(ctx context.Context) ([]string, error) {
	cutoff := strconv.FormatInt(s.now().Unix(), 10)
	if err := s.client.ZRemRangeByScore(ctx, s.index(), "-inf", cutoff).Err(); err != nil {
		return nil, fmt.Errorf("redis prune index: %w", err)
	}
	keys, err := s.client.ZRange(ctx, s.index(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list: %w", err)
	}
	return keys, nil
}
