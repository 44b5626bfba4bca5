package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/google/uuid"
)

// EvidenceStore implements ports.EvidenceStore in memory.
type EvidenceStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewEvidenceStore creates an empty evidence store.
func NewEvidenceStore() *EvidenceStore {
	return &EvidenceStore{blobs: make(map[string][]byte)}
}

// Put keeps a copy of the blob and returns a mem:// URL for it.
func (s *EvidenceStore) Put(ctx context.Context, caseID string, key domain.EvidenceKey, blob []byte, mimeType string) (domain.StoredEvidence, error) {
	id := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[id] = append([]byte(nil), blob...)
	return domain.StoredEvidence{
		URL:      fmt.Sprintf("mem://%s/%s/%s", caseID, key, id),
		PublicID: id,
	}, nil
}

// Len reports how many blobs are stored.
func (s *EvidenceStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}

// Events implements ports.EventPublisher by recording events.
type Events struct {
	mu     sync.Mutex
	events []domain.Event
}

// NewEvents creates an empty recorder.
func NewEvents() *Events { return &Events{} }

// Publish records the event.
func (e *Events) Publish(ctx context.Context, ev domain.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
	return nil
}

// Recorded returns the events published so far.
func (e *Events) Recorded() []domain.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]domain.Event(nil), e.events...)
}

// Deduplicator implements ports.Deduplicator with an expiring set.
type Deduplicator struct {
	mu   sync.Mutex
	seen map[string]time.Time
	now  func() time.Time
}

// NewDeduplicator creates an empty seen-set.
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{seen: make(map[string]time.Time), now: time.Now}
}

// Seen records id and reports whether it was already recorded within ttl.
func (d *Deduplicator) Seen(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for k, exp := range d.seen {
		if now.After(exp) {
			delete(d.seen, k)
		}
	}
	if _, ok := d.seen[id]; ok {
		return true, nil
	}
	d.seen[id] = now.Add(ttl)
	return false, nil
}

// Outbox implements ports.Sender by recording every message per user.
type Outbox struct {
	mu   sync.Mutex
	sent map[string][]domain.Renderable
}

// NewOutbox creates an empty outbox.
func NewOutbox() *Outbox {
	return &Outbox{sent: make(map[string][]domain.Renderable)}
}

// Send records r for userKey.
func (o *Outbox) Send(ctx context.Context, userKey string, r domain.Renderable) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent[userKey] = append(o.sent[userKey], r)
	return nil
}

// Sent returns everything sent to userKey.
func (o *Outbox) Sent(userKey string) []domain.Renderable {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]domain.Renderable(nil), o.sent[userKey]...)
}

// Last returns the last message sent to userKey.
func (o *Outbox) Last(userKey string) (domain.Renderable, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	msgs := o.sent[userKey]
	if len(msgs) == 0 {
		return domain.Renderable{}, false
	}
	return msgs[len(msgs)-1], true
}

// Drain returns and forgets everything sent to userKey.
func (o *Outbox) Drain(userKey string) []domain.Renderable {
	o.mu.Lock()
	defer o.mu.Unlock()
	msgs := o.sent[userKey]
	delete(o.sent, userKey)
	return msgs
}
