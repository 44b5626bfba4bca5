// Package ws is a websocket chat transport. A user may hold several
// connections; every reply goes to all of them.
package ws

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/aretw0/intake/internal/logging"
	"github.com/aretw0/intake/pkg/domain"
)

// ErrOffline is returned by Send when the user has no open connection.
var ErrOffline = errors.New("user has no open connection")

// outboxSize is the per-connection buffer; a full buffer drops the message.
const outboxSize = 16

// Hub tracks open connections by user key. It implements ports.Sender.
type Hub struct {
	mu     sync.RWMutex
	conns  map[string]map[chan domain.Renderable]struct{}
	logger *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Hub{
		conns:  make(map[string]map[chan domain.Renderable]struct{}),
		logger: logger,
	}
}

// Subscribe registers a connection for userKey. The returned func
// unregisters it and closes the channel.
func (h *Hub) Subscribe(userKey string) (<-chan domain.Renderable, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan domain.Renderable, outboxSize)
	if _, ok := h.conns[userKey]; !ok {
		h.conns[userKey] = make(map[chan domain.Renderable]struct{})
	}
	h.conns[userKey][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if subs, ok := h.conns[userKey]; ok {
				delete(subs, ch)
				close(ch)
				if len(subs) == 0 {
					delete(h.conns, userKey)
				}
			}
		})
	}
}

// Online reports the number of open connections for userKey.
func (h *Hub) Online(userKey string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[userKey])
}

// Send implements ports.Sender.
func (h *Hub) Send(_ context.Context, userKey string, r domain.Renderable) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	subs, ok := h.conns[userKey]
	if !ok {
		return ErrOffline
	}
	for ch := range subs {
		select {
		case ch <- r:
		default:
			h.logger.Warn("ws: client buffer full, dropping message", "user", logging.Redact(userKey))
		}
	}
	return nil
}
