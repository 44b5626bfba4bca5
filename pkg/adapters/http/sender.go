package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/ports"
)

// ErrNoRecipient is returned by Sender when a reply has neither a waiting
// webhook request nor a callback to go to.
var ErrNoRecipient = errors.New("no recipient for outbound message")

type captureKey struct{}

// Replies collects the messages sent while one request is being routed.
type Replies struct {
	mu   sync.Mutex
	msgs []domain.Renderable
}

// Messages returns the collected replies in send order.
func (c *Replies) Messages() []domain.Renderable {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Renderable(nil), c.msgs...)
}

func (c *Replies) add(r domain.Renderable) {
	c.mu.Lock()
	c.msgs = append(c.msgs, r)
	c.mu.Unlock()
}

// WithCapture returns a context whose sends are collected instead of
// delivered.
func WithCapture(ctx context.Context) (context.Context, *Replies) {
	c := &Replies{}
	return context.WithValue(ctx, captureKey{}, c), c
}

// Sender implements ports.Sender. A send made while a webhook request is in
// flight becomes part of that request's response; any other send, such as
// one from a scheduled continuation, goes to the fallback.
type Sender struct {
	fallback ports.Sender
}

// NewSender creates a Sender. fallback may be nil.
func NewSender(fallback ports.Sender) *Sender {
	return &Sender{fallback: fallback}
}

// Send implements ports.Sender.
func (s *Sender) Send(ctx context.Context, userKey string, r domain.Renderable) error {
	if c, ok := ctx.Value(captureKey{}).(*Replies); ok {
		c.add(r)
		return nil
	}
	if s.fallback == nil {
		return ErrNoRecipient
	}
	return s.fallback.Send(ctx, userKey, r)
}

// CallbackConfig configures a CallbackSender.
type CallbackConfig struct {
	URL     string
	Token   string
	Timeout time.Duration
}

// CallbackSender posts outbound messages to the chat platform.
type CallbackSender struct {
	cfg    CallbackConfig
	client *http.Client
}

// NewCallbackSender creates a sender for cfg. A nil client uses one with
// cfg.Timeout.
func NewCallbackSender(cfg CallbackConfig, client *http.Client) *CallbackSender {
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &CallbackSender{cfg: cfg, client: client}
}

type callbackBody struct {
	To      string            `json:"to"`
	Message domain.Renderable `json:"message"`
}

// Send implements ports.Sender.
func (c *CallbackSender) Send(ctx context.Context, userKey string, r domain.Renderable) error {
	body, err := json.Marshal(callbackBody{To: userKey, Message: r})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("callback: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	if resp.StatusCode >= 300 {
		return fmt.Errorf("callback: unexpected status %s", resp.Status)
	}
	return nil
}
