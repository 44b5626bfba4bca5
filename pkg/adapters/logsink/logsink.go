// Package logsink provides collaborators that write to the log instead of an
// external system, for development and deployments without a broker or mail
// relay.
package logsink

import (
	"context"
	"log/slog"

	"github.com/aretw0/intake/internal/logging"
	"github.com/aretw0/intake/pkg/domain"
)

// Events implements ports.EventPublisher by logging each event.
type Events struct {
	logger *slog.Logger
}

// NewEvents creates a logging publisher.
func NewEvents(logger *slog.Logger) *Events {
	return &Events{logger: logger}
}

// Publish logs the event type and ID.
func (e *Events) Publish(ctx context.Context, ev domain.Event) error {
	e.logger.InfoContext(ctx, "event",
		"type", ev.Type,
		"id", ev.ID,
		"user", logging.Redact(ev.UserKey),
	)
	return nil
}

// Mailer implements ports.Mailer by logging the code. Never use it where
// the log is shared.
type Mailer struct {
	logger *slog.Logger
}

// NewMailer creates a logging mailer.
func NewMailer(logger *slog.Logger) *Mailer {
	return &Mailer{logger: logger}
}

// SendOTP logs the code at warn level.
func (m *Mailer) SendOTP(ctx context.Context, email, code string) error {
	m.logger.WarnContext(ctx, "otp not mailed, no relay configured", "email", logging.Redact(email), "code", code)
	return nil
}
