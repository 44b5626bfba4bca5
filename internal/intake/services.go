package intake

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/intake/internal/metrics"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/ports"
)

// Timeouts bound each collaborator call made while handling a message.
type Timeouts struct {
	Lookup       time.Duration
	Upload       time.Duration
	Verification time.Duration
	Transcribe   time.Duration
	Assistant    time.Duration
	Store        time.Duration
}

// DefaultTimeouts are used for every zero field of Timeouts.
var DefaultTimeouts = Timeouts{
	Lookup:       5 * time.Second,
	Upload:       30 * time.Second,
	Verification: 15 * time.Second,
	Transcribe:   30 * time.Second,
	Assistant:    20 * time.Second,
	Store:        10 * time.Second,
}

func (t Timeouts) withDefaults() Timeouts {
	pick := func(v, d time.Duration) time.Duration {
		if v > 0 {
			return v
		}
		return d
	}
	return Timeouts{
		Lookup:       pick(t.Lookup, DefaultTimeouts.Lookup),
		Upload:       pick(t.Upload, DefaultTimeouts.Upload),
		Verification: pick(t.Verification, DefaultTimeouts.Verification),
		Transcribe:   pick(t.Transcribe, DefaultTimeouts.Transcribe),
		Assistant:    pick(t.Assistant, DefaultTimeouts.Assistant),
		Store:        pick(t.Store, DefaultTimeouts.Store),
	}
}

// Services are the external collaborators the flows call.
// Cases, Evidence and Address are required; the rest are optional and
// their features degrade to the manual path when nil.
type Services struct {
	Cases       ports.CaseStore
	Evidence    ports.EvidenceStore
	Address     ports.AddressLookup
	Verifier    ports.IdentityVerifier
	Assistant   ports.Assistant
	Transcriber ports.Transcriber
	Mailer      ports.Mailer
	Events      ports.EventPublisher

	Timeouts Timeouts
	Clock    func() time.Time
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
}

func (s Services) withDefaults() Services {
	s.Timeouts = s.Timeouts.withDefaults()
	if s.Clock == nil {
		s.Clock = time.Now
	}
	if s.Logger == nil {
		s.Logger = slog.New(slog.DiscardHandler)
	}
	return s
}

// publish emits a lifecycle event. Failures are logged, never surfaced.
func (s Services) publish(ctx context.Context, ev domain.Event) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Publish(ctx, ev); err != nil {
		s.Metrics.IncrementCollaboratorError("events")
		s.Logger.Warn("publish event failed", "type", ev.Type, "error", err)
	}
}
