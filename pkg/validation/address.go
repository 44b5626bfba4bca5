package validation

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/ports"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"
)

// DefaultLookupTimeout bounds a single address lookup.
const DefaultLookupTimeout = 5 * time.Second

// AddressEnricher validates postal codes and resolves them to an address.
// Successful lookups are cached so a resubmitted code always enriches to
// the same address, and concurrent lookups of one code share a call.
type AddressEnricher struct {
	lookup  ports.AddressLookup
	timeout time.Duration
	logger  *slog.Logger

	group singleflight.Group
	mu    sync.RWMutex
	cache map[string]domain.Address
}

// EnricherOption configures an AddressEnricher.
type EnricherOption func(*AddressEnricher)

// WithLookupTimeout overrides DefaultLookupTimeout.
func WithLookupTimeout(d time.Duration) EnricherOption {
	return func(e *AddressEnricher) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithEnricherLogger sets the logger for lookup failures.
func WithEnricherLogger(l *slog.Logger) EnricherOption {
	return func(e *AddressEnricher) { e.logger = l }
}

// NewAddressEnricher wraps an Address Lookup collaborator.
func NewAddressEnricher(lookup ports.AddressLookup, opts ...EnricherOption) *AddressEnricher {
	e := &AddressEnricher{
		lookup:  lookup,
		timeout: DefaultLookupTimeout,
		logger:  slog.New(slog.DiscardHandler),
		cache:   make(map[string]domain.Address),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enrich checks the postal code syntax, then resolves it. Both an unknown
// code and a failing lookup surface as *domain.ValidationError so the user
// can retry.
func (e *AddressEnricher) Enrich(ctx context.Context, input string) (string, domain.Address, error) {
	pin, err := PostalCode(input)
	if err != nil {
		return "", domain.Address{}, err
	}

	e.mu.RLock()
	addr, ok := e.cache[pin]
	e.mu.RUnlock()
	if ok {
		return pin, addr, nil
	}

	ctx, span := otel.Tracer("intake/validation").Start(ctx, "AddressLookup.Resolve")
	span.SetAttributes(attribute.String("postal_code", pin))
	defer span.End()

	v, err, _ := e.group.Do(pin, func() (any, error) {
		lctx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()
		return e.lookup.Resolve(lctx, pin)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.Address{}, domain.Invalid("postalCode", "Invalid PIN code. Please enter a valid PIN code.")
		}
		e.logger.Warn("address lookup failed", "postal_code", pin, "error", err)
		return "", domain.Address{}, domain.Invalid("postalCode", "We could not verify this PIN code right now. Please try again.")
	}

	addr = v.(domain.Address)
	e.mu.Lock()
	e.cache[pin] = addr
	e.mu.Unlock()
	return pin, addr, nil
}

// Fields flattens an address into the registration fields it fills.
func Fields(a domain.Address) map[string]any {
	return map[string]any{
		"area":          a.Area,
		"district":      a.District,
		"subRegion":     a.SubRegion,
		"policeStation": a.PoliceStation,
	}
}
