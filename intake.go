package intake

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aretw0/intake/internal/intake"
	"github.com/aretw0/intake/internal/logging"
	"github.com/aretw0/intake/pkg/adapters/memory"
	"github.com/aretw0/intake/pkg/adapters/postal"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/flow"
	"github.com/aretw0/intake/pkg/ports"
	"github.com/aretw0/intake/pkg/session"
)

// Version is overridden at build time with
// -ldflags "-X github.com/aretw0/intake.Version=v1.2.3".
var Version = "dev"

// Services are the collaborators the flows call.
type Services = intake.Services

// Timeouts bound each collaborator call.
type Timeouts = intake.Timeouts

// Engine is the high-level entry point: a session manager, the intake flows
// and the router driving them.
type Engine struct {
	Sessions *session.Manager
	Catalog  *flow.Catalog
	Router   *intake.Router

	store       ports.SessionStore
	sessionOpts []session.Option
	routerOpts  []intake.Option
	logger      *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithSessionStore sets the session backend (in memory by default).
func WithSessionStore(store ports.SessionStore) Option {
	return func(e *Engine) { e.store = store }
}

// WithSessionOptions passes options to the session manager.
func WithSessionOptions(opts ...session.Option) Option {
	return func(e *Engine) { e.sessionOpts = append(e.sessionOpts, opts...) }
}

// WithRouterOptions passes options to the router.
func WithRouterOptions(opts ...intake.Option) Option {
	return func(e *Engine) { e.routerOpts = append(e.routerOpts, opts...) }
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// New wires an engine that replies through sender. Missing case and
// evidence stores default to memory; a missing address lookup uses the
// public postal code directory.
func New(svc Services, sender ports.Sender, opts ...Option) (*Engine, error) {
	if sender == nil {
		return nil, errors.New("intake: a sender is required")
	}
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logging.NewNop()
	}
	if e.store == nil {
		e.store = memory.NewStore()
	}
	if svc.Cases == nil {
		svc.Cases = memory.NewCaseStore()
	}
	if svc.Evidence == nil {
		svc.Evidence = memory.NewEvidenceStore()
	}
	if svc.Address == nil {
		svc.Address = postal.New()
	}
	if svc.Logger == nil {
		svc.Logger = e.logger
	}

	sopts := append([]session.Option{session.WithLogger(e.logger)}, e.sessionOpts...)
	e.Sessions = session.NewManager(e.store, sopts...)
	e.Catalog = intake.NewCatalog(svc)

	ropts := append([]intake.Option{intake.WithLogger(e.logger)}, e.routerOpts...)
	router, err := intake.NewRouter(e.Sessions, e.Catalog, sender, ropts...)
	if err != nil {
		return nil, err
	}
	e.Router = router
	return e, nil
}

// Route handles one inbound message.
func (e *Engine) Route(ctx context.Context, msg domain.Message) error {
	return e.Router.Route(ctx, msg)
}

// Sweeper returns a sweeper evicting sessions idle for longer than idle.
func (e *Engine) Sweeper(interval, idle time.Duration, opts ...session.SweeperOption) *session.Sweeper {
	return session.NewSweeper(e.Sessions, interval, idle, append([]session.SweeperOption{session.WithSweepLogger(e.logger)}, opts...)...)
}
