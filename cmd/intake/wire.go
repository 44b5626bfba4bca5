package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/intake"
	"github.com/aretw0/intake/internal/config"
	core "github.com/aretw0/intake/internal/intake"
	"github.com/aretw0/intake/internal/metrics"
	"github.com/aretw0/intake/pkg/adapters/assistant"
	"github.com/aretw0/intake/pkg/adapters/evidence"
	"github.com/aretw0/intake/pkg/adapters/file"
	"github.com/aretw0/intake/pkg/adapters/kafka"
	"github.com/aretw0/intake/pkg/adapters/logsink"
	"github.com/aretw0/intake/pkg/adapters/mailer"
	"github.com/aretw0/intake/pkg/adapters/memory"
	"github.com/aretw0/intake/pkg/adapters/postal"
	redisstore "github.com/aretw0/intake/pkg/adapters/redis"
	"github.com/aretw0/intake/pkg/adapters/sqlstore"
	"github.com/aretw0/intake/pkg/adapters/verify"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/persistence/middleware"
	"github.com/aretw0/intake/pkg/ports"
	"github.com/aretw0/intake/pkg/session"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// stack is every collaborator built from the configuration.
type stack struct {
	cfg      config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	store    ports.SessionStore
	services intake.Services

	sessionOpts []session.Option
	routerOpts  []core.Option
	checks      []func(context.Context) error
	closers     []func() error
}

// buildSessions opens only the session backend, for commands that inspect it.
func buildSessions(ctx context.Context, cfg config.Config, logger *slog.Logger) (*stack, error) {
	s := &stack{cfg: cfg, logger: logger}
	if err := s.openSessions(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// build opens every backend named by cfg.
func build(ctx context.Context, cfg config.Config, logger *slog.Logger) (*stack, error) {
	s := &stack{cfg: cfg, logger: logger, registry: prometheus.NewRegistry()}
	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	s.metrics = metrics.New(s.registry)

	steps := []func(context.Context) error{s.openSessions, s.openCases, s.openCollaborators}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			s.Close()
			return nil, err
		}
	}

	s.sessionOpts = append(s.sessionOpts,
		session.WithLogger(logger),
		session.WithHistoryCap(cfg.Session.HistoryCap),
		session.WithLockTTL(cfg.Session.LockTTL),
		session.WithEvictHook(s.publishEviction),
	)
	s.routerOpts = append(s.routerOpts,
		core.WithMetrics(s.metrics),
		core.WithMaxInputSize(cfg.Router.MaxInputSize),
		core.WithRetryCap(cfg.Router.RetryCap),
		core.WithDedupTTL(cfg.Router.DedupTTL),
	)
	if cfg.Router.IdleReminder < cfg.Session.IdleTimeout {
		s.routerOpts = append(s.routerOpts, core.WithIdleReminder(cfg.Router.IdleReminder))
	}
	if s.services.Assistant != nil {
		s.routerOpts = append(s.routerOpts, core.WithTranslator(s.services.Assistant, cfg.Timeouts.Assistant))
	}
	return s, nil
}

func (s *stack) openSessions(ctx context.Context) error {
	cfg := s.cfg
	switch cfg.Session.Backend {
	case config.BackendMemory:
		s.store = memory.NewStore()
		s.routerOpts = append(s.routerOpts, core.WithDeduplicator(memory.NewDeduplicator()))
	case config.BackendFile:
		s.store = file.New(cfg.Session.Dir)
		s.routerOpts = append(s.routerOpts, core.WithDeduplicator(memory.NewDeduplicator()))
	case config.BackendRedis:
		client, err := redisstore.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			return err
		}
		s.closers = append(s.closers, client.Close)
		s.checks = append(s.checks, func(ctx context.Context) error { return client.Ping(ctx).Err() })

		prefix := cfg.Redis.Prefix
		s.store = redisstore.NewFromClient(client, redisstore.WithTTL(cfg.Session.TTL), redisstore.WithPrefix(prefix+"session:"))
		s.sessionOpts = append(s.sessionOpts, session.WithLocker(redisstore.NewLocker(client, prefix)))
		s.routerOpts = append(s.routerOpts, core.WithDeduplicator(redisstore.NewDeduplicator(client, prefix)))
	default:
		return fmt.Errorf("unknown session backend %q", cfg.Session.Backend)
	}

	key, err := cfg.Session.Key()
	if err != nil {
		return err
	}
	if key != nil {
		enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
		if err != nil {
			return err
		}
		s.store = middleware.Chain(s.store, enc)
	}
	return nil
}

func (s *stack) openCases(ctx context.Context) error {
	if s.cfg.Database.Driver == "" {
		s.services.Cases = memory.NewCaseStore()
		return nil
	}
	db, err := sqlstore.Open(ctx, s.cfg.Database.Driver, s.cfg.Database.DSN)
	if err != nil {
		return err
	}
	s.services.Cases = db
	s.closers = append(s.closers, db.Close)
	s.checks = append(s.checks, db.Ping)
	return nil
}

func (s *stack) openCollaborators(ctx context.Context) error {
	cfg := s.cfg
	svc := &s.services
	svc.Logger = s.logger
	svc.Metrics = s.metrics
	svc.Timeouts = core.Timeouts{
		Lookup:       cfg.Timeouts.Lookup,
		Upload:       cfg.Timeouts.Upload,
		Verification: cfg.Timeouts.Verification,
		Transcribe:   cfg.Timeouts.Transcribe,
		Assistant:    cfg.Timeouts.Assistant,
		Store:        cfg.Timeouts.Store,
	}

	if cfg.Evidence.Dir != "" {
		store, err := evidence.NewDirStore(cfg.Evidence.Dir, cfg.Evidence.BaseURL)
		if err != nil {
			return err
		}
		svc.Evidence = store
	} else {
		svc.Evidence = memory.NewEvidenceStore()
	}

	var postalOpts []postal.Option
	if cfg.Postal.BaseURL != "" {
		postalOpts = append(postalOpts, postal.WithBaseURL(cfg.Postal.BaseURL))
	}
	svc.Address = postal.New(postalOpts...)

	if cfg.Verification.Enabled() {
		svc.Verifier = verify.New(verify.Config{
			BaseURL:    cfg.Verification.BaseURL,
			APIKey:     cfg.Verification.APIKey,
			WorkflowID: cfg.Verification.WorkflowID,
		}, &http.Client{})
	}

	ark := assistant.ArkConfig{
		BaseURL: cfg.Assistant.BaseURL,
		Region:  cfg.Assistant.Region,
		APIKey:  cfg.Assistant.APIKey,
		Model:   cfg.Assistant.Model,
	}
	if ark.Enabled() {
		model, err := assistant.NewArkModel(ctx, ark)
		if err != nil {
			return fmt.Errorf("assistant model: %w", err)
		}
		a, err := assistant.New(ctx, model)
		if err != nil {
			return err
		}
		svc.Assistant = a
	}

	tc := assistant.TranscriberConfig{BaseURL: cfg.Transcriber.BaseURL, APIKey: cfg.Transcriber.APIKey, Model: cfg.Transcriber.Model}
	if tc.Enabled() {
		svc.Transcriber = assistant.NewTranscriber(tc, nil)
	}

	if cfg.SMTP.Enabled() {
		svc.Mailer = mailer.NewSMTP(mailer.Config{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
	} else {
		svc.Mailer = logsink.NewMailer(s.logger)
	}

	if cfg.Kafka.Enabled() {
		pub, err := kafka.New(kafka.Config{
			Brokers:  cfg.Kafka.Brokers,
			Topic:    cfg.Kafka.Topic,
			ClientID: cfg.Kafka.ClientID,
		}, kafka.WithLogger(s.logger))
		if err != nil {
			return fmt.Errorf("kafka: %w", err)
		}
		svc.Events = pub
		s.closers = append(s.closers, func() error { pub.Close(); return nil })
	} else {
		svc.Events = logsink.NewEvents(s.logger)
	}
	return nil
}

// publishEviction reports a session removed by the idle sweep.
func (s *stack) publishEviction(ctx context.Context, sess *domain.Session) {
	err := s.services.Events.Publish(ctx, domain.Event{
		ID:         uuid.NewString(),
		Type:       domain.EventSessionEvicted,
		UserKey:    sess.Key,
		OccurredAt: time.Now(),
		Attributes: map[string]any{"flow": string(sess.State), "step": string(sess.Step)},
	})
	if err != nil {
		s.logger.WarnContext(ctx, "publish eviction", "err", err)
	}
}

// engine wires the router over the stack, replying through sender.
func (s *stack) engine(sender ports.Sender) (*intake.Engine, error) {
	return intake.New(s.services, sender,
		intake.WithLogger(s.logger),
		intake.WithSessionStore(s.store),
		intake.WithSessionOptions(s.sessionOpts...),
		intake.WithRouterOptions(s.routerOpts...),
	)
}

// ready checks every backend with a health probe.
func (s *stack) ready(ctx context.Context) error {
	var errs []error
	for _, check := range s.checks {
		if err := check(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close releases backends in reverse order of opening.
func (s *stack) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
