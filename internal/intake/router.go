package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/intake/internal/logging"
	"github.com/aretw0/intake/internal/metrics"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/flow"
	"github.com/aretw0/intake/pkg/ports"
	"github.com/aretw0/intake/pkg/session"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultDedupTTL is how long a message ID is remembered.
const DefaultDedupTTL = 24 * time.Hour

// maxCommitAttempts bounds the retries of a turn whose commit raced another.
const maxCommitAttempts = 3

// Router is the Input Router. It turns one inbound message into at most one
// committed session change plus the replies sent back to the user.
type Router struct {
	sessions *session.Manager
	catalog  *flow.Catalog
	sender   ports.Sender
	handlers map[route]handler

	dedup      ports.Deduplicator
	dedupTTL   time.Duration
	translator ports.Assistant
	translateT time.Duration
	maxInput   int
	retryCap   int
	remindIn   time.Duration

	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer

	mu        sync.Mutex
	retries   map[string]int
	reminders map[string]*reminder
}

// reminder is the pending idle reminder of one user.
type reminder struct {
	cancel func()
}

// Option configures the Router.
type Option func(*Router)

// WithDeduplicator drops messages whose ID was already routed.
func WithDeduplicator(d ports.Deduplicator) Option {
	return func(r *Router) { r.dedup = d }
}

// WithDedupTTL overrides DefaultDedupTTL.
func WithDedupTTL(ttl time.Duration) Option {
	return func(r *Router) {
		if ttl > 0 {
			r.dedupTTL = ttl
		}
	}
}

// WithTranslator translates outbound messages for users who picked a
// language other than English.
func WithTranslator(a ports.Assistant, timeout time.Duration) Option {
	return func(r *Router) {
		r.translator = a
		if timeout > 0 {
			r.translateT = timeout
		}
	}
}

// WithMaxInputSize overrides DefaultMaxInputSize.
func WithMaxInputSize(n int) Option {
	return func(r *Router) { r.maxInput = n }
}

// WithRetryCap sends the user back to the menu after n consecutive
// validation failures on one step. Zero re-prompts forever.
func WithRetryCap(n int) Option {
	return func(r *Router) { r.retryCap = n }
}

// WithIdleReminder re-sends the current prompt to a user who has not answered
// it within d. Any later turn voids the reminder. Zero disables it.
func WithIdleReminder(d time.Duration) Option {
	return func(r *Router) { r.remindIn = d }
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) { r.logger = logger }
}

// WithMetrics configures the Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Router) { r.metrics = m }
}

// NewRouter wires the router and checks that the catalog is sound and that
// every flow in it has a handler.
func NewRouter(sessions *session.Manager, catalog *flow.Catalog, sender ports.Sender, opts ...Option) (*Router, error) {
	r := &Router{
		sessions:   sessions,
		catalog:    catalog,
		sender:     sender,
		dedupTTL:   DefaultDedupTTL,
		translateT: DefaultTimeouts.Assistant,
		maxInput:   DefaultMaxInputSize,
		logger:     logging.NewNop(),
		tracer:     otel.Tracer("intake/router"),
		retries:    make(map[string]int),
		reminders:  make(map[string]*reminder),
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := catalog.Validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	r.handlers = r.routes()
	if err := r.checkRoutes(); err != nil {
		return nil, err
	}
	sessions.OnEnd(r.forget)
	return r, nil
}

// Classify determines the modality of a message. Messages without a known
// modality are classified by their attachment, defaulting to text.
func Classify(msg domain.Message) domain.Modality {
	if msg.Modality.Valid() {
		return msg.Modality
	}
	if msg.Media != nil {
		switch {
		case strings.HasPrefix(msg.Media.MIMEType, "image/"):
			return domain.ModalityImage
		case strings.HasPrefix(msg.Media.MIMEType, "audio/"):
			return domain.ModalityVoice
		}
	}
	return domain.ModalityText
}

var greetings = map[string]bool{
	"hi": true, "hii": true, "hello": true, "helo": true, "hey": true,
	"namaste": true, "namaskar": true, "start": true,
}

// IsGreeting reports whether text opens a conversation.
func IsGreeting(text string) bool {
	t := strings.ToLower(strings.Trim(strings.TrimSpace(text), "!.,?"))
	return greetings[t]
}

// turn is the working state of one routed message.
type turn struct {
	in      flow.Input
	sess    *domain.Session
	def     *flow.Definition
	step    *flow.Step
	created bool
	lang    string

	prior    *accepted // outcome of an earlier attempt of this turn
	accepted *accepted
	ended    bool
}

// accepted is a validated outcome and the step that produced it.
type accepted struct {
	state domain.FlowID
	step  domain.StepID
	out   flow.Outcome
}

func (a *accepted) at(s *domain.Session) bool {
	return a != nil && a.state == s.State && a.step == s.Step
}

func (t *turn) key() string { return t.in.UserKey }

func (t *turn) ns() string { return string(t.sess.State) }

// Route handles one inbound message. Every taxonomy error is answered with a
// message instead of being returned; the returned error only reports a
// failed delivery.
func (r *Router) Route(ctx context.Context, msg domain.Message) (err error) {
	start := time.Now()
	msg.Modality = Classify(msg)
	ctx, span := r.tracer.Start(ctx, "Router.Route", trace.WithAttributes(
		attribute.String("modality", string(msg.Modality)),
	))
	defer span.End()

	outcome := "ok"
	lang := domain.DefaultLanguage
	defer func() {
		if p := recover(); p != nil {
			outcome = "panic"
			r.logger.Error("panic while routing message",
				"user", logging.Redact(msg.UserKey),
				"panic", p,
				"stack", string(debug.Stack()),
			)
			span.SetStatus(codes.Error, "panic")
			err = r.deliver(ctx, msg.UserKey, lang, []domain.Renderable{msgFallback})
		}
		r.metrics.ObserveRoute(string(msg.Modality), outcome, time.Since(start))
	}()

	text, serr := SanitizeInput(msg.Payload, r.maxInput)
	if serr != nil {
		outcome = "rejected"
		reply := msgFallback
		if errors.Is(serr, ErrInputTooLarge) {
			reply = msgTooLong
		}
		return r.deliver(ctx, msg.UserKey, lang, []domain.Renderable{reply})
	}
	msg.Payload = text

	if r.duplicate(ctx, msg) {
		outcome = "duplicate"
		return nil
	}

	var replies []domain.Renderable
	replies, lang, outcome = r.process(ctx, msg)
	if err := r.deliver(ctx, msg.UserKey, lang, replies); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (r *Router) duplicate(ctx context.Context, msg domain.Message) bool {
	if r.dedup == nil || msg.ID == "" {
		return false
	}
	seen, err := r.dedup.Seen(ctx, msg.UserKey+":"+msg.ID, r.dedupTTL)
	if err != nil {
		r.logger.Warn("dedupe check failed, processing message", "error", err)
		return false
	}
	if seen {
		r.metrics.IncrementDuplicate()
		r.logger.Debug("dropping redelivered message", "user", logging.Redact(msg.UserKey), "id", msg.ID)
	}
	return seen
}

// process runs the turn, retrying from a fresh load when the commit lost a
// race with a concurrent delivery for the same user. A retry that finds the
// session at the same step replays the outcome already accepted instead of
// running the step validator again.
func (r *Router) process(ctx context.Context, msg domain.Message) ([]domain.Renderable, string, string) {
	var prior *accepted
	for attempt := 1; ; attempt++ {
		t, replies, err := r.attempt(ctx, msg, prior)
		lang := domain.DefaultLanguage
		if t != nil && t.lang != "" {
			lang = t.lang
		}
		if err == nil {
			r.remind(t)
			return replies, lang, "ok"
		}
		if errors.Is(err, domain.ErrStaleSession) && attempt < maxCommitAttempts {
			r.logger.Debug("session changed during turn, retrying", "user", logging.Redact(msg.UserKey), "attempt", attempt)
			if t != nil && t.accepted != nil {
				prior = t.accepted
			}
			continue
		}
		out, outcome := r.boundary(ctx, t, err)
		switch outcome {
		case "invalid", "mismatch", "external":
			r.remind(t)
		}
		return append(replies, out...), lang, outcome
	}
}

// remind schedules the idle reminder for the step the turn left the user on,
// replacing any earlier one. It is tied to the session lifetime, so the
// session ending cancels it.
func (r *Router) remind(t *turn) {
	if r.remindIn <= 0 || t.ended || t.step == nil || t.sess.State == r.catalog.Entry() {
		return
	}
	key, version := t.key(), t.sess.Version
	rem := &reminder{}

	r.mu.Lock()
	defer r.mu.Unlock()
	if prev := r.reminders[key]; prev != nil {
		prev.cancel()
	}
	r.reminders[key] = rem
	rem.cancel = r.sessions.Schedule(key, r.remindIn, func(ctx context.Context) {
		r.mu.Lock()
		current := r.reminders[key] == rem
		if current {
			delete(r.reminders, key)
		}
		r.mu.Unlock()
		if !current {
			return
		}
		r.sendReminder(ctx, key, version)
	})
}

func (r *Router) sendReminder(ctx context.Context, key string, version uint64) {
	s, err := r.sessions.Get(ctx, key)
	if err != nil || s.Version != version {
		return
	}
	idle := &turn{in: flow.Input{UserKey: key}}
	r.bind(idle, s)
	if idle.step == nil {
		return
	}
	r.metrics.IncrementReminder()
	if err := r.deliver(ctx, key, s.Language, []domain.Renderable{withNotice(r.prompt(idle), msgReminder.Body)}); err != nil {
		r.logger.Warn("idle reminder not delivered", "user", logging.Redact(key), "error", err)
	}
}

func (r *Router) attempt(ctx context.Context, msg domain.Message, prior *accepted) (*turn, []domain.Renderable, error) {
	t, err := r.load(ctx, msg)
	if err != nil {
		return t, nil, err
	}
	t.prior = prior
	if t.created || (t.sess.State == r.catalog.Entry() && t.in.Modality == domain.ModalityText && IsGreeting(t.in.Text)) {
		replies, err := r.greet(ctx, t)
		return t, replies, err
	}
	if sig, arg := parseSignal(t.in); sig != sigNone {
		replies, err := r.navigate(ctx, t, sig, arg)
		return t, replies, err
	}
	if t.def == nil || t.step == nil {
		r.logger.Warn("session points at an unknown step, resetting",
			"user", logging.Redact(t.key()), "state", t.sess.State, "step", t.sess.Step)
		replies, err := r.toMenu(ctx, t)
		return t, replies, err
	}
	replies, err := r.handlerFor(t.sess.State, t.sess.Step)(ctx, t)
	return t, replies, err
}

func (r *Router) load(ctx context.Context, msg domain.Message) (*turn, error) {
	t := &turn{in: flow.Input{
		UserKey:  msg.UserKey,
		Modality: msg.Modality,
		Text:     msg.Payload,
		Media:    msg.Media,
	}}
	s, err := r.sessions.Get(ctx, msg.UserKey)
	if errors.Is(err, domain.ErrSessionNotFound) {
		s, err = r.sessions.Create(ctx, msg.UserKey)
		t.created = true
	}
	if err != nil {
		return nil, err
	}
	r.bind(t, s)
	return t, nil
}

func (r *Router) bind(t *turn, s *domain.Session) {
	t.sess = s
	t.lang = s.Language
	t.def, t.step = nil, nil
	if def, ok := r.catalog.Get(s.State); ok {
		t.def = def
		t.step, _ = def.Step(s.Step)
	}
}

// commit writes the patch unless the session moved on since it was loaded.
func (r *Router) commit(ctx context.Context, t *turn, p session.Patch) error {
	s, err := r.sessions.Update(ctx, t.key(), p.Expecting(t.sess.Version))
	if err != nil {
		return err
	}
	r.bind(t, s)
	return nil
}

func (r *Router) greet(ctx context.Context, t *turn) ([]domain.Renderable, error) {
	menu, err := r.toMenu(ctx, t)
	if err != nil {
		return nil, err
	}
	return append([]domain.Renderable{msgWelcome}, menu...), nil
}

// toMenu resets the session and renders the entry prompt.
func (r *Router) toMenu(ctx context.Context, t *turn) ([]domain.Renderable, error) {
	s, err := r.sessions.Reset(ctx, t.key())
	if err != nil {
		return nil, err
	}
	r.bind(t, s)
	return []domain.Renderable{r.prompt(t)}, nil
}

// prompt renders the current step, falling back to the entry menu.
func (r *Router) prompt(t *turn) domain.Renderable {
	if t.step != nil {
		return t.step.Prompt(t.sess.Data)
	}
	if def, ok := r.catalog.Get(r.catalog.Entry()); ok {
		if first, ok := def.First(domain.Data{}); ok {
			s, _ := def.Step(first)
			return s.Prompt(domain.Data{})
		}
	}
	return menuPrompt(domain.Data{})
}

// failed counts a validation failure and reports whether the cap is reached.
func (r *Router) failed(key string) bool {
	if r.retryCap <= 0 {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retries[key]++
	if r.retries[key] >= r.retryCap {
		delete(r.retries, key)
		return true
	}
	return false
}

func (r *Router) clearRetries(key string) {
	r.mu.Lock()
	delete(r.retries, key)
	r.mu.Unlock()
}

// forget drops the per-user state of a session that ended.
func (r *Router) forget(key string) {
	r.mu.Lock()
	delete(r.retries, key)
	delete(r.reminders, key)
	r.mu.Unlock()
}
