package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/intake/internal/logging"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed lock survives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Patch describes a partial session update. Nil fields are left untouched.
type Patch struct {
	State *domain.FlowID
	Step  *domain.StepID
	// Data replaces the whole session data when non-nil.
	Data domain.Data
	// ExpectVersion rejects the update with domain.ErrStaleSession when the
	// stored version differs. Zero disables the check.
	ExpectVersion uint64
}

// To is a Patch moving the session to a flow and step.
func To(state domain.FlowID, step domain.StepID) Patch {
	return Patch{State: &state, Step: &step}
}

// AtStep is a Patch moving the session to another step of its current flow.
func AtStep(step domain.StepID) Patch {
	return Patch{Step: &step}
}

// WithData returns a copy of p that also replaces the data.
func (p Patch) WithData(d domain.Data) Patch {
	p.Data = d
	return p
}

// Expecting returns a copy of p guarded by an optimistic version check.
func (p Patch) Expecting(version uint64) Patch {
	p.ExpectVersion = version
	return p
}

// Manager is the Session Store. It orchestrates session access, serializing
// every read-modify-write per user key.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	store ports.SessionStore

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger

	clock      func() time.Time
	historyCap int
	entryFlow  domain.FlowID
	entryStep  domain.StepID
	onEvict    func(ctx context.Context, s *domain.Session)

	lifetimes *lifetimes
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// WithHistoryCap bounds the back-navigation history of new sessions.
func WithHistoryCap(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.historyCap = n
		}
	}
}

// WithEntry sets the flow and step new sessions start at.
func WithEntry(flow domain.FlowID, step domain.StepID) Option {
	return func(m *Manager) {
		m.entryFlow = flow
		m.entryStep = step
	}
}

// WithEvictHook registers a callback invoked for every evicted session.
func WithEvictHook(fn func(ctx context.Context, s *domain.Session)) Option {
	return func(m *Manager) {
		m.onEvict = fn
	}
}

// NewManager creates a new Session Manager with the given persistence store.
func NewManager(store ports.SessionStore, opts ...Option) *Manager {
	m := &Manager{
		store:      store,
		locks:      make(map[string]*lockEntry),
		lockTTL:    DefaultLockTTL,
		logger:     logging.NewNop(), // Default to no-op
		clock:      time.Now,
		historyCap: domain.DefaultHistoryCap,
		entryFlow:  domain.FlowEntry,
		entryStep:  "menu",
		lifetimes:  newLifetimes(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(key) after unlocking.
func (m *Manager) acquire(key string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[key]
	if !exists {
		entry = &lockEntry{}
		m.locks[key] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[key]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, key)
	}
}

// WithLock executes a function while holding the lock for the user key.
func (m *Manager) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	entry := m.acquire(key)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(key)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, key, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"user", logging.Redact(key),
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

func (m *Manager) newSession(key string) *domain.Session {
	s := domain.NewSession(key, m.entryFlow, m.entryStep, m.historyCap, m.clock())
	s.Version = 1
	return s
}

// Create initializes a session at the entry flow. If one already exists it
// is returned untouched.
func (m *Manager) Create(ctx context.Context, key string) (*domain.Session, error) {
	var s *domain.Session
	err := m.WithLock(ctx, key, func(ctx context.Context) error {
		var err error
		s, err = m.store.Load(ctx, key)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrSessionNotFound) {
			return fmt.Errorf("failed to check session existence: %w", err)
		}

		s = m.newSession(key)
		if err := m.store.Save(ctx, key, s); err != nil {
			return fmt.Errorf("failed to initialize session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Clone(), nil
}

// Get retrieves a session. It returns domain.ErrSessionNotFound for unknown keys.
func (m *Manager) Get(ctx context.Context, key string) (*domain.Session, error) {
	var s *domain.Session
	err := m.WithLock(ctx, key, func(ctx context.Context) error {
		var err error
		s, err = m.store.Load(ctx, key)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Update applies a patch. When the patch moves the session to another flow a
// deep copy of {state, step, data} is pushed onto the history first.
func (m *Manager) Update(ctx context.Context, key string, p Patch) (*domain.Session, error) {
	var out *domain.Session
	err := m.WithLock(ctx, key, func(ctx context.Context) error {
		s, err := m.load(ctx, key)
		if err != nil {
			return err
		}
		if p.ExpectVersion != 0 && s.Version != p.ExpectVersion {
			return fmt.Errorf("%w: have version %d, expected %d", domain.ErrStaleSession, s.Version, p.ExpectVersion)
		}

		if p.State != nil && *p.State != s.State {
			s.History.Push(s.Snapshot())
		}
		if p.State != nil {
			s.State = *p.State
		}
		if p.Step != nil {
			s.Step = *p.Step
		}
		if p.Data != nil {
			s.Data = p.Data.Clone()
		}
		m.touch(s)

		if err := m.store.Save(ctx, key, s); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
		out = s
		return nil
	})
	return out, err
}

// GoBack restores the most recent history entry verbatim. It reports false
// (and changes nothing) when the history is empty.
func (m *Manager) GoBack(ctx context.Context, key string) (bool, error) {
	restored := false
	err := m.WithLock(ctx, key, func(ctx context.Context) error {
		s, err := m.load(ctx, key)
		if err != nil {
			return err
		}
		snap, ok := s.History.Pop()
		if !ok {
			return nil
		}
		s.Restore(snap)
		m.touch(s)
		if err := m.store.Save(ctx, key, s); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
		restored = true
		return nil
	})
	return restored, err
}

// Reset moves the session back to the entry flow with empty data and history,
// keeping the language. Missing sessions are created. Pending continuations are cancelled.
func (m *Manager) Reset(ctx context.Context, key string) (*domain.Session, error) {
	var out *domain.Session
	err := m.WithLock(ctx, key, func(ctx context.Context) error {
		lang := domain.DefaultLanguage
		var version uint64
		if prev, err := m.store.Load(ctx, key); err == nil {
			lang = prev.Language
			version = prev.Version
		} else if !errors.Is(err, domain.ErrSessionNotFound) {
			return fmt.Errorf("failed to load session: %w", err)
		}

		s := m.newSession(key)
		s.Language = lang
		s.Version = version + 1
		if err := m.store.Save(ctx, key, s); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
		out = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.lifetimes.end(key)
	return out, nil
}

// Clear deletes the session and cancels everything running on its behalf.
func (m *Manager) Clear(ctx context.Context, key string) error {
	err := m.WithLock(ctx, key, func(ctx context.Context) error {
		return m.store.Delete(ctx, key)
	})
	m.lifetimes.end(key)
	return err
}

// ClearAt deletes the session only while it is still at version. It
// reports false when the session was already gone, and fails with
// domain.ErrStaleSession when another update got there first.
func (m *Manager) ClearAt(ctx context.Context, key string, version uint64) (bool, error) {
	cleared := false
	err := m.WithLock(ctx, key, func(ctx context.Context) error {
		s, err := m.store.Load(ctx, key)
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load session: %w", err)
		}
		if s.Version != version {
			return fmt.Errorf("%w: have version %d, expected %d", domain.ErrStaleSession, s.Version, version)
		}
		if err := m.store.Delete(ctx, key); err != nil {
			return err
		}
		cleared = true
		return nil
	})
	if err != nil {
		return false, err
	}
	m.lifetimes.end(key)
	return cleared, nil
}

// EvictIdle deletes every session whose last activity predates now-threshold.
// Each candidate is re-checked under its own lock so an in-flight update wins.
func (m *Manager) EvictIdle(ctx context.Context, threshold time.Duration) (int, error) {
	keys, err := m.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list sessions: %w", err)
	}

	evicted := 0
	var errs []error
	for _, key := range keys {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		var victim *domain.Session
		err := m.WithLock(ctx, key, func(ctx context.Context) error {
			s, err := m.store.Load(ctx, key)
			if errors.Is(err, domain.ErrSessionNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			if s.IdleSince(m.clock()) <= threshold {
				return nil
			}
			if err := m.store.Delete(ctx, key); err != nil {
				return err
			}
			victim = s
			return nil
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("evict %s: %w", logging.Redact(key), err))
			continue
		}
		if victim == nil {
			continue
		}
		evicted++
		m.lifetimes.end(key)
		if m.onEvict != nil {
			m.onEvict(ctx, victim)
		}
	}
	return evicted, errors.Join(errs...)
}

// Language returns the preferred language of a session.
func (m *Manager) Language(ctx context.Context, key string) (string, error) {
	s, err := m.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if s.Language == "" {
		return domain.DefaultLanguage, nil
	}
	return s.Language, nil
}

// SetLanguage stores the preferred language of a session.
func (m *Manager) SetLanguage(ctx context.Context, key, code string) error {
	return m.WithLock(ctx, key, func(ctx context.Context) error {
		s, err := m.load(ctx, key)
		if err != nil {
			return err
		}
		s.Language = code
		m.touch(s)
		return m.store.Save(ctx, key, s)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying session store.
func (m *Manager) Store() ports.SessionStore {
	return m.store
}

// HistoryCap returns the history capacity of new sessions.
func (m *Manager) HistoryCap() int {
	return m.historyCap
}

func (m *Manager) load(ctx context.Context, key string) (*domain.Session, error) {
	s, err := m.store.Load(ctx, key)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil, &domain.SessionNotFoundError{Key: key}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if s.History == nil {
		s.History = domain.NewHistory(m.historyCap)
	}
	if s.Data == nil {
		s.Data = domain.Data{}
	}
	return s, nil
}

func (m *Manager) touch(s *domain.Session) {
	s.Version++
	s.LastActivity = m.clock()
}
