package session_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/intake/pkg/adapters/memory"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newManager(t *testing.T, opts ...session.Option) (*session.Manager, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	opts = append([]session.Option{session.WithClock(clock.Now)}, opts...)
	return session.NewManager(memory.NewStore(), opts...), clock
}

func TestManager_CreateIsIdempotent(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	s, err := m.Create(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.FlowEntry, s.State)
	assert.Equal(t, 0, s.History.Len())

	_, err = m.Update(ctx, "u1", session.To(domain.FlowRegistration, "name"))
	require.NoError(t, err)

	again, err := m.Create(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.FlowRegistration, again.State, "existing session is not overwritten")
}

func TestManager_GetUnknown(t *testing.T) {
	m, _ := newManager(t)
	_, err := m.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestManager_UpdateUnknownKey(t *testing.T) {
	m, _ := newManager(t)
	_, err := m.Update(context.Background(), "ghost", session.AtStep("x"))

	var nf *domain.SessionNotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "ghost", nf.Key)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestManager_UpdatePushesHistoryOnlyOnStateChange(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()
	_, err := m.Create(ctx, "u1")
	require.NoError(t, err)

	s, err := m.Update(ctx, "u1", session.AtStep("moreMenu"))
	require.NoError(t, err)
	assert.Equal(t, 0, s.History.Len())

	s, err = m.Update(ctx, "u1", session.To(domain.FlowRegistration, "name"))
	require.NoError(t, err)
	require.Equal(t, 1, s.History.Len())
	top, _ := s.History.Peek()
	assert.Equal(t, domain.FlowEntry, top.State)
	assert.Equal(t, domain.StepID("moreMenu"), top.Step)
}

func TestManager_GoBackRestoresExactly(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()
	_, err := m.Create(ctx, "u1")
	require.NoError(t, err)

	d := domain.Data{}
	d.Set("registration", "name", "Asha")
	d.Set("registration", "address", map[string]any{"area": "Unit 1", "district": "Khordha"})
	before, err := m.Update(ctx, "u1", session.To(domain.FlowRegistration, "postalCode").WithData(d))
	require.NoError(t, err)

	next := before.Data.Clone()
	next.Set("complaint_filing", "description", "lost money")
	next.Map("registration", "address")["district"] = "mutated"
	_, err = m.Update(ctx, "u1", session.To(domain.FlowComplaintFiling, "category").WithData(next))
	require.NoError(t, err)

	ok, err := m.GoBack(ctx, "u1")
	require.NoError(t, err)
	require.True(t, ok)

	after, err := m.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, before.State, after.State)
	assert.Equal(t, before.Step, after.Step)
	assert.Equal(t, before.Data, after.Data)
}

func TestManager_GoBackEmptyHistory(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()
	created, err := m.Create(ctx, "u1")
	require.NoError(t, err)

	ok, err := m.GoBack(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	s, err := m.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, created.Version, s.Version, "no-op leaves the session untouched")
}

func TestManager_HistoryStaysBounded(t *testing.T) {
	m, _ := newManager(t, session.WithHistoryCap(3))
	ctx := context.Background()
	_, err := m.Create(ctx, "u1")
	require.NoError(t, err)

	flows := []domain.FlowID{domain.FlowRegistration, domain.FlowComplaintFiling, domain.FlowDocumentCollection}
	for i := 0; i < 20; i++ {
		s, err := m.Update(ctx, "u1", session.To(flows[i%len(flows)], domain.StepID(fmt.Sprintf("s%d", i))))
		require.NoError(t, err)
		assert.LessOrEqual(t, s.History.Len(), 3)
	}
	for i := 0; i < 3; i++ {
		ok, err := m.GoBack(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := m.GoBack(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestManager_HistoryIsNotAliased(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()
	_, err := m.Create(ctx, "u1")
	require.NoError(t, err)

	d := domain.Data{}
	d.Set("registration", "address", map[string]any{"district": "Khordha"})
	s, err := m.Update(ctx, "u1", session.To(domain.FlowRegistration, "postalCode").WithData(d))
	require.NoError(t, err)

	top, ok := s.History.Peek()
	require.True(t, ok)
	assert.Empty(t, top.Data)

	d.Map("registration", "address")["district"] = "changed"
	stored, err := m.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Khordha", stored.Data.Map("registration", "address")["district"])
}

func TestManager_OptimisticVersion(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()
	s, err := m.Create(ctx, "u1")
	require.NoError(t, err)

	var wg sync.WaitGroup
	var wins, stale atomic.Int32
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := m.Update(ctx, "u1", session.AtStep(domain.StepID(fmt.Sprintf("s%d", i))).Expecting(s.Version))
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, domain.ErrStaleSession):
				stale.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(9), stale.Load())
}

func TestManager_ClearAt(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()
	s, err := m.Create(ctx, "u1")
	require.NoError(t, err)
	moved, err := m.Update(ctx, "u1", session.AtStep("next"))
	require.NoError(t, err)

	cleared, err := m.ClearAt(ctx, "u1", s.Version)
	assert.ErrorIs(t, err, domain.ErrStaleSession)
	assert.False(t, cleared)
	_, err = m.Get(ctx, "u1")
	require.NoError(t, err, "a stale clear keeps the session")

	cleared, err = m.ClearAt(ctx, "u1", moved.Version)
	require.NoError(t, err)
	assert.True(t, cleared)
	_, err = m.Get(ctx, "u1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	cleared, err = m.ClearAt(ctx, "u1", moved.Version)
	require.NoError(t, err)
	assert.False(t, cleared, "only one caller clears a session")
}

func TestManager_EvictIdle(t *testing.T) {
	m, clock := newManager(t)
	ctx := context.Background()
	_, err := m.Create(ctx, "idle")
	require.NoError(t, err)

	bound, cancel := m.Bind(ctx, "idle")
	defer cancel()

	clock.Advance(20 * time.Minute)
	_, err = m.Create(ctx, "fresh")
	require.NoError(t, err)
	clock.Advance(15 * time.Minute)

	n, err := m.EvictIdle(ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = m.Get(ctx, "idle")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = m.Get(ctx, "fresh")
	assert.NoError(t, err)

	select {
	case <-bound.Done():
		assert.ErrorIs(t, context.Cause(bound), session.ErrSessionEnded)
	case <-time.After(time.Second):
		t.Fatal("bound context survived eviction")
	}
}

func TestManager_EvictHook(t *testing.T) {
	var evicted []string
	m, clock := newManager(t, session.WithEvictHook(func(_ context.Context, s *domain.Session) {
		evicted = append(evicted, s.Key)
	}))
	ctx := context.Background()
	_, err := m.Create(ctx, "u1")
	require.NoError(t, err)
	clock.Advance(time.Hour)

	_, err = m.EvictIdle(ctx, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, evicted)
}

func TestManager_ScheduleCancelledWithSession(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()
	_, err := m.Create(ctx, "u1")
	require.NoError(t, err)

	var ran atomic.Bool
	m.Schedule("u1", 50*time.Millisecond, func(context.Context) { ran.Store(true) })
	assert.Equal(t, 1, m.Pending("u1"))

	require.NoError(t, m.Clear(ctx, "u1"))
	time.Sleep(100 * time.Millisecond)
	assert.False(t, ran.Load())
	assert.Equal(t, 0, m.Pending("u1"))
}

func TestManager_ScheduleRuns(t *testing.T) {
	m, _ := newManager(t)
	done := make(chan struct{})
	m.Schedule("u1", time.Millisecond, func(context.Context) { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("continuation did not run")
	}
}

func TestManager_ScheduledCancelFunc(t *testing.T) {
	m, _ := newManager(t)
	var ran atomic.Bool
	cancel := m.Schedule("u1", 30*time.Millisecond, func(context.Context) { ran.Store(true) })
	cancel()
	time.Sleep(60 * time.Millisecond)
	assert.False(t, ran.Load())
}

func TestManager_OnEnd(t *testing.T) {
	m, clock := newManager(t)
	ctx := context.Background()
	var ended []string
	m.OnEnd(func(key string) { ended = append(ended, key) })

	for _, key := range []string{"cleared", "reset", "idle"} {
		_, err := m.Create(ctx, key)
		require.NoError(t, err)
	}
	require.NoError(t, m.Clear(ctx, "cleared"))
	_, err := m.Reset(ctx, "reset")
	require.NoError(t, err)
	assert.Equal(t, []string{"cleared", "reset"}, ended)

	clock.Advance(time.Hour)
	require.NoError(t, m.Clear(ctx, "reset"))
	_, err = m.EvictIdle(ctx, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, []string{"cleared", "reset", "reset", "idle"}, ended)
}

func TestManager_ResetKeepsLanguage(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()
	_, err := m.Create(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, m.SetLanguage(ctx, "u1", "hi"))
	_, err = m.Update(ctx, "u1", session.To(domain.FlowRegistration, "name"))
	require.NoError(t, err)

	s, err := m.Reset(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.FlowEntry, s.State)
	assert.Equal(t, 0, s.History.Len())

	lang, err := m.Language(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "hi", lang)
}

func TestManager_Locking(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()
	_, err := m.Create(ctx, "race")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// read-modify-write under the per-key lock must not lose increments
			err := m.WithLock(ctx, "race", func(ctx context.Context) error {
				s, err := m.Store().Load(ctx, "race")
				if err != nil {
					return err
				}
				n, _ := s.Data.Get("system", "counter")
				count, _ := n.(int)
				s.Data.Set("system", "counter", count+1)
				return m.Store().Save(ctx, "race", s)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	s, err := m.Get(ctx, "race")
	require.NoError(t, err)
	v, _ := s.Data.Get("system", "counter")
	assert.Equal(t, 25, v)
}
