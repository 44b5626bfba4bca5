package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrSessionEnded is the cancellation cause of work bound to a session that
// was cleared, reset or evicted.
var ErrSessionEnded = errors.New("session ended")

// lifetime is the cancellation scope of one session: every enrichment call
// and continuation bound to it stops when it ends.
type lifetime struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
	timers map[uint64]*time.Timer
	next   uint64
}

type lifetimes struct {
	mu    sync.Mutex
	byKey map[string]*lifetime
	onEnd []func(key string)
}

func newLifetimes() *lifetimes {
	return &lifetimes{byKey: make(map[string]*lifetime)}
}

func (l *lifetimes) get(key string) *lifetime {
	l.mu.Lock()
	defer l.mu.Unlock()
	lt, ok := l.byKey[key]
	if !ok {
		ctx, cancel := context.WithCancelCause(context.Background())
		lt = &lifetime{ctx: ctx, cancel: cancel, timers: make(map[uint64]*time.Timer)}
		l.byKey[key] = lt
	}
	return lt
}

func (l *lifetimes) end(key string) {
	l.mu.Lock()
	lt, ok := l.byKey[key]
	delete(l.byKey, key)
	hooks := l.onEnd
	l.mu.Unlock()
	for _, fn := range hooks {
		fn(key)
	}
	if !ok {
		return
	}
	lt.cancel(ErrSessionEnded)
	l.mu.Lock()
	for id, t := range lt.timers {
		t.Stop()
		delete(lt.timers, id)
	}
	l.mu.Unlock()
}

func (l *lifetimes) pending(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lt, ok := l.byKey[key]; ok {
		return len(lt.timers)
	}
	return 0
}

// OnEnd registers fn to run with the key of every session that ends, whether
// it was cleared, reset or evicted.
func (m *Manager) OnEnd(fn func(key string)) {
	m.lifetimes.mu.Lock()
	defer m.lifetimes.mu.Unlock()
	m.lifetimes.onEnd = append(m.lifetimes.onEnd, fn)
}

// Bind derives a context that is cancelled when either parent is done or the
// session ends. Enrichment calls run under it so eviction aborts them.
func (m *Manager) Bind(parent context.Context, key string) (context.Context, context.CancelFunc) {
	lt := m.lifetimes.get(key)
	ctx, cancel := context.WithCancelCause(parent)
	stop := context.AfterFunc(lt.ctx, func() {
		cancel(context.Cause(lt.ctx))
	})
	return ctx, func() {
		stop()
		cancel(context.Canceled)
	}
}

// Schedule runs fn after delay unless the session ends first. The returned
// function cancels the continuation.
func (m *Manager) Schedule(key string, delay time.Duration, fn func(ctx context.Context)) (cancel func()) {
	lt := m.lifetimes.get(key)

	m.lifetimes.mu.Lock()
	id := lt.next
	lt.next++
	t := time.AfterFunc(delay, func() {
		m.lifetimes.mu.Lock()
		_, live := lt.timers[id]
		delete(lt.timers, id)
		m.lifetimes.mu.Unlock()
		if !live || lt.ctx.Err() != nil {
			return
		}
		fn(lt.ctx)
	})
	lt.timers[id] = t
	m.lifetimes.mu.Unlock()

	return func() {
		m.lifetimes.mu.Lock()
		defer m.lifetimes.mu.Unlock()
		if t, ok := lt.timers[id]; ok {
			t.Stop()
			delete(lt.timers, id)
		}
	}
}

// Pending returns the number of continuations waiting for a session.
func (m *Manager) Pending(key string) int {
	return m.lifetimes.pending(key)
}
