package middleware_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/intake/pkg/adapters/memory"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/persistence/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIIMiddleware_MasksOnRead(t *testing.T) {
	underlying := memory.NewStore()
	view := middleware.NewPIIMiddleware(middleware.DefaultPIIPatterns)(underlying)
	ctx := context.Background()
	key := "pii-user"

	s := domain.NewSession(key, domain.FlowRegistration, "confirmation", 4, time.Now())
	s.Data.Set("registration", "name", "Asha")
	s.Data.Set("registration", "nationalId", "234567890123")
	s.Data.Set("system", "channelPhone", "9876543210")
	s.Data.Set("registration", "contact", map[string]any{"email": "a@b.in", "village": "Patia"})
	prev := domain.Data{}
	prev.Set("registration", "nationalId", "234567890123")
	s.History.Push(domain.Snapshot{State: domain.FlowRegistration, Step: "nationalId", Data: prev})
	require.NoError(t, underlying.Save(ctx, key, s))

	masked, err := view.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "Asha", masked.Data.String("registration", "name"))
	assert.Equal(t, "***", masked.Data.String("registration", "nationalId"))
	assert.Equal(t, "***", masked.Data.String("system", "channelPhone"))
	contact := masked.Data.Map("registration", "contact")
	assert.Equal(t, "***", contact["email"])
	assert.Equal(t, "Patia", contact["village"])

	top, ok := masked.History.Peek()
	require.True(t, ok)
	assert.Equal(t, "***", top.Data.String("registration", "nationalId"))

	original, err := underlying.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "234567890123", original.Data.String("registration", "nationalId"), "underlying store untouched")
}

func TestPIIMiddleware_IsReadOnly(t *testing.T) {
	view := middleware.NewPIIMiddleware(nil)(memory.NewStore())
	ctx := context.Background()
	assert.ErrorIs(t, view.Save(ctx, "k", domain.NewSession("k", domain.FlowEntry, "menu", 1, time.Now())), middleware.ErrReadOnly)
	assert.ErrorIs(t, view.Delete(ctx, "k"), middleware.ErrReadOnly)
}
