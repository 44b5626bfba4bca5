package intake_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/intake"
	"github.com/aretw0/intake/pkg/adapters/memory"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLookup struct{}

func (stubLookup) Resolve(context.Context, string) (domain.Address, error) {
	return domain.Address{}, domain.ErrNotFound
}

func TestNew_RequiresSender(t *testing.T) {
	_, err := intake.New(intake.Services{}, nil)
	assert.Error(t, err)
}

func TestEngine_StatusCheck(t *testing.T) {
	ctx := context.Background()
	cases := memory.NewCaseStore()
	store := memory.NewStore()
	outbox := memory.NewOutbox()
	_, err := cases.SaveComplaint(ctx, domain.FinalizedComplaint{
		CaseID:       "CC1772359200000123",
		Category:     domain.CategoryFinancial,
		FraudTypeKey: "upiFraud",
		CreatedAt:    time.Now(),
	})
	require.NoError(t, err)

	engine, err := intake.New(intake.Services{Cases: cases, Address: stubLookup{}}, outbox, intake.WithSessionStore(store))
	require.NoError(t, err)

	const user = "+919876543210"
	route := func(m domain.Message) []domain.Renderable {
		m.UserKey = user
		require.NoError(t, engine.Route(ctx, m))
		return outbox.Drain(user)
	}

	route(domain.Message{Payload: "hi"})
	route(domain.Message{Modality: domain.ModalityButton, Payload: "checkStatus"})
	msgs := route(domain.Message{Payload: "CC1772359200000123"})
	require.NotEmpty(t, msgs)
	assert.Contains(t, msgs[0].Body, "UPI Fraud")

	keys, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys, "a completed dialog leaves no session behind")
}

func TestEngine_Sweeper(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	outbox := memory.NewOutbox()
	engine, err := intake.New(intake.Services{Address: stubLookup{}}, outbox,
		intake.WithSessionOptions(session.WithClock(func() time.Time { return now })))
	require.NoError(t, err)

	require.NoError(t, engine.Route(context.Background(), domain.Message{UserKey: "u1", Payload: "hi"}))
	sweeper := engine.Sweeper(time.Minute, 30*time.Minute)
	assert.Equal(t, 0, sweeper.Sweep(context.Background()))

	now = now.Add(time.Hour)
	assert.Equal(t, 1, sweeper.Sweep(context.Background()))
}
