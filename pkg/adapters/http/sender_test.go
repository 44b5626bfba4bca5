package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	to  []string
	got []domain.Renderable
}

func (r *recordingSender) Send(_ context.Context, userKey string, m domain.Renderable) error {
	r.to = append(r.to, userKey)
	r.got = append(r.got, m)
	return nil
}

func TestSender_CaptureOrFallback(t *testing.T) {
	fallback := &recordingSender{}
	s := NewSender(fallback)

	ctx, replies := WithCapture(context.Background())
	require.NoError(t, s.Send(ctx, "u1", domain.Text("captured")))
	require.NoError(t, s.Send(context.Background(), "u1", domain.Text("pushed")))

	require.Len(t, replies.Messages(), 1)
	assert.Equal(t, "captured", replies.Messages()[0].Body)
	require.Len(t, fallback.got, 1)
	assert.Equal(t, "pushed", fallback.got[0].Body)
}

func TestSender_NoRecipient(t *testing.T) {
	assert.ErrorIs(t, NewSender(nil).Send(context.Background(), "u1", domain.Text("x")), ErrNoRecipient)
}

func TestCallbackSender(t *testing.T) {
	var (
		auth string
		body callbackBody
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := NewCallbackSender(CallbackConfig{URL: srv.URL, Token: "tok"}, srv.Client())
	require.NoError(t, c.Send(context.Background(), "+919876543210", domain.Text("Your case is registered")))

	assert.Equal(t, "Bearer tok", auth)
	assert.Equal(t, "+919876543210", body.To)
	assert.Equal(t, "Your case is registered", body.Message.Body)
}

func TestCallbackSender_Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewCallbackSender(CallbackConfig{URL: srv.URL}, nil)
	assert.ErrorContains(t, c.Send(context.Background(), "u1", domain.Text("x")), "429")
}
