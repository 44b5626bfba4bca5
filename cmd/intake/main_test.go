package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/intake/internal/config"
	"github.com/aretw0/intake/internal/logging"
	"github.com/aretw0/intake/internal/presentation/tui"
	"github.com/aretw0/intake/pkg/adapters/ws"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func plainSender(t *testing.T) (*terminalSender, *bytes.Buffer) {
	t.Helper()
	r, err := tui.NewRenderer(true)
	require.NoError(t, err)
	var buf bytes.Buffer
	return &terminalSender{w: &buf, renderer: r}, &buf
}

func TestParseLine(t *testing.T) {
	out, _ := plainSender(t)
	require.NoError(t, out.Send(context.Background(), "u1", domain.Choice("Pick",
		domain.Option{ID: "newComplaint", Title: "New complaint"},
		domain.Option{ID: "checkStatus", Title: "Check status"},
	)))

	msg, quit, err := parseLine(out, "u1", "2")
	require.NoError(t, err)
	assert.False(t, quit)
	assert.Equal(t, domain.ModalityButton, msg.Modality)
	assert.Equal(t, "checkStatus", msg.Payload)

	msg, _, _ = parseLine(out, "u1", "7")
	assert.Equal(t, domain.ModalityText, msg.Modality, "out of range numbers are plain text")

	path := filepath.Join(t.TempDir(), "id.png")
	require.NoError(t, os.WriteFile(path, []byte("\x89PNG\r\n\x1a\n0000"), 0o644))
	msg, _, err = parseLine(out, "u1", "/image "+path)
	require.NoError(t, err)
	assert.Equal(t, domain.ModalityImage, msg.Modality)
	require.NotNil(t, msg.Media)
	assert.Equal(t, "image/png", msg.Media.MIMEType)

	_, _, err = parseLine(out, "u1", "/voice /does/not/exist")
	assert.Error(t, err)

	_, quit, _ = parseLine(out, "u1", "/quit")
	assert.True(t, quit)
}

func TestChat_GreetsAndQuits(t *testing.T) {
	cfg := config.Default()
	st, err := build(context.Background(), cfg, logging.NewNop())
	require.NoError(t, err)
	defer st.Close()

	out, buf := plainSender(t)
	eng, err := st.engine(out)
	require.NoError(t, err)

	require.NoError(t, chat(context.Background(), eng, out, strings.NewReader("/quit\n"), "u1"))
	assert.Contains(t, buf.String(), "How can we help you today?")
}

func TestPrintRequirements(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printRequirements(&buf, []domain.Category{domain.CategoryFinancial}))
	assert.Contains(t, buf.String(), "Financial fraud")
	assert.NotContains(t, buf.String(), "Social fraud")
}

type recordingSender struct{ got []string }

func (r *recordingSender) Send(_ context.Context, userKey string, _ domain.Renderable) error {
	r.got = append(r.got, userKey)
	return nil
}

func TestPushSender_FallsBackWhenOffline(t *testing.T) {
	hub := ws.NewHub(logging.NewNop())
	cb := &recordingSender{}
	push := pushSender{hub: hub, callback: cb}
	ctx := context.Background()

	require.NoError(t, push.Send(ctx, "u1", domain.Text("hello")))
	assert.Equal(t, []string{"u1"}, cb.got)

	ch, cancel := hub.Subscribe("u2")
	defer cancel()
	require.NoError(t, push.Send(ctx, "u2", domain.Text("hello")))
	assert.Equal(t, "hello", (<-ch).Body)
	assert.Len(t, cb.got, 1)

	assert.ErrorIs(t, pushSender{hub: hub}.Send(ctx, "u3", domain.Text("x")), ws.ErrOffline)
}
