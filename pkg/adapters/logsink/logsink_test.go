package logsink

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/aretw0/intake/internal/logging"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvents_Publish(t *testing.T) {
	var buf bytes.Buffer
	e := NewEvents(logging.NewWithWriter(&buf, slog.LevelDebug))

	require.NoError(t, e.Publish(context.Background(), domain.Event{ID: "ev-1", Type: domain.EventComplaintFiled, UserKey: "+919876543210"}))
	out := buf.String()
	assert.Contains(t, out, "complaint.filed")
	assert.NotContains(t, out, "+919876543210")
}

func TestMailer_SendOTP(t *testing.T) {
	var buf bytes.Buffer
	m := NewMailer(logging.NewWithWriter(&buf, slog.LevelInfo))

	require.NoError(t, m.SendOTP(context.Background(), "asha@example.com", "482913"))
	assert.Contains(t, buf.String(), "482913")
	assert.NotContains(t, buf.String(), "asha@example.com")
}
