package mailer

import (
	"context"
	"errors"
	"net/smtp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMTP_SendOTP(t *testing.T) {
	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
		gotAuth smtp.Auth
	)
	m := NewSMTP(Config{Host: "smtp.example", Port: 2525, Username: "bot", Password: "pw", From: "noreply@intake.example"})
	m.now = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotTo, gotMsg = addr, a, to, string(msg)
		assert.Equal(t, "noreply@intake.example", from)
		return nil
	}

	require.NoError(t, m.SendOTP(context.Background(), "asha@example.com", "482913"))
	assert.Equal(t, "smtp.example:2525", gotAddr)
	assert.NotNil(t, gotAuth)
	assert.Equal(t, []string{"asha@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "To: asha@example.com\r\n")
	assert.Contains(t, gotMsg, "verification code is 482913.")
}

func TestSMTP_SendOTPFailure(t *testing.T) {
	m := NewSMTP(Config{Host: "smtp.example"})
	m.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("550 mailbox unavailable") }

	err := m.SendOTP(context.Background(), "asha@example.com", "482913")
	assert.ErrorContains(t, err, "550 mailbox unavailable")
}

func TestSMTP_RejectsHeaderInjection(t *testing.T) {
	m := NewSMTP(Config{Host: "smtp.example"})
	m.send = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("must not send")
		return nil
	}
	assert.Error(t, m.SendOTP(context.Background(), "a@example.com\r\nBcc: x@example.com", "1"))
}

func TestConfig_Addr(t *testing.T) {
	assert.Equal(t, "smtp.example:587", Config{Host: "smtp.example"}.Addr())
}
