package mail_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JaimeStill/casse/pkg/mail"
)

func TestFinalizeDefaults(t *testing.T) {
	cfg := mail.Config{}
	require.NoError(t, cfg.Finalize(nil))

	assert.Equal(t, 587, cfg.Port)
	assert.Equal(t, "no-reply@casse.local", cfg.From)
	assert.Equal(t, mail.TLSOpportunistic, cfg.TLS)
}

func TestFinalizeEnv(t *testing.T) {
	t.Setenv("TEST_MAIL_HOST", "smtp.example.com")
	t.Setenv("TEST_MAIL_PORT", "2525")

	cfg := mail.Config{}
	require.NoError(t, cfg.Finalize(&mail.Env{Host: "TEST_MAIL_HOST", Port: "TEST_MAIL_PORT"}))

	assert.Equal(t, "smtp.example.com", cfg.Host)
	assert.Equal(t, 2525, cfg.Port)
}

func TestFinalizeValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     mail.Config
		wantErr string
	}{
		{"bad tls", mail.Config{TLS: "sometimes"}, "invalid tls policy"},
		{"bad port", mail.Config{Port: 70000}, "invalid port"},
		{"username without password", mail.Config{Username: "u"}, "password required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Finalize(nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewWithoutHostLogs(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sender := mail.New(&mail.Config{}, zap.New(core))

	err := sender.Send(context.Background(), mail.Message{To: []string{"a@x.com"}, Subject: "hi"})
	require.NoError(t, err)

	entries := logs.FilterMessage("mail not delivered; no smtp host").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "hi", entries[0].ContextMap()["subject"])
}

func TestSendRequiresRecipients(t *testing.T) {
	sender := mail.NewLogSender(zaptest.NewLogger(t))
	err := sender.Send(context.Background(), mail.Message{Subject: "hi"})
	assert.ErrorIs(t, err, mail.ErrNoRecipients)

	smtp := mail.New(&mail.Config{Host: "127.0.0.1", Port: 2525, TLS: mail.TLSNone}, zaptest.NewLogger(t))
	err = smtp.Send(context.Background(), mail.Message{Subject: "hi"})
	assert.ErrorIs(t, err, mail.ErrNoRecipients)
}

func TestRecorder(t *testing.T) {
	rec := &mail.Recorder{Err: errors.New("smtp down")}

	err := rec.Send(context.Background(), mail.Message{To: []string{"a@x.com"}})
	assert.EqualError(t, err, "smtp down")
	assert.Len(t, rec.Messages(), 1)
}
