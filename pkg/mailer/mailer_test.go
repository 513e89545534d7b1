package mailer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"crm-system/pkg/config"
)

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	d.sent = append(d.sent, m...)
	return d.err
}

func TestNewMailer_WithoutHostLogsOnly(t *testing.T) {
	m := NewMailer(config.SMTPConfig{}, zap.NewNop())
	assert.False(t, m.Enabled())
	assert.NoError(t, m.Send(context.Background(), Message{To: "a@b.c"}))
}

func TestSMTPMailer_Send(t *testing.T) {
	d := &fakeDialer{}
	m := &SMTPMailer{dialer: d, from: "crm@example.com", logger: zap.NewNop()}

	require.NoError(t, m.Send(context.Background(), Message{To: "agent@example.com", Subject: "Callback", Body: "Call Dana"}))
	require.Len(t, d.sent, 1)
	assert.Equal(t, []string{"agent@example.com"}, d.sent[0].GetHeader("To"))
	assert.Equal(t, []string{"Callback"}, d.sent[0].GetHeader("Subject"))
}

func TestSMTPMailer_SendError(t *testing.T) {
	d := &fakeDialer{err: errors.New("connection refused")}
	m := &SMTPMailer{dialer: d, from: "crm@example.com", logger: zap.NewNop()}

	err := m.Send(context.Background(), Message{To: "agent@example.com"})
	assert.ErrorContains(t, err, "connection refused")
}
