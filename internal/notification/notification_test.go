package notification

import (
	"context"
	"errors"
	"net/smtp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	addr string
	from string
	to   []string
	body string
}

func newTestSMTP(fail error) (*SMTPNotifier, *sentMail) {
	sent := &sentMail{}
	n := NewSMTPNotifier(SMTPConfig{Host: "smtp.example.com", Port: "587", Username: "shop@example.com", Password: "pw", From: `"HuongHan Store" <shop@example.com>`})
	n.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	n.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		sent.addr, sent.from, sent.to, sent.body = addr, from, to, string(msg)
		return fail
	}
	return n, sent
}

func TestSMTPNotifierComposesMessage(t *testing.T) {
	n, sent := newTestSMTP(nil)

	err := n.Send(context.Background(), Message{Kind: KindResetPasswordOTP, Destination: "a@example.com", Subject: "Your code", Body: "<p>123456</p>"})
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com:587", sent.addr)
	assert.Equal(t, "shop@example.com", sent.from)
	assert.Equal(t, []string{"a@example.com"}, sent.to)
	assert.Contains(t, sent.body, "Subject: Your code\r\n")
	assert.Contains(t, sent.body, "\r\n\r\n<p>123456</p>")
}

func TestSMTPNotifierReportsFailure(t *testing.T) {
	n, _ := newTestSMTP(errors.New("421 service not available"))

	err := n.Send(context.Background(), Message{Destination: "a@example.com", Subject: "s", Body: "b"})
	require.Error(t, err)
}

func TestSMTPNotifierRejectsHeaderInjection(t *testing.T) {
	n, sent := newTestSMTP(nil)

	err := n.Send(context.Background(), Message{Destination: "a@example.com\r\nBcc: x@example.com", Subject: "s"})
	require.Error(t, err)
	assert.Empty(t, sent.addr)
}

func TestLoggerNotifierNeverFails(t *testing.T) {
	var n *LoggerNotifier
	require.NoError(t, n.Send(context.Background(), Message{}))
}
