package notification

import (
	"context"
	"log/slog"
)

const (
	// KindChangePasswordOTP carries the code for an authenticated password change.
	KindChangePasswordOTP = "change_password_otp"
	// KindResetPasswordOTP carries the code for a forgotten-password reset.
	KindResetPasswordOTP = "reset_password_otp"
)

// Message describes a notification payload.
type Message struct {
	Kind        string
	Destination string
	Subject     string
	Body        string
}

// Notifier delivers notifications to downstream systems. A nil error means
// the message was handed off; callers treat any error as a failed delivery.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier is a development implementation that writes notifications to the logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification",
		slog.String("kind", message.Kind),
		slog.String("destination", message.Destination),
		slog.String("subject", message.Subject),
		slog.String("body", message.Body),
	)
	return nil
}
