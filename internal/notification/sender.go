package notification

import (
	"context"
	"log/slog"
)

type Email struct {
	From    string
	To      []string
	CC      []string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers an email. Delivery itself is handled outside this service.
type Sender interface {
	Send(ctx context.Context, email Email) error
}

// LogSender writes the email to the log instead of delivering it.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, email Email) error {
	s.logger.Info("email notification",
		"from", email.From,
		"to", email.To,
		"cc", email.CC,
		"subject", email.Subject,
		"text_bytes", len(email.Text),
		"html_bytes", len(email.HTML))
	return nil
}
