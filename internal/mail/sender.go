package mail

import (
	"context"

	"go.uber.org/zap"
)

// Sender delivers a rendered email. Implementations can be swapped (SendGrid, SES, stub)
// without changing callers.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Message represents an email to be sent.
type Message struct {
	To      string
	ToName  string
	Subject string
	Body    string // plain text
	HTML    string // optional
}

// StubSender logs mail instead of sending it.
type StubSender struct {
	logger *zap.Logger
}

// NewStubSender creates a stub email sender that logs but doesn't send.
func NewStubSender(logger *zap.Logger) *StubSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StubSender{logger: logger}
}

// Send logs the email but doesn't actually send it.
func (s *StubSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("stub mail sender: would send email",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject))
	return nil
}

var _ Sender = (*StubSender)(nil)
