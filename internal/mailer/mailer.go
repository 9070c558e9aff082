// Package mailer is the outbound email transport, shared by the delivery
// worker and the scheduled reminder jobs.
package mailer

import (
	"context"

	"go.uber.org/zap"
)

// Mailer sends one email. Implementations must treat every call as
// independent; nothing here retries.
type Mailer interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// LogMailer writes emails to the log instead of sending them
// (development/testing).
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, to, subject, _, _ string) error {
	m.logger.Info("email logged (development mode)",
		zap.String("to", to),
		zap.String("subject", subject),
	)
	return nil
}
