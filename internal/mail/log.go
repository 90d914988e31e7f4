package mail

import (
	"context"

	"go.uber.org/zap"
)

// LogMailer writes emails to the log instead of sending them
type LogMailer struct{}

func NewLog() *LogMailer {
	return &LogMailer{}
}

func (LogMailer) Send(_ context.Context, to, subject, html string) error {
	zap.L().Info("Email not sent, log provider in use",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("size", len(html)),
	)
	return nil
}

func (m LogMailer) SendTemplated(ctx context.Context, to, name string, data map[string]string) error {
	subject, html, err := render(name, data)
	if err != nil {
		return err
	}

	zap.L().Debug("Rendered email", zap.String("template", name), zap.Any("data", data))
	return m.Send(ctx, to, subject, html)
}
