package notify

import (
	"context"

	"github.com/dmitrijs2005/mousetrap/internal/logging"
)

// LogSender only logs messages. It stands in when no mail sender is
// configured.
type LogSender struct {
	logger logging.Logger
}

func NewLogSender(logger logging.Logger) *LogSender {
	return &LogSender{logger: logger.With("module", "notify")}
}

func (s *LogSender) Send(ctx context.Context, to, subject, body string) error {
	s.logger.Warn(ctx, "notification (not mailed)", "to", to, "subject", subject, "body", body)
	return nil
}
