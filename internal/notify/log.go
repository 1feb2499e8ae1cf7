package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// LogNotifier writes each message to the structured log instead of delivering it.
type LogNotifier struct {
	Logger zerolog.Logger
}

// Send implements Notifier.
func (n LogNotifier) Send(_ context.Context, to, message string) error {
	n.Logger.Info().Str("to", to).Str("message", message).Msg("notification")
	return nil
}
