package notify

import (
	"context"

	"kis-trading-bot/internal/interfaces"
)

// Noop swallows every notification. Used when Telegram is not configured.
type Noop struct{}

var _ interfaces.Notifier = (*Noop)(nil)

func NewNoop() *Noop {
	return &Noop{}
}

func (*Noop) Send(ctx context.Context, text string) error {
	return nil
}
