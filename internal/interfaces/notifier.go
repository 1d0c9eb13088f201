package interfaces

import "context"

// Notifier delivers human-readable trade notifications. Delivery is
// best-effort: callers log failures and never escalate them.
type Notifier interface {
	Send(ctx context.Context, text string) error
}
