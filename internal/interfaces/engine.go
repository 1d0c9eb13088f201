package interfaces

import (
	"context"

	"kis-trading-bot/internal/types"
)

// Engine runs one full trading cycle: ledger sync, sell evaluation over
// holdings, buy evaluation over candidates.
type Engine interface {
	RunCycle(ctx context.Context) (*types.CycleResult, error)
}
