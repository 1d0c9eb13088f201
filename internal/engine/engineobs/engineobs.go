package engineobs

import (
	"context"
	"time"

	"kis-trading-bot/internal/interfaces"
	"kis-trading-bot/internal/logger"
	"kis-trading-bot/internal/trace"
	"kis-trading-bot/internal/types"
)

type observableEngine struct {
	engine interfaces.Engine
}

var _ interfaces.Engine = (*observableEngine)(nil)

// Wrap adds logging and tracing around an Engine.
func Wrap(eng interfaces.Engine) interfaces.Engine {
	return &observableEngine{engine: eng}
}

func (oe *observableEngine) RunCycle(ctx context.Context) (*types.CycleResult, error) {
	ctx, span := trace.StartSpan(ctx, "engine.RunCycle")
	defer span.End()

	start := time.Now()
	logger.InfoSkip(ctx, 1, "Starting trading cycle")

	result, err := oe.engine.RunCycle(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Trading cycle failed", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	logger.InfoSkip(ctx, 1, "Trading cycle completed",
		"holdings", result.Holdings,
		"candidates", result.Candidates,
		"buys", result.Buys,
		"sells", result.Sells,
		"errors", result.Errors,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}
