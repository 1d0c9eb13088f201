package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kis-trading-bot/internal/engine"
	"kis-trading-bot/internal/eod"
	"kis-trading-bot/internal/interfaces"
	"kis-trading-bot/internal/logger"
	"kis-trading-bot/internal/trace"
)

// marketClosedSleep is how long the loop pauses after the broker reports a
// closed market before probing again.
const marketClosedSleep = 30 * time.Minute

func main() {
	if err := initializeSystem(); err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer func() { _ = trace.Shutdown(context.Background()) }()

	cfg, err := loadConfig(ctx)
	if err != nil {
		os.Exit(1)
	}

	compressOldLogs(ctx, cfg)

	limits, err := initializeLimits(ctx, cfg)
	if err != nil {
		os.Exit(1)
	}

	brk := initializeBroker(ctx, cfg)
	ntf := initializeNotifier(ctx, cfg)
	eng := initializeEngine(cfg, brk, ntf, limits)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	pollInterval := time.Duration(cfg.PollSeconds) * time.Second
	tick := time.NewTicker(pollInterval)
	defer tick.Stop()
	eodTick := time.NewTicker(60 * time.Second)
	defer eodTick.Stop()

	logger.Info(ctx, "Bot started",
		"mode", cfg.Mode,
		"candidates", len(cfg.Candidates),
		"poll_seconds", cfg.PollSeconds,
	)

	runOnce(ctx, eng, tick, pollInterval)

	for {
		select {
		case <-tick.C:
			runOnce(ctx, eng, tick, pollInterval)
		case <-eodTick.C:
			if ok, _ := eod.ShouldRunNow(); ok {
				if p, err := eod.SummarizeToday(); err == nil && p != "" {
					logger.Info(ctx, "EOD CSV written", "path", p)
				}
			}
		case <-sigc:
			logger.Info(ctx, "Shutting down")
			if p, err := eod.SummarizeToday(); err == nil && p != "" {
				logger.Info(ctx, "EOD CSV written", "path", p)
			}
			return
		case <-ctx.Done():
			return
		}
	}
}

// runOnce executes one trading cycle. A closed market stretches the ticker to
// the probe interval; the next open-market cycle restores the normal cadence.
func runOnce(ctx context.Context, eng interfaces.Engine, tick *time.Ticker, pollInterval time.Duration) {
	_, err := eng.RunCycle(ctx)
	switch {
	case errors.Is(err, engine.ErrMarketClosed):
		logger.Info(ctx, "Market closed, pausing", "retry_in", marketClosedSleep)
		tick.Reset(marketClosedSleep)
	case err != nil:
		logger.ErrorWithErr(ctx, "Trading cycle failed", err)
	default:
		tick.Reset(pollInterval)
	}
}
