package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"kis-trading-bot/internal/broker/brokerobs"
	"kis-trading-bot/internal/broker/kis"
	"kis-trading-bot/internal/broker/paper"
	"kis-trading-bot/internal/cooldown"
	"kis-trading-bot/internal/engine"
	"kis-trading-bot/internal/engine/engineobs"
	"kis-trading-bot/internal/interfaces"
	"kis-trading-bot/internal/logger"
	"kis-trading-bot/internal/notify"
	"kis-trading-bot/internal/order"
	"kis-trading-bot/internal/portfolio"
	"kis-trading-bot/internal/store"
	"kis-trading-bot/internal/trace"
	"kis-trading-bot/internal/tradelog"

	"github.com/joho/godotenv"
)

// initializeSystem initializes environment, logger, and tracer
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}

	return nil
}

// loadConfig loads and returns the configuration
func loadConfig(ctx context.Context) (*store.Config, error) {
	cfg, err := store.LoadConfig("config.yaml")
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err)
		return nil, err
	}
	return cfg, nil
}

// compressOldLogs compresses trade journal files past the retention window
func compressOldLogs(ctx context.Context, cfg *store.Config) {
	if err := tradelog.CompressOlder(cfg.Control.RetentionDays); err != nil {
		logger.Warn(ctx, "Failed to compress old logs", "error", err)
	}
}

// initializeLimits loads the durable trading limits. A corrupt state file is
// fatal: the bot must not trade with forgotten cooldowns.
func initializeLimits(ctx context.Context, cfg *store.Config) (*cooldown.Controller, error) {
	limits, err := cooldown.Load(cfg.Control.StateFile, cooldown.Params{
		BuyCooldown:    time.Duration(cfg.Control.BuyCooldownMinutes) * time.Minute,
		SellCooldown:   time.Duration(cfg.Control.SellCooldownMinutes) * time.Minute,
		MaxDailyTrades: cfg.Control.MaxDailyTrades,
		MinHoldingDays: cfg.Control.MinHoldingDays,
	}, tradelog.KST)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load trade history", err, "path", cfg.Control.StateFile)
		return nil, err
	}
	if err := limits.Cleanup(cfg.Control.RetentionDays, time.Now()); err != nil {
		logger.Warn(ctx, "Failed to prune trade history", "error", err)
	}
	return limits, nil
}

// initializeBroker initializes and returns the broker instance with observability
func initializeBroker(ctx context.Context, cfg *store.Config) interfaces.Broker {
	var brk interfaces.Broker
	if cfg.Mode == "DRY_RUN" {
		logger.Warn(ctx, "Running in DRY_RUN mode - orders will be simulated")
		brk = paper.New(paper.Params{FillOrders: true})
	} else {
		brk = kis.New(kis.Params{
			AppKey:    os.Getenv("KIS_APP_KEY"),
			AppSecret: os.Getenv("KIS_APP_SECRET"),
			AccountNo: os.Getenv("KIS_ACCOUNT_NO"),
			Mock:      os.Getenv("KIS_MOCK") == "true",
		})
	}

	return brokerobs.Wrap(brk)
}

// initializeNotifier selects the notification transport
func initializeNotifier(ctx context.Context, cfg *store.Config) interfaces.Notifier {
	if !cfg.Telegram.Enabled {
		return notify.NewNoop()
	}
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	chatID := os.Getenv("TELEGRAM_CHAT_ID")
	if token == "" || chatID == "" {
		logger.Warn(ctx, "Telegram enabled but TELEGRAM_BOT_TOKEN/TELEGRAM_CHAT_ID not set - notifications disabled")
		return notify.NewNoop()
	}
	return notify.NewTelegram(token, chatID)
}

// initializeEngine wires the ledger, limits, and order manager into the
// trading engine with observability
func initializeEngine(cfg *store.Config, brk interfaces.Broker, ntf interfaces.Notifier, limits *cooldown.Controller) interfaces.Engine {
	ledger := portfolio.New()
	orders := order.NewManager(brk, ntf, ledger, limits, order.Sizing{
		AllocationPerSymbol: cfg.Order.AllocationPerSymbol,
		DCADivisions:        cfg.Order.DCADivisions,
	}, time.Duration(cfg.Order.SettleWaitSeconds)*time.Second)

	eng := engine.New(cfg, brk, ntf, ledger, orders)

	return engineobs.Wrap(eng)
}
