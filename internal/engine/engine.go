// Package engine runs the trading loop: one cycle re-syncs the ledger from
// the broker, evaluates sell signals over holdings, then buy signals over
// candidates. Cycles are strictly sequential; no two orders are ever in
// flight at once, so the ledger and limits need no locking.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kis-trading-bot/internal/indicator"
	"kis-trading-bot/internal/interfaces"
	"kis-trading-bot/internal/logger"
	"kis-trading-bot/internal/order"
	"kis-trading-bot/internal/portfolio"
	"kis-trading-bot/internal/strategy"
	"kis-trading-bot/internal/store"
	"kis-trading-bot/internal/tradelog"
	"kis-trading-bot/internal/types"
)

// ErrMarketClosed suspends the loop; the caller sleeps and retries rather
// than terminating.
var ErrMarketClosed = errors.New("market is closed")

type Engine struct {
	cfg      *store.Config
	brk      interfaces.Broker
	notifier interfaces.Notifier
	ledger   *portfolio.Portfolio
	orders   *order.Manager
	indCfg   indicator.Config
	params   strategy.Params
	now      func() time.Time
}

func New(cfg *store.Config, brk interfaces.Broker, ntf interfaces.Notifier, ledger *portfolio.Portfolio, orders *order.Manager) *Engine {
	return &Engine{
		cfg:      cfg,
		brk:      brk,
		notifier: ntf,
		ledger:   ledger,
		orders:   orders,
		indCfg: indicator.Config{
			ShortMAWindow:    cfg.Indicators.ShortMAWindow,
			LongMAWindow:     cfg.Indicators.LongMAWindow,
			RSIWindow:        cfg.Indicators.RSIWindow,
			BollingerWindow:  cfg.Indicators.BollingerWindow,
			BollingerStdDev:  cfg.Indicators.BollingerStdDev,
			MACDFastWindow:   cfg.Indicators.MACDFastWindow,
			MACDSlowWindow:   cfg.Indicators.MACDSlowWindow,
			MACDSignalWindow: cfg.Indicators.MACDSignalWindow,
		},
		params: strategy.Params{
			LowOffset:        cfg.Strategy.LowOffset,
			HighOffset:       cfg.Strategy.HighOffset,
			RSIBuyThreshold:  cfg.Strategy.RSIBuyThreshold,
			EWOBuyThreshold:  cfg.Strategy.EWOBuyThreshold,
			EWOSellThreshold: cfg.Strategy.EWOSellThreshold,
			StopLossPercent:  cfg.Strategy.StopLossPercent,
		},
		now: time.Now,
	}
}

// RunCycle executes one full pass. An error from one symbol never aborts the
// remaining symbols; only a failed ledger sync or a closed market ends the
// cycle early.
func (e *Engine) RunCycle(ctx context.Context) (*types.CycleResult, error) {
	if !e.cfg.IgnoreMarketHours && !e.brk.IsMarketOpen() {
		return nil, ErrMarketClosed
	}

	bal, err := e.brk.Balance(ctx)
	if err != nil {
		return nil, fmt.Errorf("balance sync: %w", err)
	}
	e.ledger.Sync(bal)
	logger.Debug(ctx, "Ledger synced", "cash", e.ledger.Cash(), "holdings", len(e.ledger.Symbols()))

	res := &types.CycleResult{Candidates: len(e.cfg.Candidates)}

	held := e.ledger.Symbols()
	res.Holdings = len(held)
	for _, symbol := range held {
		if err := e.evaluateSell(ctx, symbol, res); err != nil {
			logger.ErrorWithErr(ctx, "Sell evaluation failed", err, "symbol", symbol)
			res.Errors++
		}
	}

	for _, symbol := range e.cfg.Candidates {
		if _, ok := e.ledger.Holding(symbol); ok {
			logger.Debug(ctx, "Candidate already held, skipping buy check", "symbol", symbol)
			continue
		}
		if err := e.evaluateBuy(ctx, symbol, res); err != nil {
			logger.ErrorWithErr(ctx, "Buy evaluation failed", err, "symbol", symbol)
			res.Errors++
		}
	}

	return res, nil
}

func (e *Engine) evaluateSell(ctx context.Context, symbol string, res *types.CycleResult) error {
	holding, ok := e.ledger.Holding(symbol)
	if !ok || holding.Quantity == 0 {
		return nil
	}

	snap, err := e.buildSnapshot(ctx, symbol)
	if err != nil {
		return err
	}

	dec := strategy.CheckSell(snap, holding.AvgPrice, e.params)
	e.journalDecision(symbol, "SELL", dec, snap)
	if !dec.Act {
		logger.Debug(ctx, "No sell signal", "symbol", symbol, "reason", dec.Reason)
		return nil
	}

	logger.Decision(ctx, symbol, "SELL", dec.Reason, "avg_price", holding.AvgPrice, "close", snap.Close)
	e.notify(ctx, fmt.Sprintf("[SELL signal] %s\n- reason: %s", symbol, dec.Reason))

	outcome, err := e.orders.ExecuteSell(ctx, symbol, dec.Reason)
	if err != nil {
		return err
	}
	if outcome.Filled {
		res.Sells++
	}
	return nil
}

func (e *Engine) evaluateBuy(ctx context.Context, symbol string, res *types.CycleResult) error {
	snap, err := e.buildSnapshot(ctx, symbol)
	if err != nil {
		return err
	}

	dec := strategy.CheckBuy(snap, e.params)
	e.journalDecision(symbol, "BUY", dec, snap)
	if !dec.Act {
		logger.Debug(ctx, "No buy signal", "symbol", symbol, "reason", dec.Reason)
		return nil
	}

	logger.Decision(ctx, symbol, "BUY", dec.Reason, "close", snap.Close)
	e.notify(ctx, fmt.Sprintf("[BUY signal] %s\n- reason: %s", symbol, dec.Reason))

	outcome, err := e.orders.ExecuteBuy(ctx, symbol, dec.Reason)
	if err != nil {
		return err
	}
	if outcome.Filled {
		res.Buys++
	}
	return nil
}

func (e *Engine) buildSnapshot(ctx context.Context, symbol string) (types.Snapshot, error) {
	end := e.now()
	start := end.AddDate(0, 0, -e.cfg.LookbackDays)
	candles, err := e.brk.DailyCandles(ctx, symbol, start, end)
	if err != nil {
		return types.Snapshot{}, fmt.Errorf("daily candles for %s: %w", symbol, err)
	}
	if len(candles) == 0 {
		return types.Snapshot{}, fmt.Errorf("no price history for %s", symbol)
	}
	return indicator.Build(candles, e.indCfg), nil
}

func (e *Engine) journalDecision(symbol, action string, dec types.TradeDecision, snap types.Snapshot) {
	if !dec.Act {
		return
	}
	_ = tradelog.AppendDecision(tradelog.DecisionEntry{
		Symbol: symbol,
		Action: action,
		Reason: dec.Reason,
		Price:  snap.Close,
		Indicators: map[string]float64{
			"SHORT_MA": snap.ShortMA,
			"LONG_MA":  snap.LongMA,
			"RSI":      snap.RSI,
			"EWO":      snap.EWO,
			"MACD":     snap.MACD,
			"BB_UP":    snap.BollingerUpper,
		},
	})
}

func (e *Engine) notify(ctx context.Context, text string) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Send(ctx, text); err != nil {
		logger.Warn(ctx, "Notification delivery failed", "error", err)
	}
}
