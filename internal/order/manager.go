// Package order drives one order through its lifecycle: size, gate through
// the trading limits, submit, wait for settlement, poll once, then either
// commit the fill to the ledger or cancel. At most one ledger mutation and
// one limit record happen per confirmed trade; every other path leaves both
// untouched.
package order

import (
	"context"
	"fmt"
	"time"

	"kis-trading-bot/internal/cooldown"
	"kis-trading-bot/internal/interfaces"
	"kis-trading-bot/internal/logger"
	"kis-trading-bot/internal/portfolio"
	"kis-trading-bot/internal/tradelog"
	"kis-trading-bot/internal/types"
)

// Sizing is the buy-side allocation policy: a fixed budget per symbol split
// into DCADivisions equal tranches. Divisions of 1 is a single full
// allocation; the policy is configuration, not a code branch.
type Sizing struct {
	AllocationPerSymbol float64
	DCADivisions        int
}

func (s Sizing) perBuyBudget() float64 {
	return s.AllocationPerSymbol / float64(s.DCADivisions)
}

// Result reports how one order attempt ended. Filled is true only when the
// broker confirmed the fill and the ledger was updated.
type Result struct {
	Symbol  string
	Side    types.Side
	Qty     int
	Price   float64
	OrderID string
	Filled  bool
	Reason  string
}

type Manager struct {
	broker     interfaces.Broker
	notifier   interfaces.Notifier
	ledger     *portfolio.Portfolio
	limits     *cooldown.Controller
	sizing     Sizing
	settleWait time.Duration
	now        func() time.Time
}

func NewManager(brk interfaces.Broker, ntf interfaces.Notifier, ledger *portfolio.Portfolio, limits *cooldown.Controller, sizing Sizing, settleWait time.Duration) *Manager {
	return &Manager{
		broker:     brk,
		notifier:   ntf,
		ledger:     ledger,
		limits:     limits,
		sizing:     sizing,
		settleWait: settleWait,
		now:        time.Now,
	}
}

// ExecuteBuy runs a DCA tranche buy for symbol. signalReason is the strategy
// reason that produced the attempt; it is carried into notifications and the
// journal.
func (m *Manager) ExecuteBuy(ctx context.Context, symbol, signalReason string) (*Result, error) {
	if ok, why := m.limits.CanBuy(symbol, m.now()); !ok {
		logger.Policy(ctx, symbol, why)
		m.notify(ctx, fmt.Sprintf("[BUY blocked] %s\n- %s", symbol, why))
		return &Result{Symbol: symbol, Side: types.Buy, Reason: why}, nil
	}

	price, err := m.broker.CurrentPrice(ctx, symbol)
	if err != nil {
		m.notify(ctx, fmt.Sprintf("[BUY error] %s - price lookup failed: %v", symbol, err))
		return nil, fmt.Errorf("price lookup for %s: %w", symbol, err)
	}

	budget := m.sizing.perBuyBudget()
	qty := int(budget / price)
	if qty == 0 {
		logger.Debug(ctx, "Buy skipped, price exceeds tranche budget", "symbol", symbol, "price", price, "budget", budget)
		return &Result{Symbol: symbol, Side: types.Buy, Reason: "price exceeds tranche budget"}, nil
	}

	if m.ledger.Cash() < budget {
		why := fmt.Sprintf("insufficient funds (need %.0f, cash %.0f)", budget, m.ledger.Cash())
		logger.Policy(ctx, symbol, why)
		m.notify(ctx, fmt.Sprintf("[BUY blocked] %s\n- %s", symbol, why))
		return &Result{Symbol: symbol, Side: types.Buy, Reason: why}, nil
	}

	return m.resolve(ctx, types.OrderReq{Symbol: symbol, Side: types.Buy, Qty: qty}, price, signalReason)
}

// ExecuteSell liquidates the entire holding for symbol.
func (m *Manager) ExecuteSell(ctx context.Context, symbol, signalReason string) (*Result, error) {
	holding, ok := m.ledger.Holding(symbol)
	if !ok || holding.Quantity == 0 {
		return &Result{Symbol: symbol, Side: types.Sell, Reason: "no holding to sell"}, nil
	}

	if ok, why := m.limits.CanSell(symbol, m.now()); !ok {
		logger.Policy(ctx, symbol, why)
		m.notify(ctx, fmt.Sprintf("[SELL blocked] %s\n- %s", symbol, why))
		return &Result{Symbol: symbol, Side: types.Sell, Reason: why}, nil
	}

	price, err := m.broker.CurrentPrice(ctx, symbol)
	if err != nil {
		m.notify(ctx, fmt.Sprintf("[SELL error] %s - price lookup failed: %v", symbol, err))
		return nil, fmt.Errorf("price lookup for %s: %w", symbol, err)
	}

	return m.resolve(ctx, types.OrderReq{Symbol: symbol, Side: types.Sell, Qty: holding.Quantity}, price, signalReason)
}

// resolve submits the order and drives it to a confirmed end state. quote is
// the price observed at submission; it is the fill-price fallback when the
// broker does not report one.
func (m *Manager) resolve(ctx context.Context, req types.OrderReq, quote float64, signalReason string) (*Result, error) {
	resp, err := m.broker.PlaceOrder(ctx, req)
	if err != nil {
		m.notify(ctx, fmt.Sprintf("[%s failed] %s - submission error: %v", req.Side, req.Symbol, err))
		return nil, fmt.Errorf("submit %s %s: %w", req.Side, req.Symbol, err)
	}
	if resp.OrderID == "" {
		err := fmt.Errorf("broker returned no order id for %s %s", req.Side, req.Symbol)
		m.notify(ctx, fmt.Sprintf("[%s failed] %s - malformed broker response", req.Side, req.Symbol))
		return nil, err
	}

	// Coarse settlement wait, then a single status poll.
	if m.settleWait > 0 {
		time.Sleep(m.settleWait)
	}

	outcome, err := m.broker.OrderOutcome(ctx, resp.OrderID)
	if err != nil {
		outcome = types.OrderOutcome{OrderID: resp.OrderID, Status: types.OrderUnknown}
		logger.ErrorWithErr(ctx, "Order status poll failed", err, "symbol", req.Symbol, "order_id", resp.OrderID)
	}

	if outcome.Status != types.OrderFilled {
		if cancelErr := m.broker.CancelOrder(ctx, resp.OrderID); cancelErr != nil {
			logger.ErrorWithErr(ctx, "Order cancel failed", cancelErr, "symbol", req.Symbol, "order_id", resp.OrderID)
		}
		m.notify(ctx, fmt.Sprintf("[%s unfilled] %s - order was not filled and has been cancelled", req.Side, req.Symbol))
		return &Result{
			Symbol:  req.Symbol,
			Side:    req.Side,
			Qty:     req.Qty,
			OrderID: resp.OrderID,
			Reason:  "unfilled, cancelled",
		}, nil
	}

	fillPrice := outcome.FilledPrice
	if fillPrice <= 0 {
		fillPrice = quote
	}

	if err := m.ledger.ApplyFill(req.Symbol, req.Side, req.Qty, fillPrice); err != nil {
		// The broker reported a fill the mirror cannot absorb; the next
		// cycle's sync restores ground truth.
		m.notify(ctx, fmt.Sprintf("[%s error] %s - ledger update failed: %v", req.Side, req.Symbol, err))
		return nil, fmt.Errorf("apply fill %s %s: %w", req.Side, req.Symbol, err)
	}

	var recordErr error
	if req.Side == types.Buy {
		recordErr = m.limits.RecordBuy(req.Symbol, m.now())
	} else {
		recordErr = m.limits.RecordSell(req.Symbol, m.now())
	}
	if recordErr != nil {
		logger.ErrorWithErr(ctx, "Failed to persist trade record", recordErr, "symbol", req.Symbol)
	}

	logger.Trade(ctx, req.Symbol, string(req.Side), req.Qty, fillPrice, resp.OrderID)
	if err := tradelog.Append(tradelog.Entry{
		Symbol:  req.Symbol,
		Side:    string(req.Side),
		Qty:     req.Qty,
		Price:   fillPrice,
		OrderID: resp.OrderID,
		Reason:  signalReason,
	}); err != nil {
		logger.Warn(ctx, "Failed to append trade journal", "error", err)
	}
	m.notify(ctx, fmt.Sprintf("[%s filled] %s\n- qty: %d\n- price: %.0f\n- reason: %s", req.Side, req.Symbol, req.Qty, fillPrice, signalReason))

	return &Result{
		Symbol:  req.Symbol,
		Side:    req.Side,
		Qty:     req.Qty,
		Price:   fillPrice,
		OrderID: resp.OrderID,
		Filled:  true,
		Reason:  signalReason,
	}, nil
}

// notify is best-effort; a failed delivery is logged and forgotten.
func (m *Manager) notify(ctx context.Context, text string) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Send(ctx, text); err != nil {
		logger.Warn(ctx, "Notification delivery failed", "error", err)
	}
}
