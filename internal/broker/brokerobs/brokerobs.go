// Package brokerobs wraps a Broker with logging and tracing middleware.
package brokerobs

import (
	"context"
	"time"

	"kis-trading-bot/internal/interfaces"
	"kis-trading-bot/internal/logger"
	"kis-trading-bot/internal/trace"
	"kis-trading-bot/internal/types"
)

type observableBroker struct {
	broker interfaces.Broker
}

var _ interfaces.Broker = (*observableBroker)(nil)

func Wrap(broker interfaces.Broker) interfaces.Broker {
	return &observableBroker{broker: broker}
}

func (ob *observableBroker) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	ctx, span := trace.StartSpan(ctx, "broker.CurrentPrice")
	defer span.End()

	price, err := ob.broker.CurrentPrice(ctx, symbol)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch price", err, "symbol", symbol)
		return 0, err
	}
	logger.DebugSkip(ctx, 1, "Price fetched", "symbol", symbol, "price", price)
	return price, nil
}

func (ob *observableBroker) Balance(ctx context.Context) (types.BalanceSnapshot, error) {
	ctx, span := trace.StartSpan(ctx, "broker.Balance")
	defer span.End()

	bal, err := ob.broker.Balance(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch balance", err)
		return types.BalanceSnapshot{}, err
	}
	logger.DebugSkip(ctx, 1, "Balance fetched", "cash", bal.Cash, "positions", len(bal.Positions))
	return bal, nil
}

func (ob *observableBroker) PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	ctx, span := trace.StartSpan(ctx, "broker.PlaceOrder")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Placing order",
		"symbol", req.Symbol,
		"side", req.Side,
		"qty", req.Qty,
		"limit_price", req.LimitPrice,
	)

	resp, err := ob.broker.PlaceOrder(ctx, req)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to place order", err,
			"symbol", req.Symbol,
			"side", req.Side,
			"qty", req.Qty,
		)
		return types.OrderResp{}, err
	}

	logger.InfoSkip(ctx, 1, "Order placed",
		"symbol", req.Symbol,
		"order_id", resp.OrderID,
		"status", resp.Status,
	)
	return resp, nil
}

func (ob *observableBroker) OrderOutcome(ctx context.Context, orderID string) (types.OrderOutcome, error) {
	ctx, span := trace.StartSpan(ctx, "broker.OrderOutcome")
	defer span.End()

	outcome, err := ob.broker.OrderOutcome(ctx, orderID)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to poll order", err, "order_id", orderID)
		return outcome, err
	}
	logger.InfoSkip(ctx, 1, "Order polled", "order_id", orderID, "status", outcome.Status)
	return outcome, nil
}

func (ob *observableBroker) CancelOrder(ctx context.Context, orderID string) error {
	ctx, span := trace.StartSpan(ctx, "broker.CancelOrder")
	defer span.End()

	if err := ob.broker.CancelOrder(ctx, orderID); err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to cancel order", err, "order_id", orderID)
		return err
	}
	logger.InfoSkip(ctx, 1, "Order cancelled", "order_id", orderID)
	return nil
}

func (ob *observableBroker) DailyCandles(ctx context.Context, symbol string, start, end time.Time) ([]types.Candle, error) {
	ctx, span := trace.StartSpan(ctx, "broker.DailyCandles")
	defer span.End()

	candles, err := ob.broker.DailyCandles(ctx, symbol, start, end)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch candles", err, "symbol", symbol)
		return nil, err
	}
	logger.DebugSkip(ctx, 1, "Candles fetched", "symbol", symbol, "count", len(candles))
	return candles, nil
}

func (ob *observableBroker) IsMarketOpen() bool {
	return ob.broker.IsMarketOpen()
}
