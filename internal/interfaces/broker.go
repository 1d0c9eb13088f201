package interfaces

import (
	"context"
	"time"

	"kis-trading-bot/internal/types"
)

// Broker defines the brokerage capability consumed by the trading engine.
// Implementations: the real KIS REST client and the paper-trading simulator.
type Broker interface {
	// CurrentPrice returns the latest quote for a symbol.
	CurrentPrice(ctx context.Context, symbol string) (float64, error)

	// Balance returns an authoritative read of cash and open positions.
	Balance(ctx context.Context) (types.BalanceSnapshot, error)

	// PlaceOrder submits an order and returns the broker's response.
	PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error)

	// OrderOutcome polls the state of a previously submitted order.
	OrderOutcome(ctx context.Context, orderID string) (types.OrderOutcome, error)

	// CancelOrder requests cancellation of an open order.
	CancelOrder(ctx context.Context, orderID string) error

	// DailyCandles returns daily bars for [start, end], ascending by time.
	DailyCandles(ctx context.Context, symbol string, start, end time.Time) ([]types.Candle, error)

	// IsMarketOpen reports whether the exchange is currently trading.
	IsMarketOpen() bool
}
