// Package paper simulates a brokerage account for DRY_RUN mode: synthetic
// quotes and candles, immediate fills against an in-memory account, no
// network. It implements the same Broker capability as the KIS client, so
// the rest of the bot cannot tell the difference.
package paper

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"kis-trading-bot/internal/interfaces"
	"kis-trading-bot/internal/types"
)

type Params struct {
	InitialCash float64
	// FillOrders controls whether submitted orders fill at the poll. When
	// false every order stays open and is later cancelled, which exercises
	// the unfilled path end to end.
	FillOrders bool
	Seed       int64
}

type pendingOrder struct {
	req   types.OrderReq
	price float64
}

type Broker struct {
	p   Params
	rng *rand.Rand

	mu        sync.Mutex
	cash      float64
	positions map[string]types.BrokerPosition
	pending   map[string]pendingOrder
	lastPrice map[string]float64
}

var _ interfaces.Broker = (*Broker)(nil)

func New(p Params) *Broker {
	if p.InitialCash == 0 {
		p.InitialCash = 10_000_000
	}
	seed := p.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Broker{
		p:         p,
		rng:       rand.New(rand.NewSource(seed)),
		cash:      p.InitialCash,
		positions: map[string]types.BrokerPosition{},
		pending:   map[string]pendingOrder{},
		lastPrice: map[string]float64{},
	}
}

// basePrice derives a stable starting price per symbol so repeated runs with
// the same seed see the same series.
func basePrice(symbol string) float64 {
	h := 0
	for _, r := range symbol {
		h = h*31 + int(r)
	}
	if h < 0 {
		h = -h
	}
	return 10_000 + float64(h%90_000)
}

func (b *Broker) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.quoteLocked(symbol), nil
}

func (b *Broker) quoteLocked(symbol string) float64 {
	last, ok := b.lastPrice[symbol]
	if !ok {
		last = basePrice(symbol)
	}
	// Small random walk around the previous quote.
	last = last * (1 + (b.rng.Float64()-0.5)*0.01)
	b.lastPrice[symbol] = last
	return last
}

func (b *Broker) Balance(ctx context.Context) (types.BalanceSnapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	bal := types.BalanceSnapshot{Cash: b.cash}
	for _, pos := range b.positions {
		bal.Positions = append(bal.Positions, pos)
	}
	return bal, nil
}

func (b *Broker) PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	if req.Qty <= 0 {
		return types.OrderResp{}, fmt.Errorf("order quantity must be positive, got %d", req.Qty)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	price := req.LimitPrice
	if price == 0 {
		price = b.quoteLocked(req.Symbol)
	}
	id := uuid.NewString()
	b.pending[id] = pendingOrder{req: req, price: price}
	return types.OrderResp{OrderID: id, Status: "SUBMITTED"}, nil
}

// OrderOutcome settles the pending order: in fill mode it executes against
// the simulated account and reports FILLED with the execution price.
func (b *Broker) OrderOutcome(ctx context.Context, orderID string) (types.OrderOutcome, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	po, ok := b.pending[orderID]
	if !ok {
		return types.OrderOutcome{OrderID: orderID, Status: types.OrderUnknown},
			fmt.Errorf("unknown order id %s", orderID)
	}
	if !b.p.FillOrders {
		return types.OrderOutcome{OrderID: orderID, Status: types.OrderUnfilled}, nil
	}

	if err := b.executeLocked(po); err != nil {
		return types.OrderOutcome{OrderID: orderID, Status: types.OrderUnfilled}, nil
	}
	delete(b.pending, orderID)
	return types.OrderOutcome{OrderID: orderID, Status: types.OrderFilled, FilledPrice: po.price}, nil
}

func (b *Broker) executeLocked(po pendingOrder) error {
	sym := po.req.Symbol
	cost := float64(po.req.Qty) * po.price
	switch po.req.Side {
	case types.Buy:
		if cost > b.cash {
			return fmt.Errorf("insufficient simulated cash")
		}
		pos := b.positions[sym]
		total := pos.AvgPrice*float64(pos.Quantity) + cost
		pos.Symbol = sym
		pos.Quantity += po.req.Qty
		pos.AvgPrice = total / float64(pos.Quantity)
		b.positions[sym] = pos
		b.cash -= cost
	case types.Sell:
		pos, ok := b.positions[sym]
		if !ok || pos.Quantity < po.req.Qty {
			return fmt.Errorf("insufficient simulated position")
		}
		pos.Quantity -= po.req.Qty
		if pos.Quantity == 0 {
			delete(b.positions, sym)
		} else {
			b.positions[sym] = pos
		}
		b.cash += cost
	}
	return nil
}

func (b *Broker) CancelOrder(ctx context.Context, orderID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pending, orderID)
	return nil
}

// DailyCandles synthesizes a daily random-walk series ending near the
// symbol's current quote.
func (b *Broker) DailyCandles(ctx context.Context, symbol string, start, end time.Time) ([]types.Candle, error) {
	days := int(end.Sub(start).Hours()/24) + 1
	if days <= 0 {
		return nil, fmt.Errorf("empty candle range")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	price := basePrice(symbol)
	candles := make([]types.Candle, 0, days)
	day := start
	for i := 0; i < days; i++ {
		if wd := day.Weekday(); wd != time.Saturday && wd != time.Sunday {
			price = price * (1 + (b.rng.Float64()-0.5)*0.04)
			hi := price * (1 + b.rng.Float64()*0.02)
			lo := price * (1 - b.rng.Float64()*0.02)
			candles = append(candles, types.Candle{
				Ts:    day.Unix(),
				Open:  (hi + lo) / 2,
				High:  hi,
				Low:   lo,
				Close: price,
				Vol:   b.rng.Float64() * 1_000_000,
			})
		}
		day = day.AddDate(0, 0, 1)
	}
	b.lastPrice[symbol] = price
	return candles, nil
}

func (b *Broker) IsMarketOpen() bool {
	return true
}
