package types

import "math"

// Candle is one daily price bar. Ts is a unix timestamp in seconds;
// sequences are ascending by Ts with no duplicates.
type Candle struct {
	Ts                          int64
	Open, High, Low, Close, Vol float64
}

// Snapshot holds the indicator values for the most recent bar. A field is
// NaN when the series was too short for that indicator; consumers must check
// with math.IsNaN before using a value.
type Snapshot struct {
	Close          float64
	ShortMA        float64
	LongMA         float64
	RSI            float64
	MACD           float64
	MACDSignal     float64
	BollingerUpper float64
	EWO            float64
}

// HasBuyInputs reports whether every field the buy evaluation reads is set.
func (s Snapshot) HasBuyInputs() bool {
	for _, v := range []float64{s.Close, s.ShortMA, s.LongMA, s.RSI, s.EWO} {
		if math.IsNaN(v) {
			return false
		}
	}
	return true
}

// HasSellInputs reports whether every field the sell evaluation reads is set.
func (s Snapshot) HasSellInputs() bool {
	return !math.IsNaN(s.Close) && !math.IsNaN(s.ShortMA)
}

// TradeDecision is the outcome of one signal evaluation. It is consumed
// immediately and never persisted.
type TradeDecision struct {
	Act    bool
	Reason string
}

type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// OrderReq is a broker order request. LimitPrice 0 means a market order.
type OrderReq struct {
	Symbol     string
	Side       Side
	Qty        int
	LimitPrice float64
}

type OrderResp struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
}

// OrderStatus is the confirmed state of a submitted order.
type OrderStatus string

const (
	OrderFilled   OrderStatus = "FILLED"
	OrderUnfilled OrderStatus = "UNFILLED"
	OrderUnknown  OrderStatus = "UNKNOWN"
)

// OrderOutcome is the result of polling a submitted order. FilledPrice is 0
// when the broker did not report an execution price.
type OrderOutcome struct {
	OrderID     string
	Status      OrderStatus
	FilledPrice float64
}

// BrokerPosition is one holding as reported by the brokerage account.
type BrokerPosition struct {
	Symbol   string
	Name     string
	Quantity int
	AvgPrice float64
}

// BalanceSnapshot is an authoritative account read: deposit cash plus all
// open positions.
type BalanceSnapshot struct {
	Cash      float64
	Positions []BrokerPosition
}

// CycleResult summarizes one pass of the trading loop.
type CycleResult struct {
	Holdings   int `json:"holdings"`
	Candidates int `json:"candidates"`
	Buys       int `json:"buys"`
	Sells      int `json:"sells"`
	Errors     int `json:"errors"`
}
