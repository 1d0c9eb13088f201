// Package strategy evaluates buy and sell signals from an indicator
// snapshot. Evaluation is pure: no I/O, no state, identical inputs give
// identical decisions.
package strategy

import (
	"fmt"

	"kis-trading-bot/internal/types"
)

type Params struct {
	LowOffset        float64
	HighOffset       float64
	RSIBuyThreshold  float64
	EWOBuyThreshold  float64
	EWOSellThreshold float64
	StopLossPercent  float64 // negative, e.g. -0.35
}

const (
	ReasonInsufficientData = "insufficient indicator data"
	ReasonNoBuySignal      = "no buy signal"
	ReasonNoSellSignal     = "no sell signal"
	ReasonOverboughtEWO    = "overbought EWO & low RSI"
	ReasonOversoldEWO      = "oversold EWO & price dip"
)

// CheckBuy evaluates the two buy branches. It signals when either the price
// sits at or under the short MA while EWO is elevated and RSI depressed, or
// the price has dipped under the offset short MA while EWO is oversold.
func CheckBuy(s types.Snapshot, p Params) types.TradeDecision {
	if !s.HasBuyInputs() {
		return types.TradeDecision{Reason: ReasonInsufficientData}
	}

	if s.Close <= s.ShortMA && s.EWO >= p.EWOBuyThreshold && s.RSI <= p.RSIBuyThreshold {
		return types.TradeDecision{Act: true, Reason: ReasonOverboughtEWO}
	}

	if s.Close < s.ShortMA*p.LowOffset && s.EWO <= p.EWOSellThreshold {
		return types.TradeDecision{Act: true, Reason: ReasonOversoldEWO}
	}

	return types.TradeDecision{Reason: ReasonNoBuySignal}
}

// CheckSell evaluates the profit-target branch first, then stop-loss.
// avgPrice is the position's average purchase price and must be positive.
func CheckSell(s types.Snapshot, avgPrice float64, p Params) types.TradeDecision {
	if !s.HasSellInputs() || avgPrice <= 0 {
		return types.TradeDecision{Reason: ReasonInsufficientData}
	}

	target := avgPrice * p.HighOffset
	if s.Close >= target {
		return types.TradeDecision{Act: true, Reason: fmt.Sprintf("profit target reached (target: %.2f)", target)}
	}

	stop := avgPrice * (1 + p.StopLossPercent)
	if s.Close <= stop {
		return types.TradeDecision{Act: true, Reason: fmt.Sprintf("stop-loss triggered (stop: %.2f)", stop)}
	}

	return types.TradeDecision{Reason: ReasonNoSellSignal}
}
