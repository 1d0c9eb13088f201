// Package indicator builds the per-bar indicator snapshot the strategy
// evaluates. Each indicator is gated independently on having enough history;
// a short series yields NaN for the indicators that do not qualify.
package indicator

import (
	"math"

	"kis-trading-bot/internal/ta"
	"kis-trading-bot/internal/types"
)

type Config struct {
	ShortMAWindow    int
	LongMAWindow     int
	RSIWindow        int
	BollingerWindow  int
	BollingerStdDev  float64
	MACDFastWindow   int
	MACDSlowWindow   int
	MACDSignalWindow int
}

// Build computes the snapshot for the last candle of an ascending series.
func Build(candles []types.Candle, cfg Config) types.Snapshot {
	snap := types.Snapshot{
		Close:          math.NaN(),
		ShortMA:        math.NaN(),
		LongMA:         math.NaN(),
		RSI:            math.NaN(),
		MACD:           math.NaN(),
		MACDSignal:     math.NaN(),
		BollingerUpper: math.NaN(),
		EWO:            math.NaN(),
	}
	if len(candles) == 0 {
		return snap
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	snap.Close = closes[len(closes)-1]
	snap.ShortMA = ta.SMA(closes, cfg.ShortMAWindow)
	snap.LongMA = ta.SMA(closes, cfg.LongMAWindow)
	snap.RSI = ta.RSI(closes, cfg.RSIWindow)
	_, snap.BollingerUpper, _ = ta.Bollinger(closes, cfg.BollingerWindow, cfg.BollingerStdDev)
	snap.MACD, snap.MACDSignal = ta.MACD(closes, cfg.MACDFastWindow, cfg.MACDSlowWindow, cfg.MACDSignalWindow)
	snap.EWO = ta.EWO(closes, cfg.ShortMAWindow, cfg.LongMAWindow)
	return snap
}
