package indicator

import (
	"math"
	"testing"

	"kis-trading-bot/internal/types"
)

func testConfig() Config {
	return Config{
		ShortMAWindow:    5,
		LongMAWindow:     20,
		RSIWindow:        14,
		BollingerWindow:  20,
		BollingerStdDev:  2,
		MACDFastWindow:   12,
		MACDSlowWindow:   26,
		MACDSignalWindow: 9,
	}
}

func candles(n int) []types.Candle {
	out := make([]types.Candle, n)
	for i := range out {
		price := 100 + float64(i%7) // a small repeating wobble
		out[i] = types.Candle{Ts: int64(i), Open: price, High: price + 1, Low: price - 1, Close: price}
	}
	return out
}

func TestBuildEmptySeries(t *testing.T) {
	snap := Build(nil, testConfig())
	if !math.IsNaN(snap.Close) || !math.IsNaN(snap.ShortMA) || !math.IsNaN(snap.RSI) {
		t.Error("Expected every field NaN for empty series")
	}
	if snap.HasBuyInputs() || snap.HasSellInputs() {
		t.Error("Expected empty snapshot to fail completeness checks")
	}
}

func TestBuildIndependentGating(t *testing.T) {
	// 10 bars: enough for the short MA but not the long MA, MACD, or Bollinger.
	snap := Build(candles(10), testConfig())

	if math.IsNaN(snap.Close) {
		t.Error("Expected Close to be set for a non-empty series")
	}
	if math.IsNaN(snap.ShortMA) {
		t.Error("Expected short MA with 10 bars")
	}
	if !math.IsNaN(snap.LongMA) {
		t.Error("Expected NaN long MA with only 10 bars")
	}
	if !math.IsNaN(snap.MACD) {
		t.Error("Expected NaN MACD with only 10 bars")
	}
	if !math.IsNaN(snap.BollingerUpper) {
		t.Error("Expected NaN Bollinger with only 10 bars")
	}
	if snap.HasBuyInputs() {
		t.Error("Expected incomplete snapshot to fail buy completeness")
	}
}

func TestBuildFullSeries(t *testing.T) {
	snap := Build(candles(60), testConfig())

	if !snap.HasBuyInputs() {
		t.Error("Expected complete buy inputs with 60 bars")
	}
	if !snap.HasSellInputs() {
		t.Error("Expected complete sell inputs with 60 bars")
	}
	if math.IsNaN(snap.MACDSignal) || math.IsNaN(snap.BollingerUpper) {
		t.Error("Expected all indicators present with 60 bars")
	}

	last := candles(60)[59].Close
	if snap.Close != last {
		t.Errorf("Expected Close %f (last candle), got %f", last, snap.Close)
	}
}

func TestBuildDeterministic(t *testing.T) {
	cs := candles(60)
	a := Build(cs, testConfig())
	b := Build(cs, testConfig())
	if a != b {
		t.Error("Expected identical snapshots for identical input")
	}
}
