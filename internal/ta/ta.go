package ta

import "math"

// Functions in this package operate on a time-ordered series and describe the
// latest value only. They return NaN when the series is too short, never a
// partial result.

func SMA(closes []float64, n int) float64 {
	if len(closes) < n || n <= 0 {
		return math.NaN()
	}
	sum := 0.0
	for i := len(closes) - n; i < len(closes); i++ {
		sum += closes[i]
	}
	return sum / float64(n)
}

// RSI uses a rolling mean of gains and losses over the trailing period.
// When the loss average is zero the result is defined as 100.
func RSI(closes []float64, period int) float64 {
	if len(closes) < period+1 || period <= 0 {
		return math.NaN()
	}
	gain, loss := 0.0, 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	if loss == 0 {
		return 100.0
	}
	rs := (gain / float64(period)) / (loss / float64(period))
	return 100.0 - (100.0 / (1.0 + rs))
}

// StdDev returns the sample standard deviation of the trailing n values.
func StdDev(vals []float64, n int) float64 {
	if len(vals) < n || n <= 1 {
		return math.NaN()
	}
	m := SMA(vals, n)
	s := 0.0
	for i := len(vals) - n; i < len(vals); i++ {
		d := vals[i] - m
		s += d * d
	}
	return math.Sqrt(s / float64(n-1))
}

func Bollinger(closes []float64, n int, k float64) (mid, up, low float64) {
	mid = SMA(closes, n)
	sd := StdDev(closes, n)
	up = mid + k*sd
	low = mid - k*sd
	return
}

// EMASeries computes the exponential moving average over the whole series
// using the recursive form with alpha = 2/(span+1), seeded with the first
// value. The returned slice has the same length as vals.
func EMASeries(vals []float64, span int) []float64 {
	if len(vals) == 0 || span <= 0 {
		return nil
	}
	alpha := 2.0 / (float64(span) + 1.0)
	out := make([]float64, len(vals))
	out[0] = vals[0]
	for i := 1; i < len(vals); i++ {
		out[i] = alpha*vals[i] + (1-alpha)*out[i-1]
	}
	return out
}

func EMA(vals []float64, span int) float64 {
	s := EMASeries(vals, span)
	if s == nil {
		return math.NaN()
	}
	return s[len(s)-1]
}

// MACD returns the latest MACD value (EMA(fast) - EMA(slow)) and its signal
// line (EMA of the MACD series over sigSpan). Requires at least slow bars.
func MACD(closes []float64, fast, slow, sigSpan int) (macd, signal float64) {
	if len(closes) < slow || fast <= 0 || slow <= 0 || sigSpan <= 0 {
		return math.NaN(), math.NaN()
	}
	ef := EMASeries(closes, fast)
	es := EMASeries(closes, slow)
	diff := make([]float64, len(closes))
	for i := range closes {
		diff[i] = ef[i] - es[i]
	}
	sig := EMASeries(diff, sigSpan)
	return diff[len(diff)-1], sig[len(sig)-1]
}

// EWO is the elder wave oscillator: the spread of the short and long EMAs as
// a percentage of the long EMA. Requires at least longSpan bars.
func EWO(closes []float64, shortSpan, longSpan int) float64 {
	if len(closes) < longSpan || shortSpan <= 0 || longSpan <= 0 {
		return math.NaN()
	}
	es := EMA(closes, shortSpan)
	el := EMA(closes, longSpan)
	if el == 0 {
		return math.NaN()
	}
	return (es - el) / el * 100.0
}
