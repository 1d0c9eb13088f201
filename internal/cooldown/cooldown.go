// Package cooldown enforces trading-frequency limits: a per-symbol cooldown
// after each buy and sell, a minimum holding period, and a global daily
// trade cap. State is durable; every recorded trade is flushed to disk
// before the record call returns, so a crash loses at most the in-flight
// trade.
package cooldown

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type Params struct {
	BuyCooldown    time.Duration
	SellCooldown   time.Duration
	MaxDailyTrades int
	MinHoldingDays int
}

type state struct {
	LastBuyTimes    map[string]time.Time `json:"last_buy_times"`
	LastSellTimes   map[string]time.Time `json:"last_sell_times"`
	PurchaseDates   map[string]time.Time `json:"purchase_dates"`
	DailyTradeCount map[string]int       `json:"daily_trade_count"`
}

type Controller struct {
	path string
	p    Params
	loc  *time.Location
	st   state
}

// Load reads the persisted state from path. A missing file starts empty; an
// unreadable or malformed file is an error so the caller can refuse to start
// rather than trade with forgotten limits. Daily counters are keyed by
// calendar date in loc.
func Load(path string, p Params, loc *time.Location) (*Controller, error) {
	c := &Controller{
		path: path,
		p:    p,
		loc:  loc,
		st: state{
			LastBuyTimes:    map[string]time.Time{},
			LastSellTimes:   map[string]time.Time{},
			PurchaseDates:   map[string]time.Time{},
			DailyTradeCount: map[string]int{},
		},
	}

	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read trade history %s: %w", path, err)
	}
	if err := json.Unmarshal(b, &c.st); err != nil {
		return nil, fmt.Errorf("parse trade history %s: %w", path, err)
	}
	if c.st.LastBuyTimes == nil {
		c.st.LastBuyTimes = map[string]time.Time{}
	}
	if c.st.LastSellTimes == nil {
		c.st.LastSellTimes = map[string]time.Time{}
	}
	if c.st.PurchaseDates == nil {
		c.st.PurchaseDates = map[string]time.Time{}
	}
	if c.st.DailyTradeCount == nil {
		c.st.DailyTradeCount = map[string]int{}
	}
	return c, nil
}

func (c *Controller) dayKey(t time.Time) string {
	return t.In(c.loc).Format("2006-01-02")
}

// DailyTradeCount returns the number of trades recorded on now's date.
func (c *Controller) DailyTradeCount(now time.Time) int {
	return c.st.DailyTradeCount[c.dayKey(now)]
}

// CanBuy reports whether a buy for symbol is permitted at now. The boundary
// is inclusive: a buy at exactly lastBuy+cooldown is permitted.
func (c *Controller) CanBuy(symbol string, now time.Time) (bool, string) {
	if n := c.DailyTradeCount(now); n >= c.p.MaxDailyTrades {
		return false, fmt.Sprintf("daily trade cap reached (%d/%d)", n, c.p.MaxDailyTrades)
	}
	if last, ok := c.st.LastBuyTimes[symbol]; ok {
		end := last.Add(c.p.BuyCooldown)
		if now.Before(end) {
			return false, fmt.Sprintf("buy cooldown active (%s remaining)", end.Sub(now).Round(time.Minute))
		}
	}
	return true, "buy permitted"
}

// CanSell reports whether a sell for symbol is permitted at now. A holding
// with no recorded purchase date may always be sold once the cap and
// cooldown allow; it is treated as an untracked holding.
func (c *Controller) CanSell(symbol string, now time.Time) (bool, string) {
	if n := c.DailyTradeCount(now); n >= c.p.MaxDailyTrades {
		return false, fmt.Sprintf("daily trade cap reached (%d/%d)", n, c.p.MaxDailyTrades)
	}
	if last, ok := c.st.LastSellTimes[symbol]; ok {
		end := last.Add(c.p.SellCooldown)
		if now.Before(end) {
			return false, fmt.Sprintf("sell cooldown active (%s remaining)", end.Sub(now).Round(time.Minute))
		}
	}
	if purchased, ok := c.st.PurchaseDates[symbol]; ok {
		held := int(now.Sub(purchased).Hours() / 24)
		if held < c.p.MinHoldingDays {
			return false, fmt.Sprintf("minimum holding period not met (%dd remaining)", c.p.MinHoldingDays-held)
		}
	}
	return true, "sell permitted"
}

// RecordBuy stamps the buy time and purchase date for symbol, increments
// today's counter, and persists before returning.
func (c *Controller) RecordBuy(symbol string, now time.Time) error {
	c.st.LastBuyTimes[symbol] = now
	c.st.PurchaseDates[symbol] = now
	c.st.DailyTradeCount[c.dayKey(now)]++
	return c.save()
}

// RecordSell stamps the sell time, clears the purchase date (the holding
// period window is closed), increments today's counter, and persists.
func (c *Controller) RecordSell(symbol string, now time.Time) error {
	c.st.LastSellTimes[symbol] = now
	delete(c.st.PurchaseDates, symbol)
	c.st.DailyTradeCount[c.dayKey(now)]++
	return c.save()
}

// Cleanup prunes daily counters older than retentionDays. Per-symbol
// cooldown timestamps are left untouched.
func (c *Controller) Cleanup(retentionDays int, now time.Time) error {
	if retentionDays <= 0 {
		return nil
	}
	cutoff := c.dayKey(now.AddDate(0, 0, -retentionDays))
	pruned := false
	for day := range c.st.DailyTradeCount {
		if day < cutoff {
			delete(c.st.DailyTradeCount, day)
			pruned = true
		}
	}
	if !pruned {
		return nil
	}
	return c.save()
}

// save writes the state to a temp file and renames it into place so a crash
// mid-write cannot corrupt the previous state.
func (c *Controller) save() error {
	b, err := json.MarshalIndent(c.st, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".trade_history-*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), c.path)
}
