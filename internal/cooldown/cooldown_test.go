package cooldown

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var kst = time.FixedZone("KST", 9*3600)

func testParams() Params {
	return Params{
		BuyCooldown:    30 * time.Minute,
		SellCooldown:   15 * time.Minute,
		MaxDailyTrades: 10,
		MinHoldingDays: 3,
	}
}

func loadNew(t *testing.T, p Params) *Controller {
	t.Helper()
	c, err := Load(filepath.Join(t.TempDir(), "history.json"), p, kst)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestLoadMissingFileStartsEmpty(t *testing.T) {
	c := loadNew(t, testParams())
	now := time.Now()
	if ok, _ := c.CanBuy("005930", now); !ok {
		t.Error("Expected fresh controller to permit buys")
	}
	if c.DailyTradeCount(now) != 0 {
		t.Error("Expected zero daily count for fresh controller")
	}
}

func TestLoadCorruptFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path, testParams(), kst); err == nil {
		t.Fatal("Expected error for corrupt state file")
	}
}

func TestBuyCooldownInclusiveBoundary(t *testing.T) {
	c := loadNew(t, testParams())
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, kst)

	if err := c.RecordBuy("A", now); err != nil {
		t.Fatal(err)
	}

	if ok, reason := c.CanBuy("A", now.Add(29*time.Minute)); ok {
		t.Error("Expected buy blocked inside cooldown")
	} else if !strings.Contains(reason, "buy cooldown active") {
		t.Errorf("Expected cooldown reason, got %q", reason)
	}

	// Exactly at lastBuy+cooldown the buy is permitted.
	if ok, reason := c.CanBuy("A", now.Add(30*time.Minute)); !ok {
		t.Errorf("Expected buy permitted at cooldown boundary, got %q", reason)
	}

	// Other symbols are unaffected.
	if ok, _ := c.CanBuy("B", now.Add(time.Minute)); !ok {
		t.Error("Expected other symbol unaffected by A's cooldown")
	}
}

func TestSellCooldown(t *testing.T) {
	c := loadNew(t, testParams())
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, kst)

	if err := c.RecordSell("A", now); err != nil {
		t.Fatal(err)
	}
	if ok, _ := c.CanSell("A", now.Add(10*time.Minute)); ok {
		t.Error("Expected sell blocked inside cooldown")
	}
	if ok, _ := c.CanSell("A", now.Add(15*time.Minute)); !ok {
		t.Error("Expected sell permitted at cooldown boundary")
	}
}

func TestDailyTradeCap(t *testing.T) {
	p := testParams()
	p.MaxDailyTrades = 2
	c := loadNew(t, p)
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, kst)

	_ = c.RecordBuy("A", now)
	_ = c.RecordSell("B", now.Add(time.Minute))

	// Cap counts buys and sells together and blocks both directions.
	if ok, reason := c.CanBuy("C", now.Add(2*time.Hour)); ok {
		t.Error("Expected buy blocked at daily cap")
	} else if !strings.Contains(reason, "daily trade cap reached") {
		t.Errorf("Expected cap reason, got %q", reason)
	}
	if ok, _ := c.CanSell("D", now.Add(2*time.Hour)); ok {
		t.Error("Expected sell blocked at daily cap")
	}

	// The next calendar day resets the count.
	tomorrow := now.AddDate(0, 0, 1)
	if ok, _ := c.CanBuy("C", tomorrow); !ok {
		t.Error("Expected cap reset on next day")
	}
}

func TestMinHoldingPeriod(t *testing.T) {
	c := loadNew(t, testParams())
	bought := time.Date(2025, 6, 2, 10, 0, 0, 0, kst)
	_ = c.RecordBuy("A", bought)

	if ok, reason := c.CanSell("A", bought.AddDate(0, 0, 1)); ok {
		t.Error("Expected sell blocked during holding period")
	} else if !strings.Contains(reason, "minimum holding period") {
		t.Errorf("Expected holding-period reason, got %q", reason)
	}

	if ok, _ := c.CanSell("A", bought.AddDate(0, 0, 3)); !ok {
		t.Error("Expected sell permitted after holding period")
	}
}

func TestUntrackedHoldingSellable(t *testing.T) {
	// A position with no recorded purchase date (bought outside the bot) has
	// no holding-period restriction.
	c := loadNew(t, testParams())
	if ok, _ := c.CanSell("LEGACY", time.Now()); !ok {
		t.Error("Expected untracked holding to be sellable")
	}
}

func TestRecordSellClearsPurchaseDate(t *testing.T) {
	c := loadNew(t, testParams())
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, kst)

	_ = c.RecordBuy("A", now)
	_ = c.RecordSell("A", now.AddDate(0, 0, 4))

	// A re-buy later must not inherit the old purchase date; after the sell
	// and before any new buy the symbol behaves as untracked.
	later := now.AddDate(0, 0, 5)
	ok, reason := c.CanSell("A", later)
	if !ok {
		t.Errorf("Expected purchase date cleared after sell, got %q", reason)
	}
}

func TestStateRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.json")
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, kst)

	c, err := Load(path, testParams(), kst)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.RecordBuy("A", now); err != nil {
		t.Fatal(err)
	}

	// A new controller over the same file sees the recorded state.
	c2, err := Load(path, testParams(), kst)
	if err != nil {
		t.Fatal(err)
	}
	if ok, _ := c2.CanBuy("A", now.Add(5*time.Minute)); ok {
		t.Error("Expected cooldown to survive reload")
	}
	if c2.DailyTradeCount(now) != 1 {
		t.Errorf("Expected daily count 1 after reload, got %d", c2.DailyTradeCount(now))
	}
}

func TestCleanupPrunesOnlyDailyCounters(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.json")
	c, err := Load(path, testParams(), kst)
	if err != nil {
		t.Fatal(err)
	}

	old := time.Date(2025, 1, 10, 10, 0, 0, 0, kst)
	_ = c.RecordBuy("A", old)

	now := old.AddDate(0, 0, 60)
	if err := c.Cleanup(30, now); err != nil {
		t.Fatal(err)
	}

	if c.DailyTradeCount(old) != 0 {
		t.Error("Expected old daily counter pruned")
	}
	// The cooldown timestamp itself survives; only the long-expired cooldown
	// window makes the buy permissible again.
	c2, err := Load(path, testParams(), kst)
	if err != nil {
		t.Fatal(err)
	}
	if c2.DailyTradeCount(old) != 0 {
		t.Error("Expected pruning to be persisted")
	}
}
