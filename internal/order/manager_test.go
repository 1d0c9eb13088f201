package order

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"kis-trading-bot/internal/cooldown"
	"kis-trading-bot/internal/portfolio"
	"kis-trading-bot/internal/types"
)

type fakeBroker struct {
	price       float64
	priceErr    error
	placeErr    error
	orderID     string
	outcome     types.OrderOutcome
	outcomeErr  error
	cancelErr   error
	placed      []types.OrderReq
	cancelCalls []string
}

func (f *fakeBroker) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	return f.price, f.priceErr
}

func (f *fakeBroker) Balance(ctx context.Context) (types.BalanceSnapshot, error) {
	return types.BalanceSnapshot{}, nil
}

func (f *fakeBroker) PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	if f.placeErr != nil {
		return types.OrderResp{}, f.placeErr
	}
	f.placed = append(f.placed, req)
	return types.OrderResp{OrderID: f.orderID, Status: "SUBMITTED"}, nil
}

func (f *fakeBroker) OrderOutcome(ctx context.Context, orderID string) (types.OrderOutcome, error) {
	return f.outcome, f.outcomeErr
}

func (f *fakeBroker) CancelOrder(ctx context.Context, orderID string) error {
	f.cancelCalls = append(f.cancelCalls, orderID)
	return f.cancelErr
}

func (f *fakeBroker) DailyCandles(ctx context.Context, symbol string, start, end time.Time) ([]types.Candle, error) {
	return nil, nil
}

func (f *fakeBroker) IsMarketOpen() bool { return true }

type fakeNotifier struct {
	messages []string
}

func (f *fakeNotifier) Send(ctx context.Context, text string) error {
	f.messages = append(f.messages, text)
	return nil
}

func (f *fakeNotifier) contains(sub string) bool {
	for _, m := range f.messages {
		if strings.Contains(m, sub) {
			return true
		}
	}
	return false
}

func newLimits(t *testing.T, p cooldown.Params) *cooldown.Controller {
	t.Helper()
	c, err := cooldown.Load(filepath.Join(t.TempDir(), "history.json"), p, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func defaultLimits(t *testing.T) *cooldown.Controller {
	return newLimits(t, cooldown.Params{
		BuyCooldown:    30 * time.Minute,
		SellCooldown:   15 * time.Minute,
		MaxDailyTrades: 10,
		MinHoldingDays: 3,
	})
}

func newTestManager(t *testing.T, brk *fakeBroker, ntf *fakeNotifier, cash float64, limits *cooldown.Controller) (*Manager, *portfolio.Portfolio) {
	t.Helper()
	t.Setenv("TRADER_LOG_DIR", t.TempDir())
	ledger := portfolio.New()
	ledger.Sync(types.BalanceSnapshot{Cash: cash})
	m := NewManager(brk, ntf, ledger, limits, Sizing{AllocationPerSymbol: 300_000, DCADivisions: 3}, 0)
	return m, ledger
}

func TestExecuteBuyFilled(t *testing.T) {
	brk := &fakeBroker{
		price:   10_000,
		orderID: "ord-1",
		outcome: types.OrderOutcome{OrderID: "ord-1", Status: types.OrderFilled, FilledPrice: 9_950},
	}
	ntf := &fakeNotifier{}
	limits := defaultLimits(t)
	m, ledger := newTestManager(t, brk, ntf, 1_000_000, limits)

	res, err := m.ExecuteBuy(context.Background(), "005930", "test signal")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Filled {
		t.Fatalf("Expected filled result, got reason %q", res.Reason)
	}
	// Tranche budget 100k at price 10k buys exactly 10 shares.
	if res.Qty != 10 {
		t.Errorf("Expected qty 10, got %d", res.Qty)
	}
	if res.Price != 9_950 {
		t.Errorf("Expected reported fill price, got %f", res.Price)
	}

	h, ok := ledger.Holding("005930")
	if !ok || h.Quantity != 10 {
		t.Errorf("Expected ledger position of 10, got %+v ok=%v", h, ok)
	}
	if ledger.Cash() != 1_000_000-10*9_950 {
		t.Errorf("Expected cash reduced by fill cost, got %f", ledger.Cash())
	}

	// The fill started the buy cooldown.
	if ok, _ := limits.CanBuy("005930", time.Now()); ok {
		t.Error("Expected buy cooldown recorded after fill")
	}
	if !ntf.contains("[BUY filled]") {
		t.Errorf("Expected fill notification, got %v", ntf.messages)
	}
}

func TestExecuteBuyFillPriceFallsBackToQuote(t *testing.T) {
	brk := &fakeBroker{
		price:   10_000,
		orderID: "ord-1",
		outcome: types.OrderOutcome{OrderID: "ord-1", Status: types.OrderFilled}, // no price reported
	}
	m, ledger := newTestManager(t, brk, &fakeNotifier{}, 1_000_000, defaultLimits(t))

	res, err := m.ExecuteBuy(context.Background(), "005930", "test signal")
	if err != nil {
		t.Fatal(err)
	}
	if res.Price != 10_000 {
		t.Errorf("Expected fallback to submission quote, got %f", res.Price)
	}
	h, _ := ledger.Holding("005930")
	if h.AvgPrice != 10_000 {
		t.Errorf("Expected ledger avg at quote, got %f", h.AvgPrice)
	}
}

func TestExecuteBuyUnfilledCancelsWithoutMutation(t *testing.T) {
	brk := &fakeBroker{
		price:   10_000,
		orderID: "ord-1",
		outcome: types.OrderOutcome{OrderID: "ord-1", Status: types.OrderUnfilled},
	}
	ntf := &fakeNotifier{}
	limits := defaultLimits(t)
	m, ledger := newTestManager(t, brk, ntf, 1_000_000, limits)

	res, err := m.ExecuteBuy(context.Background(), "005930", "test signal")
	if err != nil {
		t.Fatal(err)
	}
	if res.Filled {
		t.Fatal("Expected unfilled result")
	}
	if len(brk.cancelCalls) != 1 || brk.cancelCalls[0] != "ord-1" {
		t.Errorf("Expected one cancel of ord-1, got %v", brk.cancelCalls)
	}
	if _, ok := ledger.Holding("005930"); ok {
		t.Error("Expected no ledger mutation for unfilled order")
	}
	if ledger.Cash() != 1_000_000 {
		t.Error("Expected cash untouched for unfilled order")
	}
	// No trade record either: the symbol may be retried immediately.
	if ok, _ := limits.CanBuy("005930", time.Now()); !ok {
		t.Error("Expected no cooldown recorded for unfilled order")
	}
	if !ntf.contains("[BUY unfilled]") {
		t.Errorf("Expected unfilled notification, got %v", ntf.messages)
	}
}

func TestExecuteBuyUnknownStatusTreatedAsUnfilled(t *testing.T) {
	brk := &fakeBroker{
		price:      10_000,
		orderID:    "ord-1",
		outcomeErr: errors.New("poll timeout"),
	}
	m, ledger := newTestManager(t, brk, &fakeNotifier{}, 1_000_000, defaultLimits(t))

	res, err := m.ExecuteBuy(context.Background(), "005930", "test signal")
	if err != nil {
		t.Fatal(err)
	}
	if res.Filled {
		t.Fatal("Expected no fill on unknown status")
	}
	if len(brk.cancelCalls) != 1 {
		t.Errorf("Expected cancel attempt on unknown status, got %v", brk.cancelCalls)
	}
	if _, ok := ledger.Holding("005930"); ok {
		t.Error("Expected no ledger mutation on unknown status")
	}
}

func TestExecuteBuyZeroQuantityAborts(t *testing.T) {
	brk := &fakeBroker{price: 200_000} // above the 100k tranche budget
	m, _ := newTestManager(t, brk, &fakeNotifier{}, 1_000_000, defaultLimits(t))

	res, err := m.ExecuteBuy(context.Background(), "005930", "test signal")
	if err != nil {
		t.Fatal(err)
	}
	if res.Filled || len(brk.placed) != 0 {
		t.Error("Expected no submission when the budget buys zero shares")
	}
}

func TestExecuteBuyInsufficientCash(t *testing.T) {
	brk := &fakeBroker{price: 10_000, orderID: "ord-1"}
	ntf := &fakeNotifier{}
	m, _ := newTestManager(t, brk, ntf, 50_000, defaultLimits(t)) // below 100k tranche

	res, err := m.ExecuteBuy(context.Background(), "005930", "test signal")
	if err != nil {
		t.Fatal(err)
	}
	if res.Filled || len(brk.placed) != 0 {
		t.Error("Expected no submission with insufficient cash")
	}
	if !ntf.contains("[BUY blocked]") {
		t.Errorf("Expected blocked notification, got %v", ntf.messages)
	}
}

func TestExecuteBuyBlockedByCooldown(t *testing.T) {
	limits := defaultLimits(t)
	_ = limits.RecordBuy("005930", time.Now())

	brk := &fakeBroker{price: 10_000, orderID: "ord-1"}
	m, _ := newTestManager(t, brk, &fakeNotifier{}, 1_000_000, limits)

	res, err := m.ExecuteBuy(context.Background(), "005930", "test signal")
	if err != nil {
		t.Fatal(err)
	}
	if res.Filled || len(brk.placed) != 0 {
		t.Error("Expected no submission during cooldown")
	}
	if !strings.Contains(res.Reason, "cooldown") {
		t.Errorf("Expected cooldown reason, got %q", res.Reason)
	}
}

func TestExecuteBuySubmissionFailure(t *testing.T) {
	brk := &fakeBroker{price: 10_000, placeErr: errors.New("rejected")}
	m, ledger := newTestManager(t, brk, &fakeNotifier{}, 1_000_000, defaultLimits(t))

	if _, err := m.ExecuteBuy(context.Background(), "005930", "test signal"); err == nil {
		t.Fatal("Expected error on submission failure")
	}
	if ledger.Cash() != 1_000_000 {
		t.Error("Expected cash untouched after failed submission")
	}
}

func TestExecuteBuyEmptyOrderID(t *testing.T) {
	brk := &fakeBroker{price: 10_000, orderID: ""}
	m, ledger := newTestManager(t, brk, &fakeNotifier{}, 1_000_000, defaultLimits(t))

	if _, err := m.ExecuteBuy(context.Background(), "005930", "test signal"); err == nil {
		t.Fatal("Expected error for empty order id")
	}
	if _, ok := ledger.Holding("005930"); ok {
		t.Error("Expected no ledger mutation for malformed response")
	}
}

func TestExecuteSellLiquidatesFullHolding(t *testing.T) {
	brk := &fakeBroker{
		price:   12_000,
		orderID: "ord-2",
		outcome: types.OrderOutcome{OrderID: "ord-2", Status: types.OrderFilled, FilledPrice: 12_000},
	}
	limits := defaultLimits(t)
	m, ledger := newTestManager(t, brk, &fakeNotifier{}, 0, limits)
	ledger.Sync(types.BalanceSnapshot{Cash: 0, Positions: []types.BrokerPosition{
		{Symbol: "005930", Quantity: 7, AvgPrice: 10_000},
	}})

	res, err := m.ExecuteSell(context.Background(), "005930", "profit target reached")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Filled || res.Qty != 7 {
		t.Fatalf("Expected full liquidation of 7 shares, got %+v", res)
	}
	if _, ok := ledger.Holding("005930"); ok {
		t.Error("Expected position removed after sell")
	}
	if ledger.Cash() != 7*12_000 {
		t.Errorf("Expected proceeds credited, got %f", ledger.Cash())
	}
	if ok, _ := limits.CanSell("005930", time.Now()); ok {
		t.Error("Expected sell cooldown recorded after fill")
	}
}

func TestExecuteSellNoHolding(t *testing.T) {
	brk := &fakeBroker{price: 12_000}
	m, _ := newTestManager(t, brk, &fakeNotifier{}, 0, defaultLimits(t))

	res, err := m.ExecuteSell(context.Background(), "005930", "profit target reached")
	if err != nil {
		t.Fatal(err)
	}
	if res.Filled || len(brk.placed) != 0 {
		t.Error("Expected no submission without a holding")
	}
}

func TestExecuteSellBlockedByHoldingPeriod(t *testing.T) {
	limits := defaultLimits(t)
	_ = limits.RecordBuy("005930", time.Now())

	brk := &fakeBroker{price: 12_000, orderID: "ord-2"}
	m, ledger := newTestManager(t, brk, &fakeNotifier{}, 0, limits)
	ledger.Sync(types.BalanceSnapshot{Positions: []types.BrokerPosition{
		{Symbol: "005930", Quantity: 7, AvgPrice: 10_000},
	}})

	res, err := m.ExecuteSell(context.Background(), "005930", "stop-loss triggered")
	if err != nil {
		t.Fatal(err)
	}
	if res.Filled || len(brk.placed) != 0 {
		t.Error("Expected no submission during holding period")
	}
	h, _ := ledger.Holding("005930")
	if h.Quantity != 7 {
		t.Error("Expected position untouched")
	}
}
