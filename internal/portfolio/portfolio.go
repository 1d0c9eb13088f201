// Package portfolio keeps the in-process mirror of the brokerage account.
// The broker's balance read is the ground truth; Sync replaces the whole
// mirror and ApplyFill is the only other mutator.
package portfolio

import (
	"errors"
	"fmt"

	"kis-trading-bot/internal/types"
)

var (
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientPosition = errors.New("insufficient position")
)

// Holding is one position in the ledger. Quantity is always positive; a
// holding that reaches zero is removed from the ledger entirely.
type Holding struct {
	Name     string
	Quantity int
	AvgPrice float64
}

type Portfolio struct {
	cash     float64
	holdings map[string]Holding
}

func New() *Portfolio {
	return &Portfolio{holdings: make(map[string]Holding)}
}

// Sync replaces cash and every position from an authoritative broker read.
// This is the only path for picking up externally caused changes and runs at
// the start of every cycle.
func (p *Portfolio) Sync(bal types.BalanceSnapshot) {
	p.cash = bal.Cash
	p.holdings = make(map[string]Holding, len(bal.Positions))
	for _, pos := range bal.Positions {
		if pos.Quantity <= 0 {
			continue
		}
		p.holdings[pos.Symbol] = Holding{
			Name:     pos.Name,
			Quantity: pos.Quantity,
			AvgPrice: pos.AvgPrice,
		}
	}
}

// ApplyFill mutates cash and the position for one confirmed fill. Cash and
// the position change together or not at all. Callers invoke this at most
// once per confirmed order.
func (p *Portfolio) ApplyFill(symbol string, side types.Side, qty int, price float64) error {
	if qty <= 0 {
		return fmt.Errorf("fill quantity must be positive, got %d", qty)
	}

	switch side {
	case types.Buy:
		cost := float64(qty) * price
		if cost > p.cash {
			return ErrInsufficientFunds
		}
		h := p.holdings[symbol]
		if h.Quantity > 0 {
			total := h.AvgPrice*float64(h.Quantity) + cost
			h.Quantity += qty
			h.AvgPrice = total / float64(h.Quantity)
		} else {
			h = Holding{Quantity: qty, AvgPrice: price}
		}
		p.holdings[symbol] = h
		p.cash -= cost
		return nil

	case types.Sell:
		h, ok := p.holdings[symbol]
		if !ok || qty > h.Quantity {
			return ErrInsufficientPosition
		}
		h.Quantity -= qty
		if h.Quantity == 0 {
			delete(p.holdings, symbol)
		} else {
			p.holdings[symbol] = h
		}
		p.cash += float64(qty) * price
		return nil

	default:
		return fmt.Errorf("unknown order side %q", side)
	}
}

// Holding returns the position for a symbol, if held.
func (p *Portfolio) Holding(symbol string) (Holding, bool) {
	h, ok := p.holdings[symbol]
	return h, ok
}

func (p *Portfolio) Cash() float64 {
	return p.cash
}

// Symbols returns the held symbols. The order is unspecified.
func (p *Portfolio) Symbols() []string {
	out := make([]string, 0, len(p.holdings))
	for s := range p.holdings {
		out = append(out, s)
	}
	return out
}
