package domain

import "github.com/shopspring/decimal"

// Position is an open holding in one symbol within one mode.
// AvgCost is the quantity-weighted mean purchase price: it is recomputed
// on every buy and left untouched by sells. A position with quantity 0
// does not exist — the storage layer deletes the row.
type Position struct {
	AccountID string
	Mode      Mode
	Symbol    string
	Quantity  int64
	AvgCost   decimal.Decimal
}

// ApplyBuy returns the position after buying qty shares at price.
func (p Position) ApplyBuy(qty int64, price decimal.Decimal) Position {
	if p.Quantity == 0 {
		p.Quantity = qty
		p.AvgCost = price
		return p
	}
	oldQty := decimal.NewFromInt(p.Quantity)
	addQty := decimal.NewFromInt(qty)
	newQty := oldQty.Add(addQty)
	p.AvgCost = oldQty.Mul(p.AvgCost).Add(addQty.Mul(price)).Div(newQty)
	p.Quantity += qty
	return p
}

// ApplySell returns the position after selling qty shares. Average cost
// is unchanged; the caller deletes the position when quantity hits zero.
func (p Position) ApplySell(qty int64) Position {
	p.Quantity -= qty
	return p
}

// CostBasis is quantity * average cost.
func (p Position) CostBasis() decimal.Decimal {
	return p.AvgCost.Mul(decimal.NewFromInt(p.Quantity))
}

// MarketValue is quantity * price.
func (p Position) MarketValue(price decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(p.Quantity))
}

// UnrealizedPnL is the gain or loss against the average cost at price.
func (p Position) UnrealizedPnL(price decimal.Decimal) decimal.Decimal {
	return p.MarketValue(price).Sub(p.CostBasis())
}
