package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of an order.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderKind distinguishes immediate market execution from queued limit orders.
type OrderKind string

const (
	OrderKindMarket OrderKind = "market"
	OrderKindLimit  OrderKind = "limit"
)

// PendingOrder is an unfilled limit order. Quantity and limit price are
// fixed at creation; the order lives until it fills or is cancelled.
type PendingOrder struct {
	ID         string
	AccountID  string
	Mode       Mode
	Side       Side
	Symbol     string
	Quantity   int64
	LimitPrice decimal.Decimal
	CreatedAt  time.Time
}

// Triggers reports whether the current price crosses the limit:
// buys fill at or below the limit, sells at or above.
func (o PendingOrder) Triggers(price decimal.Decimal) bool {
	if o.Side == SideBuy {
		return price.LessThanOrEqual(o.LimitPrice)
	}
	return price.GreaterThanOrEqual(o.LimitPrice)
}

// Fill is the mutation a single executed order applies to the account:
// a balance debit/credit, a position upsert or delete, and one history
// row, committed atomically by the storage layer. PendingOrderID is set
// when the fill consumes a queued limit order.
type Fill struct {
	AccountID      string
	Mode           Mode
	Side           Side
	Symbol         string
	Quantity       int64
	Price          decimal.Decimal
	Kind           OrderKind
	PendingOrderID string
	ExecutedAt     time.Time
}

// Cost is quantity * price: the cash debited on a buy or credited on a sell.
func (f Fill) Cost() decimal.Decimal {
	return f.Price.Mul(decimal.NewFromInt(f.Quantity))
}

// OrderRecord is one row of the append-only fill history.
type OrderRecord struct {
	ID         int64
	AccountID  string
	Mode       Mode
	Side       Side
	Symbol     string
	Quantity   int64
	Price      decimal.Decimal
	Kind       OrderKind
	ExecutedAt time.Time
}

// OrderResult is what a placement call returns: either an immediate fill
// (market) or a pending acknowledgment (limit).
type OrderResult struct {
	Pending    bool
	OrderID    string          // set for queued limit orders
	Side       Side
	Symbol     string
	Quantity   int64
	Price      decimal.Decimal // fill price, zero while pending
	LimitPrice decimal.Decimal // zero for market orders
	Kind       OrderKind
}
