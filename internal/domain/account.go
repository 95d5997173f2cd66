package domain

import "github.com/shopspring/decimal"

// Mode partitions all trading state into two independent ledgers.
// Demo money never mixes with live money.
type Mode string

const (
	ModeDemo Mode = "demo"
	ModeLive Mode = "live"
)

// Account holds the cash balances for both modes plus the active mode flag.
// Balances are mutated only by order fills.
type Account struct {
	ID          string
	Mode        Mode
	DemoBalance decimal.Decimal
	LiveBalance decimal.Decimal
}

// Balance returns the cash balance of the active mode.
func (a Account) Balance() decimal.Decimal {
	if a.Mode == ModeDemo {
		return a.DemoBalance
	}
	return a.LiveBalance
}

// IsDemo reports whether the account currently trades simulated money.
func (a Account) IsDemo() bool {
	return a.Mode == ModeDemo
}
