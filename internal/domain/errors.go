package domain

import "errors"

// Typed failures surfaced by the trading engine. The presentation layer
// matches on these with errors.Is to choose user-facing wording.
var (
	ErrInvalidQuantity    = errors.New("quantity must be positive")
	ErrInvalidLimitPrice  = errors.New("limit price must be positive")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientShares = errors.New("insufficient shares")
	ErrMarketClosed       = errors.New("market is closed")
	ErrOrderNotFound      = errors.New("order not found")
	ErrPriceUnavailable   = errors.New("price unavailable")
)
