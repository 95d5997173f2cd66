package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/stockbot/internal/domain"
)

// TradingStorage persists accounts, positions, pending orders, and the
// fill history. Every row is scoped by (account, mode) so demo and live
// ledgers never touch.
type TradingStorage interface {
	// EnsureAccount returns the account, creating it with the seeded
	// starting balances on first reference.
	EnsureAccount(ctx context.Context, accountID string) (domain.Account, error)
	SetMode(ctx context.Context, accountID string, mode domain.Mode) error

	GetPosition(ctx context.Context, accountID string, mode domain.Mode, symbol string) (domain.Position, bool, error)
	GetPositions(ctx context.Context, accountID string, mode domain.Mode) ([]domain.Position, error)

	SavePendingOrder(ctx context.Context, order domain.PendingOrder) error
	GetPendingOrders(ctx context.Context, accountID string, mode domain.Mode) ([]domain.PendingOrder, error)
	// DeletePendingOrder removes the order and returns its original terms.
	// Fails with domain.ErrOrderNotFound if it was already filled or
	// cancelled, or belongs to another mode.
	DeletePendingOrder(ctx context.Context, accountID string, mode domain.Mode, orderID string) (domain.PendingOrder, error)

	// ApplyFill commits one executed order in a single transaction:
	// balance update, position upsert/delete, history append, and (for
	// triggered limit orders) pending-order removal. Fails with
	// domain.ErrInsufficientFunds / ErrInsufficientShares without any
	// partial write when the account cannot cover the fill.
	ApplyFill(ctx context.Context, fill domain.Fill) (domain.Position, error)

	GetOrderHistory(ctx context.Context, accountID string, mode domain.Mode, limit int) ([]domain.OrderRecord, error)

	// Demo price baselines for the random-walk simulator.
	GetDemoPrice(ctx context.Context, symbol string) (decimal.Decimal, bool, error)
	SaveDemoPrice(ctx context.Context, symbol string, price decimal.Decimal) error

	Close() error
}
