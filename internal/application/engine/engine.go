// Package engine implements the order and position accounting core:
// balance management, average-cost positions, market and limit order
// placement, pending-order matching, and market-hours gating.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/stockbot/internal/domain"
	"github.com/alejandrodnm/stockbot/internal/ports"
)

const (
	defaultAccountID      = "global"
	defaultCacheDuration  = 60 * time.Second
	defaultPriceAttempts  = 3
	defaultRetryBaseDelay = 2 * time.Second
	defaultDemoVolatility = 0.10
)

// Config holds trading engine settings.
type Config struct {
	AccountID      string
	CacheDuration  time.Duration // how long a fetched live price stays valid
	PriceAttempts  int           // total quote attempts before PriceUnavailable
	RetryBaseDelay time.Duration // first backoff delay, doubles per attempt
	DemoStartPrice decimal.Decimal
	DemoVolatility float64 // max relative step of the demo random walk
}

// Engine orchestrates storage, quotes, and the market calendar. It is the
// sole writer of account, position, and pending-order records.
type Engine struct {
	storage  ports.TradingStorage
	quotes   ports.QuoteProvider
	calendar *MarketCalendar
	cfg      Config

	cacheMu sync.Mutex
	cache   map[string]cachedQuote

	rndMu sync.Mutex
	rnd   *rand.Rand

	now func() time.Time // swapped out in tests
}

// New creates a trading engine. Zero-valued config fields fall back to
// defaults (global account, 60s price cache, 3 attempts with 2s base
// backoff, demo walk from 100.00 at ±10%).
func New(storage ports.TradingStorage, quotes ports.QuoteProvider, calendar *MarketCalendar, cfg Config) *Engine {
	if cfg.AccountID == "" {
		cfg.AccountID = defaultAccountID
	}
	if cfg.CacheDuration <= 0 {
		cfg.CacheDuration = defaultCacheDuration
	}
	if cfg.PriceAttempts <= 0 {
		cfg.PriceAttempts = defaultPriceAttempts
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = defaultRetryBaseDelay
	}
	if cfg.DemoStartPrice.IsZero() {
		cfg.DemoStartPrice = decimal.NewFromInt(100)
	}
	if cfg.DemoVolatility <= 0 {
		cfg.DemoVolatility = defaultDemoVolatility
	}
	return &Engine{
		storage:  storage,
		quotes:   quotes,
		calendar: calendar,
		cfg:      cfg,
		cache:    make(map[string]cachedQuote),
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
		now:      time.Now,
	}
}

// GetBalance returns the cash balance of the active mode.
func (e *Engine) GetBalance(ctx context.Context) (decimal.Decimal, error) {
	acct, err := e.storage.EnsureAccount(ctx, e.cfg.AccountID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("engine.GetBalance: %w", err)
	}
	return acct.Balance(), nil
}

// GetPositions returns all open positions in the active mode.
func (e *Engine) GetPositions(ctx context.Context) ([]domain.Position, error) {
	acct, err := e.storage.EnsureAccount(ctx, e.cfg.AccountID)
	if err != nil {
		return nil, fmt.Errorf("engine.GetPositions: %w", err)
	}
	return e.storage.GetPositions(ctx, acct.ID, acct.Mode)
}

// GetPendingOrders returns the unfilled limit orders of the active mode.
func (e *Engine) GetPendingOrders(ctx context.Context) ([]domain.PendingOrder, error) {
	acct, err := e.storage.EnsureAccount(ctx, e.cfg.AccountID)
	if err != nil {
		return nil, fmt.Errorf("engine.GetPendingOrders: %w", err)
	}
	return e.storage.GetPendingOrders(ctx, acct.ID, acct.Mode)
}

// GetOrderHistory returns up to limit executed fills, most recent first.
func (e *Engine) GetOrderHistory(ctx context.Context, limit int) ([]domain.OrderRecord, error) {
	acct, err := e.storage.EnsureAccount(ctx, e.cfg.AccountID)
	if err != nil {
		return nil, fmt.Errorf("engine.GetOrderHistory: %w", err)
	}
	return e.storage.GetOrderHistory(ctx, acct.ID, acct.Mode, limit)
}

// GetPnL returns the unrealized profit and loss across all open positions
// of the active mode at current prices.
func (e *Engine) GetPnL(ctx context.Context) (decimal.Decimal, error) {
	acct, err := e.storage.EnsureAccount(ctx, e.cfg.AccountID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("engine.GetPnL: %w", err)
	}
	positions, err := e.storage.GetPositions(ctx, acct.ID, acct.Mode)
	if err != nil {
		return decimal.Zero, fmt.Errorf("engine.GetPnL: %w", err)
	}

	total := decimal.Zero
	for _, pos := range positions {
		price, err := e.getPrice(ctx, acct.Mode, pos.Symbol)
		if err != nil {
			return decimal.Zero, fmt.Errorf("engine.GetPnL: %s: %w", pos.Symbol, err)
		}
		total = total.Add(pos.UnrealizedPnL(price))
	}
	return total, nil
}

// PlaceBuyOrder places a buy order. For market orders it returns the fill
// price; for limit orders it queues a pending order and returns its ID.
func (e *Engine) PlaceBuyOrder(ctx context.Context, symbol string, quantity int64, kind domain.OrderKind, limitPrice decimal.Decimal) (domain.OrderResult, error) {
	return e.placeOrder(ctx, domain.SideBuy, symbol, quantity, kind, limitPrice)
}

// PlaceSellOrder places a sell order. Short selling is not supported: the
// position must already hold at least the requested quantity.
func (e *Engine) PlaceSellOrder(ctx context.Context, symbol string, quantity int64, kind domain.OrderKind, limitPrice decimal.Decimal) (domain.OrderResult, error) {
	return e.placeOrder(ctx, domain.SideSell, symbol, quantity, kind, limitPrice)
}

// placeOrder runs the shared validation chain and dispatches to immediate
// execution (market) or queueing (limit). Validation order matters: each
// check is a distinct failure mode and nothing mutates before all pass.
func (e *Engine) placeOrder(ctx context.Context, side domain.Side, symbol string, quantity int64, kind domain.OrderKind, limitPrice decimal.Decimal) (domain.OrderResult, error) {
	if quantity <= 0 {
		return domain.OrderResult{}, fmt.Errorf("engine.placeOrder: %d: %w", quantity, domain.ErrInvalidQuantity)
	}
	if kind == domain.OrderKindLimit && !limitPrice.IsPositive() {
		return domain.OrderResult{}, fmt.Errorf("engine.placeOrder: %s: %w", limitPrice, domain.ErrInvalidLimitPrice)
	}

	acct, err := e.storage.EnsureAccount(ctx, e.cfg.AccountID)
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("engine.placeOrder: %w", err)
	}

	if side == domain.SideSell {
		pos, ok, err := e.storage.GetPosition(ctx, acct.ID, acct.Mode, symbol)
		if err != nil {
			return domain.OrderResult{}, fmt.Errorf("engine.placeOrder: %w", err)
		}
		if !ok || pos.Quantity < quantity {
			return domain.OrderResult{}, fmt.Errorf("engine.placeOrder: %s x%d: %w",
				symbol, quantity, domain.ErrInsufficientShares)
		}
	}

	// Only live-mode market orders are hours-gated. Limit orders queue at
	// any time and demo money trades around the clock.
	if kind == domain.OrderKindMarket && !acct.IsDemo() && !e.IsMarketOpen() {
		return domain.OrderResult{}, fmt.Errorf("engine.placeOrder: %w", domain.ErrMarketClosed)
	}

	if kind == domain.OrderKindLimit {
		return e.queueLimitOrder(ctx, acct, side, symbol, quantity, limitPrice)
	}
	return e.executeMarketOrder(ctx, acct, side, symbol, quantity)
}

// queueLimitOrder inserts a pending order. No funds are reserved: buy
// sufficiency is re-checked at fill time by the sweep.
func (e *Engine) queueLimitOrder(ctx context.Context, acct domain.Account, side domain.Side, symbol string, quantity int64, limitPrice decimal.Decimal) (domain.OrderResult, error) {
	order := domain.PendingOrder{
		ID:         uuid.New().String(),
		AccountID:  acct.ID,
		Mode:       acct.Mode,
		Side:       side,
		Symbol:     symbol,
		Quantity:   quantity,
		LimitPrice: limitPrice,
		CreatedAt:  e.now(),
	}
	if err := e.storage.SavePendingOrder(ctx, order); err != nil {
		return domain.OrderResult{}, fmt.Errorf("engine.queueLimitOrder: %w", err)
	}

	slog.Info("limit order queued",
		"id", order.ID, "side", side, "symbol", symbol,
		"qty", quantity, "limit", limitPrice, "mode", acct.Mode)

	return domain.OrderResult{
		Pending:    true,
		OrderID:    order.ID,
		Side:       side,
		Symbol:     symbol,
		Quantity:   quantity,
		LimitPrice: limitPrice,
		Kind:       domain.OrderKindLimit,
	}, nil
}

// executeMarketOrder fetches the current price and applies the fill
// atomically. Insufficient funds or shares surface as typed errors with
// no partial write.
func (e *Engine) executeMarketOrder(ctx context.Context, acct domain.Account, side domain.Side, symbol string, quantity int64) (domain.OrderResult, error) {
	price, err := e.getPrice(ctx, acct.Mode, symbol)
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("engine.executeMarketOrder: %w", err)
	}

	fill := domain.Fill{
		AccountID:  acct.ID,
		Mode:       acct.Mode,
		Side:       side,
		Symbol:     symbol,
		Quantity:   quantity,
		Price:      price,
		Kind:       domain.OrderKindMarket,
		ExecutedAt: e.now(),
	}
	if _, err := e.storage.ApplyFill(ctx, fill); err != nil {
		return domain.OrderResult{}, fmt.Errorf("engine.executeMarketOrder: %w", err)
	}

	slog.Info("market order filled",
		"side", side, "symbol", symbol, "qty", quantity,
		"price", price, "mode", acct.Mode)

	return domain.OrderResult{
		Side:     side,
		Symbol:   symbol,
		Quantity: quantity,
		Price:    price,
		Kind:     domain.OrderKindMarket,
	}, nil
}

// CancelOrder removes a pending order and returns its original terms.
// Cancelling an already-filled or unknown order fails with ErrOrderNotFound.
func (e *Engine) CancelOrder(ctx context.Context, orderID string) (domain.PendingOrder, error) {
	acct, err := e.storage.EnsureAccount(ctx, e.cfg.AccountID)
	if err != nil {
		return domain.PendingOrder{}, fmt.Errorf("engine.CancelOrder: %w", err)
	}
	order, err := e.storage.DeletePendingOrder(ctx, acct.ID, acct.Mode, orderID)
	if err != nil {
		return domain.PendingOrder{}, fmt.Errorf("engine.CancelOrder: %w", err)
	}
	slog.Info("order cancelled", "id", order.ID, "side", order.Side,
		"symbol", order.Symbol, "qty", order.Quantity, "limit", order.LimitPrice)
	return order, nil
}

// SetDemoMode flips the demo/live flag. Balances and positions of both
// modes stay untouched; only the partition subsequent calls hit changes.
func (e *Engine) SetDemoMode(ctx context.Context, enabled bool) error {
	if _, err := e.storage.EnsureAccount(ctx, e.cfg.AccountID); err != nil {
		return fmt.Errorf("engine.SetDemoMode: %w", err)
	}
	mode := domain.ModeLive
	if enabled {
		mode = domain.ModeDemo
	}
	if err := e.storage.SetMode(ctx, e.cfg.AccountID, mode); err != nil {
		return fmt.Errorf("engine.SetDemoMode: %w", err)
	}
	slog.Info("trading mode changed", "mode", mode)
	return nil
}

// IsDemoMode reports whether the account currently trades simulated money.
func (e *Engine) IsDemoMode(ctx context.Context) (bool, error) {
	acct, err := e.storage.EnsureAccount(ctx, e.cfg.AccountID)
	if err != nil {
		return false, fmt.Errorf("engine.IsDemoMode: %w", err)
	}
	return acct.IsDemo(), nil
}

// IsMarketOpen reports whether the exchange is open right now.
func (e *Engine) IsMarketOpen() bool {
	return e.calendar.IsOpen(e.now())
}

// GetQuote returns the current price for a symbol in the active mode:
// the cached/fetched live price, or the next step of the demo walk.
func (e *Engine) GetQuote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	acct, err := e.storage.EnsureAccount(ctx, e.cfg.AccountID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("engine.GetQuote: %w", err)
	}
	return e.getPrice(ctx, acct.Mode, symbol)
}
