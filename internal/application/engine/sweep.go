package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/stockbot/internal/domain"
)

// CheckPendingOrders scans the pending limit orders of the active mode
// and executes those whose trigger condition is met, at the limit price —
// the user gets their requested price, not the (possibly better) live one.
//
// Under-resourced fills are not failures: a triggered buy without funds,
// or a triggered sell whose shares were sold elsewhere, stays pending and
// is retried on the next sweep. Orders are grouped by symbol so each
// symbol costs at most one price fetch per pass.
func (e *Engine) CheckPendingOrders(ctx context.Context) error {
	acct, err := e.storage.EnsureAccount(ctx, e.cfg.AccountID)
	if err != nil {
		return fmt.Errorf("engine.CheckPendingOrders: %w", err)
	}
	orders, err := e.storage.GetPendingOrders(ctx, acct.ID, acct.Mode)
	if err != nil {
		return fmt.Errorf("engine.CheckPendingOrders: %w", err)
	}
	if len(orders) == 0 {
		return nil
	}

	bySymbol := make(map[string][]domain.PendingOrder)
	var symbols []string
	for _, o := range orders {
		if _, seen := bySymbol[o.Symbol]; !seen {
			symbols = append(symbols, o.Symbol)
		}
		bySymbol[o.Symbol] = append(bySymbol[o.Symbol], o)
	}

	filled := 0
	for _, symbol := range symbols {
		price, err := e.getPrice(ctx, acct.Mode, symbol)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Warn("sweep: no price for symbol, skipping", "symbol", symbol, "err", err)
			continue
		}

		for _, order := range bySymbol[symbol] {
			if !order.Triggers(price) {
				continue
			}

			fill := domain.Fill{
				AccountID:      acct.ID,
				Mode:           acct.Mode,
				Side:           order.Side,
				Symbol:         order.Symbol,
				Quantity:       order.Quantity,
				Price:          order.LimitPrice,
				Kind:           domain.OrderKindLimit,
				PendingOrderID: order.ID,
				ExecutedAt:     e.now(),
			}
			_, err := e.storage.ApplyFill(ctx, fill)
			switch {
			case err == nil:
				filled++
				slog.Info("limit order filled",
					"id", order.ID, "side", order.Side, "symbol", order.Symbol,
					"qty", order.Quantity, "limit", order.LimitPrice, "market", price)
			case errors.Is(err, domain.ErrInsufficientFunds),
				errors.Is(err, domain.ErrInsufficientShares):
				// Not enough resources right now; the order stays pending.
				slog.Debug("sweep: limit order deferred",
					"id", order.ID, "symbol", order.Symbol, "err", err)
			case errors.Is(err, domain.ErrOrderNotFound):
				// Raced with a concurrent sweep or a cancellation.
				slog.Debug("sweep: order already gone", "id", order.ID)
			default:
				slog.Warn("sweep: limit fill failed",
					"id", order.ID, "symbol", order.Symbol, "err", err)
			}
		}
	}

	if filled > 0 {
		slog.Info("sweep complete", "checked", len(orders), "filled", filled, "mode", acct.Mode)
	}
	return nil
}
