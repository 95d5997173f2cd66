package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/stockbot/internal/adapters/notify"
	"github.com/alejandrodnm/stockbot/internal/application/engine"
	"github.com/alejandrodnm/stockbot/internal/domain"
)

const historyLimit = 30

// runSweepLoop matches pending limit orders on a fixed interval and prints
// the portfolio dashboard after each pass. A STOP file in the working
// directory shuts the loop down, same as Ctrl+C.
func runSweepLoop(ctx context.Context, eng *engine.Engine, console *notify.Console, interval time.Duration) {
	stopFile := "STOP"
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("sweep loop started — press Ctrl+C or create STOP file to exit",
		"interval", interval)

	runSweepCycle(ctx, eng, console)

	for {
		select {
		case <-ctx.Done():
			slog.Info("sweep loop stopped (signal)")
			return
		case <-ticker.C:
			if _, err := os.Stat(stopFile); err == nil {
				slog.Info("STOP file detected — shutting down")
				os.Remove(stopFile)
				return
			}
			runSweepCycle(ctx, eng, console)
		}
	}
}

func runSweepCycle(ctx context.Context, eng *engine.Engine, console *notify.Console) {
	if err := eng.CheckPendingOrders(ctx); err != nil {
		slog.Error("sweep failed", "err", err)
		return
	}
	printStatus(ctx, eng, console)
}

// printStatus collects the dashboard snapshot. A symbol without a price
// (provider down) shows as "-" instead of aborting the whole cycle.
func printStatus(ctx context.Context, eng *engine.Engine, console *notify.Console) {
	balance, err := eng.GetBalance(ctx)
	if err != nil {
		slog.Error("failed to read balance", "err", err)
		return
	}
	demo, err := eng.IsDemoMode(ctx)
	if err != nil {
		slog.Error("failed to read mode", "err", err)
		return
	}
	positions, err := eng.GetPositions(ctx)
	if err != nil {
		slog.Warn("failed to read positions", "err", err)
	}
	pending, err := eng.GetPendingOrders(ctx)
	if err != nil {
		slog.Warn("failed to read pending orders", "err", err)
	}

	prices := make(map[string]decimal.Decimal, len(positions))
	pnl := decimal.Zero
	hasPnL := len(positions) > 0
	for _, pos := range positions {
		price, err := eng.GetQuote(ctx, pos.Symbol)
		if err != nil {
			slog.Warn("no price for dashboard", "symbol", pos.Symbol, "err", err)
			hasPnL = false
			continue
		}
		prices[pos.Symbol] = price
		pnl = pnl.Add(pos.UnrealizedPnL(price))
	}

	st := notify.StatusInput{
		Balance:    balance,
		PnL:        pnl,
		HasPnL:     hasPnL,
		MarketOpen: eng.IsMarketOpen(),
		Positions:  positions,
		Prices:     prices,
		Pending:    pending,
	}
	st.Mode = domain.ModeLive
	if demo {
		st.Mode = domain.ModeDemo
	}
	console.PrintStatus(st)
}

func runReport(ctx context.Context, eng *engine.Engine, console *notify.Console) {
	records, err := eng.GetOrderHistory(ctx, historyLimit)
	if err != nil {
		slog.Error("failed to read order history", "err", err)
		os.Exit(1)
	}
	console.PrintHistory(records)
}
