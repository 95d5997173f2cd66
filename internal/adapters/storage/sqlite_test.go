package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/stockbot/internal/adapters/storage"
	"github.com/alejandrodnm/stockbot/internal/domain"
)

func newTestStorage(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	s, err := storage.NewSQLiteStorage(":memory:", decimal.NewFromInt(100000))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestEnsureAccount_SeedsBothLedgers(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	acct, err := s.EnsureAccount(ctx, "global")
	require.NoError(t, err)
	assert.Equal(t, domain.ModeLive, acct.Mode)
	assert.True(t, acct.DemoBalance.Equal(d("100000")))
	assert.True(t, acct.LiveBalance.Equal(d("100000")))

	// Segunda llamada: misma cuenta, sin re-seed.
	again, err := s.EnsureAccount(ctx, "global")
	require.NoError(t, err)
	assert.True(t, again.LiveBalance.Equal(acct.LiveBalance))
}

func TestSetMode_FlipsFlagOnly(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	_, err := s.EnsureAccount(ctx, "global")
	require.NoError(t, err)

	require.NoError(t, s.SetMode(ctx, "global", domain.ModeDemo))
	acct, err := s.EnsureAccount(ctx, "global")
	require.NoError(t, err)
	assert.Equal(t, domain.ModeDemo, acct.Mode)
	assert.True(t, acct.LiveBalance.Equal(d("100000")))
	assert.True(t, acct.DemoBalance.Equal(d("100000")))
}

func TestApplyFill_BuyThenSell(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	_, err := s.EnsureAccount(ctx, "global")
	require.NoError(t, err)

	pos, err := s.ApplyFill(ctx, domain.Fill{
		AccountID: "global", Mode: domain.ModeLive, Side: domain.SideBuy,
		Symbol: "AAPL", Quantity: 10, Price: d("100"), Kind: domain.OrderKindMarket,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(10), pos.Quantity)
	assert.True(t, pos.AvgCost.Equal(d("100")))

	acct, err := s.EnsureAccount(ctx, "global")
	require.NoError(t, err)
	assert.True(t, acct.LiveBalance.Equal(d("99000")), "balance = %s", acct.LiveBalance)

	pos, err = s.ApplyFill(ctx, domain.Fill{
		AccountID: "global", Mode: domain.ModeLive, Side: domain.SideSell,
		Symbol: "AAPL", Quantity: 10, Price: d("105"), Kind: domain.OrderKindMarket,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), pos.Quantity)

	// Posición cerrada → la fila desaparece.
	_, ok, err := s.GetPosition(ctx, "global", domain.ModeLive, "AAPL")
	require.NoError(t, err)
	assert.False(t, ok)

	acct, err = s.EnsureAccount(ctx, "global")
	require.NoError(t, err)
	assert.True(t, acct.LiveBalance.Equal(d("100050")), "balance = %s", acct.LiveBalance)
}

func TestApplyFill_InsufficientFundsLeavesNothingBehind(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	_, err := s.EnsureAccount(ctx, "global")
	require.NoError(t, err)

	_, err = s.ApplyFill(ctx, domain.Fill{
		AccountID: "global", Mode: domain.ModeLive, Side: domain.SideBuy,
		Symbol: "AAPL", Quantity: 2000, Price: d("100"), Kind: domain.OrderKindMarket,
	})
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	acct, err := s.EnsureAccount(ctx, "global")
	require.NoError(t, err)
	assert.True(t, acct.LiveBalance.Equal(d("100000")))

	_, ok, err := s.GetPosition(ctx, "global", domain.ModeLive, "AAPL")
	require.NoError(t, err)
	assert.False(t, ok)

	history, err := s.GetOrderHistory(ctx, "global", domain.ModeLive, 10)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestApplyFill_InsufficientShares(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	_, err := s.EnsureAccount(ctx, "global")
	require.NoError(t, err)

	_, err = s.ApplyFill(ctx, domain.Fill{
		AccountID: "global", Mode: domain.ModeLive, Side: domain.SideSell,
		Symbol: "AAPL", Quantity: 1, Price: d("100"), Kind: domain.OrderKindMarket,
	})
	require.ErrorIs(t, err, domain.ErrInsufficientShares)
}

func TestApplyFill_ModesAreIsolated(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	_, err := s.EnsureAccount(ctx, "global")
	require.NoError(t, err)

	_, err = s.ApplyFill(ctx, domain.Fill{
		AccountID: "global", Mode: domain.ModeDemo, Side: domain.SideBuy,
		Symbol: "AAPL", Quantity: 10, Price: d("100"), Kind: domain.OrderKindMarket,
	})
	require.NoError(t, err)

	// El ledger live no se entera.
	acct, err := s.EnsureAccount(ctx, "global")
	require.NoError(t, err)
	assert.True(t, acct.LiveBalance.Equal(d("100000")))
	assert.True(t, acct.DemoBalance.Equal(d("99000")))

	livePositions, err := s.GetPositions(ctx, "global", domain.ModeLive)
	require.NoError(t, err)
	assert.Empty(t, livePositions)

	demoPositions, err := s.GetPositions(ctx, "global", domain.ModeDemo)
	require.NoError(t, err)
	require.Len(t, demoPositions, 1)
	assert.Equal(t, "AAPL", demoPositions[0].Symbol)
}

func TestPendingOrders_SaveGetDelete(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	_, err := s.EnsureAccount(ctx, "global")
	require.NoError(t, err)

	order := domain.PendingOrder{
		ID: "ord-1", AccountID: "global", Mode: domain.ModeLive,
		Side: domain.SideBuy, Symbol: "MSFT", Quantity: 5,
		LimitPrice: d("50"), CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, s.SavePendingOrder(ctx, order))

	pending, err := s.GetPendingOrders(ctx, "global", domain.ModeLive)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "ord-1", pending[0].ID)
	assert.True(t, pending[0].LimitPrice.Equal(d("50")))

	// Otro modo no ve la orden.
	demoPending, err := s.GetPendingOrders(ctx, "global", domain.ModeDemo)
	require.NoError(t, err)
	assert.Empty(t, demoPending)

	got, err := s.DeletePendingOrder(ctx, "global", domain.ModeLive, "ord-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SideBuy, got.Side)
	assert.Equal(t, int64(5), got.Quantity)
	assert.True(t, got.LimitPrice.Equal(d("50")))

	_, err = s.DeletePendingOrder(ctx, "global", domain.ModeLive, "ord-1")
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestDeletePendingOrder_WrongModeIsNotFound(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	_, err := s.EnsureAccount(ctx, "global")
	require.NoError(t, err)

	require.NoError(t, s.SavePendingOrder(ctx, domain.PendingOrder{
		ID: "ord-1", AccountID: "global", Mode: domain.ModeDemo,
		Side: domain.SideSell, Symbol: "AAPL", Quantity: 1,
		LimitPrice: d("120"), CreatedAt: time.Now().UTC(),
	}))

	_, err = s.DeletePendingOrder(ctx, "global", domain.ModeLive, "ord-1")
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestApplyFill_ConsumesPendingOrderExactlyOnce(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	_, err := s.EnsureAccount(ctx, "global")
	require.NoError(t, err)

	require.NoError(t, s.SavePendingOrder(ctx, domain.PendingOrder{
		ID: "ord-1", AccountID: "global", Mode: domain.ModeLive,
		Side: domain.SideBuy, Symbol: "MSFT", Quantity: 5,
		LimitPrice: d("50"), CreatedAt: time.Now().UTC(),
	}))

	fill := domain.Fill{
		AccountID: "global", Mode: domain.ModeLive, Side: domain.SideBuy,
		Symbol: "MSFT", Quantity: 5, Price: d("50"),
		Kind: domain.OrderKindLimit, PendingOrderID: "ord-1",
	}
	_, err = s.ApplyFill(ctx, fill)
	require.NoError(t, err)

	pending, err := s.GetPendingOrders(ctx, "global", domain.ModeLive)
	require.NoError(t, err)
	assert.Empty(t, pending)

	// Repetir el mismo fill no puede ejecutar dos veces.
	_, err = s.ApplyFill(ctx, fill)
	require.ErrorIs(t, err, domain.ErrOrderNotFound)

	acct, err := s.EnsureAccount(ctx, "global")
	require.NoError(t, err)
	assert.True(t, acct.LiveBalance.Equal(d("99750")), "balance = %s", acct.LiveBalance)
}

func TestOrderHistory_MostRecentFirst(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	_, err := s.EnsureAccount(ctx, "global")
	require.NoError(t, err)

	base := time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC)
	for i, sym := range []string{"AAPL", "MSFT", "NVDA"} {
		_, err := s.ApplyFill(ctx, domain.Fill{
			AccountID: "global", Mode: domain.ModeLive, Side: domain.SideBuy,
			Symbol: sym, Quantity: 1, Price: d("10"),
			Kind: domain.OrderKindMarket, ExecutedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	history, err := s.GetOrderHistory(ctx, "global", domain.ModeLive, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "NVDA", history[0].Symbol)
	assert.Equal(t, "MSFT", history[1].Symbol)
}

func TestDemoPrices_Roundtrip(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	_, ok, err := s.GetDemoPrice(ctx, "AAPL")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SaveDemoPrice(ctx, "AAPL", d("104.2")))
	price, ok, err := s.GetDemoPrice(ctx, "AAPL")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, price.Equal(d("104.2")))

	// Upsert sobre el mismo símbolo.
	require.NoError(t, s.SaveDemoPrice(ctx, "AAPL", d("98.7")))
	price, ok, err = s.GetDemoPrice(ctx, "AAPL")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, price.Equal(d("98.7")))
}

func TestUnknownSideFails(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	_, err := s.EnsureAccount(ctx, "global")
	require.NoError(t, err)

	_, err = s.ApplyFill(ctx, domain.Fill{
		AccountID: "global", Mode: domain.ModeLive, Side: "hold",
		Symbol: "AAPL", Quantity: 1, Price: d("10"), Kind: domain.OrderKindMarket,
	})
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrInsufficientFunds))
}
