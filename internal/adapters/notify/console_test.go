package notify_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/alejandrodnm/stockbot/internal/adapters/notify"
	"github.com/alejandrodnm/stockbot/internal/domain"
)

func TestPrintStatus(t *testing.T) {
	var buf bytes.Buffer
	console := notify.NewConsoleWriter(&buf)

	console.PrintStatus(notify.StatusInput{
		Mode:       domain.ModeLive,
		Balance:    decimal.RequireFromString("99000"),
		PnL:        decimal.RequireFromString("50"),
		HasPnL:     true,
		MarketOpen: true,
		Positions: []domain.Position{
			{Symbol: "AAPL", Quantity: 10, AvgCost: decimal.RequireFromString("100")},
			{Symbol: "MSFT", Quantity: 5, AvgCost: decimal.RequireFromString("50")},
		},
		Prices: map[string]decimal.Decimal{
			"AAPL": decimal.RequireFromString("105"),
			// MSFT sin precio: la fila sale con "-"
		},
		Pending: []domain.PendingOrder{
			{
				ID:         "3f6c1a2b-0000-0000-0000-000000000000",
				Side:       domain.SideBuy,
				Symbol:     "NVDA",
				Quantity:   3,
				LimitPrice: decimal.RequireFromString("120"),
				CreatedAt:  time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC),
			},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "mode:live")
	assert.Contains(t, out, "balance:$99000.00")
	assert.Contains(t, out, "market:open")
	assert.Contains(t, out, "pnl:$50.00")
	assert.Contains(t, out, "AAPL")
	assert.Contains(t, out, "$105.00")
	assert.Contains(t, out, "MSFT")
	assert.Contains(t, out, "pending orders: 1")
	assert.Contains(t, out, "3f6c1a2b")
	assert.NotContains(t, out, "3f6c1a2b-0000", "el ID debe ir recortado")
}

func TestPrintStatus_OmitsPnLWhenUnavailable(t *testing.T) {
	var buf bytes.Buffer
	console := notify.NewConsoleWriter(&buf)

	console.PrintStatus(notify.StatusInput{
		Mode:    domain.ModeDemo,
		Balance: decimal.RequireFromString("100000"),
	})

	out := buf.String()
	assert.Contains(t, out, "mode:demo")
	assert.Contains(t, out, "market:closed")
	assert.NotContains(t, out, "pnl:")
}

func TestPrintHistory(t *testing.T) {
	var buf bytes.Buffer
	console := notify.NewConsoleWriter(&buf)

	console.PrintHistory([]domain.OrderRecord{
		{
			Side:       domain.SideSell,
			Symbol:     "AAPL",
			Quantity:   10,
			Price:      decimal.RequireFromString("105"),
			Kind:       domain.OrderKindMarket,
			Mode:       domain.ModeLive,
			ExecutedAt: time.Date(2025, 6, 2, 15, 4, 0, 0, time.UTC),
		},
	})

	out := buf.String()
	assert.Contains(t, out, "AAPL")
	assert.Contains(t, out, "sell")
	assert.Contains(t, out, "$105.00")
	assert.Contains(t, out, "2025-06-02 15:04")
}

func TestPrintHistory_Empty(t *testing.T) {
	var buf bytes.Buffer
	console := notify.NewConsoleWriter(&buf)

	console.PrintHistory(nil)
	assert.Contains(t, buf.String(), "no fills recorded")
}
