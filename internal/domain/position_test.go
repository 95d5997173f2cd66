package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestApplyBuy_FirstFill(t *testing.T) {
	pos := Position{Symbol: "AAPL"}
	pos = pos.ApplyBuy(10, d("100"))

	assert.Equal(t, int64(10), pos.Quantity)
	assert.True(t, pos.AvgCost.Equal(d("100")), "avg cost = %s", pos.AvgCost)
}

func TestApplyBuy_WeightedAverage(t *testing.T) {
	pos := Position{Symbol: "AAPL"}
	pos = pos.ApplyBuy(10, d("100"))
	pos = pos.ApplyBuy(5, d("130"))

	// (10*100 + 5*130) / 15 = 110
	assert.Equal(t, int64(15), pos.Quantity)
	assert.True(t, pos.AvgCost.Equal(d("110")), "avg cost = %s", pos.AvgCost)
}

func TestApplyBuy_OrderIndependent(t *testing.T) {
	a := Position{}.ApplyBuy(3, d("10")).ApplyBuy(7, d("20"))
	b := Position{}.ApplyBuy(7, d("20")).ApplyBuy(3, d("10"))

	assert.True(t, a.AvgCost.Equal(b.AvgCost), "%s != %s", a.AvgCost, b.AvgCost)
}

func TestApplySell_KeepsAvgCost(t *testing.T) {
	pos := Position{}.ApplyBuy(10, d("100"))
	pos = pos.ApplySell(4)

	assert.Equal(t, int64(6), pos.Quantity)
	assert.True(t, pos.AvgCost.Equal(d("100")))
}

func TestUnrealizedPnL(t *testing.T) {
	pos := Position{}.ApplyBuy(10, d("100"))

	assert.True(t, pos.UnrealizedPnL(d("105")).Equal(d("50")))
	assert.True(t, pos.UnrealizedPnL(d("95")).Equal(d("-50")))
}

func TestPendingOrder_Triggers(t *testing.T) {
	buy := PendingOrder{Side: SideBuy, LimitPrice: d("50")}
	assert.True(t, buy.Triggers(d("49")))
	assert.True(t, buy.Triggers(d("50")))
	assert.False(t, buy.Triggers(d("50.01")))

	sell := PendingOrder{Side: SideSell, LimitPrice: d("50")}
	assert.True(t, sell.Triggers(d("51")))
	assert.True(t, sell.Triggers(d("50")))
	assert.False(t, sell.Triggers(d("49.99")))
}

func TestAccount_BalanceByMode(t *testing.T) {
	acct := Account{Mode: ModeLive, DemoBalance: d("1"), LiveBalance: d("2")}
	assert.True(t, acct.Balance().Equal(d("2")))

	acct.Mode = ModeDemo
	assert.True(t, acct.Balance().Equal(d("1")))
	assert.True(t, acct.IsDemo())
}
