package execution

import (
	"context"
	"testing"
	"time"

	"code.meridianprotocol.io/meridian/core/market"
	"code.meridianprotocol.io/meridian/core/types"
	"code.meridianprotocol.io/meridian/libs/num"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncreasePosition(t *testing.T) {
	t.Run("opens a long and reserves its open interest", testIncreaseOpensLong)
	t.Run("acceptable price bounds the execution price", testIncreaseAcceptablePrice)
	t.Run("borrowing factor snapshot tracks the market factor", testIncreaseBorrowingSnapshot)
	t.Run("trade count grows with every position touch", testIncreaseTradeCount)
	t.Run("collateral below the minimum factor is rejected", testIncreaseUndercollateralized)
	t.Run("empty position of another market is rejected", testIncreaseWrongMarket)
}

func openTestLong(t *testing.T, eng *testEngine, marketID string, collateral, sizeUsd *num.Uint, prices *types.Prices) *types.Position {
	t.Helper()
	pos := types.NewPosition("pos-1", "alice", marketID, true, true)
	_, err := eng.IncreasePosition(context.Background(), marketID, pos, IncreasePositionParams{
		CollateralIncrementAmount: collateral,
		SizeDeltaUsd:              sizeUsd,
	}, prices)
	require.NoError(t, err)
	return pos
}

func testIncreaseOpensLong(t *testing.T) {
	eng := getTestEngine(t)
	m := newTestMarket(t, "mkt-1", nil)
	eng.addMarket(t, m)
	prices := types.NewPrices(123, 123, 1)
	eng.seedLiquidity(t, "mkt-1", 1_000_000_000_000, 100_000_000_000_000, prices)

	size := num.MustUintFromString("50000000000000")
	pos := openTestLong(t, eng, "mkt-1", num.NewUint(1_000_000_000_000), size, prices)

	assert.Equal(t, size.String(), pos.SizeInUsd.String())
	assert.False(t, pos.SizeInTokens.IsZero())
	assert.True(t, pos.CollateralAmount.GTUint64(0))
	// collateral is the increment minus the order fee
	assert.True(t, pos.CollateralAmount.LT(num.NewUint(1_000_000_000_000)))

	rm := market.NewRevertible(m)
	assert.Equal(t, size.String(), rm.OpenInterest(true).String())
	assert.Equal(t, pos.SizeInTokens.String(), rm.OpenInterestInTokens(true).String())
	assert.True(t, rm.OpenInterest(false).IsZero())

	// the store holds the committed position
	stored, err := eng.positions.GetPosition("pos-1")
	require.NoError(t, err)
	assert.Equal(t, pos.SizeInUsd.String(), stored.SizeInUsd.String())
	marketBalancesHold(t, eng, "mkt-1")
}

func testIncreaseAcceptablePrice(t *testing.T) {
	eng := getTestEngine(t)
	m := newTestMarket(t, "mkt-1", nil)
	eng.addMarket(t, m)
	prices := types.NewPrices(123, 123, 1)
	eng.seedLiquidity(t, "mkt-1", 1_000_000_000, 0, prices)
	eng.seedLiquidity(t, "mkt-1", 0, 1_000_000_000, prices)

	pos := types.NewPosition("pos-1", "alice", "mkt-1", true, true)
	_, err := eng.IncreasePosition(context.Background(), "mkt-1", pos, IncreasePositionParams{
		CollateralIncrementAmount: num.NewUint(100_000_000),
		SizeDeltaUsd:              num.NewUint(8_000_000_000),
		AcceptablePrice:           num.NewUint(100),
	}, prices)
	assert.ErrorIs(t, err, types.ErrOrderNotFulfillableAtAcceptablePrice)

	// nothing committed, nothing stored
	assert.True(t, pos.IsEmpty())
	rm := market.NewRevertible(m)
	assert.True(t, rm.OpenInterest(true).IsZero())
	assert.Equal(t, 0, eng.positions.Len())
}

func testIncreaseBorrowingSnapshot(t *testing.T) {
	eng := getTestEngine(t)
	m := newTestMarket(t, "mkt-1", nil)
	eng.addMarket(t, m)
	prices := types.NewPrices(123, 123, 1)
	ctx := context.Background()
	eng.seedLiquidity(t, "mkt-1", 1_000_000_000_000, 100_000_000_000_000, prices)

	pos := openTestLong(t, eng, "mkt-1",
		num.NewUint(1_000_000_000_000), num.MustUintFromString("50000000000000"), prices)

	eng.OnTick(ctx, time.Unix(testStart+100, 0))
	_, err := eng.IncreasePosition(ctx, "mkt-1", pos, IncreasePositionParams{
		SizeDeltaUsd: num.MustUintFromString("1000000000000"),
	}, prices)
	require.NoError(t, err)

	rm := market.NewRevertible(m)
	assert.True(t, pos.BorrowingFactor.GTUint64(0))
	assert.Equal(t, rm.CumulativeBorrowingFactor(true).String(), pos.BorrowingFactor.String())
}

func testIncreaseTradeCount(t *testing.T) {
	eng := getTestEngine(t)
	m := newTestMarket(t, "mkt-1", nil)
	eng.addMarket(t, m)
	prices := types.NewPrices(123, 123, 1)
	eng.seedLiquidity(t, "mkt-1", 1_000_000_000_000, 100_000_000_000_000, prices)

	require.EqualValues(t, 0, m.TradeCount())
	pos := openTestLong(t, eng, "mkt-1",
		num.NewUint(1_000_000_000_000), num.MustUintFromString("50000000000000"), prices)
	assert.EqualValues(t, 1, m.TradeCount())
	assert.EqualValues(t, 1, pos.TradeID)

	_, err := eng.IncreasePosition(context.Background(), "mkt-1", pos, IncreasePositionParams{
		SizeDeltaUsd: num.MustUintFromString("1000000000000"),
	}, prices)
	require.NoError(t, err)
	assert.EqualValues(t, 2, m.TradeCount())
	assert.EqualValues(t, 2, pos.TradeID)
}

func testIncreaseUndercollateralized(t *testing.T) {
	eng := getTestEngine(t)
	m := newTestMarket(t, "mkt-1", nil)
	eng.addMarket(t, m)
	prices := types.NewPrices(123, 123, 1)
	eng.seedLiquidity(t, "mkt-1", 1_000_000_000_000, 100_000_000_000_000, prices)

	// 1% of 5e13 usd is 5e11, one token of collateral is worth 123
	pos := types.NewPosition("pos-1", "alice", "mkt-1", true, true)
	_, err := eng.IncreasePosition(context.Background(), "mkt-1", pos, IncreasePositionParams{
		CollateralIncrementAmount: num.NewUint(1_000_000),
		SizeDeltaUsd:              num.MustUintFromString("50000000000000"),
	}, prices)
	assert.Error(t, err)
	assert.True(t, pos.IsEmpty())
}

func testIncreaseWrongMarket(t *testing.T) {
	eng := getTestEngine(t)
	m := newTestMarket(t, "mkt-1", nil)
	eng.addMarket(t, m)

	pos := types.NewPosition("pos-1", "alice", "other", true, true)
	_, err := eng.IncreasePosition(context.Background(), "mkt-1", pos, IncreasePositionParams{
		SizeDeltaUsd: num.NewUint(1),
	}, types.NewPrices(123, 123, 1))
	assert.ErrorIs(t, err, types.ErrInvalidPosition)
}
