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

func TestNextFundingFactorPerSecond(t *testing.T) {
	t.Run("balanced open interest keeps a zero rate at zero", func(t *testing.T) {
		rm := market.NewRevertible(newTestMarket(t, "mkt-1", nil))
		next, err := nextFundingFactorPerSecond(rm, 10, num.NewUint(1_000), num.NewUint(1_000))
		require.NoError(t, err)
		assert.True(t, next.IsZero())
	})

	t.Run("long heavy open interest grows a positive rate", func(t *testing.T) {
		rm := market.NewRevertible(newTestMarket(t, "mkt-1", nil))
		next, err := nextFundingFactorPerSecond(rm, 10, num.NewUint(60_000), num.NewUint(40_000))
		require.NoError(t, err)
		assert.True(t, next.IsPositive())
	})

	t.Run("short heavy open interest grows a negative rate", func(t *testing.T) {
		rm := market.NewRevertible(newTestMarket(t, "mkt-1", nil))
		next, err := nextFundingFactorPerSecond(rm, 10, num.NewUint(40_000), num.NewUint(60_000))
		require.NoError(t, err)
		assert.True(t, next.IsNegative())
	})

	t.Run("a rate against the heavier side keeps growing toward it", func(t *testing.T) {
		rm := market.NewRevertible(newTestMarket(t, "mkt-1", nil))
		rm.SetFundingFactorPerSecond(num.NewInt(-1_000))
		next, err := nextFundingFactorPerSecond(rm, 10, num.NewUint(60_000), num.NewUint(40_000))
		require.NoError(t, err)
		assert.True(t, next.GT(num.NewInt(-1_000)))
	})

	t.Run("small imbalance decays the rate toward zero", func(t *testing.T) {
		rm := market.NewRevertible(newTestMarket(t, "mkt-1", nil))
		rm.SetFundingFactorPerSecond(num.NewInt(10_000))
		// decrease factor is 500 per second
		next, err := nextFundingFactorPerSecond(rm, 10, num.NewUint(100_000), num.NewUint(99_999))
		require.NoError(t, err)
		assert.Equal(t, "5000", next.String())

		rm.SetFundingFactorPerSecond(next)
		next, err = nextFundingFactorPerSecond(rm, 100, num.NewUint(100_000), num.NewUint(99_999))
		require.NoError(t, err)
		assert.True(t, next.IsZero())
	})

	t.Run("the rate magnitude is clamped to the configured maximum", func(t *testing.T) {
		rm := market.NewRevertible(newTestMarket(t, "mkt-1", nil))
		next, err := nextFundingFactorPerSecond(rm, 1_000_000, num.NewUint(1_000_000), num.NewUint(1))
		require.NoError(t, err)
		assert.Equal(t, "100000000", next.AbsUint().String())
	})
}

func TestFundingAndBorrowingUpdates(t *testing.T) {
	t.Run("funding settles from the payer side to the receiver side", testFundingSettles)
	t.Run("zero elapsed time is a no-op on all pools", testFundingIdempotentAtZeroDt)
	t.Run("borrowing accrues the cumulative factor per side", testBorrowingAccrues)
	t.Run("borrowing skips the smaller side when configured", testBorrowingSkipsSmallerSide)
}

// seedTwoSidedPositions opens a long and a short position so both open
// interest sides are non zero.
func seedTwoSidedPositions(t *testing.T, eng *testEngine, marketID string, prices *types.Prices) {
	t.Helper()
	ctx := context.Background()
	long := types.NewPosition("pos-long", "alice", marketID, true, true)
	_, err := eng.IncreasePosition(ctx, marketID, long, IncreasePositionParams{
		CollateralIncrementAmount: num.NewUint(1_000_000_000_000),
		SizeDeltaUsd:              num.MustUintFromString("50000000000000"),
	}, prices)
	require.NoError(t, err)

	short := types.NewPosition("pos-short", "bob", marketID, false, false)
	_, err = eng.IncreasePosition(ctx, marketID, short, IncreasePositionParams{
		CollateralIncrementAmount: num.MustUintFromString("30000000000000"),
		SizeDeltaUsd:              num.MustUintFromString("20000000000000"),
	}, prices)
	require.NoError(t, err)
}

func testFundingSettles(t *testing.T) {
	eng := getTestEngine(t)
	m := newTestMarket(t, "mkt-1", nil)
	eng.addMarket(t, m)
	prices := types.NewPrices(123, 123, 1)
	ctx := context.Background()
	eng.seedLiquidity(t, "mkt-1", 1_000_000_000_000, 100_000_000_000_000, prices)
	seedTwoSidedPositions(t, eng, "mkt-1", prices)

	eng.OnTick(ctx, time.Unix(testStart+10, 0))
	report, err := eng.UpdateFunding(ctx, "mkt-1", prices)
	require.NoError(t, err)

	assert.EqualValues(t, 10, report.Seconds)
	// longs are the heavier side so they pay
	assert.True(t, report.NextFundingFactorPerSecond.IsPositive())
	assert.True(t, report.FundingAmountPerSizeDelta.ForLong.Long.GTUint64(0))
	// the claimable accumulator is denominated in the tokens the payers
	// paid, so the receiver side accrues in the payer collateral token slot
	assert.True(t, report.ClaimableFundingAmountPerSizeDelta.ForShort.Long.GTUint64(0))
	assert.True(t, report.ClaimableFundingAmountPerSizeDelta.ForShort.Short.IsZero())

	assert.True(t, m.Pool(market.PoolFundingAmountPerSizeForLong).LongAmount().GTUint64(0))
	assert.True(t, m.Pool(market.PoolClaimableFundingAmountPerSizeForShort).LongAmount().GTUint64(0))
	assert.True(t, m.Pool(market.PoolClaimableFundingAmountPerSizeForShort).ShortAmount().IsZero())
}

func testFundingIdempotentAtZeroDt(t *testing.T) {
	eng := getTestEngine(t)
	m := newTestMarket(t, "mkt-1", nil)
	eng.addMarket(t, m)
	prices := types.NewPrices(123, 123, 1)
	ctx := context.Background()
	eng.seedLiquidity(t, "mkt-1", 1_000_000_000_000, 100_000_000_000_000, prices)
	seedTwoSidedPositions(t, eng, "mkt-1", prices)

	eng.OnTick(ctx, time.Unix(testStart+10, 0))
	_, err := eng.UpdateFunding(ctx, "mkt-1", prices)
	require.NoError(t, err)

	payerBefore := m.Pool(market.PoolFundingAmountPerSizeForLong).LongAmount().String()
	claimableBefore := m.Pool(market.PoolClaimableFundingAmountPerSizeForShort).LongAmount().String()
	factorBefore := m.FundingFactorPerSecond().String()

	report, err := eng.UpdateFunding(ctx, "mkt-1", prices)
	require.NoError(t, err)

	assert.True(t, report.IsEmpty())
	assert.Equal(t, payerBefore, m.Pool(market.PoolFundingAmountPerSizeForLong).LongAmount().String())
	assert.Equal(t, claimableBefore, m.Pool(market.PoolClaimableFundingAmountPerSizeForShort).LongAmount().String())
	assert.Equal(t, factorBefore, m.FundingFactorPerSecond().String())
}

func testBorrowingAccrues(t *testing.T) {
	eng := getTestEngine(t)
	m := newTestMarket(t, "mkt-1", nil)
	eng.addMarket(t, m)
	prices := types.NewPrices(123, 123, 1)
	ctx := context.Background()
	eng.seedLiquidity(t, "mkt-1", 1_000_000_000_000, 100_000_000_000_000, prices)
	seedTwoSidedPositions(t, eng, "mkt-1", prices)

	eng.OnTick(ctx, time.Unix(testStart+100, 0))
	report, err := eng.UpdateBorrowing(ctx, "mkt-1", prices)
	require.NoError(t, err)

	assert.EqualValues(t, 100, report.Seconds)
	assert.True(t, report.NextCumulativeFactorDelta.Long.GTUint64(0))
	assert.True(t, report.NextCumulativeFactorDelta.Short.GTUint64(0))
	assert.True(t, m.Pool(market.PoolBorrowingFactor).LongAmount().GTUint64(0))
	assert.True(t, m.Pool(market.PoolBorrowingFactor).ShortAmount().GTUint64(0))
}

func testBorrowingSkipsSmallerSide(t *testing.T) {
	eng := getTestEngine(t)
	cfg := testMarketConfig()
	cfg.Borrowing.SkipBorrowingFeeForSmallerSide = true
	m := newTestMarket(t, "mkt-1", cfg)
	eng.addMarket(t, m)
	prices := types.NewPrices(123, 123, 1)
	ctx := context.Background()
	eng.seedLiquidity(t, "mkt-1", 1_000_000_000_000, 100_000_000_000_000, prices)
	seedTwoSidedPositions(t, eng, "mkt-1", prices)

	eng.OnTick(ctx, time.Unix(testStart+100, 0))
	report, err := eng.UpdateBorrowing(ctx, "mkt-1", prices)
	require.NoError(t, err)

	// shorts hold the smaller open interest and accrue nothing
	assert.True(t, report.NextCumulativeFactorDelta.Long.GTUint64(0))
	assert.True(t, report.NextCumulativeFactorDelta.Short.IsZero())
	assert.True(t, m.Pool(market.PoolBorrowingFactor).ShortAmount().IsZero())
}
