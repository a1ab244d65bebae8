package execution

import (
	"testing"

	"code.meridianprotocol.io/meridian/core/market"
	"code.meridianprotocol.io/meridian/core/types"
	"code.meridianprotocol.io/meridian/libs/num"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollateralProcessor(t *testing.T) {
	t.Run("costs drain the sources in order and conserve value", testCollateralPayOrdering)
	t.Run("a covered cost stops at the first sufficient source", testCollateralPayStopsEarly)
	t.Run("zero cost pays nothing", testCollateralPayZeroCost)
	t.Run("token conversion rounds against the payer", testCollateralPayRoundsUp)
	t.Run("residual fails the processor unless insolvent close is allowed", testCollateralResidualGating)
	t.Run("the first error short-circuits the chain", testCollateralStickyError)
	t.Run("negative pnl flows back into the primary pool", testCollateralNegativePnl)
	t.Run("positive pnl is paid out of the primary pool", testCollateralPositivePnl)
	t.Run("fees keep their breakdown whichever path settles them", testCollateralFeeSettling)
}

func newTestProcessor(t *testing.T, rm *market.Revertible, isLong, isCollateralTokenLong bool, output, collateral uint64) *collateralProcessor {
	t.Helper()
	pos := types.NewPosition("pos-1", "party-1", "mkt-1", isLong, isCollateralTokenLong)
	return newCollateralProcessor(
		rm,
		types.NewPrices(100, 4, 2),
		pos,
		num.NewUint(output),
		num.NewUint(collateral),
		false,
	)
}

func testCollateralPayOrdering(t *testing.T) {
	// short position with long-token collateral: output token priced at 4,
	// secondary (pnl) token priced at 2
	p := newTestProcessor(t, nil, false, true, 10, 5)
	p.secondaryOutputAmount = num.NewUint(20)

	paidOutput, paidCollateral, paidSecondary, residual, err := p.doPayForCost(num.NewUint(200))
	require.NoError(t, err)

	assert.Equal(t, "10", paidOutput.String())
	assert.Equal(t, "5", paidCollateral.String())
	assert.Equal(t, "20", paidSecondary.String())
	assert.Equal(t, "100", residual.String())

	// all three sources fully drained
	assert.True(t, p.outputAmount.IsZero())
	assert.True(t, p.remainingCollateralAmount.IsZero())
	assert.True(t, p.secondaryOutputAmount.IsZero())

	// value conservation: paid usd plus residual covers the cost exactly
	paidUsd := num.Sum(
		num.UintZero().Mul(num.Sum(paidOutput, paidCollateral), num.NewUint(4)),
		num.UintZero().Mul(paidSecondary, num.NewUint(2)),
	)
	assert.Equal(t, "200", num.Sum(paidUsd, residual).String())
}

func testCollateralPayStopsEarly(t *testing.T) {
	p := newTestProcessor(t, nil, false, true, 10, 5)

	paidOutput, paidCollateral, paidSecondary, residual, err := p.doPayForCost(num.NewUint(20))
	require.NoError(t, err)

	assert.Equal(t, "5", paidOutput.String())
	assert.True(t, paidCollateral.IsZero())
	assert.True(t, paidSecondary.IsZero())
	assert.True(t, residual.IsZero())
	assert.Equal(t, "5", p.outputAmount.String())
	assert.Equal(t, "5", p.remainingCollateralAmount.String())
}

func testCollateralPayZeroCost(t *testing.T) {
	p := newTestProcessor(t, nil, false, true, 10, 5)

	paidOutput, paidCollateral, paidSecondary, residual, err := p.doPayForCost(num.UintZero())
	require.NoError(t, err)

	assert.True(t, paidOutput.IsZero())
	assert.True(t, paidCollateral.IsZero())
	assert.True(t, paidSecondary.IsZero())
	assert.True(t, residual.IsZero())
	assert.Equal(t, "10", p.outputAmount.String())
}

func testCollateralPayRoundsUp(t *testing.T) {
	pos := types.NewPosition("pos-1", "party-1", "mkt-1", false, true)
	p := newCollateralProcessor(nil, types.NewPrices(100, 3, 2), pos, num.NewUint(10), num.UintZero(), false)

	// 10 usd at an output price of 3 rounds up to 4 tokens
	paidOutput, _, _, residual, err := p.doPayForCost(num.NewUint(10))
	require.NoError(t, err)
	assert.Equal(t, "4", paidOutput.String())
	assert.True(t, residual.IsZero())
}

func testCollateralResidualGating(t *testing.T) {
	p := newTestProcessor(t, nil, false, true, 0, 0)
	p.handleResidual(num.UintZero())
	require.NoError(t, p.result())
	assert.False(t, p.insolvent)

	p.handleResidual(num.NewUint(1))
	assert.ErrorIs(t, p.result(), types.ErrInsufficientFundsToPayForCosts)
	assert.False(t, p.insolvent)

	forced := newTestProcessor(t, nil, false, true, 0, 0)
	forced.insolventCloseAllowed = true
	forced.handleResidual(num.NewUint(1))
	require.NoError(t, forced.result())
	assert.True(t, forced.insolvent)
}

func testCollateralStickyError(t *testing.T) {
	// rm is nil, any pool access would panic, proving the short-circuit
	p := newTestProcessor(t, nil, true, true, 10, 10)
	p.err = types.ErrInsufficientFundsToPayForCosts

	p.addPnlIfPositive(num.NewInt(1_000)).
		payForPnlIfNegative(num.NewInt(-1_000)).
		payForPriceImpactIfNegative(num.NewInt(-1_000)).
		payForPriceImpactDiff(num.NewUint(1_000), "LONG", "SHORT")

	assert.ErrorIs(t, p.result(), types.ErrInsufficientFundsToPayForCosts)
	assert.Equal(t, "10", p.outputAmount.String())
}

func testCollateralNegativePnl(t *testing.T) {
	rm := market.NewRevertible(newTestMarket(t, "mkt-1", nil))
	// long position with long-token collateral, both shares land long
	p := newTestProcessor(t, rm, true, true, 10, 10)

	p.payForPnlIfNegative(num.NewInt(-60))
	require.NoError(t, p.result())
	assert.False(t, p.insolvent)

	// 60 usd at price 4 is 15 tokens: the output covers 10, the
	// collateral the remaining 5, all returned to the long primary pool
	assert.True(t, p.outputAmount.IsZero())
	assert.Equal(t, "5", p.remainingCollateralAmount.String())
	assert.Equal(t, "15", rm.PoolAmount(market.PoolPrimary, true).String())
}

func testCollateralPositivePnl(t *testing.T) {
	rm := market.NewRevertible(newTestMarket(t, "mkt-1", nil))
	require.NoError(t, rm.ApplyDeltaToPool(market.PoolPrimary, true, num.NewInt(1_000)))
	p := newTestProcessor(t, rm, true, true, 0, 0)

	p.addPnlIfPositive(num.NewInt(100))
	require.NoError(t, p.result())

	// 100 usd at price 4 is 25 tokens, taken from the long primary pool
	// and added to the output since the pnl and output tokens coincide
	assert.Equal(t, "25", p.outputAmount.String())
	assert.Equal(t, "975", rm.PoolAmount(market.PoolPrimary, true).String())
}

func testCollateralFeeSettling(t *testing.T) {
	newFees := func() types.PositionFees {
		fees := types.ZeroPositionFees()
		fees.OrderFeeForReceiver = num.NewUint(3)
		fees.OrderFeeForPool = num.NewUint(5)
		fees.BorrowingFeeAmount = num.NewUint(2)
		return fees
	}

	t.Run("collateral alone keeps the receiver split", func(t *testing.T) {
		rm := market.NewRevertible(newTestMarket(t, "mkt-1", nil))
		p := newTestProcessor(t, rm, true, true, 0, 100)

		fees := newFees()
		p.payForFeesExcludingFunding(&fees)
		require.NoError(t, p.result())

		assert.Equal(t, "90", p.remainingCollateralAmount.String())
		assert.Equal(t, "7", rm.PoolAmount(market.PoolPrimary, true).String())
		assert.Equal(t, "3", rm.PoolAmount(market.PoolClaimableFee, true).String())
		assert.False(t, fees.PaidFromSources)
		assert.Equal(t, "2", fees.BorrowingFeeAmount.String())
	})

	t.Run("pay-down sources keep the reported breakdown", func(t *testing.T) {
		rm := market.NewRevertible(newTestMarket(t, "mkt-1", nil))
		p := newTestProcessor(t, rm, true, true, 10, 100)

		// 10 fee tokens at an output price of 4 cost 40 usd, the output
		// alone covers them
		fees := newFees()
		p.payForFeesExcludingFunding(&fees)
		require.NoError(t, p.result())

		assert.True(t, p.outputAmount.IsZero())
		assert.Equal(t, "100", p.remainingCollateralAmount.String())
		assert.Equal(t, "10", rm.PoolAmount(market.PoolPrimary, true).String())
		assert.True(t, fees.PaidFromSources)
		assert.Equal(t, "2", fees.BorrowingFeeAmount.String())
		assert.Equal(t, "3", fees.OrderFeeForReceiver.String())
	})
}
