package execution

import (
	"context"
	"testing"

	"code.meridianprotocol.io/meridian/core/market"
	"code.meridianprotocol.io/meridian/core/types"
	"code.meridianprotocol.io/meridian/libs/num"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithdraw(t *testing.T) {
	t.Run("round trip returns at most the deposited amounts", testWithdrawRoundTrip)
	t.Run("feeless round trip returns the deposit exactly", testWithdrawFeelessRoundTrip)
	t.Run("empty withdrawal is rejected", testWithdrawEmptyRejected)
	t.Run("withdrawal above supply is rejected", testWithdrawAboveSupply)
}

func testWithdrawRoundTrip(t *testing.T) {
	eng := getTestEngine(t)
	m := newTestMarket(t, "mkt-1", nil)
	eng.addMarket(t, m)
	prices := types.NewPrices(120, 120, 1)
	ctx := context.Background()

	dep, err := eng.Deposit(ctx, "mkt-1", DepositParams{
		LongTokenAmount:  num.NewUint(1_000_000_000),
		ShortTokenAmount: num.NewUint(1_000_000_000),
	}, prices)
	require.NoError(t, err)

	wit, err := eng.Withdraw(ctx, "mkt-1", WithdrawalParams{
		MarketTokenAmount: dep.Minted.Clone(),
	}, prices)
	require.NoError(t, err)

	assert.True(t, m.TotalSupply().IsZero())
	assert.True(t, wit.LongTokenOutput.GTUint64(0))
	assert.True(t, wit.ShortTokenOutput.GTUint64(0))
	assert.True(t, wit.LongTokenOutput.LTE(num.NewUint(1_000_000_000)))
	assert.True(t, wit.ShortTokenOutput.LTE(num.NewUint(1_000_000_000)))

	// the shortfall of the round trip is fee and impact inventory still
	// held by the market
	for _, isLong := range []bool{true, false} {
		out := wit.ShortTokenOutput
		if isLong {
			out = wit.LongTokenOutput
		}
		kept := num.Sum(
			m.Pool(market.PoolPrimary).Amount(isLong),
			m.Pool(market.PoolSwapImpact).Amount(isLong),
			m.Pool(market.PoolClaimableFee).Amount(isLong),
		)
		assert.Equal(t, "1000000000", num.Sum(out, kept).String())
		assert.True(t, m.Pool(market.PoolClaimableFee).Amount(isLong).GTUint64(0))
	}
	marketBalancesHold(t, eng, "mkt-1")
}

func testWithdrawFeelessRoundTrip(t *testing.T) {
	eng := getTestEngine(t)
	m := newTestMarket(t, "mkt-1", feelessMarketConfig())
	eng.addMarket(t, m)
	prices := types.NewPrices(120, 120, 1)
	ctx := context.Background()

	dep, err := eng.Deposit(ctx, "mkt-1", DepositParams{
		LongTokenAmount:  num.NewUint(1_000_000_000),
		ShortTokenAmount: num.NewUint(1_000_000_000),
	}, prices)
	require.NoError(t, err)

	wit, err := eng.Withdraw(ctx, "mkt-1", WithdrawalParams{
		MarketTokenAmount: dep.Minted.Clone(),
	}, prices)
	require.NoError(t, err)

	assert.Equal(t, "1000000000", wit.LongTokenOutput.String())
	assert.Equal(t, "1000000000", wit.ShortTokenOutput.String())
	assert.True(t, m.Pool(market.PoolPrimary).Total().IsZero())
	assert.True(t, m.TotalSupply().IsZero())
}

func testWithdrawEmptyRejected(t *testing.T) {
	eng := getTestEngine(t)
	m := newTestMarket(t, "mkt-1", nil)
	eng.addMarket(t, m)

	_, err := eng.Withdraw(context.Background(), "mkt-1", WithdrawalParams{}, types.NewPrices(120, 120, 1))
	assert.ErrorIs(t, err, types.ErrEmptyWithdrawal)
}

func testWithdrawAboveSupply(t *testing.T) {
	eng := getTestEngine(t)
	m := newTestMarket(t, "mkt-1", nil)
	eng.addMarket(t, m)
	prices := types.NewPrices(120, 120, 1)
	ctx := context.Background()

	dep, err := eng.Deposit(ctx, "mkt-1", DepositParams{
		LongTokenAmount: num.NewUint(1_000_000_000),
	}, prices)
	require.NoError(t, err)

	tooMuch := num.Sum(dep.Minted, num.UintOne())
	_, err = eng.Withdraw(ctx, "mkt-1", WithdrawalParams{MarketTokenAmount: tooMuch}, prices)
	assert.Error(t, err)
	// the failed withdrawal did not burn anything
	assert.Equal(t, dep.Minted.String(), m.TotalSupply().String())
}
