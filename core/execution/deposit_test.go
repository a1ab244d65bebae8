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

func TestDeposit(t *testing.T) {
	t.Run("single sided deposit mints market tokens at the usd value", testDepositBasic)
	t.Run("sequential deposits equal a single deposit without fees", testDepositSequentialEquivalence)
	t.Run("empty deposit is rejected", testDepositEmptyRejected)
	t.Run("unknown market is rejected", testDepositUnknownMarket)
	t.Run("token bank covers the pools after both sided deposit", testDepositBalances)
}

func testDepositBasic(t *testing.T) {
	eng := getTestEngine(t)
	m := newTestMarket(t, "mkt-1", nil)
	eng.addMarket(t, m)
	prices := types.NewPrices(120, 120, 1)

	report, err := eng.Deposit(context.Background(), "mkt-1", DepositParams{
		LongTokenAmount: num.NewUint(1_000_000_000),
	}, prices)
	require.NoError(t, err)

	// 1e9 tokens at price 120 less the 0.07% swap fee and the 240 token
	// negative impact, scaled from 9 to 18 decimals
	assert.Equal(t, "119915971200000000000", report.Minted.String())
	assert.Equal(t, report.Minted.String(), m.TotalSupply().String())

	primary := m.Pool(market.PoolPrimary)
	impactPool := m.Pool(market.PoolSwapImpact)
	feePool := m.Pool(market.PoolClaimableFee)
	assert.Equal(t, "999740760", primary.LongAmount().String())
	assert.Equal(t, "240", impactPool.LongAmount().String())
	assert.Equal(t, "259000", feePool.LongAmount().String())

	// every long token deposited is accounted for
	total := num.Sum(primary.LongAmount(), impactPool.LongAmount(), feePool.LongAmount())
	assert.Equal(t, "1000000000", total.String())
	assert.Equal(t, "1000000000", m.Balance("LONG").String())

	assert.True(t, primary.ShortAmount().IsZero())
	assert.True(t, impactPool.ShortAmount().IsZero())
	assert.True(t, feePool.ShortAmount().IsZero())

	assert.True(t, report.PriceImpact.IsNegative())
	assert.True(t, report.LongTokenFees.ForReceiver.GTUint64(0))
}

func testDepositSequentialEquivalence(t *testing.T) {
	eng := getTestEngine(t)
	a := newTestMarket(t, "mkt-a", feelessMarketConfig())
	b := newTestMarket(t, "mkt-b", feelessMarketConfig())
	eng.addMarket(t, a)
	eng.addMarket(t, b)
	prices := types.NewPrices(120, 120, 1)
	ctx := context.Background()

	r1, err := eng.Deposit(ctx, "mkt-a", DepositParams{LongTokenAmount: num.NewUint(1_000_000_000)}, prices)
	require.NoError(t, err)
	r2, err := eng.Deposit(ctx, "mkt-a", DepositParams{LongTokenAmount: num.NewUint(1_000_000_000)}, prices)
	require.NoError(t, err)
	r3, err := eng.Deposit(ctx, "mkt-b", DepositParams{LongTokenAmount: num.NewUint(2_000_000_000)}, prices)
	require.NoError(t, err)

	assert.Equal(t, r3.Minted.String(), num.Sum(r1.Minted, r2.Minted).String())
	assert.Equal(t,
		b.Pool(market.PoolPrimary).LongAmount().String(),
		a.Pool(market.PoolPrimary).LongAmount().String(),
	)
	assert.Equal(t, b.TotalSupply().String(), a.TotalSupply().String())
}

func testDepositEmptyRejected(t *testing.T) {
	eng := getTestEngine(t)
	m := newTestMarket(t, "mkt-1", nil)
	eng.addMarket(t, m)

	_, err := eng.Deposit(context.Background(), "mkt-1", DepositParams{}, types.NewPrices(120, 120, 1))
	assert.ErrorIs(t, err, types.ErrEmptyDeposit)

	// a failed deposit leaves the market untouched
	assert.True(t, m.TotalSupply().IsZero())
	assert.True(t, m.Pool(market.PoolPrimary).Total().IsZero())
}

func testDepositUnknownMarket(t *testing.T) {
	eng := getTestEngine(t)
	_, err := eng.Deposit(context.Background(), "nope", DepositParams{
		LongTokenAmount: num.NewUint(1),
	}, types.NewPrices(120, 120, 1))
	assert.ErrorIs(t, err, ErrMarketNotFound)
}

func testDepositBalances(t *testing.T) {
	eng := getTestEngine(t)
	m := newTestMarket(t, "mkt-1", nil)
	eng.addMarket(t, m)
	prices := types.NewPrices(120, 120, 1)

	_, err := eng.Deposit(context.Background(), "mkt-1", DepositParams{
		LongTokenAmount:  num.NewUint(1_000_000_000),
		ShortTokenAmount: num.NewUint(500_000_000),
	}, prices)
	require.NoError(t, err)
	marketBalancesHold(t, eng, "mkt-1")
}
