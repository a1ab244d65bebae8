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

func TestDepositWithSwap(t *testing.T) {
	t.Run("the swap output funds the deposit", testDepositWithSwapRouting)
	t.Run("an empty path deposits the input directly", testDepositWithSwapEmptyPath)
	t.Run("a failed min market tokens check drops every market", testDepositWithSwapRollback)
	t.Run("a token foreign to the market is rejected", testDepositWithSwapWrongToken)
}

func TestWithdrawWithSwap(t *testing.T) {
	t.Run("each output side routes through its own path", testWithdrawWithSwapRouting)
	t.Run("a failed min output check drops every market", testWithdrawWithSwapRollback)
}

func testDepositWithSwapRouting(t *testing.T) {
	eng := getTestEngine(t)
	route := newTestMarket(t, "mkt-route", feelessMarketConfig())
	m := newTestMarket(t, "mkt-1", feelessMarketConfig())
	control := newTestMarket(t, "mkt-ctl", feelessMarketConfig())
	eng.addMarket(t, route)
	eng.addMarket(t, m)
	eng.addMarket(t, control)
	prices := types.NewPrices(1, 100, 50)
	ctx := context.Background()
	eng.seedLiquidity(t, "mkt-route", 1_000_000_000, 2_000_000_000, prices)
	eng.seedLiquidity(t, "mkt-1", 1_000_000_000, 2_000_000_000, prices)
	eng.seedLiquidity(t, "mkt-ctl", 1_000_000_000, 2_000_000_000, prices)

	report, err := eng.DepositWithSwap(ctx, "mkt-1", DepositWithSwapParams{
		SwapPath:    []string{"mkt-route"},
		InputToken:  "LONG",
		InputAmount: num.NewUint(100_000_000),
	}, []*types.Prices{prices}, prices)
	require.NoError(t, err)

	require.NotNil(t, report.Swap)
	assert.Equal(t, "SHORT", report.Swap.OutputToken)
	assert.Equal(t, "200000000", report.Swap.OutputAmount.String())
	assert.Equal(t, "2200000000", m.Pool(market.PoolPrimary).ShortAmount().String())

	// the routed deposit mints exactly what a direct deposit of the swap
	// output would
	direct, err := eng.Deposit(ctx, "mkt-ctl", DepositParams{
		ShortTokenAmount: num.NewUint(200_000_000),
	}, prices)
	require.NoError(t, err)
	assert.Equal(t, direct.Minted.String(), report.Deposit.Minted.String())

	marketBalancesHold(t, eng, "mkt-route")
	marketBalancesHold(t, eng, "mkt-1")
}

func testDepositWithSwapEmptyPath(t *testing.T) {
	eng := getTestEngine(t)
	m := newTestMarket(t, "mkt-1", feelessMarketConfig())
	eng.addMarket(t, m)
	prices := types.NewPrices(1, 100, 50)
	ctx := context.Background()
	eng.seedLiquidity(t, "mkt-1", 1_000_000_000, 2_000_000_000, prices)

	report, err := eng.DepositWithSwap(ctx, "mkt-1", DepositWithSwapParams{
		InputToken:  "LONG",
		InputAmount: num.NewUint(100_000_000),
	}, nil, prices)
	require.NoError(t, err)

	assert.Nil(t, report.Swap)
	assert.True(t, report.Deposit.Minted.GTUint64(0))
	assert.Equal(t, "1100000000", m.Pool(market.PoolPrimary).LongAmount().String())
	marketBalancesHold(t, eng, "mkt-1")
}

func testDepositWithSwapRollback(t *testing.T) {
	eng := getTestEngine(t)
	route := newTestMarket(t, "mkt-route", feelessMarketConfig())
	m := newTestMarket(t, "mkt-1", feelessMarketConfig())
	eng.addMarket(t, route)
	eng.addMarket(t, m)
	prices := types.NewPrices(1, 100, 50)
	ctx := context.Background()
	eng.seedLiquidity(t, "mkt-route", 1_000_000_000, 2_000_000_000, prices)
	eng.seedLiquidity(t, "mkt-1", 1_000_000_000, 2_000_000_000, prices)

	routeLongBefore := route.Pool(market.PoolPrimary).LongAmount().String()
	supplyBefore := m.TotalSupply().String()

	_, err := eng.DepositWithSwap(ctx, "mkt-1", DepositWithSwapParams{
		SwapPath:        []string{"mkt-route"},
		InputToken:      "LONG",
		InputAmount:     num.NewUint(100_000_000),
		MinMarketTokens: veryLarge.Clone(),
	}, []*types.Prices{prices}, prices)
	require.Error(t, err)

	// the swap leg had already executed on its overlay, none of it stuck
	assert.Equal(t, routeLongBefore, route.Pool(market.PoolPrimary).LongAmount().String())
	assert.Equal(t, supplyBefore, m.TotalSupply().String())
	assert.True(t, m.Pool(market.PoolPrimary).ShortAmount().EQ(num.NewUint(2_000_000_000)))
}

func testDepositWithSwapWrongToken(t *testing.T) {
	eng := getTestEngine(t)
	m := newTestMarket(t, "mkt-1", feelessMarketConfig())
	eng.addMarket(t, m)
	prices := types.NewPrices(1, 100, 50)
	eng.seedLiquidity(t, "mkt-1", 1_000_000_000, 2_000_000_000, prices)

	_, err := eng.DepositWithSwap(context.Background(), "mkt-1", DepositWithSwapParams{
		InputToken:  "IDX",
		InputAmount: num.NewUint(100),
	}, nil, prices)
	require.Error(t, err)
	assert.True(t, m.TotalSupply().GTUint64(0))
	marketBalancesHold(t, eng, "mkt-1")
}

func testWithdrawWithSwapRouting(t *testing.T) {
	eng := getTestEngine(t)
	route := newTestMarket(t, "mkt-route", feelessMarketConfig())
	m := newTestMarket(t, "mkt-1", feelessMarketConfig())
	eng.addMarket(t, route)
	eng.addMarket(t, m)
	prices := types.NewPrices(1, 100, 50)
	ctx := context.Background()
	eng.seedLiquidity(t, "mkt-route", 1_000_000_000, 2_000_000_000, prices)
	eng.seedLiquidity(t, "mkt-1", 1_000_000_000, 2_000_000_000, prices)

	half := num.UintZero().Div(m.TotalSupply(), num.NewUint(2))
	report, err := eng.WithdrawWithSwap(ctx, "mkt-1", WithdrawalWithSwapParams{
		MarketTokenAmount:  half,
		ShortTokenSwapPath: []string{"mkt-route"},
	}, nil, []*types.Prices{prices}, prices)
	require.NoError(t, err)

	// half the pool value leaves: 500m long directly, 1b short routed
	// into 500m long through the path market
	assert.Equal(t, "500000000", report.Withdrawal.LongTokenOutput.String())
	assert.Equal(t, "1000000000", report.Withdrawal.ShortTokenOutput.String())
	assert.Nil(t, report.LongSwap)
	require.NotNil(t, report.ShortSwap)
	assert.Equal(t, "LONG", report.ShortSwap.OutputToken)
	assert.Equal(t, "500000000", report.ShortTokenOutput.String())
	assert.Equal(t, "500000000", report.LongTokenOutput.String())

	marketBalancesHold(t, eng, "mkt-route")
	marketBalancesHold(t, eng, "mkt-1")
}

func testWithdrawWithSwapRollback(t *testing.T) {
	eng := getTestEngine(t)
	route := newTestMarket(t, "mkt-route", feelessMarketConfig())
	m := newTestMarket(t, "mkt-1", feelessMarketConfig())
	eng.addMarket(t, route)
	eng.addMarket(t, m)
	prices := types.NewPrices(1, 100, 50)
	ctx := context.Background()
	eng.seedLiquidity(t, "mkt-route", 1_000_000_000, 2_000_000_000, prices)
	eng.seedLiquidity(t, "mkt-1", 1_000_000_000, 2_000_000_000, prices)

	supplyBefore := m.TotalSupply().String()
	routeShortBefore := route.Pool(market.PoolPrimary).ShortAmount().String()

	half := num.UintZero().Div(m.TotalSupply(), num.NewUint(2))
	_, err := eng.WithdrawWithSwap(ctx, "mkt-1", WithdrawalWithSwapParams{
		MarketTokenAmount:   half,
		ShortTokenSwapPath:  []string{"mkt-route"},
		MinShortTokenAmount: veryLarge.Clone(),
	}, nil, []*types.Prices{prices}, prices)
	require.Error(t, err)

	// neither the burn nor the routed swap stuck
	assert.Equal(t, supplyBefore, m.TotalSupply().String())
	assert.Equal(t, routeShortBefore, route.Pool(market.PoolPrimary).ShortAmount().String())
}
