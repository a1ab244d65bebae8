package execution

import (
	"context"
	"testing"
	"time"

	"code.meridianprotocol.io/meridian/core/execution/mocks"
	"code.meridianprotocol.io/meridian/core/market"
	"code.meridianprotocol.io/meridian/core/types"
	"code.meridianprotocol.io/meridian/libs/num"
	"code.meridianprotocol.io/meridian/logging"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
)

const testStart int64 = 1_000_000

var veryLarge = num.MustUintFromString("1000000000000000000000000000000")

// testMarketConfig returns a 9 decimals configuration with small but non
// zero fee and impact factors.
func testMarketConfig() *types.MarketConfig {
	return &types.MarketConfig{
		Decimals:            9,
		MarketTokenDecimals: 18,
		SwapFee: types.SwapFeeParams{
			PositiveImpactFeeFactor: num.NewUint(500_000),
			NegativeImpactFeeFactor: num.NewUint(700_000),
			FeeReceiverFactor:       num.NewUint(370_000_000),
			DiscountFactor:          num.UintZero(),
		},
		SwapImpact: types.SwapImpactParams{
			Exponent:       num.NewUint(2_000_000_000),
			PositiveFactor: num.NewUint(1),
			NegativeFactor: num.NewUint(2),
		},
		PositionImpact: types.PositionImpactParams{
			Exponent:       num.NewUint(2_000_000_000),
			PositiveFactor: num.NewUint(1),
			NegativeFactor: num.NewUint(2),
		},
		PositionImpactDistribution: types.PositionImpactDistributionParams{
			DistributeFactor:            num.NewUint(1_000_000),
			MinPositionImpactPoolAmount: num.UintZero(),
		},
		OrderFee: types.OrderFeeParams{
			PositiveImpactFeeFactor: num.NewUint(500_000),
			NegativeImpactFeeFactor: num.NewUint(700_000),
			FeeReceiverFactor:       num.NewUint(370_000_000),
			DiscountFactor:          num.UintZero(),
		},
		LiquidationFee: types.LiquidationFeeParams{
			FeeFactor:         num.NewUint(1_000_000),
			FeeReceiverFactor: num.NewUint(370_000_000),
		},
		Borrowing: types.BorrowingFeeParams{
			FactorForLong:    num.NewUint(100),
			FactorForShort:   num.NewUint(100),
			ExponentForLong:  num.NewUint(1_000_000_000),
			ExponentForShort: num.NewUint(1_000_000_000),
		},
		Funding: types.FundingFeeParams{
			ExponentFactor:              num.NewUint(1_000_000_000),
			IncreaseFactorPerSecond:     num.NewUint(1_000),
			DecreaseFactorPerSecond:     num.NewUint(500),
			MinFactorPerSecond:          num.UintZero(),
			MaxFactorPerSecond:          num.NewUint(100_000_000),
			ThresholdForStableFunding:   num.NewUint(50_000_000),
			ThresholdForDecreaseFunding: num.NewUint(10_000_000),
		},
		Position: types.PositionParams{
			MinPositionSizeUsd:                     num.NewUint(1_000_000_000),
			MinCollateralValue:                     num.NewUint(1_000_000_000),
			MinCollateralFactor:                    num.NewUint(10_000_000),
			MaxPositivePositionImpactFactor:        num.NewUint(5_000_000),
			MaxNegativePositionImpactFactor:        num.NewUint(10_000_000),
			MaxPositionImpactFactorForLiquidations: num.NewUint(1_000_000),
		},
		ReserveFactor:                  num.NewUint(1_000_000_000),
		OpenInterestReserveFactor:      num.NewUint(900_000_000),
		MaxPoolAmount:                  types.NewSidePair(veryLarge.Clone(), veryLarge.Clone()),
		MaxPoolValueForDeposit:         types.NewSidePair(veryLarge.Clone(), veryLarge.Clone()),
		MaxOpenInterest:                types.NewSidePair(veryLarge.Clone(), veryLarge.Clone()),
		FundingAmountPerSizeAdjustment: num.NewUint(1_000_000_000),
	}
}

// feelessMarketConfig zeroes every fee and impact factor so amounts flow
// through deposits and withdrawals without loss.
func feelessMarketConfig() *types.MarketConfig {
	cfg := testMarketConfig()
	cfg.SwapFee.PositiveImpactFeeFactor = num.UintZero()
	cfg.SwapFee.NegativeImpactFeeFactor = num.UintZero()
	cfg.SwapImpact.PositiveFactor = num.UintZero()
	cfg.SwapImpact.NegativeFactor = num.UintZero()
	cfg.PositionImpact.PositiveFactor = num.UintZero()
	cfg.PositionImpact.NegativeFactor = num.UintZero()
	return cfg
}

func newTestMarket(t *testing.T, id string, cfg *types.MarketConfig) *market.Market {
	t.Helper()
	if cfg == nil {
		cfg = testMarketConfig()
	}
	require.NoError(t, cfg.Validate())
	return market.NewMarket(types.MarketMeta{
		ID:         id,
		Name:       id,
		IndexToken: "IDX",
		LongToken:  "LONG",
		ShortToken: "SHORT",
	}, cfg)
}

func newPureTestMarket(t *testing.T, id string, cfg *types.MarketConfig) *market.Market {
	t.Helper()
	if cfg == nil {
		cfg = testMarketConfig()
	}
	require.NoError(t, cfg.Validate())
	return market.NewMarket(types.MarketMeta{
		ID:         id,
		Name:       id,
		IndexToken: "IDX",
		LongToken:  "TOK",
		ShortToken: "TOK",
	}, cfg)
}

type testEngine struct {
	*Engine
	ctrl      *gomock.Controller
	broker    *mocks.MockBroker
	markets   *InMemoryMarkets
	positions *InMemoryPositions
}

func getTestEngine(t *testing.T) *testEngine {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	broker := mocks.NewMockBroker(ctrl)
	broker.EXPECT().Send(gomock.Any()).AnyTimes()
	markets := NewInMemoryMarkets()
	positions := NewInMemoryPositions()
	eng := NewEngine(logging.NewTestLogger(), NewDefaultConfig(), broker, nil, markets, positions)
	eng.OnTick(context.Background(), time.Unix(testStart, 0))
	return &testEngine{
		Engine:    eng,
		ctrl:      ctrl,
		broker:    broker,
		markets:   markets,
		positions: positions,
	}
}

func (e *testEngine) addMarket(t *testing.T, m *market.Market) {
	t.Helper()
	require.NoError(t, e.markets.AddMarket(m))
}

// seedLiquidity deposits both sides into a market through the engine.
func (e *testEngine) seedLiquidity(t *testing.T, marketID string, long, short uint64, prices *types.Prices) {
	t.Helper()
	params := DepositParams{}
	if long > 0 {
		params.LongTokenAmount = num.NewUint(long)
	}
	if short > 0 {
		params.ShortTokenAmount = num.NewUint(short)
	}
	_, err := e.Deposit(context.Background(), marketID, params, prices)
	require.NoError(t, err)
}

// marketBalancesHold asserts that the token bank of the market covers
// everything the pools account for.
func marketBalancesHold(t *testing.T, e *testEngine, marketID string) {
	t.Helper()
	require.NoError(t, e.ValidateMarketBalances(marketID, nil, nil))
}
