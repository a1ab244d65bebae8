package types_test

import (
	"testing"

	"code.meridianprotocol.io/meridian/core/types"
	"code.meridianprotocol.io/meridian/libs/num"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validMarketConfig() *types.MarketConfig {
	unit := num.UnitFor(9)
	return &types.MarketConfig{
		Decimals:            9,
		MarketTokenDecimals: 18,
		SwapImpact: types.SwapImpactParams{
			Exponent:       num.UintZero().Mul(unit, num.NewUint(2)),
			PositiveFactor: num.NewUint(1),
			NegativeFactor: num.NewUint(2),
		},
		PositionImpact: types.PositionImpactParams{
			Exponent:       num.UintZero().Mul(unit, num.NewUint(2)),
			PositiveFactor: num.NewUint(1),
			NegativeFactor: num.NewUint(2),
		},
		Borrowing: types.BorrowingFeeParams{
			FactorForLong:    num.NewUint(100),
			FactorForShort:   num.NewUint(100),
			ExponentForLong:  unit.Clone(),
			ExponentForShort: unit.Clone(),
		},
		Funding: types.FundingFeeParams{
			ExponentFactor:              unit.Clone(),
			IncreaseFactorPerSecond:     num.NewUint(1_000),
			DecreaseFactorPerSecond:     num.NewUint(500),
			MinFactorPerSecond:          num.UintZero(),
			MaxFactorPerSecond:          num.NewUint(100_000_000),
			ThresholdForStableFunding:   num.NewUint(50_000_000),
			ThresholdForDecreaseFunding: num.NewUint(10_000_000),
		},
		FundingAmountPerSizeAdjustment: unit.Clone(),
	}
}

func TestMarketConfigValidate(t *testing.T) {
	require.NoError(t, validMarketConfig().Validate())

	t.Run("swap impact exponent below unit", func(t *testing.T) {
		cfg := validMarketConfig()
		cfg.SwapImpact.Exponent = num.NewUint(1)
		assert.Error(t, cfg.Validate())
	})

	t.Run("inverted impact factors", func(t *testing.T) {
		cfg := validMarketConfig()
		cfg.SwapImpact.PositiveFactor = num.NewUint(3)
		assert.Error(t, cfg.Validate())

		cfg = validMarketConfig()
		cfg.PositionImpact.PositiveFactor = num.NewUint(3)
		assert.Error(t, cfg.Validate())
	})

	t.Run("inverted funding bounds", func(t *testing.T) {
		cfg := validMarketConfig()
		cfg.Funding.MinFactorPerSecond = num.NewUint(200_000_000)
		assert.Error(t, cfg.Validate())

		cfg = validMarketConfig()
		cfg.Funding.ThresholdForStableFunding = num.NewUint(1)
		assert.Error(t, cfg.Validate())
	})

	t.Run("zero borrowing exponent", func(t *testing.T) {
		cfg := validMarketConfig()
		cfg.Borrowing.ExponentForShort = num.UintZero()
		assert.Error(t, cfg.Validate())
	})

	t.Run("zero funding adjustment", func(t *testing.T) {
		cfg := validMarketConfig()
		cfg.FundingAmountPerSizeAdjustment = nil
		assert.Error(t, cfg.Validate())
	})
}

func TestMarketConfigUnit(t *testing.T) {
	cfg := &types.MarketConfig{Decimals: 6}
	assert.Equal(t, "1000000", cfg.Unit().String())
	// cached instance
	assert.Same(t, cfg.Unit(), cfg.Unit())
}

func TestMaxPnlFactor(t *testing.T) {
	cfg := validMarketConfig()

	// unset kinds default to 100%
	assert.True(t, cfg.MaxPnlFactor(types.PnlFactorMaxForTrader, true).EQ(cfg.Unit()))

	cfg.SetMaxPnlFactor(types.PnlFactorMaxForTrader, num.NewUint(900_000_000), num.NewUint(800_000_000))
	assert.Equal(t, "900000000", cfg.MaxPnlFactor(types.PnlFactorMaxForTrader, true).String())
	assert.Equal(t, "800000000", cfg.MaxPnlFactor(types.PnlFactorMaxForTrader, false).String())
	// other kinds keep the default
	assert.True(t, cfg.MaxPnlFactor(types.PnlFactorForAdl, false).EQ(cfg.Unit()))
}
