package execution

import (
	"code.meridianprotocol.io/meridian/core/market"
	"code.meridianprotocol.io/meridian/core/pricing"
	"code.meridianprotocol.io/meridian/core/types"
	"code.meridianprotocol.io/meridian/libs/num"
)

// DepositParams are the caller supplied inputs of a deposit.
type DepositParams struct {
	LongTokenAmount  *num.Uint
	ShortTokenAmount *num.Uint
}

func (p DepositParams) amount(isLong bool) *num.Uint {
	a := p.ShortTokenAmount
	if isLong {
		a = p.LongTokenAmount
	}
	if a == nil {
		return num.UintZero()
	}
	return a
}

// executeDeposit adds collateral tokens to the primary pool and mints
// market tokens at the current pool value per share.
func executeDeposit(rm *market.Revertible, prices *types.Prices, params DepositParams) (*types.DepositReport, error) {
	longAmount, shortAmount := params.amount(true), params.amount(false)
	if longAmount.IsZero() && shortAmount.IsZero() {
		return nil, types.ErrEmptyDeposit
	}
	if err := prices.Validate(); err != nil {
		return nil, err
	}
	for _, isLong := range []bool{true, false} {
		if err := rm.ValidateMaxPnlFactor(prices, types.PnlFactorForDeposit, isLong); err != nil {
			return nil, err
		}
	}

	unit := rm.Unit()
	longValue, failed := num.UintZero().MulOverflow(longAmount, prices.LongTokenPrice.Mid())
	if failed {
		return nil, types.ErrComputation("deposit long token value")
	}
	shortValue, failed := num.UintZero().MulOverflow(shortAmount, prices.ShortTokenPrice.Mid())
	if failed {
		return nil, types.ErrComputation("deposit short token value")
	}
	impact, err := swapPriceImpact(rm, prices,
		num.IntFromUint(longValue, true), num.IntFromUint(shortValue, true))
	if err != nil {
		return nil, err
	}

	poolValueSigned, err := rm.PoolValue(prices, types.PnlFactorForDeposit, true)
	if err != nil {
		return nil, err
	}
	if poolValueSigned.IsNegative() {
		return nil, types.ErrInvalidPoolValue("deposit into a pool with negative value")
	}
	poolValue := poolValueSigned.AbsUint()
	supply := rm.TotalSupply().Clone()

	report := &types.DepositReport{
		MarketID:       rm.Meta().ID,
		Minted:         num.UintZero(),
		PriceImpact:    impact.Clone(),
		LongTokenFees:  types.ZeroSwapFees(),
		ShortTokenFees: types.ZeroSwapFees(),
	}
	totalValue := num.Sum(longValue, shortValue)

	for _, isLong := range []bool{true, false} {
		amount := params.amount(isLong)
		if amount.IsZero() {
			continue
		}
		if err := rm.RecordTransferredIn(rm.Meta().Token(isLong), amount); err != nil {
			return nil, err
		}
		sideValue := shortValue
		if isLong {
			sideValue = longValue
		}
		sideImpact, failed := num.MulDivInt(impact, sideValue, totalValue)
		if failed {
			return nil, types.ErrComputation("deposit impact proration")
		}

		after, fees, err := pricing.ApplySwapFees(
			rm.Config().SwapFee, unit, pricing.SwapPricingDeposit, sideImpact.IsPositive(), amount)
		if err != nil {
			return nil, err
		}
		if err := rm.ApplyDeltaToPool(market.PoolClaimableFee, isLong, num.IntFromUint(fees.ForReceiver, true)); err != nil {
			return nil, err
		}
		if isLong {
			report.LongTokenFees = fees
		} else {
			report.ShortTokenFees = fees
		}

		// an empty market has no shares to dilute, a positive rebate
		// would mint out of nothing
		if sideImpact.IsPositive() && supply.IsZero() {
			sideImpact = num.IntZero()
		}
		if sideImpact.IsPositive() {
			oppositePrice := prices.CollateralPrice(!isLong)
			impactAmount, err := swapImpactAmountWithCap(rm, !isLong, oppositePrice, sideImpact)
			if err != nil {
				return nil, err
			}
			if !impactAmount.IsZero() {
				impactUsd, failed := num.UintZero().MulOverflow(impactAmount.AbsUint(), oppositePrice.Max)
				if failed {
					return nil, types.ErrComputation("deposit positive impact value")
				}
				mintForImpact, err := usdToMarketTokenAmount(rm, impactUsd, poolValue, supply)
				if err != nil {
					return nil, err
				}
				report.Minted.Add(report.Minted, mintForImpact)
				if err := rm.ApplyDeltaToPool(market.PoolSwapImpact, !isLong, num.IntFromUint(impactAmount.AbsUint(), false)); err != nil {
					return nil, err
				}
				if err := rm.ApplyDeltaToPool(market.PoolPrimary, !isLong, impactAmount); err != nil {
					return nil, err
				}
				if err := rm.ValidatePoolAmount(!isLong); err != nil {
					return nil, err
				}
			}
		}
		if sideImpact.IsNegative() {
			impactAmount, err := swapImpactAmountWithCap(rm, isLong, prices.CollateralPrice(isLong), sideImpact)
			if err != nil {
				return nil, err
			}
			next, underflow := num.UintZero().SubOverflow(after, impactAmount.AbsUint())
			if underflow {
				return nil, types.ErrInvalidArgument("insufficient fund to pay negative impact amount")
			}
			after = next
			if err := rm.ApplyDeltaToPool(market.PoolSwapImpact, isLong, num.IntFromUint(impactAmount.AbsUint(), true)); err != nil {
				return nil, err
			}
		}

		depositUsd, failed := num.UintZero().MulOverflow(after, prices.CollateralPrice(isLong).Min)
		if failed {
			return nil, types.ErrComputation("deposit value")
		}
		minted, err := usdToMarketTokenAmount(rm, depositUsd, poolValue, supply)
		if err != nil {
			return nil, err
		}
		report.Minted.Add(report.Minted, minted)

		poolDelta := num.Sum(after, fees.ForPool)
		if err := rm.ApplyDeltaToPool(market.PoolPrimary, isLong, num.IntFromUint(poolDelta, true)); err != nil {
			return nil, err
		}
		if err := rm.ValidatePoolAmount(isLong); err != nil {
			return nil, err
		}
		if err := rm.ValidatePoolValueForDeposit(prices, isLong); err != nil {
			return nil, err
		}
	}

	if err := rm.Mint(report.Minted); err != nil {
		return nil, err
	}
	return report, nil
}

// usdToMarketTokenAmount converts a usd value to market tokens at the
// current pool value per share. The very first mint prices a share at one
// usd unit scaled to the market token decimals.
func usdToMarketTokenAmount(rm *market.Revertible, usd, poolValue, supply *num.Uint) (*num.Uint, error) {
	if supply.IsZero() {
		amount, failed := num.MulDiv(usd, num.UintPow10(rm.Config().MarketTokenDecimals), rm.Unit())
		if failed {
			return nil, types.ErrComputation("initial market token amount")
		}
		return amount, nil
	}
	if poolValue.IsZero() {
		return nil, types.ErrInvalidPoolValue("minting against an empty pool value")
	}
	amount, failed := num.MulDiv(usd, supply, poolValue)
	if failed {
		return nil, types.ErrComputation("market token amount")
	}
	return amount, nil
}
