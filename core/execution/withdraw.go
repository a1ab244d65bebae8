package execution

import (
	"code.meridianprotocol.io/meridian/core/market"
	"code.meridianprotocol.io/meridian/core/pricing"
	"code.meridianprotocol.io/meridian/core/types"
	"code.meridianprotocol.io/meridian/libs/num"
)

// WithdrawalParams are the caller supplied inputs of a withdrawal.
type WithdrawalParams struct {
	MarketTokenAmount *num.Uint
}

// executeWithdrawal burns market tokens and pays out both collateral
// tokens pro rata to the side pool values.
func executeWithdrawal(rm *market.Revertible, prices *types.Prices, params WithdrawalParams) (*types.WithdrawalReport, error) {
	amount := params.MarketTokenAmount
	if amount == nil || amount.IsZero() {
		return nil, types.ErrEmptyWithdrawal
	}
	if err := prices.Validate(); err != nil {
		return nil, err
	}
	supply := rm.TotalSupply().Clone()
	if amount.GT(supply) {
		return nil, types.ErrInvalidArgument("withdrawal larger than market token supply")
	}
	poolValueSigned, err := rm.PoolValue(prices, types.PnlFactorForWithdrawal, false)
	if err != nil {
		return nil, err
	}
	if poolValueSigned.IsNegative() || poolValueSigned.IsZero() {
		return nil, types.ErrInvalidPoolValue("withdrawal from a pool with non-positive value")
	}
	poolValue := poolValueSigned.AbsUint()

	valueUsd, failed := num.MulDiv(amount, poolValue, supply)
	if failed {
		return nil, types.ErrComputation("withdrawal value")
	}
	longPoolUsd, err := rm.PrimaryPoolUsdValue(prices, true, true)
	if err != nil {
		return nil, err
	}
	shortPoolUsd, err := rm.PrimaryPoolUsdValue(prices, false, true)
	if err != nil {
		return nil, err
	}
	totalPoolUsd := num.Sum(longPoolUsd, shortPoolUsd)
	if rm.Meta().IsPure() {
		totalPoolUsd = longPoolUsd.Clone()
	}
	if totalPoolUsd.IsZero() {
		return nil, types.ErrInvalidPoolValue("withdrawal from an empty pool")
	}
	longOutUsd, failed := num.MulDiv(valueUsd, longPoolUsd, totalPoolUsd)
	if failed {
		return nil, types.ErrComputation("withdrawal long share")
	}
	shortOutUsd := num.UintZero()
	if !rm.Meta().IsPure() {
		shortOutUsd = num.UintZero().Sub(valueUsd, longOutUsd)
	}

	impact, err := swapPriceImpact(rm, prices,
		num.IntFromUint(longOutUsd, false), num.IntFromUint(shortOutUsd, false))
	if err != nil {
		return nil, err
	}

	report := &types.WithdrawalReport{
		MarketID:         rm.Meta().ID,
		Burned:           amount.Clone(),
		LongTokenOutput:  num.UintZero(),
		ShortTokenOutput: num.UintZero(),
		LongTokenFees:    types.ZeroSwapFees(),
		ShortTokenFees:   types.ZeroSwapFees(),
	}
	totalOutUsd := num.Sum(longOutUsd, shortOutUsd)

	for _, isLong := range []bool{true, false} {
		outUsd := shortOutUsd
		if isLong {
			outUsd = longOutUsd
		}
		if outUsd.IsZero() {
			continue
		}
		price := prices.CollateralPrice(isLong)
		gross := num.UintZero().Div(outUsd, price.Max)
		if gross.IsZero() {
			continue
		}
		sideImpact, failed := num.MulDivInt(impact, outUsd, totalOutUsd)
		if failed {
			return nil, types.ErrComputation("withdrawal impact proration")
		}
		after, fees, err := pricing.ApplySwapFees(
			rm.Config().SwapFee, rm.Unit(), pricing.SwapPricingWithdrawal, sideImpact.IsPositive(), gross)
		if err != nil {
			return nil, err
		}
		if err := rm.ApplyDeltaToPool(market.PoolClaimableFee, isLong, num.IntFromUint(fees.ForReceiver, true)); err != nil {
			return nil, err
		}
		if sideImpact.IsPositive() {
			impactAmount, err := swapImpactAmountWithCap(rm, isLong, price, sideImpact)
			if err != nil {
				return nil, err
			}
			if !impactAmount.IsZero() {
				if err := rm.ApplyDeltaToPool(market.PoolSwapImpact, isLong, num.IntFromUint(impactAmount.AbsUint(), false)); err != nil {
					return nil, err
				}
				after.Add(after, impactAmount.AbsUint())
			}
		}
		if sideImpact.IsNegative() {
			impactAmount, err := swapImpactAmountWithCap(rm, isLong, price, sideImpact)
			if err != nil {
				return nil, err
			}
			next, underflow := num.UintZero().SubOverflow(after, impactAmount.AbsUint())
			if underflow {
				return nil, types.ErrInvalidArgument("insufficient output to pay negative impact amount")
			}
			after = next
			if err := rm.ApplyDeltaToPool(market.PoolSwapImpact, isLong, num.IntFromUint(impactAmount.AbsUint(), true)); err != nil {
				return nil, err
			}
		}

		// the gross amount leaves the pool, the pool share of the fee
		// stays behind
		poolDelta := num.UintZero().Sub(gross, fees.ForPool)
		if err := rm.ApplyDeltaToPool(market.PoolPrimary, isLong, num.IntFromUint(poolDelta, false)); err != nil {
			return nil, err
		}
		if err := rm.RecordTransferredOut(rm.Meta().Token(isLong), after); err != nil {
			return nil, err
		}
		if isLong {
			report.LongTokenOutput = after
			report.LongTokenFees = fees
		} else {
			report.ShortTokenOutput = after
			report.ShortTokenFees = fees
		}
	}

	if err := rm.Burn(amount); err != nil {
		return nil, err
	}
	for _, isLong := range []bool{true, false} {
		if err := rm.ValidateMaxPnlFactor(prices, types.PnlFactorForWithdrawal, isLong); err != nil {
			return nil, err
		}
		if err := rm.ValidateReserve(prices, isLong, rm.Config().ReserveFactor); err != nil {
			return nil, err
		}
	}
	return report, nil
}
