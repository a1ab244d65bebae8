package execution

import (
	"code.meridianprotocol.io/meridian/core/market"
	"code.meridianprotocol.io/meridian/core/pricing"
	"code.meridianprotocol.io/meridian/core/types"
	"code.meridianprotocol.io/meridian/libs/num"
)

// swapImpactAmountWithCap converts a signed usd swap impact into a token
// amount on the given collateral side. A positive amount is paid out of
// the swap impact pool and is capped by what the pool holds, a negative
// amount rounds up against the trader.
func swapImpactAmountWithCap(rm *market.Revertible, isLong bool, price *types.Price, impact *num.Int) (*num.Int, error) {
	if impact.IsZero() {
		return num.IntZero(), nil
	}
	if impact.IsPositive() {
		if price.Max.IsZero() {
			return nil, types.ErrComputation("swap impact amount with zero price")
		}
		amount := num.UintZero().Div(impact.AbsUint(), price.Max)
		amount = num.Min(amount, rm.PoolAmount(market.PoolSwapImpact, isLong))
		return num.IntFromUint(amount, true), nil
	}
	amount, failed := num.RoundUpDiv(impact.AbsUint(), price.Min)
	if failed {
		return nil, types.ErrComputation("swap impact amount")
	}
	return num.IntFromUint(amount, false), nil
}

// swapPriceImpact prices a candidate move of the primary pool usd values,
// expressed as signed usd deltas per side at mid prices.
func swapPriceImpact(rm *market.Revertible, prices *types.Prices, longDelta, shortDelta *num.Int) (*num.Int, error) {
	longUsd, err := rm.PrimaryPoolUsdValue(prices, true, false)
	if err != nil {
		return nil, err
	}
	shortUsd, err := rm.PrimaryPoolUsdValue(prices, false, false)
	if err != nil {
		return nil, err
	}
	nextLong, nextShort, err := pricing.SwapImpactDeltas(longUsd, shortUsd, longDelta, shortDelta)
	if err != nil {
		return nil, err
	}
	params := pricing.SwapImpactParams(rm.Config().SwapImpact)
	return pricing.PriceImpactValue(params, rm.Unit(), longUsd, shortUsd, nextLong, nextShort)
}

// cappedPositionImpact prices the open interest move of a position size
// delta. A positive impact is capped both by the max positive impact
// factor on the size delta and by the position impact pool value. A
// negative impact is capped by the applicable max negative factor only
// when capNegative is set, the cut magnitude comes back as diff.
func cappedPositionImpact(
	rm *market.Revertible,
	prices *types.Prices,
	sizeDeltaUsd *num.Int,
	isLong, capNegative, isLiquidation bool,
) (capped *num.Int, diff *num.Uint, err error) {
	initLong, initShort := rm.OpenInterest(true), rm.OpenInterest(false)
	nextLong, nextShort := initLong.Clone(), initShort.Clone()
	next := num.IntFromUint(rm.OpenInterest(isLong), true).Add(sizeDeltaUsd)
	if next.IsNegative() {
		return nil, nil, types.ErrInvalidArgument("size delta larger than open interest")
	}
	if isLong {
		nextLong = next.AbsUint()
	} else {
		nextShort = next.AbsUint()
	}
	unit := rm.Unit()
	params := pricing.PositionImpactParams(rm.Config().PositionImpact)
	raw, err := pricing.PriceImpactValue(params, unit, initLong, initShort, nextLong, nextShort)
	if err != nil {
		return nil, nil, err
	}
	diff = num.UintZero()
	pos := rm.Config().Position
	switch {
	case raw.IsPositive():
		capValue := raw.AbsUint()
		if pos.MaxPositivePositionImpactFactor != nil && !pos.MaxPositivePositionImpactFactor.IsZero() {
			byFactor, failed := num.ApplyFactor(sizeDeltaUsd.AbsUint(), pos.MaxPositivePositionImpactFactor, unit)
			if failed {
				return nil, nil, types.ErrComputation("max positive position impact")
			}
			capValue = num.Min(capValue, byFactor)
		}
		byPool, failed := num.UintZero().MulOverflow(rm.PositionImpactPoolAmount(), prices.IndexTokenPrice.Max)
		if failed {
			return nil, nil, types.ErrComputation("position impact pool value")
		}
		capValue = num.Min(capValue, byPool)
		return num.IntFromUint(capValue, true), diff, nil
	case raw.IsNegative() && capNegative:
		factor := pos.MaxNegativePositionImpactFactor
		if isLiquidation {
			factor = pos.MaxPositionImpactFactorForLiquidations
		}
		if factor == nil || factor.IsZero() {
			return raw, diff, nil
		}
		cap, failed := num.ApplyFactor(sizeDeltaUsd.AbsUint(), factor, unit)
		if failed {
			return nil, nil, types.ErrComputation("max negative position impact")
		}
		if raw.AbsUint().GT(cap) {
			diff = num.UintZero().Sub(raw.AbsUint(), cap)
			return num.IntFromUint(cap, false), diff, nil
		}
		return raw, diff, nil
	default:
		return raw, diff, nil
	}
}

// positionImpactAmount converts a signed usd position impact into index
// tokens. A positive amount truncates, a negative amount rounds up
// against the trader.
func positionImpactAmount(impact *num.Int, indexPrice *types.Price) (*num.Int, error) {
	if impact.IsZero() {
		return num.IntZero(), nil
	}
	if impact.IsPositive() {
		if indexPrice.Max.IsZero() {
			return nil, types.ErrComputation("position impact amount with zero price")
		}
		return num.IntFromUint(num.UintZero().Div(impact.AbsUint(), indexPrice.Max), true), nil
	}
	amount, failed := num.RoundUpDiv(impact.AbsUint(), indexPrice.Min)
	if failed {
		return nil, types.ErrComputation("position impact amount")
	}
	return num.IntFromUint(amount, false), nil
}
