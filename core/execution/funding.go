package execution

import (
	"code.meridianprotocol.io/meridian/core/market"
	"code.meridianprotocol.io/meridian/core/types"
	"code.meridianprotocol.io/meridian/libs/num"
)

// updateBorrowingState accrues the cumulative borrowing factor per side
// from the reserve utilisation since the last borrowing clock tick.
func updateBorrowingState(rm *market.Revertible, prices *types.Prices, now int64) (types.UpdateBorrowingReport, error) {
	report := types.UpdateBorrowingReport{
		MarketID:                  rm.Meta().ID,
		NextCumulativeFactorDelta: types.ZeroSidePair(),
	}
	dt, err := rm.JustPassedSeconds(market.ClockBorrowing, now)
	if err != nil {
		return report, err
	}
	report.Seconds = dt
	if dt == 0 {
		return report, nil
	}
	cfg := rm.Config()
	unit := rm.Unit()
	for _, isLong := range []bool{true, false} {
		if cfg.Borrowing.SkipBorrowingFeeForSmallerSide &&
			rm.OpenInterest(isLong).LT(rm.OpenInterest(!isLong)) {
			continue
		}
		reserved, err := rm.ReservedValue(prices, isLong)
		if err != nil {
			return report, err
		}
		if reserved.IsZero() {
			continue
		}
		poolUsd, err := rm.PrimaryPoolUsdValue(prices, isLong, false)
		if err != nil {
			return report, err
		}
		if poolUsd.IsZero() {
			return report, types.ErrInvalidPoolValue("borrowing accrual with reserved value on an empty pool")
		}
		utilisation, failed := num.DivToFactor(reserved, poolUsd, unit, false)
		if failed {
			return report, types.ErrComputation("borrowing utilisation")
		}
		curved, failed := num.ApplyExponentFactor(utilisation, cfg.Borrowing.Exponent(isLong), unit)
		if failed {
			return report, types.ErrComputation("borrowing utilisation exponent")
		}
		perSecond, failed := num.ApplyFactor(curved, cfg.Borrowing.Factor(isLong), unit)
		if failed {
			return report, types.ErrComputation("borrowing factor per second")
		}
		delta, failed := num.UintZero().MulOverflow(perSecond, num.NewUint(dt))
		if failed {
			return report, types.ErrComputation("borrowing factor delta")
		}
		if err := rm.ApplyDeltaToPool(market.PoolBorrowingFactor, isLong, num.IntFromUint(delta, true)); err != nil {
			return report, err
		}
		report.NextCumulativeFactorDelta.Set(isLong, delta)
	}
	return report, nil
}

// updateFundingState recomputes the funding rate from the open interest
// imbalance and settles the elapsed funding into the per-size
// accumulators. A positive funding factor means longs pay shorts.
func updateFundingState(rm *market.Revertible, prices *types.Prices, now int64) (types.UpdateFundingReport, error) {
	report := types.UpdateFundingReport{
		MarketID:                           rm.Meta().ID,
		NextFundingFactorPerSecond:         rm.FundingFactorPerSecond().Clone(),
		FundingAmountPerSizeDelta:          types.ZeroFundingDeltas(),
		ClaimableFundingAmountPerSizeDelta: types.ZeroFundingDeltas(),
	}
	dt, err := rm.JustPassedSeconds(market.ClockFunding, now)
	if err != nil {
		return report, err
	}
	report.Seconds = dt
	if dt == 0 {
		return report, nil
	}
	longOI, shortOI := rm.OpenInterest(true), rm.OpenInterest(false)
	if longOI.IsZero() || shortOI.IsZero() {
		return report, nil
	}

	next, err := nextFundingFactorPerSecond(rm, dt, longOI, shortOI)
	if err != nil {
		return report, err
	}
	rm.SetFundingFactorPerSecond(next)
	report.NextFundingFactorPerSecond = next.Clone()
	if next.IsZero() {
		return report, nil
	}

	payerIsLong := next.IsPositive()
	if err := settleFunding(rm, prices, &report, dt, next, payerIsLong); err != nil {
		return report, err
	}
	return report, nil
}

// nextFundingFactorPerSecond applies the adaptive funding regime: grow the
// rate while the imbalance leans against it, let it decay once the skew is
// back under the decrease threshold, and clamp the magnitude.
func nextFundingFactorPerSecond(rm *market.Revertible, dt uint64, longOI, shortOI *num.Uint) (*num.Int, error) {
	cfg := rm.Config().Funding
	unit := rm.Unit()
	current := rm.FundingFactorPerSecond().Clone()

	diff, shortHeavy := num.UintZero().Delta(longOI, shortOI)
	total := num.Sum(longOI, shortOI)
	diffFactor, failed := num.DivToFactor(diff, total, unit, false)
	if failed {
		return nil, types.ErrComputation("funding imbalance factor")
	}
	if cfg.ExponentFactor != nil && !cfg.ExponentFactor.IsZero() && cfg.ExponentFactor.NEQ(unit) {
		diffFactor, failed = num.ApplyExponentFactor(diffFactor, cfg.ExponentFactor, unit)
		if failed {
			return nil, types.ErrComputation("funding imbalance exponent")
		}
	}
	longsPay := !shortHeavy && !diff.IsZero()

	// a rate pointing away from the heavier side is never stable
	aligned := current.IsZero() || diff.IsZero() || current.IsPositive() == longsPay

	switch {
	case !aligned || diffFactor.GT(cfg.ThresholdForStableFunding):
		step, failed := num.ApplyFactor(diffFactor, cfg.IncreaseFactorPerSecond, unit)
		if failed {
			return nil, types.ErrComputation("funding increase step")
		}
		step, failed = num.UintZero().MulOverflow(step, num.NewUint(dt))
		if failed {
			return nil, types.ErrComputation("funding increase delta")
		}
		current.Add(num.IntFromUint(step, longsPay))
	case diffFactor.LT(cfg.ThresholdForDecreaseFunding):
		decay, failed := num.UintZero().MulOverflow(cfg.DecreaseFactorPerSecond, num.NewUint(dt))
		if failed {
			return nil, types.ErrComputation("funding decrease delta")
		}
		if decay.GTE(current.AbsUint()) {
			current = num.IntZero()
		} else {
			current = num.IntFromUint(num.UintZero().Sub(current.AbsUint(), decay), current.IsPositive())
		}
	}
	if current.IsZero() {
		return current, nil
	}
	return num.BoundMagnitude(current, cfg.MinFactorPerSecond, cfg.MaxFactorPerSecond), nil
}

// settleFunding converts the elapsed funding into per-size accumulator
// increments. The total funding value is split across the payer side's
// collateral tokens by open interest share, the payer per-size delta
// rounds up and the receiver per-size delta rounds down so the market
// never distributes more than it collects.
func settleFunding(
	rm *market.Revertible,
	prices *types.Prices,
	report *types.UpdateFundingReport,
	dt uint64,
	factor *num.Int,
	payerIsLong bool,
) error {
	unit := rm.Unit()
	adjustment := rm.Config().FundingAmountPerSizeAdjustment

	longOI, shortOI := rm.OpenInterest(true), rm.OpenInterest(false)
	largerOI := num.Max(longOI, shortOI)
	rate, failed := num.UintZero().MulOverflow(factor.AbsUint(), num.NewUint(dt))
	if failed {
		return types.ErrComputation("funding rate over interval")
	}
	fundingUsd, failed := num.ApplyFactor(largerOI, rate, unit)
	if failed {
		return types.ErrComputation("funding value")
	}
	if fundingUsd.IsZero() {
		return nil
	}

	payerPool := rm.Pool(market.OpenInterestPoolKind(payerIsLong))
	receiverOI := rm.OpenInterest(!payerIsLong)
	payerTotal := payerPool.Total()
	if payerTotal.IsZero() || receiverOI.IsZero() {
		return nil
	}

	payerDeltas := types.ZeroSidePair()
	receiverDeltas := types.ZeroSidePair()
	tokenSides := []bool{true, false}
	if rm.Meta().IsPure() {
		tokenSides = []bool{true}
	}
	for _, tokenIsLong := range tokenSides {
		tokenOI := payerPool.Amount(tokenIsLong)
		if tokenOI.IsZero() {
			continue
		}
		share, failed := num.MulDiv(fundingUsd, tokenOI, payerTotal)
		if failed {
			return types.ErrComputation("funding share")
		}
		if share.IsZero() {
			continue
		}
		price := prices.CollateralPrice(tokenIsLong).Max

		payerDenom, failed := num.UintZero().MulOverflow(price, tokenOI)
		if failed {
			return types.ErrComputation("funding payer denominator")
		}
		payerDelta, failed := num.MulDivCeil(share, adjustment, payerDenom)
		if failed {
			return types.ErrComputation("funding payer per-size delta")
		}
		payerDeltas.Set(tokenIsLong, payerDelta)

		receiverDenom, failed := num.UintZero().MulOverflow(price, receiverOI)
		if failed {
			return types.ErrComputation("funding receiver denominator")
		}
		receiverDelta, failed := num.MulDiv(share, adjustment, receiverDenom)
		if failed {
			return types.ErrComputation("funding receiver per-size delta")
		}
		receiverDeltas.Set(tokenIsLong, receiverDelta)
	}

	for _, tokenIsLong := range tokenSides {
		if d := payerDeltas.Get(tokenIsLong); !d.IsZero() {
			err := rm.ApplyDeltaToPool(
				market.FundingAmountPerSizePoolKind(payerIsLong), tokenIsLong, num.IntFromUint(d, true))
			if err != nil {
				return err
			}
		}
		if d := receiverDeltas.Get(tokenIsLong); !d.IsZero() {
			err := rm.ApplyDeltaToPool(
				market.ClaimableFundingAmountPerSizePoolKind(!payerIsLong), tokenIsLong, num.IntFromUint(d, true))
			if err != nil {
				return err
			}
		}
	}

	if payerIsLong {
		report.FundingAmountPerSizeDelta.ForLong = payerDeltas
		report.ClaimableFundingAmountPerSizeDelta.ForShort = receiverDeltas
	} else {
		report.FundingAmountPerSizeDelta.ForShort = payerDeltas
		report.ClaimableFundingAmountPerSizeDelta.ForLong = receiverDeltas
	}
	return nil
}
