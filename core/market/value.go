package market

import (
	"code.meridianprotocol.io/meridian/core/types"
	"code.meridianprotocol.io/meridian/libs/num"
)

// Valuation helpers over the staged market state. All usd values are at
// the market fixed point unit.

// PrimaryPoolUsdValue values one side of the primary pool at the picked
// price.
func (r *Revertible) PrimaryPoolUsdValue(prices *types.Prices, isLong, maximize bool) (*num.Uint, error) {
	price := prices.CollateralPrice(isLong).Pick(maximize)
	v, err := r.pools[PoolPrimary].UsdValue(isLong, price)
	if err != nil {
		return nil, types.ErrComputation("primary pool usd value")
	}
	return v, nil
}

// PnlValue returns the aggregate unrealised PnL of one position side. The
// maximize flag picks the index price most favourable to the traders.
func (r *Revertible) PnlValue(prices *types.Prices, isLong, maximize bool) (*num.Int, error) {
	oiUsd := r.OpenInterest(isLong)
	oiTokens := r.OpenInterestInTokens(isLong)
	price := prices.IndexTokenPrice.Pick(isLong == maximize)
	value, overflow := num.UintZero().MulOverflow(oiTokens, price)
	if overflow {
		return nil, types.ErrComputation("open interest value")
	}
	mag, neg := num.UintZero().Delta(value, oiUsd)
	if isLong {
		return num.IntFromUint(mag, !neg), nil
	}
	return num.IntFromUint(mag, neg), nil
}

// CappedPnlValue caps a positive side PnL at the configured factor of the
// side pool value for the given cap kind.
func (r *Revertible) CappedPnlValue(prices *types.Prices, kind types.PnlFactorKind, isLong, maximize bool) (*num.Int, error) {
	pnl, err := r.PnlValue(prices, isLong, maximize)
	if err != nil {
		return nil, err
	}
	if !pnl.IsPositive() {
		return pnl, nil
	}
	poolUsd, err := r.PrimaryPoolUsdValue(prices, isLong, maximize)
	if err != nil {
		return nil, err
	}
	cap, failed := num.ApplyFactor(poolUsd, r.Config().MaxPnlFactor(kind, isLong), r.Unit())
	if failed {
		return nil, types.ErrComputation("pnl cap")
	}
	if pnl.U.GT(cap) {
		return num.IntFromUint(cap, true), nil
	}
	return pnl, nil
}

// PositionImpactPoolAmount is the index token balance of the position
// impact pool.
func (r *Revertible) PositionImpactPoolAmount() *num.Uint {
	return r.pools[PoolPositionImpact].Amount(true)
}

// PoolValue returns the market pool value with capped PnL and the position
// impact pool subtracted. The maximize flag values holdings as high as
// possible while minimizing the PnL owed to traders.
func (r *Revertible) PoolValue(prices *types.Prices, kind types.PnlFactorKind, maximize bool) (*num.Int, error) {
	longUsd, err := r.PrimaryPoolUsdValue(prices, true, maximize)
	if err != nil {
		return nil, err
	}
	shortUsd, err := r.PrimaryPoolUsdValue(prices, false, maximize)
	if err != nil {
		return nil, err
	}
	value := num.IntFromUint(longUsd, true).AddUint(shortUsd)

	longPnl, err := r.CappedPnlValue(prices, kind, true, !maximize)
	if err != nil {
		return nil, err
	}
	shortPnl, err := r.CappedPnlValue(prices, kind, false, !maximize)
	if err != nil {
		return nil, err
	}
	value.Sub(longPnl)
	value.Sub(shortPnl)

	impactUsd, overflow := num.UintZero().MulOverflow(
		r.PositionImpactPoolAmount(), prices.IndexTokenPrice.Pick(!maximize))
	if overflow {
		return nil, types.ErrComputation("position impact pool value")
	}
	value.SubUint(impactUsd)
	return value, nil
}

// ReservedValue is the usd amount positions on one side may need the pool
// to pay out: token denominated for longs, usd denominated for shorts.
func (r *Revertible) ReservedValue(prices *types.Prices, isLong bool) (*num.Uint, error) {
	if isLong {
		v, overflow := num.UintZero().MulOverflow(
			r.OpenInterestInTokens(true), prices.IndexTokenPrice.Max)
		if overflow {
			return nil, types.ErrComputation("reserved value")
		}
		return v, nil
	}
	return r.OpenInterest(false), nil
}

// ValidateReserve checks the reserved value of one side against the given
// factor of the side pool value.
func (r *Revertible) ValidateReserve(prices *types.Prices, isLong bool, factor *num.Uint) error {
	reserved, err := r.ReservedValue(prices, isLong)
	if err != nil {
		return err
	}
	poolUsd, err := r.PrimaryPoolUsdValue(prices, isLong, false)
	if err != nil {
		return err
	}
	max, failed := num.ApplyFactor(poolUsd, factor, r.Unit())
	if failed {
		return types.ErrComputation("max reserve")
	}
	if reserved.GT(max) {
		return types.InsufficientReserveError{
			Reserved: reserved.String(),
			Max:      max.String(),
		}
	}
	return nil
}

// ValidateMaxPnlFactor rejects a side whose maximized PnL factor exceeds
// the cap of the given kind.
func (r *Revertible) ValidateMaxPnlFactor(prices *types.Prices, kind types.PnlFactorKind, isLong bool) error {
	pnl, err := r.PnlValue(prices, isLong, true)
	if err != nil {
		return err
	}
	if !pnl.IsPositive() {
		return nil
	}
	poolUsd, err := r.PrimaryPoolUsdValue(prices, isLong, true)
	if err != nil {
		return err
	}
	if poolUsd.IsZero() {
		return types.PnlFactorExceededError{Kind: kind, IsLong: isLong}
	}
	factor, failed := num.DivToFactor(pnl.U, poolUsd, r.Unit(), false)
	if failed {
		return types.ErrComputation("pnl to pool factor")
	}
	if factor.GT(r.Config().MaxPnlFactor(kind, isLong)) {
		return types.PnlFactorExceededError{Kind: kind, IsLong: isLong}
	}
	return nil
}

// ValidatePoolAmount checks the primary pool side against its configured
// amount cap.
func (r *Revertible) ValidatePoolAmount(isLong bool) error {
	if r.PoolAmount(PoolPrimary, isLong).GT(r.Config().MaxPoolAmount.Get(isLong)) {
		return types.MaxPoolAmountExceededError{IsLong: isLong}
	}
	return nil
}

// ValidatePoolValueForDeposit checks the primary pool side value against
// the deposit value cap.
func (r *Revertible) ValidatePoolValueForDeposit(prices *types.Prices, isLong bool) error {
	poolUsd, err := r.PrimaryPoolUsdValue(prices, isLong, true)
	if err != nil {
		return err
	}
	if poolUsd.GT(r.Config().MaxPoolValueForDeposit.Get(isLong)) {
		return types.MaxPoolValueExceededError{IsLong: isLong}
	}
	return nil
}

// ValidateOpenInterest checks one side against its open interest cap.
func (r *Revertible) ValidateOpenInterest(isLong bool) error {
	if r.OpenInterest(isLong).GT(r.Config().MaxOpenInterest.Get(isLong)) {
		return types.MaxOpenInterestExceededError{IsLong: isLong}
	}
	return nil
}

// ValidateMarketBalances checks that the recorded bank balance of each
// collateral token covers the pools denominated in it, with the extra
// amounts the current action is about to transfer out still included.
func (r *Revertible) ValidateMarketBalances(extraLong, extraShort *num.Uint) error {
	if extraLong == nil {
		extraLong = num.UintZero()
	}
	if extraShort == nil {
		extraShort = num.UintZero()
	}
	meta := r.Meta()
	if meta.IsPure() {
		expected := num.Sum(
			r.pools[PoolPrimary].Total(),
			r.pools[PoolSwapImpact].Total(),
			r.pools[PoolClaimableFee].Total(),
			r.pools[PoolCollateralSumForLong].Total(),
			r.pools[PoolCollateralSumForShort].Total(),
			r.ClaimableCollateral(meta.LongToken),
			extraLong, extraShort,
		)
		if r.Balance(meta.LongToken).LT(expected) {
			return types.ErrInvalidArgument("market balance less than expected for " + meta.LongToken)
		}
	} else {
		for _, isLong := range []bool{true, false} {
			extra := extraLong
			if !isLong {
				extra = extraShort
			}
			token := meta.Token(isLong)
			expected := num.Sum(
				r.pools[PoolPrimary].Amount(isLong),
				r.pools[PoolSwapImpact].Amount(isLong),
				r.pools[PoolClaimableFee].Amount(isLong),
				r.pools[PoolCollateralSumForLong].Amount(isLong),
				r.pools[PoolCollateralSumForShort].Amount(isLong),
				r.ClaimableCollateral(token),
				extra,
			)
			if r.Balance(token).LT(expected) {
				return types.ErrInvalidArgument("market balance less than expected for " + token)
			}
		}
	}
	// the position impact pool is virtual index token accounting, it only
	// discounts the pool value and never maps to vault balances
	return nil
}
