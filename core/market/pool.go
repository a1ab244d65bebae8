package market

import (
	"code.meridianprotocol.io/meridian/core/types"
	"code.meridianprotocol.io/meridian/libs/num"
)

// PoolKind names the balance pools a market carries.
type PoolKind int

const (
	// PoolPrimary is the main liquidity pool backing the market.
	PoolPrimary PoolKind = iota
	// PoolSwapImpact holds the inventory swap impact rebates are paid from.
	PoolSwapImpact
	// PoolClaimableFee accrues the fee receiver share of all fees.
	PoolClaimableFee
	// PoolOpenInterestForLong is the usd open interest of long positions,
	// split by collateral token.
	PoolOpenInterestForLong
	// PoolOpenInterestForShort is the usd open interest of short positions,
	// split by collateral token.
	PoolOpenInterestForShort
	// PoolOpenInterestInTokensForLong is the index token open interest of
	// long positions, split by collateral token.
	PoolOpenInterestInTokensForLong
	// PoolOpenInterestInTokensForShort is the index token open interest of
	// short positions, split by collateral token.
	PoolOpenInterestInTokensForShort
	// PoolPositionImpact is the index token inventory position impact
	// rebates are paid from.
	PoolPositionImpact
	// PoolBorrowingFactor holds the cumulative borrowing factor per side.
	PoolBorrowingFactor
	// PoolTotalBorrowing holds the borrowing value snapshot sums per side.
	PoolTotalBorrowing
	// PoolFundingAmountPerSizeForLong is the payer funding accumulator for
	// long positions, split by collateral token.
	PoolFundingAmountPerSizeForLong
	// PoolFundingAmountPerSizeForShort is the payer funding accumulator for
	// short positions, split by collateral token.
	PoolFundingAmountPerSizeForShort
	// PoolClaimableFundingAmountPerSizeForLong is the receiver funding
	// accumulator for long positions, split by collateral token.
	PoolClaimableFundingAmountPerSizeForLong
	// PoolClaimableFundingAmountPerSizeForShort is the receiver funding
	// accumulator for short positions, split by collateral token.
	PoolClaimableFundingAmountPerSizeForShort
	// PoolCollateralSumForLong sums the collateral of long positions, split
	// by collateral token.
	PoolCollateralSumForLong
	// PoolCollateralSumForShort sums the collateral of short positions,
	// split by collateral token.
	PoolCollateralSumForShort
)

var allPoolKinds = []PoolKind{
	PoolPrimary,
	PoolSwapImpact,
	PoolClaimableFee,
	PoolOpenInterestForLong,
	PoolOpenInterestForShort,
	PoolOpenInterestInTokensForLong,
	PoolOpenInterestInTokensForShort,
	PoolPositionImpact,
	PoolBorrowingFactor,
	PoolTotalBorrowing,
	PoolFundingAmountPerSizeForLong,
	PoolFundingAmountPerSizeForShort,
	PoolClaimableFundingAmountPerSizeForLong,
	PoolClaimableFundingAmountPerSizeForShort,
	PoolCollateralSumForLong,
	PoolCollateralSumForShort,
}

func (k PoolKind) String() string {
	switch k {
	case PoolPrimary:
		return "primary"
	case PoolSwapImpact:
		return "swap-impact"
	case PoolClaimableFee:
		return "claimable-fee"
	case PoolOpenInterestForLong:
		return "open-interest-for-long"
	case PoolOpenInterestForShort:
		return "open-interest-for-short"
	case PoolOpenInterestInTokensForLong:
		return "open-interest-in-tokens-for-long"
	case PoolOpenInterestInTokensForShort:
		return "open-interest-in-tokens-for-short"
	case PoolPositionImpact:
		return "position-impact"
	case PoolBorrowingFactor:
		return "borrowing-factor"
	case PoolTotalBorrowing:
		return "total-borrowing"
	case PoolFundingAmountPerSizeForLong:
		return "funding-amount-per-size-for-long"
	case PoolFundingAmountPerSizeForShort:
		return "funding-amount-per-size-for-short"
	case PoolClaimableFundingAmountPerSizeForLong:
		return "claimable-funding-amount-per-size-for-long"
	case PoolClaimableFundingAmountPerSizeForShort:
		return "claimable-funding-amount-per-size-for-short"
	case PoolCollateralSumForLong:
		return "collateral-sum-for-long"
	case PoolCollateralSumForShort:
		return "collateral-sum-for-short"
	default:
		return "unknown"
	}
}

// keepsSidesWhenPure lists the pools whose two slots genuinely differ even
// on a pure market, everything else collapses into the long slot.
func (k PoolKind) keepsSidesWhenPure() bool {
	switch k {
	case PoolFundingAmountPerSizeForLong,
		PoolFundingAmountPerSizeForShort,
		PoolClaimableFundingAmountPerSizeForLong,
		PoolClaimableFundingAmountPerSizeForShort,
		PoolBorrowingFactor,
		PoolTotalBorrowing:
		return true
	default:
		return false
	}
}

// Pool is a two sided balance. On a pure market (long and short tokens
// share a mint) both sides route into the long slot unless the pool kind
// keeps its sides.
type Pool struct {
	longAmount  *num.Uint
	shortAmount *num.Uint
	pure        bool
}

// NewPool returns an empty pool, collapsing both sides when pure is set.
func NewPool(pure bool) *Pool {
	return &Pool{
		longAmount:  num.UintZero(),
		shortAmount: num.UintZero(),
		pure:        pure,
	}
}

func (p *Pool) side(isLong bool) *num.Uint {
	if isLong || p.pure {
		return p.longAmount
	}
	return p.shortAmount
}

// Amount returns a copy of the balance on the given side.
func (p *Pool) Amount(isLong bool) *num.Uint {
	return p.side(isLong).Clone()
}

// LongAmount returns a copy of the long side balance.
func (p *Pool) LongAmount() *num.Uint {
	return p.longAmount.Clone()
}

// ShortAmount returns a copy of the short side balance.
func (p *Pool) ShortAmount() *num.Uint {
	return p.side(false).Clone()
}

// Total returns the sum of both sides, counting the collapsed slot once on
// a pure pool.
func (p *Pool) Total() *num.Uint {
	if p.pure {
		return p.longAmount.Clone()
	}
	return num.Sum(p.longAmount, p.shortAmount)
}

// UsdValue returns the side balance valued at the given unit price.
func (p *Pool) UsdValue(isLong bool, price *num.Uint) (*num.Uint, error) {
	v, overflow := num.UintZero().MulOverflow(p.side(isLong), price)
	if overflow {
		return nil, types.ErrOverflow
	}
	return v, nil
}

// ApplyDelta adds the signed delta to one side, underflow and overflow are
// both fatal.
func (p *Pool) ApplyDelta(isLong bool, delta *num.Int) error {
	s := p.side(isLong)
	if delta.IsNegative() {
		next, underflow := num.UintZero().SubOverflow(s, delta.U)
		if underflow {
			return types.ErrUnderflow
		}
		s.Set(next)
		return nil
	}
	next, overflow := num.UintZero().AddOverflow(s, delta.U)
	if overflow {
		return types.ErrOverflow
	}
	s.Set(next)
	return nil
}

// ApplyDeltaToLong adds the signed delta to the long side.
func (p *Pool) ApplyDeltaToLong(delta *num.Int) error {
	return p.ApplyDelta(true, delta)
}

// ApplyDeltaToShort adds the signed delta to the short side.
func (p *Pool) ApplyDeltaToShort(delta *num.Int) error {
	return p.ApplyDelta(false, delta)
}

// CheckedApplyDelta is the functional variant used by the revertible
// overlay, it returns a new pool with both deltas applied. Nil deltas
// leave the side untouched.
func (p *Pool) CheckedApplyDelta(longDelta, shortDelta *num.Int) (*Pool, error) {
	n := p.Clone()
	if longDelta != nil {
		if err := n.ApplyDelta(true, longDelta); err != nil {
			return nil, err
		}
	}
	if shortDelta != nil {
		if err := n.ApplyDelta(false, shortDelta); err != nil {
			return nil, err
		}
	}
	return n, nil
}

func (p *Pool) Clone() *Pool {
	return &Pool{
		longAmount:  p.longAmount.Clone(),
		shortAmount: p.shortAmount.Clone(),
		pure:        p.pure,
	}
}
