package types

import (
	"code.meridianprotocol.io/meridian/libs/num"
)

// SwapFees is the split of one swap fee between the fee receiver and the
// liquidity pool.
type SwapFees struct {
	ForReceiver *num.Uint
	ForPool     *num.Uint
}

func ZeroSwapFees() SwapFees {
	return SwapFees{
		ForReceiver: num.UintZero(),
		ForPool:     num.UintZero(),
	}
}

// Total returns the whole fee amount.
func (f SwapFees) Total() *num.Uint {
	return num.Sum(f.ForReceiver, f.ForPool)
}

// PositionFees is the fee breakdown charged on a position size delta, all
// amounts in collateral token units unless stated otherwise.
type PositionFees struct {
	OrderFeeForReceiver *num.Uint
	OrderFeeForPool     *num.Uint

	BorrowingFeeAmount *num.Uint
	// FundingFeeAmount is the outstanding payer-side funding owed by the
	// position.
	FundingFeeAmount *num.Uint
	// ClaimableFundingAmounts are the receiver-side amounts per collateral
	// token the position owner may claim.
	ClaimableFundingAmounts SidePair

	LiquidationFeeForReceiver *num.Uint
	LiquidationFeeForPool     *num.Uint

	// PaidFromSources is set when the fees could not be taken from the
	// collateral alone and were materialised as primary pool adjustments
	// by the three-source pay-down instead. The amounts above stay as the
	// charged breakdown either way.
	PaidFromSources bool
}

func ZeroPositionFees() PositionFees {
	return PositionFees{
		OrderFeeForReceiver:       num.UintZero(),
		OrderFeeForPool:           num.UintZero(),
		BorrowingFeeAmount:        num.UintZero(),
		FundingFeeAmount:          num.UintZero(),
		ClaimableFundingAmounts:   ZeroSidePair(),
		LiquidationFeeForReceiver: num.UintZero(),
		LiquidationFeeForPool:     num.UintZero(),
	}
}

// ForReceiver is everything credited to the claimable fee pool.
func (f PositionFees) ForReceiver() *num.Uint {
	return num.Sum(f.OrderFeeForReceiver, f.LiquidationFeeForReceiver)
}

// ForPool is everything credited to the primary liquidity pool, the
// borrowing fee included.
func (f PositionFees) ForPool() *num.Uint {
	return num.Sum(f.OrderFeeForPool, f.BorrowingFeeAmount, f.LiquidationFeeForPool)
}

// TotalCostAmount is the full amount charged against the position
// collateral, funding included.
func (f PositionFees) TotalCostAmount() *num.Uint {
	return num.Sum(f.ForReceiver(), f.ForPool(), f.FundingFeeAmount)
}

// TotalCostExcludingFunding is the cost the collateral processor settles
// against the pay-down sources, funding is paid separately.
func (f PositionFees) TotalCostExcludingFunding() *num.Uint {
	return num.Sum(f.ForReceiver(), f.ForPool())
}

