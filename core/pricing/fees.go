package pricing

import (
	"code.meridianprotocol.io/meridian/core/types"
	"code.meridianprotocol.io/meridian/libs/num"
)

// SwapPricingKind selects the flavour of swap pricing an action uses, it
// changes which fee factors apply.
type SwapPricingKind int

const (
	// SwapPricingSwap is a plain swap hop.
	SwapPricingSwap SwapPricingKind = iota
	// SwapPricingDeposit prices the implicit swap of a deposit.
	SwapPricingDeposit
	// SwapPricingWithdrawal prices the implicit swap of a withdrawal.
	SwapPricingWithdrawal
	// SwapPricingShift prices a liquidity shift, both impact fee factors
	// are zeroed while the receiver split is kept.
	SwapPricingShift
)

// ApplySwapFees charges the swap fee on an amount and splits it between
// the fee receiver and the pool. Returns the amount net of fees.
func ApplySwapFees(
	params types.SwapFeeParams,
	unit *num.Uint,
	kind SwapPricingKind,
	isPositiveImpact bool,
	amount *num.Uint,
) (*num.Uint, types.SwapFees, error) {
	factor := params.NegativeImpactFeeFactor
	if isPositiveImpact {
		factor = params.PositiveImpactFeeFactor
	}
	if kind == SwapPricingShift {
		factor = num.UintZero()
	}
	fee, failed := num.ApplyFactor(amount, factor, unit)
	if failed {
		return nil, types.SwapFees{}, types.ErrComputation("swap fee")
	}
	if params.DiscountFactor != nil && !params.DiscountFactor.IsZero() {
		discount, failed := num.ApplyFactor(fee, params.DiscountFactor, unit)
		if failed {
			return nil, types.SwapFees{}, types.ErrComputation("swap fee discount")
		}
		fee.Sub(fee, discount)
	}
	receiver, failed := num.ApplyFactor(fee, params.FeeReceiverFactor, unit)
	if failed {
		return nil, types.SwapFees{}, types.ErrComputation("swap fee receiver split")
	}
	pool := num.UintZero().Sub(fee, receiver)
	after, underflow := num.UintZero().SubOverflow(amount, fee)
	if underflow {
		return nil, types.SwapFees{}, types.ErrComputation("swap fee larger than amount")
	}
	return after, types.SwapFees{ForReceiver: receiver, ForPool: pool}, nil
}

// PositionFeeInputs carries everything the position fee computation needs
// from the market and the position.
type PositionFeeInputs struct {
	Unit             *num.Uint
	CollateralPrice  *types.Price
	SizeDeltaUsd     *num.Uint
	SizeInUsd        *num.Uint
	IsPositiveImpact bool

	CumulativeBorrowingFactor *num.Uint
	PositionBorrowingFactor   *num.Uint

	LatestFundingAmountPerSize   *num.Uint
	PositionFundingAmountPerSize *num.Uint

	LatestClaimableFundingAmountPerSize   types.SidePair
	PositionClaimableFundingAmountPerSize types.SidePair

	FundingAdjustment *num.Uint
}

// ComputePositionFees builds the full fee breakdown for a position size
// delta: order fee, borrowing fee since the position snapshot, outstanding
// payer funding and receiver claimable funding. All token amounts are
// charged at the min collateral price with the rounding against the
// trader.
func ComputePositionFees(params types.OrderFeeParams, in PositionFeeInputs) (types.PositionFees, error) {
	fees := types.ZeroPositionFees()

	factor := params.NegativeImpactFeeFactor
	if in.IsPositiveImpact {
		factor = params.PositiveImpactFeeFactor
	}
	feeUsd, failed := num.ApplyFactor(in.SizeDeltaUsd, factor, in.Unit)
	if failed {
		return fees, types.ErrComputation("order fee")
	}
	if params.DiscountFactor != nil && !params.DiscountFactor.IsZero() {
		discount, failed := num.ApplyFactor(feeUsd, params.DiscountFactor, in.Unit)
		if failed {
			return fees, types.ErrComputation("order fee discount")
		}
		feeUsd.Sub(feeUsd, discount)
	}
	feeAmount, failed := num.RoundUpDiv(feeUsd, in.CollateralPrice.Min)
	if failed {
		return fees, types.ErrComputation("order fee amount")
	}
	receiver, failed := num.ApplyFactor(feeAmount, params.FeeReceiverFactor, in.Unit)
	if failed {
		return fees, types.ErrComputation("order fee receiver split")
	}
	fees.OrderFeeForReceiver = receiver
	fees.OrderFeeForPool = num.UintZero().Sub(feeAmount, receiver)

	borrowing, err := borrowingFeeAmount(in)
	if err != nil {
		return fees, err
	}
	fees.BorrowingFeeAmount = borrowing

	funding, claimable, err := fundingFeeAmounts(in)
	if err != nil {
		return fees, err
	}
	fees.FundingFeeAmount = funding
	fees.ClaimableFundingAmounts = claimable
	return fees, nil
}

func borrowingFeeAmount(in PositionFeeInputs) (*num.Uint, error) {
	diff, underflow := num.UintZero().SubOverflow(in.CumulativeBorrowingFactor, in.PositionBorrowingFactor)
	if underflow {
		return nil, types.ErrComputation("borrowing factor went backwards")
	}
	feeUsd, failed := num.ApplyFactor(in.SizeInUsd, diff, in.Unit)
	if failed {
		return nil, types.ErrComputation("borrowing fee")
	}
	amount, failed := num.RoundUpDiv(feeUsd, in.CollateralPrice.Min)
	if failed {
		return nil, types.ErrComputation("borrowing fee amount")
	}
	return amount, nil
}

func fundingFeeAmounts(in PositionFeeInputs) (*num.Uint, types.SidePair, error) {
	diff, underflow := num.UintZero().SubOverflow(in.LatestFundingAmountPerSize, in.PositionFundingAmountPerSize)
	if underflow {
		return nil, types.SidePair{}, types.ErrComputation("funding amount per size went backwards")
	}
	// the payer side rounds up so the market never undercollects
	funding, failed := num.MulDivCeil(in.SizeInUsd, diff, in.FundingAdjustment)
	if failed {
		return nil, types.SidePair{}, types.ErrComputation("funding fee amount")
	}

	claimable := types.ZeroSidePair()
	for _, isLong := range []bool{true, false} {
		diff, underflow := num.UintZero().SubOverflow(
			in.LatestClaimableFundingAmountPerSize.Get(isLong),
			in.PositionClaimableFundingAmountPerSize.Get(isLong),
		)
		if underflow {
			return nil, types.SidePair{}, types.ErrComputation("claimable funding amount per size went backwards")
		}
		// the receiver side rounds down
		amount, failed := num.MulDiv(in.SizeInUsd, diff, in.FundingAdjustment)
		if failed {
			return nil, types.SidePair{}, types.ErrComputation("claimable funding amount")
		}
		claimable.Set(isLong, amount)
	}
	return funding, claimable, nil
}

// ComputeLiquidationFees charges the extra liquidation fee on the closed
// size and splits it like an order fee.
func ComputeLiquidationFees(
	params types.LiquidationFeeParams,
	unit *num.Uint,
	sizeDeltaUsd *num.Uint,
	collateralPrice *types.Price,
) (forReceiver, forPool *num.Uint, err error) {
	if params.FeeFactor == nil || params.FeeFactor.IsZero() {
		return num.UintZero(), num.UintZero(), nil
	}
	feeUsd, failed := num.ApplyFactor(sizeDeltaUsd, params.FeeFactor, unit)
	if failed {
		return nil, nil, types.ErrComputation("liquidation fee")
	}
	amount, failed := num.RoundUpDiv(feeUsd, collateralPrice.Min)
	if failed {
		return nil, nil, types.ErrComputation("liquidation fee amount")
	}
	receiver, failed := num.ApplyFactor(amount, params.FeeReceiverFactor, unit)
	if failed {
		return nil, nil, types.ErrComputation("liquidation fee receiver split")
	}
	return receiver, num.UintZero().Sub(amount, receiver), nil
}
