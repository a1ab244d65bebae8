package execution

import (
	"code.meridianprotocol.io/meridian/core/market"
	"code.meridianprotocol.io/meridian/core/pricing"
	"code.meridianprotocol.io/meridian/core/types"
	"code.meridianprotocol.io/meridian/libs/num"
)

// Helpers shared by the increase and decrease paths.

// latestClaimableFundingPair reads the receiver accumulators for a
// position side, one per collateral token.
func latestClaimableFundingPair(rm *market.Revertible, isLong bool) types.SidePair {
	pool := rm.Pool(market.ClaimableFundingAmountPerSizePoolKind(isLong))
	return types.NewSidePair(pool.LongAmount().Clone(), pool.ShortAmount().Clone())
}

// refreshPositionSnapshots pins the position to the market's current
// funding and borrowing accumulators.
func refreshPositionSnapshots(rm *market.Revertible, pos *types.Position) {
	pos.BorrowingFactor = rm.CumulativeBorrowingFactor(pos.IsLong).Clone()
	payerPool := rm.Pool(market.FundingAmountPerSizePoolKind(pos.IsLong))
	pos.FundingFeeAmountPerSize = payerPool.Amount(pos.IsCollateralTokenLong).Clone()
	pos.ClaimableFundingFeeAmountPerSize = latestClaimableFundingPair(rm, pos.IsLong)
}

// updateTotalBorrowing replaces a position's contribution to the total
// borrowing pool, where the contribution is size times the snapshot
// factor at the fixed point unit.
func updateTotalBorrowing(rm *market.Revertible, isLong bool, oldSize, oldFactor, newSize, newFactor *num.Uint) error {
	unit := rm.Unit()
	old, failed := num.ApplyFactor(oldSize, oldFactor, unit)
	if failed {
		return types.ErrComputation("total borrowing (old contribution)")
	}
	next, failed := num.ApplyFactor(newSize, newFactor, unit)
	if failed {
		return types.ErrComputation("total borrowing (new contribution)")
	}
	delta, neg := num.UintZero().Delta(next, old)
	if delta.IsZero() {
		return nil
	}
	return rm.ApplyDeltaToPool(market.PoolTotalBorrowing, isLong, num.IntFromUint(delta, !neg))
}

// positionFeeInputs assembles the market side of the position fee
// computation for a position.
func positionFeeInputs(rm *market.Revertible, prices *types.Prices, pos *types.Position, sizeDeltaUsd *num.Uint, isPositiveImpact bool) pricing.PositionFeeInputs {
	payerPool := rm.Pool(market.FundingAmountPerSizePoolKind(pos.IsLong))
	return pricing.PositionFeeInputs{
		Unit:             rm.Unit(),
		CollateralPrice:  prices.CollateralPrice(pos.IsCollateralTokenLong),
		SizeDeltaUsd:     sizeDeltaUsd,
		SizeInUsd:        pos.SizeInUsd,
		IsPositiveImpact: isPositiveImpact,

		CumulativeBorrowingFactor: rm.CumulativeBorrowingFactor(pos.IsLong),
		PositionBorrowingFactor:   pos.BorrowingFactor,

		LatestFundingAmountPerSize:   payerPool.Amount(pos.IsCollateralTokenLong),
		PositionFundingAmountPerSize: pos.FundingFeeAmountPerSize,

		LatestClaimableFundingAmountPerSize:   latestClaimableFundingPair(rm, pos.IsLong),
		PositionClaimableFundingAmountPerSize: pos.ClaimableFundingFeeAmountPerSize,

		FundingAdjustment: rm.Config().FundingAmountPerSizeAdjustment,
	}
}

// validateCollateralSufficiency checks the remaining collateral of an
// open position against the min collateral factor on its size.
func validateCollateralSufficiency(rm *market.Revertible, prices *types.Prices, pos *types.Position) error {
	if pos.SizeInUsd.IsZero() {
		return nil
	}
	collateralUsd, failed := num.UintZero().MulOverflow(
		pos.CollateralAmount, prices.CollateralPrice(pos.IsCollateralTokenLong).Min)
	if failed {
		return types.ErrComputation("collateral value")
	}
	required, failed := num.ApplyFactor(pos.SizeInUsd, rm.Config().Position.MinCollateralFactor, rm.Unit())
	if failed {
		return types.ErrComputation("min collateral requirement")
	}
	if collateralUsd.LT(required) {
		return types.ErrInvalidArgument("insufficient collateral usd")
	}
	return nil
}

// IncreasePositionParams are the caller supplied inputs of a position
// increase.
type IncreasePositionParams struct {
	CollateralIncrementAmount *num.Uint
	SizeDeltaUsd              *num.Uint
	// AcceptablePrice is optional, nil disables the check.
	AcceptablePrice *num.Uint
}

// executeIncreasePosition grows a position's size and collateral after
// settling funding and borrowing.
func executeIncreasePosition(
	rm *market.Revertible,
	prices *types.Prices,
	pos *types.Position,
	params IncreasePositionParams,
	now int64,
) (*types.IncreasePositionReport, error) {
	if err := prices.Validate(); err != nil {
		return nil, err
	}
	if err := pos.Validate(); err != nil {
		return nil, err
	}
	sizeDeltaUsd := params.SizeDeltaUsd
	if sizeDeltaUsd == nil {
		sizeDeltaUsd = num.UintZero()
	}
	collateralIncrement := params.CollateralIncrementAmount
	if collateralIncrement == nil {
		collateralIncrement = num.UintZero()
	}

	borrowing, err := updateBorrowingState(rm, prices, now)
	if err != nil {
		return nil, err
	}
	funding, err := updateFundingState(rm, prices, now)
	if err != nil {
		return nil, err
	}

	if pos.SizeInUsd.IsZero() {
		refreshPositionSnapshots(rm, pos)
		pos.SizeInTokens = num.UintZero()
	}

	impactValue, _, err := cappedPositionImpact(
		rm, prices, num.IntFromUint(sizeDeltaUsd, true), pos.IsLong, false, false)
	if err != nil {
		return nil, err
	}
	indexPrice := prices.IndexTokenPrice
	impactAmount, err := positionImpactAmount(impactValue, indexPrice)
	if err != nil {
		return nil, err
	}

	var sizeDeltaInTokens *num.Uint
	if pos.IsLong {
		sizeDeltaInTokens = num.UintZero().Div(sizeDeltaUsd, indexPrice.Max)
	} else {
		var failed bool
		sizeDeltaInTokens, failed = num.RoundUpDiv(sizeDeltaUsd, indexPrice.Min)
		if failed {
			return nil, types.ErrComputation("size delta in tokens")
		}
	}
	// a positive impact buys the long more tokens for the same usd, a
	// short position mirrors the adjustment
	tokenAdjustment := impactAmount.Clone()
	if !pos.IsLong {
		tokenAdjustment.FlipSign()
	}
	adjusted := num.IntFromUint(sizeDeltaInTokens, true).Add(tokenAdjustment)
	if adjusted.IsNegative() {
		return nil, types.ErrInvalidArgument("price impact larger than order size")
	}
	sizeDeltaInTokens = adjusted.AbsUint()

	var executionPrice *num.Uint
	if !sizeDeltaUsd.IsZero() {
		if sizeDeltaInTokens.IsZero() {
			return nil, types.ErrComputation("execution price with zero token delta")
		}
		executionPrice = num.UintZero().Div(sizeDeltaUsd, sizeDeltaInTokens)
		if params.AcceptablePrice != nil {
			if pos.IsLong && executionPrice.GT(params.AcceptablePrice) {
				return nil, types.ErrOrderNotFulfillableAtAcceptablePrice
			}
			if !pos.IsLong && executionPrice.LT(params.AcceptablePrice) {
				return nil, types.ErrOrderNotFulfillableAtAcceptablePrice
			}
		}
	} else {
		executionPrice = num.UintZero()
	}

	fees, err := pricing.ComputePositionFees(
		rm.Config().OrderFee, positionFeeInputs(rm, prices, pos, sizeDeltaUsd, impactValue.IsPositive()))
	if err != nil {
		return nil, err
	}
	collateralToken := rm.Meta().Token(pos.IsCollateralTokenLong)
	if !collateralIncrement.IsZero() {
		if err := rm.RecordTransferredIn(collateralToken, collateralIncrement); err != nil {
			return nil, err
		}
	}
	collateralDelta := num.IntFromUint(collateralIncrement, true).SubUint(fees.TotalCostAmount())
	nextCollateral := num.IntFromUint(pos.CollateralAmount, true).Add(collateralDelta)
	if nextCollateral.IsNegative() {
		return nil, types.ErrInsufficientFundsToPayForCosts
	}

	if err := rm.ApplyDeltaToPool(market.PoolClaimableFee, pos.IsCollateralTokenLong, num.IntFromUint(fees.ForReceiver(), true)); err != nil {
		return nil, err
	}
	if err := rm.ApplyDeltaToPool(market.PoolPrimary, pos.IsCollateralTokenLong, num.IntFromUint(fees.ForPool(), true)); err != nil {
		return nil, err
	}
	if err := rm.ApplyDeltaToPool(market.CollateralSumPoolKind(pos.IsLong), pos.IsCollateralTokenLong, collateralDelta); err != nil {
		return nil, err
	}
	pos.CollateralAmount = nextCollateral.AbsUint()

	impactPoolDelta := impactAmount.Clone()
	impactPoolDelta.FlipSign()
	if err := rm.ApplyDeltaToPool(market.PoolPositionImpact, true, impactPoolDelta); err != nil {
		return nil, err
	}

	oldSize, oldFactor := pos.SizeInUsd.Clone(), pos.BorrowingFactor.Clone()
	pos.SizeInUsd = num.UintZero().Add(pos.SizeInUsd, sizeDeltaUsd)
	pos.SizeInTokens = num.UintZero().Add(pos.SizeInTokens, sizeDeltaInTokens)
	refreshPositionSnapshots(rm, pos)
	if err := updateTotalBorrowing(rm, pos.IsLong, oldSize, oldFactor, pos.SizeInUsd, pos.BorrowingFactor); err != nil {
		return nil, err
	}

	if err := rm.UpdateOpenInterest(pos.IsLong, pos.IsCollateralTokenLong,
		num.IntFromUint(sizeDeltaUsd, true), num.IntFromUint(sizeDeltaInTokens, true)); err != nil {
		return nil, err
	}

	cfg := rm.Config()
	if err := rm.ValidateReserve(prices, pos.IsLong, cfg.ReserveFactor); err != nil {
		return nil, err
	}
	if err := rm.ValidateReserve(prices, pos.IsLong, cfg.OpenInterestReserveFactor); err != nil {
		return nil, err
	}
	if err := rm.ValidateOpenInterest(pos.IsLong); err != nil {
		return nil, err
	}
	if err := validateCollateralSufficiency(rm, prices, pos); err != nil {
		return nil, err
	}
	if cfg.Position.MinPositionSizeUsd != nil && pos.SizeInUsd.LT(cfg.Position.MinPositionSizeUsd) {
		return nil, types.ErrInvalidArgument("position size below minimum")
	}
	if cfg.Position.MinCollateralValue != nil {
		collateralUsd, failed := num.UintZero().MulOverflow(
			pos.CollateralAmount, prices.CollateralPrice(pos.IsCollateralTokenLong).Min)
		if failed {
			return nil, types.ErrComputation("collateral value")
		}
		if collateralUsd.LT(cfg.Position.MinCollateralValue) {
			return nil, types.ErrInvalidArgument("collateral value below minimum")
		}
	}
	if err := pos.Validate(); err != nil {
		return nil, err
	}

	pos.TradeID = rm.NextTradeID()
	pos.IncreasedAt = now

	return &types.IncreasePositionReport{
		MarketID:          rm.Meta().ID,
		ExecutionPrice:    executionPrice,
		PriceImpactValue:  impactValue,
		PriceImpactAmount: impactAmount,
		SizeDeltaUsd:      sizeDeltaUsd.Clone(),
		SizeDeltaInTokens: sizeDeltaInTokens,
		CollateralDelta:   collateralDelta,
		Fees:              fees,
		Borrowing:         borrowing,
		Funding:           funding,
	}, nil
}
