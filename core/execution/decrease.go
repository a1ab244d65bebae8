package execution

import (
	"code.meridianprotocol.io/meridian/core/market"
	"code.meridianprotocol.io/meridian/core/pricing"
	"code.meridianprotocol.io/meridian/core/types"
	"code.meridianprotocol.io/meridian/libs/num"
)

// DecreasePositionParams are the caller supplied inputs of a position
// decrease. Liquidations and ADL set their flag, which clamps the size
// delta and allows an insolvent close.
type DecreasePositionParams struct {
	CollateralWithdrawalAmount *num.Uint
	SizeDeltaUsd               *num.Uint
	// AcceptablePrice is optional, nil disables the check.
	AcceptablePrice *num.Uint
	IsLiquidation   bool
	IsAdl           bool
}

func executeDecreasePosition(
	rm *market.Revertible,
	prices *types.Prices,
	pos *types.Position,
	params DecreasePositionParams,
	now int64,
) (*types.DecreasePositionReport, error) {
	if err := prices.Validate(); err != nil {
		return nil, err
	}
	if err := pos.Validate(); err != nil {
		return nil, err
	}
	if pos.SizeInUsd.IsZero() {
		return nil, types.ErrInvalidPosition
	}

	borrowing, err := updateBorrowingState(rm, prices, now)
	if err != nil {
		return nil, err
	}
	funding, err := updateFundingState(rm, prices, now)
	if err != nil {
		return nil, err
	}

	sizeDeltaUsd := num.UintZero()
	if params.SizeDeltaUsd != nil {
		sizeDeltaUsd = params.SizeDeltaUsd.Clone()
	}
	forced := params.IsLiquidation || params.IsAdl
	if forced {
		sizeDeltaUsd = num.Min(sizeDeltaUsd, pos.SizeInUsd)
	} else if sizeDeltaUsd.GT(pos.SizeInUsd) {
		return nil, types.ErrInvalidArgument("size delta larger than position size")
	}
	withdrawal := num.UintZero()
	if params.CollateralWithdrawalAmount != nil {
		withdrawal = num.Min(params.CollateralWithdrawalAmount, pos.CollateralAmount)
	}

	impactValue, impactDiff, err := cappedPositionImpact(
		rm, prices, num.IntFromUint(sizeDeltaUsd, false), pos.IsLong, true, params.IsLiquidation)
	if err != nil {
		return nil, err
	}
	indexPrice := prices.IndexTokenPrice
	impactAmount, err := positionImpactAmount(impactValue, indexPrice)
	if err != nil {
		return nil, err
	}

	var sizeDeltaInTokens *num.Uint
	switch {
	case sizeDeltaUsd.EQ(pos.SizeInUsd):
		sizeDeltaInTokens = pos.SizeInTokens.Clone()
	case pos.IsLong:
		var failed bool
		sizeDeltaInTokens, failed = num.MulDiv(pos.SizeInTokens, sizeDeltaUsd, pos.SizeInUsd)
		if failed {
			return nil, types.ErrComputation("size delta in tokens")
		}
	default:
		var failed bool
		sizeDeltaInTokens, failed = num.MulDivCeil(pos.SizeInTokens, sizeDeltaUsd, pos.SizeInUsd)
		if failed {
			return nil, types.ErrComputation("size delta in tokens")
		}
	}

	executionPrice := num.UintZero()
	if !sizeDeltaInTokens.IsZero() {
		effective := num.IntFromUint(sizeDeltaUsd, true)
		if pos.IsLong {
			effective.Add(impactValue.Clone())
		} else {
			effective.Sub(impactValue.Clone())
		}
		// a negative execution value has no unsigned price representation
		if effective.IsNegative() {
			return nil, types.ErrConvert
		}
		executionPrice = num.UintZero().Div(effective.AbsUint(), sizeDeltaInTokens)
		if params.AcceptablePrice != nil {
			if pos.IsLong && executionPrice.LT(params.AcceptablePrice) {
				return nil, types.ErrOrderNotFulfillableAtAcceptablePrice
			}
			if !pos.IsLong && executionPrice.GT(params.AcceptablePrice) {
				return nil, types.ErrOrderNotFulfillableAtAcceptablePrice
			}
		}
	}

	pnl, err := realisedPnl(rm, prices, pos, sizeDeltaUsd, sizeDeltaInTokens, params.IsAdl)
	if err != nil {
		return nil, err
	}

	fees, err := pricing.ComputePositionFees(
		rm.Config().OrderFee, positionFeeInputs(rm, prices, pos, sizeDeltaUsd, impactValue.IsPositive()))
	if err != nil {
		return nil, err
	}
	if params.IsLiquidation {
		receiver, pool, err := pricing.ComputeLiquidationFees(
			rm.Config().LiquidationFee, rm.Unit(), sizeDeltaUsd, prices.CollateralPrice(pos.IsCollateralTokenLong))
		if err != nil {
			return nil, err
		}
		fees.LiquidationFeeForReceiver = receiver
		fees.LiquidationFeeForPool = pool
	}

	remainingCollateral := num.UintZero().Sub(pos.CollateralAmount, withdrawal)
	outputToken := rm.Meta().Token(pos.IsCollateralTokenLong)
	secondaryToken := rm.Meta().Token(pos.IsLong)

	proc := newCollateralProcessor(rm, prices, pos, withdrawal, remainingCollateral, forced)
	proc.addPnlIfPositive(pnl.Pnl).
		payForPnlIfNegative(pnl.Pnl).
		addPriceImpactIfPositive(impactValue, impactAmount).
		payForPriceImpactIfNegative(impactValue).
		payForFeesExcludingFunding(&fees).
		payForPriceImpactDiff(impactDiff, outputToken, secondaryToken)
	if err := proc.result(); err != nil {
		return nil, err
	}

	// the payer funding fee comes out of the collateral and stays in the
	// vault backing the receivers' claimable funding
	if !fees.FundingFeeAmount.IsZero() {
		next, underflow := num.UintZero().SubOverflow(proc.remainingCollateralAmount, fees.FundingFeeAmount)
		if underflow {
			if !forced {
				return nil, types.ErrInsufficientFundsToPayForCosts
			}
			next = num.UintZero()
		}
		proc.remainingCollateralAmount = next
	}

	fullClose := sizeDeltaUsd.EQ(pos.SizeInUsd)
	if fullClose {
		proc.outputAmount.Add(proc.outputAmount, proc.remainingCollateralAmount)
		proc.remainingCollateralAmount = num.UintZero()
	}

	consumed := num.UintZero().Sub(pos.CollateralAmount, proc.remainingCollateralAmount)
	if !consumed.IsZero() {
		if err := rm.ApplyDeltaToPool(
			market.CollateralSumPoolKind(pos.IsLong), pos.IsCollateralTokenLong,
			num.IntFromUint(consumed, false)); err != nil {
			return nil, err
		}
	}

	oldSize, oldFactor := pos.SizeInUsd.Clone(), pos.BorrowingFactor.Clone()
	nextSize, underflow := num.UintZero().SubOverflow(pos.SizeInUsd, sizeDeltaUsd)
	if underflow {
		return nil, types.ErrUnderflow
	}
	nextTokens, underflow := num.UintZero().SubOverflow(pos.SizeInTokens, sizeDeltaInTokens)
	if underflow {
		return nil, types.ErrUnderflow
	}
	pos.SizeInUsd, pos.SizeInTokens = nextSize, nextTokens
	pos.CollateralAmount = proc.remainingCollateralAmount.Clone()
	refreshPositionSnapshots(rm, pos)
	if err := updateTotalBorrowing(rm, pos.IsLong, oldSize, oldFactor, pos.SizeInUsd, pos.BorrowingFactor); err != nil {
		return nil, err
	}
	if err := rm.UpdateOpenInterest(pos.IsLong, pos.IsCollateralTokenLong,
		num.IntFromUint(sizeDeltaUsd, false), num.IntFromUint(sizeDeltaInTokens, false)); err != nil {
		return nil, err
	}

	// receiver-side funding accrued by this position becomes claimable
	// for the owner
	for _, tokenIsLong := range []bool{true, false} {
		amount := fees.ClaimableFundingAmounts.Get(tokenIsLong)
		if amount.IsZero() {
			continue
		}
		if err := rm.AddClaimableCollateral(rm.Meta().Token(tokenIsLong), amount); err != nil {
			return nil, err
		}
	}

	shouldRemove := pos.IsEmpty()
	if pos.SizeInUsd.IsZero() {
		pos.Reset()
	} else {
		if err := pos.Validate(); err != nil {
			return nil, err
		}
		cfg := rm.Config()
		if cfg.Position.MinPositionSizeUsd != nil && pos.SizeInUsd.LT(cfg.Position.MinPositionSizeUsd) {
			return nil, types.ErrInvalidArgument("remaining position size below minimum")
		}
		if err := validateCollateralSufficiency(rm, prices, pos); err != nil {
			return nil, err
		}
	}
	for _, isLong := range []bool{true, false} {
		if err := rm.ValidatePoolAmount(isLong); err != nil {
			return nil, err
		}
	}

	if !proc.outputAmount.IsZero() {
		if err := rm.RecordTransferredOut(outputToken, proc.outputAmount); err != nil {
			return nil, err
		}
	}
	if !proc.secondaryOutputAmount.IsZero() {
		if err := rm.RecordTransferredOut(secondaryToken, proc.secondaryOutputAmount); err != nil {
			return nil, err
		}
	}

	pos.TradeID = rm.NextTradeID()
	pos.DecreasedAt = now

	return &types.DecreasePositionReport{
		MarketID:          rm.Meta().ID,
		ExecutionPrice:    executionPrice,
		PriceImpactValue:  impactValue,
		PriceImpactDiff:   impactDiff,
		SizeDeltaUsd:      sizeDeltaUsd,
		SizeDeltaInTokens: sizeDeltaInTokens,
		Pnl:               pnl,
		Fees:              fees,
		TransferOut: types.DecreaseTransferOut{
			OutputToken:                outputToken,
			OutputAmount:               proc.outputAmount,
			SecondaryOutputToken:       secondaryToken,
			SecondaryOutputAmount:      proc.secondaryOutputAmount,
			ClaimableLongTokenFunding:  fees.ClaimableFundingAmounts.Get(true).Clone(),
			ClaimableShortTokenFunding: fees.ClaimableFundingAmounts.Get(false).Clone(),
			ClaimablePnlTokenHolding:   proc.claimableHolding,
		},
		ShouldRemovePosition: shouldRemove,
		Borrowing:            borrowing,
		Funding:              funding,
	}, nil
}

// realisedPnl values the closed tokens at the trader-unfavourable index
// price and caps a profit by the pool's max pnl factor.
func realisedPnl(
	rm *market.Revertible,
	prices *types.Prices,
	pos *types.Position,
	sizeDeltaUsd, sizeDeltaInTokens *num.Uint,
	isAdl bool,
) (types.Pnl, error) {
	price := prices.IndexTokenPrice.Pick(!pos.IsLong)
	value, failed := num.UintZero().MulOverflow(sizeDeltaInTokens, price)
	if failed {
		return types.Pnl{}, types.ErrComputation("position value")
	}
	var pnl *num.Int
	if pos.IsLong {
		pnl = num.IntFromUint(value, true).SubUint(sizeDeltaUsd)
	} else {
		pnl = num.IntFromUint(sizeDeltaUsd, true).SubUint(value)
	}
	uncapped := pnl.Clone()
	if pnl.IsPositive() {
		kind := types.PnlFactorMaxForTrader
		if isAdl {
			kind = types.PnlFactorForAdl
		}
		poolUsd, err := rm.PrimaryPoolUsdValue(prices, pos.IsLong, false)
		if err != nil {
			return types.Pnl{}, err
		}
		cap, failed := num.ApplyFactor(poolUsd, rm.Config().MaxPnlFactor(kind, pos.IsLong), rm.Unit())
		if failed {
			return types.Pnl{}, types.ErrComputation("max pnl cap")
		}
		if pnl.AbsUint().GT(cap) {
			pnl = num.IntFromUint(cap, true)
		}
	}
	return types.Pnl{Pnl: pnl, UncappedPnl: uncapped}, nil
}
