package execution

import (
	"code.meridianprotocol.io/meridian/core/market"
	"code.meridianprotocol.io/meridian/core/types"
	"code.meridianprotocol.io/meridian/libs/num"
)

// collateralProcessor settles the costs and credits of a position
// decrease against three sources in a fixed order: the output amount, the
// remaining collateral, then the secondary output amount. It is a fluent
// mutator chain, the first error sticks and short-circuits the rest.
type collateralProcessor struct {
	rm *market.Revertible

	indexPrice     *types.Price
	outputPrice    *types.Price
	secondaryPrice *types.Price

	isPnlTokenLong    bool
	isOutputTokenLong bool

	outputAmount              *num.Uint
	secondaryOutputAmount     *num.Uint
	remainingCollateralAmount *num.Uint
	claimableHolding          *num.Uint

	insolventCloseAllowed bool
	insolvent             bool
	err                   error
}

func newCollateralProcessor(
	rm *market.Revertible,
	prices *types.Prices,
	pos *types.Position,
	initialOutput, remainingCollateral *num.Uint,
	insolventCloseAllowed bool,
) *collateralProcessor {
	return &collateralProcessor{
		rm:                        rm,
		indexPrice:                prices.IndexTokenPrice,
		outputPrice:               prices.CollateralPrice(pos.IsCollateralTokenLong),
		secondaryPrice:            prices.CollateralPrice(pos.IsLong),
		isPnlTokenLong:            pos.IsLong,
		isOutputTokenLong:         pos.IsCollateralTokenLong,
		outputAmount:              initialOutput.Clone(),
		secondaryOutputAmount:     num.UintZero(),
		remainingCollateralAmount: remainingCollateral.Clone(),
		claimableHolding:          num.UintZero(),
		insolventCloseAllowed:     insolventCloseAllowed,
	}
}

// doPayForCost drains the three sources in order to cover a usd cost.
// Returns the token amounts taken from each source and the usd residual
// that could not be covered.
func (p *collateralProcessor) doPayForCost(cost *num.Uint) (paidOutput, paidCollateral, paidSecondary, residual *num.Uint, err error) {
	paidOutput, paidCollateral, paidSecondary = num.UintZero(), num.UintZero(), num.UintZero()
	residual = num.UintZero()
	if cost.IsZero() {
		return paidOutput, paidCollateral, paidSecondary, residual, nil
	}
	remaining, failed := num.RoundUpDiv(cost, p.outputPrice.Min)
	if failed {
		return nil, nil, nil, nil, types.ErrComputation("cost in output tokens")
	}
	pay := func(source *num.Uint) *num.Uint {
		// Min aliases one of its operands, clone before draining the
		// source or the paid amount is zeroed through the alias.
		paid := num.Min(source, remaining).Clone()
		source.Sub(source, paid)
		remaining.Sub(remaining, paid)
		return paid
	}
	paidOutput = pay(p.outputAmount)
	if remaining.IsZero() {
		return paidOutput, paidCollateral, paidSecondary, residual, nil
	}
	paidCollateral = pay(p.remainingCollateralAmount)
	if remaining.IsZero() {
		return paidOutput, paidCollateral, paidSecondary, residual, nil
	}
	remainingSecondary, failed := num.MulDivCeil(remaining, p.outputPrice.Min, p.secondaryPrice.Min)
	if failed {
		return nil, nil, nil, nil, types.ErrComputation("cost in secondary tokens")
	}
	paidSecondary = num.Min(p.secondaryOutputAmount, remainingSecondary).Clone()
	p.secondaryOutputAmount.Sub(p.secondaryOutputAmount, paidSecondary)
	remainingSecondary.Sub(remainingSecondary, paidSecondary)
	if !remainingSecondary.IsZero() {
		residual, failed = num.UintZero().MulOverflow(remainingSecondary, p.secondaryPrice.Min)
		if failed {
			return nil, nil, nil, nil, types.ErrComputation("residual cost")
		}
	}
	return paidOutput, paidCollateral, paidSecondary, residual, nil
}

// payWithPrimaryPool credits the paid token amounts back into the primary
// pool, collateral and output share a mint so they land on the output
// token side, the secondary share lands on the pnl token side.
func (p *collateralProcessor) payWithPrimaryPool(collateralDelta, secondaryDelta *num.Int) error {
	if !collateralDelta.IsZero() {
		if err := p.rm.ApplyDeltaToPool(market.PoolPrimary, p.isOutputTokenLong, collateralDelta); err != nil {
			return err
		}
	}
	if !secondaryDelta.IsZero() {
		if err := p.rm.ApplyDeltaToPool(market.PoolPrimary, p.isPnlTokenLong, secondaryDelta); err != nil {
			return err
		}
	}
	return nil
}

func (p *collateralProcessor) handleResidual(residual *num.Uint) {
	if residual.IsZero() {
		return
	}
	if !p.insolventCloseAllowed {
		p.err = types.ErrInsufficientFundsToPayForCosts
		return
	}
	p.insolvent = true
}

// addPnlIfPositive pays a positive pnl out of the primary pool in the pnl
// token.
func (p *collateralProcessor) addPnlIfPositive(pnl *num.Int) *collateralProcessor {
	if p.err != nil || !pnl.IsPositive() {
		return p
	}
	if p.secondaryPrice.Max.IsZero() {
		p.err = types.ErrComputation("pnl payout with zero price")
		return p
	}
	amount := num.UintZero().Div(pnl.AbsUint(), p.secondaryPrice.Max)
	if amount.IsZero() {
		return p
	}
	if err := p.rm.ApplyDeltaToPool(market.PoolPrimary, p.isPnlTokenLong, num.IntFromUint(amount, false)); err != nil {
		p.err = err
		return p
	}
	if p.isPnlTokenLong == p.isOutputTokenLong {
		p.outputAmount.Add(p.outputAmount, amount)
	} else {
		p.secondaryOutputAmount.Add(p.secondaryOutputAmount, amount)
	}
	return p
}

// payForPnlIfNegative covers a negative pnl from the three sources, the
// paid tokens flow back into the primary pool.
func (p *collateralProcessor) payForPnlIfNegative(pnl *num.Int) *collateralProcessor {
	if p.err != nil || !pnl.IsNegative() {
		return p
	}
	paidOutput, paidCollateral, paidSecondary, residual, err := p.doPayForCost(pnl.AbsUint().Clone())
	if err != nil {
		p.err = err
		return p
	}
	if err := p.payWithPrimaryPool(
		num.IntFromUint(num.Sum(paidOutput, paidCollateral), true),
		num.IntFromUint(paidSecondary, true)); err != nil {
		p.err = err
		return p
	}
	p.handleResidual(residual)
	return p
}

// addPriceImpactIfPositive pays a positive price impact to the trader
// from the primary pool, funded by shrinking the position impact pool by
// the impact amount in index tokens.
func (p *collateralProcessor) addPriceImpactIfPositive(impactValue, impactAmount *num.Int) *collateralProcessor {
	if p.err != nil || !impactValue.IsPositive() {
		return p
	}
	if !impactAmount.IsPositive() {
		return p
	}
	if err := p.rm.ApplyDeltaToPool(market.PoolPositionImpact, true, num.IntFromUint(impactAmount.AbsUint(), false)); err != nil {
		p.err = err
		return p
	}
	if p.secondaryPrice.Max.IsZero() {
		p.err = types.ErrComputation("impact payout with zero price")
		return p
	}
	amount := num.UintZero().Div(impactValue.AbsUint(), p.secondaryPrice.Max)
	if amount.IsZero() {
		return p
	}
	if err := p.rm.ApplyDeltaToPool(market.PoolPrimary, p.isPnlTokenLong, num.IntFromUint(amount, false)); err != nil {
		p.err = err
		return p
	}
	if p.isPnlTokenLong == p.isOutputTokenLong {
		p.outputAmount.Add(p.outputAmount, amount)
	} else {
		p.secondaryOutputAmount.Add(p.secondaryOutputAmount, amount)
	}
	return p
}

// payForPriceImpactIfNegative covers a negative price impact from the
// three sources and mirrors the covered value into the position impact
// pool in index tokens.
func (p *collateralProcessor) payForPriceImpactIfNegative(impactValue *num.Int) *collateralProcessor {
	if p.err != nil || !impactValue.IsNegative() {
		return p
	}
	cost := impactValue.AbsUint().Clone()
	paidOutput, paidCollateral, paidSecondary, residual, err := p.doPayForCost(cost)
	if err != nil {
		p.err = err
		return p
	}
	if err := p.payWithPrimaryPool(
		num.IntFromUint(num.Sum(paidOutput, paidCollateral), true),
		num.IntFromUint(paidSecondary, true)); err != nil {
		p.err = err
		return p
	}
	covered := num.UintZero().Sub(impactValue.AbsUint(), residual)
	if !covered.IsZero() && !p.indexPrice.Min.IsZero() {
		mirror := num.UintZero().Div(covered, p.indexPrice.Min)
		if !mirror.IsZero() {
			if err := p.rm.ApplyDeltaToPool(market.PoolPositionImpact, true, num.IntFromUint(mirror, true)); err != nil {
				p.err = err
				return p
			}
		}
	}
	p.handleResidual(residual)
	return p
}

// payForFeesExcludingFunding settles order, borrowing and liquidation
// fees. When the collateral alone covers them the receiver split is
// preserved, otherwise the whole cost is materialised as primary pool
// adjustments and the fees are flagged as paid from the pay-down sources.
// The reported breakdown keeps the charged amounts in both cases.
func (p *collateralProcessor) payForFeesExcludingFunding(fees *types.PositionFees) *collateralProcessor {
	if p.err != nil {
		return p
	}
	cost := fees.TotalCostExcludingFunding()
	if cost.IsZero() {
		return p
	}
	if p.outputAmount.IsZero() && p.secondaryOutputAmount.IsZero() && p.remainingCollateralAmount.GTE(cost) {
		p.remainingCollateralAmount.Sub(p.remainingCollateralAmount, cost)
		if err := p.rm.ApplyDeltaToPool(market.PoolPrimary, p.isOutputTokenLong, num.IntFromUint(fees.ForPool(), true)); err != nil {
			p.err = err
			return p
		}
		if err := p.rm.ApplyDeltaToPool(market.PoolClaimableFee, p.isOutputTokenLong, num.IntFromUint(fees.ForReceiver(), true)); err != nil {
			p.err = err
			return p
		}
		return p
	}
	costUsd, failed := num.UintZero().MulOverflow(cost, p.outputPrice.Min)
	if failed {
		p.err = types.ErrComputation("fee cost value")
		return p
	}
	paidOutput, paidCollateral, paidSecondary, residual, err := p.doPayForCost(costUsd)
	if err != nil {
		p.err = err
		return p
	}
	if err := p.payWithPrimaryPool(
		num.IntFromUint(num.Sum(paidOutput, paidCollateral), true),
		num.IntFromUint(paidSecondary, true)); err != nil {
		p.err = err
		return p
	}
	fees.PaidFromSources = true
	p.handleResidual(residual)
	return p
}

// payForPriceImpactDiff withholds the capped-off impact residue as
// claimable collateral for the position owner.
func (p *collateralProcessor) payForPriceImpactDiff(diffUsd *num.Uint, outputToken, secondaryToken string) *collateralProcessor {
	if p.err != nil || diffUsd.IsZero() {
		return p
	}
	paidOutput, paidCollateral, paidSecondary, residual, err := p.doPayForCost(diffUsd.Clone())
	if err != nil {
		p.err = err
		return p
	}
	held := num.Sum(paidOutput, paidCollateral)
	if !held.IsZero() {
		if err := p.rm.AddClaimableCollateral(outputToken, held); err != nil {
			p.err = err
			return p
		}
	}
	if !paidSecondary.IsZero() {
		if err := p.rm.AddClaimableCollateral(secondaryToken, paidSecondary); err != nil {
			p.err = err
			return p
		}
	}
	p.claimableHolding.AddSum(held, paidSecondary)
	p.handleResidual(residual)
	return p
}

func (p *collateralProcessor) result() error {
	return p.err
}
