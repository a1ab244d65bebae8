package execution

import (
	"code.meridianprotocol.io/meridian/core/market"
	"code.meridianprotocol.io/meridian/core/pricing"
	"code.meridianprotocol.io/meridian/core/types"
	"code.meridianprotocol.io/meridian/libs/num"
)

// SwapParams are the caller supplied inputs of a swap along a path of
// markets.
type SwapParams struct {
	InputToken  string
	InputAmount *num.Uint
	// MinOutputAmount is optional, nil disables the check.
	MinOutputAmount *num.Uint
}

// executeSwap runs the hops in order, feeding each hop's output into the
// next. Every touched market belongs to the same action so all deltas
// commit or drop together.
func executeSwap(rms []*market.Revertible, prices []*types.Prices, params SwapParams) (*types.SwapReport, error) {
	if len(rms) == 0 || params.InputAmount == nil || params.InputAmount.IsZero() {
		return nil, types.ErrEmptySwap
	}
	if len(rms) != len(prices) {
		return nil, types.ErrInvalidArgument("swap path and prices length mismatch")
	}
	token := params.InputToken
	amount := params.InputAmount.Clone()
	if err := rms[0].RecordTransferredIn(token, amount); err != nil {
		return nil, err
	}
	report := &types.SwapReport{
		InputToken:  params.InputToken,
		InputAmount: params.InputAmount.Clone(),
	}
	for i, rm := range rms {
		hop, err := executeSwapHop(rm, prices[i], token, amount)
		if err != nil {
			return nil, err
		}
		report.Hops = append(report.Hops, hop)
		if err := rm.RecordTransferredOut(hop.OutputToken, hop.OutputAmount); err != nil {
			return nil, err
		}
		if i+1 < len(rms) {
			if err := rms[i+1].RecordTransferredIn(hop.OutputToken, hop.OutputAmount); err != nil {
				return nil, err
			}
		}
		token, amount = hop.OutputToken, hop.OutputAmount.Clone()
	}
	report.OutputToken = token
	report.OutputAmount = amount
	if params.MinOutputAmount != nil && amount.LT(params.MinOutputAmount) {
		return nil, types.ErrInvalidArgument("output amount below min output amount")
	}
	return report, nil
}

func executeSwapHop(rm *market.Revertible, prices *types.Prices, inputToken string, amountIn *num.Uint) (types.SwapHopReport, error) {
	hop := types.SwapHopReport{
		MarketID:    rm.Meta().ID,
		InputToken:  inputToken,
		InputAmount: amountIn.Clone(),
	}
	meta := rm.Meta()
	if meta.IsPure() {
		return hop, types.ErrInvalidArgument("cannot swap on a pure market")
	}
	var inIsLong bool
	switch inputToken {
	case meta.LongToken:
		inIsLong = true
	case meta.ShortToken:
		inIsLong = false
	default:
		return hop, types.ErrInvalidArgument("input token not backing this market")
	}
	if err := prices.Validate(); err != nil {
		return hop, err
	}
	outIsLong := !inIsLong
	hop.OutputToken = meta.Token(outIsLong)
	inPrice := prices.CollateralPrice(inIsLong)
	outPrice := prices.CollateralPrice(outIsLong)

	usdIn, failed := num.UintZero().MulOverflow(amountIn, inPrice.Mid())
	if failed {
		return hop, types.ErrComputation("swap input value")
	}
	longDelta, shortDelta := num.IntFromUint(usdIn, true), num.IntFromUint(usdIn, false)
	if !inIsLong {
		longDelta, shortDelta = shortDelta, longDelta
	}
	impact, err := swapPriceImpact(rm, prices, longDelta, shortDelta)
	if err != nil {
		return hop, err
	}
	hop.PriceImpact = impact.Clone()

	after, fees, err := pricing.ApplySwapFees(
		rm.Config().SwapFee, rm.Unit(), pricing.SwapPricingSwap, impact.IsPositive(), amountIn)
	if err != nil {
		return hop, err
	}
	hop.Fees = fees
	if err := rm.ApplyDeltaToPool(market.PoolClaimableFee, inIsLong, num.IntFromUint(fees.ForReceiver, true)); err != nil {
		return hop, err
	}

	base, failed := num.MulDiv(after, inPrice.Min, outPrice.Max)
	if failed {
		return hop, types.ErrComputation("swap output amount")
	}
	impactAmount, err := swapImpactAmountWithCap(rm, outIsLong, outPrice, impact)
	if err != nil {
		return hop, err
	}
	// the base amount always leaves the primary pool, the impact amount
	// moves between the trader and the swap impact pool
	out := base.Clone()
	if impactAmount.IsPositive() {
		if err := rm.ApplyDeltaToPool(market.PoolSwapImpact, outIsLong, num.IntFromUint(impactAmount.AbsUint(), false)); err != nil {
			return hop, err
		}
		out.Add(out, impactAmount.AbsUint())
	}
	if impactAmount.IsNegative() {
		next, underflow := num.UintZero().SubOverflow(out, impactAmount.AbsUint())
		if underflow {
			return hop, types.ErrInvalidArgument("swap amount smaller than negative impact")
		}
		if err := rm.ApplyDeltaToPool(market.PoolSwapImpact, outIsLong, num.IntFromUint(impactAmount.AbsUint(), true)); err != nil {
			return hop, err
		}
		out = next
	}

	poolIn := num.Sum(after, fees.ForPool)
	if err := rm.ApplyDeltaToPool(market.PoolPrimary, inIsLong, num.IntFromUint(poolIn, true)); err != nil {
		return hop, err
	}
	if err := rm.ApplyDeltaToPool(market.PoolPrimary, outIsLong, num.IntFromUint(base, false)); err != nil {
		return hop, err
	}
	for _, isLong := range []bool{true, false} {
		if err := rm.ValidatePoolAmount(isLong); err != nil {
			return hop, err
		}
		if err := rm.ValidateReserve(prices, isLong, rm.Config().ReserveFactor); err != nil {
			return hop, err
		}
	}
	hop.OutputAmount = out
	return hop, nil
}
