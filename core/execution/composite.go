package execution

import (
	"context"
	"strconv"
	"time"

	"code.meridianprotocol.io/meridian/core/events"
	"code.meridianprotocol.io/meridian/core/market"
	"code.meridianprotocol.io/meridian/core/types"
	"code.meridianprotocol.io/meridian/libs/num"
	"code.meridianprotocol.io/meridian/logging"
	"code.meridianprotocol.io/meridian/metrics"
)

// DepositWithSwapParams are the caller supplied inputs of a deposit whose
// input token is first routed through a swap path.
type DepositWithSwapParams struct {
	// SwapPath routes the input through these markets before the deposit,
	// an empty path deposits the input token directly.
	SwapPath    []string
	InputToken  string
	InputAmount *num.Uint
	// MinMarketTokens is optional, nil disables the check.
	MinMarketTokens *num.Uint
}

// WithdrawalWithSwapParams are the caller supplied inputs of a withdrawal
// whose outputs are routed through per-side swap paths.
type WithdrawalWithSwapParams struct {
	MarketTokenAmount *num.Uint
	// LongTokenSwapPath routes the long token output, an empty path pays
	// it out directly. Same for the short side.
	LongTokenSwapPath  []string
	ShortTokenSwapPath []string
	// Minimum final amounts per side, nil disables the check.
	MinLongTokenAmount  *num.Uint
	MinShortTokenAmount *num.Uint
}

// overlayPath resolves a path of markets into overlays of one action and
// the prices to use per hop, falling back to the feed where none were
// supplied.
func (e *Engine) overlayPath(act *action, marketIDs []string, prices []*types.Prices) ([]*market.Revertible, []*types.Prices, error) {
	if prices != nil && len(prices) != len(marketIDs) {
		return nil, nil, types.ErrInvalidArgument("swap path and prices length mismatch")
	}
	rms := make([]*market.Revertible, 0, len(marketIDs))
	px := make([]*types.Prices, 0, len(marketIDs))
	for i, id := range marketIDs {
		m, err := e.markets.GetMarket(id)
		if err != nil {
			return nil, nil, err
		}
		rm, err := act.overlay(m)
		if err != nil {
			return nil, nil, err
		}
		rms = append(rms, rm)
		var p *types.Prices
		if prices != nil {
			p = prices[i]
		}
		p, err = e.pricesFor(id, p)
		if err != nil {
			return nil, nil, err
		}
		px = append(px, p)
	}
	return rms, px, nil
}

// DepositWithSwap routes the input through a swap path and deposits the
// proceeds into a market, all under one action. Either every hop and the
// deposit commit together or nothing does.
func (e *Engine) DepositWithSwap(ctx context.Context, marketID string, params DepositWithSwapParams, swapPrices []*types.Prices, prices *types.Prices) (report *types.DepositWithSwapReport, err error) {
	start := time.Now()
	defer func() {
		metrics.EngineTimeCounterAdd(start, marketID, "execution", "DepositWithSwap")
		metrics.ActionCounterInc(marketID, "deposit-with-swap", strconv.FormatBool(err == nil))
	}()
	if params.InputAmount == nil || params.InputAmount.IsZero() {
		return nil, types.ErrEmptyDeposit
	}
	m, err := e.markets.GetMarket(marketID)
	if err != nil {
		return nil, err
	}
	px, err := e.pricesFor(marketID, prices)
	if err != nil {
		return nil, err
	}
	act := newAction(e.currentTime)
	act.state = ActionExecuting

	report = &types.DepositWithSwapReport{}
	token := params.InputToken
	amount := params.InputAmount.Clone()
	if len(params.SwapPath) > 0 {
		rms, spx, err := e.overlayPath(act, params.SwapPath, swapPrices)
		if err != nil {
			act.state = ActionRolledBack
			return nil, err
		}
		swapRep, err := executeSwap(rms, spx, SwapParams{InputToken: token, InputAmount: amount})
		if err != nil {
			act.state = ActionRolledBack
			e.log.Debug("deposit swap leg failed", logging.String("market-id", marketID), logging.Error(err))
			return nil, err
		}
		report.Swap = swapRep
		token, amount = swapRep.OutputToken, swapRep.OutputAmount.Clone()
	}

	rm, err := act.overlay(m)
	if err != nil {
		act.state = ActionRolledBack
		return nil, err
	}
	dep := DepositParams{}
	switch meta := rm.Meta(); token {
	case meta.LongToken:
		dep.LongTokenAmount = amount
	case meta.ShortToken:
		dep.ShortTokenAmount = amount
	default:
		act.state = ActionRolledBack
		return nil, types.ErrInvalidArgument("deposit token not backing this market")
	}
	depRep, err := executeDeposit(rm, px, dep)
	if err != nil {
		act.state = ActionRolledBack
		e.log.Debug("deposit failed", logging.String("market-id", marketID), logging.Error(err))
		return nil, err
	}
	if params.MinMarketTokens != nil && depRep.Minted.LT(params.MinMarketTokens) {
		act.state = ActionRolledBack
		return nil, types.ErrInvalidArgument("minted amount below min market tokens")
	}
	report.Deposit = *depRep

	if err = act.commit(); err != nil {
		return nil, err
	}
	if report.Swap != nil {
		e.send(events.NewSwapEvent(ctx, params.SwapPath[0], *report.Swap))
	}
	e.send(events.NewDepositEvent(ctx, *depRep))
	return report, nil
}

// WithdrawWithSwap withdraws from a market and routes each collateral
// token output through its swap path, all under one action.
func (e *Engine) WithdrawWithSwap(ctx context.Context, marketID string, params WithdrawalWithSwapParams, longSwapPrices, shortSwapPrices []*types.Prices, prices *types.Prices) (report *types.WithdrawalWithSwapReport, err error) {
	start := time.Now()
	defer func() {
		metrics.EngineTimeCounterAdd(start, marketID, "execution", "WithdrawWithSwap")
		metrics.ActionCounterInc(marketID, "withdraw-with-swap", strconv.FormatBool(err == nil))
	}()
	m, err := e.markets.GetMarket(marketID)
	if err != nil {
		return nil, err
	}
	px, err := e.pricesFor(marketID, prices)
	if err != nil {
		return nil, err
	}
	act := newAction(e.currentTime)
	act.state = ActionExecuting
	rm, err := act.overlay(m)
	if err != nil {
		act.state = ActionRolledBack
		return nil, err
	}
	wRep, err := executeWithdrawal(rm, px, WithdrawalParams{MarketTokenAmount: params.MarketTokenAmount})
	if err != nil {
		act.state = ActionRolledBack
		e.log.Debug("withdrawal failed", logging.String("market-id", marketID), logging.Error(err))
		return nil, err
	}
	report = &types.WithdrawalWithSwapReport{
		Withdrawal:       *wRep,
		LongTokenOutput:  wRep.LongTokenOutput.Clone(),
		ShortTokenOutput: wRep.ShortTokenOutput.Clone(),
	}

	meta := rm.Meta()
	route := func(path []string, swapPrices []*types.Prices, inputIsLong bool, output *num.Uint) (*types.SwapReport, *num.Uint, error) {
		if len(path) == 0 || output.IsZero() {
			return nil, output, nil
		}
		rms, spx, err := e.overlayPath(act, path, swapPrices)
		if err != nil {
			return nil, nil, err
		}
		swapRep, err := executeSwap(rms, spx, SwapParams{
			InputToken:  meta.Token(inputIsLong),
			InputAmount: output,
		})
		if err != nil {
			return nil, nil, err
		}
		return swapRep, swapRep.OutputAmount.Clone(), nil
	}

	report.LongSwap, report.LongTokenOutput, err = route(
		params.LongTokenSwapPath, longSwapPrices, true, report.LongTokenOutput)
	if err != nil {
		act.state = ActionRolledBack
		e.log.Debug("withdrawal swap leg failed", logging.String("market-id", marketID), logging.Error(err))
		return nil, err
	}
	report.ShortSwap, report.ShortTokenOutput, err = route(
		params.ShortTokenSwapPath, shortSwapPrices, false, report.ShortTokenOutput)
	if err != nil {
		act.state = ActionRolledBack
		e.log.Debug("withdrawal swap leg failed", logging.String("market-id", marketID), logging.Error(err))
		return nil, err
	}

	if params.MinLongTokenAmount != nil && report.LongTokenOutput.LT(params.MinLongTokenAmount) {
		act.state = ActionRolledBack
		return nil, types.ErrInvalidArgument("long token output below minimum")
	}
	if params.MinShortTokenAmount != nil && report.ShortTokenOutput.LT(params.MinShortTokenAmount) {
		act.state = ActionRolledBack
		return nil, types.ErrInvalidArgument("short token output below minimum")
	}

	if err = act.commit(); err != nil {
		return nil, err
	}
	e.send(events.NewWithdrawalEvent(ctx, *wRep))
	if report.LongSwap != nil {
		e.send(events.NewSwapEvent(ctx, params.LongTokenSwapPath[0], *report.LongSwap))
	}
	if report.ShortSwap != nil {
		e.send(events.NewSwapEvent(ctx, params.ShortTokenSwapPath[0], *report.ShortSwap))
	}
	return report, nil
}
