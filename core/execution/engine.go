package execution

import (
	"context"
	"strconv"
	"sync"
	"time"

	"code.meridianprotocol.io/meridian/core/events"
	"code.meridianprotocol.io/meridian/core/market"
	"code.meridianprotocol.io/meridian/core/types"
	"code.meridianprotocol.io/meridian/libs/num"
	"code.meridianprotocol.io/meridian/logging"
	"code.meridianprotocol.io/meridian/metrics"
)

// Broker delivers events to the outside world.
//
//go:generate go run github.com/golang/mock/mockgen -destination mocks/broker_mock.go -package mocks code.meridianprotocol.io/meridian/core/execution Broker
type Broker interface {
	Send(e events.Event)
}

// Engine is the public entry point of the market core. It resolves
// markets and prices, wraps every operation into an action whose
// overlays commit atomically, and reports the outcome through events.
// Engines are driven by a single caller per market, the engine itself
// performs no locking around market state.
type Engine struct {
	log   *logging.Logger
	cfgMu sync.Mutex
	cfg   Config

	broker    Broker
	feed      PriceFeed
	markets   MarketRegistry
	positions PositionStore

	currentTime int64
}

// NewEngine returns a configured execution engine.
func NewEngine(
	log *logging.Logger,
	cfg Config,
	broker Broker,
	feed PriceFeed,
	markets MarketRegistry,
	positions PositionStore,
) *Engine {
	log = log.Named(namedLogger)
	log.SetLevel(cfg.Level.Get())
	return &Engine{
		log:       log,
		cfg:       cfg,
		broker:    broker,
		feed:      feed,
		markets:   markets,
		positions: positions,
	}
}

// ReloadConf updates the engine configuration.
func (e *Engine) ReloadConf(cfg Config) {
	e.log.Info("reloading configuration")
	if e.log.GetLevel() != cfg.Level.Get() {
		e.log.Info("updating log level",
			logging.String("old", e.log.GetLevel().String()),
			logging.String("new", cfg.Level.String()),
		)
		e.log.SetLevel(cfg.Level.Get())
	}
	e.cfgMu.Lock()
	e.cfg = cfg
	e.cfgMu.Unlock()
}

// OnTick moves the engine clock, every action constructed afterwards
// observes the new time.
func (e *Engine) OnTick(_ context.Context, t time.Time) {
	e.currentTime = t.Unix()
}

func (e *Engine) pricesFor(marketID string, prices *types.Prices) (*types.Prices, error) {
	if prices != nil {
		return prices, nil
	}
	if e.feed == nil {
		return nil, types.ErrInvalidArgument("no prices provided and no price feed configured")
	}
	return e.feed.LatestPrices(marketID)
}

func (e *Engine) send(ev events.Event) {
	if e.broker != nil {
		e.broker.Send(ev)
	}
}

// Deposit adds collateral tokens to a market and mints market tokens.
func (e *Engine) Deposit(ctx context.Context, marketID string, params DepositParams, prices *types.Prices) (report *types.DepositReport, err error) {
	start := time.Now()
	defer func() {
		metrics.EngineTimeCounterAdd(start, marketID, "execution", "Deposit")
		metrics.ActionCounterInc(marketID, "deposit", strconv.FormatBool(err == nil))
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
	report, err = executeDeposit(rm, px, params)
	if err != nil {
		act.state = ActionRolledBack
		e.log.Debug("deposit failed", logging.String("market-id", marketID), logging.Error(err))
		return nil, err
	}
	if err = act.commit(); err != nil {
		return nil, err
	}
	e.send(events.NewDepositEvent(ctx, *report))
	return report, nil
}

// Withdraw burns market tokens and pays out both collateral tokens.
func (e *Engine) Withdraw(ctx context.Context, marketID string, params WithdrawalParams, prices *types.Prices) (report *types.WithdrawalReport, err error) {
	start := time.Now()
	defer func() {
		metrics.EngineTimeCounterAdd(start, marketID, "execution", "Withdraw")
		metrics.ActionCounterInc(marketID, "withdraw", strconv.FormatBool(err == nil))
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
	report, err = executeWithdrawal(rm, px, params)
	if err != nil {
		act.state = ActionRolledBack
		e.log.Debug("withdrawal failed", logging.String("market-id", marketID), logging.Error(err))
		return nil, err
	}
	if err = act.commit(); err != nil {
		return nil, err
	}
	e.send(events.NewWithdrawalEvent(ctx, *report))
	return report, nil
}

// Swap routes an input amount through a path of markets. All hops commit
// together.
func (e *Engine) Swap(ctx context.Context, marketIDs []string, params SwapParams, prices []*types.Prices) (report *types.SwapReport, err error) {
	first := ""
	if len(marketIDs) > 0 {
		first = marketIDs[0]
	}
	start := time.Now()
	defer func() {
		metrics.EngineTimeCounterAdd(start, first, "execution", "Swap")
		metrics.ActionCounterInc(first, "swap", strconv.FormatBool(err == nil))
	}()
	if len(marketIDs) == 0 {
		return nil, types.ErrEmptySwap
	}
	act := newAction(e.currentTime)
	act.state = ActionExecuting
	rms, px, err := e.overlayPath(act, marketIDs, prices)
	if err != nil {
		act.state = ActionRolledBack
		return nil, err
	}
	report, err = executeSwap(rms, px, params)
	if err != nil {
		act.state = ActionRolledBack
		e.log.Debug("swap failed", logging.String("market-id", first), logging.Error(err))
		return nil, err
	}
	if err = act.commit(); err != nil {
		return nil, err
	}
	e.send(events.NewSwapEvent(ctx, first, *report))
	return report, nil
}

// IncreasePosition grows a position's size and collateral. The position
// is mutated only when the action commits.
func (e *Engine) IncreasePosition(ctx context.Context, marketID string, pos *types.Position, params IncreasePositionParams, prices *types.Prices) (report *types.IncreasePositionReport, err error) {
	start := time.Now()
	defer func() {
		metrics.EngineTimeCounterAdd(start, marketID, "execution", "IncreasePosition")
		metrics.ActionCounterInc(marketID, "increase-position", strconv.FormatBool(err == nil))
	}()
	if pos == nil || pos.MarketID != marketID {
		return nil, types.ErrInvalidPosition
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
	rm, err := act.overlay(m)
	if err != nil {
		act.state = ActionRolledBack
		return nil, err
	}
	working := pos.Clone()
	wasEmpty := working.SizeInUsd.IsZero()
	report, err = executeIncreasePosition(rm, px, working, params, e.currentTime)
	if err != nil {
		act.state = ActionRolledBack
		e.log.Debug("increase position failed",
			logging.String("market-id", marketID),
			logging.String("position-id", pos.ID),
			logging.Error(err),
		)
		return nil, err
	}
	if err = act.commit(); err != nil {
		return nil, err
	}
	*pos = *working
	if e.positions != nil {
		if err := e.positions.UpsertPosition(pos); err != nil {
			return nil, err
		}
	}
	if wasEmpty {
		metrics.PositionGaugeAdd(1, marketID)
	}
	metrics.TradeCounterAdd(1, marketID)
	e.send(events.NewPositionIncreasedEvent(ctx, pos.ID, *report))
	return report, nil
}

// DecreasePosition shrinks or closes a position.
func (e *Engine) DecreasePosition(ctx context.Context, marketID string, pos *types.Position, params DecreasePositionParams, prices *types.Prices) (report *types.DecreasePositionReport, err error) {
	start := time.Now()
	defer func() {
		metrics.EngineTimeCounterAdd(start, marketID, "execution", "DecreasePosition")
		metrics.ActionCounterInc(marketID, "decrease-position", strconv.FormatBool(err == nil))
	}()
	if pos == nil || pos.MarketID != marketID {
		return nil, types.ErrInvalidPosition
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
	rm, err := act.overlay(m)
	if err != nil {
		act.state = ActionRolledBack
		return nil, err
	}
	working := pos.Clone()
	report, err = executeDecreasePosition(rm, px, working, params, e.currentTime)
	if err != nil {
		act.state = ActionRolledBack
		e.log.Debug("decrease position failed",
			logging.String("market-id", marketID),
			logging.String("position-id", pos.ID),
			logging.Error(err),
		)
		return nil, err
	}
	if err = act.commit(); err != nil {
		return nil, err
	}
	*pos = *working
	if report.ShouldRemovePosition {
		if e.positions != nil {
			if err := e.positions.RemovePosition(pos.ID); err != nil && err != ErrPositionNotFound {
				return nil, err
			}
		}
		metrics.PositionGaugeAdd(-1, marketID)
	} else if e.positions != nil {
		if err := e.positions.UpsertPosition(pos); err != nil {
			return nil, err
		}
	}
	metrics.TradeCounterAdd(1, marketID)
	e.send(events.NewPositionDecreasedEvent(ctx, pos.ID, *report))
	return report, nil
}

// Liquidate force-closes a position, allowing an insolvent close.
func (e *Engine) Liquidate(ctx context.Context, marketID string, pos *types.Position, prices *types.Prices) (*types.DecreasePositionReport, error) {
	if pos == nil {
		return nil, types.ErrInvalidPosition
	}
	return e.DecreasePosition(ctx, marketID, pos, DecreasePositionParams{
		SizeDeltaUsd:  pos.SizeInUsd.Clone(),
		IsLiquidation: true,
	}, prices)
}

// AutoDeleverage force-decreases a profitable position by the given size
// to bring the pool's pnl factor back under its cap.
func (e *Engine) AutoDeleverage(ctx context.Context, marketID string, pos *types.Position, sizeDeltaUsd *num.Uint, prices *types.Prices) (*types.DecreasePositionReport, error) {
	if pos == nil {
		return nil, types.ErrInvalidPosition
	}
	return e.DecreasePosition(ctx, marketID, pos, DecreasePositionParams{
		SizeDeltaUsd: sizeDeltaUsd,
		IsAdl:        true,
	}, prices)
}

// UpdateFunding settles the elapsed funding of a market as a standalone
// action.
func (e *Engine) UpdateFunding(ctx context.Context, marketID string, prices *types.Prices) (report types.UpdateFundingReport, err error) {
	start := time.Now()
	defer func() {
		metrics.EngineTimeCounterAdd(start, marketID, "execution", "UpdateFunding")
	}()
	m, err := e.markets.GetMarket(marketID)
	if err != nil {
		return types.UpdateFundingReport{}, err
	}
	px, err := e.pricesFor(marketID, prices)
	if err != nil {
		return types.UpdateFundingReport{}, err
	}
	act := newAction(e.currentTime)
	act.state = ActionExecuting
	rm, err := act.overlay(m)
	if err != nil {
		act.state = ActionRolledBack
		return types.UpdateFundingReport{}, err
	}
	report, err = updateFundingState(rm, px, e.currentTime)
	if err != nil {
		act.state = ActionRolledBack
		return types.UpdateFundingReport{}, err
	}
	if err = act.commit(); err != nil {
		return types.UpdateFundingReport{}, err
	}
	metrics.FundingFactorSet(marketID, num.DecimalFromInt(report.NextFundingFactorPerSecond).InexactFloat64())
	e.send(events.NewFundingUpdatedEvent(ctx, report))
	return report, nil
}

// UpdateBorrowing accrues the elapsed borrowing fees of a market as a
// standalone action.
func (e *Engine) UpdateBorrowing(ctx context.Context, marketID string, prices *types.Prices) (report types.UpdateBorrowingReport, err error) {
	start := time.Now()
	defer func() {
		metrics.EngineTimeCounterAdd(start, marketID, "execution", "UpdateBorrowing")
	}()
	m, err := e.markets.GetMarket(marketID)
	if err != nil {
		return types.UpdateBorrowingReport{}, err
	}
	px, err := e.pricesFor(marketID, prices)
	if err != nil {
		return types.UpdateBorrowingReport{}, err
	}
	act := newAction(e.currentTime)
	act.state = ActionExecuting
	rm, err := act.overlay(m)
	if err != nil {
		act.state = ActionRolledBack
		return types.UpdateBorrowingReport{}, err
	}
	report, err = updateBorrowingState(rm, px, e.currentTime)
	if err != nil {
		act.state = ActionRolledBack
		return types.UpdateBorrowingReport{}, err
	}
	if err = act.commit(); err != nil {
		return types.UpdateBorrowingReport{}, err
	}
	e.send(events.NewBorrowingUpdatedEvent(ctx, report))
	return report, nil
}

// ValidateMarketBalances checks the token bank of a market against the
// sum of everything the pools account for, with optional extra amounts
// still in flight.
func (e *Engine) ValidateMarketBalances(marketID string, extraLong, extraShort *num.Uint) error {
	m, err := e.markets.GetMarket(marketID)
	if err != nil {
		return err
	}
	rm := market.NewRevertible(m)
	return rm.ValidateMarketBalances(extraLong, extraShort)
}
