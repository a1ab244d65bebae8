package execution

import (
	"code.meridianprotocol.io/meridian/core/market"
	"code.meridianprotocol.io/meridian/core/types"
	"code.meridianprotocol.io/meridian/libs/num"
)

// ActionState tracks an action through its lifecycle.
type ActionState int

const (
	ActionCreated ActionState = iota
	ActionValidated
	ActionExecuting
	ActionCommitted
	ActionRolledBack
)

func (s ActionState) String() string {
	switch s {
	case ActionCreated:
		return "created"
	case ActionValidated:
		return "validated"
	case ActionExecuting:
		return "executing"
	case ActionCommitted:
		return "committed"
	case ActionRolledBack:
		return "rolled-back"
	default:
		return "unknown"
	}
}

// action owns the revertible overlays of every market one operation
// touches. Overlays commit together in acquisition order, any failure
// drops them all with the underlying markets untouched.
type action struct {
	state    ActionState
	now      int64
	overlays []*market.Revertible
	byID     map[string]*market.Revertible
}

func newAction(now int64) *action {
	return &action{
		state: ActionCreated,
		now:   now,
		byID:  map[string]*market.Revertible{},
	}
}

// overlay returns the overlay for a market, creating and priming it on
// first use. Priming distributes the pending position impact pool so every
// action observes a settled market.
func (a *action) overlay(m *market.Market) (*market.Revertible, error) {
	if rm, ok := a.byID[m.Meta().ID]; ok {
		return rm, nil
	}
	rm := market.NewRevertible(m)
	if err := distributePositionImpactPool(rm, a.now); err != nil {
		return nil, err
	}
	a.overlays = append(a.overlays, rm)
	a.byID[m.Meta().ID] = rm
	return rm, nil
}

// commit flushes every overlay. The per-market serial execution model
// means an individual commit cannot fail once validation passed, a failure
// here is a programming error and aborts the whole action anyway.
func (a *action) commit() error {
	if a.state == ActionCommitted {
		return types.ErrActionAlreadyExecuted
	}
	for _, rm := range a.overlays {
		if err := rm.Commit(); err != nil {
			a.state = ActionRolledBack
			return err
		}
	}
	a.state = ActionCommitted
	return nil
}

// distributePositionImpactPool drains the position impact pool toward its
// configured minimum at the configured per second rate.
func distributePositionImpactPool(rm *market.Revertible, now int64) error {
	dt, err := rm.JustPassedSeconds(market.ClockPriceImpactDistribution, now)
	if err != nil {
		return err
	}
	if dt == 0 {
		return nil
	}
	cfg := rm.Config().PositionImpactDistribution
	if cfg.DistributeFactor == nil || cfg.DistributeFactor.IsZero() {
		return nil
	}
	pool := rm.PositionImpactPoolAmount()
	min := cfg.MinPositionImpactPoolAmount
	if min == nil {
		min = num.UintZero()
	}
	if pool.LTE(min) {
		return nil
	}
	excess := num.UintZero().Sub(pool, min)
	rate, failed := num.UintZero().MulOverflow(cfg.DistributeFactor, num.NewUint(dt))
	if failed {
		return types.ErrComputation("position impact distribution rate")
	}
	amount, fail := num.ApplyFactor(excess, rate, rm.Unit())
	if fail {
		return types.ErrComputation("position impact distribution")
	}
	amount = num.Min(amount, excess)
	if amount.IsZero() {
		return nil
	}
	return rm.ApplyDeltaToPool(market.PoolPositionImpact, true, num.IntFromUint(amount, false))
}
