package events

import (
	"context"

	"code.meridianprotocol.io/meridian/core/types"
)

// Type distinguishes the event payloads sent through the broker.
type Type int

const (
	DepositEvent Type = iota
	WithdrawalEvent
	SwapEvent
	PositionIncreasedEvent
	PositionDecreasedEvent
	FundingUpdatedEvent
	BorrowingUpdatedEvent
)

func (t Type) String() string {
	switch t {
	case DepositEvent:
		return "deposit"
	case WithdrawalEvent:
		return "withdrawal"
	case SwapEvent:
		return "swap"
	case PositionIncreasedEvent:
		return "position-increased"
	case PositionDecreasedEvent:
		return "position-decreased"
	case FundingUpdatedEvent:
		return "funding-updated"
	case BorrowingUpdatedEvent:
		return "borrowing-updated"
	default:
		return "unknown"
	}
}

// Event is the interface all action events implement.
type Event interface {
	Type() Type
	MarketID() string
	Context() context.Context
}

type base struct {
	ctx      context.Context
	et       Type
	marketID string
}

func (b base) Type() Type               { return b.et }
func (b base) MarketID() string         { return b.marketID }
func (b base) Context() context.Context { return b.ctx }

// Deposit carries a committed deposit report.
type Deposit struct {
	base
	Report types.DepositReport
}

func NewDepositEvent(ctx context.Context, report types.DepositReport) *Deposit {
	return &Deposit{
		base:   base{ctx: ctx, et: DepositEvent, marketID: report.MarketID},
		Report: report,
	}
}

// Withdrawal carries a committed withdrawal report.
type Withdrawal struct {
	base
	Report types.WithdrawalReport
}

func NewWithdrawalEvent(ctx context.Context, report types.WithdrawalReport) *Withdrawal {
	return &Withdrawal{
		base:   base{ctx: ctx, et: WithdrawalEvent, marketID: report.MarketID},
		Report: report,
	}
}

// Swap carries a committed swap report.
type Swap struct {
	base
	Report types.SwapReport
}

func NewSwapEvent(ctx context.Context, marketID string, report types.SwapReport) *Swap {
	return &Swap{
		base:   base{ctx: ctx, et: SwapEvent, marketID: marketID},
		Report: report,
	}
}

// PositionIncreased carries a committed increase report.
type PositionIncreased struct {
	base
	PositionID string
	Report     types.IncreasePositionReport
}

func NewPositionIncreasedEvent(ctx context.Context, positionID string, report types.IncreasePositionReport) *PositionIncreased {
	return &PositionIncreased{
		base:       base{ctx: ctx, et: PositionIncreasedEvent, marketID: report.MarketID},
		PositionID: positionID,
		Report:     report,
	}
}

// PositionDecreased carries a committed decrease report.
type PositionDecreased struct {
	base
	PositionID string
	Report     types.DecreasePositionReport
}

func NewPositionDecreasedEvent(ctx context.Context, positionID string, report types.DecreasePositionReport) *PositionDecreased {
	return &PositionDecreased{
		base:       base{ctx: ctx, et: PositionDecreasedEvent, marketID: report.MarketID},
		PositionID: positionID,
		Report:     report,
	}
}

// FundingUpdated carries a committed funding state update.
type FundingUpdated struct {
	base
	Report types.UpdateFundingReport
}

func NewFundingUpdatedEvent(ctx context.Context, report types.UpdateFundingReport) *FundingUpdated {
	return &FundingUpdated{
		base:   base{ctx: ctx, et: FundingUpdatedEvent, marketID: report.MarketID},
		Report: report,
	}
}

// BorrowingUpdated carries a committed borrowing state update.
type BorrowingUpdated struct {
	base
	Report types.UpdateBorrowingReport
}

func NewBorrowingUpdatedEvent(ctx context.Context, report types.UpdateBorrowingReport) *BorrowingUpdated {
	return &BorrowingUpdated{
		base:   base{ctx: ctx, et: BorrowingUpdatedEvent, marketID: report.MarketID},
		Report: report,
	}
}
