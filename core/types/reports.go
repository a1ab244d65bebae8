package types

import (
	"code.meridianprotocol.io/meridian/libs/num"
)

// Reports are plain data records emitted by the action pipeline. They
// carry enough for callers to perform transfers, emit events and update
// external ledgers.

// DepositReport is the outcome of a deposit action.
type DepositReport struct {
	MarketID string
	// Minted is the amount of market tokens minted to the receiver.
	Minted *num.Uint
	// PriceImpact is the total swap price impact of the deposit in usd.
	PriceImpact *num.Int

	LongTokenFees  SwapFees
	ShortTokenFees SwapFees
}

// WithdrawalReport is the outcome of a withdrawal action.
type WithdrawalReport struct {
	MarketID string
	Burned   *num.Uint

	LongTokenOutput  *num.Uint
	ShortTokenOutput *num.Uint

	LongTokenFees  SwapFees
	ShortTokenFees SwapFees
}

// SwapHopReport is the per-market breakdown of one swap hop.
type SwapHopReport struct {
	MarketID     string
	InputToken   string
	OutputToken  string
	InputAmount  *num.Uint
	OutputAmount *num.Uint
	PriceImpact  *num.Int
	Fees         SwapFees
}

// SwapReport is the outcome of a swap across one or more markets.
type SwapReport struct {
	InputToken   string
	OutputToken  string
	InputAmount  *num.Uint
	OutputAmount *num.Uint
	Hops         []SwapHopReport
}

// DepositWithSwapReport is the outcome of a deposit whose input was first
// routed through a swap path. Swap is nil when the path was empty.
type DepositWithSwapReport struct {
	Swap    *SwapReport
	Deposit DepositReport
}

// WithdrawalWithSwapReport is the outcome of a withdrawal whose outputs
// were routed through per-side swap paths. A nil swap means that side was
// paid out directly.
type WithdrawalWithSwapReport struct {
	Withdrawal WithdrawalReport
	LongSwap   *SwapReport
	ShortSwap  *SwapReport

	// Final amounts per output token after any routing.
	LongTokenOutput  *num.Uint
	ShortTokenOutput *num.Uint
}

// FundingDeltas carries per-size accumulator deltas keyed by position side
// then collateral token side.
type FundingDeltas struct {
	ForLong  SidePair
	ForShort SidePair
}

func ZeroFundingDeltas() FundingDeltas {
	return FundingDeltas{
		ForLong:  ZeroSidePair(),
		ForShort: ZeroSidePair(),
	}
}

// Get returns the pair for a position side.
func (d FundingDeltas) Get(isLong bool) SidePair {
	if isLong {
		return d.ForLong
	}
	return d.ForShort
}

// UpdateFundingReport is the outcome of a funding state update.
type UpdateFundingReport struct {
	MarketID string
	// Seconds is the elapsed time the update covered.
	Seconds uint64
	// NextFundingFactorPerSecond is the recomputed funding rate, positive
	// when longs pay shorts.
	NextFundingFactorPerSecond *num.Int
	// FundingAmountPerSizeDelta are the payer accumulator increments.
	FundingAmountPerSizeDelta FundingDeltas
	// ClaimableFundingAmountPerSizeDelta are the receiver accumulator
	// increments.
	ClaimableFundingAmountPerSizeDelta FundingDeltas
}

// IsEmpty reports an update that moved nothing.
func (r UpdateFundingReport) IsEmpty() bool {
	return r.Seconds == 0
}

// UpdateBorrowingReport is the outcome of a borrowing state update.
type UpdateBorrowingReport struct {
	MarketID string
	Seconds  uint64
	// NextCumulativeFactorDelta is the cumulative borrowing factor
	// increment per side.
	NextCumulativeFactorDelta SidePair
}

// IncreasePositionReport is the outcome of a position increase.
type IncreasePositionReport struct {
	MarketID string

	ExecutionPrice    *num.Uint
	PriceImpactValue  *num.Int
	PriceImpactAmount *num.Int
	SizeDeltaUsd      *num.Uint
	SizeDeltaInTokens *num.Uint
	// CollateralDelta is the signed collateral change after fees.
	CollateralDelta *num.Int

	Fees      PositionFees
	Borrowing UpdateBorrowingReport
	Funding   UpdateFundingReport
}

// DecreaseTransferOut lists everything leaving the market after a
// decrease.
type DecreaseTransferOut struct {
	OutputToken           string
	OutputAmount          *num.Uint
	SecondaryOutputToken  string
	SecondaryOutputAmount *num.Uint

	ClaimableLongTokenFunding  *num.Uint
	ClaimableShortTokenFunding *num.Uint
	// ClaimablePnlTokenHolding is the price impact diff residue held for
	// the position owner as claimable collateral.
	ClaimablePnlTokenHolding *num.Uint
}

// Pnl pairs the capped and uncapped realised PnL of a decrease.
type Pnl struct {
	Pnl         *num.Int
	UncappedPnl *num.Int
}

// DecreasePositionReport is the outcome of a position decrease.
type DecreasePositionReport struct {
	MarketID string

	ExecutionPrice    *num.Uint
	PriceImpactValue  *num.Int
	PriceImpactDiff   *num.Uint
	SizeDeltaUsd      *num.Uint
	SizeDeltaInTokens *num.Uint

	Pnl         Pnl
	Fees        PositionFees
	TransferOut DecreaseTransferOut

	// ShouldRemovePosition instructs the caller to close the position in
	// its registry.
	ShouldRemovePosition bool

	Borrowing UpdateBorrowingReport
	Funding   UpdateFundingReport
}
