package types

import (
	"code.meridianprotocol.io/meridian/libs/num"
)

// Position is a perpetual position owned by an external registry. Actions
// take exclusive ownership of the position while mutating it.
type Position struct {
	ID       string
	Owner    string
	MarketID string

	IsLong                bool
	IsCollateralTokenLong bool

	SizeInUsd        *num.Uint
	SizeInTokens     *num.Uint
	CollateralAmount *num.Uint

	// BorrowingFactor is the market cumulative borrowing factor for the
	// position side at the last update.
	BorrowingFactor *num.Uint
	// FundingFeeAmountPerSize is the payer-side accumulator snapshot for
	// the position's collateral token at the last update.
	FundingFeeAmountPerSize *num.Uint
	// ClaimableFundingFeeAmountPerSize snapshots the receiver-side
	// accumulators for both collateral tokens.
	ClaimableFundingFeeAmountPerSize SidePair

	// TradeID is the market trade counter value at the last update,
	// strictly increasing across updates.
	TradeID uint64

	IncreasedAt int64
	DecreasedAt int64
}

// NewPosition returns an empty position.
func NewPosition(id, owner, marketID string, isLong, isCollateralTokenLong bool) *Position {
	return &Position{
		ID:                               id,
		Owner:                            owner,
		MarketID:                         marketID,
		IsLong:                           isLong,
		IsCollateralTokenLong:            isCollateralTokenLong,
		SizeInUsd:                        num.UintZero(),
		SizeInTokens:                     num.UintZero(),
		CollateralAmount:                 num.UintZero(),
		BorrowingFactor:                  num.UintZero(),
		FundingFeeAmountPerSize:          num.UintZero(),
		ClaimableFundingFeeAmountPerSize: ZeroSidePair(),
	}
}

// IsEmpty reports whether the position carries no size and no collateral.
func (p *Position) IsEmpty() bool {
	return p.SizeInUsd.IsZero() && p.SizeInTokens.IsZero() && p.CollateralAmount.IsZero()
}

// Validate checks the structural position invariants, in particular that a
// zero usd size implies a zero token size.
func (p *Position) Validate() error {
	if p.SizeInUsd.IsZero() != p.SizeInTokens.IsZero() {
		return ErrInvalidPosition
	}
	return nil
}

// Reset zeroes every field except identity, used when a decrease empties
// the position.
func (p *Position) Reset() {
	p.SizeInUsd = num.UintZero()
	p.SizeInTokens = num.UintZero()
	p.CollateralAmount = num.UintZero()
	p.BorrowingFactor = num.UintZero()
	p.FundingFeeAmountPerSize = num.UintZero()
	p.ClaimableFundingFeeAmountPerSize = ZeroSidePair()
}

func (p *Position) Clone() *Position {
	c := *p
	c.SizeInUsd = p.SizeInUsd.Clone()
	c.SizeInTokens = p.SizeInTokens.Clone()
	c.CollateralAmount = p.CollateralAmount.Clone()
	c.BorrowingFactor = p.BorrowingFactor.Clone()
	c.FundingFeeAmountPerSize = p.FundingFeeAmountPerSize.Clone()
	c.ClaimableFundingFeeAmountPerSize = p.ClaimableFundingFeeAmountPerSize.Clone()
	return &c
}
