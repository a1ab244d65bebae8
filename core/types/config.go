package types

import (
	"fmt"

	"code.meridianprotocol.io/meridian/libs/num"
)

// PnlFactorKind names the PnL factor caps a market carries per side.
type PnlFactorKind int

const (
	// PnlFactorForDeposit caps the PnL factor a deposit may leave behind.
	PnlFactorForDeposit PnlFactorKind = iota
	// PnlFactorForWithdrawal caps the PnL factor a withdrawal may leave behind.
	PnlFactorForWithdrawal
	// PnlFactorMaxForTrader caps the PnL paid out to a trader on decrease.
	PnlFactorMaxForTrader
	// PnlFactorForAdl is the threshold above which ADL may trigger.
	PnlFactorForAdl
	// PnlFactorMinAfterAdl is the floor an ADL decrease must not undershoot.
	PnlFactorMinAfterAdl
)

func (k PnlFactorKind) String() string {
	switch k {
	case PnlFactorForDeposit:
		return "max-after-deposit"
	case PnlFactorForWithdrawal:
		return "max-after-withdrawal"
	case PnlFactorMaxForTrader:
		return "max-for-trader"
	case PnlFactorForAdl:
		return "for-adl"
	case PnlFactorMinAfterAdl:
		return "min-after-adl"
	default:
		return "unknown"
	}
}

// SwapFeeParams holds the swap fee factors applied per hop.
type SwapFeeParams struct {
	PositiveImpactFeeFactor *num.Uint
	NegativeImpactFeeFactor *num.Uint
	FeeReceiverFactor       *num.Uint
	// DiscountFactor is optional, nil or zero means no discount.
	DiscountFactor *num.Uint
}

// SwapImpactParams holds the swap price impact curve.
type SwapImpactParams struct {
	Exponent       *num.Uint
	PositiveFactor *num.Uint
	NegativeFactor *num.Uint
}

// PositionImpactParams holds the position price impact curve.
type PositionImpactParams struct {
	Exponent       *num.Uint
	PositiveFactor *num.Uint
	NegativeFactor *num.Uint
}

// PositionImpactDistributionParams drives the drain of the position impact
// pool toward equilibrium.
type PositionImpactDistributionParams struct {
	DistributeFactor            *num.Uint
	MinPositionImpactPoolAmount *num.Uint
}

// OrderFeeParams holds the order fee factors applied on position size
// deltas.
type OrderFeeParams struct {
	PositiveImpactFeeFactor *num.Uint
	NegativeImpactFeeFactor *num.Uint
	FeeReceiverFactor       *num.Uint
	DiscountFactor          *num.Uint
}

// LiquidationFeeParams holds the extra fee charged on liquidations.
type LiquidationFeeParams struct {
	FeeFactor         *num.Uint
	FeeReceiverFactor *num.Uint
}

// BorrowingFeeParams holds the borrowing fee accrual parameters.
type BorrowingFeeParams struct {
	FactorForLong   *num.Uint
	FactorForShort  *num.Uint
	ExponentForLong *num.Uint
	ExponentForShort *num.Uint
	// SkipBorrowingFeeForSmallerSide skips accrual on the side with less
	// open interest.
	SkipBorrowingFeeForSmallerSide bool
}

// Factor returns the accrual factor for a side.
func (p BorrowingFeeParams) Factor(isLong bool) *num.Uint {
	if isLong {
		return p.FactorForLong
	}
	return p.FactorForShort
}

// Exponent returns the utilisation exponent for a side.
func (p BorrowingFeeParams) Exponent(isLong bool) *num.Uint {
	if isLong {
		return p.ExponentForLong
	}
	return p.ExponentForShort
}

// FundingFeeParams holds the funding rate parameters.
type FundingFeeParams struct {
	ExponentFactor              *num.Uint
	IncreaseFactorPerSecond     *num.Uint
	DecreaseFactorPerSecond     *num.Uint
	MinFactorPerSecond          *num.Uint
	MaxFactorPerSecond          *num.Uint
	ThresholdForStableFunding   *num.Uint
	ThresholdForDecreaseFunding *num.Uint
}

// PositionParams holds the per-position limits.
type PositionParams struct {
	MinPositionSizeUsd                     *num.Uint
	MinCollateralValue                     *num.Uint
	MinCollateralFactor                    *num.Uint
	MaxPositivePositionImpactFactor        *num.Uint
	MaxNegativePositionImpactFactor        *num.Uint
	MaxPositionImpactFactorForLiquidations *num.Uint
}

// MarketConfig is the static per-market parameter set. It is immutable for
// the duration of an action, only governance mutates it between actions.
type MarketConfig struct {
	// Decimals is the fixed point base of every factor and usd value on
	// the market.
	Decimals uint32
	// MarketTokenDecimals is the decimals of the minted market token.
	MarketTokenDecimals uint32

	SwapFee                    SwapFeeParams
	SwapImpact                 SwapImpactParams
	PositionImpact             PositionImpactParams
	PositionImpactDistribution PositionImpactDistributionParams
	OrderFee                   OrderFeeParams
	LiquidationFee             LiquidationFeeParams
	Borrowing                  BorrowingFeeParams
	Funding                    FundingFeeParams
	Position                   PositionParams

	ReserveFactor             *num.Uint
	OpenInterestReserveFactor *num.Uint
	MaxPoolAmount             SidePair
	MaxPoolValueForDeposit    SidePair
	MaxOpenInterest           SidePair

	// FundingAmountPerSizeAdjustment scales the per-size funding
	// accumulators to keep precision on small rates.
	FundingAmountPerSizeAdjustment *num.Uint

	maxPnlFactors map[PnlFactorKind]SidePair
	unit          *num.Uint
}

// Unit returns 10^Decimals, cached after the first call.
func (c *MarketConfig) Unit() *num.Uint {
	if c.unit == nil {
		c.unit = num.UnitFor(c.Decimals)
	}
	return c.unit
}

// SetMaxPnlFactor sets the cap for one kind on both sides.
func (c *MarketConfig) SetMaxPnlFactor(kind PnlFactorKind, long, short *num.Uint) {
	if c.maxPnlFactors == nil {
		c.maxPnlFactors = map[PnlFactorKind]SidePair{}
	}
	c.maxPnlFactors[kind] = NewSidePair(long, short)
}

// MaxPnlFactor returns the cap for the given kind and side, defaulting to
// the unit (100%) when unset.
func (c *MarketConfig) MaxPnlFactor(kind PnlFactorKind, isLong bool) *num.Uint {
	if p, ok := c.maxPnlFactors[kind]; ok {
		return p.Get(isLong)
	}
	return c.Unit()
}

// Validate checks the static parameter invariants.
func (c *MarketConfig) Validate() error {
	unit := c.Unit()
	if c.SwapImpact.Exponent.LT(unit) {
		return ErrInvalidArgument("swap impact exponent below unit")
	}
	if c.SwapImpact.PositiveFactor.GT(c.SwapImpact.NegativeFactor) {
		return ErrInvalidArgument("positive swap impact factor greater than negative")
	}
	if c.PositionImpact.PositiveFactor.GT(c.PositionImpact.NegativeFactor) {
		return ErrInvalidArgument("positive position impact factor greater than negative")
	}
	if c.Funding.MinFactorPerSecond.GT(c.Funding.MaxFactorPerSecond) {
		return ErrInvalidArgument("min funding factor per second greater than max")
	}
	if c.Funding.ThresholdForStableFunding.LT(c.Funding.ThresholdForDecreaseFunding) {
		return ErrInvalidArgument("stable funding threshold below decrease threshold")
	}
	for _, exp := range []*num.Uint{c.Borrowing.ExponentForLong, c.Borrowing.ExponentForShort} {
		if exp.IsZero() {
			return ErrInvalidArgument("borrowing exponent must be positive")
		}
	}
	if c.FundingAmountPerSizeAdjustment == nil || c.FundingAmountPerSizeAdjustment.IsZero() {
		return ErrInvalidArgument("funding amount per size adjustment must be positive")
	}
	return nil
}

// MarketMeta identifies a market and its three tokens.
type MarketMeta struct {
	ID         string
	Name       string
	IndexToken string
	LongToken  string
	ShortToken string
}

// IsPure reports whether the long and the short token are the same mint.
func (m MarketMeta) IsPure() bool {
	return m.LongToken == m.ShortToken
}

// Token returns the collateral token mint for a side.
func (m MarketMeta) Token(isLong bool) string {
	if isLong {
		return m.LongToken
	}
	return m.ShortToken
}

func (m MarketMeta) String() string {
	return fmt.Sprintf("%s (%s/%s@%s)", m.ID, m.LongToken, m.ShortToken, m.IndexToken)
}
