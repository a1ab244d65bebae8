package types

import (
	"code.meridianprotocol.io/meridian/libs/num"
)

// Price is the min/max unit price pair of one token, captured from the
// oracle snapshot an action runs against.
type Price struct {
	Min *num.Uint
	Max *num.Uint
}

// NewPrice returns a price with equal min and max.
func NewPrice(p *num.Uint) *Price {
	return &Price{
		Min: p.Clone(),
		Max: p.Clone(),
	}
}

// NewPriceRange returns a price from a min/max pair.
func NewPriceRange(min, max *num.Uint) *Price {
	return &Price{
		Min: min.Clone(),
		Max: max.Clone(),
	}
}

func (p *Price) Clone() *Price {
	return &Price{
		Min: p.Min.Clone(),
		Max: p.Max.Clone(),
	}
}

// Validate rejects zero or inverted prices. Prices divide amounts all over
// the action pipeline, a zero min price is never usable.
func (p *Price) Validate() error {
	if p == nil || p.Min == nil || p.Max == nil || p.Min.IsZero() || p.Max.IsZero() {
		return ErrInvalidArgument("invalid prices")
	}
	if p.Min.GT(p.Max) {
		return ErrInvalidArgument("min price greater than max price")
	}
	return nil
}

// Pick returns the max price when maximize is set, the min price
// otherwise.
func (p *Price) Pick(maximize bool) *num.Uint {
	if maximize {
		return p.Max
	}
	return p.Min
}

// Mid returns the midpoint of the price pair, used by impact estimation.
func (p *Price) Mid() *num.Uint {
	mid := num.Sum(p.Min, p.Max)
	return mid.Div(mid, num.NewUint(2))
}

// Prices carries the oracle snapshot for the three tokens of a market.
type Prices struct {
	IndexTokenPrice *Price
	LongTokenPrice  *Price
	ShortTokenPrice *Price
}

// NewPrices builds a Prices snapshot from flat unit prices, mostly a test
// convenience.
func NewPrices(index, long, short uint64) *Prices {
	return &Prices{
		IndexTokenPrice: NewPrice(num.NewUint(index)),
		LongTokenPrice:  NewPrice(num.NewUint(long)),
		ShortTokenPrice: NewPrice(num.NewUint(short)),
	}
}

func (p *Prices) Clone() *Prices {
	return &Prices{
		IndexTokenPrice: p.IndexTokenPrice.Clone(),
		LongTokenPrice:  p.LongTokenPrice.Clone(),
		ShortTokenPrice: p.ShortTokenPrice.Clone(),
	}
}

// Validate requires all three prices to be valid before any action runs.
func (p *Prices) Validate() error {
	if p == nil {
		return ErrInvalidArgument("invalid prices")
	}
	for _, pp := range []*Price{p.IndexTokenPrice, p.LongTokenPrice, p.ShortTokenPrice} {
		if err := pp.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// CollateralPrice returns the price of the long or short collateral token.
func (p *Prices) CollateralPrice(isLong bool) *Price {
	if isLong {
		return p.LongTokenPrice
	}
	return p.ShortTokenPrice
}
