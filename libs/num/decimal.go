package num

import (
	"github.com/shopspring/decimal"
)

// Decimal is the arbitrary precision type used where the fixed point
// integers fall short, fractional exponents mostly. It never crosses an
// exported API boundary as anything but a read-only value.
type Decimal = decimal.Decimal

func DecimalFromUint(u *Uint) Decimal {
	return decimal.NewFromUint(&u.u)
}

func DecimalFromInt(u *Int) Decimal {
	d := decimal.NewFromUint(&u.U.u)
	if u.IsNegative() {
		return d.Neg()
	}
	return d
}

func DecimalFromFloat(v float64) Decimal {
	return decimal.NewFromFloat(v)
}
