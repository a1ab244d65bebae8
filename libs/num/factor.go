package num

import (
	"math"
	"math/big"
)

// This file holds the fixed point helpers the market maths is built on.
// Factors and exponents are expressed at a market unit of 10^decimals, so
// applying a factor f to an amount x is x*f/unit. Intermediate products are
// computed over big.Int so a 256 bit overflow in the middle of a mul-div
// never corrupts a result, only the final value is range checked.
//
// Every helper returns (value, failed) where failed reports overflow or a
// zero divisor. Nothing here saturates and nothing panics.

// UnitFor returns the fixed point unit for the given number of decimals,
// i.e. 10^decimals.
func UnitFor(decimals uint32) *Uint {
	return UintPow10(decimals)
}

// MulDiv returns x*y/d truncated.
func MulDiv(x, y, d *Uint) (*Uint, bool) {
	if d.IsZero() {
		return UintZero(), true
	}
	p := big.NewInt(0).Mul(x.BigInt(), y.BigInt())
	p.Quo(p, d.BigInt())
	return UintFromBig(p)
}

// MulDivCeil returns x*y/d rounded away from zero.
func MulDivCeil(x, y, d *Uint) (*Uint, bool) {
	if d.IsZero() {
		return UintZero(), true
	}
	p := big.NewInt(0).Mul(x.BigInt(), y.BigInt())
	q, r := big.NewInt(0).QuoRem(p, d.BigInt(), big.NewInt(0))
	if r.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	return UintFromBig(q)
}

// RoundUpDiv returns ⌈n/d⌉.
func RoundUpDiv(n, d *Uint) (*Uint, bool) {
	return MulDivCeil(n, UintOne(), d)
}

// ApplyFactor returns x*f/unit truncated.
func ApplyFactor(x, f, unit *Uint) (*Uint, bool) {
	return MulDiv(x, f, unit)
}

// ApplyFactorCeil returns x*f/unit rounded away from zero.
func ApplyFactorCeil(x, f, unit *Uint) (*Uint, bool) {
	return MulDivCeil(x, f, unit)
}

// DivToFactor returns the factor n/d at the fixed point unit, so
// n*unit/d, with explicit rounding control.
func DivToFactor(n, d, unit *Uint, roundUp bool) (*Uint, bool) {
	if roundUp {
		return MulDivCeil(n, unit, d)
	}
	return MulDiv(n, unit, d)
}

// MulDivInt returns x*y/d with the sign of x preserved, truncating the
// magnitude.
func MulDivInt(x *Int, y, d *Uint) (*Int, bool) {
	m, failed := MulDiv(x.U, y, d)
	if failed {
		return IntZero(), true
	}
	return IntFromUint(m, !x.IsNegative()), false
}

// ApplyFactorInt returns x*f/unit with the sign of x preserved, truncating
// the magnitude.
func ApplyFactorInt(x *Int, f, unit *Uint) (*Int, bool) {
	return MulDivInt(x, f, unit)
}

// ApplyExponentFactor raises a fixed point value to a fixed point
// exponent: unit * (x/unit)^(exp/unit). The whole part of the exponent is
// expanded as exact integer powers, a fractional remainder falls back to
// floating point and is only as precise as a float64.
func ApplyExponentFactor(x, exp, unit *Uint) (*Uint, bool) {
	if unit.IsZero() {
		return UintZero(), true
	}
	if exp.IsZero() {
		return unit.Clone(), false
	}
	if x.IsZero() {
		return UintZero(), false
	}
	whole := UintZero().Div(exp, unit)
	frac := UintZero().Sub(exp.Clone(), UintZero().Mul(whole, unit))

	res := unit.Clone()
	for i := whole.Clone(); !i.IsZero(); i.Sub(i, UintOne()) {
		var failed bool
		res, failed = MulDiv(res, x, unit)
		if failed {
			return UintZero(), true
		}
	}
	if !frac.IsZero() {
		base, _ := DecimalFromUint(x).Div(DecimalFromUint(unit)).Float64()
		fexp, _ := DecimalFromUint(frac).Div(DecimalFromUint(unit)).Float64()
		p := math.Pow(base, fexp)
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return UintZero(), true
		}
		scaled, failed := UintFromDecimal(DecimalFromUint(res).Mul(DecimalFromFloat(p)))
		if failed {
			return UintZero(), true
		}
		res = scaled
	}
	return res, false
}

// BoundMagnitude clamps |x| into [min, max] preserving the sign of x. A
// zero value bound upward keeps a positive sign.
func BoundMagnitude(x *Int, min, max *Uint) *Int {
	mag := x.U.Clone()
	if mag.LT(min) {
		mag = min.Clone()
	}
	if mag.GT(max) {
		mag = max.Clone()
	}
	return IntFromUint(mag, !x.IsNegative())
}
