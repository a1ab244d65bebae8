package num

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// Uint is a wrapper over a big unsigned integer. All arithmetic is 256 bit
// and never wraps silently: the Overflow variants report truncation and the
// callers are expected to treat it as fatal for the operation at hand.
type Uint struct {
	u uint256.Int
}

// NewUint creates a new Uint with the given uint64 value.
func NewUint(val uint64) *Uint {
	return &Uint{*uint256.NewInt(val)}
}

// UintZero returns a new Uint set to zero.
func UintZero() *Uint {
	return NewUint(0)
}

// UintOne returns a new Uint set to one.
func UintOne() *Uint {
	return NewUint(1)
}

// Min returns the smallest of the 2 numbers.
func Min(a, b *Uint) *Uint {
	if a.LT(b) {
		return a
	}
	return b
}

// Max returns the largest of the 2 numbers.
func Max(a, b *Uint) *Uint {
	if a.GT(b) {
		return a
	}
	return b
}

// UintFromBig constructs a new Uint from a big.Int,
// returns true if an overflow happened.
func UintFromBig(b *big.Int) (*Uint, bool) {
	if b.Sign() < 0 {
		return UintZero(), true
	}
	u, overflow := uint256.FromBig(b)
	if overflow {
		return UintZero(), true
	}
	return &Uint{*u}, false
}

// UintFromDecimal truncates the given decimal to an integer,
// returns true if an overflow happened.
func UintFromDecimal(d Decimal) (*Uint, bool) {
	return UintFromBig(d.BigInt())
}

// UintFromString reads a Uint from the given string in the given
// base, returns true on parse failure or overflow.
func UintFromString(str string, base int) (*Uint, bool) {
	b, ok := big.NewInt(0).SetString(str, base)
	if !ok {
		return UintZero(), true
	}
	return UintFromBig(b)
}

// MustUintFromString reads a Uint from a base 10 string and panics on
// failure. Reserved for literals in tests and static tables.
func MustUintFromString(str string) *Uint {
	u, overflow := UintFromString(str, 10)
	if overflow {
		panic(fmt.Sprintf("invalid uint literal %q", str))
	}
	return u
}

// UintPow10 returns 10^n.
func UintPow10(n uint32) *Uint {
	z := &Uint{}
	z.u.Exp(uint256.NewInt(10), uint256.NewInt(uint64(n)))
	return z
}

// Sum is equivalent to x + y + ... without the caller allocating the
// accumulator.
func Sum(vals ...*Uint) *Uint {
	return UintZero().AddSum(vals...)
}

func (z *Uint) Set(oth *Uint) *Uint {
	z.u.Set(&oth.u)
	return z
}

func (z *Uint) SetUint64(val uint64) *Uint {
	z.u.SetUint64(val)
	return z
}

func (z Uint) Uint64() uint64 {
	return z.u.Uint64()
}

func (z Uint) BigInt() *big.Int {
	return z.u.ToBig()
}

func (z Uint) ToDecimal() Decimal {
	return DecimalFromUint(&z)
}

// Add sets z to x + y and returns z, wrapping on overflow.
func (z *Uint) Add(x, y *Uint) *Uint {
	z.u.Add(&x.u, &y.u)
	return z
}

// AddSum adds all the given values to z, so x.AddSum(y, z) is x + y + z.
func (z *Uint) AddSum(vals ...*Uint) *Uint {
	for _, x := range vals {
		z.u.Add(&z.u, &x.u)
	}
	return z
}

// AddOverflow sets z to x + y, the second return is true if the
// addition overflowed.
func (z *Uint) AddOverflow(x, y *Uint) (*Uint, bool) {
	_, ok := z.u.AddOverflow(&x.u, &y.u)
	return z, ok
}

// Sub sets z to x - y and returns z, wrapping on underflow.
func (z *Uint) Sub(x, y *Uint) *Uint {
	z.u.Sub(&x.u, &y.u)
	return z
}

// SubOverflow sets z to x - y, the second return is true if the
// subtraction underflowed.
func (z *Uint) SubOverflow(x, y *Uint) (*Uint, bool) {
	_, ok := z.u.SubOverflow(&x.u, &y.u)
	return z, ok
}

// Delta sets z to |x - y|, the second return is true when y > x.
func (z *Uint) Delta(x, y *Uint) (*Uint, bool) {
	if y.GT(x) {
		_ = z.Sub(y, x)
		return z, true
	}
	_ = z.Sub(x, y)
	return z, false
}

// Mul sets z to x * y and returns z, wrapping on overflow.
func (z *Uint) Mul(x, y *Uint) *Uint {
	z.u.Mul(&x.u, &y.u)
	return z
}

// MulOverflow sets z to x * y, the second return is true if the
// product overflowed.
func (z *Uint) MulOverflow(x, y *Uint) (*Uint, bool) {
	_, ok := z.u.MulOverflow(&x.u, &y.u)
	return z, ok
}

// Div sets z to x / y and returns z. Division by zero yields zero, use the
// checked helpers in factor.go anywhere a zero divisor is an error.
func (z *Uint) Div(x, y *Uint) *Uint {
	z.u.Div(&x.u, &y.u)
	return z
}

func (u Uint) LT(oth *Uint) bool {
	return u.u.Lt(&oth.u)
}

func (u Uint) LTE(oth *Uint) bool {
	return u.u.Lt(&oth.u) || u.u.Eq(&oth.u)
}

func (u Uint) EQ(oth *Uint) bool {
	return u.u.Eq(&oth.u)
}

func (u Uint) EQUint64(oth uint64) bool {
	return u.u.Eq(uint256.NewInt(oth))
}

func (u Uint) NEQ(oth *Uint) bool {
	return !u.u.Eq(&oth.u)
}

func (u Uint) GT(oth *Uint) bool {
	return u.u.Gt(&oth.u)
}

func (u Uint) GTUint64(oth uint64) bool {
	return u.u.GtUint64(oth)
}

func (u Uint) GTE(oth *Uint) bool {
	return u.u.Gt(&oth.u) || u.u.Eq(&oth.u)
}

func (u Uint) IsZero() bool {
	return u.u.IsZero()
}

// Copy sets z to x, equivalent to z = x.
func (z *Uint) Copy(x *Uint) *Uint {
	z.u = x.u
	return z
}

// Clone returns a copy of z.
func (z Uint) Clone() *Uint {
	return &Uint{z.u}
}

// String returns the stored value as a base 10 string.
func (u Uint) String() string {
	return u.u.ToBig().String()
}

// Format implements fmt.Formatter.
func (u Uint) Format(s fmt.State, ch rune) {
	u.u.Format(s, ch)
}
