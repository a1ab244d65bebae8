package num

import "fmt"

// Int is a signed wrapper over Uint keeping the magnitude and the sign
// apart, the way the market maths wants them. A zero magnitude always
// reports as non-negative regardless of the stored sign.
type Int struct {
	// U is the unsigned magnitude of the number.
	U *Uint
	// s is the sign, true for positive.
	s bool
}

// NewInt returns a new Int with the given int64 value.
func NewInt(val int64) *Int {
	if val < 0 {
		return &Int{
			U: NewUint(uint64(-val)),
			s: false,
		}
	}
	return &Int{
		U: NewUint(uint64(val)),
		s: true,
	}
}

// IntZero returns a new Int set to zero.
func IntZero() *Int {
	return &Int{
		U: UintZero(),
		s: true,
	}
}

// IntFromUint returns a new Int with the given magnitude, positive when s
// is true. The magnitude is cloned.
func IntFromUint(u *Uint, s bool) *Int {
	return &Int{
		U: u.Clone(),
		s: s,
	}
}

func (i Int) Clone() *Int {
	return &Int{
		U: i.U.Clone(),
		s: i.s,
	}
}

// IsNegative returns true if the number is strictly less than zero.
func (i Int) IsNegative() bool {
	return !i.s && !i.U.IsZero()
}

// IsPositive returns true if the number is strictly greater than zero.
func (i Int) IsPositive() bool {
	return i.s && !i.U.IsZero()
}

func (i Int) IsZero() bool {
	return i.U.IsZero()
}

// FlipSign changes the sign of the number in place.
func (i *Int) FlipSign() {
	i.s = !i.s
}

// AbsUint returns a clone of the magnitude.
func (i Int) AbsUint() *Uint {
	return i.U.Clone()
}

// AddSum adds the given signed values to i in place and returns i.
func (i *Int) AddSum(vals ...*Int) *Int {
	for _, x := range vals {
		i.add(x)
	}
	return i
}

// Add sets i to i + oth and returns i.
func (i *Int) Add(oth *Int) *Int {
	i.add(oth)
	return i
}

// Sub sets i to i - oth and returns i.
func (i *Int) Sub(oth *Int) *Int {
	n := oth.Clone()
	n.FlipSign()
	i.add(n)
	return i
}

func (i *Int) add(oth *Int) {
	if i.s == oth.s {
		i.U.Add(i.U, oth.U)
		return
	}
	mag, neg := UintZero().Delta(i.U, oth.U)
	i.U = mag
	if neg {
		i.s = oth.s
	}
	if i.U.IsZero() {
		i.s = true
	}
}

// AddUint sets i to i + u and returns i.
func (i *Int) AddUint(u *Uint) *Int {
	return i.Add(IntFromUint(u, true))
}

// SubUint sets i to i - u and returns i.
func (i *Int) SubUint(u *Uint) *Int {
	return i.Add(IntFromUint(u, false))
}

func (i Int) EQ(oth *Int) bool {
	if i.IsZero() && oth.IsZero() {
		return true
	}
	return i.s == oth.s && i.U.EQ(oth.U)
}

// LT returns true when i < oth.
func (i Int) LT(oth *Int) bool {
	if i.IsNegative() {
		if !oth.IsNegative() {
			return true
		}
		return oth.U.LT(i.U)
	}
	if oth.IsNegative() {
		return false
	}
	if i.IsZero() {
		return oth.IsPositive()
	}
	return i.U.LT(oth.U)
}

func (i Int) GT(oth *Int) bool {
	return oth.LT(&i)
}

func (i Int) String() string {
	if i.IsNegative() {
		return "-" + i.U.String()
	}
	return i.U.String()
}

// Int64 returns the value as an int64, only meaningful for small
// magnitudes in tests.
func (i Int) Int64() int64 {
	v := int64(i.U.Uint64())
	if i.IsNegative() {
		return -v
	}
	return v
}

// MustIntFromString reads an Int from a base 10 string with an optional
// leading minus sign, panicking on failure.
func MustIntFromString(str string) *Int {
	neg := false
	if len(str) > 0 && str[0] == '-' {
		neg = true
		str = str[1:]
	}
	u, overflow := UintFromString(str, 10)
	if overflow {
		panic(fmt.Sprintf("invalid int literal %q", str))
	}
	return IntFromUint(u, !neg)
}
