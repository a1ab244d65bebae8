package num_test

import (
	"testing"

	"code.meridianprotocol.io/meridian/libs/num"

	"github.com/stretchr/testify/assert"
)

func TestUintOverflowChecks(t *testing.T) {
	maxUint := num.MustUintFromString("115792089237316195423570985008687907853269984665640564039457584007913129639935")

	_, overflow := num.UintZero().AddOverflow(maxUint, num.UintOne())
	assert.True(t, overflow)

	_, underflow := num.UintZero().SubOverflow(num.NewUint(1), num.NewUint(2))
	assert.True(t, underflow)

	_, overflow = num.UintZero().MulOverflow(maxUint, num.NewUint(2))
	assert.True(t, overflow)

	v, overflow := num.UintZero().AddOverflow(num.NewUint(1), num.NewUint(2))
	assert.False(t, overflow)
	assert.Equal(t, "3", v.String())
}

func TestUintDelta(t *testing.T) {
	d, neg := num.UintZero().Delta(num.NewUint(10), num.NewUint(4))
	assert.Equal(t, "6", d.String())
	assert.False(t, neg)

	d, neg = num.UintZero().Delta(num.NewUint(4), num.NewUint(10))
	assert.Equal(t, "6", d.String())
	assert.True(t, neg)

	d, neg = num.UintZero().Delta(num.NewUint(4), num.NewUint(4))
	assert.True(t, d.IsZero())
	assert.False(t, neg)
}

func TestUintSum(t *testing.T) {
	assert.Equal(t, "60", num.Sum(num.NewUint(10), num.NewUint(20), num.NewUint(30)).String())
	assert.True(t, num.Sum().IsZero())

	// AddSum accumulates in place
	v := num.NewUint(1)
	v.AddSum(num.NewUint(2), num.NewUint(3))
	assert.Equal(t, "6", v.String())
}

func TestUintMinMax(t *testing.T) {
	assert.Equal(t, "4", num.Min(num.NewUint(10), num.NewUint(4)).String())
	assert.Equal(t, "10", num.Max(num.NewUint(10), num.NewUint(4)).String())
	assert.Equal(t, "4", num.Min(num.NewUint(4), num.NewUint(4)).String())
}

func TestUintPow10(t *testing.T) {
	assert.Equal(t, "1", num.UintPow10(0).String())
	assert.Equal(t, "1000000", num.UintPow10(6).String())
	assert.Equal(t, "100000000000000000000", num.UintPow10(20).String())
}

func TestUintFromString(t *testing.T) {
	v, failed := num.UintFromString("123456789012345678901234567890", 10)
	assert.False(t, failed)
	assert.Equal(t, "123456789012345678901234567890", v.String())

	_, failed = num.UintFromString("not-a-number", 10)
	assert.True(t, failed)

	assert.Panics(t, func() { num.MustUintFromString("nope") })
}
