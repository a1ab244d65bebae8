package types

import (
	"code.meridianprotocol.io/meridian/libs/num"
)

// SidePair holds one value per market side. The zero value is not usable,
// build pairs with NewSidePair or ZeroSidePair.
type SidePair struct {
	Long  *num.Uint
	Short *num.Uint
}

func NewSidePair(long, short *num.Uint) SidePair {
	return SidePair{
		Long:  long.Clone(),
		Short: short.Clone(),
	}
}

func ZeroSidePair() SidePair {
	return SidePair{
		Long:  num.UintZero(),
		Short: num.UintZero(),
	}
}

// Get returns the value for the given side.
func (s SidePair) Get(isLong bool) *num.Uint {
	if isLong {
		return s.Long
	}
	return s.Short
}

// Set overwrites the value for the given side.
func (s *SidePair) Set(isLong bool, v *num.Uint) {
	if isLong {
		s.Long = v
		return
	}
	s.Short = v
}

func (s SidePair) Clone() SidePair {
	return NewSidePair(s.Long, s.Short)
}
