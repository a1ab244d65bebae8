package pricing

import (
	"code.meridianprotocol.io/meridian/core/types"
	"code.meridianprotocol.io/meridian/libs/num"
)

// ImpactParams is the shared shape of the swap and position impact curves.
type ImpactParams struct {
	Exponent       *num.Uint
	PositiveFactor *num.Uint
	NegativeFactor *num.Uint
}

// SwapImpactParams adapts the market config group.
func SwapImpactParams(p types.SwapImpactParams) ImpactParams {
	return ImpactParams{
		Exponent:       p.Exponent,
		PositiveFactor: p.PositiveFactor,
		NegativeFactor: p.NegativeFactor,
	}
}

// PositionImpactParams adapts the market config group.
func PositionImpactParams(p types.PositionImpactParams) ImpactParams {
	return ImpactParams{
		Exponent:       p.Exponent,
		PositiveFactor: p.PositiveFactor,
		NegativeFactor: p.NegativeFactor,
	}
}

// PriceImpactValue prices the move of a two sided balance from
// (initLong, initShort) to (nextLong, nextShort), in usd. The impact is
// positive when the trade reduced the imbalance, negative when it grew it,
// and uses the punitive negative factor on the side it grew across a
// crossover.
func PriceImpactValue(params ImpactParams, unit *num.Uint, initLong, initShort, nextLong, nextShort *num.Uint) (*num.Int, error) {
	initDiff, initShortHeavy := num.UintZero().Delta(initLong, initShort)
	nextDiff, nextShortHeavy := num.UintZero().Delta(nextLong, nextShort)

	sameSide := initDiff.IsZero() || nextDiff.IsZero() || initShortHeavy == nextShortHeavy
	if sameSide {
		improved := nextDiff.LT(initDiff)
		factor := params.NegativeFactor
		if improved {
			factor = params.PositiveFactor
		}
		d0, failed := num.ApplyExponentFactor(initDiff, params.Exponent, unit)
		if failed {
			return nil, types.ErrComputation("impact exponent (initial)")
		}
		d1, failed := num.ApplyExponentFactor(nextDiff, params.Exponent, unit)
		if failed {
			return nil, types.ErrComputation("impact exponent (next)")
		}
		delta, _ := num.UintZero().Delta(d0, d1)
		value, failed := num.ApplyFactor(delta, factor, unit)
		if failed {
			return nil, types.ErrComputation("impact value")
		}
		return num.IntFromUint(value, improved), nil
	}

	// crossover: the trade flipped which side is heavier, reward the
	// rebalanced part and punish the newly created imbalance
	d0, failed := num.ApplyExponentFactor(initDiff, params.Exponent, unit)
	if failed {
		return nil, types.ErrComputation("impact exponent (initial)")
	}
	d1, failed := num.ApplyExponentFactor(nextDiff, params.Exponent, unit)
	if failed {
		return nil, types.ErrComputation("impact exponent (next)")
	}
	positive, failed := num.ApplyFactor(d0, params.PositiveFactor, unit)
	if failed {
		return nil, types.ErrComputation("impact value (positive)")
	}
	negative, failed := num.ApplyFactor(d1, params.NegativeFactor, unit)
	if failed {
		return nil, types.ErrComputation("impact value (negative)")
	}
	mag, neg := num.UintZero().Delta(positive, negative)
	return num.IntFromUint(mag, !neg), nil
}

// SwapImpactDeltas builds the next state of the primary pool usd values
// for a candidate trade expressed as signed usd deltas per side.
func SwapImpactDeltas(longUsd, shortUsd *num.Uint, longDelta, shortDelta *num.Int) (nextLong, nextShort *num.Uint, err error) {
	next := func(v *num.Uint, d *num.Int) (*num.Uint, error) {
		n := num.IntFromUint(v, true).Add(d)
		if n.IsNegative() {
			return nil, types.ErrComputation("trade larger than pool side")
		}
		return n.AbsUint(), nil
	}
	nextLong, err = next(longUsd, longDelta)
	if err != nil {
		return nil, nil, err
	}
	nextShort, err = next(shortUsd, shortDelta)
	if err != nil {
		return nil, nil, err
	}
	return nextLong, nextShort, nil
}
