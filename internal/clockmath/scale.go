// ABOUTME: Overflow-safe integer scaling for clock and frame arithmetic
// ABOUTME: Computes val*num/denom with 128-bit intermediates
package clockmath

import (
	"math"
	"math/bits"
)

// Scale returns floor(val*num/denom), saturating at math.MaxUint64.
func Scale(val, num, denom uint64) uint64 {
	return scale(val, num, denom, 0)
}

// ScaleRound returns val*num/denom rounded to the nearest integer.
func ScaleRound(val, num, denom uint64) uint64 {
	return scale(val, num, denom, denom/2)
}

// ScaleSigned scales a signed value by num/denom, rounding the magnitude
// to nearest when round is set and truncating toward zero otherwise.
func ScaleSigned(val int64, num, denom uint64, round bool) int64 {
	neg := val < 0
	mag := uint64(val)
	if neg {
		mag = uint64(-(val + 1)) + 1
	}

	var r uint64
	if round {
		r = ScaleRound(mag, num, denom)
	} else {
		r = Scale(mag, num, denom)
	}

	if neg {
		if r > uint64(math.MaxInt64)+1 {
			return math.MinInt64
		}
		return -int64(r-1) - 1
	}
	if r > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(r)
}

func scale(val, num, denom, correction uint64) uint64 {
	if denom == 0 {
		panic("clockmath: zero denominator")
	}

	hi, lo := bits.Mul64(val, num)
	var carry uint64
	lo, carry = bits.Add64(lo, correction, 0)
	hi += carry

	// Quotient would not fit in 64 bits
	if hi >= denom {
		return math.MaxUint64
	}

	q, _ := bits.Div64(hi, lo, denom)
	return q
}
