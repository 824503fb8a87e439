// Package ringbuffer contains capacity helpers for power-of-two descriptor rings.
package ringbuffer

import (
	"math/bits"

	binutils "github.com/jfoster/binary-utilities"
	"github.com/pkg/math"
)

// Limits and defaults.
const (
	MinCapacity     = 4
	MaxCapacity     = 1 << 15
	DefaultCapacity = 256
)

// AlignCapacity adjusts ring capacity to a power of two between minimum and maximum.
// Optional arguments: minimum capacity, default capacity, maximum capacity.
// Default capacity is used if input is zero.
func AlignCapacity(capacity int, opts ...int) int {
	min, dflt, max := MinCapacity, DefaultCapacity, MaxCapacity
	switch len(opts) {
	case 0:
	case 1:
		min, dflt = opts[0], opts[0]
	case 2:
		min, dflt = opts[0], opts[1]
	case 3:
		min, dflt, max = opts[0], opts[1], opts[2]
	default:
		panic("unexpected opts count")
	}
	if dflt < min || dflt > max || !IsPowerOfTwo(min) || !IsPowerOfTwo(dflt) || !IsPowerOfTwo(max) {
		panic("invalid min, dflt, max")
	}

	if capacity <= 0 {
		capacity = dflt
	} else {
		capacity = int(binutils.NextPowerOfTwo(int64(capacity)))
	}
	return math.MinInt(math.MaxInt(min, capacity), max)
}

// IsPowerOfTwo determines whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// Log2Above returns the smallest k such that 1<<k >= n.
// It returns 0 when n <= 1.
func Log2Above(n int) int {
	if n <= 1 {
		return 0
	}
	return bits.Len(uint(n - 1))
}

// Log2Below returns the largest k such that 1<<k <= n.
// It returns 0 when n <= 1.
func Log2Below(n int) int {
	if n <= 1 {
		return 0
	}
	return bits.Len(uint(n)) - 1
}
