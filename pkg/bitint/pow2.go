/*
Package bitint provides bit manipulation helpers for sizing real-time
audio buffers. FFT sizes, ring buffer capacities and transform orders are
all powers of two, and these helpers convert between the three views
(size, order, validity) without allocating or branching on the hot path.

Usage:

	size := bitint.NextPowerOfTwo(1000) // 1024
	ok := bitint.IsPowerOfTwo(2048)     // true
	order := bitint.Log2(2048)          // 11

NextPowerOfTwo subtracts one before taking the bit length so that exact
powers of two are preserved:

	8 -> 7 (0111) -> Len = 3 -> 1<<3 = 8
	9 -> 8 (1000) -> Len = 4 -> 1<<4 = 16
*/
package bitint

import "math/bits"

// Integer is the set of integer types accepted by the helpers.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// NextPowerOfTwo returns the smallest power of two >= n. Values <= 0
// return 1.
//
//	Input  Output
//	4      4
//	5      8
//	0      1
//	-1     1
func NextPowerOfTwo[T Integer](n T) T {
	if n <= 0 {
		return 1
	}
	return T(1) << bits.Len64(uint64(n-1))
}

// IsPowerOfTwo reports whether n is a positive power of two. Powers of two
// have exactly one bit set, so n&(n-1) clears it and leaves zero.
func IsPowerOfTwo[T Integer](n T) bool {
	return n > 0 && n&(n-1) == 0
}

// Log2 returns floor(log2(n)) for positive n and -1 otherwise. For powers
// of two this is the exact exponent, e.g. the FFT order of a window size.
func Log2[T Integer](n T) int {
	if n <= 0 {
		return -1
	}
	return bits.Len64(uint64(n)) - 1
}
