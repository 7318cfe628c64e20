// SPDX-License-Identifier: MIT
/*
Package bitint provides the power-of-two helpers used to size FFT plans.

NextPowerOfTwo rounds up with bits.Len on size-1: subtracting one first is what keeps
exact powers of two unchanged (8-1 = 0b0111, Len = 3, 1<<3 = 8), where bits.Len(8)
alone would give 16.
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of two >= size. Non-positive sizes map
// to 1.
//
//	Input  Output
//	0      1
//	5      8
//	64     64
//	300    512
func NextPowerOfTwo(size int) int {
	if size <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}
