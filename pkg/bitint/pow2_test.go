// SPDX-License-Identifier: MIT
package bitint

import (
	"fmt"
	"testing"
)

func TestNextPowerOfTwo(t *testing.T) {
	tests := []struct {
		n        int
		expected int
	}{
		{-10, 1},    // Negative number
		{0, 1},      // Zero
		{1, 1},      // One is 2^0
		{3, 4},      // Small non-power
		{64, 64},    // Estimator minimum window
		{90, 128},   // Warm-up window at 30 Hz
		{300, 512},  // Full 10 s window at 30 Hz
		{513, 1024}, // Just past a power
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d→%d", tt.n, tt.expected), func(t *testing.T) {
			result := NextPowerOfTwo(tt.n)
			if result != tt.expected {
				t.Errorf("NextPowerOfTwo(%d) = %d, expected %d", tt.n, result, tt.expected)
			}
		})
	}
}

func TestNextPowerOfTwoIsSmallest(t *testing.T) {
	for n := 1; n <= 4096; n++ {
		p := NextPowerOfTwo(n)
		if p&(p-1) != 0 || p < n || (p > 1 && p/2 >= n) {
			t.Fatalf("NextPowerOfTwo(%d) = %d is not the smallest power >= n", n, p)
		}
	}
}

func BenchmarkNextPowerOfTwo(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = NextPowerOfTwo(300)
	}
}
