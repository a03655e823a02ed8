package app

import (
	"fmt"
	"math"
)

// addInt64AndU64Checked computes base + delta with overflow detection.
// Cooldown deadlines are int64 unix seconds; cooldown windows are uint64.
func addInt64AndU64Checked(base int64, delta uint64) (int64, error) {
	if delta > math.MaxInt64 {
		return 0, fmt.Errorf("delta %d exceeds int64 range", delta)
	}
	d := int64(delta)
	if base > 0 && d > math.MaxInt64-base {
		return 0, fmt.Errorf("int64 overflow: %d + %d", base, delta)
	}
	return base + d, nil
}

func addUint64Checked(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, fmt.Errorf("uint64 overflow: %d + %d", a, b)
	}
	return a + b, nil
}
