package partition

import "math"

// Hash maps a key to a partition index in [0, maxValue). It folds each
// byte of the key into a 64-bit accumulator seeded with 5381 via
// acc = acc*33 + byte, wrapping on overflow. Deterministic and unseeded,
// so independent routers agree on placement without coordination.
// Panics if maxValue is not positive.
func Hash(key string, maxValue int) int {
	if maxValue <= 0 {
		panic("partition: maxValue must be positive")
	}
	acc := int64(5381)
	for i := 0; i < len(key); i++ {
		acc = acc*33 + int64(key[i])
	}
	return int(abs64(acc) % int64(maxValue))
}

// abs64 returns the absolute value of v. math.MinInt64 has no positive
// counterpart and maps to math.MaxInt64 so the result is never negative.
func abs64(v int64) int64 {
	if v == math.MinInt64 {
		return math.MaxInt64
	}
	if v < 0 {
		return -v
	}
	return v
}
