package collatz

import "math"

// MaxStart is the largest n for which 3n+1 fits in a uint64.
const MaxStart uint64 = (math.MaxUint64 - 1) / 3

// StepFunc maps a positive integer to its successor in a sequence.
type StepFunc func(n uint64) uint64

// Step returns the Collatz successor of n: 3n+1 when n is odd, n/2 when even.
// Callers must not pass an odd n above MaxStart.
func Step(n uint64) uint64 {
	if n%2 == 0 {
		return n / 2
	}
	return 3*n + 1
}

// canStep reports whether Step(n) is representable.
func canStep(n uint64) bool {
	return n%2 == 0 || n <= MaxStart
}
