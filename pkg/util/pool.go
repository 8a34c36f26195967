package util

import "runtime"

// GetOptimalPoolSize sizes parser pools and the scanner's worker pool.
//
// Formula: min(max(runtime.NumCPU() * 2, 4), 32)
//
// Parsing runs in cgo, so twice the core count keeps cores busy while
// goroutines block on the C side. The cap bounds parser memory per grammar.
func GetOptimalPoolSize() int {
	poolSize := runtime.NumCPU() * 2
	if poolSize < 4 {
		poolSize = 4
	}
	if poolSize > 32 {
		poolSize = 32
	}
	return poolSize
}

// GetOptimalPoolSizeWithOverride returns override when positive and
// GetOptimalPoolSize() otherwise.
func GetOptimalPoolSizeWithOverride(override int) int {
	if override > 0 {
		return override
	}
	return GetOptimalPoolSize()
}
