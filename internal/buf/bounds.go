// Package buf contains bounds-checking and endian helpers shared by the
// backing store and the workload harness.
package buf

import "math"

// AddOverflowSafe adds a and b, returning ok = false when the result would
// overflow int64.
func AddOverflowSafe(a, b int64) (int64, bool) {
	switch {
	case b > 0 && a > math.MaxInt64-b:
		return 0, false
	case b < 0 && a < math.MinInt64-b:
		return 0, false
	default:
		return a + b, true
	}
}

// MulOverflowSafe multiplies a and b, returning ok = false when the result
// would overflow int64. Only non-negative operands are supported; that is
// the only combination offset arithmetic ever produces.
func MulOverflowSafe(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if a < 0 || b < 0 {
		return 0, false
	}
	if a > math.MaxInt64/b {
		return 0, false
	}
	return a * b, true
}

// Slice returns the sub-slice [off:off+n] if it fits within len(b).
func Slice(b []byte, off, n int64) ([]byte, bool) {
	if off < 0 || n < 0 || off > int64(len(b)) {
		return nil, false
	}
	end, ok := AddOverflowSafe(off, n)
	if !ok || end > int64(len(b)) {
		return nil, false
	}
	return b[off:end], true
}

// Has reports whether b[off:off+n] is within bounds.
func Has(b []byte, off, n int64) bool {
	_, ok := Slice(b, off, n)
	return ok
}
