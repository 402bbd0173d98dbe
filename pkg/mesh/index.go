package mesh

import "golang.org/x/exp/constraints"

// firstOutOfRange returns the slot of the first index that is >= n.
func firstOutOfRange[T constraints.Integer](indices []T, n int) (int, bool) {
	for i, idx := range indices {
		if idx < 0 || uint64(idx) >= uint64(n) {
			return i, true
		}
	}
	return 0, false
}

// InRange reports whether idx addresses an element of a buffer of length n.
func InRange[T constraints.Integer](idx T, n int) bool {
	return idx >= 0 && uint64(idx) < uint64(n)
}
