package resultlist

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Digest fingerprints the rows of view in order. Two views yielding equal
// rows, whatever their strategy, have equal digests.
func Digest[T any](view View[T]) (uint64, error) {
	h := xxhash.New()
	n := 0
	for row, err := range view.All() {
		if err != nil {
			return 0, err
		}
		fmt.Fprintf(h, "%d:%v\n", n, row)
		n++
	}
	if view.IsClosed() {
		return 0, ErrSequenceClosed
	}
	return h.Sum64(), nil
}

// DigestRows fingerprints rows the way Digest does
func DigestRows[T any](rows []T) uint64 {
	h := xxhash.New()
	for i, row := range rows {
		fmt.Fprintf(h, "%d:%v\n", i, row)
	}
	return h.Sum64()
}
