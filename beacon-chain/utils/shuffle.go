// Package utils holds the low-level deterministic sequence operations
// (shuffle, split) the committee engine builds on, written directly from
// the shuffle algorithm and verified against the fixture in
// shuffle_test.go. A legacy expected-output vector predating the
// rejection-sampling fix below would reproduce a modulo-bias bug and is
// not used.
package utils

import (
	"github.com/pkg/errors"

	"github.com/coldstake/beacon-core/shared/hashutil"
)

// maxShuffleListSize is 2^24 - 1: the shuffle reads 24-bit rejection
// sampling windows, so indices beyond this range cannot be addressed.
const maxShuffleListSize = 1<<24 - 1

// ShuffleIndices returns a permutation of list seeded by seed. It applies
// rejection sampling over 3-byte windows of a repeatedly re-hashed seed
// to avoid modulo bias.
func ShuffleIndices(seed [32]byte, list []uint64) ([]uint64, error) {
	n := len(list)
	if n > maxShuffleListSize {
		return nil, errors.Errorf("list size %d exceeds maximum shuffle size %d", n, maxShuffleListSize)
	}
	shuffled := make([]uint64, n)
	copy(shuffled, list)
	if n < 2 {
		return shuffled, nil
	}

	source := seed
	i := 0
	for i < n-1 {
		source = hashutil.Hash(source[:])
		for offset := 0; offset+3 <= 32; offset += 3 {
			remaining := n - i
			if remaining == 1 {
				break
			}
			r := uint32(source[offset])<<16 | uint32(source[offset+1])<<8 | uint32(source[offset+2])
			const pow24 = uint32(1) << 24
			m := pow24 - pow24%uint32(remaining)
			if r < m {
				j := i + int(r%uint32(remaining))
				shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
				i++
			}
			if i >= n-1 {
				break
			}
		}
	}
	return shuffled, nil
}

// SplitIndices partitions list into n contiguous, near-equal pieces.
// Sizes differ by at most one.
func SplitIndices(list []uint64, n uint64) [][]uint64 {
	if n == 0 {
		return nil
	}
	total := uint64(len(list))
	out := make([][]uint64, n)
	for j := uint64(0); j < n; j++ {
		start := total * j / n
		end := total * (j + 1) / n
		out[j] = list[start:end]
	}
	return out
}
