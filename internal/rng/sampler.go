// internal/rng/sampler.go

package rng

import (
	"errors"
	"math/bits"
)

// Source is anything that yields uniform 64-bit draws. It matches
// math/rand/v2.Source, so both engines can also back a *rand.Rand.
type Source interface {
	Uint64() uint64
}

// Unbiased returns a uniformly distributed integer in the closed interval
// [lo, hi] using Lemire's multiply-and-reject method. The bounds are swapped
// if lo > hi. The full 64-bit range uses a single raw draw.
func Unbiased(src Source, lo, hi uint64) uint64 {
	if lo > hi {
		lo, hi = hi, lo
	}
	if lo == hi {
		return lo
	}
	n := hi - lo + 1
	if n == 0 {
		return src.Uint64()
	}

	h, l := bits.Mul64(src.Uint64(), n)
	if l < n {
		// (2⁶⁴ - n) mod n
		thresh := -n % n
		for l < thresh {
			h, l = bits.Mul64(src.Uint64(), n)
		}
	}
	return lo + h
}

// WeightedEntry represents one candidate with its weight and running
// cumulative weight.
type WeightedEntry struct {
	ID         string
	Weight     uint64
	Cumulative uint64
}

// BuildWeighted computes cumulative weights over entries in place.
func BuildWeighted(entries []WeightedEntry) ([]WeightedEntry, error) {
	if len(entries) == 0 {
		return nil, errors.New("rng: no entries to weight")
	}
	var total uint64
	for i := range entries {
		if entries[i].Weight == 0 {
			return nil, errors.New("rng: entry weight must be > 0")
		}
		var carry uint64
		total, carry = bits.Add64(total, entries[i].Weight, 0)
		if carry != 0 {
			return nil, errors.New("rng: total weight overflows 64 bits")
		}
		entries[i].Cumulative = total
	}
	return entries, nil
}

// DrawMultipleUnique picks count distinct IDs from a pool built with
// BuildWeighted. Each pick is proportional to the remaining weights and the
// chosen entry is removed before the next pick. Fewer than count IDs are
// returned when the pool runs out.
func DrawMultipleUnique(src Source, pool []WeightedEntry, count int) ([]string, error) {
	if count <= 0 {
		return nil, errors.New("rng: must draw at least 1 entry")
	}
	if len(pool) == 0 {
		return nil, errors.New("rng: pool is empty")
	}

	// Copy the pool so we can mutate it
	tmp := make([]WeightedEntry, len(pool))
	copy(tmp, pool)

	picked := make([]string, 0, count)
	for len(picked) < count && len(tmp) > 0 {
		total := tmp[len(tmp)-1].Cumulative
		r := Unbiased(src, 0, total-1)

		// first entry whose cumulative weight exceeds r
		lo, hi := 0, len(tmp)
		for lo < hi {
			mid := int(uint(lo+hi) >> 1)
			if r < tmp[mid].Cumulative {
				hi = mid
			} else {
				lo = mid + 1
			}
		}
		picked = append(picked, tmp[lo].ID)

		removed := tmp[lo].Weight
		tmp = append(tmp[:lo], tmp[lo+1:]...)
		for j := lo; j < len(tmp); j++ {
			tmp[j].Cumulative -= removed
		}
	}
	return picked, nil
}
