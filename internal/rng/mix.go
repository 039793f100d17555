// internal/rng/mix.go
package rng

import "math/bits"

const (
	mixMul    = 0x9E6F1D9BB2D6C165
	mixStrong = 0x9FB21C651E98DF25 // rrmxmx multiplier
)

// Mix is a NASAM-style triple-multiply unary mixer. It derives the counter
// increment and turns raw counter limbs into output words.
func Mix(v uint64) uint64 {
	v *= mixMul
	v ^= bits.RotateLeft64(v, -26)
	v *= mixMul
	v ^= bits.RotateLeft64(v, -47) ^ bits.RotateLeft64(v, -21)
	v *= mixStrong
	return v ^ (v >> 28)
}

// SplitMix64 expands a single 64-bit seed into a stream of well spread
// words. It is only used to build seed vectors.
type SplitMix64 struct {
	state uint64
}

// NewSplitMix64 returns a SplitMix64 positioned at seed.
func NewSplitMix64(seed uint64) *SplitMix64 {
	return &SplitMix64{state: seed}
}

// Uint64 returns the next word.
func (s *SplitMix64) Uint64() uint64 {
	s.state += goldenGamma
	z := s.state
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// expandSeed fills a 1024-bit jump vector from a single seed.
func expandSeed(seed uint64) [CounterLimbs]uint64 {
	var (
		step [CounterLimbs]uint64
		sm   = NewSplitMix64(seed)
	)
	for i := range step {
		step[i] = sm.Uint64()
	}
	return step
}
