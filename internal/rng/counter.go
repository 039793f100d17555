// internal/rng/counter.go
package rng

import "math/bits"

// CounterLimbs is the number of 64-bit limbs in a Counter1024.
const CounterLimbs = 16

// goldenGamma is φ⁻¹·2⁶⁴, the first limb of every counter increment.
const goldenGamma = 0x9e3779b97f4a7c15

// Counter1024 is a 1024-bit additive counter. Limb 0 is least significant.
//
// Each Increment adds a fixed irregular 1024-bit increment to the state,
// not 1. The increment starts from goldenGamma and every further limb is the
// mix of the previous one. The lowest limb is odd, so the counter visits all
// 2¹⁰²⁴ states before repeating. Overflow past the top limb wraps.
type Counter1024 struct {
	state     [CounterLimbs]uint64
	increment [CounterLimbs]uint64
}

// NewCounter1024 returns a counter at zero with the standard increment.
func NewCounter1024() Counter1024 {
	var c Counter1024
	c.increment = counterIncrement()
	return c
}

func counterIncrement() [CounterLimbs]uint64 {
	var inc [CounterLimbs]uint64
	inc[0] = goldenGamma
	for i := 1; i < CounterLimbs; i++ {
		inc[i] = Mix(inc[i-1])
	}
	return inc
}

// addCarry adds v into x[i] and ripples any carry upward. A carry out of the
// top limb is dropped.
func addCarry(x *[CounterLimbs]uint64, v uint64, i int) {
	if i >= CounterLimbs {
		return
	}
	var carry uint64
	x[i], carry = bits.Add64(x[i], v, 0)
	for i++; carry != 0 && i < CounterLimbs; i++ {
		x[i], carry = bits.Add64(x[i], 0, carry)
	}
}

// Increment performs state += increment.
func (c *Counter1024) Increment() {
	for i := 0; i < CounterLimbs; i++ {
		addCarry(&c.state, c.increment[i], i)
	}
}

// Advance performs state += n*increment.
func (c *Counter1024) Advance(n uint64) {
	switch n {
	case 0:
		return
	case 1:
		c.Increment()
		return
	}
	for i := 0; i < CounterLimbs; i++ {
		hi, lo := bits.Mul64(c.increment[i], n)
		addCarry(&c.state, lo, i)
		addCarry(&c.state, hi, i+1)
	}
}

// BigJump performs state += step*increment, where step is a 1024-bit
// integer. Partial products above limb 15 are discarded.
func (c *Counter1024) BigJump(step [CounterLimbs]uint64) {
	acc := c.state
	for i := 0; i < CounterLimbs; i++ {
		if step[i] == 0 {
			continue
		}
		for j := 0; i+j < CounterLimbs; j++ {
			hi, lo := bits.Mul64(c.increment[j], step[i])
			addCarry(&acc, lo, i+j)
			addCarry(&acc, hi, i+j+1)
		}
	}
	c.state = acc
}

// Add performs state += other.state as plain 1024-bit addition.
func (c *Counter1024) Add(other [CounterLimbs]uint64) {
	var carry uint64
	for i := 0; i < CounterLimbs; i++ {
		c.state[i], carry = bits.Add64(c.state[i], other[i], carry)
	}
}

// Limb returns limb i of the state.
func (c *Counter1024) Limb(i int) uint64 { return c.state[i] }

// Limbs returns a copy of the state.
func (c *Counter1024) Limbs() [CounterLimbs]uint64 { return c.state }

// SetLimbs replaces the state. The increment is unaffected.
func (c *Counter1024) SetLimbs(s [CounterLimbs]uint64) { c.state = s }

// Step returns a copy of the increment.
func (c *Counter1024) Step() [CounterLimbs]uint64 { return c.increment }

// Equal reports whether both counters hold the same state. Increments are
// identical by construction and are not compared.
func (c *Counter1024) Equal(other *Counter1024) bool {
	return c.state == other.state
}

// AddSteps returns a+b mod 2¹⁰²⁴.
func AddSteps(a, b [CounterLimbs]uint64) [CounterLimbs]uint64 {
	var (
		out   [CounterLimbs]uint64
		carry uint64
	)
	for i := 0; i < CounterLimbs; i++ {
		out[i], carry = bits.Add64(a[i], b[i], carry)
	}
	return out
}
