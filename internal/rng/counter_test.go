package rng

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var mod1024 = new(big.Int).Lsh(big.NewInt(1), 1024)

func limbsToBig(l [CounterLimbs]uint64) *big.Int {
	v := new(big.Int)
	for i := CounterLimbs - 1; i >= 0; i-- {
		v.Lsh(v, 64)
		v.Or(v, new(big.Int).SetUint64(l[i]))
	}
	return v
}

func bigToLimbs(v *big.Int) [CounterLimbs]uint64 {
	var out [CounterLimbs]uint64
	x := new(big.Int).Mod(v, mod1024)
	mask := new(big.Int).SetUint64(math.MaxUint64)
	for i := range out {
		out[i] = new(big.Int).And(x, mask).Uint64()
		x.Rsh(x, 64)
	}
	return out
}

// reference: state + k*increment mod 2¹⁰²⁴
func refJump(c *Counter1024, k *big.Int) [CounterLimbs]uint64 {
	v := new(big.Int).Mul(limbsToBig(c.Step()), k)
	v.Add(v, limbsToBig(c.Limbs()))
	return bigToLimbs(v)
}

func testStep(seed uint64) [CounterLimbs]uint64 {
	return expandSeed(seed)
}

func TestCounterIncrementIsOdd(t *testing.T) {
	c := NewCounter1024()
	inc := c.Step()
	assert.Equal(t, uint64(goldenGamma), inc[0])
	assert.Equal(t, uint64(1), inc[0]&1, "lowest limb must be odd for full period")
	for i := 1; i < CounterLimbs; i++ {
		assert.Equal(t, Mix(inc[i-1]), inc[i])
	}
}

func TestCounterIncrementFromZero(t *testing.T) {
	c := NewCounter1024()
	c.Increment()
	assert.Equal(t, c.Step(), c.Limbs())
}

func TestAddCarryRipples(t *testing.T) {
	var x [CounterLimbs]uint64
	for i := 0; i < 5; i++ {
		x[i] = math.MaxUint64
	}
	addCarry(&x, 1, 0)
	for i := 0; i < 5; i++ {
		assert.Zero(t, x[i], "limb %d", i)
	}
	assert.Equal(t, uint64(1), x[5])

	// carry out of the top limb is dropped
	for i := range x {
		x[i] = math.MaxUint64
	}
	addCarry(&x, 1, 0)
	assert.Equal(t, [CounterLimbs]uint64{}, x)

	// index past the top is ignored
	addCarry(&x, 7, CounterLimbs)
	assert.Equal(t, [CounterLimbs]uint64{}, x)
}

func TestIncrementMatchesReference(t *testing.T) {
	c := NewCounter1024()
	c.SetLimbs(testStep(99))
	want := refJump(&c, big.NewInt(1))
	c.Increment()
	assert.Equal(t, want, c.Limbs())
}

func TestAdvanceMatchesRepeatedIncrement(t *testing.T) {
	for _, n := range []uint64{0, 1, 2, 3, 8, 17, 255} {
		a := NewCounter1024()
		a.SetLimbs(testStep(n))
		b := a
		a.Advance(n)
		for i := uint64(0); i < n; i++ {
			b.Increment()
		}
		assert.True(t, a.Equal(&b), "n=%d", n)
	}
}

func TestAdvanceMatchesReference(t *testing.T) {
	for _, n := range []uint64{2, 1 << 32, math.MaxUint64 - 1, math.MaxUint64} {
		c := NewCounter1024()
		c.SetLimbs(testStep(n))
		want := refJump(&c, new(big.Int).SetUint64(n))
		c.Advance(n)
		assert.Equal(t, want, c.Limbs(), "n=%d", n)
	}
}

func TestAdvanceWrapsAtTop(t *testing.T) {
	c := NewCounter1024()
	var full [CounterLimbs]uint64
	for i := range full {
		full[i] = math.MaxUint64
	}
	c.SetLimbs(full)
	want := refJump(&c, big.NewInt(12345))
	c.Advance(12345)
	assert.Equal(t, want, c.Limbs())
}

func TestBigJumpMatchesReference(t *testing.T) {
	for seed := uint64(0); seed < 8; seed++ {
		c := NewCounter1024()
		c.SetLimbs(testStep(seed + 100))
		step := testStep(seed)
		if seed%2 == 0 {
			step[3], step[9] = 0, 0 // zero limbs are skipped
		}
		want := refJump(&c, limbsToBig(step))
		c.BigJump(step)
		assert.Equal(t, want, c.Limbs(), "seed=%d", seed)
	}
}

func TestBigJumpSmallStepMatchesAdvance(t *testing.T) {
	a := NewCounter1024()
	b := NewCounter1024()
	a.Advance(1000)
	b.BigJump([CounterLimbs]uint64{1000})
	assert.True(t, a.Equal(&b))
}

func TestBigJumpComposes(t *testing.T) {
	var maxed [CounterLimbs]uint64
	for i := range maxed {
		maxed[i] = math.MaxUint64
	}
	pairs := [][2][CounterLimbs]uint64{
		{testStep(1), testStep(2)},
		{maxed, maxed},
		{maxed, {1}},
		{{}, testStep(3)},
	}
	for i, p := range pairs {
		a := NewCounter1024()
		a.SetLimbs(testStep(uint64(i) + 40))
		b := a

		a.BigJump(p[0])
		a.BigJump(p[1])
		b.BigJump(AddSteps(p[0], p[1]))
		assert.True(t, a.Equal(&b), "pair %d", i)
	}
}

func TestCounterAdd(t *testing.T) {
	c := NewCounter1024()
	c.SetLimbs([CounterLimbs]uint64{math.MaxUint64, math.MaxUint64})
	c.Add([CounterLimbs]uint64{1})
	assert.Equal(t, [CounterLimbs]uint64{0, 0, 1}, c.Limbs())
}

func TestCounterNoShortCycle(t *testing.T) {
	c := NewCounter1024()
	seen := make(map[[CounterLimbs]uint64]int, 20000)
	for i := 0; i < 20000; i++ {
		s := c.Limbs()
		prev, dup := seen[s]
		require.False(t, dup, "state repeated at %d (first seen %d)", i, prev)
		seen[s] = i
		c.Increment()
	}
}
