package rng

import (
	"bytes"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEngineKind(t *testing.T) {
	k, err := ParseEngineKind("nasam1024")
	require.NoError(t, err)
	assert.Equal(t, KindNasam1024, k)

	k, err = ParseEngineKind("csprng")
	require.NoError(t, err)
	assert.Equal(t, KindCSPRNG, k)

	_, err = ParseEngineKind("mt19937")
	assert.ErrorIs(t, err, ErrUnknownEngine)
}

func TestNewUnknownKind(t *testing.T) {
	e, err := New("xorshift", FromValue(1))
	assert.ErrorIs(t, err, ErrUnknownEngine)
	assert.Nil(t, e)
}

func TestNewRejectsWrongSeeding(t *testing.T) {
	key, nonce := testKey(1)
	_, err := New(KindNasam1024, FromKey(key, nonce, 0))
	assert.ErrorIs(t, err, ErrUnsupportedSeeding)
	_, err = New(KindNasam1024, FromBlock(make([]byte, 32)))
	assert.ErrorIs(t, err, ErrUnsupportedSeeding)

	e, err := New(KindCSPRNG, FromValue(1))
	assert.ErrorIs(t, err, ErrUnsupportedSeeding)
	assert.Nil(t, e)
}

func TestSeedKindString(t *testing.T) {
	assert.Equal(t, "entropy", SeedEntropy.String())
	assert.Equal(t, "block", SeedBlock.String())
	assert.Equal(t, "SeedKind(42)", SeedKind(42).String())
}

func TestNasamFromStepMatchesValue(t *testing.T) {
	a, err := NewNasam1024(FromStep(expandSeed(17)))
	require.NoError(t, err)
	assert.True(t, a.Equal(seeded(t, 17)))
}

func TestNasamFromEntropyUsesStepVector(t *testing.T) {
	raw := make([]byte, CounterLimbs*8)
	for i := range raw {
		raw[i] = byte(i)
	}
	a, err := NewNasam1024(FromEntropy(bytes.NewReader(raw)))
	require.NoError(t, err)

	var step [CounterLimbs]uint64
	for i := range step {
		for j := 7; j >= 0; j-- {
			step[i] = step[i]<<8 | uint64(raw[i*8+j])
		}
	}
	b, err := NewNasam1024(FromStep(step))
	require.NoError(t, err)
	assert.True(t, a.Equal(b))
}

func TestSplitNasam(t *testing.T) {
	engines, err := Split(KindNasam1024, FromValue(5), 3)
	require.NoError(t, err)
	require.Len(t, engines, 3)

	for i, e := range engines {
		want := seeded(t, 5)
		for j := 0; j < i; j++ {
			require.NoError(t, want.Jump())
		}
		assert.True(t, want.Equal(e.(*Nasam1024)), "engine %d", i)
	}
}

func TestSplitCSPRNG(t *testing.T) {
	key, nonce := testKey(50)
	engines, err := Split(KindCSPRNG, FromKey(key, nonce, 0), 2)
	require.NoError(t, err)

	want := keyed(t, 50, 0)
	require.NoError(t, want.Jump())
	assert.True(t, want.Equal(engines[1].(*CSPRNG)))
}

func TestSplitEntropyReplaysOneSeed(t *testing.T) {
	engines, err := Split(KindCSPRNG, FromEntropy(nil), 2)
	require.NoError(t, err)

	first := engines[0].(*CSPRNG)
	require.NoError(t, first.Jump())
	assert.True(t, first.Equal(engines[1].(*CSPRNG)))
}

func TestSplitOverflowClosesEngines(t *testing.T) {
	key, nonce := testKey(51)
	engines, err := Split(KindCSPRNG, FromKey(key, nonce, ^uint64(0)-(1<<29)), 3)
	assert.ErrorIs(t, err, ErrCounterOverflow)
	assert.Nil(t, engines)
}

func TestEnginesBackMathRand(t *testing.T) {
	r := rand.New(seeded(t, 60))
	for i := 0; i < 100; i++ {
		v := r.IntN(10)
		assert.True(t, v >= 0 && v < 10)
	}
	r = rand.New(keyed(t, 60, 0))
	assert.Less(t, r.Float64(), 1.0)
}
