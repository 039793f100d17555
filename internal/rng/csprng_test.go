package rng

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"math"
	"math/bits"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// keystream for the all-zero key and nonce, blocks 0 and 1
const (
	zeroBlock0 = "76b8e0ada0f13d90405d6ae55386bd28bdd219b8a08ded1aa836efcc8b770dc7" +
		"da41597c5157488d7724e03fb8d84a376a43b8f41518a11cc387b669b2ee6586"
	zeroBlock1 = "9f07e7be5551387a98ba977c732d080dcb0f29a048e3656912c6533e32ee7aed" +
		"29b721769ce64e43d57133b074d839d531ed1f28510afb45ace10a1f4b794d6f"
)

// refBlock is a plain ChaCha20 block function in Bernstein's layout:
// words 12..13 hold the 64-bit counter and 14..15 the nonce.
func refBlock(key [KeySize]byte, nonce [NonceSize]byte, counter uint64) [BlockSize]byte {
	var s [16]uint32
	s[0], s[1], s[2], s[3] = 0x61707865, 0x3320646e, 0x79622d32, 0x6b206574
	for i := 0; i < 8; i++ {
		s[4+i] = binary.LittleEndian.Uint32(key[i*4:])
	}
	s[12], s[13] = uint32(counter), uint32(counter>>32)
	s[14] = binary.LittleEndian.Uint32(nonce[:4])
	s[15] = binary.LittleEndian.Uint32(nonce[4:])

	x := s
	qr := func(a, b, c, d int) {
		x[a] += x[b]
		x[d] = bits.RotateLeft32(x[d]^x[a], 16)
		x[c] += x[d]
		x[b] = bits.RotateLeft32(x[b]^x[c], 12)
		x[a] += x[b]
		x[d] = bits.RotateLeft32(x[d]^x[a], 8)
		x[c] += x[d]
		x[b] = bits.RotateLeft32(x[b]^x[c], 7)
	}
	for r := 0; r < 10; r++ {
		qr(0, 4, 8, 12)
		qr(1, 5, 9, 13)
		qr(2, 6, 10, 14)
		qr(3, 7, 11, 15)
		qr(0, 5, 10, 15)
		qr(1, 6, 11, 12)
		qr(2, 7, 8, 13)
		qr(3, 4, 9, 14)
	}
	var out [BlockSize]byte
	for i := range x {
		binary.LittleEndian.PutUint32(out[i*4:], x[i]+s[i])
	}
	return out
}

func testKey(b byte) (key [KeySize]byte, nonce [NonceSize]byte) {
	for i := range key {
		key[i] = b + byte(i)
	}
	for i := range nonce {
		nonce[i] = ^b - byte(i)
	}
	return key, nonce
}

func keyed(t *testing.T, b byte, counter uint64) *CSPRNG {
	t.Helper()
	key, nonce := testKey(b)
	c, err := NewCSPRNG(FromKey(key, nonce, counter))
	require.NoError(t, err)
	return c
}

func TestCSPRNGZeroKeyKeystream(t *testing.T) {
	c, err := NewCSPRNG(FromKey([KeySize]byte{}, [NonceSize]byte{}, 0))
	require.NoError(t, err)

	buf := make([]byte, 2*BlockSize)
	n, err := c.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, len(buf), n)
	assert.Equal(t, zeroBlock0, hex.EncodeToString(buf[:BlockSize]))
	assert.Equal(t, zeroBlock1, hex.EncodeToString(buf[BlockSize:]))
}

func TestPermuteBlockMatchesReference(t *testing.T) {
	counters := []uint64{0, 1, 0xffffffff, 1 << 32, 1<<32 + 5, 0xdeadbeefcafebabe, math.MaxUint64}
	for i, ctr := range counters {
		key, nonce := testKey(byte(i * 17))
		in := blockInput{key: key, nonce: nonce, counter: ctr}
		var out [BlockSize]byte
		permuteBlock(&out, &in)
		assert.Equal(t, refBlock(key, nonce, ctr), out, "counter %#x", ctr)
	}
}

func TestCSPRNGWordsAreLittleEndianKeystream(t *testing.T) {
	c := keyed(t, 1, 40)
	key, nonce := testKey(1)
	block := refBlock(key, nonce, 40)
	for i := 0; i < BufferWords; i++ {
		assert.Equal(t, binary.LittleEndian.Uint64(block[i*8:]), c.Uint64())
	}
	block = refBlock(key, nonce, 41)
	assert.Equal(t, binary.LittleEndian.Uint32(block[:4]), c.Uint32())
}

func TestCSPRNGReadTail(t *testing.T) {
	a, b := keyed(t, 2, 0), keyed(t, 2, 0)
	buf := make([]byte, 13)
	_, err := a.Read(buf)
	require.NoError(t, err)

	var want []byte
	want = binary.LittleEndian.AppendUint64(want, b.Uint64())
	want = binary.LittleEndian.AppendUint64(want, b.Uint64())
	assert.Equal(t, want[:13], buf)
	assert.Equal(t, b.Uint64(), a.Uint64())
}

func TestCSPRNGDiscardMatchesIteration(t *testing.T) {
	counts := []uint64{0, 1, 2, 7, 8, 9, 15, 16, 17, 31, 64, 65, 200, 1001}
	for pre := 0; pre <= BufferWords; pre++ {
		for _, n := range counts {
			a, b := keyed(t, 3, 0), keyed(t, 3, 0)
			for i := 0; i < pre; i++ {
				a.Uint64()
				b.Uint64()
			}
			require.NoError(t, a.Discard(n))
			for i := uint64(0); i < n; i++ {
				b.Uint64()
			}
			require.Equal(t, b.Uint64(), a.Uint64(), "pre=%d n=%d", pre, n)
			require.Equal(t, b.Uint64(), a.Uint64(), "pre=%d n=%d (second)", pre, n)
		}
	}
}

func TestCSPRNGDiscardWholeBlocksKeepsState(t *testing.T) {
	a, b := keyed(t, 3, 0), keyed(t, 3, 0)
	a.Uint64()
	b.Uint64()
	require.NoError(t, a.Discard(7+16))
	for i := 0; i < 7+16; i++ {
		b.Uint64()
	}
	assert.True(t, a.Equal(b))
}

func TestCSPRNGJumpSkipsBlocks(t *testing.T) {
	// a fresh generator has read block 0 into its buffer
	a := keyed(t, 4, 0)
	require.NoError(t, a.Jump())
	b := keyed(t, 4, 1<<29) // 2³² words = 2²⁹ blocks
	assert.Equal(t, b.Uint64(), a.Uint64())

	a = keyed(t, 4, 0)
	require.NoError(t, a.LongJump())
	b = keyed(t, 4, 1<<45)
	assert.Equal(t, b.Uint64(), a.Uint64())
}

func TestCSPRNGDiscardOverflow(t *testing.T) {
	a := keyed(t, 5, math.MaxUint64-2)
	b := keyed(t, 5, math.MaxUint64-2)

	assert.ErrorIs(t, a.Discard(8*4), ErrCounterOverflow)
	assert.ErrorIs(t, a.Discard(math.MaxUint64), ErrCounterOverflow)
	// a remainder would need the never-generated last block
	assert.ErrorIs(t, a.Discard(8+8+1), ErrCounterOverflow)
	assert.True(t, a.Equal(b), "failed discard must not change state")

	require.NoError(t, a.Discard(8+8))
	_, err := a.Next()
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestCSPRNGExhaustion(t *testing.T) {
	c := keyed(t, 6, math.MaxUint64-1)
	for i := 0; i < BufferWords; i++ {
		_, err := c.Next()
		require.NoError(t, err)
	}
	_, err := c.Next()
	assert.ErrorIs(t, err, ErrExhausted)

	// the generator stays dead
	_, err = c.Next()
	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, c.Discard(1), ErrExhausted)
	_, err = c.Read(make([]byte, 4))
	assert.ErrorIs(t, err, ErrExhausted)
	assert.PanicsWithValue(t, ErrExhausted, func() { c.Uint64() })

	_, err = restoreStateOf(c)
	assert.ErrorIs(t, err, ErrExhausted)
}

func restoreStateOf(c *CSPRNG) (*CSPRNG, error) {
	rec, err := c.marshalState()
	if err != nil {
		return nil, err
	}
	return restoreState(rec)
}

func TestCSPRNGConstructionAtLastBlockFails(t *testing.T) {
	key, nonce := testKey(7)
	c, err := NewCSPRNG(FromKey(key, nonce, math.MaxUint64))
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Nil(t, c)
}

func TestCSPRNGEqualIgnoresStaleBuffer(t *testing.T) {
	a, b := keyed(t, 8, 0), keyed(t, 8, 0)
	require.NoError(t, a.Discard(BufferWords))
	require.NoError(t, b.Discard(BufferWords))
	require.Equal(t, BufferWords, a.index)

	b.buffer[0] ^= 0xff
	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Uint64(), b.Uint64())

	// with unread words the buffer counts
	b.buffer[9] ^= 0xff
	assert.False(t, a.Equal(b))
}

func TestCSPRNGEqualDifferentKeys(t *testing.T) {
	a, b := keyed(t, 9, 0), keyed(t, 9, 0)
	assert.True(t, a.Equal(b))

	b.key[31] ^= 1
	b.buffer = a.buffer
	assert.False(t, a.Equal(b))
}

func TestCSPRNGCloseWipes(t *testing.T) {
	c := keyed(t, 10, 3)
	require.NoError(t, c.Close())
	assert.Equal(t, [KeySize]byte{}, c.key)
	assert.Equal(t, [NonceSize]byte{}, c.nonce)
	assert.Equal(t, [BlockSize]byte{}, c.buffer)

	_, err := c.Next()
	assert.ErrorIs(t, err, ErrClosed)
	key, nonce := testKey(1)
	assert.ErrorIs(t, c.Reseed(&key, &nonce), ErrClosed)
}

func TestCSPRNGMove(t *testing.T) {
	a, ref := keyed(t, 11, 0), keyed(t, 11, 0)
	a.Uint64()
	ref.Uint64()

	m := a.Move()
	assert.Equal(t, ref.Uint64(), m.Uint64())
	_, err := a.Next()
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, [KeySize]byte{}, a.key)
}

func TestCSPRNGReseed(t *testing.T) {
	c := keyed(t, 12, 99)
	c.Uint64()
	key, nonce := testKey(13)
	require.NoError(t, c.Reseed(&key, &nonce))
	assert.True(t, c.Equal(keyed(t, 13, 0)))
}

func TestCSPRNGFromBlock(t *testing.T) {
	seed := make([]byte, 64)
	for i := range seed {
		seed[i] = byte(i * 3)
	}
	a, err := NewCSPRNG(FromBlock(seed))
	require.NoError(t, err)
	b, err := NewCSPRNG(FromBlock(seed))
	require.NoError(t, err)
	assert.True(t, a.Equal(b))

	// derived key is the first 40 bytes of one permuted block
	var in blockInput
	copy(in.key[:], seed[:32])
	for i := range in.nonce {
		in.nonce[i] = seed[32+i] ^ seed[48+i]
	}
	in.counter = binary.LittleEndian.Uint64(seed[40:]) ^ binary.LittleEndian.Uint64(seed[56:])
	out := refBlock(in.key, in.nonce, in.counter)
	var key [KeySize]byte
	var nonce [NonceSize]byte
	copy(key[:], out[:32])
	copy(nonce[:], out[32:40])
	c, err := NewCSPRNG(FromKey(key, nonce, 0))
	require.NoError(t, err)
	assert.True(t, a.Equal(c))

	seed[63] ^= 1
	d, err := NewCSPRNG(FromBlock(seed))
	require.NoError(t, err)
	assert.False(t, a.Equal(d))
}

func TestCSPRNGFromShortBlockIsZeroPadded(t *testing.T) {
	short := bytes.Repeat([]byte{0xa5}, 32)
	padded := append(bytes.Repeat([]byte{0xa5}, 32), make([]byte, 32)...)

	a, err := NewCSPRNG(FromBlock(short))
	require.NoError(t, err)
	b, err := NewCSPRNG(FromBlock(padded))
	require.NoError(t, err)
	assert.True(t, a.Equal(b))

	_, err = NewCSPRNG(FromBlock(make([]byte, 33)))
	assert.ErrorIs(t, err, ErrSeedLength)
}

func TestCSPRNGFromEntropy(t *testing.T) {
	raw := make([]byte, 64)
	for i := range raw {
		raw[i] = byte(200 - i)
	}
	a, err := NewCSPRNG(FromEntropy(bytes.NewReader(raw)))
	require.NoError(t, err)

	var key [KeySize]byte
	var nonce [NonceSize]byte
	copy(key[:], raw[:32])
	copy(nonce[:], raw[32:40])
	b, err := NewCSPRNG(FromKey(key, nonce, 0))
	require.NoError(t, err)
	assert.True(t, a.Equal(b))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("no entropy") }

func TestCSPRNGEntropyFailure(t *testing.T) {
	c, err := NewCSPRNG(FromEntropy(failingReader{}))
	assert.ErrorIs(t, err, ErrEntropy)
	assert.Nil(t, c)

	c, err = NewCSPRNG(FromEntropy(bytes.NewReader(make([]byte, 10))))
	assert.ErrorIs(t, err, ErrEntropy)
	assert.Nil(t, c)
}

func TestCSPRNGDefaultEntropy(t *testing.T) {
	a, err := NewCSPRNG(FromEntropy(nil))
	require.NoError(t, err)
	b, err := NewCSPRNG(FromEntropy(nil))
	require.NoError(t, err)
	assert.False(t, a.Equal(b))
	assert.NotEqual(t, a.Uint64(), b.Uint64())
}

func TestCSPRNGUnsupportedSeeding(t *testing.T) {
	_, err := NewCSPRNG(FromValue(1))
	assert.ErrorIs(t, err, ErrUnsupportedSeeding)
	_, err = NewCSPRNG(FromStep([CounterLimbs]uint64{1}))
	assert.ErrorIs(t, err, ErrUnsupportedSeeding)
}
