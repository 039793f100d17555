// internal/rng/csprng.go
package rng

import (
	"crypto/subtle"
	"encoding/binary"
	"math"
	"runtime"
)

// noCopy makes go vet's copylocks check flag value copies of a CSPRNG.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// CSPRNG is a cryptographically secure generator built on ChaCha20 with a
// 256-bit key, a 64-bit nonce and a 64-bit block counter. It is not
// compatible with the RFC 8439 layout.
//
// Each refill produces one 64-byte keystream block and hands it out as eight
// little-endian words. When the block counter would wrap the generator
// fails with ErrExhausted and refuses all further output.
//
// A CSPRNG must never be copied: two copies would emit the same keystream.
// Use Move to transfer ownership and Close to erase the key material.
// It is not safe for concurrent use.
type CSPRNG struct {
	noCopy noCopy

	key     [KeySize]byte
	nonce   [NonceSize]byte
	counter uint64
	buffer  [BlockSize]byte
	index   int // BufferWords means exhausted buffer

	exhausted bool
	closed    bool
}

// newCSPRNGKey builds a generator from explicit key material and primes the
// buffer. On failure no generator is returned.
func newCSPRNGKey(key *[KeySize]byte, nonce *[NonceSize]byte, counter uint64) (*CSPRNG, error) {
	c := &CSPRNG{
		key:     *key,
		nonce:   *nonce,
		counter: counter,
		index:   BufferWords,
	}
	if err := c.refill(); err != nil {
		c.Close()
		return nil, err
	}
	runtime.SetFinalizer(c, (*CSPRNG).Close)
	return c, nil
}

// newCSPRNGBlock derives key and nonce from a 32- or 64-byte seed with one
// permutation. A 32-byte seed is zero padded. This is a domain separated
// expansion, not an entropy extractor: the seed must already be high
// entropy.
func newCSPRNGBlock(seed []byte) (*CSPRNG, error) {
	if len(seed) != 32 && len(seed) != BlockSize {
		return nil, ErrSeedLength
	}
	var tmp [BlockSize]byte
	copy(tmp[:], seed)
	key, nonce := deriveKeyNonce(&tmp)
	wipe(tmp[:])
	defer wipe(key[:])
	defer wipe(nonce[:])
	return newCSPRNGKey(&key, &nonce, 0)
}

func (c *CSPRNG) usable() error {
	switch {
	case c.closed:
		return ErrClosed
	case c.exhausted:
		return ErrExhausted
	}
	return nil
}

func (c *CSPRNG) refill() error {
	in := blockInput{key: c.key, nonce: c.nonce, counter: c.counter}
	permuteBlock(&c.buffer, &in)
	in.wipe()
	c.index = 0

	c.counter++
	if c.counter == 0 {
		c.exhausted = true
		c.index = BufferWords
		wipe(c.buffer[:])
		return ErrExhausted
	}
	return nil
}

// Next returns the next 64-bit keystream word.
func (c *CSPRNG) Next() (uint64, error) {
	if err := c.usable(); err != nil {
		return 0, err
	}
	if c.index >= BufferWords {
		if err := c.refill(); err != nil {
			return 0, err
		}
	}
	v := binary.LittleEndian.Uint64(c.buffer[c.index*8:])
	c.index++
	return v, nil
}

// Uint64 is Next for callers that treat exhaustion as fatal. It panics with
// ErrExhausted or ErrClosed.
func (c *CSPRNG) Uint64() uint64 {
	v, err := c.Next()
	if err != nil {
		panic(err)
	}
	return v
}

// Uint32 returns the low 32 bits of the next word. It panics like Uint64.
func (c *CSPRNG) Uint32() uint32 {
	return uint32(c.Uint64())
}

// Unbiased returns a uniform integer in [lo, hi]. It panics like Uint64.
func (c *CSPRNG) Unbiased(lo, hi uint64) uint64 {
	return Unbiased(c, lo, hi)
}

// Read fills p with keystream, one word per 8 bytes. A partial tail
// consumes a whole word.
func (c *CSPRNG) Read(p []byte) (int, error) {
	n := 0
	var word [8]byte
	for n < len(p) {
		v, err := c.Next()
		if err != nil {
			return n, err
		}
		binary.LittleEndian.PutUint64(word[:], v)
		n += copy(p[n:], word[:])
	}
	wipe(word[:])
	return n, nil
}

// Discard skips n words without generating the whole blocks in between.
// If the skip would run the block counter past its last block, Discard
// returns ErrCounterOverflow and leaves the generator untouched.
func (c *CSPRNG) Discard(n uint64) error {
	if err := c.usable(); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	left := uint64(BufferWords - c.index)
	if n < left {
		c.index += int(n)
		return nil
	}

	n -= left
	full, rem := n/BufferWords, n%BufferWords
	if c.counter > math.MaxUint64-full {
		return ErrCounterOverflow
	}
	if rem != 0 && c.counter+full == math.MaxUint64 {
		return ErrCounterOverflow
	}

	c.index = BufferWords
	c.counter += full
	if rem != 0 {
		if err := c.refill(); err != nil {
			return err
		}
		c.index = int(rem)
	}
	return nil
}

// Jump skips 2³² words, giving up to 2³² disjoint streams per key/nonce.
func (c *CSPRNG) Jump() error {
	return c.Discard(1 << 32)
}

// LongJump skips 2⁴⁸ words, giving up to 2¹⁶ disjoint streams.
func (c *CSPRNG) LongJump() error {
	return c.Discard(1 << 48)
}

// Reseed replaces key and nonce, resets the block counter and refills.
func (c *CSPRNG) Reseed(key *[KeySize]byte, nonce *[NonceSize]byte) error {
	if c.closed {
		return ErrClosed
	}
	c.erase()
	c.key = *key
	c.nonce = *nonce
	c.exhausted = false
	return c.refill()
}

// Equal reports whether both generators will produce the same output. The
// key is compared in constant time. The buffer only counts while it still
// holds unread words.
func (c *CSPRNG) Equal(other *CSPRNG) bool {
	keyEq := subtle.ConstantTimeCompare(c.key[:], other.key[:])
	stateEq := c.nonce == other.nonce &&
		c.counter == other.counter &&
		c.index == other.index &&
		c.exhausted == other.exhausted &&
		c.closed == other.closed
	if keyEq != 1 || !stateEq {
		return false
	}
	if c.index < BufferWords {
		return subtle.ConstantTimeCompare(c.buffer[:], other.buffer[:]) == 1
	}
	return true
}

// Move returns a new owner of the stream and closes c.
func (c *CSPRNG) Move() *CSPRNG {
	m := &CSPRNG{
		key:       c.key,
		nonce:     c.nonce,
		counter:   c.counter,
		buffer:    c.buffer,
		index:     c.index,
		exhausted: c.exhausted,
		closed:    c.closed,
	}
	c.Close()
	runtime.SetFinalizer(m, (*CSPRNG).Close)
	return m
}

func (c *CSPRNG) erase() {
	wipe(c.key[:])
	wipe(c.nonce[:])
	wipe(c.buffer[:])
	c.counter = 0
	c.index = BufferWords
}

// Close erases key, nonce and buffer. Further use returns ErrClosed.
func (c *CSPRNG) Close() error {
	c.erase()
	c.closed = true
	return nil
}
