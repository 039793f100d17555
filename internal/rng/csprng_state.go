// internal/rng/csprng_state.go
package rng

import (
	"encoding/binary"
	"fmt"
	"runtime"

	"golang.org/x/crypto/chacha20poly1305"
)

// The raw CSPRNG record holds the key in the clear. It is never handed out
// of the package: callers get it sealed with XChaCha20-Poly1305.
//
//	8 bytes  magic "csprng\0\0"
//	1 byte   version
//	32 bytes key
//	8 bytes  nonce
//	8 bytes  block counter, little-endian
//	1 byte   word index (0..8)
//	7 bytes  reserved, zero
const (
	csprngVersion   = 1
	csprngStateSize = 8 + 1 + KeySize + NonceSize + 8 + 1 + 7
)

var csprngMagic = [8]byte{'c', 's', 'p', 'r', 'n', 'g', 0, 0}

// additional data bound into every sealed record
var sealAD = []byte("rng-engine csprng state v1")

func (c *CSPRNG) marshalState() ([]byte, error) {
	if err := c.usable(); err != nil {
		return nil, err
	}
	out := make([]byte, 0, csprngStateSize)
	out = append(out, csprngMagic[:]...)
	out = append(out, csprngVersion)
	out = append(out, c.key[:]...)
	out = append(out, c.nonce[:]...)
	out = binary.LittleEndian.AppendUint64(out, c.counter)
	out = append(out, byte(c.index))
	out = append(out, make([]byte, 7)...)
	return out, nil
}

// restoreState rebuilds a generator from a raw record. A partially read
// buffer is regenerated from the previous block.
func restoreState(data []byte) (*CSPRNG, error) {
	if len(data) < 8 || [8]byte(data[:8]) != csprngMagic {
		return nil, ErrBadMagic
	}
	if len(data) < 9 {
		return nil, ErrShortState
	}
	if data[8] != csprngVersion {
		return nil, ErrBadVersion
	}
	if len(data) != csprngStateSize {
		return nil, ErrShortState
	}
	if !allZero(data[csprngStateSize-7:]) {
		return nil, ErrBadReserved
	}

	p := data[9:]
	c := &CSPRNG{}
	copy(c.key[:], p[:KeySize])
	p = p[KeySize:]
	copy(c.nonce[:], p[:NonceSize])
	p = p[NonceSize:]
	c.counter = binary.LittleEndian.Uint64(p)
	idx := int(p[8])

	if idx > BufferWords {
		c.Close()
		return nil, fmt.Errorf("%w: %d", ErrBadIndex, idx)
	}
	c.index = idx
	if idx < BufferWords {
		if c.counter == 0 {
			c.Close()
			return nil, ErrMidBlockAtZero
		}
		saved := c.counter
		c.counter--
		if err := c.refill(); err != nil {
			c.Close()
			return nil, err
		}
		c.counter = saved
		c.index = idx
	}
	return c, nil
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

// Seal returns the generator state encrypted and authenticated under a
// 32-byte key. The output is a random 24-byte nonce followed by the
// ciphertext.
func (c *CSPRNG) Seal(key []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("rng: seal: %w", err)
	}
	rec, err := c.marshalState()
	if err != nil {
		return nil, err
	}
	defer wipe(rec)

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(rec)+aead.Overhead())
	if err := fillEntropy(nil, nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, rec, sealAD), nil
}

// OpenCSPRNG restores a generator from the output of Seal.
func OpenCSPRNG(key, sealed []byte) (*CSPRNG, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("rng: open: %w", err)
	}
	if len(sealed) < aead.NonceSize()+aead.Overhead() {
		return nil, ErrShortState
	}
	nonce, ct := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	rec, err := aead.Open(nil, nonce, ct, sealAD)
	if err != nil {
		return nil, ErrSealedStateOpen
	}
	defer wipe(rec)

	c, err := restoreState(rec)
	if err != nil {
		return nil, err
	}
	runtime.SetFinalizer(c, (*CSPRNG).Close)
	return c, nil
}
