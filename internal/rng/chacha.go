// internal/rng/chacha.go
package rng

import (
	"encoding/binary"

	"golang.org/x/crypto/chacha20"
)

const (
	KeySize   = chacha20.KeySize // 32
	NonceSize = 8
	BlockSize = 64
)

// blockInput is the input of one ChaCha20 block: key, 64-bit nonce and
// 64-bit block counter, in Bernstein's original layout.
type blockInput struct {
	key     [KeySize]byte
	nonce   [NonceSize]byte
	counter uint64
}

func (in *blockInput) wipe() {
	wipe(in.key[:])
	wipe(in.nonce[:])
	in.counter = 0
}

// permuteBlock writes the 64-byte ChaCha20 keystream block for in to out.
//
// x/crypto/chacha20 implements the RFC 8439 layout (32-bit counter in state
// word 12, 96-bit nonce in words 13..15). Putting the high half of the
// 64-bit counter in the first nonce word and the low half in the counter
// reproduces the original layout (words 12..13 counter, 14..15 nonce). Only
// one block is generated per cipher, so the 32-bit counter never wraps.
func permuteBlock(out *[BlockSize]byte, in *blockInput) {
	var ietfNonce [chacha20.NonceSize]byte
	binary.LittleEndian.PutUint32(ietfNonce[:4], uint32(in.counter>>32))
	copy(ietfNonce[4:], in.nonce[:])

	c, err := chacha20.NewUnauthenticatedCipher(in.key[:], ietfNonce[:])
	if err != nil {
		// key and nonce sizes are fixed above
		panic("rng: " + err.Error())
	}
	c.SetCounter(uint32(in.counter))

	clear(out[:])
	c.XORKeyStream(out[:], out[:])
	wipe(ietfNonce[:])
}

// deriveKeyNonce runs one permutation keyed by a 64-byte seed block and
// takes the key from bytes 0..31 and the nonce from bytes 32..39 of the
// output. Every seed byte feeds the permutation input: 0..31 are the key,
// 32..39 and 48..55 fold into the nonce, 40..47 and 56..63 into the counter.
func deriveKeyNonce(seed *[BlockSize]byte) (key [KeySize]byte, nonce [NonceSize]byte) {
	var in blockInput
	copy(in.key[:], seed[:32])
	for i := 0; i < NonceSize; i++ {
		in.nonce[i] = seed[32+i] ^ seed[48+i]
	}
	in.counter = binary.LittleEndian.Uint64(seed[40:]) ^ binary.LittleEndian.Uint64(seed[56:])

	var out [BlockSize]byte
	permuteBlock(&out, &in)
	in.wipe()

	copy(key[:], out[:KeySize])
	copy(nonce[:], out[KeySize:KeySize+NonceSize])
	wipe(out[:])
	return key, nonce
}
