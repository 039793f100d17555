// internal/rng/nasam.go
package rng

import (
	"encoding/binary"
	"fmt"
)

// BufferWords is the number of 64-bit outputs produced per refill.
const BufferWords = 8

const bufferBytes = BufferWords * 8

// Nasam1024 is a non-cryptographic generator built on a Counter1024.
//
// Each refill advances the counter by one increment and mixes the upper 512
// bits (limbs 8..15) into eight output words. The lower half of the counter
// only extends the period and is never output.
//
// Nasam1024 is not safe for concurrent use. Use one instance per goroutine
// and separate them with Jump or LongJump. Copying is allowed with Clone.
type Nasam1024 struct {
	counter Counter1024
	buffer  [BufferWords]uint64
	cursor  int // BufferWords means empty
}

func newNasam1024() *Nasam1024 {
	return &Nasam1024{
		counter: NewCounter1024(),
		cursor:  BufferWords,
	}
}

func (g *Nasam1024) refill() {
	g.counter.Increment()
	for i := 0; i < BufferWords; i++ {
		g.buffer[i] = Mix(g.counter.state[i+BufferWords])
	}
	g.cursor = 0
}

// Reseed restarts the generator from a 64-bit seed. The seed is expanded to
// a 1024-bit jump vector and the zero counter is jumped by it.
func (g *Nasam1024) Reseed(seed uint64) {
	g.reseedStep(expandSeed(seed))
}

func (g *Nasam1024) reseedStep(step [CounterLimbs]uint64) {
	g.counter = NewCounter1024()
	g.counter.BigJump(step)
	g.buffer = [BufferWords]uint64{}
	g.cursor = BufferWords
}

// Uint64 returns the next output.
func (g *Nasam1024) Uint64() uint64 {
	if g.cursor == BufferWords {
		g.refill()
	}
	v := g.buffer[g.cursor]
	g.cursor++
	return v
}

// Uint32 returns the low 32 bits of the next output.
func (g *Nasam1024) Uint32() uint32 {
	return uint32(g.Uint64())
}

// Unbiased returns a uniform integer in [lo, hi].
func (g *Nasam1024) Unbiased(lo, hi uint64) uint64 {
	return Unbiased(g, lo, hi)
}

// Read fills p with random bytes and never fails. Output is produced in
// whole 64-byte blocks; the unused part of the last block is dropped and the
// buffer is left empty.
func (g *Nasam1024) Read(p []byte) (int, error) {
	n := len(p)
	var block [bufferBytes]byte
	for len(p) > 0 {
		g.refill()
		for i, w := range g.buffer {
			binary.LittleEndian.PutUint64(block[i*8:], w)
		}
		p = p[copy(p, block[:]):]
	}
	g.cursor = BufferWords
	return n, nil
}

// Discard skips n outputs. Whole blocks are skipped by advancing the counter
// without computing them. It never fails.
func (g *Nasam1024) Discard(n uint64) error {
	left := uint64(BufferWords - g.cursor)
	if n <= left {
		g.cursor += int(n)
		return nil
	}
	n -= left
	g.counter.Advance(n / BufferWords)
	g.refill()
	g.cursor = int(n % BufferWords)
	return nil
}

// BigJump advances the counter by step increments and empties the buffer,
// so every later output comes from the jumped state.
func (g *Nasam1024) BigJump(step [CounterLimbs]uint64) {
	g.counter.BigJump(step)
	g.cursor = BufferWords
}

func (g *Nasam1024) jumpLimb(limb int) {
	var step [CounterLimbs]uint64
	step[limb] = 1
	g.BigJump(step)
}

// Jump64 advances by 2⁶⁴ counter steps.
func (g *Nasam1024) Jump64() { g.jumpLimb(1) }

// Jump128 advances by 2¹²⁸ counter steps.
func (g *Nasam1024) Jump128() { g.jumpLimb(2) }

// Jump192 advances by 2¹⁹² counter steps.
func (g *Nasam1024) Jump192() { g.jumpLimb(3) }

// Jump256 advances by 2²⁵⁶ counter steps.
func (g *Nasam1024) Jump256() { g.jumpLimb(4) }

// Jump is Jump128. It never fails.
func (g *Nasam1024) Jump() error {
	g.Jump128()
	return nil
}

// LongJump is Jump256. It never fails.
func (g *Nasam1024) LongJump() error {
	g.Jump256()
	return nil
}

// Clone returns an independent copy that will produce the same output.
func (g *Nasam1024) Clone() *Nasam1024 {
	c := *g
	return &c
}

// Equal compares cursor, counter state and buffer contents.
func (g *Nasam1024) Equal(other *Nasam1024) bool {
	return g.cursor == other.cursor &&
		g.counter.Equal(&other.counter) &&
		g.buffer == other.buffer
}

// NasamState is the complete observable state of a Nasam1024.
type NasamState struct {
	Counter [CounterLimbs]uint64
	Buffer  [BufferWords]uint64
	Cursor  int
}

// State returns a snapshot of the generator.
func (g *Nasam1024) State() NasamState {
	return NasamState{
		Counter: g.counter.Limbs(),
		Buffer:  g.buffer,
		Cursor:  g.cursor,
	}
}

// SetState restores a snapshot taken with State.
func (g *Nasam1024) SetState(s NasamState) error {
	if s.Cursor < 0 || s.Cursor > BufferWords {
		return fmt.Errorf("%w: cursor %d", ErrBadIndex, s.Cursor)
	}
	g.counter = NewCounter1024()
	g.counter.SetLimbs(s.Counter)
	g.buffer = s.Buffer
	g.cursor = s.Cursor
	return nil
}

var nasamMagic = [8]byte{'n', 'a', 's', 'a', 'm', '1', 'k', 0}

const (
	nasamVersion   = 1
	nasamStateSize = 8 + 1 + CounterLimbs*8 + BufferWords*8 + 1
)

// MarshalBinary encodes the state as magic, version, counter limbs, buffer
// words (all little-endian) and cursor.
func (g *Nasam1024) MarshalBinary() ([]byte, error) {
	out := make([]byte, 0, nasamStateSize)
	out = append(out, nasamMagic[:]...)
	out = append(out, nasamVersion)
	for _, l := range g.counter.state {
		out = binary.LittleEndian.AppendUint64(out, l)
	}
	for _, w := range g.buffer {
		out = binary.LittleEndian.AppendUint64(out, w)
	}
	out = append(out, byte(g.cursor))
	return out, nil
}

// UnmarshalBinary restores a state written by MarshalBinary.
func (g *Nasam1024) UnmarshalBinary(data []byte) error {
	if len(data) != nasamStateSize {
		return ErrShortState
	}
	if [8]byte(data[:8]) != nasamMagic {
		return ErrBadMagic
	}
	if data[8] != nasamVersion {
		return ErrBadVersion
	}
	var s NasamState
	p := data[9:]
	for i := range s.Counter {
		s.Counter[i] = binary.LittleEndian.Uint64(p)
		p = p[8:]
	}
	for i := range s.Buffer {
		s.Buffer[i] = binary.LittleEndian.Uint64(p)
		p = p[8:]
	}
	s.Cursor = int(p[0])
	return g.SetState(s)
}
