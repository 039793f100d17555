// internal/rng/generator.go
package rng

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Engine is the output protocol shared by every generator.
type Engine interface {
	Source
	io.Reader
	Uint32() uint32
	Unbiased(lo, hi uint64) uint64
	Discard(n uint64) error
	Jump() error
	LongJump() error
}

var (
	_ Engine = (*Nasam1024)(nil)
	_ Engine = (*CSPRNG)(nil)
)

// EngineKind names a generator.
type EngineKind string

const (
	KindNasam1024 EngineKind = "nasam1024"
	KindCSPRNG    EngineKind = "csprng"
)

// ParseEngineKind validates a kind name.
func ParseEngineKind(s string) (EngineKind, error) {
	switch k := EngineKind(s); k {
	case KindNasam1024, KindCSPRNG:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEngine, s)
}

// SeedKind selects where a generator's initial state comes from.
type SeedKind int

const (
	// SeedEntropy reads the platform entropy source (or Seeding.Entropy).
	SeedEntropy SeedKind = iota
	// SeedValue expands a single 64-bit value. Nasam1024 only.
	SeedValue
	// SeedStep jumps the zero counter by a 1024-bit vector. Nasam1024 only.
	SeedStep
	// SeedKey uses an explicit key, nonce and starting block counter.
	// CSPRNG only.
	SeedKey
	// SeedBlock derives key and nonce from a 32- or 64-byte seed block.
	// CSPRNG only.
	SeedBlock
)

func (k SeedKind) String() string {
	switch k {
	case SeedEntropy:
		return "entropy"
	case SeedValue:
		return "value"
	case SeedStep:
		return "step"
	case SeedKey:
		return "key"
	case SeedBlock:
		return "block"
	}
	return fmt.Sprintf("SeedKind(%d)", int(k))
}

// Seeding is the construction mode consumed by New. Only the fields of the
// selected Kind are read. Build one with the From* helpers.
type Seeding struct {
	Kind SeedKind

	Entropy io.Reader // nil means crypto/rand

	Value uint64
	Step  [CounterLimbs]uint64

	Key     [KeySize]byte
	Nonce   [NonceSize]byte
	Counter uint64
	Block   []byte
}

// FromEntropy draws the seed from r, or from crypto/rand when r is nil.
func FromEntropy(r io.Reader) Seeding { return Seeding{Kind: SeedEntropy, Entropy: r} }

// FromValue seeds from a single 64-bit value.
func FromValue(v uint64) Seeding { return Seeding{Kind: SeedValue, Value: v} }

// FromStep seeds a Nasam1024 with an explicit 1024-bit step vector.
func FromStep(step [CounterLimbs]uint64) Seeding { return Seeding{Kind: SeedStep, Step: step} }

// FromKey seeds a CSPRNG with a key, nonce and starting block counter.
func FromKey(key [KeySize]byte, nonce [NonceSize]byte, counter uint64) Seeding {
	return Seeding{Kind: SeedKey, Key: key, Nonce: nonce, Counter: counter}
}

// FromBlock seeds a CSPRNG from a 32- or 64-byte seed block.
func FromBlock(b []byte) Seeding { return Seeding{Kind: SeedBlock, Block: b} }

// Wipe zeroes the key material held by s, including the seed block.
func (s *Seeding) Wipe() {
	wipe(s.Key[:])
	wipe(s.Nonce[:])
	wipe(s.Block)
	clear(s.Step[:])
	s.Value, s.Counter = 0, 0
}

// resolve replaces entropy seeding with the deterministic mode it reduces
// to for kind, so the same Seeding can be replayed.
func (s Seeding) resolve(kind EngineKind) (Seeding, error) {
	if s.Kind != SeedEntropy {
		return s, nil
	}
	switch kind {
	case KindNasam1024:
		var raw [CounterLimbs * 8]byte
		if err := fillEntropy(s.Entropy, raw[:]); err != nil {
			return Seeding{}, err
		}
		out := Seeding{Kind: SeedStep}
		for i := range out.Step {
			out.Step[i] = binary.LittleEndian.Uint64(raw[i*8:])
		}
		wipe(raw[:])
		return out, nil
	case KindCSPRNG:
		// bytes 0..31 key, 32..39 nonce, 40..63 unused
		var raw [BlockSize]byte
		if err := fillEntropy(s.Entropy, raw[:]); err != nil {
			return Seeding{}, err
		}
		out := Seeding{Kind: SeedKey}
		copy(out.Key[:], raw[:KeySize])
		copy(out.Nonce[:], raw[KeySize:KeySize+NonceSize])
		wipe(raw[:])
		return out, nil
	}
	return Seeding{}, fmt.Errorf("%w: %q", ErrUnknownEngine, kind)
}

// NewNasam1024 builds a Nasam1024 from entropy, a 64-bit value or a
// 1024-bit jump vector.
func NewNasam1024(s Seeding) (*Nasam1024, error) {
	s, err := s.resolve(KindNasam1024)
	if err != nil {
		return nil, err
	}
	g := newNasam1024()
	switch s.Kind {
	case SeedValue:
		g.Reseed(s.Value)
	case SeedStep:
		g.reseedStep(s.Step)
	default:
		return nil, fmt.Errorf("%w: %s for %s", ErrUnsupportedSeeding, s.Kind, KindNasam1024)
	}
	return g, nil
}

// NewCSPRNG builds a CSPRNG from entropy, explicit key material or a seed
// block. The Seeding's own copy of the key is left to the caller to Wipe.
func NewCSPRNG(s Seeding) (*CSPRNG, error) {
	entropy := s.Kind == SeedEntropy
	s, err := s.resolve(KindCSPRNG)
	if err != nil {
		return nil, err
	}
	if entropy {
		defer s.Wipe()
	}
	switch s.Kind {
	case SeedKey:
		return newCSPRNGKey(&s.Key, &s.Nonce, s.Counter)
	case SeedBlock:
		return newCSPRNGBlock(s.Block)
	}
	return nil, fmt.Errorf("%w: %s for %s", ErrUnsupportedSeeding, s.Kind, KindCSPRNG)
}

// New builds an engine of the given kind.
func New(kind EngineKind, s Seeding) (Engine, error) {
	switch kind {
	case KindNasam1024:
		g, err := NewNasam1024(s)
		if err != nil {
			return nil, err
		}
		return g, nil
	case KindCSPRNG:
		c, err := NewCSPRNG(s)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, kind)
}

// Split returns n engines over one seeding, engine i advanced by i calls to
// Jump, so their outputs do not overlap for the length of one jump.
func Split(kind EngineKind, s Seeding, n int) ([]Engine, error) {
	entropy := s.Kind == SeedEntropy
	s, err := s.resolve(kind)
	if err != nil {
		return nil, err
	}
	if entropy {
		defer s.Wipe()
	}
	engines := make([]Engine, 0, n)
	for i := 0; i < n; i++ {
		e, err := New(kind, s)
		if err != nil {
			closeAll(engines)
			return nil, err
		}
		for j := 0; j < i; j++ {
			if err := e.Jump(); err != nil {
				closeAll(append(engines, e))
				return nil, err
			}
		}
		engines = append(engines, e)
	}
	return engines, nil
}

func closeAll(engines []Engine) {
	for _, e := range engines {
		if c, ok := e.(io.Closer); ok {
			c.Close()
		}
	}
}
