// internal/rng/errors.go
package rng

import "errors"

var (
	// ErrExhausted means the CSPRNG block counter wrapped. The key/nonce pair
	// must not produce any more output.
	ErrExhausted = errors.New("rng: key/nonce pair exhausted")

	// ErrCounterOverflow means a discard or jump would push the CSPRNG block
	// counter past 2⁶⁴. The engine is left unchanged.
	ErrCounterOverflow = errors.New("rng: block counter overflow during discard")

	// ErrClosed is returned by a CSPRNG after Close or Move.
	ErrClosed = errors.New("rng: generator closed")

	ErrEntropy            = errors.New("rng: entropy source failed")
	ErrUnsupportedSeeding = errors.New("rng: seeding mode not supported by engine")
	ErrSeedLength         = errors.New("rng: seed block must be 32 or 64 bytes")
	ErrUnknownEngine      = errors.New("rng: unknown engine kind")

	// state decoding
	ErrBadMagic        = errors.New("rng: invalid or corrupted state (bad magic)")
	ErrBadVersion      = errors.New("rng: unsupported state version")
	ErrBadIndex        = errors.New("rng: corrupted word index")
	ErrShortState      = errors.New("rng: truncated state")
	ErrBadReserved     = errors.New("rng: reserved state bytes are not zero")
	ErrMidBlockAtZero  = errors.New("rng: cannot restore mid-block state at block counter 0")
	ErrSealedStateOpen = errors.New("rng: sealed state failed authentication")
)
