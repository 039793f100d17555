// internal/rng/entropy.go
package rng

import (
	"crypto/rand"
	"fmt"
	"io"
)

// fillEntropy fills b from r, or from the platform source when r is nil.
// crypto/rand uses getrandom(2), BCryptGenRandom or the platform
// equivalent.
func fillEntropy(r io.Reader, b []byte) error {
	if r == nil {
		r = rand.Reader
	}
	if _, err := io.ReadFull(r, b); err != nil {
		wipe(b)
		return fmt.Errorf("%w: %w", ErrEntropy, err)
	}
	return nil
}
