// internal/rng/wipe.go
package rng

import "runtime"

// wipe zeroes b. The KeepAlive keeps b reachable past the store so the
// compiler treats the writes as observable.
//
// Go has no volatile store. The current gc toolchain does not remove clear
// on memory that stays reachable, but the language does not promise it, and
// copies the runtime made earlier (stack growth, values passed by copy) are
// out of reach.
func wipe(b []byte) {
	clear(b)
	runtime.KeepAlive(b)
}
