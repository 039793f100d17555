package main

import (
	"encoding/hex"
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/ArowuTest/rng-engine/internal/rng"
)

// Job describes one output run. It can be loaded from TOML:
//
//	engine     = "csprng"
//	key        = "000102...1f"   # 64 hex chars, csprng only
//	nonce      = "0001020304050607"
//	counter    = 0
//	discard    = 1000
//	jumps      = 2
//	long_jumps = 0
//	bytes      = 0               # 0 streams until the reader goes away
type Job struct {
	Engine    string  `toml:"engine"`
	Seed      *uint64 `toml:"seed"`
	Key       string  `toml:"key"`
	Nonce     string  `toml:"nonce"`
	Counter   uint64  `toml:"counter"`
	Discard   uint64  `toml:"discard"`
	Jumps     int     `toml:"jumps"`
	LongJumps int     `toml:"long_jumps"`
	Bytes     int64   `toml:"bytes"`
}

func loadJob(path string) (Job, error) {
	job := Job{Engine: string(rng.KindNasam1024)}
	md, err := toml.DecodeFile(path, &job)
	if err != nil {
		return job, err
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		return job, fmt.Errorf("%s: unknown key %q", path, undec[0].String())
	}
	return job, nil
}

// seeding picks the construction mode: explicit key, 64-bit seed, or
// entropy.
func (j *Job) seeding() (rng.Seeding, error) {
	if j.Key == "" {
		if j.Nonce != "" {
			return rng.Seeding{}, fmt.Errorf("nonce given without key")
		}
		if j.Seed != nil {
			return rng.FromValue(*j.Seed), nil
		}
		return rng.FromEntropy(nil), nil
	}
	if j.Seed != nil {
		return rng.Seeding{}, fmt.Errorf("seed and key are exclusive")
	}

	var key [rng.KeySize]byte
	var nonce [rng.NonceSize]byte
	if err := decodeHex(key[:], j.Key); err != nil {
		return rng.Seeding{}, fmt.Errorf("key: %w", err)
	}
	if j.Nonce != "" {
		if err := decodeHex(nonce[:], j.Nonce); err != nil {
			return rng.Seeding{}, fmt.Errorf("nonce: %w", err)
		}
	}
	return rng.FromKey(key, nonce, j.Counter), nil
}

func decodeHex(dst []byte, s string) error {
	if hex.DecodedLen(len(s)) != len(dst) {
		return fmt.Errorf("want %d hex chars, got %d", 2*len(dst), len(s))
	}
	_, err := hex.Decode(dst, []byte(s))
	return err
}

// engine builds the engine and positions it.
func (j *Job) engine() (rng.Engine, error) {
	kind, err := rng.ParseEngineKind(j.Engine)
	if err != nil {
		return nil, err
	}
	s, err := j.seeding()
	if err != nil {
		return nil, err
	}
	defer s.Wipe()

	e, err := rng.New(kind, s)
	if err != nil {
		return nil, err
	}
	if err := e.Discard(j.Discard); err != nil {
		return nil, err
	}
	for i := 0; i < j.Jumps; i++ {
		if err := e.Jump(); err != nil {
			return nil, err
		}
	}
	for i := 0; i < j.LongJumps; i++ {
		if err := e.LongJump(); err != nil {
			return nil, err
		}
	}
	return e, nil
}
