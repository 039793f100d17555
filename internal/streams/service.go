package streams

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/google/uuid"

	"github.com/ArowuTest/rng-engine/internal/models"
	"github.com/ArowuTest/rng-engine/internal/rng"
	"github.com/ArowuTest/rng-engine/internal/store"
)

// Request limits.
const (
	MaxDrawCount = 10000
	MaxBytes     = 1 << 20
	MaxSplit     = 64
	MaxPickPool  = 100000
)

// Service applies engine operations to persisted streams. Every mutating
// call restores the engine, applies the operation and checkpoints the new
// state under the store's row lock.
type Service struct {
	Store store.Store
	Codec *Codec
}

// CreateParams describes a new stream.
type CreateParams struct {
	Engine    string
	Seed      *uint64
	Label     string
	CreatedBy uuid.UUID
}

func (s *Service) checkpoint(st *models.Stream, e rng.Engine) error {
	state, err := s.Codec.Encode(e)
	if err != nil {
		return err
	}
	st.State = state
	st.Fingerprint = Fingerprint(state)
	return nil
}

func closeEngine(e rng.Engine) {
	if c, ok := e.(io.Closer); ok {
		c.Close()
	}
}

// Create builds and persists a new stream.
func (s *Service) Create(ctx context.Context, p CreateParams) (*models.Stream, error) {
	kind, err := rng.ParseEngineKind(p.Engine)
	if err != nil {
		return nil, err
	}
	seeding, err := s.Codec.Seeding(kind, p.Seed, p.Label)
	if err != nil {
		return nil, err
	}
	defer seeding.Wipe()

	e, err := rng.New(kind, seeding)
	if err != nil {
		return nil, err
	}
	defer closeEngine(e)

	st := &models.Stream{
		ID:        uuid.New(),
		Engine:    string(kind),
		Label:     p.Label,
		CreatedBy: p.CreatedBy,
	}
	if err := s.checkpoint(st, e); err != nil {
		return nil, err
	}
	if err := s.Store.CreateStream(ctx, st); err != nil {
		return nil, err
	}
	log.Printf("stream %s created: engine=%s fingerprint=%s", st.ID, st.Engine, st.Fingerprint)
	return st, nil
}

// Get returns a stream without advancing it.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Stream, error) {
	return s.Store.GetStream(ctx, id)
}

// List returns all streams.
func (s *Service) List(ctx context.Context) ([]models.Stream, error) {
	return s.Store.ListStreams(ctx)
}

type opFunc func(e rng.Engine, st *models.Stream) (store.Checkpoint, error)

// engineFault turns the ErrExhausted/ErrClosed panics of CSPRNG's scalar
// draws back into errors.
func engineFault(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if e, ok := r.(error); ok && (errors.Is(e, rng.ErrExhausted) || errors.Is(e, rng.ErrClosed)) {
		*err = e
		return
	}
	panic(r)
}

func (s *Service) mutate(ctx context.Context, id uuid.UUID, op opFunc) (*models.Stream, error) {
	return s.Store.UpdateStream(ctx, id, func(st *models.Stream) (cp store.Checkpoint, err error) {
		kind, err := rng.ParseEngineKind(st.Engine)
		if err != nil {
			return cp, err
		}
		e, err := s.Codec.Decode(kind, st.State)
		if err != nil {
			return cp, err
		}
		defer closeEngine(e)
		defer engineFault(&err)

		cp, err = op(e, st)
		if err != nil {
			return cp, err
		}
		if err := s.checkpoint(st, e); err != nil {
			return cp, err
		}
		if cp.Draw != nil {
			cp.Draw.After = st.Fingerprint
		}
		return cp, nil
	})
}

// DrawParams selects raw words (Lo and Hi nil) or unbiased integers in
// [Lo, Hi].
type DrawParams struct {
	Count  int
	Lo, Hi *uint64
}

// Draw returns Count outputs from the stream.
func (s *Service) Draw(ctx context.Context, id uuid.UUID, p DrawParams) ([]uint64, *models.Stream, error) {
	if p.Count < 1 || p.Count > MaxDrawCount {
		return nil, nil, fmt.Errorf("%w: count must be in [1, %d]", ErrInvalid, MaxDrawCount)
	}
	if (p.Lo == nil) != (p.Hi == nil) {
		return nil, nil, fmt.Errorf("%w: lo and hi go together", ErrInvalid)
	}
	out := make([]uint64, 0, p.Count)
	st, err := s.mutate(ctx, id, func(e rng.Engine, _ *models.Stream) (store.Checkpoint, error) {
		out = out[:0]
		for i := 0; i < p.Count; i++ {
			if p.Lo != nil {
				out = append(out, e.Unbiased(*p.Lo, *p.Hi))
			} else {
				out = append(out, e.Uint64())
			}
		}
		return store.Checkpoint{}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return out, st, nil
}

// Bytes returns n bytes of engine output.
func (s *Service) Bytes(ctx context.Context, id uuid.UUID, n int) ([]byte, *models.Stream, error) {
	if n < 1 || n > MaxBytes {
		return nil, nil, fmt.Errorf("%w: length must be in [1, %d]", ErrInvalid, MaxBytes)
	}
	buf := make([]byte, n)
	st, err := s.mutate(ctx, id, func(e rng.Engine, _ *models.Stream) (store.Checkpoint, error) {
		_, err := e.Read(buf)
		return store.Checkpoint{}, err
	})
	if err != nil {
		return nil, nil, err
	}
	return buf, st, nil
}

// Discard skips n outputs.
func (s *Service) Discard(ctx context.Context, id uuid.UUID, n uint64) (*models.Stream, error) {
	return s.mutate(ctx, id, func(e rng.Engine, _ *models.Stream) (store.Checkpoint, error) {
		return store.Checkpoint{}, e.Discard(n)
	})
}

// Jump advances the stream by one jump, or one long jump.
func (s *Service) Jump(ctx context.Context, id uuid.UUID, long bool) (*models.Stream, error) {
	return s.mutate(ctx, id, func(e rng.Engine, _ *models.Stream) (store.Checkpoint, error) {
		if long {
			return store.Checkpoint{}, e.LongJump()
		}
		return store.Checkpoint{}, e.Jump()
	})
}

// Split creates n child streams. Child i starts i jumps ahead of the
// parent's current position; the parent itself moves n+1 jumps ahead, past
// all of its children.
func (s *Service) Split(ctx context.Context, id uuid.UUID, n int, by uuid.UUID) ([]models.Stream, error) {
	if n < 1 || n > MaxSplit {
		return nil, fmt.Errorf("%w: n must be in [1, %d]", ErrInvalid, MaxSplit)
	}
	var children []models.Stream
	_, err := s.mutate(ctx, id, func(e rng.Engine, st *models.Stream) (store.Checkpoint, error) {
		children = children[:0]
		for i := 1; i <= n; i++ {
			if err := e.Jump(); err != nil {
				return store.Checkpoint{}, err
			}
			child := models.Stream{
				ID:        uuid.New(),
				Engine:    st.Engine,
				Label:     st.Label,
				ParentID:  &st.ID,
				Jumps:     i,
				CreatedBy: by,
			}
			if err := s.checkpoint(&child, e); err != nil {
				return store.Checkpoint{}, err
			}
			children = append(children, child)
		}
		if err := e.Jump(); err != nil {
			return store.Checkpoint{}, err
		}
		return store.Checkpoint{Children: children}, nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("stream %s split into %d children", id, n)
	return children, nil
}

// Candidate is one weighted entry of a pick.
type Candidate struct {
	ID     string `json:"id"`
	Weight uint64 `json:"weight"`
}

// PickResult is a persisted weighted draw.
type PickResult struct {
	Draw    *models.Draw
	Winners []string
}

// Pick draws count distinct candidates proportional to weight and records
// the draw next to the new checkpoint.
func (s *Service) Pick(ctx context.Context, id uuid.UUID, candidates []Candidate, count int, by uuid.UUID) (*PickResult, error) {
	if len(candidates) == 0 || len(candidates) > MaxPickPool {
		return nil, fmt.Errorf("%w: pool size must be in [1, %d]", ErrInvalid, MaxPickPool)
	}
	seen := make(map[string]bool, len(candidates))
	entries := make([]rng.WeightedEntry, len(candidates))
	for i, c := range candidates {
		if seen[c.ID] {
			return nil, fmt.Errorf("%w: duplicate candidate %q", ErrInvalid, c.ID)
		}
		seen[c.ID] = true
		entries[i] = rng.WeightedEntry{ID: c.ID, Weight: c.Weight}
	}
	pool, err := rng.BuildWeighted(entries)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if count < 1 {
		return nil, fmt.Errorf("%w: count must be at least 1", ErrInvalid)
	}

	res := &PickResult{}
	_, err = s.mutate(ctx, id, func(e rng.Engine, st *models.Stream) (store.Checkpoint, error) {
		before := st.Fingerprint
		winners, err := rng.DrawMultipleUnique(e, pool, count)
		if err != nil {
			return store.Checkpoint{}, err
		}
		enc, err := json.Marshal(winners)
		if err != nil {
			return store.Checkpoint{}, err
		}
		res.Winners = winners
		res.Draw = &models.Draw{
			ID:         uuid.New(),
			StreamID:   st.ID,
			OperatorID: by,
			PoolSize:   len(pool),
			Requested:  count,
			Winners:    string(enc),
			Before:     before,
		}
		return store.Checkpoint{Draw: res.Draw}, nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("stream %s draw %s: %d of %d candidates", id, res.Draw.ID, len(res.Winners), len(pool))
	return res, nil
}

// Draws lists the weighted draws made from a stream.
func (s *Service) Draws(ctx context.Context, id uuid.UUID) ([]models.Draw, error) {
	if _, err := s.Store.GetStream(ctx, id); err != nil {
		return nil, err
	}
	return s.Store.ListDraws(ctx, id)
}
