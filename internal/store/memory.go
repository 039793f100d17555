package store

import (
	"bytes"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ArowuTest/rng-engine/internal/models"
)

// Memory is an in-process store. It copies records in and out, so callers
// never share state with it.
type Memory struct {
	mu        sync.Mutex
	operators []models.Operator
	streams   map[uuid.UUID]models.Stream
	order     []uuid.UUID
	draws     []models.Draw
}

func NewMemory() *Memory {
	return &Memory{streams: make(map[uuid.UUID]models.Stream)}
}

func cloneStream(s models.Stream) models.Stream {
	s.State = bytes.Clone(s.State)
	if s.ParentID != nil {
		p := *s.ParentID
		s.ParentID = &p
	}
	return s
}

func (m *Memory) CreateOperator(_ context.Context, op *models.Operator) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.operators {
		if o.ID == op.ID || o.Username == op.Username || o.Email == op.Email {
			return ErrConflict
		}
	}
	now := time.Now()
	op.CreatedAt, op.UpdatedAt = now, now
	m.operators = append(m.operators, *op)
	return nil
}

func (m *Memory) OperatorByUsername(_ context.Context, username string) (*models.Operator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.operators {
		if o.Username == username {
			return &o, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) ListOperators(context.Context) ([]models.Operator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.operators), nil
}

func (m *Memory) CountOperators(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.operators)), nil
}

func (m *Memory) insertStream(s *models.Stream) error {
	if _, ok := m.streams[s.ID]; ok {
		return ErrConflict
	}
	if s.KeyedByLabel() {
		for _, o := range m.streams {
			if o.KeyedByLabel() && o.Label == s.Label {
				return ErrConflict
			}
		}
	}
	now := time.Now()
	s.CreatedAt, s.UpdatedAt = now, now
	m.streams[s.ID] = cloneStream(*s)
	m.order = append(m.order, s.ID)
	return nil
}

func (m *Memory) CreateStream(_ context.Context, s *models.Stream) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertStream(s)
}

func (m *Memory) GetStream(_ context.Context, id uuid.UUID) (*models.Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.streams[id]
	if !ok {
		return nil, ErrNotFound
	}
	s = cloneStream(s)
	return &s, nil
}

func (m *Memory) ListStreams(context.Context) ([]models.Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Stream, 0, len(m.order))
	for _, id := range m.order {
		s := cloneStream(m.streams[id])
		s.State = nil
		out = append(out, s)
	}
	return out, nil
}

func (m *Memory) UpdateStream(_ context.Context, id uuid.UUID, fn UpdateFunc) (*models.Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.streams[id]
	if !ok {
		return nil, ErrNotFound
	}
	s := cloneStream(cur)
	cp, err := fn(&s)
	if err != nil {
		return nil, err
	}
	for _, c := range cp.Children {
		if _, ok := m.streams[c.ID]; ok || c.ID == id {
			return nil, ErrConflict
		}
	}

	s.Revision++
	s.UpdatedAt = time.Now()
	m.streams[id] = cloneStream(s)
	for i := range cp.Children {
		m.insertStream(&cp.Children[i])
	}
	if cp.Draw != nil {
		cp.Draw.CreatedAt = time.Now()
		m.draws = append(m.draws, *cp.Draw)
	}
	return &s, nil
}

func (m *Memory) ListDraws(_ context.Context, streamID uuid.UUID) ([]models.Draw, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Draw
	for _, d := range m.draws {
		if d.StreamID == streamID {
			out = append(out, d)
		}
	}
	return out, nil
}

var (
	_ Store = (*Gorm)(nil)
	_ Store = (*Memory)(nil)
)
