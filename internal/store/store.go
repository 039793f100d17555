// Package store persists operators, streams and draws.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/ArowuTest/rng-engine/internal/models"
)

var (
	ErrNotFound = errors.New("store: not found")
	ErrConflict = errors.New("store: already exists")
)

// Checkpoint is what a stream update writes next to the stream itself, in
// the same transaction.
type Checkpoint struct {
	Draw     *models.Draw
	Children []models.Stream
}

// UpdateFunc mutates a locked stream in place.
type UpdateFunc func(s *models.Stream) (Checkpoint, error)

// Store is implemented by the gorm store and by the in-memory store used in
// tests.
type Store interface {
	CreateOperator(ctx context.Context, op *models.Operator) error
	OperatorByUsername(ctx context.Context, username string) (*models.Operator, error)
	ListOperators(ctx context.Context) ([]models.Operator, error)
	CountOperators(ctx context.Context) (int64, error)

	CreateStream(ctx context.Context, s *models.Stream) error
	GetStream(ctx context.Context, id uuid.UUID) (*models.Stream, error)
	ListStreams(ctx context.Context) ([]models.Stream, error)

	// UpdateStream locks the stream, applies fn and saves the result. If fn
	// fails nothing is written. Concurrent updates of one stream are
	// serialized, so no two callers ever see the same engine state.
	UpdateStream(ctx context.Context, id uuid.UUID, fn UpdateFunc) (*models.Stream, error)

	ListDraws(ctx context.Context, streamID uuid.UUID) ([]models.Draw, error)
}
