package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ArowuTest/rng-engine/internal/models"
)

// Gorm is the Postgres-backed store. The *gorm.DB should be opened with
// TranslateError so unique violations map to ErrConflict.
type Gorm struct {
	db *gorm.DB
}

func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrConflict
	}
	return err
}

func (g *Gorm) CreateOperator(ctx context.Context, op *models.Operator) error {
	return translate(g.db.WithContext(ctx).Create(op).Error)
}

func (g *Gorm) OperatorByUsername(ctx context.Context, username string) (*models.Operator, error) {
	var op models.Operator
	if err := g.db.WithContext(ctx).Where("username = ?", username).First(&op).Error; err != nil {
		return nil, translate(err)
	}
	return &op, nil
}

func (g *Gorm) ListOperators(ctx context.Context) ([]models.Operator, error) {
	var ops []models.Operator
	if err := g.db.WithContext(ctx).Order("created_at").Find(&ops).Error; err != nil {
		return nil, err
	}
	return ops, nil
}

func (g *Gorm) CountOperators(ctx context.Context) (int64, error) {
	var n int64
	err := g.db.WithContext(ctx).Model(&models.Operator{}).Count(&n).Error
	return n, err
}

func (g *Gorm) CreateStream(ctx context.Context, s *models.Stream) error {
	return translate(g.db.WithContext(ctx).Create(s).Error)
}

func (g *Gorm) GetStream(ctx context.Context, id uuid.UUID) (*models.Stream, error) {
	var s models.Stream
	if err := g.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (g *Gorm) ListStreams(ctx context.Context) ([]models.Stream, error) {
	var out []models.Stream
	if err := g.db.WithContext(ctx).Omit("state").Order("created_at").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (g *Gorm) UpdateStream(ctx context.Context, id uuid.UUID, fn UpdateFunc) (*models.Stream, error) {
	var s models.Stream
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// SELECT ... FOR UPDATE holds the row until commit
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&s, "id = ?", id).Error; err != nil {
			return translate(err)
		}
		cp, err := fn(&s)
		if err != nil {
			return err
		}
		s.Revision++
		if err := tx.Save(&s).Error; err != nil {
			return err
		}
		if cp.Draw != nil {
			if err := tx.Create(cp.Draw).Error; err != nil {
				return translate(err)
			}
		}
		if len(cp.Children) > 0 {
			if err := tx.Create(&cp.Children).Error; err != nil {
				return translate(err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (g *Gorm) ListDraws(ctx context.Context, streamID uuid.UUID) ([]models.Draw, error) {
	var out []models.Draw
	err := g.db.WithContext(ctx).Where("stream_id = ?", streamID).Order("created_at").Find(&out).Error
	return out, err
}
