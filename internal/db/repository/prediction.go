package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/cozy-creator/player-predictor/internal/db/models"
	"github.com/uptrace/bun"
)

type IPredictionRepository interface {
	Repository[models.Prediction]
	WithTx(tx *bun.Tx) IPredictionRepository
	WithDB(db *bun.DB) IPredictionRepository
	ListRecent(ctx context.Context, limit int) ([]models.Prediction, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type PredictionRepository struct {
	db bun.IDB
}

func NewPredictionRepository(db *bun.DB) IPredictionRepository {
	return &PredictionRepository{db: db}
}

func (r *PredictionRepository) Create(ctx context.Context, prediction *models.Prediction) (*models.Prediction, error) {
	if prediction == nil {
		return nil, fmt.Errorf("prediction model is nil")
	}

	// sqlite compares timestamps as text
	if !prediction.CreatedAt.IsZero() {
		prediction.CreatedAt = prediction.CreatedAt.UTC()
	}

	if _, err := r.db.NewInsert().Model(prediction).Exec(ctx); err != nil {
		return nil, err
	}

	return prediction, nil
}

func (r *PredictionRepository) GetByID(ctx context.Context, id string) (*models.Prediction, error) {
	var prediction models.Prediction
	if err := r.db.NewSelect().Model(&prediction).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, err
	}

	return &prediction, nil
}

func (r *PredictionRepository) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.NewDelete().Model(&models.Prediction{}).Where("id = ?", id).Exec(ctx)
	return err
}

// ListRecent returns up to limit records, newest first.
func (r *PredictionRepository) ListRecent(ctx context.Context, limit int) ([]models.Prediction, error) {
	predictions := []models.Prediction{}
	if err := r.db.NewSelect().
		Model(&predictions).
		Order("created_at DESC").
		Limit(limit).
		Scan(ctx); err != nil {
		return nil, err
	}

	return predictions, nil
}

func (r *PredictionRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.NewDelete().
		Model(&models.Prediction{}).
		Where("created_at < ?", cutoff.UTC()).
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

func (r *PredictionRepository) WithTx(tx *bun.Tx) IPredictionRepository {
	return &PredictionRepository{db: tx}
}

func (r *PredictionRepository) WithDB(db *bun.DB) IPredictionRepository {
	return &PredictionRepository{db: db}
}
