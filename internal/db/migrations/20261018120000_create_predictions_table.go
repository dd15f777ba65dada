package migrations

import (
	"context"

	"github.com/cozy-creator/player-predictor/internal/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		if _, err := db.NewCreateTable().Model((*models.Prediction)(nil)).IfNotExists().Exec(ctx); err != nil {
			return err
		}

		if _, err := db.NewCreateIndex().
			Model((*models.Prediction)(nil)).
			Index("predictions_created_at_idx").
			Column("created_at").
			IfNotExists().
			Exec(ctx); err != nil {
			return err
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		if _, err := db.NewDropTable().Model((*models.Prediction)(nil)).IfExists().Exec(ctx); err != nil {
			return err
		}
		return nil
	})
}
