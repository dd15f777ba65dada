package logger

import (
	"github.com/cozy-creator/player-predictor/internal/config"

	"go.uber.org/zap"
)

func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	var (
		l   *zap.Logger
		err error
	)
	switch cfg.Environment {
	case config.EnvProduction:
		l, err = zap.NewProduction()
	case config.EnvTest:
		l = zap.NewNop()
	default:
		l, err = zap.NewDevelopment()
	}

	return l, err
}
