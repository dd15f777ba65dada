package app

import (
	"context"
	"errors"

	"github.com/cozy-creator/player-predictor/internal/config"
	"github.com/cozy-creator/player-predictor/internal/db"
	"github.com/cozy-creator/player-predictor/internal/db/drivers"
	"github.com/cozy-creator/player-predictor/internal/db/migrations"
	"github.com/cozy-creator/player-predictor/internal/db/repository"
	"github.com/cozy-creator/player-predictor/internal/mq"
	"github.com/cozy-creator/player-predictor/internal/services/history"
	"github.com/cozy-creator/player-predictor/internal/services/inference"
	"github.com/cozy-creator/player-predictor/internal/services/relay"
	"github.com/cozy-creator/player-predictor/pkg/logger"

	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

type App struct {
	mq         mq.MQ
	db         *bun.DB
	driver     drivers.Driver
	pool       *inference.Pool
	executor   relay.Executor
	config     *config.Config
	ctx        context.Context
	cancelFunc context.CancelFunc

	Logger               *zap.Logger
	Relay                *relay.Relay
	History              *history.Recorder
	PredictionRepository repository.IPredictionRepository
}

// Option funcs used to initialize the App struct
type OptionFunc func(app *App) error

func WithLogger(logger *zap.Logger) OptionFunc {
	return func(app *App) error {
		app.Logger = logger
		return nil
	}
}

// WithDB uses an already opened driver for the history store.
func WithDB(driver drivers.Driver) OptionFunc {
	return func(app *App) error {
		app.driver = driver
		app.db = driver.GetDB()
		return nil
	}
}

// WithDBInitialization opens the configured history database and applies
// pending migrations. It does nothing when history is disabled.
func WithDBInitialization() OptionFunc {
	return func(app *App) error {
		if !app.config.HistoryEnabled() {
			return nil
		}

		driver, err := db.NewConnection(app.ctx, app.config)
		if err != nil {
			return err
		}
		app.driver = driver
		app.db = driver.GetDB()

		group, err := migrations.Migrate(app.ctx, app.db)
		if err != nil {
			return err
		}
		if !group.IsZero() {
			app.Logger.Info("applied history migrations", zap.Stringer("group", group))
		}

		return nil
	}
}

// WithExecutor replaces the process pool, mostly for tests.
func WithExecutor(executor relay.Executor) OptionFunc {
	return func(app *App) error {
		app.executor = executor
		return nil
	}
}

func NewApp(cfg *config.Config, options ...OptionFunc) (*App, error) {
	l, err := logger.NewLogger(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	app := &App{
		ctx:        ctx,
		config:     cfg,
		cancelFunc: cancel,
		Logger:     l,
	}

	for _, opt := range options {
		if err := opt(app); err != nil {
			app.Close()
			return nil, err
		}
	}

	if app.executor == nil {
		app.pool = inference.NewPool(inference.NewRunner(app.Logger), cfg.Inference.MaxWorkers, cfg.Inference.Timeout)
		app.executor = app.pool
	}

	relayOptions := []relay.Option{
		relay.WithLogger(app.Logger),
		relay.WithSchema(cfg.Schema),
	}

	if app.db != nil {
		queue, err := mq.NewMQ(cfg.History.QueueSize)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.mq = queue
		app.PredictionRepository = repository.NewPredictionRepository(app.db)
		app.History = history.NewRecorder(queue, app.PredictionRepository, app.Logger)
		relayOptions = append(relayOptions, relay.WithObserver(app.History.Observe))
	}

	app.Relay = relay.New(app.executor, cfg.Inference, relayOptions...)

	return app, nil
}

// HistoryEnabled reports whether finished predictions are being stored.
func (app *App) HistoryEnabled() bool {
	return app.History != nil
}

// Close stops the process pool, then the queue and the database.
func (app *App) Close() error {
	app.cancelFunc()

	if app.pool != nil {
		app.pool.Stop()
	}

	var errs []error
	if app.mq != nil {
		errs = append(errs, app.mq.Close())
	}
	if app.driver != nil {
		errs = append(errs, app.driver.Close())
	}

	return errors.Join(errs...)
}

func (app *App) Config() *config.Config {
	return app.config
}
