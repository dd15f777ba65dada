package run

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/cozy-creator/player-predictor/internal/app"
	"github.com/cozy-creator/player-predictor/internal/config"
	"github.com/cozy-creator/player-predictor/internal/server"
	"github.com/cozy-creator/player-predictor/tools"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var Cmd = &cobra.Command{
	Use:   "run",
	Short: "Start the prediction server",
	RunE:  runApp,
}

func init() {
	flags := Cmd.Flags()

	flags.Int("port", config.DefaultPort, "Port to run the server on")
	flags.String("host", config.DefaultHost, "Host to run the server on")
	flags.String("public-dir", "", "Path of the built frontend to serve. Relative paths are relative to the current working directory")
	flags.Int64("max-body-bytes", config.DefaultMaxBodyBytes, "Largest accepted request body in bytes")
	flags.StringSlice("allowed-origins", config.DefaultAllowedOrigins, "Origins allowed to call the API. Supports one * wildcard per origin")

	flags.String("python-bin", tools.DefaultPythonCommand(), "Python interpreter used to run the inference scripts")
	flags.String("outfield-script", config.DefaultOutfieldScript, "Inference script for outfield players")
	flags.String("goalkeeper-script", config.DefaultGoalkeeperScript, "Inference script for goalkeepers")
	flags.Int("max-workers", config.DefaultMaxWorkers, "Maximum number of inference processes running at once. 0 starts one per request without a limit")
	flags.Duration("inference-timeout", 0, "Kill an inference process after this long. 0 waits until it exits")

	flags.Bool("strict-schema", false, "Reject requests that do not carry every attribute in range")
	flags.Bool("derive-face-stats", false, "Fill missing face stats from their attribute groups")
	flags.Int("history-queue-size", config.DefaultHistoryQueueSize, "Finished predictions buffered for the history recorder")

	bindFlags(flags.Lookup)
}

func bindFlags(lookup func(name string) *pflag.Flag) {
	viper.BindPFlag("port", lookup("port"))
	viper.BindPFlag("host", lookup("host"))
	viper.BindPFlag("public_dir", lookup("public-dir"))
	viper.BindPFlag("server.max_body_bytes", lookup("max-body-bytes"))
	viper.BindPFlag("cors.allowed_origins", lookup("allowed-origins"))

	viper.BindPFlag("inference.python_bin", lookup("python-bin"))
	viper.BindPFlag("inference.outfield_script", lookup("outfield-script"))
	viper.BindPFlag("inference.goalkeeper_script", lookup("goalkeeper-script"))
	viper.BindPFlag("inference.max_workers", lookup("max-workers"))
	viper.BindPFlag("inference.timeout", lookup("inference-timeout"))

	viper.BindPFlag("schema.strict", lookup("strict-schema"))
	viper.BindPFlag("schema.derive_face_stats", lookup("derive-face-stats"))
	viper.BindPFlag("history.queue_size", lookup("history-queue-size"))
}

func runApp(cmd *cobra.Command, _ []string) error {
	cfg := config.GetConfig()

	app, err := app.NewApp(cfg, app.WithDBInitialization())
	if err != nil {
		return err
	}
	defer app.Close()
	defer app.Logger.Sync() //nolint:errcheck

	checkInference(app.Logger, cfg.Inference)

	srv, err := server.NewServer(cfg, app.Logger)
	if err != nil {
		return err
	}
	srv.SetupRoutes(app)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(srv.Start)

	if app.HistoryEnabled() {
		app.Logger.Info("prediction history enabled")
		g.Go(func() error {
			// drains until the topic is closed below, not on signal
			return app.History.Run(context.WithoutCancel(gctx))
		})
	}

	g.Go(func() error {
		<-gctx.Done()

		err := srv.Stop(context.Background())
		if app.HistoryEnabled() {
			if closeErr := app.History.Close(); closeErr != nil {
				app.Logger.Error("failed to close history recorder", zap.Error(closeErr))
			}
		}
		return err
	})

	if err := g.Wait(); err != nil {
		app.Logger.Error("server stopped with error", zap.Error(err))
		return err
	}

	app.Logger.Info("server stopped")
	return nil
}

// checkInference reports missing interpreters or scripts at startup. Requests
// still run and surface the failure to the caller.
func checkInference(logger *zap.Logger, cfg config.InferenceConfig) {
	version, err := tools.GetPythonVersion(cfg.PythonBin)
	if err != nil {
		logger.Warn("python interpreter not available", zap.String("python_bin", cfg.PythonBin), zap.Error(err))
	} else {
		logger.Info("using python interpreter", zap.String("python_bin", cfg.PythonBin), zap.String("version", version))
	}

	for _, script := range []string{cfg.OutfieldScript, cfg.GoalkeeperScript} {
		if _, err := os.Stat(script); err != nil {
			logger.Warn("inference script not found", zap.String("script", script), zap.Error(err))
		}
	}
}
