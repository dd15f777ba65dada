// Package relay turns one predict request into one inference process and
// maps the process outcome back to an HTTP answer.
package relay

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/cozy-creator/player-predictor/internal/config"
	"github.com/cozy-creator/player-predictor/internal/services/attributes"
	"github.com/cozy-creator/player-predictor/internal/services/inference"
	"github.com/cozy-creator/player-predictor/internal/types"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// Executor runs one inference command. *inference.Pool satisfies it.
type Executor interface {
	Run(ctx context.Context, command inference.Command) (*inference.Result, error)
}

// Observer is notified of every finished call, successful or not.
type Observer func(ctx context.Context, outcome *Outcome)

type Relay struct {
	executor    Executor
	interpreter string
	scripts     map[types.PlayerType]string
	schema      config.SchemaConfig
	logger      *zap.Logger
	observers   []Observer
}

type Option func(r *Relay)

func WithLogger(logger *zap.Logger) Option {
	return func(r *Relay) {
		r.logger = logger
	}
}

func WithSchema(schema config.SchemaConfig) Option {
	return func(r *Relay) {
		r.schema = schema
	}
}

func WithObserver(observer Observer) Option {
	return func(r *Relay) {
		r.observers = append(r.observers, observer)
	}
}

func New(executor Executor, cfg config.InferenceConfig, options ...Option) *Relay {
	r := &Relay{
		executor:    executor,
		interpreter: cfg.PythonBin,
		scripts: map[types.PlayerType]string{
			types.PlayerTypeOutfield:   cfg.OutfieldScript,
			types.PlayerTypeGoalkeeper: cfg.GoalkeeperScript,
		},
		logger: zap.NewNop(),
	}

	for _, opt := range options {
		opt(r)
	}

	return r
}

// Script resolves the discriminator to its inference script path.
func (r *Relay) Script(playerType types.PlayerType) (string, bool) {
	if !playerType.Valid() {
		return "", false
	}

	script, ok := r.scripts[playerType]
	return script, ok && script != ""
}

// Handle decodes a raw predict body and relays it. implied is the
// discriminator fixed by the route, empty for the generic route.
func (r *Relay) Handle(ctx context.Context, requestID string, body []byte, implied types.PlayerType) *Outcome {
	req, err := types.ParsePredictionRequest(body, implied)
	if err != nil {
		r.logger.Info("rejected prediction request", zap.String("request_id", requestID), zap.Error(err))

		var outcome *Outcome
		if errors.Is(err, types.ErrInvalidBody) {
			outcome = invalidBody(err.Error())
		} else {
			outcome = invalidPlayerType()
		}
		outcome.ID = requestID
		return outcome
	}

	return r.Predict(ctx, requestID, req)
}

// Predict runs the inference script selected by req.PlayerType with the
// attribute map on stdin. A single attempt is made; failures are reported,
// never retried.
func (r *Relay) Predict(ctx context.Context, requestID string, req *types.PredictionRequest) *Outcome {
	outcome := r.predict(ctx, requestID, req)
	outcome.ID = requestID
	outcome.PlayerType = req.PlayerType

	for _, observe := range r.observers {
		observe(ctx, outcome)
	}

	return outcome
}

func (r *Relay) predict(ctx context.Context, requestID string, req *types.PredictionRequest) *Outcome {
	log := r.logger.With(zap.String("request_id", requestID))
	log.Info("prediction request received",
		zap.Stringer("player_type", req.PlayerType),
		zap.Int("attribute_count", len(req.Attributes)),
	)

	script, ok := r.Script(req.PlayerType)
	if !ok {
		return invalidPlayerType()
	}

	attrs := req.Attributes
	if r.schema.DeriveFaceStats {
		var added []string
		attrs, added = attributes.DeriveFaceStats(req.PlayerType, attrs)
		if len(added) > 0 {
			log.Debug("derived face stats", zap.Strings("fields", added))
		}
	}
	if r.schema.Strict {
		if err := attributes.Validate(req.PlayerType, attrs); err != nil {
			log.Info("rejected player attributes", zap.Error(err))
			return invalidAttributes(err.Error())
		}
	}

	input, err := (&types.PredictionRequest{PlayerType: req.PlayerType, Attributes: attrs}).AttributesJSON()
	if err != nil {
		return invalidBody(fmt.Sprintf("failed to encode attributes: %s", err))
	}

	log.Debug("starting inference", zap.String("script", script), zap.String("interpreter", r.interpreter))

	result, err := r.executor.Run(ctx, inference.Command{
		Interpreter: r.interpreter,
		Script:      script,
		Stdin:       input,
	})

	outcome := r.classify(log, result, err)
	outcome.Script = script
	outcome.Input = input
	if result != nil {
		outcome.ExitCode = result.ExitCode
		outcome.Stdout = result.Stdout
		outcome.Stderr = result.Stderr
		outcome.Duration = result.Duration
	}

	return outcome
}

func (r *Relay) classify(log *zap.Logger, result *inference.Result, err error) *Outcome {
	var startErr *inference.StartError
	switch {
	case errors.As(err, &startErr):
		log.Error("failed to start inference process", zap.Error(err))
		return spawnFailure(startErr)
	case errors.Is(err, inference.ErrTimeout):
		log.Error("inference timed out", zap.Error(err))
		return timedOut(err)
	case errors.Is(err, inference.ErrInterrupted):
		log.Warn("inference interrupted", zap.Error(err))
		return cancelled()
	case err != nil:
		log.Error("inference failed", zap.Error(err))
		return spawnFailure(err)
	}

	log.Info("inference process exited",
		zap.Int("exit_code", result.ExitCode),
		zap.Int("stdout_bytes", len(result.Stdout)),
		zap.Duration("duration", result.Duration),
	)
	if len(result.Stderr) > 0 {
		log.Warn("inference stderr", zap.ByteString("stderr", result.Stderr))
	}

	if !result.Success() {
		return scriptFailure(result.Stderr)
	}

	prediction := bytes.TrimSpace(result.Stdout)
	if !gjson.ValidBytes(prediction) {
		log.Error("failed to parse inference output", zap.Int("stdout_bytes", len(result.Stdout)))
		return malformedOutput(result.Stdout, result.Stderr)
	}

	return success(prediction)
}
