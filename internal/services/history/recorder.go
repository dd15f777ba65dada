// Package history records finished predictions. The relay publishes every
// completed call onto the in-process queue and a single consumer persists
// it, so a slow database never delays a response.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cozy-creator/player-predictor/internal/db/models"
	"github.com/cozy-creator/player-predictor/internal/db/repository"
	"github.com/cozy-creator/player-predictor/internal/mq"
	"github.com/cozy-creator/player-predictor/internal/services/relay"
	"github.com/cozy-creator/player-predictor/internal/utils/hashutil"

	"github.com/samber/lo"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 200
)

var recordedStatuses = []relay.Status{
	relay.StatusSuccess,
	relay.StatusScriptFailure,
	relay.StatusMalformedOutput,
	relay.StatusSpawnFailure,
	relay.StatusTimeout,
}

type Recorder struct {
	queue  mq.MQ
	repo   repository.IPredictionRepository
	logger *zap.Logger
}

func NewRecorder(queue mq.MQ, repo repository.IPredictionRepository, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Recorder{
		queue:  queue,
		repo:   repo,
		logger: logger.Named("history"),
	}
}

// Observe is a relay.Observer. Rejected and cancelled calls are not kept.
func (r *Recorder) Observe(ctx context.Context, outcome *relay.Outcome) {
	if !lo.Contains(recordedStatuses, outcome.Status) {
		return
	}

	record, err := models.NewPrediction(
		outcome.ID,
		outcome.PlayerType.String(),
		string(outcome.Status),
		outcome.HTTPStatus,
		outcome.ExitCode,
		hashutil.Blake3Hash(outcome.Input),
		outcome.Input,
		outcome.Body,
		outcome.Duration,
	)
	if err != nil {
		r.logger.Error("failed to build prediction record", zap.String("request_id", outcome.ID), zap.Error(err))
		return
	}

	message, err := msgpack.Marshal(record)
	if err != nil {
		r.logger.Error("failed to encode prediction record", zap.String("request_id", outcome.ID), zap.Error(err))
		return
	}

	// the request context may already be gone once the client hung up
	if err := r.queue.Publish(context.WithoutCancel(ctx), mq.TopicPredictionCompleted, message); err != nil {
		r.logger.Warn("dropped prediction record", zap.String("request_id", outcome.ID), zap.Error(err))
	}
}

// Run persists published records until ctx ends or the topic is closed.
// Records still queued when the topic closes are written first.
func (r *Recorder) Run(ctx context.Context) error {
	for {
		message, err := r.queue.Receive(ctx, mq.TopicPredictionCompleted)
		if err != nil {
			if errors.Is(err, mq.ErrTopicClosed) || errors.Is(err, mq.ErrQueueClosed) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to receive prediction record: %w", err)
		}

		r.persist(ctx, message)
	}
}

// Close stops accepting records; Run returns once the backlog is written.
func (r *Recorder) Close() error {
	err := r.queue.CloseTopic(mq.TopicPredictionCompleted)
	if errors.Is(err, mq.ErrTopicNotExists) {
		// nothing was ever published; release any receiver directly
		return r.queue.Close()
	}
	return err
}

func (r *Recorder) persist(ctx context.Context, message []byte) {
	var record models.Prediction
	if err := msgpack.Unmarshal(message, &record); err != nil {
		r.logger.Error("failed to decode prediction record", zap.Error(err))
		return
	}

	if _, err := r.repo.Create(ctx, &record); err != nil {
		r.logger.Error("failed to store prediction record",
			zap.String("request_id", record.RequestID),
			zap.Error(err),
		)
		return
	}

	r.logger.Debug("stored prediction record",
		zap.String("request_id", record.RequestID),
		zap.String("status", record.Status),
	)
}

// List returns the most recent records, newest first. limit is clamped to
// [1, MaxListLimit]; zero selects DefaultListLimit.
func (r *Recorder) List(ctx context.Context, limit int) ([]PredictionView, error) {
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}

	records, err := r.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, err
	}

	views := make([]PredictionView, 0, len(records))
	for i := range records {
		view, err := NewPredictionView(&records[i])
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}

	return views, nil
}

// Prune deletes records created before now minus olderThan.
func (r *Recorder) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("invalid retention %s", olderThan)
	}

	return r.repo.DeleteOlderThan(ctx, time.Now().Add(-olderThan))
}
