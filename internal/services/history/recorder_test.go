package history

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/cozy-creator/player-predictor/internal/db/drivers"
	"github.com/cozy-creator/player-predictor/internal/db/migrations"
	"github.com/cozy-creator/player-predictor/internal/db/repository"
	"github.com/cozy-creator/player-predictor/internal/mq"
	"github.com/cozy-creator/player-predictor/internal/services/relay"
	"github.com/cozy-creator/player-predictor/internal/types"
	"github.com/cozy-creator/player-predictor/internal/utils/hashutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecorder(t *testing.T, queueSize int) *Recorder {
	t.Helper()

	ctx := context.Background()
	driver, err := drivers.NewSQLiteDriver(ctx, drivers.DriverNameSQLite, "file::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { driver.Close() })

	_, err = migrations.Migrate(ctx, driver.GetDB())
	require.NoError(t, err)

	queue, err := mq.NewInMemoryMQ(queueSize)
	require.NoError(t, err)
	t.Cleanup(func() { queue.Close() })

	return NewRecorder(queue, repository.NewPredictionRepository(driver.GetDB()), nil)
}

func successOutcome(id string) *relay.Outcome {
	return &relay.Outcome{
		ID:         id,
		Status:     relay.StatusSuccess,
		HTTPStatus: http.StatusOK,
		Body:       []byte(`{"predicted_ovr":84,"predicted_position":"Winger"}`),
		PlayerType: types.PlayerTypeOutfield,
		Input:      []byte(`{"Finishing":80,"Pace":75}`),
		Duration:   250 * time.Millisecond,
	}
}

func drain(t *testing.T, r *Recorder) {
	t.Helper()

	require.NoError(t, r.Close())

	done := make(chan error, 1)
	go func() { done <- r.Run(context.Background()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("recorder did not drain")
	}
}

func TestRecorderStoresCompletedPredictions(t *testing.T) {
	r := newRecorder(t, 8)
	ctx := context.Background()

	r.Observe(ctx, successOutcome("req-1"))
	r.Observe(ctx, &relay.Outcome{
		ID:         "req-2",
		Status:     relay.StatusMalformedOutput,
		HTTPStatus: http.StatusInternalServerError,
		Body:       []byte(`{"error":"Failed to parse prediction result from model.","details":"oops"}`),
		PlayerType: types.PlayerTypeGoalkeeper,
		Input:      []byte(`{}`),
	})
	drain(t, r)

	views, err := r.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, views, 2)

	byRequest := map[string]PredictionView{}
	for _, v := range views {
		byRequest[v.RequestID] = v
	}

	first := byRequest["req-1"]
	assert.Equal(t, "success", first.Status)
	assert.Equal(t, "Outfield", first.PlayerType)
	assert.Equal(t, http.StatusOK, first.HTTPStatus)
	assert.Equal(t, int64(250), first.DurationMs)
	assert.Equal(t, hashutil.Blake3Hash([]byte(`{"Finishing":80,"Pace":75}`)), first.Fingerprint)
	assert.EqualValues(t, 75, first.Attributes["Pace"])
	assert.Equal(t, "Winger", first.Result.(map[string]any)["predicted_position"])

	assert.Equal(t, "malformed_output", byRequest["req-2"].Status)
	assert.Equal(t, "GK", byRequest["req-2"].PlayerType)
}

func TestRecorderSkipsRejectedAndCancelled(t *testing.T) {
	r := newRecorder(t, 8)
	ctx := context.Background()

	r.Observe(ctx, &relay.Outcome{ID: "req-1", Status: relay.StatusInvalidRequest, HTTPStatus: http.StatusBadRequest})
	r.Observe(ctx, &relay.Outcome{ID: "req-2", Status: relay.StatusCancelled, HTTPStatus: http.StatusServiceUnavailable, Input: []byte(`{}`)})
	drain(t, r)

	views, err := r.List(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestRecorderDropsWhenQueueIsFull(t *testing.T) {
	r := newRecorder(t, 1)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		r.Observe(ctx, successOutcome("req-1"))
		r.Observe(ctx, successOutcome("req-2"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("observe blocked on a full queue")
	}

	drain(t, r)

	views, err := r.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "req-1", views[0].RequestID)
}

func TestRecorderObservesAfterClientHangup(t *testing.T) {
	r := newRecorder(t, 4)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.Observe(ctx, successOutcome("req-1"))
	drain(t, r)

	views, err := r.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, views, 1)
}

func TestRecorderRunStopsWithContext(t *testing.T) {
	r := newRecorder(t, 4)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.NoError(t, r.Run(ctx))
}

func TestRecorderPrune(t *testing.T) {
	r := newRecorder(t, 4)
	ctx := context.Background()

	r.Observe(ctx, successOutcome("req-1"))
	drain(t, r)

	deleted, err := r.Prune(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, deleted)

	time.Sleep(10 * time.Millisecond)
	deleted, err = r.Prune(ctx, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = r.Prune(ctx, 0)
	assert.Error(t, err)
}

func TestRecorderListClampsLimit(t *testing.T) {
	r := newRecorder(t, 4)

	views, err := r.List(context.Background(), MaxListLimit+50)
	require.NoError(t, err)
	assert.Empty(t, views)
}
