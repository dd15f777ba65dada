package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/cozy-creator/player-predictor/internal/config"
	"github.com/cozy-creator/player-predictor/internal/services/inference"
	"github.com/cozy-creator/player-predictor/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingExecutor struct {
	mu       sync.Mutex
	commands []inference.Command
	result   *inference.Result
	err      error
}

func (e *recordingExecutor) Run(_ context.Context, command inference.Command) (*inference.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.commands = append(e.commands, command)
	return e.result, e.err
}

func inferenceConfig(outfield, goalkeeper string) config.InferenceConfig {
	return config.InferenceConfig{
		PythonBin:        "sh",
		OutfieldScript:   outfield,
		GoalkeeperScript: goalkeeper,
		MaxWorkers:       2,
	}
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("inference scripts are exercised through sh")
	}

	path := filepath.Join(t.TempDir(), "predict.sh")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o755))
	return path
}

// relayWithScript wires a real pool so the script is actually executed.
func relayWithScript(t *testing.T, body string, options ...Option) *Relay {
	t.Helper()

	script := writeScript(t, body)
	pool := inference.NewPool(inference.NewRunner(nil), 2, 0)
	t.Cleanup(pool.Stop)

	return New(pool, inferenceConfig(script, script), options...)
}

func decodeBody(t *testing.T, outcome *Outcome) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(outcome.Body, &body))
	return body
}

func TestInvalidPlayerTypeNeverStartsProcess(t *testing.T) {
	executor := &recordingExecutor{}
	r := New(executor, inferenceConfig("/outfield.py", "/gk.py"))

	for _, body := range []string{
		`{"playerType":"Unknown","Pace":50}`,
		`{"Pace":50}`,
		`{"playerType":""}`,
		``,
	} {
		outcome := r.Handle(context.Background(), "req-1", []byte(body), "")

		assert.Equal(t, http.StatusBadRequest, outcome.HTTPStatus, body)
		assert.Equal(t, StatusInvalidRequest, outcome.Status)
		assert.JSONEq(t, `{"error":"Invalid playerType provided."}`, string(outcome.Body))
		assert.False(t, outcome.Started())
	}

	assert.Empty(t, executor.commands)
}

func TestInvalidBodyNeverStartsProcess(t *testing.T) {
	executor := &recordingExecutor{}
	r := New(executor, inferenceConfig("/outfield.py", "/gk.py"))

	outcome := r.Handle(context.Background(), "req-1", []byte(`["Pace"]`), types.PlayerTypeOutfield)

	assert.Equal(t, http.StatusBadRequest, outcome.HTTPStatus)
	assert.Equal(t, types.MsgInvalidBody, decodeBody(t, outcome)["error"])
	assert.Empty(t, executor.commands)
}

func TestOutfieldScriptReceivesAttributesWithoutDiscriminator(t *testing.T) {
	executor := &recordingExecutor{result: &inference.Result{Stdout: []byte(`{"predicted_ovr":81}`)}}
	r := New(executor, inferenceConfig("/scripts/outfield.py", "/scripts/gk.py"))

	outcome := r.Handle(context.Background(), "req-1", []byte(`{"playerType":"Outfield","Finishing":80,"Pace":75}`), "")

	require.Len(t, executor.commands, 1)
	command := executor.commands[0]
	assert.Equal(t, "sh", command.Interpreter)
	assert.Equal(t, "/scripts/outfield.py", command.Script)
	assert.Equal(t, `{"Finishing":80,"Pace":75}`, string(command.Stdin))

	assert.Equal(t, http.StatusOK, outcome.HTTPStatus)
	assert.Equal(t, types.PlayerTypeOutfield, outcome.PlayerType)
	assert.Equal(t, "/scripts/outfield.py", outcome.Script)
}

func TestGoalkeeperRouteSelectsGoalkeeperScript(t *testing.T) {
	executor := &recordingExecutor{result: &inference.Result{Stdout: []byte(`{}`)}}
	r := New(executor, inferenceConfig("/scripts/outfield.py", "/scripts/gk.py"))

	r.Handle(context.Background(), "req-1", []byte(`{"GK Diving":70}`), types.PlayerTypeGoalkeeper)

	require.Len(t, executor.commands, 1)
	assert.Equal(t, "/scripts/gk.py", executor.commands[0].Script)
	assert.Equal(t, `{"GK Diving":70}`, string(executor.commands[0].Stdin))
}

func TestSuccessPassesOutputThrough(t *testing.T) {
	prediction := `{"predicted_ovr":84,"predicted_position":"Winger","predicted_league_tier":"Mid Tier","similar_players":[{"Name":"A","OVR":84}]}`
	r := relayWithScript(t, "cat >/dev/null\necho 'UserWarning: feature names' >&2\nprintf '%s\\n' '"+prediction+"'\n")

	outcome := r.Handle(context.Background(), "req-1", []byte(`{"playerType":"Outfield","Pace":75}`), "")

	assert.Equal(t, http.StatusOK, outcome.HTTPStatus)
	assert.Equal(t, StatusSuccess, outcome.Status)
	assert.Equal(t, prediction, string(outcome.Body))
	assert.Equal(t, "UserWarning: feature names\n", string(outcome.Stderr))
}

func TestMalformedOutput(t *testing.T) {
	r := relayWithScript(t, "printf 'not json at all'\nprintf 'careful' >&2\n")

	outcome := r.Handle(context.Background(), "req-1", []byte(`{"playerType":"GK"}`), "")

	assert.Equal(t, http.StatusInternalServerError, outcome.HTTPStatus)
	assert.Equal(t, StatusMalformedOutput, outcome.Status)

	body := decodeBody(t, outcome)
	assert.Equal(t, MsgMalformedOutput, body["error"])
	assert.Equal(t, "not json at all", body["details"])
	assert.Equal(t, "careful", body["stderr_warnings"])
}

func TestEmptyOutputIsMalformed(t *testing.T) {
	r := relayWithScript(t, "exit 0\n")

	outcome := r.Handle(context.Background(), "req-1", []byte(`{"playerType":"GK"}`), "")

	assert.Equal(t, StatusMalformedOutput, outcome.Status)
	assert.Equal(t, "", decodeBody(t, outcome)["details"])
}

func TestScriptFailure(t *testing.T) {
	r := relayWithScript(t, "printf 'model file missing' >&2\nexit 1\n")

	outcome := r.Handle(context.Background(), "req-1", []byte(`{"playerType":"Outfield"}`), "")

	assert.Equal(t, http.StatusInternalServerError, outcome.HTTPStatus)
	assert.Equal(t, StatusScriptFailure, outcome.Status)
	assert.Equal(t, 1, outcome.ExitCode)
	assert.JSONEq(t, `{"error":"Failed to get prediction from model.","details":"model file missing"}`, string(outcome.Body))
}

func TestScriptFailureIgnoresValidStdout(t *testing.T) {
	r := relayWithScript(t, "echo '{\"predicted_ovr\":90}'\nexit 2\n")

	outcome := r.Handle(context.Background(), "req-1", []byte(`{"playerType":"Outfield"}`), "")

	assert.Equal(t, http.StatusInternalServerError, outcome.HTTPStatus)
	assert.JSONEq(t, `{"error":"Failed to get prediction from model.","details":"Python script exited with an error."}`, string(outcome.Body))
}

func TestSpawnFailure(t *testing.T) {
	pool := inference.NewPool(inference.NewRunner(nil), 1, 0)
	defer pool.Stop()

	cfg := inferenceConfig("/outfield.py", "/gk.py")
	cfg.PythonBin = filepath.Join(t.TempDir(), "missing-python")
	r := New(pool, cfg)

	outcome := r.Handle(context.Background(), "req-1", []byte(`{"playerType":"Outfield"}`), "")

	assert.Equal(t, http.StatusInternalServerError, outcome.HTTPStatus)
	assert.Equal(t, StatusSpawnFailure, outcome.Status)

	body := decodeBody(t, outcome)
	assert.Equal(t, MsgSpawnFailure, body["error"])
	assert.NotEmpty(t, body["details"])
}

func TestTimeout(t *testing.T) {
	script := writeScript(t, "sleep 5\n")
	pool := inference.NewPool(inference.NewRunner(nil), 1, 100*time.Millisecond)
	defer pool.Stop()

	r := New(pool, inferenceConfig(script, script))
	outcome := r.Handle(context.Background(), "req-1", []byte(`{"playerType":"GK"}`), "")

	assert.Equal(t, http.StatusGatewayTimeout, outcome.HTTPStatus)
	assert.Equal(t, StatusTimeout, outcome.Status)
}

func TestStrictSchemaRejectsBeforeSpawning(t *testing.T) {
	executor := &recordingExecutor{}
	r := New(executor, inferenceConfig("/outfield.py", "/gk.py"), WithSchema(config.SchemaConfig{Strict: true}))

	outcome := r.Handle(context.Background(), "req-1", []byte(`{"playerType":"GK","GK Diving":120}`), "")

	assert.Equal(t, http.StatusBadRequest, outcome.HTTPStatus)
	body := decodeBody(t, outcome)
	assert.Equal(t, types.MsgInvalidAttributes, body["error"])
	assert.Contains(t, body["details"], "GK Diving must be between 1 and 99")
	assert.Empty(t, executor.commands)
}

func TestDeriveFaceStatsAddsMissingFields(t *testing.T) {
	executor := &recordingExecutor{result: &inference.Result{Stdout: []byte(`{}`)}}
	r := New(executor, inferenceConfig("/outfield.py", "/gk.py"), WithSchema(config.SchemaConfig{DeriveFaceStats: true}))

	r.Handle(context.Background(), "req-1", []byte(`{"playerType":"Outfield","Acceleration":70,"Sprint Speed":75}`), "")

	require.Len(t, executor.commands, 1)
	assert.JSONEq(t, `{"Acceleration":70,"Sprint Speed":75,"PAC":73}`, string(executor.commands[0].Stdin))
}

func TestObserverSeesEveryOutcome(t *testing.T) {
	executor := &recordingExecutor{result: &inference.Result{ExitCode: 1}}

	var seen []*Outcome
	r := New(executor, inferenceConfig("/outfield.py", "/gk.py"), WithObserver(func(_ context.Context, o *Outcome) {
		seen = append(seen, o)
	}))

	r.Handle(context.Background(), "req-1", []byte(`{"playerType":"Outfield","Pace":1}`), "")
	r.Handle(context.Background(), "req-2", []byte(`{"playerType":"Nope"}`), "")

	require.Len(t, seen, 1)
	assert.Equal(t, "req-1", seen[0].ID)
	assert.Equal(t, StatusScriptFailure, seen[0].Status)
	assert.Equal(t, `{"Pace":1}`, string(seen[0].Input))
}

func TestCancelledRequest(t *testing.T) {
	executor := &recordingExecutor{err: inference.ErrInterrupted}
	r := New(executor, inferenceConfig("/outfield.py", "/gk.py"))

	outcome := r.Handle(context.Background(), "req-1", []byte(`{"playerType":"Outfield"}`), "")
	assert.Equal(t, StatusCancelled, outcome.Status)
}
