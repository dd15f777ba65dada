package relay

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cozy-creator/player-predictor/internal/types"
)

type Status string

const (
	StatusSuccess         Status = "success"
	StatusInvalidRequest  Status = "invalid_request"
	StatusScriptFailure   Status = "script_failure"
	StatusMalformedOutput Status = "malformed_output"
	StatusSpawnFailure    Status = "spawn_failure"
	StatusTimeout         Status = "timeout"
	StatusCancelled       Status = "cancelled"
)

const (
	MsgScriptFailure     = "Failed to get prediction from model."
	MsgScriptFailureNone = "Python script exited with an error."
	MsgMalformedOutput   = "Failed to parse prediction result from model."
	MsgSpawnFailure      = "Failed to start Python process"
	MsgCancelled         = "Prediction request was cancelled."
)

// Outcome is the complete answer to one predict call: either the script's
// JSON verbatim or a structured error body.
type Outcome struct {
	ID         string
	Status     Status
	HTTPStatus int
	Body       []byte

	PlayerType types.PlayerType
	Script     string
	// Input is the attribute JSON written to the script, nil when no
	// process was started.
	Input    []byte
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	Duration time.Duration
}

func (o *Outcome) Started() bool {
	return o.Input != nil
}

func newErrorOutcome(status Status, httpStatus int, body types.ErrorResponse) *Outcome {
	encoded, err := json.Marshal(body)
	if err != nil {
		encoded = []byte(`{"error":"Something went wrong!"}`)
	}

	return &Outcome{
		Status:     status,
		HTTPStatus: httpStatus,
		Body:       encoded,
		ExitCode:   -1,
	}
}

func invalidPlayerType() *Outcome {
	return newErrorOutcome(StatusInvalidRequest, http.StatusBadRequest, types.NewErrorResponse(types.MsgInvalidPlayerType))
}

func invalidBody(details string) *Outcome {
	return newErrorOutcome(StatusInvalidRequest, http.StatusBadRequest, types.NewErrorResponse(types.MsgInvalidBody).WithDetails(details))
}

func invalidAttributes(details string) *Outcome {
	return newErrorOutcome(StatusInvalidRequest, http.StatusBadRequest, types.NewErrorResponse(types.MsgInvalidAttributes).WithDetails(details))
}

func scriptFailure(stderr []byte) *Outcome {
	details := string(stderr)
	if details == "" {
		details = MsgScriptFailureNone
	}

	return newErrorOutcome(StatusScriptFailure, http.StatusInternalServerError, types.NewErrorResponse(MsgScriptFailure).WithDetails(details))
}

func malformedOutput(stdout, stderr []byte) *Outcome {
	body := types.NewErrorResponse(MsgMalformedOutput).
		WithDetails(string(stdout)).
		WithStderrWarnings(string(stderr))

	return newErrorOutcome(StatusMalformedOutput, http.StatusInternalServerError, body)
}

func spawnFailure(err error) *Outcome {
	return newErrorOutcome(StatusSpawnFailure, http.StatusInternalServerError, types.NewErrorResponse(MsgSpawnFailure).WithDetails(err.Error()))
}

func timedOut(err error) *Outcome {
	return newErrorOutcome(StatusTimeout, http.StatusGatewayTimeout, types.NewErrorResponse(MsgScriptFailure).WithDetails(err.Error()))
}

func cancelled() *Outcome {
	return newErrorOutcome(StatusCancelled, http.StatusServiceUnavailable, types.NewErrorResponse(MsgCancelled))
}

func success(stdout []byte) *Outcome {
	return &Outcome{
		Status:     StatusSuccess,
		HTTPStatus: http.StatusOK,
		Body:       stdout,
	}
}
