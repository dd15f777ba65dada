package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// PlayerType is the discriminator that selects the inference script.
type PlayerType string

const (
	PlayerTypeOutfield   PlayerType = "Outfield"
	PlayerTypeGoalkeeper PlayerType = "GK"
)

// PlayerTypeField is the request body key carrying the discriminator.
const PlayerTypeField = "playerType"

func (p PlayerType) Valid() bool {
	return p == PlayerTypeOutfield || p == PlayerTypeGoalkeeper
}

func (p PlayerType) String() string {
	return string(p)
}

const (
	MsgInvalidPlayerType = "Invalid playerType provided."
	MsgInvalidBody       = "Invalid request body."
	MsgInvalidAttributes = "Invalid player attributes."
	MsgBodyTooLarge      = "Request body too large."
)

var (
	ErrInvalidPlayerType = errors.New("invalid player type")
	ErrInvalidBody       = errors.New("invalid request body")
)

// PredictionRequest is one decoded predict call. Attributes holds every body
// field except the discriminator, with each value kept as raw JSON so it is
// forwarded to the script unchanged.
type PredictionRequest struct {
	PlayerType PlayerType
	Attributes map[string]json.RawMessage
}

// ParsePredictionRequest decodes a predict body. implied is the discriminator
// fixed by the route, or empty for the generic route. A body discriminator
// that disagrees with implied is rejected.
func ParsePredictionRequest(body []byte, implied PlayerType) (*PredictionRequest, error) {
	fields := map[string]json.RawMessage{}
	if len(bytes.TrimSpace(body)) > 0 {
		fields = nil
		if err := json.Unmarshal(body, &fields); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidBody, err)
		}
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: body must be a JSON object", ErrInvalidBody)
	}

	playerType := implied
	if raw, ok := fields[PlayerTypeField]; ok {
		var declared string
		if err := json.Unmarshal(raw, &declared); err != nil {
			return nil, ErrInvalidPlayerType
		}
		if implied != "" && PlayerType(declared) != implied {
			return nil, ErrInvalidPlayerType
		}
		playerType = PlayerType(declared)
		delete(fields, PlayerTypeField)
	}

	if !playerType.Valid() {
		return nil, ErrInvalidPlayerType
	}

	return &PredictionRequest{PlayerType: playerType, Attributes: fields}, nil
}

// AttributesJSON serializes the attribute map for the script's stdin.
func (r *PredictionRequest) AttributesJSON() ([]byte, error) {
	if r.Attributes == nil {
		return []byte("{}"), nil
	}

	return json.Marshal(r.Attributes)
}

type ErrorResponse struct {
	Error          string  `json:"error"`
	Details        *string `json:"details,omitempty"`
	StderrWarnings *string `json:"stderr_warnings,omitempty"`
}

func NewErrorResponse(message string) ErrorResponse {
	return ErrorResponse{Error: message}
}

func (e ErrorResponse) WithDetails(details string) ErrorResponse {
	e.Details = &details
	return e
}

func (e ErrorResponse) WithStderrWarnings(warnings string) ErrorResponse {
	e.StderrWarnings = &warnings
	return e
}

type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type ServiceDescriptor struct {
	Message   string            `json:"message"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}
