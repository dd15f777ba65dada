package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/vmihailenco/msgpack/v5"
)

// Prediction is one finished relay call. Attributes and Result hold the
// msgpack encoding of the forwarded attribute map and of the response body.
type Prediction struct {
	bun.BaseModel `bun:"table:predictions,alias:p"`

	ID          uuid.UUID `bun:",type:uuid,pk" msgpack:"id"`
	RequestID   string    `bun:",notnull" msgpack:"request_id"`
	PlayerType  string    `bun:",notnull" msgpack:"player_type"`
	Status      string    `bun:",notnull" msgpack:"status"`
	HTTPStatus  int       `bun:"http_status,notnull" msgpack:"http_status"`
	ExitCode    int       `bun:",notnull" msgpack:"exit_code"`
	Fingerprint string    `bun:",notnull" msgpack:"fingerprint"`
	Attributes  []byte    `bun:",notnull" msgpack:"attributes"`
	Result      []byte    `msgpack:"result"`
	DurationMs  int64     `bun:",notnull" msgpack:"duration_ms"`
	CreatedAt   time.Time `bun:",nullzero,notnull,default:current_timestamp" msgpack:"created_at"`
}

// NewPrediction builds a record from the JSON attribute payload and the JSON
// (or raw text) response body.
func NewPrediction(requestID, playerType, status string, httpStatus, exitCode int, fingerprint string, attributesJSON, body []byte, duration time.Duration) (*Prediction, error) {
	attributes, err := encodeJSON(attributesJSON)
	if err != nil {
		return nil, err
	}

	result, err := encodeJSON(body)
	if err != nil {
		return nil, err
	}

	return &Prediction{
		ID:          uuid.Must(uuid.NewRandom()),
		RequestID:   requestID,
		PlayerType:  playerType,
		Status:      status,
		HTTPStatus:  httpStatus,
		ExitCode:    exitCode,
		Fingerprint: fingerprint,
		Attributes:  attributes,
		Result:      result,
		DurationMs:  duration.Milliseconds(),
		CreatedAt:   time.Now().UTC(),
	}, nil
}

func (p *Prediction) DecodeAttributes() (map[string]any, error) {
	var out map[string]any
	if len(p.Attributes) == 0 {
		return out, nil
	}

	if err := msgpack.Unmarshal(p.Attributes, &out); err != nil {
		return nil, err
	}

	return out, nil
}

func (p *Prediction) DecodeResult() (any, error) {
	var out any
	if len(p.Result) == 0 {
		return nil, nil
	}

	if err := msgpack.Unmarshal(p.Result, &out); err != nil {
		return nil, err
	}

	return out, nil
}

// encodeJSON converts a JSON document to msgpack. Text that is not JSON is
// stored as a msgpack string.
func encodeJSON(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		value = string(data)
	}

	return msgpack.Marshal(value)
}
