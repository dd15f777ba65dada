package history

import (
	"time"

	"github.com/cozy-creator/player-predictor/internal/db/models"
)

// PredictionView is the JSON shape of a stored record.
type PredictionView struct {
	ID          string         `json:"id"`
	RequestID   string         `json:"request_id"`
	PlayerType  string         `json:"player_type"`
	Status      string         `json:"status"`
	HTTPStatus  int            `json:"http_status"`
	ExitCode    int            `json:"exit_code"`
	Fingerprint string         `json:"fingerprint"`
	Attributes  map[string]any `json:"attributes"`
	Result      any            `json:"result"`
	DurationMs  int64          `json:"duration_ms"`
	CreatedAt   time.Time      `json:"created_at"`
}

func NewPredictionView(record *models.Prediction) (PredictionView, error) {
	attributes, err := record.DecodeAttributes()
	if err != nil {
		return PredictionView{}, err
	}

	result, err := record.DecodeResult()
	if err != nil {
		return PredictionView{}, err
	}

	return PredictionView{
		ID:          record.ID.String(),
		RequestID:   record.RequestID,
		PlayerType:  record.PlayerType,
		Status:      record.Status,
		HTTPStatus:  record.HTTPStatus,
		ExitCode:    record.ExitCode,
		Fingerprint: record.Fingerprint,
		Attributes:  attributes,
		Result:      result,
		DurationMs:  record.DurationMs,
		CreatedAt:   record.CreatedAt,
	}, nil
}
