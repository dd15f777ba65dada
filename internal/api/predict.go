package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/cozy-creator/player-predictor/internal/types"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const jsonContentType = "application/json; charset=utf-8"

// Predict relays a body that carries its own playerType.
func Predict(c *gin.Context) {
	relayPrediction(c, "")
}

func PredictOutfield(c *gin.Context) {
	relayPrediction(c, types.PlayerTypeOutfield)
}

func PredictGoalkeeper(c *gin.Context) {
	relayPrediction(c, types.PlayerTypeGoalkeeper)
}

func relayPrediction(c *gin.Context, implied types.PlayerType) {
	app := getApp(c)

	body, err := readJSONBody(c, app.Config().Server.MaxBodyBytes)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			app.Logger.Info("rejected oversized request body", zap.String("request_id", requestID(c)), zap.Int64("limit", tooLarge.Limit))
			c.JSON(http.StatusRequestEntityTooLarge, types.NewErrorResponse(types.MsgBodyTooLarge))
			return
		}

		app.Logger.Warn("failed to read request body", zap.String("request_id", requestID(c)), zap.Error(err))
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.MsgInvalidBody).WithDetails(err.Error()))
		return
	}

	outcome := app.Relay.Handle(c.Request.Context(), requestID(c), body, implied)
	c.Data(outcome.HTTPStatus, jsonContentType, outcome.Body)
}

// readJSONBody reads at most limit bytes. Bodies that are not
// application/json are not parsed and read as empty.
func readJSONBody(c *gin.Context, limit int64) ([]byte, error) {
	if c.ContentType() != gin.MIMEJSON {
		return nil, nil
	}

	return io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, limit))
}
