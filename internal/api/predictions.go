package api

import (
	"net/http"
	"strconv"

	"github.com/cozy-creator/player-predictor/internal/services/history"
	"github.com/cozy-creator/player-predictor/internal/types"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const MsgHistoryDisabled = "prediction history is disabled"

type predictionsResponse struct {
	Predictions []history.PredictionView `json:"predictions"`
	Count       int                      `json:"count"`
}

// ListPredictions returns the most recent stored predictions.
func ListPredictions(c *gin.Context) {
	app := getApp(c)
	if !app.HistoryEnabled() {
		c.JSON(http.StatusServiceUnavailable, types.NewErrorResponse(MsgHistoryDisabled))
		return
	}

	limit := history.DefaultListLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, types.NewErrorResponse("Invalid limit.").WithDetails("limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	views, err := app.History.List(c.Request.Context(), limit)
	if err != nil {
		app.Logger.Error("failed to list predictions", zap.String("request_id", requestID(c)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse("Failed to load prediction history."))
		return
	}

	c.JSON(http.StatusOK, predictionsResponse{Predictions: views, Count: len(views)})
}
