package api

import (
	"net/http"

	"github.com/cozy-creator/player-predictor/internal/services/attributes"
	"github.com/cozy-creator/player-predictor/internal/types"

	"github.com/gin-gonic/gin"
)

const (
	ServiceName    = "FIFA Player Prediction API"
	ServiceVersion = "1.0.0"
)

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, types.HealthResponse{Status: "ok", Message: "Server is running"})
}

func Root(c *gin.Context) {
	c.JSON(http.StatusOK, types.ServiceDescriptor{
		Message: ServiceName,
		Version: ServiceVersion,
		Endpoints: map[string]string{
			"outfield":   "/api/predict/outfield",
			"goalkeeper": "/api/predict/goalkeeper",
			"predict":    "/api/predict",
			"health":     "/health",
		},
	})
}

type schemaResponse struct {
	PlayerType types.PlayerType   `json:"playerType"`
	MinRating  int                `json:"min_rating"`
	MaxRating  int                `json:"max_rating"`
	Groups     []attributes.Group `json:"groups"`
	Required   []string           `json:"required"`
}

// Schema describes the attribute groups the form renders for a player type.
func Schema(c *gin.Context) {
	playerType := types.PlayerType(c.Param("playerType"))
	if !playerType.Valid() {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.MsgInvalidPlayerType))
		return
	}

	c.JSON(http.StatusOK, schemaResponse{
		PlayerType: playerType,
		MinRating:  attributes.MinRating,
		MaxRating:  attributes.MaxRating,
		Groups:     attributes.Groups(playerType),
		Required:   attributes.Required(playerType),
	})
}
