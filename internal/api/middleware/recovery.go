package middleware

import (
	"fmt"
	"net/http"

	"github.com/cozy-creator/player-predictor/internal/types"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	MsgPanic         = "Something went wrong!"
	MsgInternalError = "Internal server error"
)

type panicResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Recovery answers a panicking handler with a JSON 500. The panic text is
// only shown outside production.
func Recovery(logger *zap.Logger, production bool) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("recovered from panic",
			zap.String("request_id", c.GetString(RequestIDKey)),
			zap.Any("panic", recovered),
			zap.Stack("stack"),
		)

		message := MsgInternalError
		if !production {
			message = fmt.Sprint(recovered)
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, panicResponse{Error: MsgPanic, Message: message})
	})
}

// NoRoute answers unknown paths with the same error shape as every other
// failure.
func NoRoute(c *gin.Context) {
	c.JSON(http.StatusNotFound, types.NewErrorResponse("Not found."))
}
