package api

import (
	"github.com/cozy-creator/player-predictor/internal/api/middleware"
	"github.com/cozy-creator/player-predictor/internal/app"

	"github.com/gin-gonic/gin"
)

func getApp(c *gin.Context) *app.App {
	return c.MustGet("app").(*app.App)
}

func requestID(c *gin.Context) string {
	return c.GetString(middleware.RequestIDKey)
}
