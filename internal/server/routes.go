package server

import (
	"github.com/cozy-creator/player-predictor/internal/api"
	"github.com/cozy-creator/player-predictor/internal/app"

	"github.com/gin-gonic/gin"
)

func (s *Server) SetupRoutes(app *app.App) {
	s.ginEngine.GET("/", api.Root)
	s.ginEngine.GET("/health", api.Health)

	apiGroup := s.ginEngine.Group("/api")

	apiGroup.POST("/predict", handlerWrapper(app, api.Predict))
	apiGroup.POST("/predict/outfield", handlerWrapper(app, api.PredictOutfield))
	apiGroup.POST("/predict/goalkeeper", handlerWrapper(app, api.PredictGoalkeeper))

	apiGroup.GET("/schema/:playerType", api.Schema)
	apiGroup.GET("/predictions", handlerWrapper(app, api.ListPredictions))
}

func handlerWrapper(app *app.App, f func(c *gin.Context)) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Set("app", app)
		f(ctx)
	}
}
