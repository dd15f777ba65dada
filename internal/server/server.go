package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cozy-creator/player-predictor/internal/api/middleware"
	"github.com/cozy-creator/player-predictor/internal/config"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/logger"
	"github.com/gin-contrib/static"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const ShutdownTimeout = 3 * time.Second

type Server struct {
	listenAddr string
	ginEngine  *gin.Engine
	inner      *http.Server
	logger     *zap.Logger
}

func NewServer(cfg *config.Config, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}

	gin.SetMode(getGinMode(cfg.Environment))
	r := gin.New()

	r.Use(middleware.RequestID)

	// Setup logger middleware
	if cfg.Environment != config.EnvTest {
		r.Use(logger.SetLogger(
			logger.WithUTC(true),
			logger.WithSkipPath([]string{"/health"}),
		))
	}

	r.Use(middleware.Recovery(log, cfg.IsProduction()))

	origins := cfg.CORS.AllowedOrigins
	if len(origins) == 0 {
		origins = config.DefaultAllowedOrigins
	}

	// Setup CORS middleware
	r.Use(cors.New(
		cors.Config{
			AllowOrigins:     origins,
			AllowWildcard:    true,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           300,
		},
	))

	// Serve the built frontend when one is configured
	if cfg.PublicDir != "" {
		r.Use(static.Serve("/", static.LocalFile(cfg.PublicDir, false)))
	}

	r.NoRoute(middleware.NoRoute)

	return &Server{
		listenAddr: cfg.ListenAddr(),
		ginEngine:  r,
		logger:     log,
		inner: &http.Server{
			Handler:           r,
			Addr:              cfg.ListenAddr(),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Start serves until Stop is called. A clean shutdown returns nil.
func (s *Server) Start() error {
	s.logger.Info("server listening", zap.String("addr", s.listenAddr))

	if err := s.inner.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, ShutdownTimeout)
	defer cancel()

	s.logger.Info("stopping server")

	return s.inner.Shutdown(ctx)
}

// Handler exposes the engine for in-process requests.
func (s *Server) Handler() http.Handler {
	return s.ginEngine
}

func getGinMode(env string) string {
	switch env {
	case config.EnvDevelopment:
		return gin.DebugMode
	case config.EnvTest:
		return gin.TestMode
	default:
		return gin.ReleaseMode
	}
}
