package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pageza/recipe-catalog/backend/config"
	"github.com/pageza/recipe-catalog/backend/internal/api"
	"github.com/pageza/recipe-catalog/backend/internal/metrics"
	"github.com/pageza/recipe-catalog/backend/internal/middleware"
	"github.com/pageza/recipe-catalog/backend/internal/service"
)

// Dependencies are the external resources the server is built on
type Dependencies struct {
	DB      *gorm.DB
	Redis   *redis.Client
	Content service.ContentStore
	LLM     service.Completer
	Metrics *metrics.Collector
}

// Server represents the HTTP server
type Server struct {
	router *gin.Engine
	http   *http.Server
	logger *zap.Logger
}

// New wires the catalog services and routes
func New(cfg *config.Config, deps Dependencies, logger *zap.Logger) *Server {
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		requestid.New(),
		middleware.Recovery(logger),
		middleware.Logger(logger),
		middleware.CORS(cfg.Server.AllowedOrigins),
		deps.Metrics.Middleware(),
		middleware.ErrorHandler(),
	)

	store := service.NewCatalogStore(deps.DB, cfg.Catalog.SearchLimit)

	var locker service.Locker = service.NoopLocker{}
	var generationLimit gin.HandlerFunc
	if deps.Redis != nil {
		locker = service.NewRedisLocker(deps.Redis, "catalog", logger)
		if cfg.RateLimit.Enabled {
			generationLimit = middleware.NewGenerationRateLimiter(deps.Redis, cfg.RateLimit.Requests, cfg.RateLimit.Window, logger).Middleware()
		}
	}

	synth := service.NewSynthesizer(deps.LLM, deps.Content, store, logger, deps.Metrics)
	resolver := service.NewSearchResolver(store, synth, locker, service.ResolverConfig{
		MaxQueryRunes:    cfg.Catalog.MaxQueryRunes,
		GenerationWait:   cfg.Catalog.GenerationWait,
		LockTTL:          cfg.Catalog.LockTTL,
		LockPollInterval: cfg.Catalog.LockPollInterval,
	}, logger, deps.Metrics)

	handler := api.NewHandler(
		resolver,
		service.NewMatchEngine(store, cfg.Catalog.MaxMissing, cfg.Catalog.PantryLimit, logger, deps.Metrics),
		service.NewDetailService(store, deps.Content, deps.LLM, logger),
		service.NewChefService(deps.LLM, store, resolver, logger),
		service.NewHistoryService(deps.DB),
		logger,
	)

	router.GET("/health", api.HealthCheck(deps.DB, deps.Redis))
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}
	if cfg.Content.Provider == "local" {
		router.Static("/data/HowToCook/dishes", cfg.Content.Root)
	}
	handler.RegisterRoutes(router.Group("/api/v1"), generationLimit)

	return &Server{
		router: router,
		logger: logger,
		http: &http.Server{
			Addr:         cfg.Server.Addr(),
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}
}

// Router exposes the engine for tests
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	s.logger.Info("starting server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
