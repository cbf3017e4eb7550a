package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pageza/recipe-catalog/backend/internal/service"
)

// Handler serves the catalog endpoints
type Handler struct {
	resolver *service.SearchResolver
	matcher  *service.MatchEngine
	detail   *service.DetailService
	chef     *service.ChefService
	history  service.HistoryRecorder
	logger   *zap.Logger
}

// NewHandler creates a new Handler
func NewHandler(
	resolver *service.SearchResolver,
	matcher *service.MatchEngine,
	detail *service.DetailService,
	chef *service.ChefService,
	history service.HistoryRecorder,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		resolver: resolver,
		matcher:  matcher,
		detail:   detail,
		chef:     chef,
		history:  history,
		logger:   logger,
	}
}

// RegisterRoutes mounts the catalog routes. generationLimit guards the routes
// that may call the model; nil disables it.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, generationLimit gin.HandlerFunc) {
	limited := []gin.HandlerFunc{}
	if generationLimit != nil {
		limited = append(limited, generationLimit)
	}
	with := func(handler gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, limited...), handler)
	}

	cook := router.Group("/cook")
	{
		cook.GET("/search", with(h.Search)...)
		cook.GET("/pantry", h.Pantry)
		cook.GET("/detail", with(h.Detail)...)
		cook.GET("/history", h.History)
		cook.POST("/token", h.EncodeToken)
		cook.GET("/token/parse", h.ParseToken)
		cook.POST("/ask_chef", with(h.AskChef)...)
		cook.POST("/chef_chat", with(h.ChefChat)...)
	}
}
