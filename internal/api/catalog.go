package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pageza/recipe-catalog/backend/internal/service"
	apperrors "github.com/pageza/recipe-catalog/backend/pkg/errors"
)

// Search returns catalog entries matching q, generating one on a miss
func (h *Handler) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusOK, []SearchResult{})
		return
	}

	if err := h.history.Record(c.Request.Context(), q); err != nil {
		h.logger.Warn("failed to record search", zap.String("query", q), zap.Error(err))
	}

	entries, err := h.resolver.Resolve(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}

	results := make([]SearchResult, 0, len(entries))
	for _, e := range entries {
		results = append(results, newSearchResult(e))
	}
	c.JSON(http.StatusOK, results)
}

// Pantry ranks entries against a comma separated ingredient list
func (h *Handler) Pantry(c *gin.Context) {
	available := service.ParsePantry(c.Query("ingredients"))

	results, err := h.matcher.Match(c.Request.Context(), available)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

// Detail returns the rendered document of one entry
func (h *Handler) Detail(c *gin.Context) {
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		respondError(c, apperrors.NewValidationError("name", "name is required"))
		return
	}

	detail, err := h.detail.Get(c.Request.Context(), name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// History lists recently searched keywords
func (h *Handler) History(c *gin.Context) {
	limit := service.DefaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 100 {
			respondError(c, apperrors.NewValidationError("limit", "limit must be between 1 and 100"))
			return
		}
		limit = n
	}

	keywords, err := h.history.Recent(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, HistoryResponse{Keywords: keywords})
}

// EncodeToken renders a shareable recipe token
func (h *Handler) EncodeToken(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindingError(err))
		return
	}

	token, err := service.EncodeToken(req.Name, *req.Cal)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, TokenResponse{Token: token})
}

// ParseToken decodes a recipe token
func (h *Handler) ParseToken(c *gin.Context) {
	name, cal, err := service.ParseToken(c.Query("token"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ParsedToken{Name: name, Cal: cal})
}
