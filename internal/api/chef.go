package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AskChef answers a question about a recipe
func (h *Handler) AskChef(c *gin.Context) {
	var req AskChefRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindingError(err))
		return
	}

	answer := h.chef.AskChef(c.Request.Context(), req.Recipe, req.Question)
	c.JSON(http.StatusOK, AskChefResponse{Answer: answer})
}

// ChefChat recommends dishes for what the user has at home
func (h *Handler) ChefChat(c *gin.Context) {
	var req ChefChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindingError(err))
		return
	}

	c.JSON(http.StatusOK, h.chef.Recommend(c.Request.Context(), req.Message))
}
