package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/recipebox/internal/service"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	recipes *service.RecipeService
	imports *service.ImportService
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(recipes *service.RecipeService, imports *service.ImportService) *HealthHandler {
	return &HealthHandler{recipes: recipes, imports: imports}
}

// Health returns the health status of the service.
// A failing database check reports 503.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx := c.Request.Context()
	count, err := h.recipes.Stats(ctx)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "database unreachable"})
		return
	}
	jobs, err := h.imports.Stats(ctx)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "database unreachable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"recipes":         count,
		"jobs":            jobs,
		"semanticSearch":  h.recipes.SemanticEnabled(),
		"processorActive": h.imports.Processing(),
	})
}
