package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/timmy/recipebox/internal/logger"
	"github.com/timmy/recipebox/internal/service"
)

// RecipeHandler handles library endpoints.
type RecipeHandler struct {
	recipes *service.RecipeService
}

// NewRecipeHandler creates a new recipe handler.
// Parameters:
//   - recipes: recipe service instance.
// Returns:
//   - *RecipeHandler: initialized handler.
func NewRecipeHandler(recipes *service.RecipeService) *RecipeHandler {
	return &RecipeHandler{recipes: recipes}
}

// ListRecipes handles GET /api/v1/recipes.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *RecipeHandler) ListRecipes(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	q := service.ListQuery{
		Page:     page,
		Limit:    limit,
		Category: c.Query("category"),
		Dietary:  c.Query("dietary"),
	}
	if raw := c.Query("favorite"); raw != "" {
		fav, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "favorite must be true or false"})
			return
		}
		q.Favorite = &fav
	}

	result, err := h.recipes.List(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// SearchRecipes handles GET /api/v1/recipes/search.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *RecipeHandler) SearchRecipes(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	mode := c.DefaultQuery("mode", "keyword")
	if mode != "keyword" && mode != "semantic" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be keyword or semantic"})
		return
	}

	results, err := h.recipes.Search(c.Request.Context(), service.SearchQuery{
		Query:    c.Query("q"),
		Limit:    limit,
		Semantic: mode == "semantic",
		Category: c.Query("category"),
		Dietary:  c.Query("dietary"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"results": results,
		"total":   len(results),
		"mode":    mode,
	})
}

// GetRecipe handles GET /api/v1/recipes/:id.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *RecipeHandler) GetRecipe(c *gin.Context) {
	recipe, err := h.recipes.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

// UpdateRecipe handles PATCH /api/v1/recipes/:id.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *RecipeHandler) UpdateRecipe(c *gin.Context) {
	var req service.RecipeUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	ctx := logger.SetRecipeID(c.Request.Context(), c.Param("id"))
	recipe, err := h.recipes.Update(ctx, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

// DeleteRecipe handles DELETE /api/v1/recipes/:id.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes 204 on success).
func (h *RecipeHandler) DeleteRecipe(c *gin.Context) {
	ctx := logger.SetRecipeID(c.Request.Context(), c.Param("id"))
	if err := h.recipes.Delete(ctx, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	logger.CtxInfo(ctx, "Recipe deleted")
	c.Status(http.StatusNoContent)
}

// ListTags handles GET /api/v1/tags.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *RecipeHandler) ListTags(c *gin.Context) {
	tags, err := h.recipes.Tags(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"tags":  tags,
		"total": len(tags),
	})
}
