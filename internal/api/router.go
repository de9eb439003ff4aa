package api

import (
	"github.com/gin-gonic/gin"
	"github.com/timmy/recipebox/internal/api/handler"
	"github.com/timmy/recipebox/internal/api/middleware"
	"github.com/timmy/recipebox/internal/service"
)

// RouterConfig holds the services and settings the router is built from.
type RouterConfig struct {
	Recipes *service.RecipeService
	Imports *service.ImportService
	Mode    string
	CORS    middleware.CORSConfig

	// MediaDir is served at MediaPath when images are stored on local disk.
	MediaDir  string
	MediaPath string
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(cfg RouterConfig) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(cfg.CORS))

	healthHandler := handler.NewHealthHandler(cfg.Recipes, cfg.Imports)
	recipeHandler := handler.NewRecipeHandler(cfg.Recipes)
	importHandler := handler.NewImportHandler(cfg.Imports)

	r.GET("/health", healthHandler.Health)

	if cfg.MediaDir != "" && cfg.MediaPath != "" {
		r.Static(cfg.MediaPath, cfg.MediaDir)
	}

	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", healthHandler.Health)

		// Import
		v1.POST("/recipes/import", importHandler.ImportURL)
		v1.POST("/recipes/import/bulk", importHandler.ImportBulk)
		v1.GET("/recipes/import/jobs", importHandler.ListJobs)
		v1.POST("/recipes/import/jobs/process", importHandler.ProcessJobs)

		// Library
		v1.GET("/recipes", recipeHandler.ListRecipes)
		v1.GET("/recipes/search", recipeHandler.SearchRecipes)
		v1.GET("/recipes/:id", recipeHandler.GetRecipe)
		v1.PATCH("/recipes/:id", recipeHandler.UpdateRecipe)
		v1.DELETE("/recipes/:id", recipeHandler.DeleteRecipe)

		// Tags
		v1.GET("/tags", recipeHandler.ListTags)
	}

	return r
}
