package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timmy/recipebox/internal/api"
	"github.com/timmy/recipebox/internal/api/middleware"
	"github.com/timmy/recipebox/internal/config"
	"github.com/timmy/recipebox/internal/logger"
	"github.com/timmy/recipebox/internal/repository"
	"github.com/timmy/recipebox/internal/service"
	"github.com/timmy/recipebox/internal/storage"
)

func main() {
	logCfg := logger.LoadFromEnv()
	logCfg.ServiceName = "recipebox-api"
	appLogger := logger.New(logCfg)
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// CONFIG_PATH points at the YAML file in production deployments
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	ctx := logger.SetComponent(context.Background(), "api")

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	objectStorage, err := storage.NewStorage(ctx, &storage.Config{
		Type:       storage.StorageType(cfg.Storage.Type),
		LocalDir:   cfg.Storage.LocalDir,
		PublicPath: cfg.Storage.PublicPath,
		Endpoint:   cfg.Storage.Endpoint,
		AccessKey:  cfg.Storage.AccessKey,
		SecretKey:  cfg.Storage.SecretKey,
		UseSSL:     cfg.Storage.UseSSL,
		Bucket:     cfg.Storage.Bucket,
		Region:     cfg.Storage.Region,
		PublicURL:  cfg.Storage.PublicURL,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize storage")
	}

	var index *service.RecipeIndex
	if cfg.Search.SemanticEnabled {
		embedding, err := service.NewEmbeddingProvider(&service.EmbeddingProviderConfig{
			Provider:   cfg.Embedding.Provider,
			Model:      cfg.Embedding.Model,
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Dimensions: cfg.Embedding.Dimensions,
		})
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to initialize embedding provider")
		}
		qdrantRepo, err := repository.NewQdrantRepository(&repository.QdrantConnectionConfig{
			Host:            cfg.Qdrant.Host,
			Port:            cfg.Qdrant.Port,
			Collection:      cfg.Qdrant.Collection,
			APIKey:          cfg.Qdrant.APIKey,
			UseTLS:          cfg.Qdrant.UseTLS,
			VectorDimension: cfg.Embedding.Dimensions,
		})
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to initialize Qdrant repository")
		}
		defer qdrantRepo.Close()

		if err := qdrantRepo.EnsureCollection(ctx); err != nil {
			appLogger.WithError(err).Fatal("Failed to ensure Qdrant collection")
		}
		index = service.NewRecipeIndex(qdrantRepo, embedding, cfg.Search.ScoreThreshold)
		appLogger.WithFields(logger.Fields{
			"model":      embedding.GetModel(),
			"collection": cfg.Qdrant.Collection,
		}).Info("Semantic search enabled")
	}

	recipeService := service.NewRecipeService(
		repository.NewRecipeRepository(db),
		repository.NewTagRepository(db),
		index,
	)

	imageService := service.NewImageService(objectStorage, &service.ImageConfig{
		UserAgent:    cfg.Scraper.UserAgent,
		Timeout:      cfg.Scraper.ImageTimeout,
		MaxDimension: cfg.Scraper.MaxImageDimension,
		Quality:      cfg.Scraper.JPEGQuality,
		MaxBytes:     cfg.Scraper.MaxImageBytes,
	})
	scrapeService := service.NewScrapeService(service.NewHTTPFetcher(&service.FetcherConfig{
		UserAgent: cfg.Scraper.UserAgent,
		Timeout:   cfg.Scraper.PageTimeout,
		MaxBytes:  cfg.Scraper.MaxPageBytes,
	}), imageService)

	jobRepo := repository.NewImportJobRepository(db)
	processor := service.NewProcessor(jobRepo, recipeService, scrapeService, &service.ProcessorConfig{
		Concurrency: cfg.Import.Concurrency,
		BatchSize:   cfg.Import.BatchSize,
		BatchPause:  cfg.Import.BatchPause,
	})
	importService := service.NewImportService(jobRepo, processor)

	// Fail jobs a previous process left in processing, then resume pending ones
	if err := processor.Start(ctx); err != nil {
		appLogger.WithError(err).Fatal("Failed to start import processor")
	}

	routerCfg := api.RouterConfig{
		Recipes: recipeService,
		Imports: importService,
		Mode:    cfg.Server.Mode,
		CORS: middleware.CORSConfig{
			AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
			AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
		},
	}
	if storage.StorageType(cfg.Storage.Type) == storage.StorageTypeLocal {
		routerCfg.MediaDir = cfg.Storage.LocalDir
		routerCfg.MediaPath = cfg.Storage.PublicPath
	}
	router := api.SetupRouter(routerCfg)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Server forced to shutdown")
	}

	// In-flight jobs finish; anything left in processing is failed on next start
	appLogger.Info("Waiting for import jobs to finish...")
	processor.Wait()

	appLogger.Info("Server exited")
}
