package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/timmy/recipebox/internal/config"
	"github.com/timmy/recipebox/internal/logger"
	"github.com/timmy/recipebox/internal/repository"
	"github.com/timmy/recipebox/internal/service"
	"github.com/timmy/recipebox/internal/source"
	"github.com/timmy/recipebox/internal/source/bookmarks"
	"github.com/timmy/recipebox/internal/source/urllist"
	"github.com/timmy/recipebox/internal/storage"
)

func main() {
	// Initialize logger first (with defaults)
	logCfg := logger.LoadFromEnv()
	logCfg.ServiceName = "recipebox-ingest"
	appLogger := logger.New(logCfg)
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	bookmarksPath := flag.String("bookmarks", "", "Path to a browser bookmarks export to import")
	urlsPath := flag.String("urls", "", "Path to a text file with one URL per line")
	singleURL := flag.String("url", "", "Import a single recipe URL")
	drainOnly := flag.Bool("drain", false, "Only process jobs already pending")
	batch := flag.Int("batch", 100, "Links read from a source per batch")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	ctx, cancel := context.WithCancel(logger.SetComponent(context.Background(), "ingest"))
	defer cancel()

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
	}

	recipeService := service.NewRecipeService(repository.NewRecipeRepository(db), repository.NewTagRepository(db), index)
	scrapeService := service.NewScrapeService(
		service.NewHTTPFetcher(&service.FetcherConfig{
			UserAgent: cfg.Scraper.UserAgent,
			Timeout:   cfg.Scraper.PageTimeout,
			MaxBytes:  cfg.Scraper.MaxPageBytes,
		}),
		service.NewImageService(objectStorage, &service.ImageConfig{
			UserAgent:    cfg.Scraper.UserAgent,
			Timeout:      cfg.Scraper.ImageTimeout,
			MaxDimension: cfg.Scraper.MaxImageDimension,
			Quality:      cfg.Scraper.JPEGQuality,
			MaxBytes:     cfg.Scraper.MaxImageBytes,
		}),
	)

	jobRepo := repository.NewImportJobRepository(db)
	processor := service.NewProcessor(jobRepo, recipeService, scrapeService, &service.ProcessorConfig{
		Concurrency: cfg.Import.Concurrency,
		BatchSize:   cfg.Import.BatchSize,
		BatchPause:  cfg.Import.BatchPause,
	})
	importService := service.NewImportService(jobRepo, processor)

	// Cancelling stops new batches; jobs already claimed run to completion
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Received shutdown signal, finishing in-flight jobs...")
		cancel()
	}()

	if *singleURL != "" {
		result, err := importService.ImportURL(ctx, *singleURL)
		if err != nil {
			appLogger.WithError(err).WithField(logger.FieldURL, *singleURL).Fatal("Import failed")
		}
		appLogger.WithFields(logger.Fields{
			logger.FieldRecipeID: result.Recipe.ID,
			logger.FieldMethod:   result.Method,
			"title":              result.Recipe.Title,
		}).Info("Recipe imported")
		return
	}

	var src source.Source
	switch {
	case *bookmarksPath != "":
		src = bookmarks.NewAdapter(*bookmarksPath)
	case *urlsPath != "":
		src = urllist.NewAdapter(*urlsPath)
	case !*drainOnly:
		appLogger.Fatal("One of -bookmarks, -urls, -url or -drain is required")
	}

	if src != nil {
		queued, err := importService.ImportSource(ctx, src, *batch)
		if err != nil {
			appLogger.WithError(err).WithField(logger.FieldSource, src.GetSourceID()).Fatal("Failed to queue links")
		}
		appLogger.WithFields(logger.Fields{
			logger.FieldSource: src.GetDisplayName(),
			logger.FieldCount:  queued.Count,
		}).Info("Links queued")
	}

	if n, err := jobRepo.FailStale(ctx, service.StaleJobMessage); err != nil {
		appLogger.WithError(err).Fatal("Failed to reset stale jobs")
	} else if n > 0 {
		appLogger.WithField(logger.FieldCount, n).Warn("Failed stale import jobs")
	}

	stats := processor.Drain(ctx)
	appLogger.WithFields(logger.Fields{
		"processed":            stats.Processed,
		"completed":            stats.Completed,
		"failed":               stats.Failed,
		"skipped":              stats.Skipped,
		logger.FieldDurationMs: stats.EndTime.Sub(stats.StartTime).Milliseconds(),
	}).Info("Ingestion completed")
}
