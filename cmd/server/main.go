package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hfauzan/audiotube/internal/app"
	"github.com/hfauzan/audiotube/internal/config"
	"github.com/hfauzan/audiotube/internal/constants"
	"github.com/hfauzan/audiotube/internal/filesystem"
	"github.com/hfauzan/audiotube/internal/httpapp"
	"github.com/hfauzan/audiotube/internal/httpclient"
	"github.com/hfauzan/audiotube/internal/logger"
	"github.com/hfauzan/audiotube/internal/metadata"
	"github.com/hfauzan/audiotube/internal/pipeline"
	"github.com/hfauzan/audiotube/internal/progress"
	"github.com/hfauzan/audiotube/internal/storage"
	"github.com/hfauzan/audiotube/internal/store"
	"github.com/hfauzan/audiotube/internal/strategy"
	"github.com/hfauzan/audiotube/internal/transcode"
)

func main() {
	cfg := config.Load()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// Initialize Logger
	appLogger := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	// Initialize DB
	db, err := store.NewSQLiteDB(cfg.DBPath)
	if err != nil {
		appLogger.Error("Failed to init DB", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Optional Redis metadata cache; nil client degrades to uncached
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			appLogger.Warn("Redis unreachable, metadata caching disabled", "error", err)
			redisClient = nil
		}
	}

	// Metadata resolver chain: oEmbed, extraction library, synthetic fallback
	apiClient := httpclient.NewClient(nil, 100*time.Millisecond)
	resolver := metadata.NewResolver(appLogger,
		metadata.NewOEmbedProvider(apiClient),
		metadata.NewLibraryProvider(apiClient.GetUnderlyingClient()),
		metadata.NewSyntheticProvider(),
	).
		WithTimeout(0, constants.OEmbedTimeout).
		WithTimeout(1, constants.LibraryMetadataTimeout)
	cache := metadata.NewRedisCache(redisClient, constants.MetadataCacheTTL, appLogger)
	cachedResolver := metadata.NewCachedResolver(resolver, cache)

	// Acquisition strategies, in fallback order
	strategies := []strategy.Strategy{
		strategy.NewDirectFormat(httpclient.NewClient(nil, 0)),
		strategy.NewLibraryExtraction(nil),
		strategy.NewExternalTool(),
		strategy.NewAuthenticatedRetry(cfg.SessionCookie),
	}

	tracker := progress.NewTracker(appLogger, progress.Config{
		MaxLifetime: cfg.MaxJobLifetime,
	})

	acquirer := pipeline.New(strategies, tracker, appLogger, pipeline.Config{
		AttemptsPerStrategy: cfg.StrategyAttempts,
		BackoffBase:         cfg.BackoffBase,
		BackoffCap:          cfg.BackoffCap,
	})

	// Storage backend: cloud endpoint if configured, local media dir otherwise
	var uploader storage.Uploader
	mediaDir := ""
	if cfg.UploadEndpoint != "" {
		uploader = storage.NewCloudUploader(cfg.UploadEndpoint, cfg.UploadPreset, appLogger)
	} else {
		if err := filesystem.EnsureDir(cfg.MediaDir); err != nil {
			appLogger.Error("Failed to create media dir", "error", err)
			os.Exit(1)
		}
		uploader = storage.NewLocalUploader(cfg.MediaDir, cfg.BaseURL)
		mediaDir = cfg.MediaDir
	}

	transcoder := transcode.New()
	if !transcoder.Available() {
		appLogger.Warn("ffmpeg not found, audio will be delivered in its native container")
	}

	service := app.NewConversionService(db, cachedResolver, acquirer, uploader, tracker, transcoder, appLogger, app.Config{
		ScratchDir:         cfg.ScratchDir,
		UploadFolder:       cfg.UploadFolder,
		StalenessThreshold: cfg.StalenessThreshold,
		MaxJobLifetime:     cfg.MaxJobLifetime,
	})

	// Background sweep for scratch files orphaned by a crash
	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	app.NewJanitor(cfg.ScratchDir, 2*cfg.MaxJobLifetime, appLogger).Start(janitorCtx)

	// Routes
	h := httpapp.NewHandler(service, db, tracker, appLogger)
	router := httpapp.NewRouter(h, httpapp.RouterConfig{
		RequestsPerSecond: cfg.RequestsPerSecond,
		BurstSize:         cfg.BurstSize,
		MediaDir:          mediaDir,
	})

	// Start Server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	// Let in-flight conversions finish writing their outcomes
	service.Wait()

	log.Println("Server exiting")
}
