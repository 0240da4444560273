package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"math"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/sendrec/clipdeck/internal/auth"
	"github.com/sendrec/clipdeck/internal/clips"
	"github.com/sendrec/clipdeck/internal/database"
	"github.com/sendrec/clipdeck/internal/logging"
	"github.com/sendrec/clipdeck/internal/plans"
	"github.com/sendrec/clipdeck/internal/server"
	"github.com/sendrec/clipdeck/internal/storage"
	"github.com/sendrec/clipdeck/internal/youtube"
	"github.com/sendrec/clipdeck/web"
)

func main() {
	logger, logCloser, err := logging.New(logging.Config{
		File:  os.Getenv("LOG_FILE"),
		Level: getEnv("LOG_LEVEL", "info"),
		JSON:  getEnv("LOG_FORMAT", "json") == "json",
	})
	if err != nil {
		log.Fatalf("logger setup failed: %v", err)
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	port := getEnv("PORT", "8080")
	baseURL := getEnv("BASE_URL", "http://localhost:8080")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg := server.Config{
		JWTSecret:             os.Getenv("JWT_SECRET"),
		AllowedUsers:          auth.ParseAllowlist(os.Getenv("ALLOWED_USERS")),
		BaseURL:               baseURL,
		SessionIdle:           getEnvDuration("SESSION_IDLE_TIMEOUT", time.Duration(plans.Default.SessionIdleMinutes)*time.Minute),
		MaxUploadBytes:        getEnvInt64("MAX_UPLOAD_BYTES", plans.Default.MaxUploadBytes),
		MaxRows:               int(getEnvInt64("MAX_ROWS", int64(plans.Default.MaxRows))),
		MaxSelection:          int(getEnvInt64("MAX_SELECTION", int64(plans.Default.MaxSelectionRequests))),
		ShareExpiry:           getEnvDuration("SHARE_EXPIRY", time.Duration(plans.Default.ShareExpiryHours)*time.Hour),
		S3PublicEndpoint:      os.Getenv("S3_PUBLIC_ENDPOINT"),
		AllowedFrameAncestors: os.Getenv("ALLOWED_FRAME_ANCESTORS"),
		EnableDocs:            getEnv("API_DOCS_ENABLED", "false") == "true",
		Logger:                logger,
	}

	var db *database.DB
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		if cfg.JWTSecret == "" {
			log.Fatal("JWT_SECRET is required when DATABASE_URL is set")
		}

		db, err = database.Connect(ctx, databaseURL)
		if err != nil {
			log.Fatalf("database connection failed: %v", err)
		}
		defer db.Close()

		if err := db.Migrate(databaseURL); err != nil {
			log.Fatalf("database migration failed: %v", err)
		}
		slog.Info("database migrations applied")

		cfg.DB = db.Pool
		cfg.Pinger = db
	} else {
		slog.Info("no DATABASE_URL set, running without accounts or shared exports")
	}

	var store *storage.Storage
	if bucket := os.Getenv("S3_BUCKET"); bucket != "" {
		store, err = storage.New(ctx, storage.Config{
			Endpoint:       getEnv("S3_ENDPOINT", "http://localhost:3900"),
			PublicEndpoint: os.Getenv("S3_PUBLIC_ENDPOINT"),
			Bucket:         bucket,
			AccessKey:      os.Getenv("S3_ACCESS_KEY"),
			SecretKey:      os.Getenv("S3_SECRET_KEY"),
			Region:         getEnv("S3_REGION", "eu-central-1"),
		})
		if err != nil {
			log.Fatalf("storage initialization failed: %v", err)
		}
		if err := store.EnsureBucket(ctx); err != nil {
			log.Fatalf("storage bucket check failed: %v", err)
		}
		if err := store.ExpireObjects(ctx, clips.ExportPrefix, expiryDays(cfg.ShareExpiry)); err != nil {
			slog.Warn("storage lifecycle rule not applied, relying on cleanup loop", "error", err)
		}
		cfg.Storage = store
		slog.Info("storage bucket ready", "bucket", bucket)
	}

	titles, err := titleResolver(ctx, os.Getenv("YOUTUBE_API_KEY"),
		getEnvDuration("TITLE_CACHE_TTL", time.Hour),
		int(getEnvInt64("TITLE_CACHE_SIZE", youtube.DefaultCacheSize)))
	if err != nil {
		log.Fatalf("youtube client setup failed: %v", err)
	}
	cfg.TitleResolver = titles

	if sub, err := fs.Sub(web.DistFS, "dist"); err == nil {
		cfg.WebFS = sub
		slog.Info("embedded frontend loaded")
	} else {
		slog.Warn("no embedded frontend found, SPA serving disabled")
	}

	srv := server.New(cfg)

	maintenanceCtx, maintenanceCancel := context.WithCancel(context.Background())
	defer maintenanceCancel()
	srv.StartMaintenance(maintenanceCtx, time.Minute)
	if db != nil && store != nil {
		clips.StartCleanupLoop(maintenanceCtx, db.Pool, store, 10*time.Minute)
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("clipdeck listening", "port", port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-shutdownCh
	slog.Info("shutting down...")
	maintenanceCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown failed: %v", err)
	}
	slog.Info("shutdown complete")
}

// titleResolver prefers the Data API when a key is configured and falls back to oEmbed.
func titleResolver(ctx context.Context, apiKey string, ttl time.Duration, cacheSize int) (*youtube.Cache, error) {
	var chain youtube.Chain
	if apiKey != "" {
		api, err := youtube.NewAPIResolver(ctx, apiKey)
		if err != nil {
			return nil, err
		}
		chain = append(chain, api)
	}
	chain = append(chain, youtube.NewOEmbedResolver())
	return youtube.NewCache(chain, ttl, cacheSize), nil
}

// expiryDays rounds up and adds a day so the bucket rule never races the
// share link.
func expiryDays(d time.Duration) int32 {
	return int32(math.Ceil(d.Hours()/24)) + 1
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}
