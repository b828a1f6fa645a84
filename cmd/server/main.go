package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"redline/internal/auth"
	"redline/internal/cache"
	"redline/internal/config"
	"redline/internal/handler"
	"redline/internal/middleware"
	"redline/internal/notify"
	"redline/internal/repository/postgres"
	"redline/internal/service/analysis"
	"redline/internal/service/batch"
	"redline/internal/service/document"
	"redline/internal/service/revision"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	var logOut io.Writer = os.Stdout
	if dir := os.Getenv("LOG_DIR"); dir != "" {
		logFile, err := config.SetupLogFile(dir, 10)
		if err != nil {
			log.Fatalf("Failed to set up log file: %v", err)
		}
		defer logFile.Close()
		logOut = io.MultiWriter(os.Stdout, logFile)
	}

	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
		"strict_locking", cfg.StrictLocking,
	)

	// JWT verifier against the identity provider's JWKS endpoint
	jwtVerifier, err := auth.NewJWTVerifier(cfg.JWKSURL, logger)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	defer jwtVerifier.Close()

	// pgx connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()
	logger.Info("database connected")

	tables := postgres.NewTableNames(cfg.TablePrefix)
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	revisionRepo := postgres.NewRevisionRepository(repoConfig)
	documentRepo := postgres.NewDocumentRepository(repoConfig)
	batchRepo := postgres.NewBatchRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool)

	// Digest cache. Redis being down degrades to uncached digests.
	var digests document.DigestCache
	digestCache, err := cache.NewService(cfg.RedisURL, "redline:", config.DigestCacheTTL, logger)
	if err != nil {
		logger.Warn("redis unavailable, digests will not be cached", "error", err)
	} else {
		defer digestCache.Close()
		digests = digestCache
	}

	// Clause taxonomy and the built-in analyzer
	taxonomy, err := analysis.LoadTaxonomy()
	if err != nil {
		log.Fatalf("Failed to load clause taxonomy: %v", err)
	}
	analyzer := analysis.NewKeywordAnalyzer(taxonomy, logger)
	dispatcher := analysis.NewDispatcher(int64(cfg.AnalysisWorkers), logger)

	// Change event fan-out
	hub := notify.NewHub(logger)

	// Services
	docService := document.NewDocumentService(documentRepo, revisionRepo, batchRepo, analyzer, hub, dispatcher, digests, logger)
	batchService := batch.NewBatchService(batchRepo, documentRepo, revisionRepo, logger)
	sentenceService := revision.NewSentenceService(revisionRepo, docService, txManager, hub, cfg.StrictLocking, logger)
	lockService := revision.NewLockService(revisionRepo, docService, txManager, hub, logger)

	logger.Info("services initialized", "analysis_workers", cfg.AnalysisWorkers)

	// Handlers
	docHandler := handler.NewDocumentHandler(docService, logger)
	sentenceHandler := handler.NewSentenceHandler(sentenceService, lockService, logger)
	batchHandler := handler.NewBatchHandler(batchService, logger)
	eventsHandler := handler.NewEventsHandler(hub, logger)

	// HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", docHandler.HealthCheck)

	// Document routes
	mux.HandleFunc("POST /api/documents", docHandler.Ingest)
	mux.HandleFunc("GET /api/documents/{id}", docHandler.GetAnalysis)
	mux.HandleFunc("GET /api/documents/{id}/digest", docHandler.GetDigest)
	mux.HandleFunc("POST /api/documents/{id}/reanalyze", docHandler.Reanalyze)
	mux.HandleFunc("DELETE /api/documents/{id}", docHandler.Trash)
	mux.HandleFunc("GET /api/documents/{id}/events", eventsHandler.Stream)

	// Sentence routes
	mux.HandleFunc("GET /api/documents/{id}/sentences/{idx}", sentenceHandler.Get)
	mux.HandleFunc("GET /api/documents/{id}/sentences/{idx}/history", sentenceHandler.History)
	mux.HandleFunc("POST /api/documents/{id}/sentences/{idx}/edit", sentenceHandler.Edit)
	mux.HandleFunc("POST /api/documents/{id}/sentences/{idx}/accept", sentenceHandler.Accept)
	mux.HandleFunc("POST /api/documents/{id}/sentences/{idx}/reject", sentenceHandler.Reject)
	mux.HandleFunc("POST /api/documents/{id}/sentences/{idx}/undo", sentenceHandler.Undo)
	mux.HandleFunc("POST /api/documents/{id}/sentences/{idx}/delete", sentenceHandler.Delete)
	mux.HandleFunc("POST /api/documents/{id}/sentences/{idx}/like", sentenceHandler.Like)
	mux.HandleFunc("DELETE /api/documents/{id}/sentences/{idx}/like", sentenceHandler.Unlike)
	mux.HandleFunc("POST /api/documents/{id}/sentences/{idx}/dislike", sentenceHandler.Dislike)
	mux.HandleFunc("DELETE /api/documents/{id}/sentences/{idx}/dislike", sentenceHandler.Undislike)
	mux.HandleFunc("POST /api/documents/{id}/sentences/{idx}/tags", sentenceHandler.AddTag)
	mux.HandleFunc("DELETE /api/documents/{id}/sentences/{idx}/tags", sentenceHandler.RemoveTag)
	mux.HandleFunc("POST /api/documents/{id}/sentences/{idx}/comments", sentenceHandler.AddComment)
	mux.HandleFunc("DELETE /api/documents/{id}/sentences/{idx}/comments/{uuid}", sentenceHandler.RemoveComment)
	mux.HandleFunc("POST /api/documents/{id}/sentences/{idx}/lock", sentenceHandler.AcquireLock)
	mux.HandleFunc("DELETE /api/documents/{id}/sentences/{idx}/lock", sentenceHandler.ReleaseLock)
	mux.HandleFunc("GET /api/documents/{id}/sentences/{idx}/lock", sentenceHandler.LockStatus)

	// Batch routes
	mux.HandleFunc("GET /api/batches/{id}", batchHandler.Get)
	mux.HandleFunc("DELETE /api/batches/{id}/invalid", batchHandler.PurgeInvalid)
	mux.HandleFunc("DELETE /api/batches/{id}", batchHandler.Delete)

	// Build middleware chain
	var httpHandler http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → Auth → Routes
	httpHandler = middleware.AuthMiddleware(jwtVerifier, logger)(httpHandler)
	httpHandler = middleware.Recovery(logger)(httpHandler)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", "Last-Event-ID"},
		AllowCredentials: true,
	})
	httpHandler = corsHandler.Handler(httpHandler)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // Disabled to allow long-lived SSE streams
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}
