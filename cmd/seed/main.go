package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"redline/internal/config"
	"redline/internal/domain/models"
	"redline/internal/domain/services"
	"redline/internal/notify"
	"redline/internal/repository/postgres"
	"redline/internal/service/analysis"
	"redline/internal/service/batch"
	"redline/internal/service/document"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	// Parse command-line flags
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed documents")
	flag.Parse()

	// Load .env file
	_ = godotenv.Load()

	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && *dropTables {
		log.Fatalf("🚫 BLOCKED: Cannot run --drop-tables in production environment")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	log.Printf("🌱 Seeding database (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)

	if *dropTables {
		log.Println("🗑️  Dropping all tables...")
		if err := dropAllTables(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		log.Println("✅ Tables dropped")
	}

	log.Println("📋 Ensuring database schema is up to date...")
	if err := postgres.EnsureSchema(ctx, pool, tables); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}
	log.Println("✅ Schema ready")

	if *schemaOnly {
		log.Println("✅ Schema setup complete (schema-only mode)")
		return
	}

	// Create repositories and services
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	revisionRepo := postgres.NewRevisionRepository(repoConfig)
	documentRepo := postgres.NewDocumentRepository(repoConfig)
	batchRepo := postgres.NewBatchRepository(repoConfig)

	taxonomy, err := analysis.LoadTaxonomy()
	if err != nil {
		log.Fatalf("Failed to load clause taxonomy: %v", err)
	}
	analyzer := analysis.NewKeywordAnalyzer(taxonomy, logger)
	dispatcher := analysis.NewDispatcher(2, logger)
	hub := notify.NewHub(logger)

	docService := document.NewDocumentService(documentRepo, revisionRepo, batchRepo, analyzer, hub, dispatcher, nil, logger)
	batchService := batch.NewBatchService(batchRepo, documentRepo, revisionRepo, logger)

	// Seed a demo NDA
	log.Println("📝 Seeding demo document...")
	doc, err := docService.Ingest(ctx, &services.IngestRequest{
		Owner:     "seed-user",
		Title:     "Mutual Non-Disclosure Agreement",
		Sentences: demoSentences(),
		Comments:  demoComments(),
	})
	if err != nil {
		log.Fatalf("❌ Failed to ingest demo document: %v", err)
	}

	// Wait for the background analysis before reporting
	dispatcher.Wait()

	analyzed, err := batchService.IsAnalyzed(ctx, *doc.BatchID)
	if err != nil {
		log.Fatalf("Failed to check batch status: %v", err)
	}

	log.Printf("✅ Created document %s (%d sentences, batch %s, analyzed: %v)",
		doc.ID, len(doc.Sentences), *doc.BatchID, analyzed)
	log.Println("🎉 Seeding complete!")
}

// dropAllTables drops the seeded tables in FK order
func dropAllTables(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	for _, table := range []string{tables.Revisions, tables.Documents, tables.Batches} {
		if _, err := pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table)); err != nil {
			return fmt.Errorf("drop %s: %w", table, err)
		}
	}
	return nil
}

func demoSentences() []string {
	return []string{
		"This Mutual Non-Disclosure Agreement is entered into by and between the Disclosing Party and the Receiving Party.",
		"Each party agrees to keep all proprietary information received from the other party strictly confidential.",
		"Confidential information does not include information that is publicly available at the time of disclosure.",
		"The Receiving Party shall not disclose confidential information to any third party without prior written consent.",
		"Either party may terminate this agreement with thirty days written notice.",
		"The obligations of confidentiality survive termination of this agreement for a period of three years.",
		"Each party shall indemnify and hold harmless the other against losses arising from unauthorized disclosure.",
		"This agreement is governed by the laws of the State of Delaware, and the courts of Delaware have exclusive jurisdiction.",
		"Neither party may assign this agreement without the written consent of the other, binding on successors.",
	}
}

func demoComments() [][]models.Comment {
	comments := make([][]models.Comment, 9)
	comments[1] = []models.Comment{
		{Message: "Standard mutual confidentiality clause, no changes needed.", Author: "reviewer"},
	}
	comments[6] = []models.Comment{
		{Message: "Indemnification is one-sided in the original draft, confirm this mutual version.", Author: "reviewer"},
	}
	return comments
}
