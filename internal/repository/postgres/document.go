package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"redline/internal/domain"
	"redline/internal/domain/models"
	"redline/internal/domain/repositories"
)

// PostgresDocumentRepository implements the DocumentRepository interface
type PostgresDocumentRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(config *RepositoryConfig) repositories.DocumentRepository {
	return &PostgresDocumentRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

const documentColumns = `
	id, batch_id, owner, title, sentences, dirty,
	parties, agreement_type, cached_analysis,
	pending, failed, created_at, updated_at`

// Create persists a new document
func (r *PostgresDocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (
			batch_id, owner, title, sentences, dirty,
			parties, agreement_type, cached_analysis,
			pending, failed, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`, r.tables.Documents)

	now := time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	sentences, parties, cached, err := marshalDocumentJSON(doc)
	if err != nil {
		return err
	}

	executor := GetExecutor(ctx, r.pool)
	err = executor.QueryRow(ctx, query,
		doc.BatchID,
		doc.Owner,
		doc.Title,
		sentences,
		doc.Dirty,
		parties,
		doc.AgreementType,
		cached,
		doc.Pending,
		doc.Failed,
		doc.CreatedAt,
		doc.UpdatedAt,
	).Scan(&doc.ID, &doc.CreatedAt, &doc.UpdatedAt)

	if err != nil {
		if IsPgForeignKeyError(err) {
			return fmt.Errorf("batch not found: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("create document: %w", err)
	}

	return nil
}

// GetByID retrieves a non-trashed document by id
func (r *PostgresDocumentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s WHERE id = $1 AND deleted_at IS NULL
	`, documentColumns, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	doc, err := scanDocument(executor.QueryRow(ctx, query, id))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get document: %w", err)
	}

	return doc, nil
}

// Update persists every mutable column of an existing document
func (r *PostgresDocumentRepository) Update(ctx context.Context, doc *models.Document) error {
	query := fmt.Sprintf(`
		UPDATE %s SET
			batch_id = $2, title = $3, sentences = $4, dirty = $5,
			parties = $6, agreement_type = $7, cached_analysis = $8,
			pending = $9, failed = $10, updated_at = $11
		WHERE id = $1 AND deleted_at IS NULL
	`, r.tables.Documents)

	doc.UpdatedAt = time.Now()

	sentences, parties, cached, err := marshalDocumentJSON(doc)
	if err != nil {
		return err
	}

	executor := GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query,
		doc.ID,
		doc.BatchID,
		doc.Title,
		sentences,
		doc.Dirty,
		parties,
		doc.AgreementType,
		cached,
		doc.Pending,
		doc.Failed,
		doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", doc.ID, domain.ErrNotFound)
	}

	return nil
}

// InvalidateCache clears the cached composite analysis
func (r *PostgresDocumentRepository) InvalidateCache(ctx context.Context, id string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET cached_analysis = NULL, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL
	`, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("invalidate document cache: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// MarkDirty flags the document for full reanalysis and clears the cache
func (r *PostgresDocumentRepository) MarkDirty(ctx context.Context, id string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET dirty = TRUE, cached_analysis = NULL, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL
	`, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("mark document dirty: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// SetAnalysis stores the analysis output, clearing dirty and pending
func (r *PostgresDocumentRepository) SetAnalysis(ctx context.Context, doc *models.Document) error {
	query := fmt.Sprintf(`
		UPDATE %s SET
			parties = $2, agreement_type = $3, cached_analysis = $4,
			dirty = FALSE, pending = FALSE, failed = $5, updated_at = $6
		WHERE id = $1 AND deleted_at IS NULL
	`, r.tables.Documents)

	doc.Dirty = false
	doc.Pending = false
	doc.UpdatedAt = time.Now()

	_, parties, cached, err := marshalDocumentJSON(doc)
	if err != nil {
		return err
	}

	executor := GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query,
		doc.ID,
		parties,
		doc.AgreementType,
		cached,
		doc.Failed,
		doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("set document analysis: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", doc.ID, domain.ErrNotFound)
	}

	return nil
}

// Trash soft-deletes the document
func (r *PostgresDocumentRepository) Trash(ctx context.Context, id string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET deleted_at = $2, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL
	`, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("trash document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// Delete removes the document row outright
func (r *PostgresDocumentRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	return nil
}

// CountPending returns how many of the given documents are still pending.
// Trashed members count as settled.
func (r *PostgresDocumentRepository) CountPending(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := fmt.Sprintf(`
		SELECT COUNT(*) FROM %s
		WHERE id = ANY($1) AND pending = TRUE AND deleted_at IS NULL
	`, r.tables.Documents)

	var count int
	executor := GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, ids).Scan(&count); err != nil {
		return 0, fmt.Errorf("count pending documents: %w", err)
	}

	return count, nil
}

func marshalDocumentJSON(doc *models.Document) (sentences, parties, cached []byte, err error) {
	if sentences, err = json.Marshal(emptyIfNilStrings(doc.Sentences)); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal sentences: %w", err)
	}
	p := doc.Parties
	if p == nil {
		p = []models.Party{}
	}
	if parties, err = json.Marshal(p); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal parties: %w", err)
	}
	if doc.CachedAnalysis != nil {
		if cached, err = json.Marshal(doc.CachedAnalysis); err != nil {
			return nil, nil, nil, fmt.Errorf("marshal cached analysis: %w", err)
		}
	}
	return sentences, parties, cached, nil
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var doc models.Document
	var sentences, parties, cached []byte

	err := row.Scan(
		&doc.ID,
		&doc.BatchID,
		&doc.Owner,
		&doc.Title,
		&sentences,
		&doc.Dirty,
		&parties,
		&doc.AgreementType,
		&cached,
		&doc.Pending,
		&doc.Failed,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(sentences, &doc.Sentences); err != nil {
		return nil, fmt.Errorf("unmarshal sentences: %w", err)
	}
	if err := json.Unmarshal(parties, &doc.Parties); err != nil {
		return nil, fmt.Errorf("unmarshal parties: %w", err)
	}
	if cached != nil {
		if err := json.Unmarshal(cached, &doc.CachedAnalysis); err != nil {
			return nil, fmt.Errorf("unmarshal cached analysis: %w", err)
		}
	}

	return &doc, nil
}
