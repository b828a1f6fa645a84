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

// PostgresBatchRepository implements the BatchRepository interface
type PostgresBatchRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewBatchRepository creates a new batch repository
func NewBatchRepository(config *RepositoryConfig) repositories.BatchRepository {
	return &PostgresBatchRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create persists a new batch
func (r *PostgresBatchRepository) Create(ctx context.Context, batch *models.Batch) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (owner, name, document_ids, invalid_document_ids, pending, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`, r.tables.Batches)

	now := time.Now()
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = now
	}
	batch.UpdatedAt = now

	docIDs, invalidIDs, err := marshalBatchJSON(batch)
	if err != nil {
		return err
	}

	executor := GetExecutor(ctx, r.pool)
	err = executor.QueryRow(ctx, query,
		batch.Owner,
		batch.Name,
		docIDs,
		invalidIDs,
		batch.Pending,
		batch.CreatedAt,
		batch.UpdatedAt,
	).Scan(&batch.ID, &batch.CreatedAt, &batch.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create batch: %w", err)
	}

	return nil
}

// GetByID retrieves a batch by id
func (r *PostgresBatchRepository) GetByID(ctx context.Context, id string) (*models.Batch, error) {
	query := fmt.Sprintf(`
		SELECT id, owner, name, document_ids, invalid_document_ids, pending, created_at, updated_at
		FROM %s WHERE id = $1
	`, r.tables.Batches)

	var batch models.Batch
	var docIDs, invalidIDs []byte

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, id).Scan(
		&batch.ID,
		&batch.Owner,
		&batch.Name,
		&docIDs,
		&invalidIDs,
		&batch.Pending,
		&batch.CreatedAt,
		&batch.UpdatedAt,
	)
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("batch %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get batch: %w", err)
	}

	if err := json.Unmarshal(docIDs, &batch.DocumentIDs); err != nil {
		return nil, fmt.Errorf("unmarshal document ids: %w", err)
	}
	if err := json.Unmarshal(invalidIDs, &batch.InvalidDocumentIDs); err != nil {
		return nil, fmt.Errorf("unmarshal invalid document ids: %w", err)
	}

	return &batch, nil
}

// Update persists membership lists and the pending latch
func (r *PostgresBatchRepository) Update(ctx context.Context, batch *models.Batch) error {
	query := fmt.Sprintf(`
		UPDATE %s SET
			name = $2, document_ids = $3, invalid_document_ids = $4,
			pending = $5, updated_at = $6
		WHERE id = $1
	`, r.tables.Batches)

	batch.UpdatedAt = time.Now()

	docIDs, invalidIDs, err := marshalBatchJSON(batch)
	if err != nil {
		return err
	}

	executor := GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query,
		batch.ID,
		batch.Name,
		docIDs,
		invalidIDs,
		batch.Pending,
		batch.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update batch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("batch %s: %w", batch.ID, domain.ErrNotFound)
	}

	return nil
}

// Delete removes an emptied batch
func (r *PostgresBatchRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Batches)

	executor := GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete batch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("batch %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

func marshalBatchJSON(batch *models.Batch) (docIDs, invalidIDs []byte, err error) {
	if docIDs, err = json.Marshal(emptyIfNilStrings(batch.DocumentIDs)); err != nil {
		return nil, nil, fmt.Errorf("marshal document ids: %w", err)
	}
	if invalidIDs, err = json.Marshal(emptyIfNilStrings(batch.InvalidDocumentIDs)); err != nil {
		return nil, nil, fmt.Errorf("marshal invalid document ids: %w", err)
	}
	return docIDs, invalidIDs, nil
}
