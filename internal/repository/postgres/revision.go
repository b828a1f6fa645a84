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

// PostgresRevisionRepository implements the RevisionRepository interface
type PostgresRevisionRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewRevisionRepository creates a new revision repository
func NewRevisionRepository(config *RepositoryConfig) repositories.RevisionRepository {
	return &PostgresRevisionRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

const revisionColumns = `
	id, sentence_uuid, text, formatting, style, newlines,
	annotations, comments, likes, dislikes,
	accepted, rejected, deleted, modified_by, created_at,
	prev_revision_id, lock_owner, lock_lifetime_secs, lock_created_at`

// Create persists a new revision
func (r *PostgresRevisionRepository) Create(ctx context.Context, rev *models.Revision) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (
			sentence_uuid, text, formatting, style, newlines,
			annotations, comments, likes, dislikes,
			accepted, rejected, deleted, modified_by, created_at,
			prev_revision_id, lock_owner, lock_lifetime_secs, lock_created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id, created_at
	`, r.tables.Revisions)

	if rev.CreatedAt.IsZero() {
		rev.CreatedAt = time.Now()
	}

	cols, err := marshalRevisionJSON(rev)
	if err != nil {
		return err
	}
	lockOwner, lockLifetime, lockCreatedAt := lockColumns(rev.Lock)

	executor := GetExecutor(ctx, r.pool)
	err = executor.QueryRow(ctx, query,
		rev.UUID,
		rev.Text,
		cols.formatting,
		rev.Style,
		rev.Newlines,
		cols.annotations,
		cols.comments,
		cols.likes,
		cols.dislikes,
		rev.Accepted,
		rev.Rejected,
		rev.Deleted,
		rev.ModifiedBy,
		rev.CreatedAt,
		rev.PrevRevisionID,
		lockOwner,
		lockLifetime,
		lockCreatedAt,
	).Scan(&rev.ID, &rev.CreatedAt)

	if err != nil {
		return fmt.Errorf("create revision: %w", err)
	}

	return nil
}

// GetByID retrieves a revision by id
func (r *PostgresRevisionRepository) GetByID(ctx context.Context, id string) (*models.Revision, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, revisionColumns, r.tables.Revisions)

	executor := GetExecutor(ctx, r.pool)
	rev, err := scanRevision(executor.QueryRow(ctx, query, id))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("revision %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get revision: %w", err)
	}

	return rev, nil
}

// GetByIDs retrieves several revisions at once, keyed by id
func (r *PostgresRevisionRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*models.Revision, error) {
	if len(ids) == 0 {
		return map[string]*models.Revision{}, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ANY($1)`, revisionColumns, r.tables.Revisions)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("get revisions: %w", err)
	}
	defer rows.Close()

	out := make(map[string]*models.Revision, len(ids))
	for rows.Next() {
		rev, err := scanRevision(rows)
		if err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		out[rev.ID] = rev
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate revisions: %w", err)
	}

	return out, nil
}

// Update persists every mutable column of an existing revision
func (r *PostgresRevisionRepository) Update(ctx context.Context, rev *models.Revision) error {
	query := fmt.Sprintf(`
		UPDATE %s SET
			text = $2, formatting = $3, style = $4, newlines = $5,
			annotations = $6, comments = $7, likes = $8, dislikes = $9,
			accepted = $10, rejected = $11, deleted = $12, modified_by = $13,
			prev_revision_id = $14, lock_owner = $15, lock_lifetime_secs = $16, lock_created_at = $17
		WHERE id = $1
	`, r.tables.Revisions)

	cols, err := marshalRevisionJSON(rev)
	if err != nil {
		return err
	}
	lockOwner, lockLifetime, lockCreatedAt := lockColumns(rev.Lock)

	executor := GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query,
		rev.ID,
		rev.Text,
		cols.formatting,
		rev.Style,
		rev.Newlines,
		cols.annotations,
		cols.comments,
		cols.likes,
		cols.dislikes,
		rev.Accepted,
		rev.Rejected,
		rev.Deleted,
		rev.ModifiedBy,
		rev.PrevRevisionID,
		lockOwner,
		lockLifetime,
		lockCreatedAt,
	)
	if err != nil {
		return fmt.Errorf("update revision: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("revision %s: %w", rev.ID, domain.ErrNotFound)
	}

	return nil
}

// GetForUpdate retrieves a revision under a row-exclusive non-blocking lock.
// Must run inside a transaction started via TransactionManager; the row lock
// is released at commit/rollback.
func (r *PostgresRevisionRepository) GetForUpdate(ctx context.Context, id string) (*models.Revision, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 FOR UPDATE NOWAIT`, revisionColumns, r.tables.Revisions)

	executor := GetExecutor(ctx, r.pool)
	rev, err := scanRevision(executor.QueryRow(ctx, query, id))
	if err != nil {
		if IsPgLockNotAvailableError(err) {
			return nil, fmt.Errorf("revision %s: %w", id, domain.ErrLockBusy)
		}
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("revision %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get revision for update: %w", err)
	}

	return rev, nil
}

// DeleteChains removes every revision of the given logical sentences
func (r *PostgresRevisionRepository) DeleteChains(ctx context.Context, uuids []string) error {
	if len(uuids) == 0 {
		return nil
	}

	// prev_revision_id is self-referencing; sever the links first so the
	// delete does not trip the foreign key regardless of row order.
	clearQuery := fmt.Sprintf(`UPDATE %s SET prev_revision_id = NULL WHERE sentence_uuid = ANY($1)`, r.tables.Revisions)
	deleteQuery := fmt.Sprintf(`DELETE FROM %s WHERE sentence_uuid = ANY($1)`, r.tables.Revisions)

	executor := GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, clearQuery, uuids); err != nil {
		return fmt.Errorf("unlink revision chains: %w", err)
	}
	if _, err := executor.Exec(ctx, deleteQuery, uuids); err != nil {
		return fmt.Errorf("delete revision chains: %w", err)
	}

	return nil
}

// revisionJSON holds the marshaled JSONB column values for one revision
type revisionJSON struct {
	formatting  []byte
	annotations []byte
	comments    []byte
	likes       []byte
	dislikes    []byte
}

func marshalRevisionJSON(rev *models.Revision) (*revisionJSON, error) {
	var cols revisionJSON
	var err error

	if rev.Formatting != nil {
		if cols.formatting, err = json.Marshal(rev.Formatting); err != nil {
			return nil, fmt.Errorf("marshal formatting: %w", err)
		}
	}
	if cols.annotations, err = json.Marshal(emptyIfNil(rev.Annotations)); err != nil {
		return nil, fmt.Errorf("marshal annotations: %w", err)
	}
	if cols.comments, err = json.Marshal(emptyIfNilComments(rev.Comments)); err != nil {
		return nil, fmt.Errorf("marshal comments: %w", err)
	}
	if cols.likes, err = json.Marshal(emptyIfNilStrings(rev.Likes)); err != nil {
		return nil, fmt.Errorf("marshal likes: %w", err)
	}
	if cols.dislikes, err = json.Marshal(emptyIfNilStrings(rev.Dislikes)); err != nil {
		return nil, fmt.Errorf("marshal dislikes: %w", err)
	}

	return &cols, nil
}

func emptyIfNil(a []models.Annotation) []models.Annotation {
	if a == nil {
		return []models.Annotation{}
	}
	return a
}

func emptyIfNilComments(c []models.Comment) []models.Comment {
	if c == nil {
		return []models.Comment{}
	}
	return c
}

func emptyIfNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func lockColumns(lock *models.Lock) (owner *string, lifetimeSecs *int64, createdAt *time.Time) {
	if lock == nil {
		return nil, nil, nil
	}
	secs := int64(lock.Lifetime / time.Second)
	return &lock.Owner, &secs, &lock.CreatedAt
}

// rowScanner abstracts pgx.Row and pgx.Rows for shared scanning
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRevision(row rowScanner) (*models.Revision, error) {
	var rev models.Revision
	var formatting, annotations, comments, likes, dislikes []byte
	var lockOwner *string
	var lockLifetimeSecs *int64
	var lockCreatedAt *time.Time

	err := row.Scan(
		&rev.ID,
		&rev.UUID,
		&rev.Text,
		&formatting,
		&rev.Style,
		&rev.Newlines,
		&annotations,
		&comments,
		&likes,
		&dislikes,
		&rev.Accepted,
		&rev.Rejected,
		&rev.Deleted,
		&rev.ModifiedBy,
		&rev.CreatedAt,
		&rev.PrevRevisionID,
		&lockOwner,
		&lockLifetimeSecs,
		&lockCreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if formatting != nil {
		if err := json.Unmarshal(formatting, &rev.Formatting); err != nil {
			return nil, fmt.Errorf("unmarshal formatting: %w", err)
		}
	}
	if err := json.Unmarshal(annotations, &rev.Annotations); err != nil {
		return nil, fmt.Errorf("unmarshal annotations: %w", err)
	}
	if err := json.Unmarshal(comments, &rev.Comments); err != nil {
		return nil, fmt.Errorf("unmarshal comments: %w", err)
	}
	if err := json.Unmarshal(likes, &rev.Likes); err != nil {
		return nil, fmt.Errorf("unmarshal likes: %w", err)
	}
	if err := json.Unmarshal(dislikes, &rev.Dislikes); err != nil {
		return nil, fmt.Errorf("unmarshal dislikes: %w", err)
	}

	if lockOwner != nil && lockLifetimeSecs != nil && lockCreatedAt != nil {
		rev.Lock = &models.Lock{
			Owner:     *lockOwner,
			Lifetime:  time.Duration(*lockLifetimeSecs) * time.Second,
			CreatedAt: *lockCreatedAt,
		}
	}

	return &rev, nil
}
