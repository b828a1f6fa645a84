package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the engine's tables and indexes if they do not exist.
// Used by cmd/seed and test bootstrap; production environments run the same
// statements via migrations.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	statements := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				owner TEXT NOT NULL,
				name TEXT NOT NULL DEFAULT '',
				document_ids JSONB NOT NULL DEFAULT '[]',
				invalid_document_ids JSONB NOT NULL DEFAULT '[]',
				pending BOOLEAN NOT NULL DEFAULT TRUE,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)
		`, tables.Batches),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				batch_id UUID REFERENCES %s(id) ON DELETE SET NULL,
				owner TEXT NOT NULL,
				title VARCHAR(255) NOT NULL DEFAULT '',
				sentences JSONB NOT NULL DEFAULT '[]',
				dirty BOOLEAN NOT NULL DEFAULT FALSE,
				parties JSONB NOT NULL DEFAULT '[]',
				agreement_type TEXT NOT NULL DEFAULT '',
				cached_analysis JSONB,
				pending BOOLEAN NOT NULL DEFAULT TRUE,
				failed BOOLEAN NOT NULL DEFAULT FALSE,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				deleted_at TIMESTAMPTZ
			)
		`, tables.Documents, tables.Batches),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				sentence_uuid UUID NOT NULL,
				text TEXT NOT NULL,
				formatting JSONB,
				style TEXT NOT NULL DEFAULT '',
				newlines INT NOT NULL DEFAULT 0,
				annotations JSONB NOT NULL DEFAULT '[]',
				comments JSONB NOT NULL DEFAULT '[]',
				likes JSONB NOT NULL DEFAULT '[]',
				dislikes JSONB NOT NULL DEFAULT '[]',
				accepted BOOLEAN NOT NULL DEFAULT FALSE,
				rejected BOOLEAN NOT NULL DEFAULT FALSE,
				deleted BOOLEAN NOT NULL DEFAULT FALSE,
				modified_by TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				prev_revision_id UUID REFERENCES %s(id),
				lock_owner TEXT,
				lock_lifetime_secs BIGINT,
				lock_created_at TIMESTAMPTZ
			)
		`, tables.Revisions, tables.Revisions),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_sentence_uuid ON %s (sentence_uuid)`,
			tables.Revisions, tables.Revisions),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_batch_id ON %s (batch_id)`,
			tables.Documents, tables.Documents),
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	return nil
}
