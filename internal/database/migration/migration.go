package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"dochub/internal/logger"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_table_signatures",
		SQL: `CREATE TABLE IF NOT EXISTS signatures (
  id            UUID        PRIMARY KEY,
  hash          CHAR(64)    NOT NULL UNIQUE,
  document_name TEXT        NOT NULL DEFAULT '',
  document_hash CHAR(64)    NOT NULL,
  signer_name   TEXT        NOT NULL,
  signer_email  TEXT,
  signed_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_signatures_document_hash",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_signatures_document_hash ON signatures (document_hash);`,
	},
	{
		Name: "create_index_signatures_signed_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_signatures_signed_at ON signatures (signed_at);`,
	},
}

// EnsureMigrated creates the signatures schema unless the sentinel table exists.
// It reports whether any step ran.
func EnsureMigrated(ctx context.Context, db *sql.DB, dbHost string) (bool, error) {
	log := logger.Component("database").With().Str("db_host", dbHost).Logger()
	start := time.Now()

	log.Info().Str("event", "db_migration_check").Str("status", "starting").Send()

	var exists bool
	const query = "SELECT to_regclass('public.signatures') IS NOT NULL"
	if err := db.QueryRowContext(ctx, query).Scan(&exists); err != nil {
		log.Error().
			Str("event", "db_migration_failed").
			Str("status", "error").
			Err(err).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("failed to check sentinel table")
		return false, fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.Info().
			Str("event", "db_migration_skip").
			Str("status", "success").
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("schema already exists, skipping migration")
		return false, nil
	}

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error().
				Str("event", "db_migration_failed").
				Str("status", "error").
				Str("migration_step", step.Name).
				Err(err).
				Int64("step_duration_ms", time.Since(stepStart).Milliseconds()).
				Send()
			return false, fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}
		log.Info().
			Str("event", "db_migration_step").
			Str("status", "success").
			Str("migration_step", step.Name).
			Int64("step_duration_ms", time.Since(stepStart).Milliseconds()).
			Send()
	}

	log.Info().
		Str("event", "db_migration_success").
		Str("status", "success").
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Send()
	return true, nil
}
