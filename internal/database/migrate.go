package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Migrate applies the dialect's schema. Every statement is idempotent, so it
// is safe to run on each start.
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect) error {
	var file string
	switch dialect {
	case DialectPostgres:
		file = "schema/postgres.sql"
	case DialectSQLite:
		file = "schema/sqlite.sql"
	default:
		return fmt.Errorf("unsupported dialect %q", dialect)
	}

	ddl, err := schemaFS.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}

	if _, err := db.ExecContext(ctx, string(ddl)); err != nil {
		return fmt.Errorf("apply migration: %w", err)
	}
	return nil
}
