// Package migrations embeds the schema and applies it with sql-migrate.
package migrations

import (
	"database/sql"
	"embed"
	"fmt"

	migrate "github.com/rubenv/sql-migrate"
)

// Table records applied migrations.
const Table = "schema_migrations"

const dialect = "postgres"

//go:embed *.sql
var files embed.FS

// Source returns the embedded migrations.
func Source() migrate.MigrationSource {
	return &migrate.EmbedFileSystemMigrationSource{FileSystem: files, Root: "."}
}

// Up applies every pending migration and returns how many ran.
func Up(db *sql.DB) (int, error) {
	ms := migrate.MigrationSet{TableName: Table}
	n, err := ms.Exec(db, dialect, Source(), migrate.Up)
	if err != nil {
		return n, fmt.Errorf("apply migrations: %w", err)
	}
	return n, nil
}

// Reset rolls every migration back and applies them again.
func Reset(db *sql.DB) error {
	ms := migrate.MigrationSet{TableName: Table}
	if _, err := ms.Exec(db, dialect, Source(), migrate.Down); err != nil {
		return fmt.Errorf("revert migrations: %w", err)
	}
	if _, err := ms.Exec(db, dialect, Source(), migrate.Up); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
