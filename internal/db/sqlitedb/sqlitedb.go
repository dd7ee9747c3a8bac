// Package sqlitedb provides a SQLite-based storage for single-node
// deployments. It shares its queries with postgresdb.
package sqlitedb

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/patric-chuzhbe/essayshare/internal/db/sqlstore"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteDB is a SQLite-backed storage.
type SQLiteDB struct {
	*sqlstore.Store
}

// New opens (creating if needed) the database file at path and migrates it.
func New(ctx context.Context, path string, storeOptions ...sqlstore.InitOption) (*SQLiteDB, error) {
	database, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("in internal/db/sqlitedb/sqlitedb.go/New(): error while `sql.Open()` calling: %w", err)
	}
	// SQLite allows a single writer, one connection avoids "database is locked".
	database.SetMaxOpenConns(1)

	if err := migrate(ctx, database); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("in internal/db/sqlitedb/sqlitedb.go/New(): error while `migrate()` calling: %w", err)
	}

	return &SQLiteDB{
		Store: sqlstore.New(
			database,
			sqlstore.Dialect{
				IsUniqueViolation: isUniqueViolation,
				Rebind:            sqlstore.RebindQuestionNumbered,
			},
			storeOptions...,
		),
	}, nil
}

func migrate(ctx context.Context, database *sql.DB) error {
	migrations, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return err
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, database, migrations)
	if err != nil {
		return err
	}

	_, err = provider.Up(ctx)
	return err
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
