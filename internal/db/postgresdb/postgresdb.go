// Package postgresdb provides a PostgreSQL-based implementation of the storage
// for persisting and retrieving users and essays. The schema is migrated
// with goose from the embedded migrations on start.
package postgresdb

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/patric-chuzhbe/essayshare/internal/db/sqlstore"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const uniqueViolationCode = "23505"

// PostgresDB is a PostgreSQL-backed storage.
type PostgresDB struct {
	*sqlstore.Store
	connectionTimeout time.Duration
}

type initOptions struct {
	DBPreReset   bool
	storeOptions []sqlstore.InitOption
}

// InitOption defines a functional option for configuring database initialization.
type InitOption func(*initOptions)

// WithDBPreReset enables or disables dropping every table before migration.
// It is meant for test setups.
func WithDBPreReset(value bool) InitOption {
	return func(options *initOptions) {
		options.DBPreReset = value
	}
}

// WithStoreOptions forwards options to the underlying SQL store.
func WithStoreOptions(storeOptions ...sqlstore.InitOption) InitOption {
	return func(options *initOptions) {
		options.storeOptions = append(options.storeOptions, storeOptions...)
	}
}

// New establishes a connection to the PostgreSQL database,
// runs schema migrations, and returns a configured PostgresDB instance.
func New(
	ctx context.Context,
	databaseDSN string,
	connectionTimeout time.Duration,
	optionsProto ...InitOption,
) (*PostgresDB, error) {
	options := &initOptions{
		DBPreReset: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	database, err := sql.Open("pgx", databaseDSN)
	if err != nil {
		return nil, err
	}

	result := &PostgresDB{
		Store: sqlstore.New(
			database,
			sqlstore.Dialect{IsUniqueViolation: isUniqueViolation},
			options.storeOptions...,
		),
		connectionTimeout: connectionTimeout,
	}

	if options.DBPreReset {
		if err := result.resetDB(ctx); err != nil {
			_ = database.Close()
			return nil,
				fmt.Errorf(
					"in internal/db/postgresdb/postgresdb.go/New(): error while `result.resetDB()` calling: %w",
					err,
				)
		}
	}

	if err := migrate(ctx, database); err != nil {
		_ = database.Close()
		return nil,
			fmt.Errorf(
				"in internal/db/postgresdb/postgresdb.go/New(): error while `migrate()` calling: %w",
				err,
			)
	}

	return result, nil
}

// Ping verifies connectivity with the PostgreSQL database within the configured timeout.
func (db *PostgresDB) Ping(ctx context.Context) error {
	if db.connectionTimeout <= 0 {
		return db.Store.Ping(ctx)
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return db.Store.Ping(ctxWithTimeout)
}

func migrate(ctx context.Context, database *sql.DB) error {
	migrations, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return err
	}

	provider, err := goose.NewProvider(goose.DialectPostgres, database, migrations)
	if err != nil {
		return err
	}

	_, err = provider.Up(ctx)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

func (db *PostgresDB) resetDB(ctx context.Context) error {
	_, err := db.DB().ExecContext(
		ctx,
		`
			DO $$
			DECLARE
				r RECORD;
			BEGIN
				FOR r IN (SELECT tablename FROM pg_tables WHERE schemaname = 'public') LOOP
					EXECUTE 'DROP TABLE IF EXISTS ' || quote_ident(r.tablename) || ' CASCADE';
				END LOOP;
			END $$;
		`,
	)
	if err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/postgresdb.go/resetDB(): error while `db.DB().ExecContext()` calling: %w",
			err,
		)
	}
	return nil
}
