// Package sqlstore implements user and essay persistence on top of
// database/sql. The PostgreSQL and SQLite backends share it and only
// differ in their Dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/patric-chuzhbe/essayshare/internal/essay"
	"github.com/patric-chuzhbe/essayshare/internal/models"
	"github.com/patric-chuzhbe/essayshare/internal/user"
)

// Dialect captures what differs between SQL backends.
type Dialect struct {
	// IsUniqueViolation reports whether err comes from a unique constraint.
	IsUniqueViolation func(err error) bool

	// Rebind rewrites a query written with $N placeholders, nil keeps it as is.
	Rebind func(query string) string
}

// Store is the SQL-backed storage shared by the SQL backends.
// It does not enforce ownership: callers check it before mutating.
type Store struct {
	database *sql.DB
	dialect  Dialect
	now      func() time.Time
}

type rowScanner interface {
	Scan(dest ...any) error
}

// InitOption configures a Store.
type InitOption func(*Store)

// WithClock sets the time source used for created_at and updated_at.
func WithClock(now func() time.Time) InitOption {
	return func(s *Store) {
		s.now = now
	}
}

const essayColumns = `id, title, content, user_id, is_public, created_at, updated_at`

var dollarPlaceholder = regexp.MustCompile(`\$(\d+)`)

// RebindQuestionNumbered turns $N placeholders into ?N ones.
func RebindQuestionNumbered(query string) string {
	return dollarPlaceholder.ReplaceAllString(query, "?$1")
}

// New wraps an opened database.
func New(database *sql.DB, dialect Dialect, optionsProto ...InitOption) *Store {
	result := &Store{
		database: database,
		dialect:  dialect,
		now:      time.Now,
	}
	for _, protoOption := range optionsProto {
		protoOption(result)
	}

	return result
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.database
}

func (s *Store) q(query string) string {
	if s.dialect.Rebind == nil {
		return query
	}
	return s.dialect.Rebind(query)
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC()
}

// CreateUser inserts a user and returns it with its assigned id.
// A taken username yields models.ErrDuplicateUsername.
func (s *Store) CreateUser(ctx context.Context, usr *user.User) (*user.User, error) {
	createdAt := s.timestamp()

	var id int64
	err := s.database.QueryRowContext(
		ctx,
		s.q(`INSERT INTO users (username, password_hash, created_at) VALUES ($1, $2, $3) RETURNING id`),
		usr.Username,
		usr.PasswordHash,
		createdAt,
	).Scan(&id)
	if err != nil {
		if s.dialect.IsUniqueViolation != nil && s.dialect.IsUniqueViolation(err) {
			return nil, models.ErrDuplicateUsername
		}
		return nil, fmt.Errorf(
			"in internal/db/sqlstore/sqlstore.go/CreateUser(): error while `QueryRowContext().Scan()` calling: %w",
			err,
		)
	}

	return &user.User{
		ID:           id,
		Username:     usr.Username,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    createdAt,
	}, nil
}

// GetUserByUsername fetches a user including the password digest.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*user.User, error) {
	usr := &user.User{}
	err := s.database.QueryRowContext(
		ctx,
		s.q(`SELECT id, username, password_hash, created_at FROM users WHERE username = $1`),
		username,
	).Scan(&usr.ID, &usr.Username, &usr.PasswordHash, &usr.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf(
			"in internal/db/sqlstore/sqlstore.go/GetUserByUsername(): error while `QueryRowContext().Scan()` calling: %w",
			err,
		)
	}

	return usr, nil
}

// CreateEssay inserts an essay and returns the stored row.
func (s *Store) CreateEssay(ctx context.Context, e *essay.Essay) (*essay.Essay, error) {
	createdAt := s.timestamp()

	var id int64
	err := s.database.QueryRowContext(
		ctx,
		s.q(`
			INSERT INTO essays (title, content, user_id, is_public, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6)
				RETURNING id
		`),
		e.Title,
		e.Content,
		nullableID(e.UserID),
		e.IsPublic,
		createdAt,
		createdAt,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf(
			"in internal/db/sqlstore/sqlstore.go/CreateEssay(): error while `QueryRowContext().Scan()` calling: %w",
			err,
		)
	}

	return s.GetEssay(ctx, id)
}

// GetEssay fetches one essay by id.
func (s *Store) GetEssay(ctx context.Context, id int64) (*essay.Essay, error) {
	row := s.database.QueryRowContext(
		ctx,
		s.q(`SELECT `+essayColumns+` FROM essays WHERE id = $1`),
		id,
	)
	result, err := scanEssay(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf(
			"in internal/db/sqlstore/sqlstore.go/GetEssay(): error while `scanEssay()` calling: %w",
			err,
		)
	}

	return result, nil
}

// ListPublicEssays returns public essays, newest first.
func (s *Store) ListPublicEssays(ctx context.Context) ([]essay.Essay, error) {
	return s.listEssays(
		ctx,
		`SELECT `+essayColumns+` FROM essays WHERE is_public = $1 ORDER BY created_at DESC, id DESC`,
		true,
	)
}

// ListEssaysByOwner returns every essay of userID regardless of visibility, newest first.
func (s *Store) ListEssaysByOwner(ctx context.Context, userID int64) ([]essay.Essay, error) {
	return s.listEssays(
		ctx,
		`SELECT `+essayColumns+` FROM essays WHERE user_id = $1 ORDER BY created_at DESC, id DESC`,
		userID,
	)
}

// UpdateEssay overwrites the caller-controlled columns and returns the stored row.
func (s *Store) UpdateEssay(ctx context.Context, id int64, fields essay.Fields) (*essay.Essay, error) {
	result, err := s.database.ExecContext(
		ctx,
		s.q(`UPDATE essays SET title = $1, content = $2, is_public = $3, updated_at = $4 WHERE id = $5`),
		fields.Title,
		fields.Content,
		fields.IsPublic,
		s.timestamp(),
		id,
	)
	if err != nil {
		return nil, fmt.Errorf(
			"in internal/db/sqlstore/sqlstore.go/UpdateEssay(): error while `s.database.ExecContext()` calling: %w",
			err,
		)
	}
	if err := expectAffected(result); err != nil {
		return nil, err
	}

	return s.GetEssay(ctx, id)
}

// DeleteEssay removes an essay.
func (s *Store) DeleteEssay(ctx context.Context, id int64) error {
	result, err := s.database.ExecContext(ctx, s.q(`DELETE FROM essays WHERE id = $1`), id)
	if err != nil {
		return fmt.Errorf(
			"in internal/db/sqlstore/sqlstore.go/DeleteEssay(): error while `s.database.ExecContext()` calling: %w",
			err,
		)
	}

	return expectAffected(result)
}

// GetEssayOwner returns the owner id of an essay, nil for ownerless essays.
func (s *Store) GetEssayOwner(ctx context.Context, id int64) (*int64, error) {
	var owner sql.NullInt64
	err := s.database.QueryRowContext(ctx, s.q(`SELECT user_id FROM essays WHERE id = $1`), id).Scan(&owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf(
			"in internal/db/sqlstore/sqlstore.go/GetEssayOwner(): error while `QueryRowContext().Scan()` calling: %w",
			err,
		)
	}

	if !owner.Valid {
		return nil, nil
	}
	return &owner.Int64, nil
}

// GetNumberOfUsers counts registered users.
func (s *Store) GetNumberOfUsers(ctx context.Context) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM users`)
}

// GetNumberOfEssays counts stored essays.
func (s *Store) GetNumberOfEssays(ctx context.Context) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM essays`)
}

// Ping verifies connectivity with the database.
func (s *Store) Ping(ctx context.Context) error {
	return s.database.PingContext(ctx)
}

// Close closes the database connection and releases any associated resources.
func (s *Store) Close() error {
	return s.database.Close()
}

func (s *Store) count(ctx context.Context, query string) (int64, error) {
	var result int64
	if err := s.database.QueryRowContext(ctx, s.q(query)).Scan(&result); err != nil {
		return 0, fmt.Errorf(
			"in internal/db/sqlstore/sqlstore.go/count(): error while `QueryRowContext().Scan()` calling: %w",
			err,
		)
	}

	return result, nil
}

func (s *Store) listEssays(ctx context.Context, query string, args ...any) ([]essay.Essay, error) {
	rows, err := s.database.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf(
			"in internal/db/sqlstore/sqlstore.go/listEssays(): error while `s.database.QueryContext()` calling: %w",
			err,
		)
	}
	defer rows.Close()

	result := []essay.Essay{}
	for rows.Next() {
		e, err := scanEssay(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func scanEssay(row rowScanner) (*essay.Essay, error) {
	var (
		result essay.Essay
		owner  sql.NullInt64
	)
	err := row.Scan(
		&result.ID,
		&result.Title,
		&result.Content,
		&owner,
		&result.IsPublic,
		&result.CreatedAt,
		&result.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if owner.Valid {
		id := owner.Int64
		result.UserID = &id
	}
	result.CreatedAt = result.CreatedAt.UTC()
	result.UpdatedAt = result.UpdatedAt.UTC()

	return &result, nil
}

func expectAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf(
			"in internal/db/sqlstore/sqlstore.go/expectAffected(): error while `result.RowsAffected()` calling: %w",
			err,
		)
	}
	if affected == 0 {
		return models.ErrNotFound
	}

	return nil
}

func nullableID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}
