package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"CompetitionScanner/internal/domain"
	"CompetitionScanner/internal/ports"
)

const table = "competitions"

var columns = []string{"id", "title", "link", "status", "categories", "difficulty", "platform", "description"}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS competitions (
		id          TEXT PRIMARY KEY,
		title       TEXT NOT NULL,
		link        TEXT NOT NULL DEFAULT '',
		status      TEXT NOT NULL,
		categories  TEXT NOT NULL DEFAULT '[]',
		difficulty  TEXT NOT NULL DEFAULT '',
		platform    TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS competitions_link_key ON competitions (link) WHERE link <> ''`,
	`CREATE INDEX IF NOT EXISTS competitions_title_idx ON competitions (title)`,
}

// SQLStore keeps competitions in Postgres or SQLite. Unlike the remote
// table, it rejects a second record with the same non-empty link.
type SQLStore struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.RecordStore = (*SQLStore)(nil)

// Open connects with driver "postgres" or "sqlite" and applies the schema.
func Open(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%s dsn: %w", driver, domain.ErrNotConfigured)
	}

	var placeholder sq.PlaceholderFormat
	switch driver {
	case "postgres":
		placeholder = sq.Dollar
	case "sqlite":
		placeholder = sq.Question
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == "sqlite" {
		db.SetMaxOpenConns(1)
	}

	store := NewSQLStore(db, placeholder)
	if err := store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLStore wires an already opened database.
func NewSQLStore(db *sql.DB, placeholder sq.PlaceholderFormat) *SQLStore {
	return &SQLStore{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(placeholder),
	}
}

// Migrate creates the table and indexes when missing.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Close releases the connection pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Search finds records whose title or link equals value.
func (s *SQLStore) Search(ctx context.Context, field domain.Field, value string) ([]domain.Competition, error) {
	var column string
	switch field {
	case domain.FieldTitle:
		column = "title"
	case domain.FieldLink:
		column = "link"
	default:
		return nil, fmt.Errorf("%w: unsearchable field %q", domain.ErrValidation, field)
	}

	query := s.builder.Select(columns...).
		From(table).
		Where(sq.Eq{column: value}).
		OrderBy("created_at", "id")
	return s.query(ctx, query)
}

// Create inserts rec under a fresh UUID.
func (s *SQLStore) Create(ctx context.Context, rec domain.Competition) (string, error) {
	categories, err := json.Marshal(nonNil(rec.Categories))
	if err != nil {
		return "", fmt.Errorf("encode categories: %w", err)
	}

	id := uuid.NewString()
	query, args, err := s.builder.Insert(table).
		Columns(columns...).
		Values(id, rec.Title, rec.Link, string(rec.Status), string(categories), rec.Difficulty, rec.Platform, rec.Description).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("link %q: %w", rec.Link, domain.ErrConflict)
		}
		return "", fmt.Errorf("insert competition: %w", err)
	}
	return id, nil
}

// Update applies patch to the record with id.
func (s *SQLStore) Update(ctx context.Context, id string, patch domain.Patch) error {
	if patch.Status == nil {
		return nil
	}

	query, args, err := s.builder.Update(table).
		Set("status", string(*patch.Status)).
		Set("updated_at", sq.Expr("CURRENT_TIMESTAMP")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update competition %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update competition %s: no such record", id)
	}
	return nil
}

// ListAll reads the table in pages of pageSize.
func (s *SQLStore) ListAll(ctx context.Context, pageSize int) ([]domain.Competition, error) {
	if pageSize <= 0 {
		pageSize = 500
	}

	var out []domain.Competition
	for offset := 0; ; offset += pageSize {
		page, err := s.query(ctx, s.builder.Select(columns...).
			From(table).
			OrderBy("created_at", "id").
			Limit(uint64(pageSize)).
			Offset(uint64(offset)))
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if len(page) < pageSize {
			return out, nil
		}
	}
}

func (s *SQLStore) query(ctx context.Context, builder sq.SelectBuilder) ([]domain.Competition, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query competitions: %w", err)
	}
	defer rows.Close()

	var out []domain.Competition
	for rows.Next() {
		var (
			rec        domain.Competition
			status     string
			categories string
		)
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.Link, &status, &categories, &rec.Difficulty, &rec.Platform, &rec.Description); err != nil {
			return nil, fmt.Errorf("scan competition: %w", err)
		}
		rec.Status = domain.Status(status)
		if err := json.Unmarshal([]byte(categories), &rec.Categories); err != nil {
			return nil, fmt.Errorf("%w: categories of %s: %v", domain.ErrParse, rec.ID, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
