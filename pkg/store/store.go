// Package store persists generated results keyed by hotel id.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/pario-ai/propgen/pkg/config"
)

// Writer upserts result rows and resets result tables.
type Writer interface {
	// Upsert inserts the row for hotelID or replaces the given columns.
	Upsert(ctx context.Context, table string, hotelID int64, fields map[string]any) error
	// Reset empties table and restarts its identity sequence.
	Reset(ctx context.Context, table string) error
}

// StorageError reports a failed reset or write.
type StorageError struct {
	Op    string
	Table string
	Err   error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Table, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ErrUnknownColumn is wrapped when a write names a column outside the table
// schema.
var ErrUnknownColumn = errors.New("unknown column")

// ErrUnknownTable is wrapped when a table is not a registered result table.
var ErrUnknownTable = errors.New("unknown table")

// DB is a Writer over database/sql for postgres or sqlite.
type DB struct {
	db      *sql.DB
	dialect dialect
	tables  map[string]Table
}

// Open connects to the destination described by cfg and creates every
// result table that does not exist yet.
func Open(cfg config.DestinationConfig) (*DB, error) {
	var d dialect
	switch cfg.Driver {
	case "sqlite", "":
		d = sqliteDialect{}
	case "postgres":
		d = postgresDialect{}
	default:
		return nil, fmt.Errorf("destination: unknown driver %q", cfg.Driver)
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("destination: dsn is required")
	}

	db, err := sql.Open(d.driver(), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open destination db: %w", err)
	}
	if d.driver() == "sqlite" {
		db.SetMaxOpenConns(1)
	}

	s := &DB{db: db, dialect: d, tables: make(map[string]Table)}
	for _, t := range Tables {
		if _, err := db.Exec(d.createTable(t)); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate destination db: %w", err)
		}
		s.tables[t.Name] = t
	}
	return s, nil
}

// Close closes the database.
func (s *DB) Close() error {
	return s.db.Close()
}

// Upsert implements Writer.
func (s *DB) Upsert(ctx context.Context, table string, hotelID int64, fields map[string]any) error {
	t, err := s.table(table)
	if err != nil {
		return &StorageError{Op: "upsert", Table: table, Err: err}
	}

	cols := make([]string, 0, len(fields))
	for c := range fields {
		if !t.Has(c) {
			return &StorageError{Op: "upsert", Table: table, Err: fmt.Errorf("%w %q", ErrUnknownColumn, c)}
		}
		cols = append(cols, c)
	}
	sort.Strings(cols)

	names := append([]string{"hotel_id"}, cols...)
	args := make([]any, 0, len(names))
	args = append(args, hotelID)
	for _, c := range cols {
		args = append(args, fields[c])
	}

	quoted := make([]string, len(names))
	marks := make([]string, len(names))
	for i, n := range names {
		quoted[i] = s.dialect.quote(n)
		marks[i] = s.dialect.placeholder(i + 1)
	}

	var conflict string
	if len(cols) == 0 {
		conflict = "DO NOTHING"
	} else {
		sets := make([]string, 0, len(cols)+1)
		for _, c := range cols {
			q := s.dialect.quote(c)
			sets = append(sets, fmt.Sprintf("%s = excluded.%s", q, q))
		}
		sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
		conflict = "DO UPDATE SET " + strings.Join(sets, ", ")
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (hotel_id) %s",
		s.dialect.quote(t.Name), strings.Join(quoted, ", "), strings.Join(marks, ", "), conflict)
	if _, err := s.db.ExecContext(ctx, stmt, args...); err != nil {
		return &StorageError{Op: "upsert", Table: table, Err: err}
	}
	return nil
}

// Reset implements Writer. It runs in one transaction.
func (s *DB) Reset(ctx context.Context, table string) error {
	t, err := s.table(table)
	if err != nil {
		return &StorageError{Op: "reset", Table: table, Err: err}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &StorageError{Op: "reset", Table: table, Err: err}
	}
	for _, stmt := range s.dialect.reset(t) {
		if _, err := tx.ExecContext(ctx, stmt.query, stmt.args...); err != nil {
			tx.Rollback()
			return &StorageError{Op: "reset", Table: table, Err: err}
		}
	}
	if err := tx.Commit(); err != nil {
		return &StorageError{Op: "reset", Table: table, Err: err}
	}
	return nil
}

// Get returns the stored columns for hotelID, or nil if there is no row.
func (s *DB) Get(ctx context.Context, table string, hotelID int64) (map[string]any, error) {
	t, err := s.table(table)
	if err != nil {
		return nil, err
	}
	quoted := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		quoted[i] = s.dialect.quote(c.Name)
	}
	q := fmt.Sprintf("SELECT %s FROM %s WHERE hotel_id = %s",
		strings.Join(quoted, ", "), s.dialect.quote(t.Name), s.dialect.placeholder(1))

	vals := make([]any, len(t.Columns))
	dest := make([]any, len(t.Columns))
	for i := range vals {
		dest[i] = &vals[i]
	}
	err = s.db.QueryRowContext(ctx, q, hotelID).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%d: %w", table, hotelID, err)
	}

	out := make(map[string]any, len(t.Columns))
	for i, c := range t.Columns {
		if b, ok := vals[i].([]byte); ok {
			vals[i] = string(b)
		}
		out[c.Name] = vals[i]
	}
	return out, nil
}

// Count returns the number of rows in table.
func (s *DB) Count(ctx context.Context, table string) (int, error) {
	t, err := s.table(table)
	if err != nil {
		return 0, err
	}
	var n int
	err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+s.dialect.quote(t.Name)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

func (s *DB) table(name string) (Table, error) {
	t, ok := s.tables[name]
	if !ok {
		return Table{}, fmt.Errorf("%w %q", ErrUnknownTable, name)
	}
	return t, nil
}

type statement struct {
	query string
	args  []any
}

type dialect interface {
	driver() string
	quote(ident string) string
	placeholder(n int) string
	createTable(t Table) string
	reset(t Table) []statement
}

type sqliteDialect struct{}

func (sqliteDialect) driver() string { return "sqlite" }

func (sqliteDialect) quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (sqliteDialect) placeholder(int) string { return "?" }

func (d sqliteDialect) createTable(t Table) string {
	cols := []string{
		"id INTEGER PRIMARY KEY AUTOINCREMENT",
		"hotel_id INTEGER NOT NULL UNIQUE",
	}
	for _, c := range t.Columns {
		typ := "TEXT"
		switch c.Type {
		case Real:
			typ = "REAL"
		case Integer:
			typ = "INTEGER"
		}
		cols = append(cols, d.quote(c.Name)+" "+typ)
	}
	cols = append(cols, "updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP")
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", d.quote(t.Name), strings.Join(cols, ",\n\t"))
}

func (d sqliteDialect) reset(t Table) []statement {
	return []statement{
		{query: "DELETE FROM " + d.quote(t.Name)},
		{query: "DELETE FROM sqlite_sequence WHERE name = ?", args: []any{t.Name}},
	}
}

type postgresDialect struct{}

func (postgresDialect) driver() string { return "postgres" }

func (postgresDialect) quote(ident string) string { return pq.QuoteIdentifier(ident) }

func (postgresDialect) placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (d postgresDialect) createTable(t Table) string {
	cols := []string{
		"id BIGSERIAL PRIMARY KEY",
		"hotel_id BIGINT NOT NULL UNIQUE",
	}
	for _, c := range t.Columns {
		typ := "TEXT"
		switch c.Type {
		case Real:
			typ = "DOUBLE PRECISION"
		case Integer:
			typ = "BIGINT"
		}
		cols = append(cols, d.quote(c.Name)+" "+typ)
	}
	cols = append(cols, "updated_at TIMESTAMPTZ NOT NULL DEFAULT now()")
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", d.quote(t.Name), strings.Join(cols, ",\n\t"))
}

func (d postgresDialect) reset(t Table) []statement {
	return []statement{
		{query: "TRUNCATE TABLE " + d.quote(t.Name) + " RESTART IDENTITY CASCADE"},
	}
}
