package source

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/pario-ai/propgen/pkg/models"
)

// SQLite reads hotels from a SQLite database file.
type SQLite struct {
	db    *sql.DB
	table string
}

// NewSQLite opens the database at path.
func NewSQLite(path, table string) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("source: sqlite path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open source db: %w", err)
	}
	return &SQLite{db: db, table: table}, nil
}

func sqliteCast(col, typ string) string {
	if typ == "int" {
		return "CAST(" + col + " AS INTEGER)"
	}
	return "CAST(" + col + " AS REAL)"
}

// Fetch implements Source.
func (s *SQLite) Fetch(ctx context.Context, limit int) ([]models.Hotel, error) {
	rows, err := s.db.QueryContext(ctx, selectQuery(s.table, sqliteCast, limit))
	if err != nil {
		return nil, fmt.Errorf("query hotels: %w", err)
	}
	defer rows.Close()

	var out []models.Hotel
	for rows.Next() {
		var h models.Hotel
		if err := rows.Scan(scanDest(&h)...); err != nil {
			return nil, fmt.Errorf("scan hotel: %w", err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read hotels: %w", err)
	}
	return out, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
