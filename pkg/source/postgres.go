package source

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pario-ai/propgen/pkg/models"
)

// Postgres reads hotels through a pgx connection pool.
type Postgres struct {
	pool  *pgxpool.Pool
	table string
}

// NewPostgres connects to dsn and verifies the connection.
func NewPostgres(ctx context.Context, dsn, table string) (*Postgres, error) {
	if dsn == "" {
		return nil, fmt.Errorf("source: postgres dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect source db: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping source db: %w", err)
	}
	return &Postgres{pool: pool, table: table}, nil
}

func pgCast(col, typ string) string {
	if typ == "int" {
		return col + "::bigint"
	}
	return col + "::float8"
}

// Fetch implements Source.
func (p *Postgres) Fetch(ctx context.Context, limit int) ([]models.Hotel, error) {
	rows, err := p.pool.Query(ctx, selectQuery(p.table, pgCast, limit))
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

// Close releases the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
