// Package source reads hotel records from the relational store that owns
// them.
package source

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/pario-ai/propgen/pkg/config"
	"github.com/pario-ai/propgen/pkg/models"
)

// Source yields hotel records ordered by id.
type Source interface {
	// Fetch returns up to limit records. A limit of zero or less returns
	// every record.
	Fetch(ctx context.Context, limit int) ([]models.Hotel, error)
	Close() error
}

var identRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Open connects to the source described by cfg.
func Open(ctx context.Context, cfg config.SourceConfig) (Source, error) {
	table := cfg.Table
	if table == "" {
		table = "hotels"
	}
	if !identRE.MatchString(table) {
		return nil, fmt.Errorf("source: invalid table name %q", table)
	}

	var (
		s   Source
		err error
	)
	switch cfg.Driver {
	case "postgres", "":
		s, err = NewPostgres(ctx, cfg.DSN, table)
	case "sqlite":
		s, err = NewSQLite(cfg.DSN, table)
	default:
		return nil, fmt.Errorf("source: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// selectQuery builds the hotel query. cast wraps a column in the dialect's
// numeric conversion so prices stored as text or numeric scan as float64.
func selectQuery(table string, cast func(col, typ string) string, limit int) string {
	cols := []string{
		cast("id", "int"),
		"location",
		"property_title",
		cast("hotel_id", "int"),
		cast("price", "float"),
		cast("rating", "float"),
		"address",
		cast("latitude", "float"),
		cast("longitude", "float"),
		"room_type",
	}
	q := fmt.Sprintf("SELECT %s FROM %s ORDER BY id", strings.Join(cols, ", "), table)
	if limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", limit)
	}
	return q
}

// scanDest returns scan targets for h in selectQuery column order. Both
// pgx and database/sql set a nil pointer for NULL.
func scanDest(h *models.Hotel) []any {
	return []any{
		&h.ID, &h.Location, &h.Title, &h.HotelID, &h.Price,
		&h.Rating, &h.Address, &h.Latitude, &h.Longitude, &h.RoomType,
	}
}
