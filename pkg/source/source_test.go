package source

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pario-ai/propgen/pkg/config"
)

func seedHotels(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hotels.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE hotels (
		id INTEGER PRIMARY KEY,
		location TEXT,
		property_title TEXT,
		hotel_id INTEGER,
		price TEXT,
		rating REAL,
		address TEXT,
		latitude REAL,
		longitude REAL,
		room_type TEXT
	)`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO hotels VALUES
		(2, NULL, NULL, NULL, NULL, NULL, NULL, NULL, NULL, NULL),
		(1, 'New York', 'Test Hotel', 123, '199.5', 4.5, '1 Main St', 40.7, -74.0, 'Suite'),
		(3, 'Paris', 'Rive Gauche', 456, NULL, NULL, NULL, NULL, NULL, 'Double')`)
	require.NoError(t, err)
	return path
}

func TestSQLiteFetch(t *testing.T) {
	path := seedHotels(t)
	src, err := Open(context.Background(), config.SourceConfig{Driver: "sqlite", DSN: path, Table: "hotels"})
	require.NoError(t, err)
	defer src.Close()

	hotels, err := src.Fetch(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, hotels, 3)

	first := hotels[0]
	assert.Equal(t, int64(1), first.ID)
	require.NotNil(t, first.Title)
	assert.Equal(t, "Test Hotel", *first.Title)
	key, ok := first.Key()
	assert.True(t, ok)
	assert.Equal(t, int64(123), key)
	require.NotNil(t, first.Price)
	assert.InDelta(t, 199.5, *first.Price, 1e-9)
	require.NotNil(t, first.Longitude)
	assert.InDelta(t, -74.0, *first.Longitude, 1e-9)

	blank := hotels[1]
	assert.Equal(t, int64(2), blank.ID)
	assert.Nil(t, blank.Location)
	assert.Nil(t, blank.HotelID)
	assert.Nil(t, blank.Price)
	_, ok = blank.Key()
	assert.False(t, ok)

	assert.Equal(t, int64(3), hotels[2].ID)
	assert.Nil(t, hotels[2].Rating)
}

func TestSQLiteFetchLimit(t *testing.T) {
	path := seedHotels(t)
	src, err := NewSQLite(path, "hotels")
	require.NoError(t, err)
	defer src.Close()

	hotels, err := src.Fetch(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, hotels, 2)
	assert.Equal(t, int64(1), hotels[0].ID)
	assert.Equal(t, int64(2), hotels[1].ID)
}

func TestSQLiteMissingTable(t *testing.T) {
	path := seedHotels(t)
	src, err := NewSQLite(path, "properties")
	require.NoError(t, err)
	defer src.Close()

	_, err = src.Fetch(context.Background(), 0)
	assert.Error(t, err)
}

func TestOpenRejectsBadInput(t *testing.T) {
	ctx := context.Background()

	_, err := Open(ctx, config.SourceConfig{Driver: "sqlite", DSN: "x.db", Table: "hotels; DROP TABLE hotels"})
	assert.Error(t, err)

	_, err = Open(ctx, config.SourceConfig{Driver: "mysql", DSN: "x"})
	assert.Error(t, err)

	_, err = Open(ctx, config.SourceConfig{Driver: "postgres"})
	assert.Error(t, err)
}

func TestSelectQuery(t *testing.T) {
	q := selectQuery("public.hotels", pgCast, 10)
	assert.Contains(t, q, "price::float8")
	assert.Contains(t, q, "hotel_id::bigint")
	assert.Contains(t, q, "FROM public.hotels ORDER BY id LIMIT 10")

	q = selectQuery("hotels", sqliteCast, 0)
	assert.Contains(t, q, "CAST(rating AS REAL)")
	assert.NotContains(t, q, "LIMIT")
}
