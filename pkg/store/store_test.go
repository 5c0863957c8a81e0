package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pario-ai/propgen/pkg/config"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(config.DestinationConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "dest.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestUpsertInsertsThenReplaces(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	err := db.Upsert(ctx, "regenerated_titles", 123, map[string]any{
		"original_title":    "Test Hotel",
		"regenerated_title": "Generated Title",
		"location":          "New York",
		"price":             nil,
	})
	require.NoError(t, err)

	err = db.Upsert(ctx, "regenerated_titles", 123, map[string]any{
		"original_title":    "Test Hotel",
		"regenerated_title": "Second Title",
	})
	require.NoError(t, err)

	n, err := db.Count(ctx, "regenerated_titles")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	row, err := db.Get(ctx, "regenerated_titles", 123)
	require.NoError(t, err)
	assert.Equal(t, "Second Title", row["regenerated_title"])
	assert.Equal(t, "New York", row["location"], "columns not named keep their value")
	assert.Nil(t, row["price"])
}

func TestGetMissingRow(t *testing.T) {
	db := newTestDB(t)
	row, err := db.Get(context.Background(), "summaries", 9)
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestUpsertRejectsUnknownColumn(t *testing.T) {
	db := newTestDB(t)
	err := db.Upsert(context.Background(), "summaries", 1, map[string]any{"summary": "ok", "bogus": "x"})
	require.Error(t, err)

	var se *StorageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "upsert", se.Op)
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestUpsertRejectsUnknownTable(t *testing.T) {
	db := newTestDB(t)
	err := db.Upsert(context.Background(), "hotels", 1, map[string]any{})
	assert.ErrorIs(t, err, ErrUnknownTable)
}

func TestResetClearsTableAndSequence(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for _, id := range []int64{10, 11, 12} {
		require.NoError(t, db.Upsert(ctx, "summaries", id, map[string]any{"summary": "s"}))
	}
	require.NoError(t, db.Reset(ctx, "summaries"))

	n, err := db.Count(ctx, "summaries")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, db.Upsert(ctx, "summaries", 99, map[string]any{"summary": "fresh"}))
	var id int64
	require.NoError(t, db.db.QueryRow(`SELECT id FROM summaries WHERE hotel_id = 99`).Scan(&id))
	assert.Equal(t, int64(1), id, "identity restarts after reset")
}

func TestResetThenWriteIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	write := func() {
		require.NoError(t, db.Reset(ctx, "ratings_and_reviews"))
		require.NoError(t, db.Upsert(ctx, "ratings_and_reviews", 5, map[string]any{"rating": 4.2, "review": "Lovely"}))
		require.NoError(t, db.Upsert(ctx, "ratings_and_reviews", 6, map[string]any{"rating": 3.0, "review": "Fine"}))
	}
	write()
	first, err := db.Get(ctx, "ratings_and_reviews", 5)
	require.NoError(t, err)
	write()
	second, err := db.Get(ctx, "ratings_and_reviews", 5)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	n, err := db.Count(ctx, "ratings_and_reviews")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestOpenIsRepeatable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dest.db")
	for i := 0; i < 2; i++ {
		db, err := Open(config.DestinationConfig{Driver: "sqlite", DSN: path})
		require.NoError(t, err)
		require.NoError(t, db.Close())
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(config.DestinationConfig{Driver: "oracle", DSN: "x"})
	assert.Error(t, err)
}

func TestPostgresDialect(t *testing.T) {
	d := postgresDialect{}
	ddl := d.createTable(RatingsAndReviews)
	assert.Contains(t, ddl, `CREATE TABLE IF NOT EXISTS "ratings_and_reviews"`)
	assert.Contains(t, ddl, `"rating" DOUBLE PRECISION`)
	assert.Contains(t, ddl, "hotel_id BIGINT NOT NULL UNIQUE")
	assert.Equal(t, "$3", d.placeholder(3))

	stmts := d.reset(Summaries)
	require.Len(t, stmts, 1)
	assert.True(t, strings.HasSuffix(stmts[0].query, "RESTART IDENTITY CASCADE"))
}

func TestTableHas(t *testing.T) {
	assert.True(t, TitleAndDescriptions.Has("description"))
	assert.False(t, TitleAndDescriptions.Has("hotel_id"))
}
