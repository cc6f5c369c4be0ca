package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, Migrate(db.Pool))
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Migrate(db.Pool))

	var v int
	require.NoError(t, db.Pool.QueryRow(`PRAGMA user_version;`).Scan(&v))
	assert.Equal(t, 1, v)
}

func TestInsertAndListLookups(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	result, _ := json.Marshal(map[string]any{"apn": "123-45-678"})
	id, err := InsertLookup(ctx, db.Pool, Lookup{
		Kind: "identifier", Query: "123-45-678", Source: "parcels",
		Matched: true, Score: 100, Result: result,
	})
	require.NoError(t, err)
	assert.Positive(t, id)

	_, err = InsertLookup(ctx, db.Pool, Lookup{Kind: "address", Query: "100 N 31st Ave"})
	require.NoError(t, err)

	all, err := ListLookups(ctx, db.Pool, ListLookupsOpts{Window: "all"})
	require.NoError(t, err)
	require.Len(t, all, 2)
	// newest first; same timestamp falls back to id order
	assert.Equal(t, "address", all[0].Kind)
	assert.True(t, all[1].Matched)
	assert.JSONEq(t, string(result), string(all[1].Result))

	byKind, err := ListLookups(ctx, db.Pool, ListLookupsOpts{Kind: "identifier", Window: "all"})
	require.NoError(t, err)
	require.Len(t, byKind, 1)
	assert.Equal(t, "123-45-678", byKind[0].Query)
}

func TestCleanupOldLookups(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := InsertLookup(ctx, db.Pool, Lookup{Kind: "search", Query: "old", CreatedAt: "2020-01-01T00:00:00Z"})
	require.NoError(t, err)
	_, err = InsertLookup(ctx, db.Pool, Lookup{Kind: "search", Query: "fresh"})
	require.NoError(t, err)

	n, err := CleanupOldLookups(db.Pool)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	left, err := ListLookups(ctx, db.Pool, ListLookupsOpts{Window: "all"})
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "fresh", left[0].Query)
}

func TestDocumentCacheRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, ok, err := CachedDocument(ctx, db.Pool, "https://notices.example.com/a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, CacheDocument(ctx, db.Pool, "https://notices.example.com/a", "<html>a</html>"))

	body, ok, err := CachedDocument(ctx, db.Pool, "https://notices.example.com/a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "<html>a</html>", body)
}

func TestDocumentCacheExpiry(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, CacheDocument(ctx, db.Pool, "https://notices.example.com/b", "body"))
	_, err := db.Pool.Exec(`UPDATE documents SET fetched_at = '2020-01-01T00:00:00Z';`)
	require.NoError(t, err)

	_, ok, err := CachedDocument(ctx, db.Pool, "https://notices.example.com/b")
	require.NoError(t, err)
	assert.False(t, ok, "entries past the TTL are not reused")

	n, err := CleanupOldDocuments(db.Pool)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
