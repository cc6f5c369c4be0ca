package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"strings"
	"time"
)

// DocCacheTTL bounds how long a cached notice document is reused before a
// refetch. County pages change slowly; an hour keeps repeated searches from
// hitting the same site.
const DocCacheTTL = time.Hour

func docKey(u string) string {
	h := sha256.Sum256([]byte(u))
	return hex.EncodeToString(h[:])
}

// CachedDocument returns the cached body for url, or ok=false when the
// entry is absent or older than DocCacheTTL.
func CachedDocument(ctx context.Context, db *sql.DB, url string) (body string, ok bool, err error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return "", false, nil
	}

	var fetchedAt string
	err = db.QueryRowContext(ctx, `
SELECT body, fetched_at FROM documents WHERE key = ? LIMIT 1;`, docKey(url)).Scan(&body, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	at, perr := time.Parse(time.RFC3339, fetchedAt)
	if perr != nil || time.Since(at) > DocCacheTTL {
		return "", false, nil
	}
	return body, true, nil
}

// CacheDocument stores a fetched document body, replacing any stale entry.
func CacheDocument(ctx context.Context, db *sql.DB, url, body string) error {
	url = strings.TrimSpace(url)
	if url == "" || body == "" {
		return nil
	}
	// Oversized bodies are not worth caching.
	const max = 2 << 20
	if len(body) > max {
		return nil
	}
	_, err := db.ExecContext(ctx, `
INSERT OR REPLACE INTO documents(key, url, body, fetched_at)
VALUES(?,?,?,?);`,
		docKey(url), url, body, time.Now().UTC().Format(time.RFC3339))
	return err
}

// CleanupOldDocuments drops cache entries past the TTL.
func CleanupOldDocuments(db *sql.DB) (deleted int64, err error) {
	res, err := db.Exec(`
DELETE FROM documents
WHERE fetched_at < datetime('now', '-1 day');
`)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}
