//go:build !sqlite_fts5

package outline

import (
	"context"
	"database/sql"
	"fmt"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not compiled in; Search scans blocks.text with LIKE.
	return nil
}

// Search performs a LIKE-based search (fallback when FTS5 is not compiled in).
func (db *DB) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT uid, COALESCE(parent_uid, ''), substr(text, 1, 200)
		FROM blocks
		WHERE text LIKE ?
		ORDER BY updated_at DESC
		LIMIT ?
	`, "%"+query+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("outline: search: %w", err)
	}
	return scanResults(rows)
}
