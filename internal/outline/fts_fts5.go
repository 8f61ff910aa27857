//go:build sqlite_fts5

package outline

import (
	"context"
	"database/sql"
	"fmt"
)

// The external-content table mirrors blocks.text through triggers, so
// cascaded deletes and text updates keep it in sync.
const ftsSchemaSQL = `
CREATE VIRTUAL TABLE IF NOT EXISTS blocks_fts USING fts5(
	text,
	content = 'blocks',
	content_rowid = 'rowid',
	tokenize = 'unicode61 remove_diacritics 2'
);

CREATE TRIGGER IF NOT EXISTS blocks_fts_ai AFTER INSERT ON blocks BEGIN
	INSERT INTO blocks_fts(rowid, text) VALUES (new.rowid, new.text);
END;

CREATE TRIGGER IF NOT EXISTS blocks_fts_ad AFTER DELETE ON blocks BEGIN
	INSERT INTO blocks_fts(blocks_fts, rowid, text) VALUES ('delete', old.rowid, old.text);
END;

CREATE TRIGGER IF NOT EXISTS blocks_fts_au AFTER UPDATE OF text ON blocks BEGIN
	INSERT INTO blocks_fts(blocks_fts, rowid, text) VALUES ('delete', old.rowid, old.text);
	INSERT INTO blocks_fts(rowid, text) VALUES (new.rowid, new.text);
END;
`

// blocks.rowid is implicit and VACUUM may renumber it, so the index is
// rebuilt from the content table on every open.
func initFTS(conn *sql.DB) error {
	if _, err := conn.Exec(ftsSchemaSQL); err != nil {
		return err
	}
	_, err := conn.Exec(`INSERT INTO blocks_fts(blocks_fts) VALUES ('rebuild')`)
	return err
}

// Search runs an FTS5 query over block text and returns ranked hits with
// highlighted snippets.
func (db *DB) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT b.uid,
		       COALESCE(b.parent_uid, ''),
		       snippet(blocks_fts, 0, '<b>', '</b>', '...', 32)
		FROM blocks_fts
		JOIN blocks b ON b.rowid = blocks_fts.rowid
		WHERE blocks_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("outline: search: %w", err)
	}
	return scanResults(rows)
}
