package outline

import "database/sql"

const defaultSearchLimit = 20

// SearchResult is a block whose text matched a search query.
type SearchResult struct {
	ID       string `json:"id"`
	ParentID string `json:"parent_id,omitempty"`
	Snippet  string `json:"snippet"`
}

func scanResults(rows *sql.Rows) ([]SearchResult, error) {
	defer rows.Close()
	out := []SearchResult{}
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ID, &r.ParentID, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
