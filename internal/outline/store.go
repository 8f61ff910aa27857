package outline

import (
	"context"

	"github.com/starford/skythread/internal/models"
)

// Store is the narrow document-store contract the publish pipeline consumes.
type Store interface {
	// FetchBlockWithChildren returns the block and its direct children ordered by Order.
	FetchBlockWithChildren(ctx context.Context, id string) (models.OutlineNode, error)
	// UpdateBlockText replaces the text of an existing block.
	UpdateBlockText(ctx context.Context, id, text string) error
	// BlockText returns the text of a block; ok is false when it does not exist.
	BlockText(ctx context.Context, id string) (text string, ok bool, err error)
}

// NewBlock describes a block to create. Empty ID generates one; nil Order
// appends after the last sibling.
type NewBlock struct {
	ID       string `json:"id,omitempty"`
	ParentID string `json:"parent_id,omitempty"`
	Text     string `json:"text"`
	Order    *int   `json:"order,omitempty"`
}

// Repository adds the host-side editing operations used by the API and MCP surfaces.
type Repository interface {
	Store
	CreateBlock(ctx context.Context, nb NewBlock) (models.OutlineNode, error)
	DeleteBlock(ctx context.Context, id string) error
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
	Close() error
}

// Verify *DB satisfies Repository at compile time.
var _ Repository = (*DB)(nil)
