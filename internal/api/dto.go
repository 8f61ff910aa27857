package api

import (
	"github.com/starford/skythread/internal/models"
	"github.com/starford/skythread/internal/outline"
	"github.com/starford/skythread/internal/postservice"
)

// CreateBlockRequest is the request body for creating a block.
type CreateBlockRequest struct {
	ID       string `json:"id,omitempty" example:"aB3dE5fG7"`
	ParentID string `json:"parent_id,omitempty" example:"xY1zW2vU3"`
	Text     string `json:"text" example:"Hello [[World]]"`
	Order    *int   `json:"order,omitempty" example:"0"`
}

// UpdateBlockRequest is the request body for replacing a block's text.
type UpdateBlockRequest struct {
	Text *string `json:"text" validate:"required"`
}

// CredentialRequest saves the posting account.
type CredentialRequest struct {
	Username string `json:"username" example:"alice.bsky.social" validate:"required"`
	Password string `json:"password" example:"xxxx-xxxx-xxxx-xxxx" validate:"required"`
}

// AppendRequest updates the date-append preference. Omitted fields are kept.
type AppendRequest struct {
	Enabled  *bool   `json:"enabled,omitempty"`
	Template *string `json:"template,omitempty" example:"sent on {DATE}"`
}

// Block is a block with its direct children.
type Block = models.OutlineNode

// PublishResult is returned by the post command.
type PublishResult = models.PublishResult

// ThreadPreview is returned by the preview endpoint.
type ThreadPreview = postservice.ThreadPreview

// Settings is the settings panel state.
type Settings = postservice.SettingsView

// SearchResult is a block matching a search query.
type SearchResult = outline.SearchResult
