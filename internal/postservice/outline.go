package postservice

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/skythread/internal/models"
	"github.com/starford/skythread/internal/outline"
)

// GetBlock returns a block with its direct children.
func (s *Service) GetBlock(ctx context.Context, id string) (models.OutlineNode, error) {
	return s.outline.FetchBlockWithChildren(ctx, id)
}

// CreateBlock adds a block to the outline.
func (s *Service) CreateBlock(ctx context.Context, nb outline.NewBlock) (models.OutlineNode, error) {
	nb.ID = strings.TrimSpace(nb.ID)
	err := validation.ValidateStruct(&nb,
		validation.Field(&nb.ID, validation.Length(0, 64)),
		validation.Field(&nb.Order, validation.Min(0)),
	)
	if err != nil {
		return models.OutlineNode{}, err
	}
	return s.outline.CreateBlock(ctx, nb)
}

// UpdateBlock replaces a block's text.
func (s *Service) UpdateBlock(ctx context.Context, id, text string) (models.OutlineNode, error) {
	if err := s.outline.UpdateBlockText(ctx, id, text); err != nil {
		return models.OutlineNode{}, err
	}
	return s.outline.FetchBlockWithChildren(ctx, id)
}

// DeleteBlock removes a block and its descendants.
func (s *Service) DeleteBlock(ctx context.Context, id string) error {
	return s.outline.DeleteBlock(ctx, id)
}

// SearchBlocks finds blocks whose text matches query.
func (s *Service) SearchBlocks(ctx context.Context, query string, limit int) ([]outline.SearchResult, error) {
	query = strings.TrimSpace(query)
	err := validation.Validate(query, validation.Required, validation.Length(1, 200))
	if err != nil {
		return nil, err
	}
	return s.outline.Search(ctx, query, limit)
}
