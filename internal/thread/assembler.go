// Package thread turns an outline block and its children into an ordered,
// length-validated sequence of posts.
package thread

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/starford/skythread/internal/apperr"
	"github.com/starford/skythread/internal/models"
	"github.com/starford/skythread/internal/outline"
	"github.com/starford/skythread/internal/resolver"
	"github.com/starford/skythread/internal/richtext"
)

// MaxPostLength is the network's per-post limit in graphemes.
const MaxPostLength = 300

const maxParallel = 8

// Assembler runs the resolver and compiler over a block and its children.
type Assembler struct {
	store    outline.Store
	resolver *resolver.Resolver
	compiler *richtext.Compiler
	limit    int
	logger   *slog.Logger
}

// NewAssembler creates an Assembler. handles may be nil, in which case
// mentions are not annotated. limit <= 0 uses MaxPostLength.
func NewAssembler(store outline.Store, handles richtext.HandleResolver, limit int, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	if limit <= 0 {
		limit = MaxPostLength
	}
	return &Assembler{
		store:    store,
		resolver: resolver.New(store, logger),
		compiler: richtext.NewCompiler(handles, logger),
		limit:    limit,
		logger:   logger,
	}
}

// Assemble returns the processed root followed by its children in sibling
// order. If any post is over the limit it returns a *apperr.ValidationError
// listing every offender and no blocks.
func (a *Assembler) Assemble(ctx context.Context, rootID string) ([]models.ProcessedBlock, error) {
	blocks, err := a.Process(ctx, rootID)
	if err != nil {
		return nil, err
	}
	if err := a.Validate(blocks); err != nil {
		return nil, err
	}
	a.logger.Debug("thread: assembled",
		slog.String("block_id", rootID),
		slog.Int("posts", len(blocks)))
	return blocks, nil
}

// Process resolves and compiles the root and its children without checking
// lengths.
func (a *Assembler) Process(ctx context.Context, rootID string) ([]models.ProcessedBlock, error) {
	root, err := a.store.FetchBlockWithChildren(ctx, rootID)
	if err != nil {
		return nil, err
	}

	texts := make([]string, 0, len(root.Children)+1)
	texts = append(texts, root.Text)
	for _, c := range root.Children {
		texts = append(texts, c.Text)
	}

	blocks := make([]models.ProcessedBlock, len(texts))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)
	for i, raw := range texts {
		g.Go(func() error {
			blocks[i] = a.process(gCtx, i, raw)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("thread: assemble: %w", err)
	}
	return blocks, nil
}

func (a *Assembler) process(ctx context.Context, pos int, raw string) models.ProcessedBlock {
	resolved := a.resolver.Resolve(ctx, raw)
	compiled := a.compiler.Compile(ctx, resolved.Text)
	return models.ProcessedBlock{
		Position:    pos,
		Text:        compiled.Text,
		Length:      richtext.Length(compiled.Text),
		Annotations: compiled.Annotations,
		MediaURLs:   resolved.MediaURLs,
		MediaAlts:   resolved.MediaAlts,
	}
}

// Limit is the per-post length limit in graphemes.
func (a *Assembler) Limit() int { return a.limit }

// Validate checks every block against the length limit.
func (a *Assembler) Validate(blocks []models.ProcessedBlock) error {
	var violations []apperr.Violation
	for _, b := range blocks {
		if b.Length > a.limit {
			violations = append(violations, apperr.Violation{
				Label:   b.Label(),
				Length:  b.Length,
				Overage: b.Length - a.limit,
			})
		}
	}
	if len(violations) > 0 {
		return &apperr.ValidationError{Limit: a.limit, Violations: violations}
	}
	return nil
}
