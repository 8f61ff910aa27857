// Package annotator appends a "sent on" note to a block after its thread
// has been posted.
package annotator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/starford/skythread/internal/apperr"
	"github.com/starford/skythread/internal/models"
	"github.com/starford/skythread/pkg/clock"
)

// TextStore reads and rewrites block text.
type TextStore interface {
	BlockText(ctx context.Context, id string) (string, bool, error)
	UpdateBlockText(ctx context.Context, id, text string) error
}

// Annotator writes the date note.
type Annotator struct {
	store  TextStore
	clock  clock.Clock
	logger *slog.Logger
}

// New creates an Annotator. c may be nil for the wall clock.
func New(store TextStore, c clock.Clock, logger *slog.Logger) *Annotator {
	if c == nil {
		c = clock.System{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Annotator{store: store, clock: c, logger: logger}
}

// Annotate appends the rendered template to the block's current text. It is
// a no-op when the setting is disabled. Failures are *apperr.AnnotationWriteError.
func (a *Annotator) Annotate(ctx context.Context, blockID string, s models.ThreadAppendSettings) error {
	if !s.Enabled {
		return nil
	}
	note := Render(s.Template, a.clock.Now())

	current, ok, err := a.store.BlockText(ctx, blockID)
	if err != nil {
		return &apperr.AnnotationWriteError{BlockID: blockID, Cause: err}
	}
	if !ok {
		return &apperr.AnnotationWriteError{BlockID: blockID, Cause: apperr.ErrNotFound}
	}
	if err := a.store.UpdateBlockText(ctx, blockID, current+" "+note); err != nil {
		return &apperr.AnnotationWriteError{BlockID: blockID, Cause: err}
	}
	a.logger.Debug("annotator: appended note", slog.String("block_id", blockID))
	return nil
}

// Render substitutes every {DATE} in template. An empty template uses the
// default.
func Render(template string, t time.Time) string {
	if template == "" {
		template = models.DefaultAppendTemplate
	}
	return strings.ReplaceAll(template, models.DatePlaceholder, DailyNoteLink(t))
}

// DailyNoteLink formats t as a daily-note page link: [[October 17th, 2026]].
func DailyNoteLink(t time.Time) string {
	return fmt.Sprintf("[[%s %d%s, %d]]", t.Month(), t.Day(), ordinal(t.Day()), t.Year())
}

func ordinal(day int) string {
	if day%100 >= 11 && day%100 <= 13 {
		return "th"
	}
	switch day % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	default:
		return "th"
	}
}
