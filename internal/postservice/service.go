// Package postservice runs the "post block as thread" command and the
// outline and settings operations behind the HTTP, CLI and MCP surfaces.
package postservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/starford/skythread/internal/annotator"
	"github.com/starford/skythread/internal/apperr"
	"github.com/starford/skythread/internal/bluesky"
	"github.com/starford/skythread/internal/media"
	"github.com/starford/skythread/internal/metrics"
	"github.com/starford/skythread/internal/models"
	"github.com/starford/skythread/internal/outline"
	"github.com/starford/skythread/internal/publisher"
	"github.com/starford/skythread/internal/settings"
	"github.com/starford/skythread/internal/sse"
	"github.com/starford/skythread/internal/thread"
	"github.com/starford/skythread/pkg/clock"
)

// DefaultHotkey is the browser host's default binding for the post command.
const DefaultHotkey = "ctrl+shift+b"

// Notifier shows toasts to the user. The SSE broker implements it.
type Notifier interface {
	PublishToast(sse.Toast)
}

// Deps are the collaborators of a Service. Notifier, Metrics, Clock and
// Logger may be nil.
type Deps struct {
	Outline       outline.Repository
	Settings      *settings.Store
	Client        bluesky.Client
	Uploader      *media.Uploader
	Notifier      Notifier
	Metrics       *metrics.Metrics
	Clock         clock.Clock
	Logger        *slog.Logger
	MaxPostLength int
	Hotkey        string
}

// Service coordinates the pipeline stages for one command at a time.
type Service struct {
	outline   outline.Repository
	settings  *settings.Store
	assembler *thread.Assembler
	publisher *publisher.Publisher
	annotator *annotator.Annotator
	notifier  Notifier
	metrics   *metrics.Metrics
	logger    *slog.Logger
	hotkey    string

	busy atomic.Bool
}

// New wires a Service.
func New(d Deps) *Service {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := d.Clock
	if c == nil {
		c = clock.System{}
	}
	uploader := d.Uploader
	if uploader == nil {
		uploader = media.NewUploader(media.Config{}, d.Metrics, logger)
	}
	hotkey := d.Hotkey
	if hotkey == "" {
		hotkey = DefaultHotkey
	}
	return &Service{
		outline:   d.Outline,
		settings:  d.Settings,
		assembler: thread.NewAssembler(d.Outline, d.Client, d.MaxPostLength, logger),
		publisher: publisher.New(d.Client, uploader,
			publisher.WithClock(c),
			publisher.WithMetrics(d.Metrics),
			publisher.WithLogger(logger)),
		annotator: annotator.New(d.Outline, c, logger),
		notifier:  d.Notifier,
		metrics:   d.Metrics,
		logger:    logger,
		hotkey:    hotkey,
	}
}

// Post publishes the block and its children as a thread. Only one Post runs
// at a time; a concurrent call fails with apperr.ErrPublishInProgress.
func (s *Service) Post(ctx context.Context, blockID string) (models.PublishResult, error) {
	if !s.busy.CompareAndSwap(false, true) {
		s.toast(sse.LevelError, apperr.ErrPublishInProgress.Error(), "")
		return models.PublishResult{}, apperr.ErrPublishInProgress
	}
	defer s.busy.Store(false)

	opID := uuid.NewString()
	start := time.Now()
	logger := s.logger.With(slog.String("operation_id", opID), slog.String("block_id", blockID))

	res, err := s.post(ctx, logger, blockID)
	res.OperationID = opID

	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = apperr.Kind(err)
	}
	s.metrics.PublishFinished(outcome, time.Since(start))

	if err != nil {
		logger.Warn("post: failed", slog.String("kind", outcome), slog.String("error", err.Error()))
		s.toast(sse.LevelError, err.Error(), opID)
		return res, err
	}
	logger.Info("post: done", slog.Int("posts", len(res.Posts)), slog.String("root", res.Root.URI))
	s.toast(sse.LevelSuccess, fmt.Sprintf("Thread posted (%d posts)", len(res.Posts)), opID)
	return res, nil
}

func (s *Service) post(ctx context.Context, logger *slog.Logger, blockID string) (models.PublishResult, error) {
	cred, ok, err := s.settings.Credential()
	if err != nil {
		return models.PublishResult{}, err
	}
	if !ok {
		return models.PublishResult{}, apperr.ErrNoCredential
	}
	appendSettings, err := s.settings.AppendSettings()
	if err != nil {
		return models.PublishResult{}, err
	}

	blocks, err := s.assembler.Assemble(ctx, blockID)
	if err != nil {
		return models.PublishResult{}, err
	}

	s.toast(sse.LevelInfo, fmt.Sprintf("Posting thread of %d blocks", len(blocks)), "")
	res, err := s.publisher.Publish(ctx, cred, blocks)
	if err != nil {
		return res, err
	}

	if appendSettings.Enabled {
		if aErr := s.annotator.Annotate(context.WithoutCancel(ctx), blockID, appendSettings); aErr != nil {
			logger.Warn("post: annotate failed", slog.String("error", aErr.Error()))
		} else {
			res.Annotated = true
		}
	}
	return res, nil
}

// ThreadPreview is the thread that Post would publish, with any length
// violations listed instead of returned as an error.
type ThreadPreview struct {
	Posts      []models.ProcessedBlock `json:"posts"`
	Limit      int                     `json:"limit"`
	Violations []apperr.Violation      `json:"violations"`
}

// Preview assembles the thread without publishing.
func (s *Service) Preview(ctx context.Context, blockID string) (*ThreadPreview, error) {
	blocks, err := s.assembler.Process(ctx, blockID)
	if err != nil {
		return nil, err
	}
	p := &ThreadPreview{Posts: blocks, Limit: s.assembler.Limit(), Violations: []apperr.Violation{}}
	var valErr *apperr.ValidationError
	if err := s.assembler.Validate(blocks); errors.As(err, &valErr) {
		p.Violations = valErr.Violations
	}
	return p, nil
}

func (s *Service) toast(level, msg, opID string) {
	if s.notifier == nil {
		return
	}
	s.notifier.PublishToast(sse.Toast{Level: level, Message: msg, OperationID: opID})
}
