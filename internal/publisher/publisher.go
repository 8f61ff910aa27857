// Package publisher posts an assembled thread: the root first, then each
// non-empty child as a reply to the previous post.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/skythread/internal/apperr"
	"github.com/starford/skythread/internal/bluesky"
	"github.com/starford/skythread/internal/media"
	"github.com/starford/skythread/internal/metrics"
	"github.com/starford/skythread/internal/models"
	"github.com/starford/skythread/pkg/clock"
)

type state int

const (
	stateInit state = iota
	stateRoot
	stateReply
	stateDone
	stateFailed
)

func (s state) String() string {
	switch s {
	case stateInit:
		return "init"
	case stateRoot:
		return "root"
	case stateReply:
		return "reply"
	case stateDone:
		return "done"
	default:
		return "failed"
	}
}

// Publisher creates posts through a bluesky.Client.
type Publisher struct {
	client   bluesky.Client
	uploader *media.Uploader
	clock    clock.Clock
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithClock sets the source of post timestamps.
func WithClock(c clock.Clock) Option {
	return func(p *Publisher) { p.clock = c }
}

// WithMetrics records created posts on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Publisher) { p.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Publisher) { p.logger = l }
}

// New creates a Publisher.
func New(client bluesky.Client, uploader *media.Uploader, opts ...Option) *Publisher {
	p := &Publisher{
		client:   client,
		uploader: uploader,
		clock:    clock.System{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// run holds the state of one Publish call.
type run struct {
	state     state
	root      models.StrongRef
	parent    models.StrongRef
	lastStamp time.Time
	result    models.PublishResult
}

// Publish posts blocks[0] as the thread root and the rest as a reply chain.
// Empty replies are skipped and listed in the result. Once the root is being
// created, ctx cancellation no longer stops the thread. Posts already created
// are never deleted; a failure after the root returns a *apperr.PublishError
// or *apperr.MediaUploadError and the result lists what exists.
func (p *Publisher) Publish(ctx context.Context, cred models.Credential, blocks []models.ProcessedBlock) (models.PublishResult, error) {
	r := &run{state: stateInit}
	if len(blocks) == 0 {
		return r.result, errors.New("publisher: nothing to publish")
	}

	if err := ctx.Err(); err != nil {
		r.state = stateFailed
		return r.result, fmt.Errorf("publisher: %w", err)
	}

	sess, err := p.client.Authenticate(ctx, cred.Identifier, cred.Secret)
	if err != nil {
		r.state = stateFailed
		return r.result, &apperr.AuthenticationError{Cause: err}
	}

	ctx = context.WithoutCancel(ctx)
	r.state = stateRoot
	for _, b := range blocks {
		if r.state == stateReply && b.IsEmpty() {
			r.result.Skipped = append(r.result.Skipped, b.Position)
			p.logger.Debug("publisher: skipped empty block", slog.String("post", b.Label()))
			continue
		}
		if err := p.post(ctx, sess, r, b); err != nil {
			r.state = stateFailed
			return r.result, err
		}
	}
	r.state = stateDone

	p.logger.Info("publisher: thread posted",
		slog.String("root", r.root.URI),
		slog.Int("posts", len(r.result.Posts)),
		slog.Int("skipped", len(r.result.Skipped)))
	return r.result, nil
}

func (p *Publisher) post(ctx context.Context, sess bluesky.Session, r *run, b models.ProcessedBlock) error {
	label := b.Label()

	embed, err := p.uploader.BuildEmbed(ctx, sess, b.MediaURLs, b.MediaAlts)
	if err != nil {
		var mErr *apperr.MediaUploadError
		if errors.As(err, &mErr) {
			if mErr.Block == "" {
				mErr.Block = label
			}
			mErr.Created = r.created()
		}
		return err
	}

	rec := models.PostRecord{
		Text:        b.Text,
		Annotations: b.Annotations,
		Embed:       embed,
		CreatedAt:   p.stamp(r),
	}
	if r.state == stateReply {
		rec.Reply = &models.ReplyRef{Root: r.root, Parent: r.parent}
	}

	ref, err := sess.CreatePost(ctx, rec)
	if err != nil {
		return &apperr.PublishError{Block: label, Created: r.created(), Cause: err}
	}
	p.metrics.PostCreated()
	p.logger.Debug("publisher: created post",
		slog.String("post", label),
		slog.String("state", r.state.String()),
		slog.String("uri", ref.URI))

	r.result.Posts = append(r.result.Posts, ref)
	r.parent = ref
	if r.state == stateRoot {
		r.root = ref
		r.result.Root = ref
		r.state = stateReply
	}
	return nil
}

// created copies the refs posted so far; nil before the root exists.
func (r *run) created() []models.StrongRef {
	if len(r.result.Posts) == 0 {
		return nil
	}
	out := make([]models.StrongRef, len(r.result.Posts))
	copy(out, r.result.Posts)
	return out
}

// stamp returns a creation time strictly after the previous one.
func (p *Publisher) stamp(r *run) time.Time {
	t := p.clock.Now().UTC().Truncate(time.Millisecond)
	if !r.lastStamp.IsZero() && !t.After(r.lastStamp) {
		t = r.lastStamp.Add(time.Millisecond)
	}
	r.lastStamp = t
	return t
}
