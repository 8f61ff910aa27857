// Package media fetches a post's image attachments and uploads them as blobs.
package media

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/skythread/internal/apperr"
	"github.com/starford/skythread/internal/bluesky"
	"github.com/starford/skythread/internal/metrics"
	"github.com/starford/skythread/internal/models"
)

// Network limits for embedded images.
const (
	DefaultMaxImages    = 4
	DefaultMaxBytes     = 1_000_000
	DefaultTimeout      = 30 * time.Second
	DefaultMaxRedirects = 5
)

// Config bounds what the uploader accepts.
type Config struct {
	MaxImages    int
	MaxBytes     int64
	Timeout      time.Duration
	MaxRedirects int
	// AllowLoopback disables the private address check. Tests only.
	AllowLoopback bool
}

func (c Config) withDefaults() Config {
	if c.MaxImages <= 0 {
		c.MaxImages = DefaultMaxImages
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = DefaultMaxBytes
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxRedirects <= 0 {
		c.MaxRedirects = DefaultMaxRedirects
	}
	return c
}

// Uploader turns attachment URLs into an image embed.
type Uploader struct {
	cfg     Config
	client  *http.Client
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewUploader creates an Uploader. m may be nil.
func NewUploader(cfg Config, m *metrics.Metrics, logger *slog.Logger) *Uploader {
	if logger == nil {
		logger = slog.Default()
	}
	u := &Uploader{cfg: cfg.withDefaults(), metrics: m, logger: logger}
	u.client = &http.Client{
		Timeout: u.cfg.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= u.cfg.MaxRedirects {
				return fmt.Errorf("too many redirects (max %d)", u.cfg.MaxRedirects)
			}
			return u.checkHost(req.URL.Hostname())
		},
	}
	return u
}

// BuildEmbed uploads every URL through sess and returns the embed, or nil
// when urls is empty. Images keep their input order. Any failure aborts
// the whole embed with a *apperr.MediaUploadError.
func (u *Uploader) BuildEmbed(ctx context.Context, sess bluesky.Session, urls, alts []string) (*models.Embed, error) {
	if len(urls) == 0 {
		return nil, nil
	}
	if len(urls) > u.cfg.MaxImages {
		return nil, &apperr.MediaUploadError{
			Cause: fmt.Errorf("%d images attached, at most %d allowed per post", len(urls), u.cfg.MaxImages),
		}
	}

	images := make([]models.EmbeddedImage, len(urls))
	g, gCtx := errgroup.WithContext(ctx)
	for i, raw := range urls {
		g.Go(func() error {
			blob, err := u.uploadOne(gCtx, sess, raw)
			if err != nil {
				u.metrics.MediaUpload(metrics.OutcomeFailure)
				return &apperr.MediaUploadError{URL: raw, Cause: err}
			}
			u.metrics.MediaUpload(metrics.OutcomeSuccess)
			alt := ""
			if i < len(alts) {
				alt = alts[i]
			}
			images[i] = models.EmbeddedImage{Alt: alt, Blob: blob}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &models.Embed{Images: images}, nil
}

func (u *Uploader) uploadOne(ctx context.Context, sess bluesky.Session, rawURL string) (models.BlobRef, error) {
	data, ct, err := u.fetch(ctx, rawURL)
	if err != nil {
		return models.BlobRef{}, err
	}
	if !strings.HasPrefix(ct, "image/") {
		return models.BlobRef{}, fmt.Errorf("not an image: %s", ct)
	}
	blob, err := sess.UploadBlob(ctx, data, ct)
	if err != nil {
		return models.BlobRef{}, fmt.Errorf("upload blob: %w", err)
	}
	u.logger.Debug("media: uploaded",
		slog.String("url", apperr.ShortURL(rawURL)),
		slog.String("mime", ct),
		slog.Int("bytes", len(data)))
	return blob, nil
}
