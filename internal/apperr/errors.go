// Package apperr holds the error taxonomy shared by the pipeline and its surfaces.
package apperr

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/starford/skythread/internal/models"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")

	// ErrNoCredential is the configuration error raised before any network activity.
	ErrNoCredential = errors.New("no Bluesky account saved: add one in the settings panel")
	// ErrPublishInProgress rejects a second publish while one is running.
	ErrPublishInProgress = errors.New("a thread is already being posted")
)

// Error kinds reported to the user-facing surfaces.
const (
	KindConfiguration  = "configuration"
	KindValidation     = "validation"
	KindAuthentication = "authentication"
	KindMediaUpload    = "media_upload"
	KindPublish        = "publish"
	KindBusy           = "busy"
	KindNotFound       = "not_found"
	KindInternal       = "internal"
)

// Violation is one post over the length limit.
type Violation struct {
	Label   string `json:"label"`
	Length  int    `json:"length"`
	Overage int    `json:"overage"`
}

// ValidationError aggregates every post that exceeds the limit.
type ValidationError struct {
	Limit      int
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = fmt.Sprintf("%s is %d characters (%d over the %d limit)", v.Label, v.Length, v.Overage, e.Limit)
	}
	return "post too long: " + strings.Join(parts, "; ")
}

// AuthenticationError wraps a rejected login.
type AuthenticationError struct {
	Cause error
}

func (e *AuthenticationError) Error() string {
	return e.Cause.Error()
}

func (e *AuthenticationError) Unwrap() error { return e.Cause }

// maxURLInMessage caps how much of an attachment URL an error message
// repeats; data URIs can be a megabyte long.
const maxURLInMessage = 64

// MediaUploadError wraps a failed attachment fetch or upload. Created lists
// the posts that already exist remotely when the failure came after the root.
type MediaUploadError struct {
	Block   string
	URL     string
	Created []models.StrongRef
	Cause   error
}

func (e *MediaUploadError) Error() string {
	var b strings.Builder
	b.WriteString("media upload failed")
	if e.Block != "" {
		b.WriteString(" for " + e.Block)
	}
	if e.URL != "" {
		b.WriteString(" (" + ShortURL(e.URL) + ")")
	}
	b.WriteString(": " + e.Cause.Error())
	b.WriteString(partialNotice(e.Created))
	return b.String()
}

// ShortURL truncates u to a length fit for messages and logs.
func ShortURL(u string) string {
	if len(u) <= maxURLInMessage {
		return u
	}
	cut := maxURLInMessage
	for cut > 0 && !utf8.RuneStart(u[cut]) {
		cut--
	}
	return u[:cut] + "..."
}

func partialNotice(created []models.StrongRef) string {
	if len(created) == 0 {
		return ""
	}
	return fmt.Sprintf(" (thread may be partially posted: %d post(s) already created)", len(created))
}

func (e *MediaUploadError) Unwrap() error { return e.Cause }

// PublishError wraps a failed post creation. Created lists the posts that
// already exist remotely; they are not rolled back.
type PublishError struct {
	Block   string
	Created []models.StrongRef
	Cause   error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("posting %s failed: %v", e.Block, e.Cause) + partialNotice(e.Created)
}

func (e *PublishError) Unwrap() error { return e.Cause }

// AnnotationWriteError is logged, never escalated.
type AnnotationWriteError struct {
	BlockID string
	Cause   error
}

func (e *AnnotationWriteError) Error() string {
	return fmt.Sprintf("append date to block %s: %v", e.BlockID, e.Cause)
}

func (e *AnnotationWriteError) Unwrap() error { return e.Cause }

// Kind classifies err for surfaces that report it to the user.
func Kind(err error) string {
	var (
		valErr   *ValidationError
		authErr  *AuthenticationError
		mediaErr *MediaUploadError
		pubErr   *PublishError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoCredential):
		return KindConfiguration
	case errors.Is(err, ErrPublishInProgress):
		return KindBusy
	case errors.As(err, &valErr):
		return KindValidation
	case errors.As(err, &authErr):
		return KindAuthentication
	case errors.As(err, &mediaErr):
		return KindMediaUpload
	case errors.As(err, &pubErr):
		return KindPublish
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	default:
		return KindInternal
	}
}
