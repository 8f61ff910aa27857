// Package resolver rewrites raw outline block text: it extracts media markup,
// inlines block citations, flattens links and turns page tags into hashtags.
package resolver

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/starford/skythread/internal/models"
)

var (
	mediaRe    = regexp.MustCompile(`!\[([^\]]*)\]\(([^)\s]+)\)`)
	citationRe = regexp.MustCompile(`\(\(([A-Za-z0-9_-]{9,10})\)\)`)
	linkRe     = regexp.MustCompile(`\[([^\]]*)\]\(([^)\s]+)\)`)
	tagRe      = regexp.MustCompile(`\[\[([^\[\]]*)\]\]`)
)

// DefaultAlt is used for media markup without alt text.
const DefaultAlt = ""

// directDownloadHosts maps file-sharing hosts to their direct-download host.
var directDownloadHosts = map[string]string{
	"www.dropbox.com": "dl.dropboxusercontent.com",
	"dropbox.com":     "dl.dropboxusercontent.com",
}

// BlockLookup returns the text of a block by id. ok is false for unknown ids.
type BlockLookup interface {
	BlockText(ctx context.Context, id string) (text string, ok bool, err error)
}

// Resolver rewrites block text. The zero value has no lookup and resolves
// every citation to the empty string.
type Resolver struct {
	lookup BlockLookup
	logger *slog.Logger
}

// New creates a Resolver backed by lookup.
func New(lookup BlockLookup, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{lookup: lookup, logger: logger}
}

// Resolve runs every rewriting step in order. It never fails: unknown
// citations become empty strings.
func (r *Resolver) Resolve(ctx context.Context, raw string) models.ResolvedBlock {
	text, urls, alts := extractMedia(raw)
	text = r.resolveCitations(ctx, text)
	text = flattenLinks(text)
	text = tagsToHashtags(text)
	return models.ResolvedBlock{
		Text:      strings.TrimSpace(text),
		MediaURLs: urls,
		MediaAlts: alts,
	}
}

// extractMedia removes every ![alt](url) and returns the collected URLs,
// rewritten to direct-download hosts where known.
func extractMedia(text string) (string, []string, []string) {
	var urls, alts []string
	out := mediaRe.ReplaceAllStringFunc(text, func(m string) string {
		sub := mediaRe.FindStringSubmatch(m)
		alt := strings.TrimSpace(sub[1])
		if alt == "" {
			alt = DefaultAlt
		}
		urls = append(urls, DirectDownloadURL(sub[2]))
		alts = append(alts, alt)
		return ""
	})
	return out, urls, alts
}

// DirectDownloadURL rewrites share links of known file-sharing hosts to the
// host serving the raw bytes. Other URLs are returned unchanged.
func DirectDownloadURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	host, ok := directDownloadHosts[strings.ToLower(u.Host)]
	if !ok {
		return raw
	}
	u.Host = host
	q := u.Query()
	q.Del("dl")
	u.RawQuery = q.Encode()
	return u.String()
}

// resolveCitations replaces ((id)) with the referenced block's text. The
// replacement is not scanned again, so nested citations stay literal.
func (r *Resolver) resolveCitations(ctx context.Context, text string) string {
	return citationRe.ReplaceAllStringFunc(text, func(m string) string {
		id := citationRe.FindStringSubmatch(m)[1]
		if r.lookup == nil {
			return ""
		}
		ref, ok, err := r.lookup.BlockText(ctx, id)
		if err != nil {
			r.logger.Debug("resolver: citation lookup failed", slog.String("block_id", id), slog.String("error", err.Error()))
			return ""
		}
		if !ok {
			return ""
		}
		return ref
	})
}

// flattenLinks rewrites [label](target) to target.
func flattenLinks(text string) string {
	return linkRe.ReplaceAllString(text, "$2")
}

// tagsToHashtags rewrites every [[Page Name]] to #PageName.
func tagsToHashtags(text string) string {
	return tagRe.ReplaceAllStringFunc(text, func(m string) string {
		name := tagRe.FindStringSubmatch(m)[1]
		return "#" + strings.Map(func(r rune) rune {
			if unicode.IsSpace(r) {
				return -1
			}
			return r
		}, name)
	})
}
