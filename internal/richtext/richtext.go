// Package richtext compiles resolved text into Bluesky rich text: plain text
// plus byte-range facets for mentions, links and hashtags.
package richtext

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/rivo/uniseg"
	"golang.org/x/net/publicsuffix"

	"github.com/starford/skythread/internal/models"
)

// MaxTagLength is the longest hashtag, in graphemes, the network indexes.
const MaxTagLength = 64

var (
	mentionRe = regexp.MustCompile(`(^|\s|\()(@)([a-zA-Z0-9.-]+)(\b)`)
	urlRe     = regexp.MustCompile(`(?i)(^|\s|\()((https?://\S+)|(([a-z][a-z0-9]*(?:\.[a-z0-9]+)+)\S*))`)
	tagRe     = regexp.MustCompile(`(^|\s)[#＃]([^\s\x{00AD}\x{2060}\x{200A}\x{200B}\x{200C}\x{200D}\x{20E2}]+)`)
	handleRe  = regexp.MustCompile(`^([a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?$`)
)

// HandleResolver resolves a handle to a DID.
type HandleResolver interface {
	ResolveHandle(ctx context.Context, handle string) (string, error)
}

// Compiler detects facets. A nil resolver drops mentions.
type Compiler struct {
	handles HandleResolver
	logger  *slog.Logger
}

// NewCompiler creates a Compiler.
func NewCompiler(handles HandleResolver, logger *slog.Logger) *Compiler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Compiler{handles: handles, logger: logger}
}

// Length returns the post length the network enforces: grapheme clusters.
func Length(text string) int {
	return uniseg.GraphemeClusterCount(text)
}

// Compile returns text with its annotations. Detection problems degrade to
// fewer annotations, never to an error.
func (c *Compiler) Compile(ctx context.Context, text string) models.CompiledText {
	var anns []models.Annotation
	anns = append(anns, c.detectMentions(ctx, text)...)
	anns = append(anns, detectLinks(text)...)
	anns = append(anns, detectTags(text)...)
	sort.SliceStable(anns, func(i, j int) bool {
		return anns[i].ByteStart < anns[j].ByteStart
	})
	if anns == nil {
		anns = []models.Annotation{}
	}
	return models.CompiledText{Text: text, Annotations: anns}
}

func (c *Compiler) detectMentions(ctx context.Context, text string) []models.Annotation {
	if c.handles == nil {
		return nil
	}
	var out []models.Annotation
	for _, m := range mentionRe.FindAllStringSubmatchIndex(text, -1) {
		handle := text[m[6]:m[7]]
		if !handleRe.MatchString(handle) {
			continue
		}
		did, err := c.handles.ResolveHandle(ctx, strings.ToLower(handle))
		if err != nil || did == "" {
			c.logger.Debug("richtext: mention not resolved", slog.String("handle", handle))
			continue
		}
		out = append(out, models.Annotation{
			ByteStart: m[4],
			ByteEnd:   m[7],
			Kind:      models.AnnotationMention,
			Value:     did,
		})
	}
	return out
}

func detectLinks(text string) []models.Annotation {
	var out []models.Annotation
	for _, m := range urlRe.FindAllStringSubmatchIndex(text, -1) {
		start, end := m[4], m[5]
		uri := text[start:end]
		if m[6] < 0 {
			// Bare domain: only link registered public suffixes.
			domain := text[m[10]:m[11]]
			if !knownSuffix(domain) {
				continue
			}
			uri = "https://" + uri
		}
		trimmed := trimLinkEnd(uri)
		end -= len(uri) - len(trimmed)
		out = append(out, models.Annotation{
			ByteStart: start,
			ByteEnd:   end,
			Kind:      models.AnnotationLink,
			Value:     trimmed,
		})
	}
	return out
}

func knownSuffix(domain string) bool {
	suffix, icann := publicsuffix.PublicSuffix(strings.ToLower(domain))
	return icann && suffix != strings.ToLower(domain)
}

// trimLinkEnd drops trailing sentence punctuation and an unbalanced ')'.
func trimLinkEnd(uri string) string {
	if strings.ContainsAny(uri[len(uri)-1:], ".,;:!?") {
		uri = strings.TrimRight(uri, ".,;:!?")
	}
	if strings.HasSuffix(uri, ")") && !strings.Contains(uri, "(") {
		uri = strings.TrimSuffix(uri, ")")
	}
	return uri
}

func detectTags(text string) []models.Annotation {
	var out []models.Annotation
	for _, m := range tagRe.FindAllStringSubmatchIndex(text, -1) {
		hashStart := m[3]
		tag := strings.TrimRightFunc(text[m[4]:m[5]], unicode.IsPunct)
		if tag == "" || isDigits(tag) || Length(tag) > MaxTagLength {
			continue
		}
		out = append(out, models.Annotation{
			ByteStart: hashStart,
			ByteEnd:   m[4] + len(tag),
			Kind:      models.AnnotationTag,
			Value:     tag,
		})
	}
	return out
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
