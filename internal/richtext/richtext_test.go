package richtext

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/skythread/internal/models"
)

type stubHandles map[string]string

func (s stubHandles) ResolveHandle(_ context.Context, handle string) (string, error) {
	did, ok := s[handle]
	if !ok {
		return "", errors.New("unable to resolve handle")
	}
	return did, nil
}

func annotationsOf(kind models.AnnotationKind, anns []models.Annotation) []models.Annotation {
	var out []models.Annotation
	for _, a := range anns {
		if a.Kind == kind {
			out = append(out, a)
		}
	}
	return out
}

func TestCompile_PlainTextHasNoAnnotations(t *testing.T) {
	c := NewCompiler(nil, nil)
	got := c.Compile(context.Background(), "nothing to see here")

	assert.Equal(t, "nothing to see here", got.Text)
	assert.NotNil(t, got.Annotations)
	assert.Empty(t, got.Annotations)
}

func TestCompile_Hashtag(t *testing.T) {
	c := NewCompiler(nil, nil)
	text := "Hello #World friends"
	got := c.Compile(context.Background(), text)

	tags := annotationsOf(models.AnnotationTag, got.Annotations)
	require.Len(t, tags, 1)
	assert.Equal(t, "World", tags[0].Value)
	assert.Equal(t, "#World", text[tags[0].ByteStart:tags[0].ByteEnd])
}

func TestCompile_HashtagTrailingPunctuationAndDigits(t *testing.T) {
	c := NewCompiler(nil, nil)
	got := c.Compile(context.Background(), "#golang! and #2024")

	tags := annotationsOf(models.AnnotationTag, got.Annotations)
	require.Len(t, tags, 1)
	assert.Equal(t, "golang", tags[0].Value)
	assert.Equal(t, 0, tags[0].ByteStart)
	assert.Equal(t, 7, tags[0].ByteEnd)
}

func TestCompile_LinkWithScheme(t *testing.T) {
	c := NewCompiler(nil, nil)
	text := "read https://docs.example.com/a?b=1. ok"
	got := c.Compile(context.Background(), text)

	links := annotationsOf(models.AnnotationLink, got.Annotations)
	require.Len(t, links, 1)
	assert.Equal(t, "https://docs.example.com/a?b=1", links[0].Value)
	assert.Equal(t, links[0].Value, text[links[0].ByteStart:links[0].ByteEnd])
}

func TestCompile_BareDomain(t *testing.T) {
	c := NewCompiler(nil, nil)
	text := "see example.com/path, thanks"
	got := c.Compile(context.Background(), text)

	links := annotationsOf(models.AnnotationLink, got.Annotations)
	require.Len(t, links, 1)
	assert.Equal(t, "https://example.com/path", links[0].Value)
	assert.Equal(t, "example.com/path", text[links[0].ByteStart:links[0].ByteEnd])
}

func TestCompile_BareWordWithUnknownSuffixIsNotALink(t *testing.T) {
	c := NewCompiler(nil, nil)
	got := c.Compile(context.Background(), "version 1.2 of foo.notatld")

	assert.Empty(t, annotationsOf(models.AnnotationLink, got.Annotations))
}

func TestCompile_MentionResolved(t *testing.T) {
	c := NewCompiler(stubHandles{"alice.bsky.social": "did:plc:alice"}, nil)
	text := "hi @alice.bsky.social."
	got := c.Compile(context.Background(), text)

	mentions := annotationsOf(models.AnnotationMention, got.Annotations)
	require.Len(t, mentions, 1)
	assert.Equal(t, "did:plc:alice", mentions[0].Value)
	assert.Equal(t, "@alice.bsky.social", text[mentions[0].ByteStart:mentions[0].ByteEnd])
}

func TestCompile_UnresolvedMentionDropped(t *testing.T) {
	c := NewCompiler(stubHandles{}, nil)
	got := c.Compile(context.Background(), "hi @ghost.bsky.social")

	assert.Empty(t, annotationsOf(models.AnnotationMention, got.Annotations))
}

func TestCompile_NoResolverDropsMentionsOnly(t *testing.T) {
	c := NewCompiler(nil, nil)
	got := c.Compile(context.Background(), "@alice.bsky.social #go")

	assert.Empty(t, annotationsOf(models.AnnotationMention, got.Annotations))
	assert.Len(t, annotationsOf(models.AnnotationTag, got.Annotations), 1)
}

func TestCompile_ByteOffsetsAfterMultibyteText(t *testing.T) {
	c := NewCompiler(nil, nil)
	text := "héllo wörld #tägs"
	got := c.Compile(context.Background(), text)

	require.Len(t, got.Annotations, 1)
	a := got.Annotations[0]
	assert.Equal(t, "#tägs", text[a.ByteStart:a.ByteEnd])
}

func TestCompile_AnnotationsSortedByOffset(t *testing.T) {
	c := NewCompiler(stubHandles{"bob.test.com": "did:plc:bob"}, nil)
	got := c.Compile(context.Background(), "#first https://x.com @bob.test.com")

	require.Len(t, got.Annotations, 3)
	for i := 1; i < len(got.Annotations); i++ {
		assert.Less(t, got.Annotations[i-1].ByteStart, got.Annotations[i].ByteStart)
	}
}

func TestLength_CountsGraphemes(t *testing.T) {
	assert.Equal(t, 301, Length(strings.Repeat("A", 301)))
	assert.Equal(t, 1, Length("👍🏽"))
	assert.Equal(t, 5, Length("héllo"))
}
