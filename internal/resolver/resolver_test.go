package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapLookup map[string]string

func (m mapLookup) BlockText(_ context.Context, id string) (string, bool, error) {
	text, ok := m[id]
	return text, ok, nil
}

type failingLookup struct{}

func (failingLookup) BlockText(context.Context, string) (string, bool, error) {
	return "", false, errors.New("store offline")
}

func TestResolve_ExtractsMedia(t *testing.T) {
	r := New(nil, nil)
	got := r.Resolve(context.Background(), "Look ![a cat](https://example.com/cat.png) here")

	assert.Equal(t, "Look  here", got.Text)
	require.Len(t, got.MediaURLs, 1)
	assert.Equal(t, "https://example.com/cat.png", got.MediaURLs[0])
	assert.Equal(t, []string{"a cat"}, got.MediaAlts)
}

func TestResolve_MediaWithoutAltUsesDefault(t *testing.T) {
	r := New(nil, nil)
	got := r.Resolve(context.Background(), "![](https://example.com/a.png)")

	assert.Equal(t, "", got.Text)
	assert.Equal(t, []string{DefaultAlt}, got.MediaAlts)
}

func TestResolve_RewritesFileSharingHost(t *testing.T) {
	r := New(nil, nil)
	got := r.Resolve(context.Background(), "![x](https://www.dropbox.com/s/abc/photo.jpg?dl=0)")

	require.Len(t, got.MediaURLs, 1)
	assert.Equal(t, "https://dl.dropboxusercontent.com/s/abc/photo.jpg", got.MediaURLs[0])
}

func TestDirectDownloadURL_UnknownHostUnchanged(t *testing.T) {
	raw := "https://example.com/p.png?dl=0"
	assert.Equal(t, raw, DirectDownloadURL(raw))
}

func TestResolve_CitationVerbatim(t *testing.T) {
	r := New(mapLookup{"abc123456": "friends"}, nil)
	got := r.Resolve(context.Background(), "Hello ((abc123456))!")

	assert.Equal(t, "Hello friends!", got.Text)
}

func TestResolve_CitationNotRecursive(t *testing.T) {
	r := New(mapLookup{
		"outer12345": "see ((inner1234))",
		"inner1234":  "deep",
	}, nil)
	got := r.Resolve(context.Background(), "((outer12345))")

	assert.Equal(t, "see ((inner1234))", got.Text)
}

func TestResolve_UnknownCitationIsEmpty(t *testing.T) {
	r := New(mapLookup{}, nil)
	got := r.Resolve(context.Background(), "a ((zzzzzzzzz)) b")

	assert.Equal(t, "a  b", got.Text)
}

func TestResolve_LookupErrorIsEmpty(t *testing.T) {
	r := New(failingLookup{}, nil)
	got := r.Resolve(context.Background(), "((abc123456))")

	assert.Equal(t, "", got.Text)
}

func TestResolve_ShortTokenIsNotACitation(t *testing.T) {
	r := New(mapLookup{"abc": "nope"}, nil)
	got := r.Resolve(context.Background(), "((abc))")

	assert.Equal(t, "((abc))", got.Text)
}

func TestResolve_FlattensLinks(t *testing.T) {
	r := New(nil, nil)
	got := r.Resolve(context.Background(), "read [the docs](https://docs.example.com) now")

	assert.Equal(t, "read https://docs.example.com now", got.Text)
	assert.Empty(t, got.MediaURLs)
}

func TestResolve_TagsBecomeHashtags(t *testing.T) {
	r := New(nil, nil)
	got := r.Resolve(context.Background(), "[[Go Lang]] and [[Go Lang]] and [[ a b  c ]]")

	assert.Equal(t, "#GoLang and #GoLang and #abc", got.Text)
}

func TestResolve_CitedTextStillGetsTags(t *testing.T) {
	r := New(mapLookup{"abc123456": "about [[Deep Work]]"}, nil)
	got := r.Resolve(context.Background(), "((abc123456))")

	assert.Equal(t, "about #DeepWork", got.Text)
}

func TestResolve_EndToEndRootText(t *testing.T) {
	r := New(mapLookup{"abc123456": "friends"}, nil)
	got := r.Resolve(context.Background(), "Hello [[World]] ((abc123456))")

	assert.Equal(t, "Hello #World friends", got.Text)
}

func TestResolve_IdempotentOnPlainText(t *testing.T) {
	r := New(nil, nil)
	in := "  just some words, nothing else  "
	once := r.Resolve(context.Background(), in)
	twice := r.Resolve(context.Background(), once.Text)

	assert.Equal(t, "just some words, nothing else", once.Text)
	assert.Equal(t, once.Text, twice.Text)
}
