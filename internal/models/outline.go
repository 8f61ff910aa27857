// Package models defines the domain types for skythread.
package models

import (
	"fmt"
	"time"
)

// OutlineNode is one block of the host outline, as fetched for a single
// publish attempt. Children are ordered by Order ascending.
type OutlineNode struct {
	ID       string        `json:"id"`
	Text     string        `json:"text"`
	Order    int           `json:"order"`
	Children []OutlineNode `json:"children,omitempty"`
}

// ResolvedBlock is the output of the reference and media resolver.
type ResolvedBlock struct {
	Text      string   `json:"text"`
	MediaURLs []string `json:"media_urls,omitempty"`
	// MediaAlts is parallel to MediaURLs.
	MediaAlts []string `json:"media_alts,omitempty"`
}

// AnnotationKind identifies a rich-text facet feature.
type AnnotationKind string

// Annotation kinds.
const (
	AnnotationMention AnnotationKind = "mention"
	AnnotationLink    AnnotationKind = "link"
	AnnotationTag     AnnotationKind = "tag"
)

// Annotation is a byte-range anchored rich-text feature. Value holds the DID
// for mentions, the URI for links and the tag (without '#') for tags.
type Annotation struct {
	ByteStart int            `json:"byte_start"`
	ByteEnd   int            `json:"byte_end"`
	Kind      AnnotationKind `json:"kind"`
	Value     string         `json:"value"`
}

// CompiledText is plain text plus its annotations.
type CompiledText struct {
	Text        string       `json:"text"`
	Annotations []Annotation `json:"annotations"`
}

// ProcessedBlock is one validated post of a thread, before publishing.
type ProcessedBlock struct {
	Position    int          `json:"position"`
	Text        string       `json:"text"`
	Length      int          `json:"length"`
	Annotations []Annotation `json:"annotations"`
	MediaURLs   []string     `json:"media_urls,omitempty"`
	MediaAlts   []string     `json:"media_alts,omitempty"`
}

// IsEmpty reports whether the block has neither text nor media.
func (b ProcessedBlock) IsEmpty() bool {
	return b.Text == "" && len(b.MediaURLs) == 0
}

// Label names the block's position in the thread: "root" or "reply #N".
func (b ProcessedBlock) Label() string {
	return PositionLabel(b.Position)
}

// PositionLabel returns "root" for 0 and "reply #N" otherwise.
func PositionLabel(pos int) string {
	if pos == 0 {
		return "root"
	}
	return fmt.Sprintf("reply #%d", pos)
}

// Credential is the single saved account.
type Credential struct {
	Identifier string `json:"username" yaml:"username"`
	Secret     string `json:"password" yaml:"password"`
}

// DefaultAppendTemplate is used when no template has been saved.
const DefaultAppendTemplate = "sent on {DATE}"

// DatePlaceholder is substituted with the formatted date reference.
const DatePlaceholder = "{DATE}"

// ThreadAppendSettings controls the post-publish annotation.
type ThreadAppendSettings struct {
	Enabled  bool   `json:"enabled"`
	Template string `json:"template"`
}

// StrongRef identifies one version of a remote record.
type StrongRef struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}

// IsZero reports whether the reference is unset.
func (r StrongRef) IsZero() bool {
	return r.URI == "" && r.CID == ""
}

// ReplyRef links a reply to its thread.
type ReplyRef struct {
	Root   StrongRef `json:"root"`
	Parent StrongRef `json:"parent"`
}

// BlobRef is an uploaded binary object.
type BlobRef struct {
	Ref      string `json:"ref"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
}

// EmbeddedImage is one image of an embed.
type EmbeddedImage struct {
	Alt  string  `json:"alt"`
	Blob BlobRef `json:"blob"`
}

// Embed is the media attached to a post.
type Embed struct {
	Images []EmbeddedImage `json:"images"`
}

// PostRecord is a post about to be created remotely.
type PostRecord struct {
	Text        string       `json:"text"`
	Annotations []Annotation `json:"annotations,omitempty"`
	Embed       *Embed       `json:"embed,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	Reply       *ReplyRef    `json:"reply,omitempty"`
}

// PublishResult summarises a finished publish operation.
type PublishResult struct {
	OperationID string      `json:"operation_id"`
	Root        StrongRef   `json:"root"`
	Posts       []StrongRef `json:"posts"`
	Skipped     []int       `json:"skipped,omitempty"`
	Annotated   bool        `json:"annotated"`
}
