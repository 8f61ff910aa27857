// Package bluesky is the network boundary: login, record creation, blob
// upload and handle resolution against an AT Protocol PDS.
package bluesky

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	comatproto "github.com/bluesky-social/indigo/api/atproto"
	appbsky "github.com/bluesky-social/indigo/api/bsky"
	lexutil "github.com/bluesky-social/indigo/lex/util"
	"github.com/bluesky-social/indigo/xrpc"
	"github.com/ipfs/go-cid"

	"github.com/starford/skythread/internal/models"
)

const (
	// DefaultHost is the public Bluesky PDS entryway.
	DefaultHost = "https://bsky.social"

	postCollection = "app.bsky.feed.post"
	datetimeLayout = "2006-01-02T15:04:05.000Z"
	userAgent      = "skythread/1.0"
)

// Client logs in and resolves handles.
type Client interface {
	Authenticate(ctx context.Context, identifier, secret string) (Session, error)
	ResolveHandle(ctx context.Context, handle string) (string, error)
}

// Session is an authenticated account. Implementations must allow
// concurrent UploadBlob calls.
type Session interface {
	DID() string
	CreatePost(ctx context.Context, rec models.PostRecord) (models.StrongRef, error)
	UploadBlob(ctx context.Context, data []byte, contentType string) (models.BlobRef, error)
}

// XRPC implements Client with the indigo XRPC client.
type XRPC struct {
	host string
	http *http.Client
}

// NewXRPC creates a client for the PDS at host.
func NewXRPC(host string, timeout time.Duration) *XRPC {
	if host == "" {
		host = DefaultHost
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &XRPC{host: host, http: &http.Client{Timeout: timeout}}
}

func (c *XRPC) base() *xrpc.Client {
	ua := userAgent
	return &xrpc.Client{Client: c.http, Host: c.host, UserAgent: &ua}
}

// Authenticate creates a session with an app password.
func (c *XRPC) Authenticate(ctx context.Context, identifier, secret string) (Session, error) {
	xc := c.base()
	out, err := comatproto.ServerCreateSession(ctx, xc, &comatproto.ServerCreateSession_Input{
		Identifier: identifier,
		Password:   secret,
	})
	if err != nil {
		return nil, err
	}
	xc.Auth = &xrpc.AuthInfo{
		AccessJwt:  out.AccessJwt,
		RefreshJwt: out.RefreshJwt,
		Handle:     out.Handle,
		Did:        out.Did,
	}
	return &session{xc: xc}, nil
}

// ResolveHandle returns the DID for handle.
func (c *XRPC) ResolveHandle(ctx context.Context, handle string) (string, error) {
	out, err := comatproto.IdentityResolveHandle(ctx, c.base(), handle)
	if err != nil {
		return "", fmt.Errorf("bluesky: resolve %s: %w", handle, err)
	}
	return out.Did, nil
}

type session struct {
	xc *xrpc.Client
}

func (s *session) DID() string {
	return s.xc.Auth.Did
}

func (s *session) CreatePost(ctx context.Context, rec models.PostRecord) (models.StrongRef, error) {
	post, err := toFeedPost(rec)
	if err != nil {
		return models.StrongRef{}, err
	}
	out, err := comatproto.RepoCreateRecord(ctx, s.xc, &comatproto.RepoCreateRecord_Input{
		Collection: postCollection,
		Repo:       s.xc.Auth.Did,
		Record:     &lexutil.LexiconTypeDecoder{Val: post},
	})
	if err != nil {
		return models.StrongRef{}, err
	}
	return models.StrongRef{URI: out.Uri, CID: out.Cid}, nil
}

func (s *session) UploadBlob(ctx context.Context, data []byte, contentType string) (models.BlobRef, error) {
	// Copy so concurrent uploads can carry their own content type.
	xc := *s.xc
	xc.Headers = map[string]string{"Content-Type": contentType}
	out, err := comatproto.RepoUploadBlob(ctx, &xc, bytes.NewReader(data))
	if err != nil {
		return models.BlobRef{}, err
	}
	if out.Blob == nil {
		return models.BlobRef{}, fmt.Errorf("bluesky: upload returned no blob")
	}
	return models.BlobRef{
		Ref:      out.Blob.Ref.String(),
		MimeType: out.Blob.MimeType,
		Size:     out.Blob.Size,
	}, nil
}

// toFeedPost converts a record into the app.bsky.feed.post lexicon type.
func toFeedPost(rec models.PostRecord) (*appbsky.FeedPost, error) {
	post := &appbsky.FeedPost{
		LexiconTypeID: postCollection,
		Text:          rec.Text,
		CreatedAt:     rec.CreatedAt.UTC().Format(datetimeLayout),
		Facets:        toFacets(rec.Annotations),
	}
	if rec.Reply != nil {
		post.Reply = &appbsky.FeedPost_ReplyRef{
			Root:   &comatproto.RepoStrongRef{Uri: rec.Reply.Root.URI, Cid: rec.Reply.Root.CID},
			Parent: &comatproto.RepoStrongRef{Uri: rec.Reply.Parent.URI, Cid: rec.Reply.Parent.CID},
		}
	}
	if rec.Embed != nil && len(rec.Embed.Images) > 0 {
		images := make([]*appbsky.EmbedImages_Image, 0, len(rec.Embed.Images))
		for _, img := range rec.Embed.Images {
			c, err := cid.Decode(img.Blob.Ref)
			if err != nil {
				return nil, fmt.Errorf("bluesky: invalid blob ref %q: %w", img.Blob.Ref, err)
			}
			images = append(images, &appbsky.EmbedImages_Image{
				Alt: img.Alt,
				Image: &lexutil.LexBlob{
					Ref:      lexutil.LexLink(c),
					MimeType: img.Blob.MimeType,
					Size:     img.Blob.Size,
				},
			})
		}
		post.Embed = &appbsky.FeedPost_Embed{
			EmbedImages: &appbsky.EmbedImages{
				LexiconTypeID: "app.bsky.embed.images",
				Images:        images,
			},
		}
	}
	return post, nil
}

func toFacets(anns []models.Annotation) []*appbsky.RichtextFacet {
	if len(anns) == 0 {
		return nil
	}
	facets := make([]*appbsky.RichtextFacet, 0, len(anns))
	for _, a := range anns {
		feature := &appbsky.RichtextFacet_Features_Elem{}
		switch a.Kind {
		case models.AnnotationMention:
			feature.RichtextFacet_Mention = &appbsky.RichtextFacet_Mention{Did: a.Value}
		case models.AnnotationLink:
			feature.RichtextFacet_Link = &appbsky.RichtextFacet_Link{Uri: a.Value}
		case models.AnnotationTag:
			feature.RichtextFacet_Tag = &appbsky.RichtextFacet_Tag{Tag: a.Value}
		default:
			continue
		}
		facets = append(facets, &appbsky.RichtextFacet{
			Index: &appbsky.RichtextFacet_ByteSlice{
				ByteStart: int64(a.ByteStart),
				ByteEnd:   int64(a.ByteEnd),
			},
			Features: []*appbsky.RichtextFacet_Features_Elem{feature},
		})
	}
	return facets
}
