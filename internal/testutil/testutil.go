// Package testutil provides shared test helpers: a temporary outline
// database, a temporary settings file and an in-memory network.
package testutil

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/starford/skythread/internal/bluesky"
	"github.com/starford/skythread/internal/models"
	"github.com/starford/skythread/internal/outline"
	"github.com/starford/skythread/internal/settings"
	"github.com/starford/skythread/internal/storage"
)

// TestDB creates a temporary outline database that is automatically cleaned up.
func TestDB(t *testing.T) *outline.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "skythread-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := outline.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestSettings creates a settings store backed by a file in a temp dir.
func TestSettings(t *testing.T) *settings.Store {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	st, err := settings.Open(fs, settings.DefaultFileName)
	if err != nil {
		t.Fatal(err)
	}
	return st
}

// FakeNetwork is an in-memory bluesky.Client that is also its own Session.
type FakeNetwork struct {
	mu sync.Mutex

	Handles   map[string]string
	AuthErr   error
	UploadErr error
	// FailPostAt fails the Nth CreatePost call (1-based) with PostErr.
	FailPostAt int
	PostErr    error

	Posts        []models.PostRecord
	Uploads      []string
	AuthCalls    int
	ResolveCalls int
	postCalls    int
}

var (
	_ bluesky.Client  = (*FakeNetwork)(nil)
	_ bluesky.Session = (*FakeNetwork)(nil)
)

// Authenticate returns the network itself unless AuthErr is set.
func (f *FakeNetwork) Authenticate(_ context.Context, identifier, _ string) (bluesky.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.AuthCalls++
	if f.AuthErr != nil {
		return nil, f.AuthErr
	}
	return f, nil
}

// ResolveHandle looks the handle up in Handles.
func (f *FakeNetwork) ResolveHandle(_ context.Context, handle string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ResolveCalls++
	did, ok := f.Handles[handle]
	if !ok {
		return "", fmt.Errorf("unable to resolve handle %s", handle)
	}
	return did, nil
}

func (f *FakeNetwork) DID() string { return "did:plc:testaccount" }

// CreatePost records rec and returns a synthetic reference.
func (f *FakeNetwork) CreatePost(_ context.Context, rec models.PostRecord) (models.StrongRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.postCalls++
	if f.FailPostAt > 0 && f.postCalls == f.FailPostAt {
		err := f.PostErr
		if err == nil {
			err = fmt.Errorf("createRecord: upstream failure")
		}
		return models.StrongRef{}, err
	}
	f.Posts = append(f.Posts, rec)
	n := len(f.Posts)
	return models.StrongRef{
		URI: fmt.Sprintf("at://%s/app.bsky.feed.post/post%d", f.DID(), n),
		CID: fmt.Sprintf("cid%d", n),
	}, nil
}

// UploadBlob records the content type and returns a synthetic blob.
func (f *FakeNetwork) UploadBlob(_ context.Context, data []byte, contentType string) (models.BlobRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.UploadErr != nil {
		return models.BlobRef{}, f.UploadErr
	}
	f.Uploads = append(f.Uploads, contentType)
	return models.BlobRef{
		Ref:      fmt.Sprintf("blob%d", len(f.Uploads)),
		MimeType: contentType,
		Size:     int64(len(data)),
	}, nil
}

// Calls returns the total number of network calls made.
func (f *FakeNetwork) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.AuthCalls + f.ResolveCalls + f.postCalls + len(f.Uploads)
}

// PostCount returns the number of posts created.
func (f *FakeNetwork) PostCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Posts)
}
