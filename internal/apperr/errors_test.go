package apperr

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/starford/skythread/internal/models"
)

func TestMediaUploadError_ShortensLongURLs(t *testing.T) {
	uri := "data:image/png;base64," + strings.Repeat("QUJD", 250_000)
	err := &MediaUploadError{Block: "reply #1", URL: uri, Cause: errors.New("blob rejected")}

	msg := err.Error()
	if len(msg) > 200 {
		t.Errorf("message is %d bytes long", len(msg))
	}
	if !strings.Contains(msg, "(data:image/png;base64,") || !strings.Contains(msg, "...)") {
		t.Errorf("message = %q", msg)
	}
}

func TestMediaUploadError_KeepsShortURLs(t *testing.T) {
	err := &MediaUploadError{URL: "https://example.com/a.png", Cause: errors.New("HTTP 404")}
	if got := err.Error(); got != "media upload failed (https://example.com/a.png): HTTP 404" {
		t.Errorf("message = %q", got)
	}
}

func TestShortURL_RespectsRuneBoundaries(t *testing.T) {
	u := "https://example.com/" + strings.Repeat("\u00e9", 40)
	got := ShortURL(u)
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("got %q", got)
	}
	if !strings.HasPrefix(u, strings.TrimSuffix(got, "...")) || !utf8.ValidString(got) {
		t.Errorf("cut inside a rune: %q", got)
	}
}

func TestPartialNotice(t *testing.T) {
	created := []models.StrongRef{{URI: "at://a", CID: "c"}}
	media := &MediaUploadError{Block: "reply #2", Created: created, Cause: errors.New("x")}
	pub := &PublishError{Block: "reply #2", Created: created, Cause: errors.New("x")}

	for _, err := range []error{media, pub} {
		if !strings.Contains(err.Error(), "thread may be partially posted: 1 post(s) already created") {
			t.Errorf("missing notice in %q", err.Error())
		}
	}
	if strings.Contains((&PublishError{Block: "root", Cause: errors.New("x")}).Error(), "partially") {
		t.Error("root failure should not carry the notice")
	}
}

func TestKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{ErrNoCredential, KindConfiguration},
		{ErrPublishInProgress, KindBusy},
		{&MediaUploadError{Cause: errors.New("x")}, KindMediaUpload},
		{&AuthenticationError{Cause: errors.New("x")}, KindAuthentication},
		{errors.New("boom"), KindInternal},
	}
	for _, tc := range cases {
		if got := Kind(tc.err); got != tc.want {
			t.Errorf("Kind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
