package media

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
)

var errTooLarge = errors.New("image too large")

// fetch downloads an attachment and reports its content type. data: URIs are
// decoded in place.
func (u *Uploader) fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	if strings.HasPrefix(rawURL, "data:") {
		return u.decodeDataURI(rawURL)
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, "", fmt.Errorf("unsupported scheme: %s (only http/https)", parsed.Scheme)
	}
	if err := u.checkHost(parsed.Hostname()); err != nil {
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("invalid URL: %w", err)
	}
	resp, err := u.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, u.cfg.MaxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read body failed: %w", err)
	}
	if int64(len(data)) > u.cfg.MaxBytes {
		return nil, "", fmt.Errorf("%w: exceeds %d bytes", errTooLarge, u.cfg.MaxBytes)
	}
	return data, contentType(resp.Header.Get("Content-Type"), data), nil
}

// decodeDataURI parses a data:[<mediatype>];base64,<data> URI.
func (u *Uploader) decodeDataURI(uri string) ([]byte, string, error) {
	rest := strings.TrimPrefix(uri, "data:")
	meta, encoded, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("invalid data URI: missing comma separator")
	}
	if !strings.Contains(meta, ";base64") {
		return nil, "", fmt.Errorf("only base64 data URIs are supported")
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, "", fmt.Errorf("invalid base64 data: %w", err)
		}
	}
	if int64(len(data)) > u.cfg.MaxBytes {
		return nil, "", fmt.Errorf("%w: exceeds %d bytes", errTooLarge, u.cfg.MaxBytes)
	}
	declared, _, _ := strings.Cut(meta, ";")
	return data, contentType(declared, data), nil
}

// contentType prefers a declared image type and otherwise sniffs the bytes.
func contentType(declared string, data []byte) string {
	mt := strings.TrimSpace(strings.Split(declared, ";")[0])
	if strings.HasPrefix(mt, "image/") {
		return mt
	}
	return strings.Split(http.DetectContentType(data), ";")[0]
}

// checkHost rejects loopback and cloud metadata addresses.
func (u *Uploader) checkHost(host string) error {
	if u.cfg.AllowLoopback {
		return nil
	}
	if host == "metadata.google.internal" {
		return fmt.Errorf("blocked host: %s", host)
	}

	ip := net.ParseIP(host)
	if ip == nil {
		ips, lookupErr := net.LookupIP(host)
		if lookupErr != nil || len(ips) == 0 {
			return nil //nolint:nilerr // let http.Client handle DNS failures
		}
		ip = ips[0]
	}

	if ip.IsLoopback() {
		return fmt.Errorf("blocked host: loopback address %s", host)
	}
	if ip.Equal(net.ParseIP("169.254.169.254")) {
		return fmt.Errorf("blocked host: cloud metadata address %s", host)
	}
	return nil
}
