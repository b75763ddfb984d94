// Package netx holds HTTP helpers shared by the RemoteAPI client and the
// artifact downloader.
package netx

import (
	"bytes"
	"io"
	"mime"
	"strings"
)

// DefaultContentType is assumed for binary bodies that carry no type.
const DefaultContentType = "application/octet-stream"

// FilenameFromDisposition extracts the filename parameter of a
// Content-Disposition header value. It returns "" when absent or malformed.
func FilenameFromDisposition(value string) string {
	if value == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(value)
	if err != nil {
		return ""
	}
	return params["filename"]
}

// ContentTypeOr returns ct when it is a parseable media type, otherwise
// fallback.
func ContentTypeOr(ct, fallback string) string {
	if strings.TrimSpace(ct) == "" {
		return fallback
	}
	if _, _, err := mime.ParseMediaType(ct); err != nil {
		return fallback
	}
	return ct
}

// ReadSnippet reads at most limit bytes from r. Read errors are swallowed:
// the snippet is only used to build error messages.
func ReadSnippet(r io.Reader, limit int64) []byte {
	if r == nil {
		return nil
	}
	b, _ := io.ReadAll(io.LimitReader(r, limit))
	return b
}

// DrainAndClose discards what is left of body so the connection can be
// reused, then closes it.
func DrainAndClose(body io.ReadCloser) {
	if body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
	_ = body.Close()
}

// LooksLikeHTML reports whether b is an HTML document (proxy error pages and
// the like), which is never worth showing to a user verbatim.
func LooksLikeHTML(b []byte) bool {
	t := bytes.ToLower(bytes.TrimSpace(b))
	return bytes.HasPrefix(t, []byte("<!doctype html")) || bytes.HasPrefix(t, []byte("<html"))
}
