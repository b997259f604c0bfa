package httpclient

import (
	"compress/gzip"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/firefart/proxyclient/internal/helper"

	"github.com/andybalholm/brotli"
)

const acceptEncoding = "br, gzip, deflate"

// decodingTransport asks for compressed responses and decodes them before
// handing them to the caller. Requests that already carry an
// Accept-Encoding header are passed through untouched.
type decodingTransport struct {
	next   http.RoundTripper
	logger *slog.Logger
}

func (t *decodingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Accept-Encoding") != "" || req.Method == http.MethodHead {
		return t.next.RoundTrip(req)
	}

	// a RoundTripper must not modify the callers request
	req = req.Clone(req.Context())
	req.Header.Set("Accept-Encoding", acceptEncoding)

	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if err := t.decode(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

type decodedBody struct {
	io.Reader
	decoder io.Closer
	body    io.ReadCloser
}

func (b *decodedBody) Close() error {
	if b.decoder != nil {
		_ = b.decoder.Close()
	}
	return b.body.Close()
}

func (t *decodingTransport) decode(resp *http.Response) error {
	if resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusNotModified || resp.ContentLength == 0 {
		return nil
	}

	body := &decodedBody{body: resp.Body}
	contentEncoding := strings.TrimSpace(resp.Header.Get("Content-Encoding"))
	// https://developer.mozilla.org/en-US/docs/Web/HTTP/Headers/Content-Encoding
	switch {
	case strings.EqualFold(contentEncoding, "gzip"):
		r, err := gzip.NewReader(resp.Body)
		if errors.Is(err, io.EOF) {
			t.emptyBody(resp)
			return nil
		}
		if err != nil {
			return fmt.Errorf("could not create gzip reader: %w", err)
		}
		body.Reader = r
		body.decoder = r
	case strings.EqualFold(contentEncoding, "deflate"):
		r, err := zlib.NewReader(resp.Body)
		if errors.Is(err, io.EOF) {
			t.emptyBody(resp)
			return nil
		}
		if err != nil {
			return fmt.Errorf("could not create zlib reader: %w", err)
		}
		body.Reader = r
		body.decoder = r
	case strings.EqualFold(contentEncoding, "br"):
		body.Reader = brotli.NewReader(resp.Body)
	default:
		return nil
	}

	t.logger.Debug("decoding response body",
		slog.String("url", helper.SanitizeString(resp.Request.URL.Redacted())),
		slog.String("content-encoding", contentEncoding))

	resp.Body = body
	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	resp.Uncompressed = true
	return nil
}

// emptyBody replaces an encoded body that turned out to have no content,
// chunked responses do not announce that upfront
func (t *decodingTransport) emptyBody(resp *http.Response) {
	resp.Body.Close()
	resp.Body = http.NoBody
	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = 0
	resp.Uncompressed = true
}
