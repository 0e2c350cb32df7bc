package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
)

// Fetcher opens a flat file by URL or local path. Gzip content is detected by
// its magic bytes and decompressed transparently.
type Fetcher struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewFetcher creates a Fetcher whose HTTP downloads time out after timeout.
func NewFetcher(timeout time.Duration, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Open returns a reader over the (decompressed) content at location.
// http(s) locations are downloaded; anything else is a local path, with an
// optional file:// prefix.
func (f *Fetcher) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	var body io.ReadCloser
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		rc, err := f.download(ctx, location)
		if err != nil {
			return nil, err
		}
		body = rc
	} else {
		file, err := os.Open(strings.TrimPrefix(location, "file://"))
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", location, err)
		}
		body = file
	}

	return maybeGunzip(body)
}

func (f *Fetcher) download(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", url, err)
	}

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("download %s: status %d: %s", url, resp.StatusCode, snippet)
	}

	f.logger.Info("source download started",
		"url", url,
		"content_length", resp.ContentLength,
		"latency", time.Since(start),
	)
	return resp.Body, nil
}

// gzipReadCloser closes both the gzip stream and the underlying body.
type gzipReadCloser struct {
	*gzip.Reader
	body io.Closer
}

func (g *gzipReadCloser) Close() error {
	gzErr := g.Reader.Close()
	if err := g.body.Close(); err != nil {
		return err
	}
	return gzErr
}

// readCloser pairs a buffered reader with the body it wraps.
type readCloser struct {
	io.Reader
	io.Closer
}

func maybeGunzip(body io.ReadCloser) (io.ReadCloser, error) {
	br := bufio.NewReader(body)
	magic, err := br.Peek(2)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		body.Close()
		return nil, fmt.Errorf("read source header: %w", err)
	}

	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			body.Close()
			return nil, fmt.Errorf("open gzip stream: %w", err)
		}
		return &gzipReadCloser{Reader: zr, body: body}, nil
	}
	return readCloser{Reader: br, Closer: body}, nil
}
