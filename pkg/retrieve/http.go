package retrieve

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const defaultHTTPTimeout = 120 * time.Second

// HTTPStrategy fetches http(s) URLs with a size cap enforced twice: a
// Content-Length check before the transfer and a hard cut while streaming.
type HTTPStrategy struct {
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPStrategy builds the strategy with a shared rate limit across all
// fetches it performs.
func NewHTTPStrategy(rps rate.Limit, burst int) *HTTPStrategy {
	return &HTTPStrategy{
		client:  &http.Client{Timeout: defaultHTTPTimeout},
		limiter: rate.NewLimiter(rps, burst),
	}
}

func (s *HTTPStrategy) Name() string { return "http" }

func (s *HTTPStrategy) CanRetrieve(rawURL, fileType string) bool {
	if fileType == "application/x-git" {
		return false
	}
	return strings.HasPrefix(rawURL, "http://") || strings.HasPrefix(rawURL, "https://")
}

func (s *HTTPStrategy) Fetch(ctx context.Context, req Request) (*File, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	// Cheap pre-check: a declared Content-Length over the cap means the
	// body is never requested.
	if req.MaxBytes > 0 {
		head, err := http.NewRequestWithContext(ctx, http.MethodHead, req.URL, nil)
		if err != nil {
			return nil, fmt.Errorf("retrieve: build request: %w", err)
		}
		if resp, err := s.client.Do(head); err == nil {
			resp.Body.Close()
			if resp.ContentLength > req.MaxBytes {
				return nil, fmt.Errorf("%w: %s declares %d bytes, cap %d",
					ErrTooLarge, req.URL, resp.ContentLength, req.MaxBytes)
			}
		}
	}

	get, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("retrieve: build request: %w", err)
	}
	resp, err := s.client.Do(get)
	if err != nil {
		return nil, fmt.Errorf("retrieve: get %s: %w", req.URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("retrieve: get %s: status %d", req.URL, resp.StatusCode)
	}

	name := fileName(req.URL)
	dest := filepath.Join(req.Dest, name)
	out, err := os.Create(dest)
	if err != nil {
		return nil, fmt.Errorf("retrieve: create %s: %w", dest, err)
	}

	// Stream under the cap. Reading one byte past MaxBytes proves the
	// server lied about (or omitted) Content-Length; the partial file is
	// removed and only this retrieval fails.
	var written int64
	limit := io.Reader(resp.Body)
	if req.MaxBytes > 0 {
		limit = io.LimitReader(resp.Body, req.MaxBytes+1)
	}
	written, err = io.Copy(out, limit)
	cerr := out.Close()
	if err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dest)
		return nil, fmt.Errorf("retrieve: download %s: %w", req.URL, err)
	}
	if req.MaxBytes > 0 && written > req.MaxBytes {
		os.Remove(dest)
		return nil, fmt.Errorf("%w: %s exceeded cap %d mid-transfer", ErrTooLarge, req.URL, req.MaxBytes)
	}

	countBytes(ctx, s.Name(), written)
	return &File{
		URL:      req.URL,
		Path:     dest,
		Name:     name,
		FileType: contentType(resp, req.FileType),
		Size:     written,
	}, nil
}

func fileName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || path.Base(u.Path) == "/" || path.Base(u.Path) == "." {
		return "download"
	}
	return path.Base(u.Path)
}

func contentType(resp *http.Response, declared string) string {
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err == nil {
			return mt
		}
	}
	if declared != "" {
		return declared
	}
	return "application/octet-stream"
}
