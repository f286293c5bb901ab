package adapter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cairnhub/cairn/pkg/model"
)

const webpageReadLimit = 1 << 20

// Webpage is the fallback adapter: it claims any http(s) URL, so it must be
// registered last. The draft carries the page title when one can be found
// and declares the URL itself as the artifact's single file.
type Webpage struct {
	client *http.Client
}

// NewWebpage returns the fallback adapter.
func NewWebpage() *Webpage {
	return &Webpage{client: &http.Client{Timeout: 30 * time.Second}}
}

func (w *Webpage) Name() string    { return "webpage" }
func (w *Webpage) Version() string { return "1.0.0" }

func (w *Webpage) CanHandle(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

func (w *Webpage) ImportArtifact(ctx context.Context, url string) (*model.Artifact, []Suggested, error) {
	draft := &model.Artifact{
		URL:  url,
		Type: model.TypeOther,
		Files: []*model.ArtifactFile{
			{URL: url},
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("adapter: build request: %w", err)
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("adapter: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("adapter: fetch %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, webpageReadLimit))
	if err != nil {
		return nil, nil, fmt.Errorf("adapter: read %s: %w", url, err)
	}
	draft.Title = pageTitle(string(body))
	return draft, nil, nil
}

// pageTitle pulls the first <title> element's text, if any.
func pageTitle(body string) string {
	lower := strings.ToLower(body)
	start := strings.Index(lower, "<title")
	if start < 0 {
		return ""
	}
	open := strings.Index(lower[start:], ">")
	if open < 0 {
		return ""
	}
	start += open + 1
	end := strings.Index(lower[start:], "</title>")
	if end < 0 {
		return ""
	}
	return strings.TrimSpace(body[start : start+end])
}
