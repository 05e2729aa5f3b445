// Package source implements the fetchers, account validators and account
// directory of the external systems a report draws on.
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultTimeout = 60 * time.Second
	defaultMaxPage = 500
	maxErrorBody   = 512
)

// StatusError is returned for a non-2xx HTTP response.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (se *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d: %s", se.URL, se.StatusCode, se.Body)
}

// HTTPDoer is the subset of *http.Client used by the API clients.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// apiClient issues authenticated GET requests against a JSON API.
type apiClient struct {
	baseURL    string
	header     http.Header
	doer       HTTPDoer
	maxRetries int
}

func newAPIClient(baseURL string, header http.Header, doer HTTPDoer, maxRetries int) *apiClient {
	if doer == nil {
		doer = &http.Client{Timeout: defaultTimeout}
	}
	return &apiClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		header:     header,
		doer:       doer,
		maxRetries: maxRetries,
	}
}

// resolve joins a relative path or returns an absolute URL unchanged.
func (c *apiClient) resolve(ref string, query url.Values) string {
	u := ref
	if !strings.HasPrefix(ref, "http://") && !strings.HasPrefix(ref, "https://") {
		u = c.baseURL + "/" + strings.TrimLeft(ref, "/")
	}
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		u += sep + query.Encode()
	}
	return u
}

// get fetches ref, retrying throttled and 5xx responses.
func (c *apiClient) get(ctx context.Context, ref string, query url.Values) ([]byte, error) {
	u := c.resolve(ref, query)
	return retry(ctx, c.maxRetries, func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		for k, vs := range c.header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		req.Header.Set("Accept", "*/*")

		resp, err := c.doer.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			snippet := string(body)
			if len(snippet) > maxErrorBody {
				snippet = snippet[:maxErrorBody]
			}
			return nil, &StatusError{StatusCode: resp.StatusCode, URL: u, Body: snippet}
		}
		return body, nil
	})
}

// joinPages encodes raw JSON pages as a JSON array, preserving page order.
func joinPages(pages [][]byte) []byte {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, p := range pages {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.Write(p)
	}
	sb.WriteByte(']')
	return []byte(sb.String())
}
