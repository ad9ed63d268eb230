package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// ContentItem is a single record from the upstream content service.
// Fetched per request, rendered, discarded.
type ContentItem struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// ErrUpstreamUnavailable covers transport failures and non-2xx answers
// other than a plain 404.
var ErrUpstreamUnavailable = errors.New("content upstream unavailable")

// ContentService abstraction for post lookup
type ContentService interface {
	FetchPost(ctx context.Context, id string) (*ContentItem, error)
}

// httpContentService implements ContentService against a JSON REST endpoint.
type httpContentService struct {
	BaseURL string
	Client  *http.Client
}

func (s *httpContentService) FetchPost(ctx context.Context, id string) (*ContentItem, error) {
	u := fmt.Sprintf("%s/posts/%s", s.BaseURL, url.PathEscape(id))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil // Not found
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrUpstreamUnavailable, resp.StatusCode, string(body))
	}

	var item ContentItem
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return nil, fmt.Errorf("decode content response: %w", err)
	}

	// Some upstreams answer an unknown id with an empty object instead of 404.
	if item.Title == "" && item.Body == "" {
		return nil, nil
	}

	return &item, nil
}
