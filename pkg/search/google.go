package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-go-golems/parley/pkg/settings"
	"github.com/pkg/errors"
)

const googleSearchURL = "https://www.googleapis.com/customsearch/v1"

// GoogleProvider queries the Google Custom Search JSON API.
type GoogleProvider struct {
	apiKey  string
	cseID   string
	baseURL string
	client  *http.Client
}

var _ Provider = (*GoogleProvider)(nil)

type GoogleOption func(*GoogleProvider)

// WithBaseURL overrides the API endpoint.
func WithBaseURL(baseURL string) GoogleOption {
	return func(p *GoogleProvider) {
		p.baseURL = baseURL
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) GoogleOption {
	return func(p *GoogleProvider) {
		p.client = client
	}
}

func NewGoogleProvider(searchSettings *settings.SearchSettings, options ...GoogleOption) (*GoogleProvider, error) {
	if searchSettings == nil || searchSettings.GoogleAPIKey == "" {
		return nil, errors.New("no Google API key configured")
	}
	if searchSettings.GoogleCSEID == "" {
		return nil, errors.New("no Google CSE ID configured")
	}

	p := &GoogleProvider{
		apiKey:  searchSettings.GoogleAPIKey,
		cseID:   searchSettings.GoogleCSEID,
		baseURL: googleSearchURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, option := range options {
		option(p)
	}
	return p, nil
}

func (p *GoogleProvider) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if limit <= 0 || limit > 10 {
		limit = 5
	}

	params := url.Values{}
	params.Set("key", p.apiKey)
	params.Set("cx", p.cseID)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build search request")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "search request failed")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("search API returned status %d", resp.StatusCode)
	}

	var body struct {
		Items []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errors.Wrap(err, "failed to decode search response")
	}

	results := make([]Result, 0, len(body.Items))
	for _, item := range body.Items {
		results = append(results, Result{
			Title:   item.Title,
			Link:    item.Link,
			Snippet: item.Snippet,
		})
	}
	return results, nil
}
