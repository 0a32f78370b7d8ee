package search

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
)

const duckDuckGoURL = "https://html.duckduckgo.com/html/"

// DuckDuckGoProvider scrapes the HTML (non-JS) DuckDuckGo frontend. It
// needs no credentials and serves as fallback when Google is not
// configured.
type DuckDuckGoProvider struct {
	baseURL string
	client  *http.Client
}

var _ Provider = (*DuckDuckGoProvider)(nil)

type DuckDuckGoOption func(*DuckDuckGoProvider)

func WithDuckDuckGoBaseURL(baseURL string) DuckDuckGoOption {
	return func(p *DuckDuckGoProvider) {
		p.baseURL = baseURL
	}
}

func WithDuckDuckGoHTTPClient(client *http.Client) DuckDuckGoOption {
	return func(p *DuckDuckGoProvider) {
		p.client = client
	}
}

func NewDuckDuckGoProvider(options ...DuckDuckGoOption) *DuckDuckGoProvider {
	p := &DuckDuckGoProvider{
		baseURL: duckDuckGoURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, option := range options {
		option(p)
	}
	return p
}

func (p *DuckDuckGoProvider) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 5
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?q="+url.QueryEscape(query), nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build search request")
	}
	// the HTML frontend blocks default Go user agents
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "search request failed")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("search returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse search response")
	}

	var results []Result
	doc.Find(".result").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if len(results) >= limit {
			return false
		}

		link := s.Find("a.result__a")
		href, _ := link.Attr("href")
		title := strings.TrimSpace(link.Text())
		snippet := strings.TrimSpace(s.Find(".result__snippet").Text())

		if title == "" || href == "" {
			return true
		}
		results = append(results, Result{
			Title:   title,
			Link:    decodeRedirect(href),
			Snippet: snippet,
		})
		return true
	})

	if len(results) == 0 {
		return nil, errors.New("no results found")
	}
	return results, nil
}

// decodeRedirect unwraps DuckDuckGo's /l/?uddg=... redirect links.
func decodeRedirect(href string) string {
	if !strings.Contains(href, "uddg=") {
		return href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}
