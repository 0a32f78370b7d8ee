package search

import "context"

// Result is one web search hit.
type Result struct {
	Title   string `json:"title" yaml:"title"`
	Link    string `json:"link" yaml:"link"`
	Snippet string `json:"snippet" yaml:"snippet"`
}

// Provider performs a web search and returns up to limit results.
type Provider interface {
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}
