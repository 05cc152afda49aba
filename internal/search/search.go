package search

import "context"

// Searcher is the provider-neutral search interface.
type Searcher interface {
	Search(ctx context.Context, req *Request) (*Response, error)
}

// Request is a provider-neutral search request.
type Request struct {
	Query      string
	Topic      string // "news" or "general"
	MaxResults int
}

// Response is a provider-neutral search response.
type Response struct {
	Results []Result
}

// Result is one ranked search hit.
type Result struct {
	Title         string
	URL           string
	Content       string
	Score         float64
	PublishedDate string
}
