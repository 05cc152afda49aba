package factory

import (
	"fmt"

	"github.com/noeunkim/black-white-siseon/internal/config"
	"github.com/noeunkim/black-white-siseon/internal/search"
	"github.com/noeunkim/black-white-siseon/internal/search/searxng"
	"github.com/noeunkim/black-white-siseon/internal/search/tavily"
)

// NewSearcher builds the configured search provider.
func NewSearcher(cfg *config.Config) (search.Searcher, error) {
	provider := cfg.Search.Provider
	if provider == "" {
		if cfg.Search.Tavily.APIKey != "" {
			provider = "tavily"
		} else {
			return nil, fmt.Errorf("search provider not configured")
		}
	}

	switch provider {
	case "tavily":
		apiKey := cfg.Search.Tavily.APIKey
		if apiKey == "" {
			return nil, fmt.Errorf("tavily api key is missing")
		}
		return tavily.NewClient(apiKey), nil

	case "searxng":
		baseURL := cfg.Search.SearXNG.BaseURL
		if baseURL == "" {
			return nil, fmt.Errorf("searxng base url is missing")
		}
		return searxng.NewClient(baseURL, cfg.Search.SearXNG.Timeout), nil

	default:
		return nil, fmt.Errorf("unknown search provider: %s", provider)
	}
}
