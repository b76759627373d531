package screening

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"idvet/internal/job"
)

const (
	watchmanMinMatch = "0.85"
	watchmanLimit    = "15"
)

// WatchmanClient queries the Watchman sanctions search API. The response is a
// map of watchlist categories to candidate entries; every entry across every
// category becomes one normalized match tagged with its category.
type WatchmanClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewWatchmanClient(baseURL, apiKey string, client *http.Client) *WatchmanClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &WatchmanClient{baseURL: baseURL, apiKey: apiKey, client: client}
}

func (c *WatchmanClient) Name() string {
	return ProviderWatchman
}

func (c *WatchmanClient) Search(ctx context.Context, identity job.Identity) ([]job.Match, error) {
	params := url.Values{}
	params.Set("name", identity.FullName)
	params.Set("country", identity.Nationality)
	params.Set("minMatch", watchmanMinMatch)
	params.Set("limit", watchmanLimit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, NewProviderError(FailureNetwork, c.Name(), "build request", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	body, err := do(c.client, c.Name(), req)
	if err != nil {
		return nil, err
	}

	var categories map[string]json.RawMessage
	if err := json.Unmarshal(body, &categories); err != nil {
		return nil, NewProviderError(FailureInvalidResponse, c.Name(), "decode response", err)
	}

	var matches []job.Match
	for category, raw := range categories {
		var items []map[string]any
		if err := json.Unmarshal(raw, &items); err != nil {
			// Non-list fields (counts, metadata) live alongside the
			// category lists; skip them.
			continue
		}
		for _, item := range items {
			matches = append(matches, job.Match{
				Source:               ProviderWatchman,
				Score:                floatField(item, "match"),
				MatchedName:          strField(item, "matchedName"),
				MatchedDatesOfBirth:  strsField(item, "DatesOfBirth"),
				MatchedCountries:     strsField(item, "Countries"),
				MatchedNationalities: strsField(item, "Nationalities"),
				Lists:                []string{category},
				RiskCategory:         category,
				Details:              item,
			})
		}
	}
	return matches, nil
}
