package screening

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"idvet/internal/job"
)

// Categories whose exposure is treated as high risk; everything else in the
// adverse media feed is medium.
var dilisenseHighRiskCategories = map[string]bool{
	"terrorism":       true,
	"financial_crime": true,
	"organized_crime": true,
}

// DilisenseClient checks adverse media exposure. Each article under a
// category with hits becomes one normalized match so reasoning sees media
// findings in the same evidence shape as sanctions hits.
type DilisenseClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewDilisenseClient(baseURL, apiKey string, client *http.Client) *DilisenseClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &DilisenseClient{baseURL: baseURL, apiKey: apiKey, client: client}
}

func (c *DilisenseClient) Name() string {
	return ProviderDilisense
}

type dilisenseResponse struct {
	NewsExposures map[string]struct {
		Hits     int              `json:"hits"`
		Articles []map[string]any `json:"articles"`
	} `json:"news_exposures"`
}

func (c *DilisenseClient) Search(ctx context.Context, identity job.Identity) ([]job.Match, error) {
	params := url.Values{}
	params.Set("search_all", identity.FullName)
	params.Set("fetch_articles", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, NewProviderError(FailureNetwork, c.Name(), "build request", err)
	}
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	body, err := do(c.client, c.Name(), req)
	if err != nil {
		return nil, err
	}

	var decoded dilisenseResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, NewProviderError(FailureInvalidResponse, c.Name(), "decode response", err)
	}

	var matches []job.Match
	for category, exposure := range decoded.NewsExposures {
		if exposure.Hits <= 0 {
			continue
		}
		riskLevel := "medium"
		if dilisenseHighRiskCategories[category] {
			riskLevel = "high"
		}
		for _, article := range exposure.Articles {
			details := map[string]any{
				"category":    category,
				"timestamp":   article["timestamp"],
				"headline":    article["headline"],
				"body":        article["body"],
				"source_link": article["source_link"],
				"risk_level":  riskLevel,
			}
			matches = append(matches, job.Match{
				Source:       ProviderDilisense,
				MatchedName:  identity.FullName,
				Lists:        []string{category},
				RiskCategory: category,
				Details:      details,
			})
		}
	}
	return matches, nil
}
