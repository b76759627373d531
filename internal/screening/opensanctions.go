package screening

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"idvet/internal/job"
)

// Results below this score are considered noise and dropped.
const openSanctionsScoreThreshold = 0.8

// OpenSanctionsClient performs a structured person match against the
// OpenSanctions matching API.
type OpenSanctionsClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewOpenSanctionsClient(baseURL, apiKey string, client *http.Client) *OpenSanctionsClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &OpenSanctionsClient{baseURL: baseURL, apiKey: apiKey, client: client}
}

func (c *OpenSanctionsClient) Name() string {
	return ProviderOpenSanctions
}

type openSanctionsQuery struct {
	Schema     string              `json:"schema"`
	Properties map[string][]string `json:"properties"`
}

type openSanctionsRequest struct {
	Queries map[string]openSanctionsQuery `json:"queries"`
}

type openSanctionsResponse struct {
	Responses map[string]struct {
		Results []json.RawMessage `json:"results"`
	} `json:"responses"`
}

func (c *OpenSanctionsClient) Search(ctx context.Context, identity job.Identity) ([]job.Match, error) {
	properties := map[string][]string{
		"name": {identity.FullName},
	}
	if identity.DateOfBirth != "" {
		properties["birthDate"] = []string{identity.DateOfBirth}
	}
	if identity.NationalityCode != "" {
		properties["nationality"] = []string{identity.NationalityCode}
	}

	payload, err := json.Marshal(openSanctionsRequest{
		Queries: map[string]openSanctionsQuery{
			"q1": {Schema: "Person", Properties: properties},
		},
	})
	if err != nil {
		return nil, NewProviderError(FailureInvalidResponse, c.Name(), "encode query", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, NewProviderError(FailureNetwork, c.Name(), "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", c.apiKey)
	}

	body, err := do(c.client, c.Name(), req)
	if err != nil {
		return nil, err
	}

	var decoded openSanctionsResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, NewProviderError(FailureInvalidResponse, c.Name(), "decode response", err)
	}

	var matches []job.Match
	for _, queryData := range decoded.Responses {
		for _, raw := range queryData.Results {
			var result map[string]any
			if err := json.Unmarshal(raw, &result); err != nil {
				return nil, NewProviderError(FailureInvalidResponse, c.Name(), "decode result", err)
			}
			score := floatField(result, "score")
			if score <= openSanctionsScoreThreshold {
				continue
			}

			var topic string
			if props, ok := result["properties"].(map[string]any); ok {
				if topics := strsField(props, "topics"); len(topics) > 0 {
					topic = topics[0]
				}
			}

			matches = append(matches, job.Match{
				Source:       ProviderOpenSanctions,
				Score:        score,
				MatchedName:  strField(result, "caption"),
				Lists:        strsField(result, "datasets"),
				RiskCategory: topic,
				Details:      result,
			})
		}
	}
	return matches, nil
}
