// Package reasoning turns a job's extracted identity and screening evidence
// into a structured risk verdict via an OpenAI-compatible chat completions
// endpoint.
package reasoning

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"idvet/internal/job"
	"idvet/internal/screening"
)

// ServiceName keys reasoning failures in logs and audit events.
const ServiceName = "reasoning"

func newInvalidResponse(msg string) error {
	return screening.NewProviderError(screening.FailureInvalidResponse, ServiceName, msg, nil)
}

// Analyzer produces a verdict from the gathered evidence.
type Analyzer interface {
	Analyze(ctx context.Context, identity job.Identity, outcomes map[string]job.Outcome) (job.Verdict, error)
}

// Config holds the model endpoint settings.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
}

// Client implements Analyzer against any OpenAI-compatible server.
type Client struct {
	cfg    Config
	client *http.Client
	log    *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

func WithLogger(log *slog.Logger) Option {
	return func(c *Client) { c.log = log }
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) { c.client = client }
}

func NewClient(cfg Config, opts ...Option) *Client {
	c := &Client{
		cfg:    cfg,
		client: http.DefaultClient,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// citedMatches lists the distinct matched names across successful screening
// outcomes, sorted for stable report output.
func citedMatches(outcomes map[string]job.Outcome) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, out := range outcomes {
		if out.Status != job.OutcomeSuccess {
			continue
		}
		for _, m := range out.Matches {
			name := strings.TrimSpace(m.MatchedName)
			if name == "" {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (c *Client) Analyze(ctx context.Context, identity job.Identity, outcomes map[string]job.Outcome) (job.Verdict, error) {
	start := time.Now()

	body := map[string]any{
		"model":       c.cfg.Model,
		"temperature": c.cfg.Temperature,
		"messages": []map[string]any{
			{"role": "system", "content": BuildSystemPrompt()},
			{"role": "user", "content": BuildUserPrompt(identity, outcomes)},
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return job.Verdict{}, newInvalidResponse("encode request: " + err.Error())
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return job.Verdict{}, screening.NewProviderError(screening.FailureNetwork, ServiceName, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	c.log.Debug("reasoning.analyze.request", "model", c.cfg.Model, "subject", identity.FullName)

	resp, err := c.client.Do(req)
	if err != nil {
		return job.Verdict{}, screening.ClassifyTransportError(ServiceName, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return job.Verdict{}, screening.NewProviderError(screening.FailureNetwork, ServiceName, "read response body", err)
	}
	if resp.StatusCode/100 != 2 {
		return job.Verdict{}, screening.ClassifyStatus(ServiceName, resp.StatusCode)
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return job.Verdict{}, screening.NewProviderError(screening.FailureInvalidResponse, ServiceName, "decode response", err)
	}
	if len(cc.Choices) == 0 {
		return job.Verdict{}, newInvalidResponse("no choices in response")
	}

	verdict, err := ParseAnalysis(cc.Choices[0].Message.Content)
	if err != nil {
		return job.Verdict{}, err
	}
	verdict.CitedMatches = citedMatches(outcomes)

	c.log.Info("reasoning.analyze.ok",
		"risk_tier", verdict.RiskTier,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return verdict, nil
}
