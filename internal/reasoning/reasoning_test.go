package reasoning

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idvet/internal/job"
	"idvet/internal/screening"
)

const sampleAnalysis = `IDENTITY_VERIFICATION: good

MATCH_QUALITY: probable

RISK_LEVEL: HIGH

SUMMARY: Subject matches an OFAC SDN entry with matching date of birth.
The adverse media exposure corroborates the sanctions hit.

RECOMMENDATIONS: Escalate to compliance review.
Do not onboard until the match is manually adjudicated.`

func TestParseAnalysis(t *testing.T) {
	verdict, err := ParseAnalysis(sampleAnalysis)
	require.NoError(t, err)

	assert.Equal(t, job.RiskHigh, verdict.RiskTier)
	assert.Contains(t, verdict.Summary, "OFAC SDN entry")
	assert.Contains(t, verdict.Summary, "corroborates the sanctions hit.")
	assert.NotContains(t, verdict.Summary, "RECOMMENDATIONS")
	assert.Contains(t, verdict.Recommendations, "Escalate to compliance review.")
	assert.Contains(t, verdict.Recommendations, "manually adjudicated.")
}

func TestParseAnalysisLowercaseLevel(t *testing.T) {
	verdict, err := ParseAnalysis("RISK_LEVEL: low\nSUMMARY: clean\nRECOMMENDATIONS: proceed")
	require.NoError(t, err)
	assert.Equal(t, job.RiskLow, verdict.RiskTier)
}

func TestParseAnalysisRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"no sections":      "the subject looks fine to me",
		"unknown level":    "RISK_LEVEL: PURPLE\nSUMMARY: x\nRECOMMENDATIONS: y",
		"missing summary":  "RISK_LEVEL: LOW\nRECOMMENDATIONS: y",
		"empty summary":    "RISK_LEVEL: LOW\nSUMMARY:\nRECOMMENDATIONS: y",
		"missing recs":     "RISK_LEVEL: LOW\nSUMMARY: x",
		"level only":       "RISK_LEVEL: CRITICAL",
		"empty recs value": "RISK_LEVEL: LOW\nSUMMARY: x\nRECOMMENDATIONS:",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseAnalysis(content)
			require.Error(t, err)
			assert.Equal(t, screening.FailureInvalidResponse, screening.KindOf(err))
			assert.False(t, screening.IsRetryable(err))
		})
	}
}

func TestValidateVerdict(t *testing.T) {
	err := ValidateVerdict(job.Verdict{RiskTier: "severe", Summary: "x", Recommendations: "y"})
	require.Error(t, err)

	err = ValidateVerdict(job.Verdict{RiskTier: job.RiskCritical, Summary: "x", Recommendations: "y"})
	require.NoError(t, err)
}

func TestClientAnalyze(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer llm-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": sampleAnalysis}},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(
		Config{BaseURL: srv.URL + "/v1", APIKey: "llm-key", Model: "gpt-4o", Temperature: 0.1},
		WithHTTPClient(srv.Client()),
	)

	outcomes := map[string]job.Outcome{
		"watchman": {Status: job.OutcomeSuccess, Matches: []job.Match{{Source: "watchman", MatchedName: "JANE EXAMPLE"}}},
		"dilisense": {
			Status:      job.OutcomeError,
			FailureKind: string(screening.FailureTimeout),
			Error:       "request timed out",
		},
	}
	verdict, err := client.Analyze(context.Background(), job.Identity{FullName: "Jane Example", DateOfBirth: "1984-02-14"}, outcomes)
	require.NoError(t, err)
	assert.Equal(t, job.RiskHigh, verdict.RiskTier)
	assert.Equal(t, []string{"JANE EXAMPLE"}, verdict.CitedMatches)

	assert.Equal(t, "gpt-4o", gotBody["model"])
	messages := gotBody["messages"].([]any)
	require.Len(t, messages, 2)
	user := messages[1].(map[string]any)["content"].(string)
	assert.Contains(t, user, "Jane Example")
	assert.Contains(t, user, "watchman")
	// Failed providers are presented to the model, not silently dropped.
	assert.Contains(t, user, "request timed out")
}

func TestClientAnalyzeNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL}, WithHTTPClient(srv.Client()))
	_, err := client.Analyze(context.Background(), job.Identity{FullName: "x"}, nil)
	require.Error(t, err)
	assert.Equal(t, screening.FailureInvalidResponse, screening.KindOf(err))
}

func TestClientAnalyzeRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL}, WithHTTPClient(srv.Client()))
	_, err := client.Analyze(context.Background(), job.Identity{FullName: "x"}, nil)
	require.Error(t, err)
	assert.True(t, screening.IsRetryable(err))
}
