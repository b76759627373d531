package reasoning

import (
	"regexp"
	"strings"

	"idvet/internal/job"
)

var (
	riskLevelRe       = regexp.MustCompile(`RISK_LEVEL:\s*(\w+)`)
	summaryRe         = regexp.MustCompile(`(?s)SUMMARY:(.*?)(?:RECOMMENDATIONS:|$)`)
	recommendationsRe = regexp.MustCompile(`(?s)RECOMMENDATIONS:(.*)$`)
)

var riskTiers = map[string]job.RiskTier{
	"LOW":      job.RiskLow,
	"MEDIUM":   job.RiskMedium,
	"HIGH":     job.RiskHigh,
	"CRITICAL": job.RiskCritical,
}

// ParseAnalysis extracts the verdict from the model's sectioned response.
// A response missing any required section is an invalid response, never a
// default verdict.
func ParseAnalysis(content string) (job.Verdict, error) {
	risk := riskLevelRe.FindStringSubmatch(content)
	if risk == nil {
		return job.Verdict{}, newInvalidResponse("missing RISK_LEVEL section")
	}
	tier, ok := riskTiers[strings.ToUpper(risk[1])]
	if !ok {
		return job.Verdict{}, newInvalidResponse("unknown risk level " + risk[1])
	}

	summary := summaryRe.FindStringSubmatch(content)
	recommendations := recommendationsRe.FindStringSubmatch(content)
	if summary == nil || recommendations == nil {
		return job.Verdict{}, newInvalidResponse("missing SUMMARY or RECOMMENDATIONS section")
	}

	verdict := job.Verdict{
		RiskTier:        tier,
		Summary:         strings.TrimSpace(summary[1]),
		Recommendations: strings.TrimSpace(recommendations[1]),
	}
	if err := ValidateVerdict(verdict); err != nil {
		return job.Verdict{}, err
	}
	return verdict, nil
}
