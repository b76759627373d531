// Package report renders a completed job's evidence and verdict into the
// final report artifacts and stores them for retrieval.
package report

import (
	"sort"
	"time"

	"idvet/internal/job"
	"idvet/internal/screening"
)

// Document is the report's JSON shape. It is a snapshot of the job's
// evidence at completion time, not a live view.
type Document struct {
	ReportID        string             `json:"report_id"`
	CreatedAt       time.Time          `json:"created_at"`
	Identity        job.Identity       `json:"identity_info"`
	RiskLevel       job.RiskTier       `json:"risk_level"`
	Compliance      []job.Match        `json:"compliance_matches"`
	AdverseMedia    []job.Match        `json:"adverse_media"`
	Screening       map[string]Outcome `json:"screening_outcomes"`
	RiskSummary     string             `json:"risk_summary"`
	Recommendations string             `json:"recommendations"`
}

// Outcome is the per-provider summary embedded in the report. Matches live in
// the top-level sections; this records how each provider resolved.
type Outcome struct {
	Status      job.OutcomeStatus `json:"status"`
	MatchCount  int               `json:"match_count"`
	FailureKind string            `json:"failure_kind,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// NewDocument assembles the report document from a job that finished
// reasoning. Adverse media findings are split out from watchlist matches so
// the two read as distinct report sections.
func NewDocument(j job.Job) Document {
	doc := Document{
		ReportID:  j.ID,
		CreatedAt: time.Now().UTC(),
		Screening: make(map[string]Outcome, len(j.Screening)),
	}
	if j.Extraction != nil {
		doc.Identity = *j.Extraction
	}
	if j.Verdict != nil {
		doc.RiskLevel = j.Verdict.RiskTier
		doc.RiskSummary = j.Verdict.Summary
		doc.Recommendations = j.Verdict.Recommendations
	}

	// Match sections keep a fixed provider order so two builds of the same
	// job produce identical artifacts.
	providers := make([]string, 0, len(j.Screening))
	for provider := range j.Screening {
		providers = append(providers, provider)
	}
	sort.Strings(providers)

	for _, provider := range providers {
		outcome := j.Screening[provider]
		doc.Screening[provider] = Outcome{
			Status:      outcome.Status,
			MatchCount:  len(outcome.Matches),
			FailureKind: outcome.FailureKind,
			Error:       outcome.Error,
		}
		for _, m := range outcome.Matches {
			if m.Source == screening.ProviderDilisense {
				doc.AdverseMedia = append(doc.AdverseMedia, m)
			} else {
				doc.Compliance = append(doc.Compliance, m)
			}
		}
	}
	return doc
}
