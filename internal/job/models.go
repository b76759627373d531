package job

import (
	"time"

	"github.com/google/uuid"

	"idvet/pkg/sentinel"
)

// Terminal error codes surfaced to status queries when a job fails.
const (
	ErrCodeExtractionFailed   = "extraction_failed"
	ErrCodeAllProvidersFailed = "all_providers_failed"
	ErrCodeReasoningFailed    = "reasoning_failed"
	ErrCodeReportBuildFailed  = "report_build_failed"
)

// Identity holds the structured fields extracted from an identity document.
// Only full name and date of birth are guaranteed by the extraction service;
// everything else is best effort.
type Identity struct {
	FullName           string   `json:"full_name"`
	DateOfBirth        string   `json:"date_of_birth"`
	Sex                string   `json:"sex,omitempty"`
	AltName            string   `json:"alt_name,omitempty"`
	GivenNames         string   `json:"given_names,omitempty"`
	Surname            string   `json:"surname,omitempty"`
	PlaceOfBirth       string   `json:"place_of_birth,omitempty"`
	PlacesOfResidence  []string `json:"places_of_residence,omitempty"`
	FathersName        string   `json:"fathers_name,omitempty"`
	MothersName        string   `json:"mothers_name,omitempty"`
	Nationality        string   `json:"nationality,omitempty"`
	NationalityCode    string   `json:"nationality_code,omitempty"`
	DocumentType       string   `json:"document_type,omitempty"`
	DocumentNumber     string   `json:"document_number,omitempty"`
	DateOfExpiry       string   `json:"date_of_expiry,omitempty"`
	IssuingCountry     string   `json:"issuing_country,omitempty"`
	IssuingCountryCode string   `json:"issuing_country_code,omitempty"`
	PersonalNumber     string   `json:"personal_number,omitempty"`
}

// Match is the normalized evidence shape shared by all screening providers.
type Match struct {
	Source               string         `json:"source"`
	Score                float64        `json:"match_score"`
	MatchedName          string         `json:"matched_name"`
	MatchedDatesOfBirth  []string       `json:"matched_dates_of_birth,omitempty"`
	MatchedCountries     []string       `json:"matched_countries,omitempty"`
	MatchedNationalities []string       `json:"matched_nationalities,omitempty"`
	Lists                []string       `json:"lists,omitempty"`
	RiskCategory         string         `json:"risk_category,omitempty"`
	Details              map[string]any `json:"details,omitempty"`
}

// OutcomeStatus tags a provider's screening outcome.
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeError   OutcomeStatus = "error"
	OutcomeSkipped OutcomeStatus = "skipped"
)

// Outcome records how a single screening provider resolved for a job.
// Exactly one outcome exists per attempted provider once screening completes.
type Outcome struct {
	Status      OutcomeStatus `json:"status"`
	Matches     []Match       `json:"matches,omitempty"`
	FailureKind string        `json:"failure_kind,omitempty"`
	Error       string        `json:"error,omitempty"`
	RecordedAt  time.Time     `json:"recorded_at"`
}

func (o Outcome) clone() Outcome {
	out := o
	if o.Matches != nil {
		out.Matches = make([]Match, len(o.Matches))
		for i, m := range o.Matches {
			out.Matches[i] = m.clone()
		}
	}
	return out
}

func (m Match) clone() Match {
	out := m
	out.MatchedDatesOfBirth = append([]string(nil), m.MatchedDatesOfBirth...)
	out.MatchedCountries = append([]string(nil), m.MatchedCountries...)
	out.MatchedNationalities = append([]string(nil), m.MatchedNationalities...)
	out.Lists = append([]string(nil), m.Lists...)
	if m.Details != nil {
		out.Details = make(map[string]any, len(m.Details))
		for k, v := range m.Details {
			out.Details[k] = v
		}
	}
	return out
}

// RiskTier is the reasoning service's overall assessment.
type RiskTier string

const (
	RiskLow      RiskTier = "low"
	RiskMedium   RiskTier = "medium"
	RiskHigh     RiskTier = "high"
	RiskCritical RiskTier = "critical"
)

// Verdict is the structured risk assessment produced by the reasoning stage.
type Verdict struct {
	RiskTier        RiskTier `json:"risk_tier"`
	Summary         string   `json:"summary"`
	Recommendations string   `json:"recommendations"`
	CitedMatches    []string `json:"cited_matches,omitempty"`
}

// Job is one document-analysis request. Mutated exclusively by the pipeline
// orchestrator through the job store's atomic update.
type Job struct {
	ID                string             `json:"id"`
	Status            Status             `json:"status"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
	CompletedAt       *time.Time         `json:"completed_at,omitempty"`
	DocumentRef       string             `json:"document_ref"`
	CallbackURL       string             `json:"callback_url,omitempty"`
	NotificationEmail string             `json:"notification_email,omitempty"`
	Providers         []string           `json:"providers"`
	Extraction        *Identity          `json:"extraction_result,omitempty"`
	Screening         map[string]Outcome `json:"screening_results,omitempty"`
	Verdict           *Verdict           `json:"verdict,omitempty"`
	ReportRef         string             `json:"report_ref,omitempty"`
	ErrorCode         string             `json:"error_code,omitempty"`
	Error             string             `json:"error,omitempty"`
}

// New creates a job in the submitted state. The provider set is fixed here;
// every listed provider eventually gets exactly one screening outcome.
func New(documentRef, callbackURL, notificationEmail string, providers []string) Job {
	now := time.Now().UTC()
	return Job{
		ID:                uuid.New().String(),
		Status:            StatusSubmitted,
		CreatedAt:         now,
		UpdatedAt:         now,
		DocumentRef:       documentRef,
		CallbackURL:       callbackURL,
		NotificationEmail: notificationEmail,
		Providers:         append([]string(nil), providers...),
		Screening:         make(map[string]Outcome),
	}
}

// Transition advances the job to next, enforcing the forward-only ordering.
func (j *Job) Transition(next Status) error {
	if !j.Status.CanTransitionTo(next) {
		return sentinel.ErrInvalidState
	}
	now := time.Now().UTC()
	j.Status = next
	j.UpdatedAt = now
	if next.Terminal() {
		j.CompletedAt = &now
	}
	return nil
}

// Fail moves the job to the failed terminal state with a specific error code.
func (j *Job) Fail(code, message string) error {
	if err := j.Transition(StatusFailed); err != nil {
		return err
	}
	j.ErrorCode = code
	j.Error = message
	return nil
}

// RecordOutcome writes a provider's screening outcome exactly once. Duplicate
// delivery (e.g. a retried response arriving twice) is a no-op, and providers
// outside the job's fixed set are rejected.
func (j *Job) RecordOutcome(provider string, outcome Outcome) bool {
	attempted := false
	for _, p := range j.Providers {
		if p == provider {
			attempted = true
			break
		}
	}
	if !attempted {
		return false
	}
	if j.Screening == nil {
		j.Screening = make(map[string]Outcome)
	}
	if _, exists := j.Screening[provider]; exists {
		return false
	}
	if outcome.RecordedAt.IsZero() {
		outcome.RecordedAt = time.Now().UTC()
	}
	j.Screening[provider] = outcome
	j.UpdatedAt = time.Now().UTC()
	return true
}

// ScreeningComplete reports whether every attempted provider has an outcome.
func (j *Job) ScreeningComplete() bool {
	for _, p := range j.Providers {
		if _, ok := j.Screening[p]; !ok {
			return false
		}
	}
	return true
}

// SuccessfulOutcomes counts providers that resolved with usable evidence.
func (j *Job) SuccessfulOutcomes() int {
	n := 0
	for _, o := range j.Screening {
		if o.Status == OutcomeSuccess {
			n++
		}
	}
	return n
}

// Duration returns the job's wall-clock run time in seconds, or nil if the
// job has not reached a terminal state.
func (j *Job) Duration() *float64 {
	if j.CompletedAt == nil {
		return nil
	}
	d := j.CompletedAt.Sub(j.CreatedAt).Seconds()
	return &d
}

// Clone returns a deep copy so store snapshots never alias live state.
func (j Job) Clone() Job {
	out := j
	out.Providers = append([]string(nil), j.Providers...)
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		out.CompletedAt = &t
	}
	if j.Extraction != nil {
		id := *j.Extraction
		id.PlacesOfResidence = append([]string(nil), j.Extraction.PlacesOfResidence...)
		out.Extraction = &id
	}
	if j.Screening != nil {
		out.Screening = make(map[string]Outcome, len(j.Screening))
		for k, v := range j.Screening {
			out.Screening[k] = v.clone()
		}
	}
	if j.Verdict != nil {
		v := *j.Verdict
		v.CitedMatches = append([]string(nil), j.Verdict.CitedMatches...)
		out.Verdict = &v
	}
	return out
}
