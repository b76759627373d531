package handler

import (
	"time"

	"idvet/internal/job"
)

// JobResponse is the HTTP shape for job submission and status queries.
type JobResponse struct {
	JobID           string     `json:"job_id"`
	Status          job.Status `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	DurationSeconds *float64   `json:"duration_seconds,omitempty"`
	Providers       []string   `json:"providers"`
	RiskTier        string     `json:"risk_tier,omitempty"`
	ReportAvailable bool       `json:"report_available"`
	ErrorCode       string     `json:"error_code,omitempty"`
	Error           string     `json:"error,omitempty"`
}

// FromJob converts a job snapshot to its HTTP response.
func FromJob(j job.Job) *JobResponse {
	resp := &JobResponse{
		JobID:           j.ID,
		Status:          j.Status,
		CreatedAt:       j.CreatedAt,
		UpdatedAt:       j.UpdatedAt,
		CompletedAt:     j.CompletedAt,
		DurationSeconds: j.Duration(),
		Providers:       j.Providers,
		ReportAvailable: j.Status == job.StatusCompleted && j.ReportRef != "",
		ErrorCode:       j.ErrorCode,
		Error:           j.Error,
	}
	if j.Verdict != nil {
		resp.RiskTier = string(j.Verdict.RiskTier)
	}
	return resp
}
