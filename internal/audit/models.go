package audit

import "time"

// Actions recorded over a job's lifecycle.
const (
	ActionJobSubmitted    = "job.submitted"
	ActionStageStarted    = "stage.started"
	ActionStageCompleted  = "stage.completed"
	ActionProviderOutcome = "provider.outcome"
	ActionJobCompleted    = "job.completed"
	ActionJobFailed       = "job.failed"
	ActionNotifySent      = "notify.sent"
)

// Event is emitted from pipeline logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	JobID     string    `json:"job_id"`
	Action    string    `json:"action"`
	Stage     string    `json:"stage,omitempty"`
	Provider  string    `json:"provider,omitempty"`
	Outcome   string    `json:"outcome,omitempty"`
	Error     string    `json:"error,omitempty"`
}
