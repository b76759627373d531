package job

// Status tracks a job through the analysis pipeline. Statuses are totally
// ordered; a job only ever moves forward and the two terminal statuses are
// immutable once reached.
type Status string

const (
	StatusSubmitted      Status = "submitted"
	StatusExtracting     Status = "extracting"
	StatusScreening      Status = "screening"
	StatusReasoning      Status = "reasoning"
	StatusBuildingReport Status = "building_report"
	StatusCompleted      Status = "completed"
	StatusFailed         Status = "failed"
)

var statusRank = map[Status]int{
	StatusSubmitted:      0,
	StatusExtracting:     1,
	StatusScreening:      2,
	StatusReasoning:      3,
	StatusBuildingReport: 4,
	StatusCompleted:      5,
	StatusFailed:         5,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// Terminal reports whether s is a final status.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo reports whether moving from s to next respects the forward
// ordering. Skipping ahead is allowed (a job can fail from any stage); moving
// backward or out of a terminal status is not.
func (s Status) CanTransitionTo(next Status) bool {
	if s.Terminal() {
		return false
	}
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	return to > from
}
