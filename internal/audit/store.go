package audit

import (
	"context"
	"sync"
)

// Sink is an append-only destination for audit events.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// InMemorySink buffers events in memory. Used in tests and as the default
// when no broker is configured.
type InMemorySink struct {
	mu     sync.RWMutex
	events []Event
}

func NewInMemorySink() *InMemorySink {
	return &InMemorySink{}
}

func (s *InMemorySink) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// ListByJob returns the recorded events for one job in append order.
func (s *InMemorySink) ListByJob(jobID string) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, e := range s.events {
		if e.JobID == jobID {
			out = append(out, e)
		}
	}
	return out
}
