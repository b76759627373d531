// Package audit captures an append-only trail of pipeline actions.
package audit

import (
	"context"
	"log/slog"
	"time"
)

// Publisher emits structured audit events. Emission is best effort; a sink
// failure is logged and never propagates into pipeline control flow.
type Publisher struct {
	sink Sink
	log  *slog.Logger
}

func NewPublisher(sink Sink, log *slog.Logger) *Publisher {
	if log == nil {
		log = slog.Default()
	}
	return &Publisher{sink: sink, log: log}
}

func (p *Publisher) Emit(ctx context.Context, event Event) {
	if p == nil || p.sink == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if err := p.sink.Append(ctx, event); err != nil {
		p.log.Error("audit.append_failed", "job_id", event.JobID, "action", event.Action, "error", err)
	}
}
