// Package notify delivers completion notifications once a job reaches a
// terminal state. Every channel is best effort; notification failures never
// change a job's outcome.
package notify

import (
	"context"
	"log/slog"

	"idvet/internal/job"
)

// Notifier delivers one notification channel for a terminal job.
type Notifier interface {
	Notify(ctx context.Context, j job.Job) error
}

// Multi runs each channel in order, logging failures and continuing. Email
// goes out before the callback so the callback receiver can assume the
// recipient already has the report.
type Multi struct {
	channels []Notifier
	log      *slog.Logger
}

func NewMulti(log *slog.Logger, channels ...Notifier) *Multi {
	if log == nil {
		log = slog.Default()
	}
	return &Multi{channels: channels, log: log}
}

func (m *Multi) Notify(ctx context.Context, j job.Job) error {
	for _, ch := range m.channels {
		if err := ch.Notify(ctx, j); err != nil {
			m.log.Error("notify.channel_failed", "job_id", j.ID, "error", err)
		}
	}
	return nil
}
