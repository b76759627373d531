package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"idvet/internal/job"
)

type callbackPayload struct {
	JobID       string     `json:"job_id"`
	Status      job.Status `json:"status"`
	CompletedAt *time.Time `json:"completed_at"`
	Error       string     `json:"error,omitempty"`
}

// CallbackNotifier posts the terminal status to the job's callback URL.
// Jobs without a callback URL are skipped.
type CallbackNotifier struct {
	client *http.Client
}

func NewCallbackNotifier(client *http.Client) *CallbackNotifier {
	if client == nil {
		client = http.DefaultClient
	}
	return &CallbackNotifier{client: client}
}

func (n *CallbackNotifier) Notify(ctx context.Context, j job.Job) error {
	if j.CallbackURL == "" {
		return nil
	}

	payload, err := json.Marshal(callbackPayload{
		JobID:       j.ID,
		Status:      j.Status,
		CompletedAt: j.CompletedAt,
		Error:       j.Error,
	})
	if err != nil {
		return fmt.Errorf("encode callback payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, j.CallbackURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build callback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send callback: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("callback returned status %d", resp.StatusCode)
	}
	return nil
}
