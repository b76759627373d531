package notify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idvet/internal/job"
	"idvet/internal/report"
)

func terminalJob(status job.Status) job.Job {
	j := job.New("uploads/doc.jpg", "", "", []string{"watchman"})
	j.Status = status
	now := time.Now().UTC()
	j.CompletedAt = &now
	return j
}

func TestCallbackNotifier(t *testing.T) {
	var got callbackPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	j := terminalJob(job.StatusFailed)
	j.CallbackURL = srv.URL
	j.Error = "extraction failed"

	n := NewCallbackNotifier(srv.Client())
	require.NoError(t, n.Notify(context.Background(), j))

	assert.Equal(t, j.ID, got.JobID)
	assert.Equal(t, job.StatusFailed, got.Status)
	assert.Equal(t, "extraction failed", got.Error)
	require.NotNil(t, got.CompletedAt)
}

func TestCallbackNotifierSkipsWithoutURL(t *testing.T) {
	n := NewCallbackNotifier(nil)
	require.NoError(t, n.Notify(context.Background(), terminalJob(job.StatusCompleted)))
}

func TestCallbackNotifierReportsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	j := terminalJob(job.StatusCompleted)
	j.CallbackURL = srv.URL
	err := NewCallbackNotifier(srv.Client()).Notify(context.Background(), j)
	require.Error(t, err)
}

func TestEmailNotifierSendsPDFAttachment(t *testing.T) {
	reports := report.NewInMemoryStore()
	ctx := context.Background()

	j := terminalJob(job.StatusCompleted)
	j.NotificationEmail = "analyst@example.com"
	_, err := reports.Save(ctx, j.ID, report.Artifacts{PDF: []byte("%PDF-1.4 fake")})
	require.NoError(t, err)

	var got sendGridMail
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sg-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	n := NewEmailNotifier(srv.URL, "sg-key", "kyc@idvet.example", reports, srv.Client())
	require.NoError(t, n.Notify(ctx, j))

	require.Len(t, got.Personalizations, 1)
	assert.Equal(t, "analyst@example.com", got.Personalizations[0].To[0].Email)
	assert.Equal(t, "Analyst", got.Personalizations[0].To[0].Name)
	assert.Equal(t, "kyc@idvet.example", got.From.Email)
	require.Len(t, got.Attachments, 1)
	assert.Equal(t, "application/pdf", got.Attachments[0].Type)

	decoded, err := base64.StdEncoding.DecodeString(got.Attachments[0].Content)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 fake", string(decoded))
}

func TestEmailNotifierSkipsFailedJobs(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	j := terminalJob(job.StatusFailed)
	j.NotificationEmail = "analyst@example.com"

	n := NewEmailNotifier(srv.URL, "k", "f@example.com", report.NewInMemoryStore(), srv.Client())
	require.NoError(t, n.Notify(context.Background(), j))
	assert.False(t, called)
}

func TestEmailNotifierNon202IsError(t *testing.T) {
	reports := report.NewInMemoryStore()
	ctx := context.Background()
	j := terminalJob(job.StatusCompleted)
	j.NotificationEmail = "analyst@example.com"
	_, err := reports.Save(ctx, j.ID, report.Artifacts{PDF: []byte("x")})
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err = NewEmailNotifier(srv.URL, "k", "f@example.com", reports, srv.Client()).Notify(ctx, j)
	require.Error(t, err)
}

type stubNotifier struct {
	calls *[]string
	name  string
	err   error
}

func (s stubNotifier) Notify(ctx context.Context, j job.Job) error {
	*s.calls = append(*s.calls, s.name)
	return s.err
}

func TestMultiRunsAllChannelsInOrder(t *testing.T) {
	var calls []string
	multi := NewMulti(nil,
		stubNotifier{calls: &calls, name: "email", err: errors.New("smtp down")},
		stubNotifier{calls: &calls, name: "callback"},
	)

	require.NoError(t, multi.Notify(context.Background(), terminalJob(job.StatusCompleted)))
	// A failed channel never blocks the next one.
	assert.Equal(t, []string{"email", "callback"}, calls)
}
