package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idvet/internal/job"
	dErrors "idvet/pkg/domain-errors"
	"idvet/pkg/testutil"
)

type stubService struct {
	submitted job.Job
	submitErr error

	statusJob job.Job
	statusErr error

	reportData []byte
	reportErr  error

	gotFilename string
	gotCallback string
	gotEmail    string
	gotFormat   string
	gotBody     []byte
}

func (s *stubService) Submit(ctx context.Context, filename string, document io.Reader, callbackURL, email string) (job.Job, error) {
	s.gotFilename = filename
	s.gotCallback = callbackURL
	s.gotEmail = email
	s.gotBody, _ = io.ReadAll(document)
	return s.submitted, s.submitErr
}

func (s *stubService) Status(ctx context.Context, id string) (job.Job, error) {
	return s.statusJob, s.statusErr
}

func (s *stubService) Report(ctx context.Context, id, format string) ([]byte, error) {
	s.gotFormat = format
	return s.reportData, s.reportErr
}

func newTestRouter(svc Service) http.Handler {
	r := chi.NewRouter()
	New(svc, nil).Register(r)
	return r
}

func TestHandleAnalyze(t *testing.T) {
	submitted := job.New("uploads/x.jpg", "https://cb.example/hook", "a@example.com", []string{"watchman"})
	svc := &stubService{submitted: submitted}
	router := newTestRouter(svc)

	req := testutil.NewMultipartRequest(t, http.MethodPost, "/api/v1/kyc/analyze",
		"document", "passport.jpg", []byte("image-bytes"),
		map[string]string{
			"callback_url":       "https://cb.example/hook",
			"email_notification": "a@example.com",
		})
	rec := testutil.DoRequest(router, req)

	testutil.AssertStatus(t, rec, http.StatusAccepted)

	resp := testutil.UnmarshalResponse[JobResponse](t, rec)
	assert.Equal(t, submitted.ID, resp.JobID)
	assert.Equal(t, job.StatusSubmitted, resp.Status)
	assert.False(t, resp.ReportAvailable)

	assert.Equal(t, "passport.jpg", svc.gotFilename)
	assert.Equal(t, "https://cb.example/hook", svc.gotCallback)
	assert.Equal(t, "a@example.com", svc.gotEmail)
	assert.Equal(t, "image-bytes", string(svc.gotBody))
}

func TestHandleAnalyzeMissingDocument(t *testing.T) {
	router := newTestRouter(&stubService{})

	req := testutil.NewMultipartRequest(t, http.MethodPost, "/api/v1/kyc/analyze",
		"document", "", nil, map[string]string{"callback_url": "x"})
	rec := testutil.DoRequest(router, req)

	testutil.AssertStatusAndError(t, rec, http.StatusBadRequest, "bad_request")
}

func TestHandleAnalyzeInvalidEmail(t *testing.T) {
	router := newTestRouter(&stubService{})

	req := testutil.NewMultipartRequest(t, http.MethodPost, "/api/v1/kyc/analyze",
		"document", "doc.jpg", []byte("x"),
		map[string]string{"email_notification": "not-an-email"})
	rec := testutil.DoRequest(router, req)

	testutil.AssertStatusAndError(t, rec, http.StatusBadRequest, "bad_request")
}

func TestHandleStatus(t *testing.T) {
	j := job.New("uploads/x.jpg", "", "", []string{"watchman"})
	j.Status = job.StatusScreening
	svc := &stubService{statusJob: j}
	router := newTestRouter(svc)

	rec := testutil.DoRequest(router, httptest.NewRequest(http.MethodGet, "/api/v1/kyc/status/"+j.ID, nil))

	testutil.AssertStatus(t, rec, http.StatusOK)
	resp := testutil.UnmarshalResponse[JobResponse](t, rec)
	assert.Equal(t, job.StatusScreening, resp.Status)
}

func TestHandleStatusNotFound(t *testing.T) {
	svc := &stubService{statusErr: dErrors.New(dErrors.CodeNotFound, "job not found")}
	router := newTestRouter(svc)

	rec := testutil.DoRequest(router, httptest.NewRequest(http.MethodGet, "/api/v1/kyc/status/unknown", nil))

	testutil.AssertStatusAndError(t, rec, http.StatusNotFound, "not_found")
}

func TestHandleReportJSON(t *testing.T) {
	svc := &stubService{reportData: []byte(`{"report_id":"abc"}`)}
	router := newTestRouter(svc)

	rec := testutil.DoRequest(router, httptest.NewRequest(http.MethodGet, "/api/v1/kyc/report/abc", nil))

	testutil.AssertStatus(t, rec, http.StatusOK)
	assert.Equal(t, "json", svc.gotFormat)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.JSONEq(t, `{"report_id":"abc"}`, rec.Body.String())
}

func TestHandleReportPDF(t *testing.T) {
	svc := &stubService{reportData: []byte("%PDF-1.4")}
	router := newTestRouter(svc)

	rec := testutil.DoRequest(router, httptest.NewRequest(http.MethodGet, "/api/v1/kyc/report/abc?format=pdf", nil))

	testutil.AssertStatus(t, rec, http.StatusOK)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "kyc_abc.pdf")
}

func TestHandleReportNotReady(t *testing.T) {
	svc := &stubService{reportErr: dErrors.New(dErrors.CodeNotReady, "report not ready: current status screening")}
	router := newTestRouter(svc)

	rec := testutil.DoRequest(router, httptest.NewRequest(http.MethodGet, "/api/v1/kyc/report/abc", nil))

	testutil.AssertStatusAndError(t, rec, http.StatusConflict, "not_ready")
}

func TestHandleReportUnsupportedFormat(t *testing.T) {
	svc := &stubService{reportErr: dErrors.New(dErrors.CodeUnsupportedFormat, `unsupported report format "xml"`)}
	router := newTestRouter(svc)

	rec := testutil.DoRequest(router, httptest.NewRequest(http.MethodGet, "/api/v1/kyc/report/abc?format=xml", nil))

	testutil.AssertStatusAndError(t, rec, http.StatusBadRequest, "unsupported_format")
}
