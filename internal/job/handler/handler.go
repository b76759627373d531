// Package handler wires the analysis endpoints to the pipeline orchestrator.
package handler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/mail"
	"time"

	"github.com/go-chi/chi/v5"

	"idvet/internal/job"
	"idvet/internal/report"
	dErrors "idvet/pkg/domain-errors"
	"idvet/pkg/platform/httputil"
)

// Submissions larger than this are rejected before buffering.
const maxUploadBytes = 32 << 20

// Service defines the pipeline operations the HTTP layer depends on.
type Service interface {
	Submit(ctx context.Context, filename string, document io.Reader, callbackURL, notificationEmail string) (job.Job, error)
	Status(ctx context.Context, id string) (job.Job, error)
	Report(ctx context.Context, id, format string) ([]byte, error)
}

// Handler wires analysis endpoints to the pipeline.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a job handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Register mounts the analysis endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/v1/kyc/analyze", h.HandleAnalyze)
	r.Get("/api/v1/kyc/status/{job_id}", h.HandleStatus)
	r.Get("/api/v1/kyc/report/{job_id}", h.HandleReport)
}

// HandleAnalyze handles POST /api/v1/kyc/analyze. The document arrives as a
// multipart upload alongside optional callback and email fields.
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "request must be multipart form data"))
		return
	}

	document, header, err := r.FormFile("document")
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "document file is required"))
		return
	}
	defer document.Close()

	callbackURL := r.FormValue("callback_url")
	notificationEmail := r.FormValue("email_notification")
	if notificationEmail != "" {
		if _, err := mail.ParseAddress(notificationEmail); err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "email_notification is not a valid address"))
			return
		}
	}

	j, err := h.service.Submit(ctx, header.Filename, document, callbackURL, notificationEmail)
	if err != nil {
		h.logger.ErrorContext(ctx, "job submission failed",
			"filename", header.Filename,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "job submitted",
		"job_id", j.ID,
		"filename", header.Filename,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusAccepted, FromJob(j))
}

// HandleStatus handles GET /api/v1/kyc/status/{job_id}.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := chi.URLParam(r, "job_id")

	j, err := h.service.Status(ctx, jobID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromJob(j))
}

// HandleReport handles GET /api/v1/kyc/report/{job_id}?format=json|pdf.
func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := chi.URLParam(r, "job_id")

	format := r.URL.Query().Get("format")
	if format == "" {
		format = report.FormatJSON
	}

	data, err := h.service.Report(ctx, jobID, format)
	if err != nil {
		h.logger.WarnContext(ctx, "report retrieval failed",
			"job_id", jobID,
			"format", format,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	switch format {
	case report.FormatPDF:
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=kyc_%s.pdf", jobID))
	default:
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
