// Package pipeline orchestrates the analysis of a submitted document: a job
// moves through extraction, screening, reasoning, and report building, and
// every job ends terminal even when stages misbehave.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"idvet/internal/audit"
	"idvet/internal/job"
	"idvet/internal/job/store"
	"idvet/internal/notify"
	"idvet/internal/platform/config"
	"idvet/internal/report"
	"idvet/internal/screening"

	dErrors "idvet/pkg/domain-errors"
	pstrings "idvet/pkg/platform/strings"
	"idvet/pkg/sentinel"

	"idvet/internal/pipeline/metrics"
	"idvet/internal/reasoning"
	"idvet/internal/upload"
)

// Extractor turns a stored document into structured identity fields.
type Extractor interface {
	Extract(ctx context.Context, document io.Reader, filename string) (job.Identity, error)
}

// Orchestrator owns the job lifecycle. All job mutations go through the
// store's atomic update; the orchestrator never holds job state of its own.
type Orchestrator struct {
	cfg       config.Pipeline
	jobs      store.Store
	uploads   upload.Store
	extractor Extractor
	providers []screening.Provider
	analyzer  reasoning.Analyzer
	builder   func(job.Job) (report.Artifacts, error)
	reports   report.ArtifactStore
	notifier  notify.Notifier

	log     *slog.Logger
	metrics *metrics.Metrics
	audit   *audit.Publisher
	tracer  trace.Tracer

	wg sync.WaitGroup
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

func WithLogger(log *slog.Logger) Option {
	return func(o *Orchestrator) { o.log = log }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

func WithAudit(pub *audit.Publisher) Option {
	return func(o *Orchestrator) { o.audit = pub }
}

func WithReportBuilder(builder func(job.Job) (report.Artifacts, error)) Option {
	return func(o *Orchestrator) { o.builder = builder }
}

func New(
	cfg config.Pipeline,
	jobs store.Store,
	uploads upload.Store,
	extractor Extractor,
	providers []screening.Provider,
	analyzer reasoning.Analyzer,
	reports report.ArtifactStore,
	notifier notify.Notifier,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		cfg:       cfg,
		jobs:      jobs,
		uploads:   uploads,
		extractor: extractor,
		providers: providers,
		analyzer:  analyzer,
		builder:   report.Build,
		reports:   reports,
		notifier:  notifier,
		log:       slog.Default(),
		tracer:    otel.Tracer("idvet/pipeline"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) providerNames() []string {
	names := make([]string, 0, len(o.providers))
	for _, p := range o.providers {
		names = append(names, p.Name())
	}
	return pstrings.DedupeAndTrimLower(names)
}

// Submit stores the document, creates the job, and starts processing in the
// background. The returned snapshot is the job as the caller should first see
// it, in the submitted state.
func (o *Orchestrator) Submit(ctx context.Context, filename string, document io.Reader, callbackURL, notificationEmail string) (job.Job, error) {
	j := job.New("", callbackURL, notificationEmail, o.providerNames())

	ref, err := o.uploads.Save(ctx, j.ID, filename, document)
	if err != nil {
		return job.Job{}, dErrors.Wrap(err, dErrors.CodeInternal, "store uploaded document")
	}
	j.DocumentRef = ref

	if err := o.jobs.Create(ctx, j); err != nil {
		return job.Job{}, dErrors.Wrap(err, dErrors.CodeInternal, "create job")
	}

	o.metrics.IncSubmitted()
	o.audit.Emit(ctx, audit.Event{JobID: j.ID, Action: audit.ActionJobSubmitted})
	o.log.Info("pipeline.job_submitted", "job_id", j.ID, "document_ref", ref)

	o.wg.Add(1)
	go o.run(j.ID)

	return j, nil
}

// Status returns a snapshot of the job.
func (o *Orchestrator) Status(ctx context.Context, id string) (job.Job, error) {
	j, err := o.jobs.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return job.Job{}, dErrors.New(dErrors.CodeNotFound, "job not found")
		}
		return job.Job{}, dErrors.Wrap(err, dErrors.CodeInternal, "load job")
	}
	return j, nil
}

// Report returns the rendered report in the requested format. Reports exist
// only for completed jobs.
func (o *Orchestrator) Report(ctx context.Context, id, format string) ([]byte, error) {
	format = strings.ToLower(format)
	if format != report.FormatJSON && format != report.FormatPDF {
		return nil, dErrors.New(dErrors.CodeUnsupportedFormat, fmt.Sprintf("unsupported report format %q", format))
	}

	j, err := o.Status(ctx, id)
	if err != nil {
		return nil, err
	}
	if j.Status != job.StatusCompleted {
		return nil, dErrors.New(dErrors.CodeNotReady, fmt.Sprintf("report not ready: current status %s", j.Status))
	}

	data, err := o.reports.Load(ctx, id, format)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "report artifact not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load report")
	}
	return data, nil
}

// Wait blocks until all in-flight jobs finish. Used on shutdown.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func (o *Orchestrator) documentFilename(ref, jobID string) string {
	return strings.TrimPrefix(filepath.Base(ref), jobID+"_")
}
