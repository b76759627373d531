package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"idvet/internal/audit"
	"idvet/internal/job"
	"idvet/internal/screening"
)

// run drives one job from submitted to a terminal state. It owns the job's
// lifetime: whatever happens inside, the job ends terminal and notifications
// go out exactly once.
func (o *Orchestrator) run(id string) {
	defer o.wg.Done()

	ctx, span := o.tracer.Start(context.Background(), "pipeline.run",
		trace.WithAttributes(attribute.String("job_id", id)))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			o.log.Error("pipeline.panic", "job_id", id, "panic", r, "stack", string(debug.Stack()))
			o.failJob(ctx, id, "internal_error", fmt.Errorf("pipeline panic: %v", r))
		}
	}()

	snapshot, err := o.jobs.Get(ctx, id)
	if err != nil {
		o.log.Error("pipeline.load_job_failed", "job_id", id, "error", err)
		return
	}

	identity, ok := o.runExtraction(ctx, snapshot)
	if !ok {
		return
	}

	if !o.runScreening(ctx, id, identity) {
		return
	}

	if !o.runReasoning(ctx, id, identity) {
		return
	}

	o.runReport(ctx, id)
}

// advance moves the job forward one stage. A false return means the job
// disappeared or is already terminal; the caller stops processing.
func (o *Orchestrator) advance(ctx context.Context, id string, next job.Status) (job.Job, bool) {
	j, err := o.jobs.Update(ctx, id, func(j *job.Job) error {
		return j.Transition(next)
	})
	if err != nil {
		o.log.Error("pipeline.transition_failed", "job_id", id, "next", next, "error", err)
		return job.Job{}, false
	}
	o.audit.Emit(ctx, audit.Event{JobID: id, Action: audit.ActionStageStarted, Stage: string(next)})
	return j, true
}

func (o *Orchestrator) runExtraction(ctx context.Context, snapshot job.Job) (job.Identity, bool) {
	id := snapshot.ID
	if _, ok := o.advance(ctx, id, job.StatusExtracting); !ok {
		return job.Identity{}, false
	}

	ctx, span := o.tracer.Start(ctx, "pipeline.extract")
	defer span.End()
	start := time.Now()

	var identity job.Identity
	filename := o.documentFilename(snapshot.DocumentRef, id)
	err := o.withRetry(ctx, "extraction", func(ctx context.Context) error {
		document, err := o.uploads.Open(ctx, snapshot.DocumentRef)
		if err != nil {
			return err
		}
		defer document.Close()

		attemptCtx, cancel := context.WithTimeout(ctx, o.cfg.ExtractionTimeout)
		defer cancel()

		identity, err = o.extractor.Extract(attemptCtx, document, filename)
		return err
	})
	o.metrics.ObserveStage("extraction", time.Since(start))

	if err != nil {
		span.RecordError(err)
		o.failJob(ctx, id, job.ErrCodeExtractionFailed, err)
		return job.Identity{}, false
	}

	if _, err := o.jobs.Update(ctx, id, func(j *job.Job) error {
		j.Extraction = &identity
		return nil
	}); err != nil {
		o.log.Error("pipeline.store_extraction_failed", "job_id", id, "error", err)
		o.failJob(ctx, id, job.ErrCodeExtractionFailed, err)
		return job.Identity{}, false
	}

	o.audit.Emit(ctx, audit.Event{JobID: id, Action: audit.ActionStageCompleted, Stage: string(job.StatusExtracting)})
	return identity, true
}

// runScreening fans out to every provider in parallel. Each provider's
// outcome is recorded the moment it resolves; one slow or failing provider
// never blocks or discards another's result.
func (o *Orchestrator) runScreening(ctx context.Context, id string, identity job.Identity) bool {
	if _, ok := o.advance(ctx, id, job.StatusScreening); !ok {
		return false
	}

	ctx, span := o.tracer.Start(ctx, "pipeline.screen")
	defer span.End()
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	for _, provider := range o.providers {
		provider := provider
		g.Go(func() error {
			outcome := o.screenProvider(gctx, provider, identity)

			if _, err := o.jobs.Update(ctx, id, func(j *job.Job) error {
				j.RecordOutcome(provider.Name(), outcome)
				return nil
			}); err != nil {
				o.log.Error("pipeline.record_outcome_failed", "job_id", id, "provider", provider.Name(), "error", err)
			}

			o.metrics.IncProviderOutcome(provider.Name(), string(outcome.Status))
			o.audit.Emit(ctx, audit.Event{
				JobID:    id,
				Action:   audit.ActionProviderOutcome,
				Stage:    string(job.StatusScreening),
				Provider: provider.Name(),
				Outcome:  string(outcome.Status),
				Error:    outcome.Error,
			})
			return nil
		})
	}
	// Goroutines record outcomes instead of returning errors, so Wait only
	// gathers completion.
	_ = g.Wait()
	o.metrics.ObserveStage("screening", time.Since(start))

	snapshot, err := o.jobs.Get(ctx, id)
	if err != nil {
		// Even a store error must leave the job terminal.
		o.log.Error("pipeline.load_job_failed", "job_id", id, "error", err)
		o.failJob(ctx, id, "internal_error", fmt.Errorf("load job after screening: %w", err))
		return false
	}
	if snapshot.SuccessfulOutcomes() == 0 {
		err := fmt.Errorf("all %d screening providers failed", len(o.providers))
		span.RecordError(err)
		o.failJob(ctx, id, job.ErrCodeAllProvidersFailed, err)
		return false
	}

	o.audit.Emit(ctx, audit.Event{JobID: id, Action: audit.ActionStageCompleted, Stage: string(job.StatusScreening)})
	return true
}

// screenProvider makes bounded attempts against one provider and always
// returns a recorded outcome, success or error.
func (o *Orchestrator) screenProvider(ctx context.Context, provider screening.Provider, identity job.Identity) job.Outcome {
	var matches []job.Match
	err := o.withRetry(ctx, provider.Name(), func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, o.cfg.ProviderTimeout)
		defer cancel()

		var err error
		matches, err = provider.Search(attemptCtx, identity)
		return err
	})
	if err != nil {
		o.log.Warn("pipeline.provider_failed", "provider", provider.Name(), "kind", screening.KindOf(err), "error", err)
		return job.Outcome{
			Status:      job.OutcomeError,
			FailureKind: string(screening.KindOf(err)),
			Error:       err.Error(),
		}
	}
	return job.Outcome{Status: job.OutcomeSuccess, Matches: matches}
}

func (o *Orchestrator) runReasoning(ctx context.Context, id string, identity job.Identity) bool {
	snapshot, ok := o.advance(ctx, id, job.StatusReasoning)
	if !ok {
		return false
	}

	ctx, span := o.tracer.Start(ctx, "pipeline.reason")
	defer span.End()
	start := time.Now()

	var verdict job.Verdict
	err := o.withRetry(ctx, "reasoning", func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, o.cfg.ReasoningTimeout)
		defer cancel()

		var err error
		verdict, err = o.analyzer.Analyze(attemptCtx, identity, snapshot.Screening)
		return err
	})
	o.metrics.ObserveStage("reasoning", time.Since(start))

	if err != nil {
		span.RecordError(err)
		o.failJob(ctx, id, job.ErrCodeReasoningFailed, err)
		return false
	}

	if _, err := o.jobs.Update(ctx, id, func(j *job.Job) error {
		j.Verdict = &verdict
		return nil
	}); err != nil {
		o.log.Error("pipeline.store_verdict_failed", "job_id", id, "error", err)
		o.failJob(ctx, id, job.ErrCodeReasoningFailed, err)
		return false
	}

	o.audit.Emit(ctx, audit.Event{JobID: id, Action: audit.ActionStageCompleted, Stage: string(job.StatusReasoning)})
	return true
}

func (o *Orchestrator) runReport(ctx context.Context, id string) {
	snapshot, ok := o.advance(ctx, id, job.StatusBuildingReport)
	if !ok {
		return
	}

	ctx, span := o.tracer.Start(ctx, "pipeline.build_report")
	defer span.End()
	start := time.Now()

	artifacts, err := o.builder(snapshot)
	if err != nil {
		span.RecordError(err)
		o.failJob(ctx, id, job.ErrCodeReportBuildFailed, err)
		return
	}

	ref, err := o.reports.Save(ctx, id, artifacts)
	if err != nil {
		span.RecordError(err)
		o.failJob(ctx, id, job.ErrCodeReportBuildFailed, err)
		return
	}
	o.metrics.ObserveStage("building_report", time.Since(start))

	final, err := o.jobs.Update(ctx, id, func(j *job.Job) error {
		j.ReportRef = ref
		return j.Transition(job.StatusCompleted)
	})
	if err != nil {
		o.log.Error("pipeline.complete_failed", "job_id", id, "error", err)
		return
	}

	o.metrics.IncFinished(string(job.StatusCompleted))
	if d := final.Duration(); d != nil {
		o.metrics.ObserveJobDuration(time.Duration(*d * float64(time.Second)))
	}
	o.audit.Emit(ctx, audit.Event{JobID: id, Action: audit.ActionJobCompleted})
	o.log.Info("pipeline.job_completed", "job_id", id, "report_ref", ref)

	o.notifyTerminal(ctx, final)
}

// failJob moves the job to failed with its error code and sends the terminal
// notifications. Safe to call for a job that already ended; the terminal
// transition will simply be rejected and nothing further happens.
func (o *Orchestrator) failJob(ctx context.Context, id, code string, cause error) {
	final, err := o.jobs.Update(ctx, id, func(j *job.Job) error {
		return j.Fail(code, cause.Error())
	})
	if err != nil {
		o.log.Error("pipeline.fail_transition_rejected", "job_id", id, "code", code, "error", err)
		return
	}

	o.metrics.IncFinished(string(job.StatusFailed))
	if d := final.Duration(); d != nil {
		o.metrics.ObserveJobDuration(time.Duration(*d * float64(time.Second)))
	}
	o.audit.Emit(ctx, audit.Event{JobID: id, Action: audit.ActionJobFailed, Error: cause.Error()})
	o.log.Error("pipeline.job_failed", "job_id", id, "code", code, "error", cause)

	o.notifyTerminal(ctx, final)
}

func (o *Orchestrator) notifyTerminal(ctx context.Context, j job.Job) {
	if o.notifier == nil {
		return
	}
	notifyCtx, cancel := context.WithTimeout(ctx, o.cfg.NotifyTimeout)
	defer cancel()

	if err := o.notifier.Notify(notifyCtx, j); err != nil {
		o.log.Error("pipeline.notify_failed", "job_id", j.ID, "error", err)
		return
	}
	o.audit.Emit(ctx, audit.Event{JobID: j.ID, Action: audit.ActionNotifySent})
}
