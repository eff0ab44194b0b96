// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"sync"
	"time"

	"pos-workers/internal/common/config"
	poserrors "pos-workers/internal/common/errors"
	"pos-workers/internal/common/logger"
	"pos-workers/internal/common/metrics"
	"pos-workers/internal/common/observability"
	"pos-workers/internal/common/validation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.opentelemetry.io/otel/attribute"
)

// JobHandlerFunc is the signature every worker Handle method has.
type JobHandlerFunc func(client worker.JobClient, job entities.Job)

// Runner opens one Zeebe job worker per task type and wraps each handler
// with metrics, a span, and job-variable validation.
type Runner struct {
	client    zbc.Client
	validator *validation.Validator
	obs       *observability.Observability
	errs      *poserrors.ErrorHandler
	log       logger.Logger

	mu      sync.Mutex
	workers map[string]worker.JobWorker
}

func NewRunner(client zbc.Client, validator *validation.Validator, obs *observability.Observability, log logger.Logger) *Runner {
	return &Runner{
		client:    client,
		validator: validator,
		obs:       obs,
		errs:      poserrors.NewErrorHandler(log),
		log:       log,
		workers:   make(map[string]worker.JobWorker),
	}
}

// Register opens a job worker for taskType unless wcfg disables it.
func (r *Runner) Register(taskType string, wcfg config.WorkerConfig, handle JobHandlerFunc) {
	if !wcfg.Enabled {
		r.log.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return
	}

	jw := r.client.NewJobWorker().
		JobType(taskType).
		Handler(worker.JobHandler(r.Wrap(taskType, handle))).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(config.GetDuration(wcfg.Timeout)).
		Name(taskType).
		Open()

	r.mu.Lock()
	r.workers[taskType] = jw
	r.mu.Unlock()

	r.log.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeout_ms":    wcfg.Timeout,
	})
}

// Wrap returns handle decorated with tracking and validation.
func (r *Runner) Wrap(taskType string, handle JobHandlerFunc) JobHandlerFunc {
	return func(client worker.JobClient, job entities.Job) {
		done := metrics.TrackJob(taskType)
		defer done()

		started := time.Now()
		ctx, span := r.obs.StartSpan(context.Background(), "job "+taskType,
			attribute.String("zeebe.task_type", taskType),
			attribute.Int64("zeebe.job_key", job.Key),
			attribute.Int64("zeebe.process_instance_key", job.ProcessInstanceKey),
		)

		var jobErr error
		defer func() {
			r.obs.RecordJobDuration(ctx, taskType, time.Since(started))
			observability.EndSpan(span, jobErr)
		}()

		if r.validator != nil {
			res, err := r.validator.ValidateString(taskType, job.Variables)
			if err != nil {
				jobErr = poserrors.NewParseError(err)
			} else if !res.Valid {
				jobErr = poserrors.NewValidationError(res.Summary())
			}
			if jobErr != nil {
				r.obs.RecordJobProcessed(ctx, taskType, "rejected")
				r.errs.HandleJobError(ctx, client, job, jobErr)
				return
			}
		}

		handle(client, job)
		r.obs.RecordJobProcessed(ctx, taskType, "handled")
	}
}

// Workers returns the task types currently registered.
func (r *Runner) Workers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.workers))
	for t := range r.workers {
		out = append(out, t)
	}
	return out
}

// Close stops polling on every worker and waits for in-flight jobs.
func (r *Runner) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for taskType, jw := range r.workers {
		jw.Close()
		jw.AwaitClose()
		r.log.Info("worker stopped", map[string]interface{}{"taskType": taskType})
	}
	r.workers = make(map[string]worker.JobWorker)
}
