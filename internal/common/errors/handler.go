// internal/common/errors/handler.go
package errors

import (
	"context"
	"encoding/json"
	"time"

	"pos-workers/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// ErrorHandler reports a failed job back to Zeebe: retryable failures go
// through the fail-job command with a decremented retry count, everything
// else is thrown as a BPMN error the process can catch.
type ErrorHandler struct {
	logger  Logger
	backoff time.Duration
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger, backoff: 5 * time.Second}
}

// WithBackoff sets the retry backoff sent with fail-job commands.
func (h *ErrorHandler) WithBackoff(d time.Duration) *ErrorHandler {
	h.backoff = d
	return h
}

// HandleJobError handles any error in a worker job
func (h *ErrorHandler) HandleJobError(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr := Normalize(err)
	bpmnErr := ConvertToBPMNError(stdErr)
	retries := NextRetries(stdErr, job.Retries)

	h.logError(job, stdErr, bpmnErr, retries)
	metrics.RecordOutcome(job.Type, string(stdErr.Code))

	if retries > 0 {
		h.failJobWithRetries(ctx, client, job, bpmnErr, retries)
		return
	}
	h.throwBPMNError(ctx, client, job, bpmnErr)
}

// NextRetries is the retry count to hand back to the engine, 0 meaning the
// error should be thrown instead of retried.
func NextRetries(stdErr *StandardError, remaining int32) int32 {
	if stdErr == nil || !stdErr.Retryable {
		return 0
	}
	policy := int32(GetRetryCount(stdErr.Code))
	if policy == 0 || remaining <= 1 {
		return 0
	}
	next := remaining - 1
	if next > policy {
		next = policy
	}
	return next
}

func (h *ErrorHandler) failJobWithRetries(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError, retries int32) {
	cmd := client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(retries).
		ErrorMessage(bpmnErr.Message).
		RetryBackoff(h.backoff)

	varsJSON, err := json.Marshal(bpmnErr.ToErrorVariables())
	if err == nil {
		if withVars, vErr := cmd.VariablesFromString(string(varsJSON)); vErr == nil {
			if _, sErr := withVars.Send(ctx); sErr != nil {
				h.logSendFailure(job, "fail", sErr)
			}
			return
		}
	}

	if _, sErr := cmd.Send(ctx); sErr != nil {
		h.logSendFailure(job, "fail", sErr)
	}
}

func (h *ErrorHandler) throwBPMNError(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError) {
	cmd := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(bpmnErr.Code).
		ErrorMessage(bpmnErr.Message)

	varsJSON, err := json.Marshal(bpmnErr.ToErrorVariables())
	if err == nil {
		if withVars, vErr := cmd.VariablesFromString(string(varsJSON)); vErr == nil {
			if _, sErr := withVars.Send(ctx); sErr != nil {
				h.logSendFailure(job, "throw", sErr)
			}
			return
		}
	}

	if _, sErr := cmd.Send(ctx); sErr != nil {
		h.logSendFailure(job, "throw", sErr)
	}
}

func (h *ErrorHandler) logError(job entities.Job, stdErr *StandardError, bpmnErr *BPMNError, retries int32) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":           job.Key,
		"jobType":          job.Type,
		"errorCode":        string(stdErr.Code),
		"message":          bpmnErr.Message,
		"details":          stdErr.Details,
		"retryable":        stdErr.Retryable,
		"retries":          retries,
		"errorCategory":    GetErrorCategory(stdErr.Code),
		"workflowInstance": job.ProcessInstanceKey,
	})
}

func (h *ErrorHandler) logSendFailure(job entities.Job, command string, err error) {
	h.logger.Error("failed to report job error", map[string]interface{}{
		"jobKey":  job.Key,
		"command": command,
		"error":   err.Error(),
	})
}
