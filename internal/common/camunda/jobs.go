// internal/common/camunda/jobs.go
package camunda

import (
	"context"
	"encoding/json"
	"fmt"

	"pos-workers/internal/common/logger"
	"pos-workers/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// DecodeVariables unmarshals the job's variables into dest.
func DecodeVariables(job entities.Job, dest interface{}) error {
	vars := job.Variables
	if vars == "" {
		vars = "{}"
	}
	if err := json.Unmarshal([]byte(vars), dest); err != nil {
		return fmt.Errorf("parse input: %w", err)
	}
	return nil
}

// CompleteJob completes job with output as its variables.
func CompleteJob(ctx context.Context, client worker.JobClient, job entities.Job, output interface{}, log logger.Logger) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		log.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	if _, err := cmd.Send(ctx); err != nil {
		log.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	metrics.RecordOutcome(job.Type, "")
	log.Info("job completed", map[string]interface{}{"jobKey": job.Key})
}
