// internal/workers/maintenance/reconcile-order-queues/handler.go
package reconcileorderqueues

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pos-workers/internal/common/camunda"
	"pos-workers/internal/common/database"
	poserrors "pos-workers/internal/common/errors"
	"pos-workers/internal/common/logger"
	"pos-workers/internal/common/metrics"
	"pos-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "reconcile-order-queues"

var (
	ErrValidationFailed     = errors.New("VALIDATION_FAILED")
	ErrQueryExecutionFailed = errors.New("QUERY_EXECUTION_FAILED")
	ErrQueryTimeout         = errors.New("QUERY_TIMEOUT")
)

// inconsistentPredicate matches rows the orders_status_queue_consistent check would reject.
const inconsistentPredicate = `NOT (
	(status = 'open' AND owner_queue = 'staff_active') OR
	(status IN ('transferred', 'billed') AND owner_queue = 'manager_pending') OR
	(status IN ('settled', 'cancelled') AND owner_queue = 'closed'))`

type Handler struct {
	config *Config
	db     *sql.DB
	logger logger.Logger
	errs   *poserrors.ErrorHandler
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		db:     db,
		logger: l,
		errs:   poserrors.NewErrorHandler(l),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := camunda.DecodeVariables(job, &input); err != nil {
		h.errs.HandleJobError(context.Background(), client, job, poserrors.NewParseError(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.errs.HandleJobError(context.Background(), client, job, err)
		return
	}

	camunda.CompleteJob(context.Background(), client, job, output, h.logger)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, fmt.Errorf("%w: input cannot be nil", ErrValidationFailed)
	}
	if input.Limit < 0 {
		return nil, fmt.Errorf("%w: limit must not be negative", ErrValidationFailed)
	}
	limit := input.Limit
	if limit == 0 || limit > h.config.BatchSize {
		limit = h.config.BatchSize
	}

	mismatched, err := h.findMismatched(ctx, input.LocationID, limit)
	if err != nil {
		return nil, err
	}

	output := &Output{
		DryRun:      input.DryRun,
		Scanned:     len(mismatched),
		Mismatched:  mismatched,
		RepairedIDs: []string{},
	}
	if input.DryRun {
		h.logger.Info("queue reconciliation dry run", map[string]interface{}{
			"mismatched": len(mismatched),
			"locationId": input.LocationID,
		})
		return output, nil
	}

	for _, m := range mismatched {
		if m.Expected == "" {
			output.Skipped++
			h.logger.Warn("order has unknown status, not repairing", map[string]interface{}{
				"orderId": m.OrderID,
				"status":  m.Status,
			})
			continue
		}

		repaired, err := h.repair(ctx, m)
		if err != nil {
			return nil, err
		}
		if !repaired {
			output.Skipped++
			continue
		}
		metrics.QueueRepairs.Inc()
		output.Repaired++
		output.RepairedIDs = append(output.RepairedIDs, m.OrderID)
	}

	h.logger.Info("queue reconciliation finished", map[string]interface{}{
		"scanned":  output.Scanned,
		"repaired": output.Repaired,
		"skipped":  output.Skipped,
	})
	return output, nil
}

func (h *Handler) findMismatched(ctx context.Context, locationID string, limit int) ([]Mismatch, error) {
	query := `SELECT id, status, owner_queue FROM orders WHERE ` + inconsistentPredicate
	args := []interface{}{}
	if locationID != "" {
		args = append(args, locationID)
		query += fmt.Sprintf(" AND location_id = $%d", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at LIMIT $%d", len(args))

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, h.dbError(ctx, "find mismatched orders", err)
	}
	defer rows.Close()

	mismatched := []Mismatch{}
	for rows.Next() {
		var id, status, queue string
		if err := rows.Scan(&id, &status, &queue); err != nil {
			return nil, h.dbError(ctx, "scan mismatched order", err)
		}
		m := Mismatch{OrderID: id, Status: models.OrderStatus(status), OwnerQueue: models.OwnerQueue(queue)}
		if want, ok := models.QueueForStatus(m.Status); ok {
			m.Expected = want
		}
		mismatched = append(mismatched, m)
	}
	if err := rows.Err(); err != nil {
		return nil, h.dbError(ctx, "iterate mismatched orders", err)
	}
	return mismatched, nil
}

// repair rewrites owner_queue from status, only if neither changed since the scan.
func (h *Handler) repair(ctx context.Context, m Mismatch) (bool, error) {
	repaired := false
	err := database.WithTx(ctx, h.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE orders SET owner_queue = $2, updated_at = now()
			WHERE id = $1 AND status = $3 AND owner_queue = $4`,
			m.OrderID, string(m.Expected), string(m.Status), string(m.OwnerQueue))
		if err != nil {
			return h.dbError(ctx, "repair owner queue", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil
		}

		if err := models.WriteAudit(ctx, tx, models.AuditEvent{
			EventType:    "order.queue_repaired",
			ResourceType: "order",
			ResourceID:   m.OrderID,
			Details: map[string]interface{}{
				"status": m.Status,
				"from":   m.OwnerQueue,
				"to":     m.Expected,
			},
		}); err != nil {
			return h.dbError(ctx, "write audit", err)
		}
		repaired = true
		return nil
	})
	return repaired, err
}

func (h *Handler) dbError(ctx context.Context, op string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrQueryTimeout, op)
	}
	return fmt.Errorf("%w: %s: %v", ErrQueryExecutionFailed, op, err)
}
