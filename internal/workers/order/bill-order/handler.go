// internal/workers/order/bill-order/handler.go
package billorder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pos-workers/internal/common/camunda"
	"pos-workers/internal/common/database"
	poserrors "pos-workers/internal/common/errors"
	"pos-workers/internal/common/logger"
	"pos-workers/internal/common/metrics"
	"pos-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "bill-order"

var (
	ErrValidationFailed        = errors.New("VALIDATION_FAILED")
	ErrOrderNotFound           = errors.New("ORDER_NOT_FOUND")
	ErrInvalidStatusTransition = errors.New("INVALID_STATUS_TRANSITION")
	ErrInvalidDiscount         = errors.New("INVALID_DISCOUNT")
	ErrUserNotFound            = errors.New("USER_NOT_FOUND")
	ErrUnauthorizedActor       = errors.New("UNAUTHORIZED_ACTOR")
	ErrQueryExecutionFailed    = errors.New("QUERY_EXECUTION_FAILED")
	ErrQueryTimeout            = errors.New("QUERY_TIMEOUT")
)

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
	if input == nil || input.OrderID == "" || input.ActingUserID == "" {
		return nil, fmt.Errorf("%w: orderId and actingUserId are required", ErrValidationFailed)
	}
	if input.Discount < 0 {
		return nil, fmt.Errorf("%w: discount must not be negative", ErrInvalidDiscount)
	}

	var output *Output
	err := database.WithTx(ctx, h.db, func(tx *sql.Tx) error {
		actor, err := models.GetUser(ctx, tx, input.ActingUserID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrUserNotFound, input.ActingUserID)
		}
		if err != nil {
			return h.dbError(ctx, "load acting user", err)
		}

		order, err := models.GetOrderForUpdate(ctx, tx, input.OrderID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrOrderNotFound, input.OrderID)
		}
		if err != nil {
			return h.dbError(ctx, "lock order", err)
		}

		if ok, reason := actor.CanBillAt(order.FranchiseID, order.LocationID); !ok {
			return fmt.Errorf("%w: %s", ErrUnauthorizedActor, reason)
		}

		if order.Status == models.StatusBilled {
			output = billedOutput(order)
			output.AlreadyBilled = true
			return nil
		}
		if !models.ValidStatusTransition(order.Status, models.StatusBilled) || order.OwnerQueue != models.QueueManagerPending {
			return fmt.Errorf("%w: %s/%s -> %s", ErrInvalidStatusTransition, order.Status, order.OwnerQueue, models.StatusBilled)
		}

		totals, ok := models.Totals{Subtotal: order.Subtotal, Tax: order.Tax}.ApplyDiscount(input.Discount)
		if !ok {
			return fmt.Errorf("%w: %.2f exceeds bill amount %.2f", ErrInvalidDiscount, input.Discount, order.Subtotal+order.Tax)
		}

		now := time.Now().UTC()
		billNumber := "BILL-" + order.OrderNumber
		res, err := tx.ExecContext(ctx, `
			UPDATE orders
			SET status = 'billed', discount = $2, total = $3, bill_number = $4,
			    billed_by = $5, billed_at = $6, updated_at = $6
			WHERE id = $1 AND status = 'transferred' AND owner_queue = 'manager_pending'`,
			order.ID, totals.Discount, totals.Total, billNumber, actor.ID, now)
		if err != nil {
			return h.dbError(ctx, "bill order", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: order %s changed concurrently", ErrInvalidStatusTransition, order.ID)
		}

		if err := models.WriteAudit(ctx, tx, models.AuditEvent{
			EventType:    "order.billed",
			ResourceType: "order",
			ResourceID:   order.ID,
			ActorID:      actor.ID,
			Details: map[string]interface{}{
				"billNumber": billNumber,
				"discount":   totals.Discount,
				"total":      totals.Total,
			},
		}); err != nil {
			return h.dbError(ctx, "write audit", err)
		}

		order.Status = models.StatusBilled
		order.BillNumber = billNumber
		order.BilledBy = actor.ID
		order.BilledAt = &now
		order.Discount = totals.Discount
		order.Total = totals.Total
		output = billedOutput(order)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !output.AlreadyBilled {
		metrics.OrderTransitions.WithLabelValues(string(models.StatusTransferred), string(models.StatusBilled)).Inc()
	}
	h.logger.Info("order billed", map[string]interface{}{
		"orderId":       output.OrderID,
		"billNumber":    output.BillNumber,
		"total":         output.Total,
		"alreadyBilled": output.AlreadyBilled,
	})
	return output, nil
}

func billedOutput(o *models.Order) *Output {
	out := &Output{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		BillNumber:  o.BillNumber,
		Status:      o.Status,
		OwnerQueue:  models.QueueManagerPending,
		Subtotal:    o.Subtotal,
		Tax:         o.Tax,
		Discount:    o.Discount,
		Total:       o.Total,
		BilledBy:    o.BilledBy,
	}
	if o.BilledAt != nil {
		out.BilledAt = *o.BilledAt
	}
	return out
}

func (h *Handler) dbError(ctx context.Context, op string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrQueryTimeout, op)
	}
	return fmt.Errorf("%w: %s: %v", ErrQueryExecutionFailed, op, err)
}
