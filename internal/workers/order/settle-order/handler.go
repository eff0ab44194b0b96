// internal/workers/order/settle-order/handler.go
package settleorder

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
	"github.com/elastic/go-elasticsearch/v8"
)

const TaskType = "settle-order"

var (
	ErrValidationFailed        = errors.New("VALIDATION_FAILED")
	ErrOrderNotFound           = errors.New("ORDER_NOT_FOUND")
	ErrInvalidStatusTransition = errors.New("INVALID_STATUS_TRANSITION")
	ErrUserNotFound            = errors.New("USER_NOT_FOUND")
	ErrUnauthorizedActor       = errors.New("UNAUTHORIZED_ACTOR")
	ErrQueryExecutionFailed    = errors.New("QUERY_EXECUTION_FAILED")
	ErrQueryTimeout            = errors.New("QUERY_TIMEOUT")
)

type Handler struct {
	config *Config
	db     *sql.DB
	es     *elasticsearch.Client
	logger logger.Logger
	errs   *poserrors.ErrorHandler
}

// NewHandler builds the handler. es may be nil, in which case settled
// orders are not indexed.
func NewHandler(config *Config, db *sql.DB, es *elasticsearch.Client, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		db:     db,
		es:     es,
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
	if !input.PaymentMethod.Valid() {
		return nil, fmt.Errorf("%w: unsupported payment method %q", ErrValidationFailed, input.PaymentMethod)
	}

	var (
		order    *models.Order
		output   *Output
		previous models.OrderStatus
	)
	err := database.WithTx(ctx, h.db, func(tx *sql.Tx) error {
		actor, err := models.GetUser(ctx, tx, input.ActingUserID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrUserNotFound, input.ActingUserID)
		}
		if err != nil {
			return h.dbError(ctx, "load acting user", err)
		}

		order, err = models.GetOrderForUpdate(ctx, tx, input.OrderID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrOrderNotFound, input.OrderID)
		}
		if err != nil {
			return h.dbError(ctx, "lock order", err)
		}

		if ok, reason := actor.CanBillAt(order.FranchiseID, order.LocationID); !ok {
			return fmt.Errorf("%w: %s", ErrUnauthorizedActor, reason)
		}

		if order.Status == models.StatusSettled {
			output = &Output{
				OrderID:        order.ID,
				OrderNumber:    order.OrderNumber,
				Status:         order.Status,
				OwnerQueue:     models.QueueClosed,
				PaymentMethod:  models.PaymentMethod(order.PaymentMethod),
				Total:          order.Total,
				AlreadySettled: true,
			}
			if order.SettledAt != nil {
				output.SettledAt = *order.SettledAt
			}
			return nil
		}
		if !models.ValidStatusTransition(order.Status, models.StatusSettled) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, order.Status, models.StatusSettled)
		}

		now := time.Now().UTC()
		res, err := tx.ExecContext(ctx, `
			UPDATE orders
			SET status = 'settled', owner_queue = 'closed', payment_method = $2,
			    settled_by = $3, settled_at = $4, updated_at = $4
			WHERE id = $1 AND status IN ('transferred', 'billed')`,
			order.ID, string(input.PaymentMethod), actor.ID, now)
		if err != nil {
			return h.dbError(ctx, "settle order", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: order %s changed concurrently", ErrInvalidStatusTransition, order.ID)
		}

		if err := models.WriteAudit(ctx, tx, models.AuditEvent{
			EventType:    "order.settled",
			ResourceType: "order",
			ResourceID:   order.ID,
			ActorID:      actor.ID,
			Details: map[string]interface{}{
				"paymentMethod": input.PaymentMethod,
				"total":         order.Total,
				"from":          order.Status,
			},
		}); err != nil {
			return h.dbError(ctx, "write audit", err)
		}

		previous = order.Status
		order.Status = models.StatusSettled
		order.OwnerQueue = models.QueueClosed
		order.PaymentMethod = string(input.PaymentMethod)
		order.SettledAt = &now
		output = &Output{
			OrderID:       order.ID,
			OrderNumber:   order.OrderNumber,
			Status:        models.StatusSettled,
			OwnerQueue:    models.QueueClosed,
			PaymentMethod: input.PaymentMethod,
			Total:         order.Total,
			SettledBy:     actor.ID,
			SettledAt:     now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if output.AlreadySettled {
		output.ReleasedTableIDs, output.FailedTableIDs = []string{}, []string{}
		return output, nil
	}

	metrics.OrderTransitions.WithLabelValues(string(previous), string(models.StatusSettled)).Inc()

	released := models.ReleaseTables(ctx, h.db, order.ID, order.TableIDs, func(tableID string, err error) {
		metrics.TableReleaseFailures.Inc()
		h.logger.Warn("failed to release table", map[string]interface{}{
			"orderId": order.ID,
			"tableId": tableID,
			"error":   err.Error(),
		})
	})
	output.ReleasedTableIDs = released.Released
	output.FailedTableIDs = released.Failed

	output.Indexed = h.indexSale(ctx, order, output.SettledBy)

	h.logger.Info("order settled", map[string]interface{}{
		"orderId":       order.ID,
		"paymentMethod": output.PaymentMethod,
		"total":         output.Total,
		"indexed":       output.Indexed,
	})
	return output, nil
}

// indexSale is best effort: a failure is logged and never undoes the settlement.
func (h *Handler) indexSale(ctx context.Context, order *models.Order, settledBy string) bool {
	if h.es == nil {
		return false
	}

	doc := SaleDocument{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		BillNumber:    order.BillNumber,
		FranchiseID:   order.FranchiseID,
		LocationID:    order.LocationID,
		PaymentMethod: order.PaymentMethod,
		ItemCount:     len(order.Items),
		Subtotal:      order.Subtotal,
		Tax:           order.Tax,
		Discount:      order.Discount,
		Total:         order.Total,
		SettledBy:     settledBy,
	}
	if order.Customer != nil {
		doc.CustomerPhone = order.Customer.Phone
	}
	if order.SettledAt != nil {
		doc.SettledAt = *order.SettledAt
	}

	if err := database.IndexDocument(ctx, h.es, h.config.SalesIndex, order.ID, doc); err != nil {
		h.logger.Warn("failed to index sale", map[string]interface{}{
			"orderId": order.ID,
			"index":   h.config.SalesIndex,
			"error":   err.Error(),
		})
		return false
	}
	return true
}

func (h *Handler) dbError(ctx context.Context, op string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrQueryTimeout, op)
	}
	return fmt.Errorf("%w: %s: %v", ErrQueryExecutionFailed, op, err)
}
