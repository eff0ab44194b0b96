// internal/workers/order/transfer-order/handler.go
package transferorder

import (
	"context"
	"database/sql"
	"encoding/json"
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
	"github.com/redis/go-redis/v9"
)

const (
	TaskType = "transfer-order"

	lockKeyPrefix   = "pos:transfer:lock:"
	resultKeyPrefix = "pos:transfer:result:"
)

var (
	ErrValidationFailed     = errors.New("VALIDATION_FAILED")
	ErrOrderNotFound        = errors.New("ORDER_NOT_FOUND")
	ErrInvalidOrderState    = errors.New("INVALID_ORDER_STATE")
	ErrTransferInProgress   = errors.New("TRANSFER_IN_PROGRESS")
	ErrUserNotFound         = errors.New("USER_NOT_FOUND")
	ErrUnauthorizedActor    = errors.New("UNAUTHORIZED_ACTOR")
	ErrQueryExecutionFailed = errors.New("QUERY_EXECUTION_FAILED")
	ErrQueryTimeout         = errors.New("QUERY_TIMEOUT")
)

type Handler struct {
	config *Config
	db     *sql.DB
	redis  redis.Cmdable
	logger logger.Logger
	errs   *poserrors.ErrorHandler
}

func NewHandler(config *Config, db *sql.DB, rdb redis.Cmdable, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		db:     db,
		redis:  rdb,
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

	if h.redis != nil {
		lock, acquired, err := database.AcquireLock(ctx, h.redis, lockKeyPrefix+input.OrderID, h.config.LockTTL)
		switch {
		case err != nil:
			// The row lock below still serializes transfers; the Redis lock only
			// turns concurrent duplicates into a fast retryable failure.
			h.logger.Warn("transfer lock unavailable, relying on row lock", map[string]interface{}{
				"orderId": input.OrderID,
				"error":   err.Error(),
			})
		case !acquired:
			return nil, fmt.Errorf("%w: order %s", ErrTransferInProgress, input.OrderID)
		default:
			defer func() {
				if err := lock.Release(context.Background()); err != nil {
					h.logger.Warn("failed to release transfer lock", map[string]interface{}{"orderId": input.OrderID, "error": err.Error()})
				}
			}()
		}
	}

	var (
		order  *models.Order
		output *Output
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

		if ok, reason := actor.CanOperateAt(order.FranchiseID, order.LocationID); !ok {
			return fmt.Errorf("%w: %s", ErrUnauthorizedActor, reason)
		}

		if order.Status == models.StatusTransferred && order.OwnerQueue == models.QueueManagerPending {
			output = replayOutput(order)
			return nil
		}
		if order.Status != models.StatusOpen {
			return fmt.Errorf("%w: order %s is %s", ErrInvalidOrderState, order.ID, order.Status)
		}

		now := time.Now().UTC()
		var customer interface{}
		if input.Customer != nil {
			raw, err := json.Marshal(input.Customer)
			if err != nil {
				return fmt.Errorf("%w: customer: %v", ErrValidationFailed, err)
			}
			customer = string(raw)
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE orders
			SET status = 'transferred', owner_queue = 'manager_pending',
			    transfer_note = $2, customer = COALESCE($3::jsonb, customer),
			    transferred_by = $4, transferred_at = $5, updated_at = $5
			WHERE id = $1 AND status = 'open' AND owner_queue = 'staff_active'`,
			order.ID, input.Note, customer, actor.ID, now)
		if err != nil {
			return h.dbError(ctx, "transfer order", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return h.dbError(ctx, "transfer order", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: order %s is %s/%s", ErrInvalidOrderState, order.ID, order.Status, order.OwnerQueue)
		}

		if err := models.WriteAudit(ctx, tx, models.AuditEvent{
			EventType:    "order.transferred",
			ResourceType: "order",
			ResourceID:   order.ID,
			ActorID:      actor.ID,
			Details: map[string]interface{}{
				"from":  string(models.StatusOpen),
				"to":    string(models.StatusTransferred),
				"queue": string(models.QueueManagerPending),
				"note":  input.Note,
			},
		}); err != nil {
			return h.dbError(ctx, "write audit", err)
		}

		output = &Output{
			OrderID:       order.ID,
			OrderNumber:   order.OrderNumber,
			LocationID:    order.LocationID,
			Status:        models.StatusTransferred,
			OwnerQueue:    models.QueueManagerPending,
			TransferredBy: actor.ID,
			TransferredAt: now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if output.AlreadyTransferred {
		// The row decided the replay; the cache only restores what the first run released.
		if cached, ok := h.cachedResult(ctx, order.ID); ok {
			output.CustomerSaved = cached.CustomerSaved
			if cached.ReleasedTableIDs != nil {
				output.ReleasedTableIDs = cached.ReleasedTableIDs
			}
			if cached.FailedTableIDs != nil {
				output.FailedTableIDs = cached.FailedTableIDs
			}
		}
		h.logger.Info("order already transferred", map[string]interface{}{"orderId": order.ID})
		return output, nil
	}

	metrics.OrderTransitions.WithLabelValues(string(models.StatusOpen), string(models.StatusTransferred)).Inc()
	h.logger.Info("order transferred", map[string]interface{}{
		"orderId":     order.ID,
		"orderNumber": order.OrderNumber,
		"actorId":     output.TransferredBy,
	})

	if input.Customer != nil && input.Customer.Phone != "" {
		output.CustomerSaved = h.saveCustomer(ctx, order, input.Customer)
	}

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

	h.cacheResult(ctx, output)
	return output, nil
}

func replayOutput(order *models.Order) *Output {
	out := &Output{
		OrderID:            order.ID,
		OrderNumber:        order.OrderNumber,
		LocationID:         order.LocationID,
		Status:             order.Status,
		OwnerQueue:         order.OwnerQueue,
		TransferredBy:      order.TransferredBy,
		AlreadyTransferred: true,
		ReleasedTableIDs:   []string{},
		FailedTableIDs:     []string{},
	}
	if order.TransferredAt != nil {
		out.TransferredAt = *order.TransferredAt
	}
	return out
}

func (h *Handler) saveCustomer(ctx context.Context, order *models.Order, c *models.Customer) bool {
	_, err := h.db.ExecContext(ctx, `
		INSERT INTO customer_data (phone, location_id, payment_method, source, last_order_id, visit_count, last_seen_at)
		VALUES ($1, $2, $3, $4, $5, 1, now())
		ON CONFLICT (phone, location_id) DO UPDATE
		SET payment_method = EXCLUDED.payment_method,
		    source = EXCLUDED.source,
		    last_order_id = EXCLUDED.last_order_id,
		    visit_count = customer_data.visit_count + 1,
		    last_seen_at = EXCLUDED.last_seen_at`,
		c.Phone, order.LocationID, c.PaymentMethod, c.Source, order.ID)
	if err != nil {
		h.logger.Warn("failed to save customer data", map[string]interface{}{
			"orderId": order.ID,
			"error":   err.Error(),
		})
		return false
	}
	return true
}

// cachedResult returns the output of the first successful transfer of orderID.
func (h *Handler) cachedResult(ctx context.Context, orderID string) (*Output, bool) {
	if h.redis == nil {
		return nil, false
	}
	var out Output
	err := database.GetJSON(ctx, h.redis, resultKeyPrefix+orderID, &out)
	if err != nil {
		if !errors.Is(err, database.ErrCacheMiss) {
			h.logger.Warn("transfer result cache read failed", map[string]interface{}{"orderId": orderID, "error": err.Error()})
		}
		return nil, false
	}
	return &out, true
}

func (h *Handler) cacheResult(ctx context.Context, out *Output) {
	if h.redis == nil {
		return
	}
	if err := database.SetJSON(ctx, h.redis, resultKeyPrefix+out.OrderID, out, h.config.ResultTTL); err != nil {
		h.logger.Warn("transfer result cache write failed", map[string]interface{}{"orderId": out.OrderID, "error": err.Error()})
	}
}

func (h *Handler) dbError(ctx context.Context, op string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrQueryTimeout, op)
	}
	return fmt.Errorf("%w: %s: %v", ErrQueryExecutionFailed, op, err)
}
