// internal/workers/order/create-order/handler.go
package createorder

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"pos-workers/internal/common/camunda"
	"pos-workers/internal/common/database"
	poserrors "pos-workers/internal/common/errors"
	"pos-workers/internal/common/logger"
	"pos-workers/internal/common/metrics"
	"pos-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

const (
	TaskType = "create-order"

	sequenceKeyPrefix = "pos:ordernum:"
	sequenceTTL       = 48 * time.Hour
)

var (
	ErrValidationFailed     = errors.New("VALIDATION_FAILED")
	ErrLocationNotFound     = errors.New("LOCATION_NOT_FOUND")
	ErrUserNotFound         = errors.New("USER_NOT_FOUND")
	ErrUnauthorizedActor    = errors.New("UNAUTHORIZED_ACTOR")
	ErrTableUnavailable     = errors.New("TABLE_UNAVAILABLE")
	ErrCacheUnavailable     = errors.New("CACHE_UNAVAILABLE")
	ErrQueryExecutionFailed = errors.New("QUERY_EXECUTION_FAILED")
	ErrQueryTimeout         = errors.New("QUERY_TIMEOUT")
)

type Handler struct {
	config *Config
	db     *sql.DB
	redis  redis.Cmdable
	logger logger.Logger
	errs   *poserrors.ErrorHandler
	now    func() time.Time
}

func NewHandler(config *Config, db *sql.DB, rdb redis.Cmdable, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		db:     db,
		redis:  rdb,
		logger: l,
		errs:   poserrors.NewErrorHandler(l),
		now:    time.Now,
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
	if err := validateInput(input); err != nil {
		return nil, err
	}

	location, err := models.GetLocation(ctx, h.db, input.LocationID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrLocationNotFound, input.LocationID)
	}
	if err != nil {
		return nil, h.dbError(ctx, "load location", err)
	}
	if !location.Active {
		return nil, fmt.Errorf("%w: location %s is inactive", ErrLocationNotFound, location.ID)
	}

	actor, err := models.GetUser(ctx, h.db, input.ActingUserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, input.ActingUserID)
	}
	if err != nil {
		return nil, h.dbError(ctx, "load acting user", err)
	}
	if ok, reason := actor.CanOperateAt(location.FranchiseID, location.ID); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnauthorizedActor, reason)
	}

	now := h.now().UTC()
	number, err := h.nextOrderNumber(ctx, location, now)
	if err != nil {
		return nil, err
	}

	totals := models.CalculateTotals(input.Items, h.config.TaxRate)
	tableIDs := models.DistinctTableIDs(input.TableIDs)
	itemsJSON, err := json.Marshal(input.Items)
	if err != nil {
		return nil, fmt.Errorf("%w: items: %v", ErrValidationFailed, err)
	}

	orderID := uuid.NewString()
	err = database.WithTx(ctx, h.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO orders (id, order_number, location_id, franchise_id, created_by, status, owner_queue,
			                    table_ids, items, subtotal, tax, discount, total, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, 'open', 'staff_active', $6, $7, $8, $9, 0, $10, $11, $11)`,
			orderID, number, location.ID, location.FranchiseID, actor.ID,
			pq.Array(tableIDs), string(itemsJSON), totals.Subtotal, totals.Tax, totals.Total, now); err != nil {
			return h.dbError(ctx, "insert order", err)
		}

		for _, tableID := range tableIDs {
			res, err := tx.ExecContext(ctx, `
				UPDATE restaurant_tables SET status = 'occupied', order_id = $1, updated_at = now()
				WHERE id = $2 AND location_id = $3 AND status = 'available'`,
				orderID, tableID, location.ID)
			if err != nil {
				return h.dbError(ctx, "occupy table", err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return fmt.Errorf("%w: %s", ErrTableUnavailable, tableID)
			}
		}

		if err := models.WriteAudit(ctx, tx, models.AuditEvent{
			EventType:    "order.created",
			ResourceType: "order",
			ResourceID:   orderID,
			ActorID:      actor.ID,
			Details: map[string]interface{}{
				"orderNumber": number,
				"tables":      tableIDs,
				"total":       totals.Total,
			},
		}); err != nil {
			return h.dbError(ctx, "write audit", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.OrderTransitions.WithLabelValues("none", string(models.StatusOpen)).Inc()
	h.logger.Info("order created", map[string]interface{}{
		"orderId":     orderID,
		"orderNumber": number,
		"locationId":  location.ID,
		"tables":      len(tableIDs),
	})

	return &Output{
		OrderID:     orderID,
		OrderNumber: number,
		LocationID:  location.ID,
		FranchiseID: location.FranchiseID,
		Status:      models.StatusOpen,
		OwnerQueue:  models.QueueStaffActive,
		TableIDs:    tableIDs,
		Subtotal:    totals.Subtotal,
		Tax:         totals.Tax,
		Total:       totals.Total,
		CreatedAt:   now,
	}, nil
}

// nextOrderNumber allocates <PREFIX>-<yyyymmdd>-<seq> from a per-location, per-day Redis counter.
func (h *Handler) nextOrderNumber(ctx context.Context, location *models.Location, now time.Time) (string, error) {
	day := now.Format("20060102")
	key := sequenceKeyPrefix + location.ID + ":" + day

	seq, err := h.redis.Incr(ctx, key).Result()
	if err != nil {
		return "", fmt.Errorf("%w: order number sequence: %v", ErrCacheUnavailable, err)
	}
	if seq == 1 {
		if err := h.redis.Expire(ctx, key, sequenceTTL).Err(); err != nil {
			h.logger.Warn("failed to set order sequence expiry", map[string]interface{}{"key": key, "error": err.Error()})
		}
	}

	prefix := strings.ToUpper(strings.TrimSpace(location.Code))
	if prefix == "" {
		prefix = h.config.NumberPrefix
	}
	return fmt.Sprintf("%s-%s-%04d", prefix, day, seq), nil
}

func (h *Handler) dbError(ctx context.Context, op string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrQueryTimeout, op)
	}
	return fmt.Errorf("%w: %s: %v", ErrQueryExecutionFailed, op, err)
}
