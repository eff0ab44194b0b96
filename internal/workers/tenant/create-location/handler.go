// internal/workers/tenant/create-location/handler.go
package createlocation

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
	"pos-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const TaskType = "create-location"

var (
	ErrValidationFailed     = errors.New("VALIDATION_FAILED")
	ErrUserNotFound         = errors.New("USER_NOT_FOUND")
	ErrUnauthorizedActor    = errors.New("UNAUTHORIZED_ACTOR")
	ErrFranchiseNotFound    = errors.New("FRANCHISE_NOT_FOUND")
	ErrFranchiseInactive    = errors.New("FRANCHISE_INACTIVE")
	ErrQueryExecutionFailed = errors.New("QUERY_EXECUTION_FAILED")
	ErrQueryTimeout         = errors.New("QUERY_TIMEOUT")
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
	if err := validateInput(input, h.config.MaxTableCount); err != nil {
		return nil, err
	}

	actor, err := models.GetUser(ctx, h.db, input.ActingUserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, input.ActingUserID)
	}
	if err != nil {
		return nil, h.dbError(ctx, "load acting user", err)
	}
	if !actor.Role.TenantWide() {
		return nil, fmt.Errorf("%w: %s cannot create locations", ErrUnauthorizedActor, actor.Role)
	}
	if ok, reason := actor.CanOperateAt(input.FranchiseID, ""); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnauthorizedActor, reason)
	}

	franchise, err := models.GetFranchise(ctx, h.db, input.FranchiseID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrFranchiseNotFound, input.FranchiseID)
	}
	if err != nil {
		return nil, h.dbError(ctx, "load franchise", err)
	}
	if !franchise.Active {
		return nil, fmt.Errorf("%w: %s", ErrFranchiseInactive, franchise.ID)
	}

	locationID := uuid.NewString()
	tableIDs := make([]string, 0, input.TableCount)
	now := time.Now().UTC()
	err = database.WithTx(ctx, h.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO locations (id, franchise_id, name, code, address, phone, active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7, $7)`,
			locationID, franchise.ID, input.Name, input.Code, input.Address, input.Phone, now); err != nil {
			return h.dbError(ctx, "insert location", err)
		}

		for i := 1; i <= input.TableCount; i++ {
			tableID := uuid.NewString()
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO restaurant_tables (id, location_id, label, status, updated_at)
				VALUES ($1, $2, $3, 'available', $4)`,
				tableID, locationID, fmt.Sprintf("T%d", i), now); err != nil {
				return h.dbError(ctx, "insert table", err)
			}
			tableIDs = append(tableIDs, tableID)
		}

		if err := models.WriteAudit(ctx, tx, models.AuditEvent{
			EventType:    "location.created",
			ResourceType: "location",
			ResourceID:   locationID,
			ActorID:      actor.ID,
			Details: map[string]interface{}{
				"franchiseId": franchise.ID,
				"name":        input.Name,
				"tables":      input.TableCount,
			},
		}); err != nil {
			return h.dbError(ctx, "write audit", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	h.logger.Info("location created", map[string]interface{}{
		"locationId":  locationID,
		"franchiseId": franchise.ID,
		"tables":      len(tableIDs),
	})

	return &Output{
		LocationID:  locationID,
		FranchiseID: franchise.ID,
		Name:        input.Name,
		Code:        input.Code,
		Active:      true,
		TableIDs:    tableIDs,
	}, nil
}

func (h *Handler) dbError(ctx context.Context, op string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrQueryTimeout, op)
	}
	return fmt.Errorf("%w: %s: %v", ErrQueryExecutionFailed, op, err)
}
