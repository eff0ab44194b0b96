// internal/workers/tenant/create-franchise/handler.go
package createfranchise

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

const TaskType = "create-franchise"

var (
	ErrValidationFailed     = errors.New("VALIDATION_FAILED")
	ErrUserNotFound         = errors.New("USER_NOT_FOUND")
	ErrUnauthorizedActor    = errors.New("UNAUTHORIZED_ACTOR")
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
	if err := validateInput(input); err != nil {
		return nil, err
	}

	actor, err := models.GetUser(ctx, h.db, input.ActingUserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, input.ActingUserID)
	}
	if err != nil {
		return nil, h.dbError(ctx, "load acting user", err)
	}
	if !actor.Enabled() || actor.Role != models.RoleSuperadmin {
		return nil, fmt.Errorf("%w: only an active superadmin can create franchises", ErrUnauthorizedActor)
	}

	franchiseID := uuid.NewString()
	now := time.Now().UTC()
	commission := models.Round2(input.CommissionRate)
	err = database.WithTx(ctx, h.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO franchises (id, name, owner_name, contact_email, contact_phone, plan, commission_rate,
			                        approved, active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, TRUE, $8, $8)`,
			franchiseID, input.Name, input.OwnerName, input.ContactEmail, input.ContactPhone,
			string(input.Plan), commission, now); err != nil {
			return h.dbError(ctx, "insert franchise", err)
		}

		if err := models.WriteAudit(ctx, tx, models.AuditEvent{
			EventType:    "franchise.created",
			ResourceType: "franchise",
			ResourceID:   franchiseID,
			ActorID:      actor.ID,
			Details: map[string]interface{}{
				"name": input.Name,
				"plan": input.Plan,
			},
		}); err != nil {
			return h.dbError(ctx, "write audit", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	h.logger.Info("franchise created", map[string]interface{}{
		"franchiseId": franchiseID,
		"plan":        input.Plan,
	})

	return &Output{
		FranchiseID:    franchiseID,
		Name:           input.Name,
		Plan:           input.Plan,
		CommissionRate: commission,
		Approved:       true,
		Active:         true,
		CreatedAt:      now,
	}, nil
}

func (h *Handler) dbError(ctx context.Context, op string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrQueryTimeout, op)
	}
	return fmt.Errorf("%w: %s: %v", ErrQueryExecutionFailed, op, err)
}
