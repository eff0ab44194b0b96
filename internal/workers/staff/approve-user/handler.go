// internal/workers/staff/approve-user/handler.go
package approveuser

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pos-workers/internal/common/auth"
	"pos-workers/internal/common/camunda"
	"pos-workers/internal/common/database"
	poserrors "pos-workers/internal/common/errors"
	"pos-workers/internal/common/logger"
	"pos-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "approve-user"

var (
	ErrValidationFailed     = errors.New("VALIDATION_FAILED")
	ErrUserNotFound         = errors.New("USER_NOT_FOUND")
	ErrUnauthorizedActor    = errors.New("UNAUTHORIZED_ACTOR")
	ErrLocationNotFound     = errors.New("LOCATION_NOT_FOUND")
	ErrLocationMismatch     = errors.New("LOCATION_MISMATCH")
	ErrQueryExecutionFailed = errors.New("QUERY_EXECUTION_FAILED")
	ErrQueryTimeout         = errors.New("QUERY_TIMEOUT")
)

type Handler struct {
	config *Config
	db     *sql.DB
	idp    auth.IdentityProvider
	logger logger.Logger
	errs   *poserrors.ErrorHandler
}

func NewHandler(config *Config, db *sql.DB, idp auth.IdentityProvider, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		db:     db,
		idp:    idp,
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

	var output *Output
	err := database.WithTx(ctx, h.db, func(tx *sql.Tx) error {
		approver, err := models.GetUser(ctx, tx, input.ApproverID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: approver %s", ErrUserNotFound, input.ApproverID)
		}
		if err != nil {
			return h.dbError(ctx, "load approver", err)
		}

		target, err := models.GetUserForUpdate(ctx, tx, input.UserID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrUserNotFound, input.UserID)
		}
		if err != nil {
			return h.dbError(ctx, "lock user", err)
		}

		role := target.Role
		if input.Role != "" && input.Role != target.Role {
			if !models.CanGrant(approver.Role, input.Role) {
				return fmt.Errorf("%w: %s cannot grant role %s", ErrUnauthorizedActor, approver.Role, input.Role)
			}
			role = input.Role
		}
		if input.LocationID == "" && !role.TenantWide() {
			return fmt.Errorf("%w: a location must be selected when approving %s users", ErrValidationFailed, role)
		}

		candidate := *target
		candidate.Role = role
		if ok, reason := models.CanApprove(approver, &candidate, input.LocationID); !ok {
			return fmt.Errorf("%w: %s", ErrUnauthorizedActor, reason)
		}

		if input.LocationID != "" {
			location, err := models.GetLocation(ctx, tx, input.LocationID)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: %s", ErrLocationNotFound, input.LocationID)
			}
			if err != nil {
				return h.dbError(ctx, "load location", err)
			}
			if location.FranchiseID != target.FranchiseID {
				return fmt.Errorf("%w: location %s is not in the user's franchise", ErrLocationMismatch, location.ID)
			}
			if !location.Active {
				return fmt.Errorf("%w: location %s is inactive", ErrLocationNotFound, location.ID)
			}
		}

		now := time.Now().UTC()
		if _, err := tx.ExecContext(ctx, `
			UPDATE users
			SET role = $2, location_id = $3, approved = TRUE, active = TRUE,
			    approved_by = $4, approved_at = $5,
			    rejected_by = NULL, rejected_at = NULL, rejection_reason = NULL,
			    updated_at = $5
			WHERE id = $1`,
			target.ID, string(role), nullable(input.LocationID), approver.ID, now); err != nil {
			return h.dbError(ctx, "approve user", err)
		}

		if err := models.WriteAudit(ctx, tx, models.AuditEvent{
			EventType:    "user.approved",
			ResourceType: "user",
			ResourceID:   target.ID,
			ActorID:      approver.ID,
			Details: map[string]interface{}{
				"role":       role,
				"previous":   target.Role,
				"locationId": input.LocationID,
			},
		}); err != nil {
			return h.dbError(ctx, "write audit", err)
		}

		output = &Output{
			UserID:      target.ID,
			Email:       target.Email,
			Role:        role,
			FranchiseID: target.FranchiseID,
			LocationID:  input.LocationID,
			Approved:    true,
			Active:      true,
			ApprovedBy:  approver.ID,
			ApprovedAt:  now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if h.idp != nil {
		synced, err := auth.SyncEnabled(ctx, h.idp, output.Email, true)
		if err != nil {
			return nil, err
		}
		output.IdentitySynced = synced
	}

	h.logger.Info("user approved", map[string]interface{}{
		"userId":     output.UserID,
		"role":       output.Role,
		"locationId": output.LocationID,
		"approvedBy": output.ApprovedBy,
	})
	return output, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func (h *Handler) dbError(ctx context.Context, op string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrQueryTimeout, op)
	}
	return fmt.Errorf("%w: %s: %v", ErrQueryExecutionFailed, op, err)
}
