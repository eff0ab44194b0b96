// internal/workers/staff/reject-user/handler.go
package rejectuser

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"pos-workers/internal/common/auth"
	"pos-workers/internal/common/camunda"
	"pos-workers/internal/common/database"
	poserrors "pos-workers/internal/common/errors"
	"pos-workers/internal/common/logger"
	"pos-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "reject-user"

	maxReasonLength = 500
)

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
	if input == nil || input.UserID == "" || input.ApproverID == "" {
		return nil, fmt.Errorf("%w: userId and approverId are required", ErrValidationFailed)
	}
	reason := strings.TrimSpace(input.Reason)
	if utf8.RuneCountInString(reason) > maxReasonLength {
		return nil, fmt.Errorf("%w: reason exceeds %d characters", ErrValidationFailed, maxReasonLength)
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

		// A manager's authority is checked against the location the user works at, or asked for.
		locationID := target.LocationID
		if locationID == "" {
			locationID = target.RequestedLocationID
		}
		if ok, why := models.CanApprove(approver, target, locationID); !ok {
			return fmt.Errorf("%w: %s", ErrUnauthorizedActor, why)
		}

		now := time.Now().UTC()
		if _, err := tx.ExecContext(ctx, `
			UPDATE users
			SET approved = FALSE, active = FALSE,
			    rejected_by = $2, rejected_at = $3, rejection_reason = $4,
			    updated_at = $3
			WHERE id = $1`,
			target.ID, approver.ID, now, reason); err != nil {
			return h.dbError(ctx, "reject user", err)
		}

		if err := models.WriteAudit(ctx, tx, models.AuditEvent{
			EventType:    "user.rejected",
			ResourceType: "user",
			ResourceID:   target.ID,
			ActorID:      approver.ID,
			Details: map[string]interface{}{
				"reason":      reason,
				"wasApproved": target.Approved,
			},
		}); err != nil {
			return h.dbError(ctx, "write audit", err)
		}

		output = &Output{
			UserID:     target.ID,
			Email:      target.Email,
			RejectedBy: approver.ID,
			RejectedAt: now,
			Reason:     reason,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if h.idp != nil {
		synced, err := auth.SyncEnabled(ctx, h.idp, output.Email, false)
		if err != nil {
			return nil, err
		}
		output.IdentitySynced = synced
	}

	h.logger.Info("user rejected", map[string]interface{}{
		"userId":     output.UserID,
		"rejectedBy": output.RejectedBy,
	})
	return output, nil
}

func (h *Handler) dbError(ctx context.Context, op string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrQueryTimeout, op)
	}
	return fmt.Errorf("%w: %s: %v", ErrQueryExecutionFailed, op, err)
}
