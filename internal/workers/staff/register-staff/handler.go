// internal/workers/staff/register-staff/handler.go
package registerstaff

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
	"github.com/google/uuid"
)

const TaskType = "register-staff"

var (
	ErrValidationFailed     = errors.New("VALIDATION_FAILED")
	ErrFranchiseNotFound    = errors.New("FRANCHISE_NOT_FOUND")
	ErrFranchiseInactive    = errors.New("FRANCHISE_INACTIVE")
	ErrLocationNotFound     = errors.New("LOCATION_NOT_FOUND")
	ErrLocationMismatch     = errors.New("LOCATION_MISMATCH")
	ErrDuplicateUser        = errors.New("DUPLICATE_USER")
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

// NewHandler builds the handler. idp may be nil when no identity provider is configured.
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

	location, err := models.GetLocation(ctx, h.db, input.RequestedLocationID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrLocationNotFound, input.RequestedLocationID)
	}
	if err != nil {
		return nil, h.dbError(ctx, "load location", err)
	}
	if location.FranchiseID != franchise.ID {
		return nil, fmt.Errorf("%w: location %s does not belong to franchise %s", ErrLocationMismatch, location.ID, franchise.ID)
	}

	userID := uuid.NewString()
	now := time.Now().UTC()
	err = database.WithTx(ctx, h.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO users (id, email, display_name, phone, role, franchise_id, requested_location_id,
			                   approved, active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, FALSE, $8, $8)`,
			userID, input.Email, input.DisplayName, input.Phone, string(input.Role),
			franchise.ID, location.ID, now); err != nil {
			if database.IsUniqueViolation(err) {
				return fmt.Errorf("%w: %s", ErrDuplicateUser, input.Email)
			}
			return h.dbError(ctx, "insert user", err)
		}

		if err := models.WriteAudit(ctx, tx, models.AuditEvent{
			EventType:    "user.registered",
			ResourceType: "user",
			ResourceID:   userID,
			ActorID:      userID,
			Details: map[string]interface{}{
				"role":                input.Role,
				"franchiseId":         franchise.ID,
				"requestedLocationId": location.ID,
			},
		}); err != nil {
			return h.dbError(ctx, "write audit", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	output := &Output{
		UserID:              userID,
		Email:               input.Email,
		Role:                input.Role,
		FranchiseID:         franchise.ID,
		RequestedLocationID: location.ID,
	}
	output.IdentityID, output.IdentityCreated = h.createIdentity(ctx, userID, input)

	h.logger.Info("staff registered", map[string]interface{}{
		"userId":          userID,
		"franchiseId":     franchise.ID,
		"locationId":      location.ID,
		"identityCreated": output.IdentityCreated,
	})
	return output, nil
}

// createIdentity provisions a disabled account; approve-user enables it later.
func (h *Handler) createIdentity(ctx context.Context, userID string, input *Input) (string, bool) {
	if h.idp == nil {
		return "", false
	}

	id, err := h.idp.CreateUser(ctx, &auth.User{
		Email:     input.Email,
		Username:  input.Email,
		FirstName: input.DisplayName,
		Enabled:   false,
		Attributes: map[string][]string{
			"posUserId":   {userID},
			"franchiseId": {input.FranchiseID},
		},
	})
	if err != nil {
		h.logger.Warn("failed to create identity", map[string]interface{}{
			"userId": userID,
			"error":  err.Error(),
		})
		return "", false
	}
	return id, true
}

func (h *Handler) dbError(ctx context.Context, op string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrQueryTimeout, op)
	}
	return fmt.Errorf("%w: %s: %v", ErrQueryExecutionFailed, op, err)
}
