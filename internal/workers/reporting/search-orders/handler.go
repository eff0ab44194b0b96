// internal/workers/reporting/search-orders/handler.go
package searchorders

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"pos-workers/internal/common/camunda"
	"pos-workers/internal/common/database"
	poserrors "pos-workers/internal/common/errors"
	"pos-workers/internal/common/logger"
	"pos-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/elastic/go-elasticsearch/v8"
)

const TaskType = "search-orders"

var (
	ErrValidationFailed              = errors.New("VALIDATION_FAILED")
	ErrUserNotFound                  = errors.New("USER_NOT_FOUND")
	ErrUnauthorizedActor             = errors.New("UNAUTHORIZED_ACTOR")
	ErrElasticsearchConnectionFailed = errors.New("ELASTICSEARCH_CONNECTION_FAILED")
	ErrSearchQueryFailed             = errors.New("SEARCH_QUERY_FAILED")
	ErrSearchTimeout                 = errors.New("SEARCH_TIMEOUT")
	ErrIndexNotFound                 = errors.New("INDEX_NOT_FOUND")
	ErrQueryExecutionFailed          = errors.New("QUERY_EXECUTION_FAILED")
	ErrQueryTimeout                  = errors.New("QUERY_TIMEOUT")
)

type Handler struct {
	config *Config
	db     *sql.DB
	es     *elasticsearch.Client
	logger logger.Logger
	errs   *poserrors.ErrorHandler
}

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
	if input == nil || input.ActingUserID == "" || input.FranchiseID == "" {
		return nil, fmt.Errorf("%w: actingUserId and franchiseId are required", ErrValidationFailed)
	}
	if input.From < 0 || input.Size < 0 {
		return nil, fmt.Errorf("%w: from and size must not be negative", ErrValidationFailed)
	}
	if input.PaymentMethod != "" && !models.PaymentMethod(input.PaymentMethod).Valid() {
		return nil, fmt.Errorf("%w: unknown payment method %q", ErrValidationFailed, input.PaymentMethod)
	}
	if h.es == nil {
		return nil, fmt.Errorf("%w: search is not configured", ErrElasticsearchConnectionFailed)
	}

	actor, err := models.GetUser(ctx, h.db, input.ActingUserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, input.ActingUserID)
	}
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: load acting user", ErrQueryTimeout)
		}
		return nil, fmt.Errorf("%w: load acting user: %v", ErrQueryExecutionFailed, err)
	}
	if actor.Role == models.RoleManager && input.LocationID == "" {
		input.LocationID = actor.LocationID
	}
	if ok, reason := actor.CanBillAt(input.FranchiseID, input.LocationID); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnauthorizedActor, reason)
	}

	size := input.Size
	if size == 0 {
		size = h.config.DefaultPageSize
	}
	if size > h.config.MaxPageSize {
		size = h.config.MaxPageSize
	}

	result, err := database.Search(ctx, h.es, h.config.SalesIndex, buildQuery(input, input.From, size))
	if err != nil {
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			return nil, ErrSearchTimeout
		case errors.Is(err, database.ErrIndexNotFound):
			return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, h.config.SalesIndex)
		default:
			return nil, fmt.Errorf("%w: %v", ErrSearchQueryFailed, err)
		}
	}

	orders := make([]OrderHit, 0, len(result.Hits))
	for _, hit := range result.Hits {
		var o OrderHit
		if err := json.Unmarshal(hit.Source, &o); err != nil {
			h.logger.Warn("skipping malformed sale document", map[string]interface{}{"id": hit.ID, "error": err.Error()})
			continue
		}
		orders = append(orders, o)
	}

	h.logger.Info("orders searched", map[string]interface{}{
		"franchiseId": input.FranchiseID,
		"total":       result.Total,
		"returned":    len(orders),
	})

	return &Output{Total: result.Total, From: input.From, Size: size, Orders: orders}, nil
}
