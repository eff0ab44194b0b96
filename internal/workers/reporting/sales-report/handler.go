// internal/workers/reporting/sales-report/handler.go
package salesreport

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"pos-workers/internal/common/camunda"
	"pos-workers/internal/common/database"
	poserrors "pos-workers/internal/common/errors"
	"pos-workers/internal/common/logger"
	"pos-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"
)

const (
	TaskType = "sales-report"

	cacheKeyPrefix = "pos:report:sales:"
	dateLayout     = "2006-01-02"
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
	redis  redis.Cmdable
	logger logger.Logger
	errs   *poserrors.ErrorHandler
}

// NewHandler builds the handler. rdb may be nil, which disables caching.
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
	from, to, err := h.validateInput(input)
	if err != nil {
		return nil, err
	}

	actor, err := models.GetUser(ctx, h.db, input.ActingUserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, input.ActingUserID)
	}
	if err != nil {
		return nil, h.dbError(ctx, "load acting user", err)
	}
	// Managers only ever see their own location.
	if actor.Role == models.RoleManager && input.LocationID == "" {
		input.LocationID = actor.LocationID
	}
	if ok, reason := actor.CanBillAt(input.FranchiseID, input.LocationID); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnauthorizedActor, reason)
	}

	key := cacheKey(input)
	if !input.Refresh {
		if cached, ok := h.cached(ctx, key); ok {
			return cached, nil
		}
	}

	report, err := h.aggregate(ctx, input, from, to)
	if err != nil {
		return nil, err
	}

	if h.redis != nil {
		if err := database.SetJSON(ctx, h.redis, key, report, h.config.CacheTTL); err != nil {
			h.logger.Warn("failed to cache sales report", map[string]interface{}{"key": key, "error": err.Error()})
		}
	}

	h.logger.Info("sales report generated", map[string]interface{}{
		"franchiseId": report.FranchiseID,
		"locationId":  report.LocationID,
		"orders":      report.OrderCount,
	})
	return report, nil
}

func (h *Handler) validateInput(input *Input) (time.Time, time.Time, error) {
	if input == nil || input.ActingUserID == "" || input.FranchiseID == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: actingUserId and franchiseId are required", ErrValidationFailed)
	}
	from, err := time.Parse(dateLayout, input.From)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: from must be YYYY-MM-DD", ErrValidationFailed)
	}
	to, err := time.Parse(dateLayout, input.To)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: to must be YYYY-MM-DD", ErrValidationFailed)
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: to is before from", ErrValidationFailed)
	}
	if days := int(to.Sub(from).Hours()/24) + 1; days > h.config.MaxRangeDays {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: range of %d days exceeds %d", ErrValidationFailed, days, h.config.MaxRangeDays)
	}
	return from, to.AddDate(0, 0, 1), nil
}

// cacheKey normalizes the query so equivalent requests share an entry.
func cacheKey(input *Input) string {
	location := input.LocationID
	if location == "" {
		location = "*"
	}
	return cacheKeyPrefix + strings.Join([]string{input.FranchiseID, location, input.From, input.To}, ":")
}

func (h *Handler) cached(ctx context.Context, key string) (*Output, bool) {
	if h.redis == nil {
		return nil, false
	}
	var out Output
	err := database.GetJSON(ctx, h.redis, key, &out)
	if errors.Is(err, database.ErrCacheMiss) {
		return nil, false
	}
	if err != nil {
		h.logger.Warn("sales report cache unavailable", map[string]interface{}{"key": key, "error": err.Error()})
		return nil, false
	}
	out.Cached = true
	return &out, true
}

// aggregate runs the three report queries; end is exclusive.
func (h *Handler) aggregate(ctx context.Context, input *Input, start, end time.Time) (*Output, error) {
	where := `franchise_id = $1 AND status = 'settled' AND settled_at >= $2 AND settled_at < $3`
	args := []interface{}{input.FranchiseID, start, end}
	if input.LocationID != "" {
		where += ` AND location_id = $4`
		args = append(args, input.LocationID)
	}

	out := &Output{
		FranchiseID:     input.FranchiseID,
		LocationID:      input.LocationID,
		From:            input.From,
		To:              input.To,
		ByLocation:      []LocationTotal{},
		ByPaymentMethod: []PaymentTotal{},
		GeneratedAt:     time.Now().UTC(),
	}

	err := h.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(subtotal), 0), COALESCE(SUM(tax), 0),
		       COALESCE(SUM(discount), 0), COALESCE(SUM(total), 0)
		FROM orders WHERE `+where, args...).
		Scan(&out.OrderCount, &out.Gross, &out.Tax, &out.Discount, &out.Net)
	if err != nil {
		return nil, h.dbError(ctx, "report totals", err)
	}

	rows, err := h.db.QueryContext(ctx, `
		SELECT location_id, COUNT(*), COALESCE(SUM(total), 0)
		FROM orders WHERE `+where+`
		GROUP BY location_id ORDER BY location_id`, args...)
	if err != nil {
		return nil, h.dbError(ctx, "report by location", err)
	}
	for rows.Next() {
		var lt LocationTotal
		if err := rows.Scan(&lt.LocationID, &lt.OrderCount, &lt.Total); err != nil {
			rows.Close()
			return nil, h.dbError(ctx, "scan location total", err)
		}
		out.ByLocation = append(out.ByLocation, lt)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, h.dbError(ctx, "report by location", err)
	}

	rows, err = h.db.QueryContext(ctx, `
		SELECT COALESCE(payment_method, ''), COUNT(*), COALESCE(SUM(total), 0)
		FROM orders WHERE `+where+`
		GROUP BY 1 ORDER BY 1`, args...)
	if err != nil {
		return nil, h.dbError(ctx, "report by payment method", err)
	}
	defer rows.Close()
	for rows.Next() {
		var pt PaymentTotal
		if err := rows.Scan(&pt.PaymentMethod, &pt.OrderCount, &pt.Total); err != nil {
			return nil, h.dbError(ctx, "scan payment total", err)
		}
		out.ByPaymentMethod = append(out.ByPaymentMethod, pt)
	}
	if err := rows.Err(); err != nil {
		return nil, h.dbError(ctx, "report by payment method", err)
	}

	out.Gross = models.Round2(out.Gross)
	out.Tax = models.Round2(out.Tax)
	out.Discount = models.Round2(out.Discount)
	out.Net = models.Round2(out.Net)
	return out, nil
}

func (h *Handler) dbError(ctx context.Context, op string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrQueryTimeout, op)
	}
	return fmt.Errorf("%w: %s: %v", ErrQueryExecutionFailed, op, err)
}
