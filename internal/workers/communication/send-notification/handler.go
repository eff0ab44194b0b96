// internal/workers/communication/send-notification/handler.go
package sendnotification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pos-workers/internal/common/camunda"
	poserrors "pos-workers/internal/common/errors"
	"pos-workers/internal/common/logger"
	"pos-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "send-notification"
)

var (
	ErrValidationFailed     = errors.New("VALIDATION_FAILED")
	ErrQueryExecutionFailed = errors.New("QUERY_EXECUTION_FAILED")
	ErrQueryTimeout         = errors.New("QUERY_TIMEOUT")
)

// EmailSender is satisfied by aws.SESClient.
type EmailSender interface {
	SendEmail(ctx context.Context, to []string, subject, body string) (string, error)
}

// SMSSender is satisfied by aws.SNSClient.
type SMSSender interface {
	SendSMS(ctx context.Context, phone, message string) (string, error)
}

type Handler struct {
	config *Config
	db     *sql.DB
	email  EmailSender
	sms    SMSSender
	logger logger.Logger
	errs   *poserrors.ErrorHandler
}

// NewHandler builds the handler. Either sender may be nil, which disables that channel.
func NewHandler(config *Config, db *sql.DB, email EmailSender, sms SMSSender, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		db:     db,
		email:  email,
		sms:    sms,
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
	if input == nil {
		return nil, fmt.Errorf("%w: input is required", ErrValidationFailed)
	}
	tmpl, ok := templates[input.Type]
	if !ok {
		return nil, fmt.Errorf("%w: unknown notification type %q", ErrValidationFailed, input.Type)
	}

	recipients, err := h.recipients(ctx, input)
	if err != nil {
		return nil, err
	}

	out := &Output{
		NotificationID: uuid.New().String(),
		Type:           string(input.Type),
		Status:         StatusDisabled,
		SentAt:         time.Now().UTC().Format(time.RFC3339),
		Deliveries:     []models.Notification{},
	}
	if len(recipients) == 0 {
		h.logger.Warn("no recipient for notification", map[string]interface{}{
			"type":       input.Type,
			"userId":     input.UserID,
			"locationId": input.LocationID,
		})
		return out, nil
	}

	sent, failed := 0, 0
	for _, r := range recipients {
		data := templateData(input, r)
		subject := renderTemplate(tmpl.Subject, data)
		body := renderTemplate(tmpl.Body, data)

		if h.config.EmailEnabled && h.email != nil && r.Email != "" {
			d := h.deliver(ctx, input.Type, ChannelEmail, r.Email, func() (string, error) {
				return h.email.SendEmail(ctx, []string{r.Email}, subject, body)
			})
			out.Deliveries = append(out.Deliveries, d)
			if d.Status == StatusSent {
				sent++
			} else {
				failed++
			}
		}

		// SMS only goes to managers waiting on a transferred order.
		if input.Type == models.NotifyOrderTransferred && h.config.SMSEnabled && h.sms != nil && r.Phone != "" {
			d := h.deliver(ctx, input.Type, ChannelSMS, r.Phone, func() (string, error) {
				return h.sms.SendSMS(ctx, r.Phone, body)
			})
			out.Deliveries = append(out.Deliveries, d)
			if d.Status == StatusSent {
				sent++
			} else {
				failed++
			}
		}
	}

	switch {
	case failed > 0:
		out.Status = StatusFailed
	case sent > 0:
		out.Status = StatusSent
	}

	h.logger.Info("notification processed", map[string]interface{}{
		"notificationId": out.NotificationID,
		"type":           input.Type,
		"status":         out.Status,
		"sent":           sent,
		"failed":         failed,
	})
	return out, nil
}

func (h *Handler) deliver(ctx context.Context, typ models.NotificationType, channel, to string, send func() (string, error)) models.Notification {
	d := models.Notification{Type: typ, Channel: channel, Recipient: to}
	id, err := send()
	if err != nil {
		h.logger.Error("notification send failed", map[string]interface{}{
			"channel":   channel,
			"recipient": to,
			"error":     err.Error(),
		})
		d.Status = StatusFailed
		d.Error = err.Error()
		return d
	}
	d.Status = StatusSent
	d.MessageID = id
	return d
}

// recipients resolves who the notification goes to. A user that no longer
// exists yields no recipients rather than an error.
func (h *Handler) recipients(ctx context.Context, input *Input) ([]recipient, error) {
	switch input.Type {
	case models.NotifyOrderTransferred:
		if input.LocationID == "" {
			return nil, fmt.Errorf("%w: locationId is required for %s", ErrValidationFailed, input.Type)
		}
		rows, err := h.db.QueryContext(ctx, `
			SELECT id, email, COALESCE(phone, ''), display_name
			FROM users
			WHERE location_id = $1 AND role = 'manager' AND approved AND active
			ORDER BY email`, input.LocationID)
		if err != nil {
			return nil, h.dbError(ctx, "load managers", err)
		}
		defer rows.Close()

		var out []recipient
		for rows.Next() {
			var r recipient
			if err := rows.Scan(&r.ID, &r.Email, &r.Phone, &r.Name); err != nil {
				return nil, h.dbError(ctx, "scan manager", err)
			}
			out = append(out, r)
		}
		if err := rows.Err(); err != nil {
			return nil, h.dbError(ctx, "load managers", err)
		}
		return out, nil

	default:
		if input.UserID == "" {
			return nil, fmt.Errorf("%w: userId is required for %s", ErrValidationFailed, input.Type)
		}
		var r recipient
		err := h.db.QueryRowContext(ctx, `
			SELECT id, email, COALESCE(phone, ''), display_name
			FROM users WHERE id = $1`, input.UserID).
			Scan(&r.ID, &r.Email, &r.Phone, &r.Name)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, h.dbError(ctx, "load user", err)
		}
		return []recipient{r}, nil
	}
}

func templateData(input *Input, r recipient) map[string]interface{} {
	data := map[string]interface{}{
		"name":        r.Name,
		"orderId":     input.OrderID,
		"orderNumber": input.OrderNumber,
		"reason":      input.Reason,
	}
	for k, v := range input.Metadata {
		if _, exists := data[k]; !exists || data[k] == "" {
			data[k] = v
		}
	}
	return data
}

func (h *Handler) dbError(ctx context.Context, op string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrQueryTimeout, op)
	}
	return fmt.Errorf("%w: %s: %v", ErrQueryExecutionFailed, op, err)
}
