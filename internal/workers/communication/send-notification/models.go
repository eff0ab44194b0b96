// internal/workers/communication/send-notification/models.go
package sendnotification

import "pos-workers/internal/models"

type Input struct {
	Type        models.NotificationType `json:"type"`
	OrderID     string                  `json:"orderId,omitempty"`
	OrderNumber string                  `json:"orderNumber,omitempty"`
	LocationID  string                  `json:"locationId,omitempty"`
	UserID      string                  `json:"userId,omitempty"`
	Reason      string                  `json:"reason,omitempty"`
	Metadata    map[string]interface{}  `json:"metadata,omitempty"`
}

type Output struct {
	NotificationID string                `json:"notificationId"`
	Type           string                `json:"type"`
	Status         string                `json:"status"` // "sent", "failed", "disabled"
	SentAt         string                `json:"sentAt"` // ISO 8601
	Deliveries     []models.Notification `json:"deliveries"`
}

// Statuses
const (
	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusDisabled = "disabled"
)

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

type recipient struct {
	ID    string
	Email string
	Phone string
	Name  string
}
