// internal/models/notification.go
package models

type NotificationType string

const (
	NotifyOrderTransferred NotificationType = "order_transferred"
	NotifyUserApproved     NotificationType = "user_approved"
	NotifyUserRejected     NotificationType = "user_rejected"
)

type Notification struct {
	Type      NotificationType `json:"type"`
	Channel   string           `json:"channel"` // "email" or "sms"
	Recipient string           `json:"recipient"`
	Status    string           `json:"status"` // "sent", "failed", "disabled"
	MessageID string           `json:"messageId,omitempty"`
	Error     string           `json:"error,omitempty"`
}

type NotificationTemplate struct {
	Type    NotificationType `json:"type"`
	Subject string           `json:"subject"`
	Body    string           `json:"body"`
}
