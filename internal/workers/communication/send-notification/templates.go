// internal/workers/communication/send-notification/templates.go
package sendnotification

import (
	"fmt"
	"strings"

	"pos-workers/internal/models"
)

var templates = map[models.NotificationType]models.NotificationTemplate{
	models.NotifyOrderTransferred: {
		Type:    models.NotifyOrderTransferred,
		Subject: "Order {{orderNumber}} is waiting for billing",
		Body:    "Hi {{name}}, order {{orderNumber}} was sent to the manager queue. {{note}}",
	},
	models.NotifyUserApproved: {
		Type:    models.NotifyUserApproved,
		Subject: "Your POS account is active",
		Body:    "Hi {{name}}, your account has been approved. You can now sign in.",
	},
	models.NotifyUserRejected: {
		Type:    models.NotifyUserRejected,
		Subject: "Your POS account request",
		Body:    "Hi {{name}}, your account request was not approved. {{reason}}",
	},
}

// renderTemplate substitutes {{key}} placeholders and drops any left unresolved.
func renderTemplate(tmpl string, data map[string]interface{}) string {
	result := tmpl

	for k, v := range data {
		placeholder := "{{" + k + "}}"
		value := ""
		if s, ok := v.(string); ok {
			value = s
		} else if v != nil {
			value = fmt.Sprintf("%v", v)
		}
		result = strings.ReplaceAll(result, placeholder, value)
	}

	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		end += start + 2
		result = result[:start] + result[end:]
	}

	return strings.TrimSpace(result)
}
