// internal/workers/order/bill-order/models.go
package billorder

import (
	"time"

	"pos-workers/internal/models"
)

type Input struct {
	OrderID      string  `json:"orderId"`
	ActingUserID string  `json:"actingUserId"`
	Discount     float64 `json:"discount,omitempty"`
}

type Output struct {
	OrderID       string             `json:"orderId"`
	OrderNumber   string             `json:"orderNumber"`
	BillNumber    string             `json:"billNumber"`
	Status        models.OrderStatus `json:"status"`
	OwnerQueue    models.OwnerQueue  `json:"ownerQueue"`
	Subtotal      float64            `json:"subtotal"`
	Tax           float64            `json:"tax"`
	Discount      float64            `json:"discount"`
	Total         float64            `json:"total"`
	BilledBy      string             `json:"billedBy"`
	BilledAt      time.Time          `json:"billedAt"`
	AlreadyBilled bool               `json:"alreadyBilled"`
}
