// internal/workers/order/create-order/models.go
package createorder

import (
	"time"

	"pos-workers/internal/models"
)

type Input struct {
	LocationID   string             `json:"locationId"`
	ActingUserID string             `json:"actingUserId"`
	TableIDs     []string           `json:"tableIds,omitempty"`
	Items        []models.OrderItem `json:"items"`
}

type Output struct {
	OrderID     string             `json:"orderId"`
	OrderNumber string             `json:"orderNumber"`
	LocationID  string             `json:"locationId"`
	FranchiseID string             `json:"franchiseId"`
	Status      models.OrderStatus `json:"status"`
	OwnerQueue  models.OwnerQueue  `json:"ownerQueue"`
	TableIDs    []string           `json:"tableIds"`
	Subtotal    float64            `json:"subtotal"`
	Tax         float64            `json:"tax"`
	Total       float64            `json:"total"`
	CreatedAt   time.Time          `json:"createdAt"`
}
